package runtime

import (
	"math"
	"testing"

	"tinygmc/gcodestate"
	"tinygmc/trapezoid"
)

func straightBlock(length float64) Block {
	r := trapezoid.Plan(length, 0, 0, 50, 20, 5000)
	unit := [gcodestate.AxisCount]float64{1, 0, 0, 0, 0, 0}
	return Block{
		Unit:   unit,
		Length: length,
		Jerk:   5000,
		Head:   r,
		Body:   r,
		Tail:   r,
	}
}

func TestRuntimeConsumesBlockToCompletion(t *testing.T) {
	r := New()
	b := straightBlock(100)
	var start [gcodestate.AxisCount]float64
	r.Load(b, start)

	var traveled float64
	segments := 0
	for {
		seg, done := r.Next()
		if done {
			break
		}
		traveled += seg.Delta[0]
		segments++
		if segments > 100000 {
			t.Fatal("runtime did not terminate")
		}
	}
	if segments == 0 {
		t.Fatal("expected at least one segment")
	}
	if math.Abs(traveled-100) > 1e-2 {
		t.Errorf("traveled = %v, want ~100", traveled)
	}
	if r.Active() {
		t.Error("expected runtime inactive after block completion")
	}
}

func TestRuntimeWaypointSnapMatchesLength(t *testing.T) {
	r := New()
	b := straightBlock(50)
	var start [gcodestate.AxisCount]float64
	r.Load(b, start)

	for {
		_, done := r.Next()
		if done {
			break
		}
	}
	pos := r.Position()
	if math.Abs(pos[0]-50) > 1e-2 {
		t.Errorf("final position = %v, want ~50", pos[0])
	}
	for i := 1; i < gcodestate.AxisCount; i++ {
		if pos[i] != 0 {
			t.Errorf("axis %d moved unexpectedly: %v", i, pos[i])
		}
	}
}

func TestFeedholdStateMachine(t *testing.T) {
	r := New()
	if r.Hold() != HoldOff {
		t.Fatal("expected initial hold state OFF")
	}
	r.RequestFeedhold()
	if r.Hold() != HoldSync {
		t.Fatal("expected SYNC after feedhold request")
	}
	r.BeginPlan()
	if r.Hold() != HoldPlan {
		t.Fatal("expected PLAN after BeginPlan")
	}
	r.BeginDecel(trapezoid.Result{})
	if r.Hold() != HoldDecel {
		t.Fatal("expected DECEL after BeginDecel")
	}
	if r.QueueFlushAllowed() {
		t.Fatal("queue flush should not be allowed during DECEL")
	}
	r.ReachHold()
	if r.Hold() != HoldHold {
		t.Fatal("expected HOLD after ReachHold")
	}
	if !r.QueueFlushAllowed() {
		t.Fatal("queue flush should be allowed once settled in HOLD")
	}
	if !r.CycleStart() {
		t.Fatal("expected CycleStart to succeed from HOLD")
	}
	if r.Hold() != HoldEndHold {
		t.Fatal("expected END_HOLD after CycleStart")
	}
	r.EndHold()
	if r.Hold() != HoldOff {
		t.Fatal("expected OFF after EndHold")
	}
}

func TestFeedholdRequestIgnoredMidSequence(t *testing.T) {
	r := New()
	r.RequestFeedhold()
	r.BeginPlan()
	r.RequestFeedhold() // should be a no-op, already past OFF
	if r.Hold() != HoldPlan {
		t.Errorf("second feedhold request should not reset sequence, got %v", r.Hold())
	}
}
