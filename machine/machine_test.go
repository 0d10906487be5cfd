package machine

import (
	"testing"

	"tinygmc/gcodestate"
	"tinygmc/kinematics"
)

func TestSetModelTargetAbsoluteXYZ(t *testing.T) {
	m := New(kinematics.New())
	var params [gcodestate.AxisCount]float64
	var present [gcodestate.AxisCount]bool
	params[gcodestate.AxisX] = 10
	params[gcodestate.AxisY] = 20
	present[gcodestate.AxisX] = true
	present[gcodestate.AxisY] = true

	target := m.SetModelTarget(params, present)
	if target[gcodestate.AxisX] != 10 || target[gcodestate.AxisY] != 20 {
		t.Errorf("got target=%v", target)
	}
	if target[gcodestate.AxisZ] != 0 {
		t.Errorf("expected Z unchanged at 0, got %v", target[gcodestate.AxisZ])
	}
}

func TestSetModelTargetIncrementalAccumulates(t *testing.T) {
	m := New(kinematics.New())
	m.GM.Distance = gcodestate.DistanceIncremental

	var params [gcodestate.AxisCount]float64
	var present [gcodestate.AxisCount]bool
	params[gcodestate.AxisX] = 5
	present[gcodestate.AxisX] = true

	t1 := m.SetModelTarget(params, present)
	m.GMX.AbsoluteMachinePosition = t1
	t2 := m.SetModelTarget(params, present)

	if t2[gcodestate.AxisX] != 10 {
		t.Errorf("expected incremental accumulation to 10, got %v", t2[gcodestate.AxisX])
	}
}

func TestSetModelTargetRadiusModeABC(t *testing.T) {
	kin := kinematics.New()
	kin.Axes[gcodestate.AxisA].Mode = kinematics.AxisRadius
	kin.Axes[gcodestate.AxisA].Radius = 10
	m := New(kin)

	var params [gcodestate.AxisCount]float64
	var present [gcodestate.AxisCount]bool
	arcLength := 2 * 3.141592653589793 * 10 / 4 // quarter turn
	params[gcodestate.AxisA] = arcLength
	present[gcodestate.AxisA] = true

	target := m.SetModelTarget(params, present)
	got := target[gcodestate.AxisA]
	if got < 89 || got > 91 {
		t.Errorf("expected ~90 degrees for quarter-turn arc length, got %v", got)
	}
}

func TestSoftLimitTripOnlyWhenHomed(t *testing.T) {
	kin := kinematics.New()
	kin.Axes[gcodestate.AxisX].TravelMin = 0
	kin.Axes[gcodestate.AxisX].TravelMax = 100
	m := New(kin)

	var target [gcodestate.AxisCount]float64
	target[gcodestate.AxisX] = 200

	if err := m.CheckSoftLimits(target); err != nil {
		t.Errorf("expected no soft-limit error on un-homed axis, got %v", err)
	}

	m.Homed[gcodestate.AxisX] = true
	if err := m.CheckSoftLimits(target); err == nil {
		t.Error("expected soft-limit violation once homed")
	}
}

func TestFeedholdSequencing(t *testing.T) {
	m := New(kinematics.New())
	m.State = StateRun

	m.RequestHold()
	holdCalled := false
	m.PollRequests(false, func() { holdCalled = true }, func() bool { return false }, func() bool { return false })
	if m.State != StateHold || !holdCalled {
		t.Fatalf("expected State=HOLD and runtime hold requested, got state=%v called=%v", m.State, holdCalled)
	}

	m.RequestCycleStart()
	m.PollRequests(true, func() {}, func() bool { return true }, func() bool { return true })
	if m.State != StateRun {
		t.Errorf("expected cycle-start to resume RUN once settled, got %v", m.State)
	}
}

func TestProgramEndCancelsOriginOffset(t *testing.T) {
	m := New(kinematics.New())
	m.GMX.OriginOffset[gcodestate.AxisX] = 5
	m.GM.CoordSystem = gcodestate.CoordG55

	m.ProgramEnd()

	if m.GMX.OriginOffset[gcodestate.AxisX] != 0 {
		t.Error("expected G92 origin offset cancelled on program end")
	}
	if m.GM.CoordSystem != gcodestate.CoordG54 {
		t.Error("expected coordinate system reset to G54 default on program end")
	}
	if m.State != StateEnd {
		t.Errorf("expected State=END, got %v", m.State)
	}
}

func TestHardAlarmIsUnrecoverable(t *testing.T) {
	m := New(kinematics.New())
	m.HardAlarm("test")
	if m.State != StateShutdown {
		t.Fatalf("expected SHUTDOWN, got %v", m.State)
	}
	if err := m.ClearAlarm(); err == nil {
		t.Error("expected ClearAlarm to refuse clearing a hardware shutdown")
	}
}

func TestSoftAlarmClearable(t *testing.T) {
	m := New(kinematics.New())
	m.SoftAlarm()
	if m.State != StateAlarm {
		t.Fatalf("expected ALARM, got %v", m.State)
	}
	if err := m.ClearAlarm(); err != nil {
		t.Fatalf("expected ClearAlarm to succeed from ALARM: %v", err)
	}
	if m.State != StateReady {
		t.Errorf("expected READY after clear, got %v", m.State)
	}
}
