package stepgen

import "testing"

func TestDDAStepCountMatchesTravel(t *testing.T) {
	var d DDA
	const travel = 837
	const ticks = 10000
	d.LoadSegment(travel, ticks)

	count := 0
	for i := 0; i < ticks; i++ {
		if d.Tick() {
			count++
		}
	}
	if count != travel {
		t.Errorf("DDA emitted %d steps for travel=%d ticks=%d", count, travel, ticks)
	}
	if !d.Done() {
		t.Errorf("expected DDA done after exactly travel steps emitted")
	}
}

func TestDDANegativeTravelSetsDirection(t *testing.T) {
	var d DDA
	d.LoadSegment(-50, 1000)
	if d.Direction() {
		t.Error("expected direction=false (reverse) for negative travel")
	}
	count := 0
	for i := 0; i < 1000; i++ {
		if d.Tick() {
			count++
		}
	}
	if count != 50 {
		t.Errorf("got %d steps, want 50", count)
	}
}

func TestEngineStepCountConservedOver1000Segments(t *testing.T) {
	backend := NewSimBackend()
	engine := NewEngine(backend)

	var want int64
	for seg := 0; seg < 1000; seg++ {
		travel := int32((seg % 17) - 8) // varies sign and magnitude
		var steps [MotorCount]int32
		steps[0] = travel
		want += int64(travel)

		engine.LoadSegment(steps, 2000)
		for !engine.AllDone() {
			engine.tick()
		}
	}

	if backend.Steps[0] != want {
		t.Errorf("motor 0 net steps = %d, want %d", backend.Steps[0], want)
	}
}

func TestPrepResidualConservesFractionalSteps(t *testing.T) {
	var perUnit [MotorCount]float64
	perUnit[0] = 80 // steps per mm
	p := NewPrep(perUnit)

	var totalSteps int64
	const segments = 500
	const deltaPerSegment = 0.1337 // mm, deliberately not a whole number of steps

	for i := 0; i < segments; i++ {
		var delta [MotorCount]float64
		delta[0] = deltaPerSegment
		p.Submit(delta, 5.0/1000.0/60.0)
		seg := p.Take()
		totalSteps += int64(seg.Steps[0])
	}

	wantTotal := int64(deltaPerSegment * perUnit[0] * segments)
	diff := totalSteps - wantTotal
	if diff < -1 || diff > 1 {
		t.Errorf("accumulated step count %d too far from expected %d (residual not conserved)", totalSteps, wantTotal)
	}
}
