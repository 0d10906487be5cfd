package planner

import (
	"math"
	"testing"

	"tinygmc/trapezoid"
)

func TestBackPlanIdempotent(t *testing.T) {
	blocks := []*Buffer{
		{Length: 100, Jerk: 5000, EntryVmax: 80, Replannable: true},
		{Length: 5, Jerk: 5000, EntryVmax: 80, Replannable: true},
		{Length: 100, Jerk: 5000, EntryVmax: 80, Replannable: true},
	}

	BackPlan(blocks, trapezoid.LAccel)
	first := make([]float64, len(blocks))
	for i, b := range blocks {
		first[i] = b.EntryVelocity
	}

	BackPlan(blocks, trapezoid.LAccel)
	for i, b := range blocks {
		if math.Abs(b.EntryVelocity-first[i]) > 1e-6 {
			t.Errorf("block %d entry velocity changed on second pass: %v -> %v", i, first[i], b.EntryVelocity)
		}
	}
}

func TestBackPlanShortBlockLimitsNeighbor(t *testing.T) {
	blocks := []*Buffer{
		{Length: 100, Jerk: 5000, EntryVmax: 80, Replannable: true},
		{Length: 0.01, Jerk: 5000, EntryVmax: 80, Replannable: true},
	}
	BackPlan(blocks, trapezoid.LAccel)
	if blocks[0].ExitVelocity >= blocks[0].EntryVmax {
		t.Errorf("expected first block's exit velocity limited by the tiny second block, got %v", blocks[0].ExitVelocity)
	}
}

func TestBackPlanNonReplannableSkipped(t *testing.T) {
	blocks := []*Buffer{
		{Length: 100, Jerk: 5000, EntryVmax: 80, Replannable: false, EntryVelocity: 42},
	}
	BackPlan(blocks, trapezoid.LAccel)
	if blocks[0].EntryVelocity != 42 {
		t.Errorf("non-replannable block should be untouched, got %v", blocks[0].EntryVelocity)
	}
}
