package trapezoid

import (
	"math"
	"testing"
)

func TestLAccelInverseVf(t *testing.T) {
	cases := []struct{ vi, vf, j float64 }{
		{0, 100, 5000},
		{50, 150, 8000},
		{10, 20, 2000},
	}
	for _, c := range cases {
		l := LAccel(c.vi, c.vf, c.j)
		got := Vf(c.vi, l, c.j)
		if math.Abs(got-c.vf) > 0.01*c.vf {
			t.Errorf("Vf(LAccel(%v,%v,%v)) = %v, want ~%v", c.vi, c.vf, c.j, got, c.vf)
		}
	}
}

func TestPlanLengthPreserved(t *testing.T) {
	cases := []struct {
		length, entry, exit, cruiseVmax, deltaVmax, jerk float64
	}{
		{100, 0, 0, 50, 20, 5000},
		{5, 10, 10, 50, 20, 5000},
		{0.01, 0, 0, 50, 20, 5000},
		{1000, 20, 30, 80, 40, 8000},
	}
	for _, c := range cases {
		r := Plan(c.length, c.entry, c.exit, c.cruiseVmax, c.deltaVmax, c.jerk)
		sum := r.HeadLength + r.BodyLength + r.TailLength
		if math.Abs(sum-c.length) > 1e-3 {
			t.Errorf("length not preserved: got sum=%v want=%v (case %+v)", sum, c.length, c)
		}
		if r.Entry > r.Cruise+1e-9 || r.Exit > r.Cruise+1e-9 {
			t.Errorf("entry/exit exceed cruise: %+v", r)
		}
		if r.Cruise > c.cruiseVmax+1e-6 {
			t.Errorf("cruise exceeds cruiseVmax: %+v", r)
		}
	}
}

func TestPlanZeroLength(t *testing.T) {
	r := Plan(0, 10, 10, 50, 20, 5000)
	if r.HeadLength != 0 || r.BodyLength != 0 || r.TailLength != 0 {
		t.Errorf("expected all-zero lengths for zero-length block, got %+v", r)
	}
	if r.Cruise != 10 {
		t.Errorf("expected cruise forced to entry for zero-length block, got %v", r.Cruise)
	}
}

func TestPlanBodyCollapseForcesEntry(t *testing.T) {
	// Very short move where head/tail also collapse to zero: cruise must
	// equal entry to avoid a velocity discontinuity.
	r := Plan(1e-9, 5, 5, 50, 20, 5000)
	if r.HeadLength == 0 && r.TailLength == 0 && r.BodyLength == 0 {
		if r.Cruise != r.Entry {
			t.Errorf("expected cruise == entry on full collapse, got cruise=%v entry=%v", r.Cruise, r.Entry)
		}
	}
}
