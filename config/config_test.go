package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(`{"axes":{"x":{"steps_per_unit":80}}}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultVelocity != 50.0 {
		t.Errorf("expected default velocity applied, got %v", cfg.DefaultVelocity)
	}
	if cfg.JunctionDeviation != 0.01 {
		t.Errorf("expected default junction deviation applied, got %v", cfg.JunctionDeviation)
	}
	x := cfg.Axes["x"]
	if x.VelocityMax != 300.0 {
		t.Errorf("expected default axis velocity max applied, got %v", x.VelocityMax)
	}
	if x.StepsPerUnit != 80 {
		t.Errorf("expected explicit steps_per_unit preserved, got %v", x.StepsPerUnit)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	if _, err := Load([]byte("not json")); err == nil {
		t.Error("expected error on invalid JSON")
	}
}

func TestDefault6AxisMillHasAllAxes(t *testing.T) {
	cfg := Default6AxisMill()
	for _, name := range AxisOrder {
		if _, ok := cfg.Axes[name]; !ok {
			t.Errorf("missing default axis config for %q", name)
		}
	}
}
