// Package config loads a JSON machine configuration and fills in
// sensible defaults, extended from the teacher's standalone/config
// loader from a 4-axis XYZE model to 6-axis XYZABC plus the
// jerk/tolerance/junction-deviation constants this firmware's planner
// needs.
package config

import "encoding/json"

// AxisSettings is one axis's motion and step configuration.
type AxisSettings struct {
	StepPin     string  `json:"step_pin"`
	DirPin      string  `json:"dir_pin"`
	EnablePin   string  `json:"enable_pin"`
	StepsPerUnit float64 `json:"steps_per_unit"`
	VelocityMax float64 `json:"velocity_max"`
	Jerk        float64 `json:"jerk"`
	HomingVel   float64 `json:"homing_velocity"`
	TravelMin   float64 `json:"travel_min"`
	TravelMax   float64 `json:"travel_max"`

	// Mode is only meaningful for A/B/C: "standard", "inhibited",
	// "radius", or "disabled".
	Mode   string  `json:"mode,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// EndstopSettings describes one axis's homing switch.
type EndstopSettings struct {
	Pin    string `json:"pin"`
	Invert bool   `json:"invert"`
}

// MachineConfig is the full machine configuration, loaded from JSON.
type MachineConfig struct {
	Kinematics string `json:"kinematics"`

	Axes     map[string]AxisSettings    `json:"axes"`
	Endstops map[string]EndstopSettings `json:"endstops"`

	JunctionDeviation float64 `json:"junction_deviation"`
	DefaultVelocity   float64 `json:"default_velocity"`
	DefaultJerk       float64 `json:"default_jerk"`

	ChordalTolerance float64 `json:"chordal_tolerance"`
}

// AxisOrder lists the canonical axis config keys in axis-index order.
var AxisOrder = [6]string{"x", "y", "z", "a", "b", "c"}

// Load parses a JSON configuration document and applies defaults to any
// zero-valued field.
func Load(data []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *MachineConfig) {
	if cfg.Kinematics == "" {
		cfg.Kinematics = "cartesian"
	}
	if cfg.DefaultVelocity == 0 {
		cfg.DefaultVelocity = 50.0
	}
	if cfg.DefaultJerk == 0 {
		cfg.DefaultJerk = 5_000_000.0 // mm/min^3, a moderate machine default
	}
	if cfg.JunctionDeviation == 0 {
		cfg.JunctionDeviation = 0.01
	}
	if cfg.ChordalTolerance == 0 {
		cfg.ChordalTolerance = 0.01
	}
	if cfg.Axes == nil {
		cfg.Axes = make(map[string]AxisSettings)
	}
	for name, axis := range cfg.Axes {
		if axis.VelocityMax == 0 {
			axis.VelocityMax = 300.0
		}
		if axis.Jerk == 0 {
			axis.Jerk = cfg.DefaultJerk
		}
		if axis.HomingVel == 0 {
			axis.HomingVel = 5.0
		}
		if axis.StepsPerUnit == 0 {
			axis.StepsPerUnit = 80.0
		}
		if axis.Mode == "" {
			axis.Mode = "standard"
		}
		cfg.Axes[name] = axis
	}
}

// Default6AxisMill returns a reasonable out-of-the-box configuration
// for a 6-axis (XYZABC) mill with ABC in standard (direct-degree) mode.
func Default6AxisMill() *MachineConfig {
	mk := func(step, dir, enable string, perUnit, vmax, jerk, homing, min, max float64) AxisSettings {
		return AxisSettings{
			StepPin: step, DirPin: dir, EnablePin: enable,
			StepsPerUnit: perUnit, VelocityMax: vmax, Jerk: jerk,
			HomingVel: homing, TravelMin: min, TravelMax: max, Mode: "standard",
		}
	}
	return &MachineConfig{
		Kinematics: "cartesian",
		Axes: map[string]AxisSettings{
			"x": mk("gpio0", "gpio1", "gpio8", 80, 300, 5_000_000, 50, 0, 300),
			"y": mk("gpio2", "gpio3", "gpio8", 80, 300, 5_000_000, 50, 0, 300),
			"z": mk("gpio4", "gpio5", "gpio8", 400, 60, 2_000_000, 10, 0, 100),
			"a": mk("gpio12", "gpio13", "gpio16", 88.9, 2000, 8_000_000, 0, -1e6, -1e6),
			"b": mk("gpio14", "gpio15", "gpio16", 88.9, 2000, 8_000_000, 0, -1e6, -1e6),
			"c": mk("gpio18", "gpio19", "gpio16", 88.9, 2000, 8_000_000, 0, -1e6, -1e6),
		},
		Endstops: map[string]EndstopSettings{
			"x": {Pin: "gpio20"},
			"y": {Pin: "gpio21"},
			"z": {Pin: "gpio22"},
		},
		JunctionDeviation: 0.01,
		DefaultVelocity:   300.0,
		DefaultJerk:       5_000_000.0,
		ChordalTolerance:  0.01,
	}
}
