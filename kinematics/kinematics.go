// Package kinematics converts a commanded XYZABC target into machine
// position and enforces per-axis travel limits. Grounded on the
// teacher's Cartesian kinematics (1:1 axis-to-motor mapping with per-axis
// limit checks), extended to six axes and to the ABC-axis radius-mode
// conversion spec.md §4.G requires.
package kinematics

import (
	"math"

	"tinygmc/gcodestate"
)

// AxisMode selects how an ABC axis target is interpreted.
type AxisMode uint8

const (
	AxisDisabled AxisMode = iota // target ignored entirely
	AxisStandard                 // degrees, driven directly
	AxisInhibited                // degrees, computed but not driven
	AxisRadius                   // input is linear arc length along Radius
)

// DisableSoftLimit is the sentinel travel-min/max value that disables a
// soft-limit check on that end of an axis.
const DisableSoftLimit = -1e6

// AxisConfig holds the per-axis configuration kinematics needs: travel
// limits for the soft-limit test, and (for ABC axes) the mode and radius
// used by the degree conversion.
type AxisConfig struct {
	TravelMin float64
	TravelMax float64

	Mode   AxisMode // only meaningful for A, B, C
	Radius float64  // mm, only meaningful when Mode == AxisRadius
}

// Kinematics holds the per-axis configuration for all six axes.
type Kinematics struct {
	Axes [gcodestate.AxisCount]AxisConfig
}

// New returns a Kinematics with XYZ enabled (soft limits disabled by
// default) and ABC standard, matching a typical 6-axis mill default.
func New() *Kinematics {
	k := &Kinematics{}
	for i := 0; i < gcodestate.AxisCount; i++ {
		k.Axes[i] = AxisConfig{TravelMin: DisableSoftLimit, TravelMax: DisableSoftLimit}
	}
	k.Axes[gcodestate.AxisA].Mode = AxisStandard
	k.Axes[gcodestate.AxisB].Mode = AxisStandard
	k.Axes[gcodestate.AxisC].Mode = AxisStandard
	return k
}

// ConvertTarget computes the machine-position target for one axis given a
// raw commanded value (already unit-converted to mm for XYZ, or to the
// axis's native unit for ABC). Radius mode uses only the axis's own
// configured Radius.
func (k *Kinematics) ConvertTarget(axis int, raw float64) (target float64, drive bool) {
	if axis < gcodestate.AxisA {
		// XYZ: direct passthrough, already in mm by the caller.
		return raw, true
	}

	cfg := k.Axes[axis]
	switch cfg.Mode {
	case AxisDisabled:
		return 0, false
	case AxisStandard:
		return raw, true
	case AxisInhibited:
		return raw, false
	case AxisRadius:
		if cfg.Radius == 0 {
			return 0, false
		}
		degrees := raw * 360.0 / (2 * math.Pi * cfg.Radius)
		return degrees, true
	default:
		return raw, true
	}
}

// CheckLimits returns the axis index and true if target (machine position,
// mm) violates that axis's soft limits; DisableSoftLimit on either end
// disables that end's check.
func (k *Kinematics) CheckLimits(target [gcodestate.AxisCount]float64, homed [gcodestate.AxisCount]bool) (axis int, violated bool) {
	for i := 0; i < gcodestate.AxisCount; i++ {
		if !homed[i] {
			continue
		}
		cfg := k.Axes[i]
		if cfg.TravelMin != DisableSoftLimit && target[i] < cfg.TravelMin {
			return i, true
		}
		if cfg.TravelMax != DisableSoftLimit && target[i] > cfg.TravelMax {
			return i, true
		}
	}
	return -1, false
}
