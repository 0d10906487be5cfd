// Package gcodestate defines the canonical G-code interpreter state and
// its three temporally distinct copies: MODEL (latest parsed state),
// PLANNER (one snapshot per queued block), and RUNTIME (the block
// currently being pulsed). Reporting code selects among them through
// ActiveModel rather than a raw pointer so the temporal context is always
// explicit at the type level.
package gcodestate

// AxisCount is the number of machine axes: X, Y, Z, A, B, C.
const AxisCount = 6

// Axis indices.
const (
	AxisX = iota
	AxisY
	AxisZ
	AxisA
	AxisB
	AxisC
)

// AxisNames maps an axis index to its letter.
var AxisNames = [AxisCount]string{"X", "Y", "Z", "A", "B", "C"}

// MotionMode is the active G0/G1/G2/G3/cancel modal group 1 state.
type MotionMode uint8

const (
	MotionStraightTraverse MotionMode = iota // G0
	MotionStraightFeed                       // G1
	MotionCWArc                              // G2
	MotionCCWArc                             // G3
	MotionCancel                              // G80
)

// FeedRateMode selects how the feed rate value is interpreted.
type FeedRateMode uint8

const (
	UnitsPerMinute FeedRateMode = iota
	InverseTime
)

// UnitsMode is inch or millimeter (G20/G21).
type UnitsMode uint8

const (
	UnitsInches UnitsMode = iota
	UnitsMM
)

// DistanceMode is absolute or incremental (G90/G91).
type DistanceMode uint8

const (
	DistanceAbsolute DistanceMode = iota
	DistanceIncremental
)

// Plane is the active G17/G18/G19 selection.
type Plane uint8

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

// PathControlMode is G61/G61.1/G64.
type PathControlMode uint8

const (
	PathExactStop PathControlMode = iota
	PathExactPath
	PathContinuous
)

// SpindleMode is M3/M4/M5.
type SpindleMode uint8

const (
	SpindleOff SpindleMode = iota
	SpindleCW
	SpindleCCW
)

// CoolantFlags is a bitmask of active coolant outputs (M7/M8/M9).
type CoolantFlags uint8

const (
	CoolantMist  CoolantFlags = 1 << 0 // M7
	CoolantFlood CoolantFlags = 1 << 1 // M8
)

// CoordSystem indexes G54..G59 (plus G53, index 0, for machine coordinates).
const (
	CoordG53 = iota
	CoordG54
	CoordG55
	CoordG56
	CoordG57
	CoordG58
	CoordG59
	CoordSystemCount
)

// GCodeState is the interpreter-side state captured in each of the three
// temporal contexts (MODEL/PLANNER/RUNTIME). It is deliberately a plain
// value type: PLANNER copies live inline in a planner buffer, RUNTIME
// copies live inline in the runtime singleton, and MODEL is the single
// long-lived instance owned by the canonical machine.
type GCodeState struct {
	LineNumber int

	MotionMode      MotionMode
	FeedRate        float64
	FeedRateMode    FeedRateMode
	CoordSystem     int
	Units           UnitsMode
	Distance        DistanceMode
	Plane           Plane
	PathControl     PathControlMode
	Tool            int
	SpindleMode     SpindleMode
	SpindleSpeed    float64
	Coolant         CoolantFlags
	AbsoluteOverride bool

	// Target is the commanded endpoint of the current move, in mm,
	// machine coordinates (after offset resolution).
	Target [AxisCount]float64

	// WorkOffset is the per-axis coordinate-system + G92 offset in effect
	// when this state was captured, so a RUNTIME/PLANNER snapshot can
	// still report work coordinates after MODEL's offsets have moved on.
	WorkOffset [AxisCount]float64
}

// Clone returns a value copy suitable for stashing in a planner buffer or
// the runtime singleton. GCodeState has no pointer fields, so a plain
// assignment already copies correctly; Clone exists for call-site clarity
// at the MODEL -> PLANNER handoff.
func (g GCodeState) Clone() GCodeState {
	return g
}

// ActiveModel selects which temporal context reporting code should read.
type ActiveModel uint8

const (
	ActiveModelModel ActiveModel = iota
	ActiveModelRuntime
)

// GMX holds the parts of canonical-machine state that are not copied
// per-block: absolute machine position, G92 origin offsets, stored G28/G30
// positions, and global enables. Unlike GCodeState it is not duplicated
// into planner buffers — it represents machine-wide, not per-block, state.
type GMX struct {
	AbsoluteMachinePosition [AxisCount]float64 // always mm
	OriginOffset            [AxisCount]float64 // G92
	OriginOffsetEnable      bool

	// CoordOffsets holds the per-axis work offset for each of the
	// CoordSystemCount coordinate systems (G53 machine coords plus
	// G54-G59), indexed by CoordG53..CoordG59.
	CoordOffsets [CoordSystemCount][AxisCount]float64

	G28Position [AxisCount]float64
	G30Position [AxisCount]float64

	BlockDelete bool

	FeedOverrideEnable     bool
	FeedOverrideFactor     float64
	TraverseOverrideEnable bool
	TraverseOverrideFactor float64
	SpindleOverrideEnable  bool
	SpindleOverrideFactor  float64
}

// NewGMX returns a GMX with override factors at unity (100%).
func NewGMX() GMX {
	return GMX{
		FeedOverrideFactor:     1.0,
		TraverseOverrideFactor: 1.0,
		SpindleOverrideFactor:  1.0,
	}
}

// Default returns a GCodeState with the machine's power-on defaults:
// G17 G21 G90 G94 G54, motion cancelled, spindle and coolant off.
func Default() GCodeState {
	return GCodeState{
		MotionMode:   MotionCancel,
		FeedRateMode: UnitsPerMinute,
		CoordSystem:  CoordG54,
		Units:        UnitsMM,
		Distance:     DistanceAbsolute,
		Plane:        PlaneXY,
		PathControl:  PathContinuous,
		SpindleMode:  SpindleOff,
	}
}
