// Package runtime slices one planner block's trapezoid (head/body/tail
// lengths and velocities) into ~5ms segments, drives the forward-difference
// S-curve for the accelerating sections, snaps position to the exact
// planned waypoint at each section boundary, and carries the feedhold
// sub-state machine (OFF/SYNC/PLAN/DECEL/HOLD/END_HOLD), whose states
// the caller advances; Next runs a loaded block along its original fit
// whatever the hold state.
package runtime

import (
	"tinygmc/gcodestate"
	"tinygmc/trapezoid"
)

// NomSegmentTime is the nominal segment duration, in minutes (5ms).
const NomSegmentTime = 5.0 / 1000.0 / 60.0

// Section identifies which part of the trapezoid is currently executing.
type Section uint8

const (
	SectionHead Section = iota
	SectionBody
	SectionTail
	SectionOff
)

// SectionState tracks progress within a section.
type SectionState uint8

const (
	SectionNew SectionState = iota
	SectionRunning
)

// HoldState is the feedhold sub-state machine, driven independently of
// the block/section machinery above.
type HoldState uint8

const (
	HoldOff HoldState = iota
	HoldSync
	HoldPlan
	HoldDecel
	HoldHold
	HoldEndHold
)

// Block is the subset of a planner buffer the runtime needs to execute
// one move: lengths/velocities from the trapezoid fit, the unit vector,
// and the GCodeState snapshot captured when the move was committed.
type Block struct {
	Unit   [gcodestate.AxisCount]float64
	Length float64
	Jerk   float64

	Head trapezoid.Result
	Tail trapezoid.Result
	Body trapezoid.Result // only Entry==Cruise==Exit and BodyLength matter

	State gcodestate.GCodeState
}

// Runtime (mr) is the ISR-priority segment generator. All fields here are
// mutated only from LO-priority (EXEC/PREP) context; MODEL-side code must
// never touch it directly, only through its accessors (Position, Active,
// Hold).
type Runtime struct {
	active bool
	block  Block

	section      Section
	sectionState SectionState

	// position is the Kahan-compensated floating-point machine position,
	// per axis, in mm; waypoint is the exact planned position at the
	// current section's end, snapped into position when the section
	// completes so drift never accumulates across sections.
	position [gcodestate.AxisCount]KahanSum
	waypoint [gcodestate.AxisCount]float64

	segmentCount int
	segmentIndex int
	segmentTime  float64 // minutes

	fwdDiff ForwardDiffSet

	hold HoldState

	// decelTarget holds the fit passed to BeginDecel until ReachHold or
	// Abort clears it. Next does not read it: segments keep following the
	// block's original Head/Body/Tail fit.
	decelTarget *trapezoid.Result
}

// New returns an idle Runtime.
func New() *Runtime {
	return &Runtime{section: SectionOff, hold: HoldOff}
}

// Load begins executing a new block. The runtime must be idle (no block
// in progress); the planner/EXEC layer enforces single-RUNNING-buffer.
func (r *Runtime) Load(b Block, startPos [gcodestate.AxisCount]float64) {
	r.block = b
	r.active = true
	r.section = SectionHead
	r.sectionState = SectionNew
	for i := 0; i < gcodestate.AxisCount; i++ {
		r.position[i].Reset(float32(startPos[i]))
	}
	r.beginSection()
}

// beginSection sets up the forward-diff table (or constant-velocity state
// for the body) for whichever section is now current, and records its
// waypoint (the exact position the section should end at).
func (r *Runtime) beginSection() {
	var sectionLen, entry, exit float64
	switch r.section {
	case SectionHead:
		sectionLen, entry, exit = r.block.Head.HeadLength, r.block.Head.Entry, r.block.Head.Cruise
	case SectionBody:
		sectionLen, entry, exit = r.block.Body.BodyLength, r.block.Body.Cruise, r.block.Body.Cruise
	case SectionTail:
		sectionLen, entry, exit = r.block.Tail.TailLength, r.block.Tail.Cruise, r.block.Tail.Exit
	}

	r.segmentCount = segmentsFor(sectionLen, entry, exit)
	r.segmentIndex = 0
	r.sectionState = SectionRunning

	if r.segmentCount > 0 {
		r.fwdDiff.Init(entry, exit, r.segmentCount)
	}

	for i := 0; i < gcodestate.AxisCount; i++ {
		r.waypoint[i] = float64(r.position[i].Sum) + sectionLen*r.block.Unit[i]
	}
}

// segmentsFor picks a segment count so each segment is close to
// NomSegmentTime, at least 1.
func segmentsFor(length, entry, exit float64) int {
	if length <= 0 {
		return 0
	}
	avg := (entry + exit) / 2
	if avg <= 0 {
		avg = entry
	}
	if avg <= 0 {
		return 1
	}
	timeMin := length / avg
	n := int(timeMin/NomSegmentTime + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// Segment is one ~5ms slice handed downstream to Prep: a per-axis
// floating-point step delta plus the segment's nominal time.
type Segment struct {
	Delta [gcodestate.AxisCount]float64
	Time  float64 // minutes
	Last  bool    // true if this was the block's final segment
}

// Next advances the runtime by one segment, or reports done==true when the
// block has been fully consumed (the planner should free the buffer and
// load the next one).
func (r *Runtime) Next() (seg Segment, done bool) {
	if !r.active {
		return Segment{}, true
	}

	for r.segmentIndex >= r.segmentCount {
		// Current section exhausted (or zero-length): snap position to
		// its waypoint and advance to the next section.
		for i := 0; i < gcodestate.AxisCount; i++ {
			r.position[i].Reset(float32(r.waypoint[i]))
		}
		switch r.section {
		case SectionHead:
			r.section = SectionBody
		case SectionBody:
			r.section = SectionTail
		case SectionTail:
			r.active = false
			r.section = SectionOff
			return Segment{Last: true}, true
		}
		r.beginSection()
		if r.segmentCount == 0 {
			continue
		}
	}

	v := float64(r.fwdDiff.Next())
	r.segmentIndex++

	// distance covered this segment at velocity v over segmentTime,
	// distributed along the unit vector.
	dist := v * NomSegmentTime
	var delta Segment
	delta.Time = NomSegmentTime
	for i := 0; i < gcodestate.AxisCount; i++ {
		d := dist * r.block.Unit[i]
		newPos := float64(r.position[i].Sum) + d
		r.position[i].Reset(float32(newPos))
		delta.Delta[i] = d
	}

	last := r.section == SectionTail && r.segmentIndex >= r.segmentCount
	delta.Last = last
	return delta, false
}

// Position returns the runtime's current floating-point machine position.
func (r *Runtime) Position() [gcodestate.AxisCount]float64 {
	var p [gcodestate.AxisCount]float64
	for i := range p {
		p[i] = float64(r.position[i].Sum)
	}
	return p
}

// Active reports whether a block is currently being executed.
func (r *Runtime) Active() bool { return r.active }

// Abort discards the in-progress block and resets the hold sub-state
// machine to OFF, used by a queue flush: unlike a feedhold (which decelerates
// to a controlled stop before anything is discarded), a flush is only ever
// honored once the caller has confirmed the machine is already held, so
// there is no motion left to unwind — only planner/runtime state to clear.
func (r *Runtime) Abort() {
	r.active = false
	r.section = SectionOff
	r.hold = HoldOff
	r.decelTarget = nil
}

// RequestFeedhold begins the feedhold sequence: SYNC immediately, the
// caller (planner/EXEC) is expected to call BeginDecel once it has
// computed the decel-to-zero replan for the remainder of the current
// block.
func (r *Runtime) RequestFeedhold() {
	if r.hold == HoldOff {
		r.hold = HoldSync
	}
}

// BeginPlan transitions SYNC -> PLAN once the runtime has reached a
// segment boundary and it is safe to replan the remainder.
func (r *Runtime) BeginPlan() {
	if r.hold == HoldSync {
		r.hold = HoldPlan
	}
}

// BeginDecel installs a decel-to-zero fit for the remainder of the block
// and transitions PLAN -> DECEL.
func (r *Runtime) BeginDecel(remainder trapezoid.Result) {
	if r.hold != HoldPlan {
		return
	}
	r.decelTarget = &remainder
	r.hold = HoldDecel
}

// ReachHold transitions DECEL -> HOLD once velocity reaches zero.
func (r *Runtime) ReachHold() {
	if r.hold == HoldDecel {
		r.hold = HoldHold
		r.decelTarget = nil
	}
}

// CycleStart resumes from a settled hold: HOLD -> END_HOLD. The caller
// replans remaining blocks from zero velocity before the next call to
// Load.
func (r *Runtime) CycleStart() bool {
	if r.hold == HoldHold {
		r.hold = HoldEndHold
		return true
	}
	return false
}

// EndHold completes the feedhold cycle: END_HOLD -> OFF.
func (r *Runtime) EndHold() {
	if r.hold == HoldEndHold {
		r.hold = HoldOff
	}
}

// Hold returns the current feedhold sub-state.
func (r *Runtime) Hold() HoldState { return r.hold }

// QueueFlushAllowed reports whether a queue-flush request may be honored
// given the current hold state (per spec.md §4.G's feedhold sequencing
// table: honored once HOLD is settled, deferred during DECEL/SYNC/PLAN).
func (r *Runtime) QueueFlushAllowed() bool {
	return r.hold == HoldHold
}
