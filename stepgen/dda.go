// Package stepgen turns the runtime's per-segment floating step counts
// into individual step pulses using a shared-clock Bresenham DDA, one
// accumulator per motor, driven by a HI-priority LOAD handler and fed by
// a LO-priority EXEC/PREP stage. The split and the timer wiring are
// adapted from the teacher's core.Timer scheduling idiom; the DDA itself
// is new, since the teacher's per-motor variable-interval stepper does
// not share a clock the way this firmware's motors must.
package stepgen

import "tinygmc/core"

// MotorCount is fixed independently of AxisCount: a machine may map
// fewer or more motors than axes (e.g. dual-motor gantries).
const MotorCount = 6

// AccumulatorResetFactor bounds how far substep_increment may change
// between consecutive segments while DDA phase is carried over: when a
// new segment is loaded, the sub-step part of substep_accumulator is kept
// (so pulse spacing stays continuous across the boundary) if the new
// increment is within this factor of the previous one, and the
// accumulator is reset to zero if it grew or shrank by more than that.
const AccumulatorResetFactor = 2

// DDA is one motor's Bresenham digital differential analyzer. Run from
// HI-priority (LOAD) context only.
type DDA struct {
	substepAccumulator int32
	substepIncrement   int32
	direction          bool
	steps              uint32 // steps remaining in the current segment
}

// LoadSegment arms the DDA for a new segment: travelSteps is the signed
// step count to move this segment (direction is latched from its sign),
// ticks is the number of DDA clock ticks the segment will run for.
func (d *DDA) LoadSegment(travelSteps int32, ticks uint32) {
	if travelSteps < 0 {
		d.direction = false
		travelSteps = -travelSteps
	} else {
		d.direction = true
	}
	d.steps = uint32(travelSteps)
	if ticks == 0 {
		ticks = 1
	}
	// substep_increment scaled (rounded up) so that after `ticks`
	// additions the accumulator advances by travelSteps full steps.
	prev := d.substepIncrement
	d.substepIncrement = int32(((int64(travelSteps) << 16) + int64(ticks) - 1) / int64(ticks))
	if d.substepIncrement > prev*AccumulatorResetFactor || prev > d.substepIncrement*AccumulatorResetFactor {
		d.substepAccumulator = 0
	} else {
		d.substepAccumulator %= 1 << 16
	}
}

// Direction reports the latched direction for the current segment.
func (d *DDA) Direction() bool { return d.direction }

// Tick advances the accumulator by one DDA clock tick and reports
// whether a step pulse should fire on this tick.
func (d *DDA) Tick() bool {
	if d.steps == 0 {
		return false
	}
	d.substepAccumulator += d.substepIncrement
	if d.substepAccumulator>>16 != 0 {
		d.substepAccumulator &= 0xFFFF
		d.steps--
		return true
	}
	return false
}

// Done reports whether this segment's steps have all been emitted.
func (d *DDA) Done() bool { return d.steps == 0 }

// Engine holds one DDA per motor and the backend that actually toggles
// direction/step GPIOs, plus the HI-priority scheduling glue.
type Engine struct {
	dda     [MotorCount]DDA
	backend Backend
	timer   core.Timer
	period  uint32
	running bool

	stepCount uint64
}

// NewEngine constructs a stepgen engine bound to a hardware or simulator
// backend, and wires its step counter into core's debug timing dump.
func NewEngine(backend Backend) *Engine {
	e := &Engine{backend: backend}
	e.timer.Priority = core.PriorityHI
	e.timer.Handler = e.onTick
	core.SetStepCountSource(func() uint64 { return e.stepCount })
	return e
}

// onTick is the HI-priority timer handler: it runs one DDA tick and
// reschedules itself for the next period as long as the segment has
// steps remaining.
func (e *Engine) onTick(t *core.Timer) uint8 {
	e.tick()
	if e.AllDone() {
		e.running = false
		return core.SF_DONE
	}
	t.WakeTime += e.period
	return core.SF_RESCHEDULE
}

// Start begins (or resumes) the DDA clock for the currently loaded
// segment, scheduling the first tick `period` ticks from now.
func (e *Engine) Start(now uint32) {
	if e.running {
		return
	}
	e.running = true
	e.timer.WakeTime = now + e.period
	core.ScheduleTimer(&e.timer)
}

// SetPeriod sets the DDA clock period (in timer ticks) shared by all
// motors for the segment currently loading.
func (e *Engine) SetPeriod(ticks uint32) {
	e.period = ticks
}

// LoadSegment arms all motors for a new segment: steps[i] is the signed
// step count for motor i this segment, ticks is the segment's duration
// in DDA clock ticks.
func (e *Engine) LoadSegment(steps [MotorCount]int32, ticks uint32) {
	for i := range e.dda {
		e.dda[i].LoadSegment(steps[i], ticks)
		e.backend.MotorDirection(i, e.dda[i].Direction())
	}
	e.period = ticks
}

// MotorEnable enables or disables a motor's driver.
func (e *Engine) MotorEnable(motor int, on bool) error {
	return e.backend.MotorEnable(motor, on)
}

// tick is invoked once per DDA clock period from HI-priority context: it
// advances every motor's accumulator and fires any due step pulses.
func (e *Engine) tick() {
	for i := range e.dda {
		if e.dda[i].Tick() {
			e.backend.StepPulse(i)
			e.stepCount++
		}
	}
}

// StepCount returns the cumulative number of step pulses emitted across
// all motors since the engine was created.
func (e *Engine) StepCount() uint64 { return e.stepCount }

// RunSegment drives every motor's DDA to completion for the currently
// loaded segment, ticking synchronously rather than through the
// timer-scheduled onTick path: LoadSegment's ticks parameter is the raw
// DDA tick count for the segment, not a realtime clock period, so a
// foreground pump loop that models each runtime segment as one burst of
// step pulses ticks it out directly instead of going through Start.
func (e *Engine) RunSegment() {
	for !e.AllDone() {
		e.tick()
	}
}

// AllDone reports whether every motor has emitted all steps for the
// currently loaded segment.
func (e *Engine) AllDone() bool {
	for i := range e.dda {
		if !e.dda[i].Done() {
			return false
		}
	}
	return true
}
