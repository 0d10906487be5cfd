package stepgen

// StepCorrectionMax bounds how much following error Prep will fold into
// a single segment's step count; larger residuals are deferred to later
// segments instead of producing a visible jump.
const StepCorrectionMax = 2

// StepCorrectionThreshold is the minimum accumulated error, in steps,
// before Prep bothers correcting it at all.
const StepCorrectionThreshold = 0.2

// StepCorrectionHoldoff is the number of segments Prep waits after
// applying a correction before it will apply another one, so corrections
// don't oscillate.
const StepCorrectionHoldoff = 4

// Ownership tags which side of the single-word prep buffer handoff
// currently owns it: the EXEC/PREP stage writes a buffer then hands
// ownership to the loader; the loader (HI-priority) reads it, arms the
// DDA engine, then hands ownership back.
type Ownership uint8

const (
	OwnedByExec Ownership = iota
	OwnedByLoader
)

// PrepSegment is one prepared segment: per-motor integer step counts
// (fractional remainder folded in via following-error correction) plus
// the segment's duration in DDA clock ticks.
type PrepSegment struct {
	Steps  [MotorCount]int32
	Period uint32
}

// motorState tracks one motor's fractional position and following error
// across segments so that integer step counts sum exactly to the
// commanded floating-point travel over the life of a block (spec.md §8's
// exact integer-domain step-count conservation property).
type motorState struct {
	residual       float64 // unconverted fraction of a step, carried forward
	followingError float64
	holdoff        int
}

// Prep converts the runtime's floating per-axis deltas into integer
// step counts ready for the DDA engine, maintaining a single-word
// ownership flag so the HI-priority loader never reads a half-written
// buffer.
type Prep struct {
	owner   Ownership
	pending PrepSegment
	motors  [MotorCount]motorState

	stepsPerUnit [MotorCount]float64
}

// NewPrep builds a Prep stage; stepsPerUnit[i] converts motor i's native
// units (mm, or degrees for a rotary axis) into whole steps.
func NewPrep(stepsPerUnit [MotorCount]float64) *Prep {
	return &Prep{owner: OwnedByExec, stepsPerUnit: stepsPerUnit}
}

// Submit computes integer step counts for one segment from per-motor
// floating deltas and a segment duration in minutes, folding in
// following-error correction, and hands the result to the loader. It
// must only be called when Owner() == OwnedByExec.
func (p *Prep) Submit(deltaUnits [MotorCount]float64, segmentMinutes float64) {
	var seg PrepSegment
	seg.Period = periodTicks(segmentMinutes)

	for i := range p.motors {
		m := &p.motors[i]
		travel := deltaUnits[i]*p.stepsPerUnit[i] + m.residual

		whole := truncToInt(travel)
		m.residual = travel - float64(whole)

		if m.holdoff > 0 {
			m.holdoff--
		} else if abs64(m.followingError) >= StepCorrectionThreshold {
			correction := clampInt(truncToInt(m.followingError), -StepCorrectionMax, StepCorrectionMax)
			whole += correction
			m.followingError -= float64(correction)
			m.holdoff = StepCorrectionHoldoff
		}

		seg.Steps[i] = int32(whole)
	}

	p.pending = seg
	p.owner = OwnedByLoader
}

// Take retrieves the pending segment and returns ownership to the
// EXEC/PREP stage; must only be called when Owner() == OwnedByLoader.
func (p *Prep) Take() PrepSegment {
	seg := p.pending
	p.owner = OwnedByExec
	return seg
}

// Owner reports which side currently holds the prep buffer.
func (p *Prep) Owner() Ownership { return p.owner }

// NoteEncoderError records a newly observed gap between commanded and
// actual (encoder) position for motor i, in steps, to be folded into a
// future segment's correction.
func (p *Prep) NoteEncoderError(motor int, errorSteps float64) {
	p.motors[motor].followingError += errorSteps
}

func truncToInt(v float64) int {
	if v < 0 {
		return -int(-v)
	}
	return int(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// periodTicks converts a segment duration in minutes to DDA clock ticks
// at the engine's 12MHz tick rate (core.TimerFreq), assuming the DDA
// advances once per tick.
func periodTicks(minutes float64) uint32 {
	const ticksPerMinute = 12000000.0 * 60.0
	t := minutes * ticksPerMinute
	if t < 1 {
		return 1
	}
	return uint32(t)
}
