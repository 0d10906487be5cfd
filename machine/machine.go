// Package machine implements the canonical machine singleton: the
// authoritative MODEL-context machine state (coordinate system offsets,
// per-axis config, homed flags, cycle/motion/hold state), the
// set_model_target position-resolution pipeline, soft-limit testing,
// and the feedhold/queue-flush/cycle-start sequencing and program-end
// reset logic. Adapted from the teacher's standalone gcode.Interpreter,
// generalized from its 4-axis XYZE model to the 6-axis XYZABC model and
// from direct execution to the MODEL/PLANNER/RUNTIME split this firmware
// requires.
package machine

import (
	"fmt"
	"math"

	"tinygmc/core"
	"tinygmc/gcodestate"
	"tinygmc/kinematics"
)

// MachineState is the cycle/motion/hold state of the whole machine, as
// reported by the "stat" field of a status report.
type MachineState uint8

const (
	StateInit MachineState = iota
	StateReady
	StateAlarm
	StateStop
	StateEnd
	StateRun
	StateHold
	StateProbe
	StateCycle
	StateHoming
	StateJog
	StateInterlock
	StateShutdown
)

// asyncFlags holds the hold/queue-flush/cycle-start request flags (plain
// bools, one writer per flag) that a protocol handler (running in
// foreground context) sets, and the cycle-control loop (also foreground,
// but polled between move dispatches) clears after acting on them.
type asyncFlags struct {
	holdRequested       bool
	queueFlushRequested bool
	cycleStartRequested bool
}

// Machine is the canonical machine singleton (cm). All exported methods
// that read or write MODEL state are foreground-only; nothing here may
// be called from stepgen's HI/LO priority context.
type Machine struct {
	State MachineState

	GM  gcodestate.GCodeState // active model (gm)
	GMX gcodestate.GMX        // extended model: offsets and stored positions

	Kin *kinematics.Kinematics

	Homed [gcodestate.AxisCount]bool

	async asyncFlags

	// magic brackets the struct to catch stray writes past its bounds
	// when running on a target without memory protection.
	magicStart uint32
	magicEnd   uint32
}

const magicNumber = 0x12345678

// New builds a Machine with default modal state and the given kinematics
// configuration. It registers itself as core's shutdown hook so a DDA
// timer-past error or other ISR-detected corruption reaches MODEL state
// immediately, the way core/commands.go's emergency-stop path reaches the
// teacher's interpreter.
func New(kin *kinematics.Kinematics) *Machine {
	m := &Machine{
		State:      StateReady,
		GM:         gcodestate.Default(),
		GMX:        gcodestate.NewGMX(),
		Kin:        kin,
		magicStart: magicNumber,
		magicEnd:   magicNumber,
	}
	core.SetShutdownHook(m.HardAlarm)
	return m
}

// CheckMagic verifies the struct's corruption-detection brackets,
// returning an error (equivalent to a hard alarm) if either has been
// overwritten.
func (m *Machine) CheckMagic() error {
	if m.magicStart != magicNumber || m.magicEnd != magicNumber {
		return fmt.Errorf("machine: magic number corrupted (memory overrun)")
	}
	return nil
}

// SetModelTarget resolves a commanded position into absolute machine
// coordinates, XYZ axes first and then ABC. An ABC value goes through
// Kin.ConvertTarget, which in radius mode uses only that axis's
// configured Radius. params[i] is the word value for axis i, already
// unit-converted by the caller; absolute or incremental distance mode is
// applied here. present[i] reports whether that axis's word appeared in
// the command.
func (m *Machine) SetModelTarget(params [gcodestate.AxisCount]float64, present [gcodestate.AxisCount]bool) [gcodestate.AxisCount]float64 {
	target := m.GMX.AbsoluteMachinePosition

	offset := m.activeOffset()

	for _, axis := range []int{gcodestate.AxisX, gcodestate.AxisY, gcodestate.AxisZ} {
		if !present[axis] {
			continue
		}
		if m.GM.Distance == gcodestate.DistanceAbsolute {
			target[axis] = params[axis] + offset[axis] + m.GMX.OriginOffset[axis]
		} else {
			target[axis] += params[axis]
		}
	}

	for _, axis := range []int{gcodestate.AxisA, gcodestate.AxisB, gcodestate.AxisC} {
		if !present[axis] {
			continue
		}
		value := params[axis]
		if m.Kin != nil {
			converted, drive := m.Kin.ConvertTarget(axis, value)
			if !drive {
				continue
			}
			value = converted
		}
		if m.GM.Distance == gcodestate.DistanceAbsolute {
			target[axis] = value + offset[axis] + m.GMX.OriginOffset[axis]
		} else {
			target[axis] += value
		}
	}

	return target
}

// activeOffset returns the work-offset vector for the currently selected
// coordinate system (G54-G59).
func (m *Machine) activeOffset() [gcodestate.AxisCount]float64 {
	return m.GMX.CoordOffsets[m.GM.CoordSystem]
}

// CheckSoftLimits reports whether target violates any axis's configured
// travel limits, skipping any axis whose min or max is set to
// kinematics.DisableSoftLimit, and skipping any axis that has not been
// homed (an un-homed axis has no trustworthy machine-coordinate origin).
func (m *Machine) CheckSoftLimits(target [gcodestate.AxisCount]float64) error {
	if m.Kin == nil {
		return nil
	}
	if axis, violated := m.Kin.CheckLimits(target, m.Homed); violated {
		return fmt.Errorf("machine: target violates soft limit on axis %s", gcodestate.AxisNames[axis])
	}
	return nil
}

// --- feedhold / queue-flush / cycle-start sequencing ---
//
// Table (per the firmware's cycle-control loop, polled once per
// foreground iteration):
//
//	request       | valid states        | effect
//	hold          | CYCLE, RUN           | State -> HOLD; runtime.RequestFeedhold()
//	queue flush   | HOLD (settled)       | planner ring cleared back to r==w
//	cycle start   | HOLD (settled)       | State -> RUN; runtime.CycleStart()
//
// Flush and cycle-start requests made before HOLD has settled are
// latched in asyncFlags and re-evaluated on the next poll rather than
// dropped, so a double-tap doesn't get lost.

// RequestHold latches a feedhold request if the machine is actively
// moving.
func (m *Machine) RequestHold() {
	if m.State == StateRun || m.State == StateCycle {
		m.async.holdRequested = true
	}
}

// RequestQueueFlush latches a queue-flush request.
func (m *Machine) RequestQueueFlush() {
	m.async.queueFlushRequested = true
}

// RequestCycleStart latches a cycle-start (resume) request.
func (m *Machine) RequestCycleStart() {
	m.async.cycleStartRequested = true
}

// PollRequests is called once per foreground iteration to act on any
// latched async requests given the current state and whether the
// runtime's hold sequence has reached HOLD (settled). It returns
// flushNow=true exactly once, the call that clears a pending queue-flush
// request, so the caller (which owns the planner.Ring) knows this is the
// moment to actually drain it.
func (m *Machine) PollRequests(holdSettled bool, runtimeRequestHold func(), runtimeQueueFlushAllowed func() bool, runtimeCycleStart func() bool) (flushNow bool) {
	if m.async.holdRequested {
		m.async.holdRequested = false
		m.State = StateHold
		runtimeRequestHold()
	}

	if m.async.queueFlushRequested {
		if m.State == StateHold && holdSettled && runtimeQueueFlushAllowed() {
			m.async.queueFlushRequested = false
			flushNow = true
		}
	}

	if m.async.cycleStartRequested {
		if m.State == StateHold && holdSettled {
			m.async.cycleStartRequested = false
			if runtimeCycleStart() {
				m.State = StateRun
			}
		}
	}

	return flushNow
}

// HoldRequested, QueueFlushRequested, CycleStartRequested expose the
// latched flags for callers that need to branch on them directly (e.g.
// the report layer's qr throttling).
func (m *Machine) HoldRequested() bool       { return m.async.holdRequested }
func (m *Machine) QueueFlushRequested() bool { return m.async.queueFlushRequested }
func (m *Machine) CycleStartRequested() bool { return m.async.cycleStartRequested }

// ProgramEnd implements M2/M30: resets modal state to power-on defaults
// and, per this firmware's intentional deviation from NIST RS274NGC,
// cancels any active G92 offset (equivalent to an implicit G92.1) rather
// than leaving it in effect across program boundaries — since leaving a
// stale origin offset active after a program ends has repeatedly proven
// to be the more dangerous default for the machines this runs on.
func (m *Machine) ProgramEnd() {
	m.GM = gcodestate.Default()
	for i := range m.GMX.OriginOffset {
		m.GMX.OriginOffset[i] = 0
	}
	m.State = StateEnd
}

// HardAlarm transitions the machine into the unrecoverable SHUTDOWN
// state. It is registered as core's shutdown hook (see New) so a DDA
// timer-past error or other ISR-detected corruption reaches MODEL state
// immediately; it also latches core's shutdown flag itself so callers
// that detect a hard fault directly (without going through
// core.TryShutdown first) still get the one-time latch semantics. It also
// returns all digital outputs to their default states.
func (m *Machine) HardAlarm(reason string) {
	core.TryShutdown(reason)
	m.State = StateShutdown
	core.ShutdownAllDigitalOut()
}

// SoftAlarm transitions into ALARM, recoverable only by an explicit
// {clear:true} request from the external interface.
func (m *Machine) SoftAlarm() {
	if m.State != StateShutdown {
		m.State = StateAlarm
	}
}

// ClearAlarm resolves an ALARM state back to READY. A SHUTDOWN state
// cannot be cleared this way; it requires a restart.
func (m *Machine) ClearAlarm() error {
	if m.State == StateShutdown {
		return fmt.Errorf("machine: cannot clear a hardware shutdown")
	}
	if m.State == StateAlarm {
		m.State = StateReady
	}
	return nil
}

// DistanceTo returns the Euclidean length of the move from the current
// extended-model position to target, over the linear XYZ axes only.
func (m *Machine) DistanceTo(target [gcodestate.AxisCount]float64) float64 {
	var sum float64
	for _, axis := range []int{gcodestate.AxisX, gcodestate.AxisY, gcodestate.AxisZ} {
		d := target[axis] - m.GMX.AbsoluteMachinePosition[axis]
		sum += d * d
	}
	return math.Sqrt(sum)
}
