// Package homing provides the trigger-synchronization and endstop hooks the
// motion core exposes to a homing/probing cycle. The cycle itself (seek,
// back-off, re-seek, set-position) lives above this package and is out of
// scope here; this package only guarantees a motor's motion can be stopped
// the instant a configured sensor condition is met.
package homing

import "tinygmc/core"

// TriggerSync flags
const (
	TSFCanTrigger = 1 << 0 // Trigger is enabled
	TSFTriggered  = 1 << 1 // Trigger has fired
)

// TriggerSignal is a callback registered with a TriggerSync.
type TriggerSignal struct {
	Callback func(reason uint8)
	Next     *TriggerSignal
}

// TriggerSync coordinates multiple endstops during a single homing move:
// whichever one trips first fires every registered signal so the other
// axes in the same move stop immediately too.
type TriggerSync struct {
	OID           uint8
	Flags         uint8
	TriggerReason uint8
	ExpireReason  uint8
	ReportTicks   uint32
	ReportTimer   core.Timer
	ExpireTimer   core.Timer
	Signals       *TriggerSignal
}

var triggerSyncs = make(map[uint8]*TriggerSync)

// NewTriggerSync creates (or resets) a trigger sync session identified by
// oid. expireReason is the reason code reported if SetTimeout's deadline
// elapses before a trigger. Resetting an existing session drops the
// signals registered on it; no periodic status report is armed.
func NewTriggerSync(oid uint8, expireReason uint8) *TriggerSync {
	ts, exists := triggerSyncs[oid]
	if !exists {
		ts = &TriggerSync{OID: oid}
		triggerSyncs[oid] = ts
	}
	ts.Signals = nil
	ts.Flags = TSFCanTrigger
	ts.TriggerReason = 0
	ts.ExpireReason = expireReason
	return ts
}

// SetTimeout arms an expiration timer: if no trigger occurs by clock, the
// session fires with ExpireReason.
func (ts *TriggerSync) SetTimeout(clock uint32) {
	ts.ExpireTimer.Priority = core.PriorityLO
	ts.ExpireTimer.WakeTime = clock
	ts.ExpireTimer.Handler = triggerSyncExpireEvent
	core.ScheduleTimer(&ts.ExpireTimer)
}

// Trigger manually fires the session with reason (used by a probe command
// or an immediate abort, as opposed to an endstop sensor edge).
func (ts *TriggerSync) Trigger(reason uint8) {
	DoTrigger(ts, reason)
}

// AddSignal registers callback to run when the session fires. Returns the
// signal so the caller can track it, though there is no RemoveSignal: a
// session is single-use, created fresh per homing move.
func (ts *TriggerSync) AddSignal(callback func(reason uint8)) *TriggerSignal {
	signal := &TriggerSignal{Callback: callback, Next: ts.Signals}
	ts.Signals = signal
	return signal
}

// DoTrigger fires a trigger-sync session. Called by an Endstop the instant
// it confirms a trigger condition; safe to call from HI-priority context.
func DoTrigger(ts *TriggerSync, reason uint8) {
	if (ts.Flags & TSFCanTrigger) == 0 {
		return
	}
	ts.Flags &^= TSFCanTrigger
	ts.Flags |= TSFTriggered
	ts.TriggerReason = reason

	signal := ts.Signals
	for signal != nil {
		if signal.Callback != nil {
			signal.Callback(reason)
		}
		signal = signal.Next
	}
}

func triggerSyncExpireEvent(t *core.Timer) uint8 {
	var ts *TriggerSync
	for _, tsPtr := range triggerSyncs {
		if tsPtr != nil && &tsPtr.ExpireTimer == t {
			ts = tsPtr
			break
		}
	}
	if ts == nil {
		return core.SF_DONE
	}
	DoTrigger(ts, ts.ExpireReason)
	return core.SF_DONE
}

// State reports the current session state (for an "sr" homing status line).
func (ts *TriggerSync) State() (canTrigger bool, triggerReason uint8) {
	return (ts.Flags & TSFCanTrigger) != 0, ts.TriggerReason
}

// GetTriggerSync retrieves a trigger sync session by OID.
func GetTriggerSync(oid uint8) (*TriggerSync, bool) {
	ts, exists := triggerSyncs[oid]
	return ts, exists
}
