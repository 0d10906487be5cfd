package core

// Priority tags a Timer as belonging to the DDA/step-ISR tier (PriorityHI)
// or the EXEC/prep/background tier (PriorityLO). TimerDispatch always
// drains every due HI timer before touching a due LO one, modeling a
// non-preemptible hardware interrupt level on a single dispatch loop.
type Priority uint8

const (
	PriorityHI Priority = 0
	PriorityLO Priority = 1
)

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Priority Priority
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1

	// Timer in past threshold - if timer is more than 100ms behind, report error
	// At 12MHz, 100ms = 1,200,000 ticks
	TimerPastThreshold = 1200000
)

var (
	timerListHI     *Timer
	timerListLO     *Timer
	currentTime     uint32
	timerPastErrors uint32 // Count of "timer in past" errors
)

func listFor(p Priority) **Timer {
	if p == PriorityHI {
		return &timerListHI
	}
	return &timerListLO
}

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	// Insert timer in sorted order
	// Implementation similar to Klipper's sched_add_timer
	insertTimer(t)
}

// insertTimer inserts a timer in sorted order by WakeTime, within its
// priority's list. Uses signed comparison to handle 32-bit wrap-around
// correctly.
func insertTimer(t *Timer) {
	list := listFor(t.Priority)

	// Use signed comparison: int32(a - b) < 0 means a is before b
	// This handles wrap-around correctly within half the 32-bit range (~35 min at 1MHz)
	if *list == nil || int32(t.WakeTime-(*list).WakeTime) < 0 {
		t.Next = *list
		*list = t
		return
	}

	current := *list
	for current.Next != nil && int32(current.Next.WakeTime-t.WakeTime) < 0 {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// dispatchList drains every timer in list that is due, reporting whether a
// shutdown was triggered (in which case the caller must stop immediately).
func dispatchList(list **Timer) (shutdown bool) {
	for *list != nil && int32(currentTime-(*list).WakeTime) >= 0 {
		timer := *list
		*list = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references

		// Check for "timer in past" condition - timer is too far behind.
		// This indicates the MCU can't keep up with requested step rate.
		timeDiff := int32(currentTime - timer.WakeTime)
		if timeDiff > int32(TimerPastThreshold) {
			timerPastErrors++
			DebugPrintln("[SCHED] TIMER IN PAST! Shutting down...")
			RecordTiming(EvtTimerPast, 0, currentTime, timer.WakeTime, uint32(timeDiff))
			TryShutdown("Rescheduled timer in the past")
			return true
		}

		result := timer.Handler(timer)
		if result == SF_RESCHEDULE {
			insertTimer(timer)
		}

		// Re-read current time after each timer handler: handlers may block
		// (e.g. a PIO FIFO full write), advancing real time. Without this,
		// all subsequent timers would appear due even if scheduled later.
		currentTime = GetTime()
	}
	return false
}

// TimerDispatch processes due timers. All due HI-priority (DDA tick/load)
// timers run to completion before any due LO-priority (EXEC/prep/reports)
// timer is touched, matching a two-level interrupt priority scheme.
func TimerDispatch() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if dispatchList(&timerListHI) {
		return
	}
	dispatchList(&timerListLO)
}

// GetTimerPastErrors returns the count of timer-in-past errors
func GetTimerPastErrors() uint32 {
	return timerPastErrors
}

// ResetTimerPastErrors resets the error counter
func ResetTimerPastErrors() {
	timerPastErrors = 0
}
