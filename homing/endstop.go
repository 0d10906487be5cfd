package homing

import "tinygmc/core"

// Endstop flags
const (
	ESFPinHigh = 1 << 0 // Expected pin state when triggered (1=high, 0=low)
	ESFHoming  = 1 << 1 // Currently homing
)

// Endstop is a GPIO-sampled sensor used to stop a homing move. Sampling
// runs on a timer rather than a hardware interrupt so the same code works
// whether the backing pin is a real GPIO or a simulator.
type Endstop struct {
	OID           uint8
	Pin           core.GPIOPin
	Flags         uint8
	Timer         core.Timer
	SampleTime    uint32
	SampleCount   uint8
	TriggerCount  uint8
	RestTime      uint32
	NextWake      uint32
	TriggerSync   *TriggerSync
	TriggerReason uint8
}

var endstops = make(map[uint8]*Endstop)

// ConfigureEndstop creates an endstop input on pin, identified by oid.
func ConfigureEndstop(oid uint8, pin core.GPIOPin, pullUp bool) (*Endstop, error) {
	es := &Endstop{OID: oid, Pin: pin}
	var err error
	if pullUp {
		err = core.MustGPIO().ConfigureInputPullUp(pin)
	} else {
		err = core.MustGPIO().ConfigureInputPullDown(pin)
	}
	if err != nil {
		return nil, err
	}
	endstops[oid] = es
	return es, nil
}

// Home arms the endstop to watch for pinValue (1=high, 0=low), sampling
// every sampleTicks for sampleCount consecutive confirmations before
// firing ts with triggerReason. restTicks is the first-stage poll interval
// while no candidate trigger is seen, and polling returns to it when a
// candidate fails its confirmation samples. sampleCount == 0 disarms the
// endstop.
func (es *Endstop) Home(clock, sampleTicks uint32, sampleCount uint8, restTicks uint32, pinValue bool, ts *TriggerSync, triggerReason uint8) {
	es.Timer.Next = nil

	if sampleCount == 0 {
		es.TriggerSync = nil
		es.Flags = 0
		return
	}

	es.SampleTime = sampleTicks
	es.SampleCount = sampleCount
	es.TriggerCount = sampleCount
	es.RestTime = restTicks
	es.TriggerSync = ts
	es.TriggerReason = triggerReason
	es.Flags = ESFHoming
	if pinValue {
		es.Flags |= ESFPinHigh
	}

	es.Timer.Priority = core.PriorityHI
	es.Timer.WakeTime = clock
	es.Timer.Handler = endstopEvent
	core.ScheduleTimer(&es.Timer)
}

// QueryState reports whether the endstop is currently homing-armed and the
// next time it will sample.
func (es *Endstop) QueryState() (homing bool, nextWake uint32, pinValue bool) {
	return (es.Flags & ESFHoming) != 0, es.NextWake, core.MustGPIO().ReadPin(es.Pin)
}

func findEndstop(t *core.Timer) *Endstop {
	for _, esPtr := range endstops {
		if esPtr != nil && &esPtr.Timer == t {
			return esPtr
		}
	}
	return nil
}

// endstopEvent is the first-stage poll: looks for a single sample matching
// the expected trigger state before moving to oversampling.
func endstopEvent(t *core.Timer) uint8 {
	es := findEndstop(t)
	if es == nil {
		return core.SF_DONE
	}

	pinHigh := core.MustGPIO().ReadPin(es.Pin)
	expectHigh := (es.Flags & ESFPinHigh) != 0
	triggered := pinHigh == expectHigh

	nextWake := t.WakeTime + es.RestTime
	if !triggered {
		t.WakeTime = nextWake
		return core.SF_RESCHEDULE
	}

	es.NextWake = nextWake
	t.Handler = endstopOversampleEvent
	return endstopOversampleEvent(t)
}

// endstopOversampleEvent confirms a candidate trigger with SampleCount
// consecutive matching samples before actually firing the trigger sync.
func endstopOversampleEvent(t *core.Timer) uint8 {
	es := findEndstop(t)
	if es == nil {
		return core.SF_DONE
	}

	pinHigh := core.MustGPIO().ReadPin(es.Pin)
	expectHigh := (es.Flags & ESFPinHigh) != 0
	triggered := pinHigh == expectHigh

	if !triggered {
		t.Handler = endstopEvent
		t.WakeTime = es.NextWake
		es.TriggerCount = es.SampleCount
		return core.SF_RESCHEDULE
	}

	count := es.TriggerCount - 1
	if count == 0 {
		if es.TriggerSync != nil {
			DoTrigger(es.TriggerSync, es.TriggerReason)
		}
		return core.SF_DONE
	}

	es.TriggerCount = count
	t.WakeTime += es.SampleTime
	return core.SF_RESCHEDULE
}

// GetEndstop retrieves a configured endstop by OID.
func GetEndstop(oid uint8) (*Endstop, bool) {
	es, exists := endstops[oid]
	return es, exists
}
