// GPIO (General Purpose Input/Output) support for auxiliary digital
// outputs: spindle enable/direction, coolant/mist relays, and PWM-driven
// spindle speed control driven from M-code handlers in the machine package.
package core

// DigitalOut flags
const (
	DF_ON         = 1 << 0 // Current pin state (1=high, 0=low)
	DF_TOGGLING   = 1 << 1 // PWM mode active
	DF_CHECK_END  = 1 << 2 // Monitor max_duration
	DF_DEFAULT_ON = 1 << 3 // Default state for shutdown/power-loss
)

// DigitalOut represents a configured GPIO output pin, driven directly by
// Go method calls rather than a wire command.
type DigitalOut struct {
	OID   uint8   // Object ID
	Pin   GPIOPin // Hardware pin
	Flags uint8   // State flags (DF_*)

	Timer Timer // Main timer for scheduled updates and PWM

	OnDuration  uint32 // PWM on time in ticks
	OffDuration uint32 // PWM off time in ticks
	CycleTime   uint32 // Total PWM cycle time in ticks
	EndTime     uint32 // Time when max_duration expires

	MaxDuration uint32 // Maximum time pin can be in non-default state
}

// Global registry of digital outputs, keyed by caller-assigned OID.
var digitalOutputs = make(map[uint8]*DigitalOut)

// ConfigureDigitalOut creates and registers a digital output pin. defaultOn
// is the state the pin returns to on shutdown or after maxDuration elapses;
// maxDuration of 0 disables the safety cutoff (e.g. a direction pin that is
// safe to hold indefinitely).
func ConfigureDigitalOut(oid uint8, pin GPIOPin, initialOn, defaultOn bool, maxDuration uint32) (*DigitalOut, error) {
	dout := &DigitalOut{
		OID:         oid,
		Pin:         pin,
		MaxDuration: maxDuration,
	}
	if defaultOn {
		dout.Flags |= DF_DEFAULT_ON
	}

	if err := MustGPIO().ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := MustGPIO().SetPin(pin, initialOn); err != nil {
		return nil, err
	}
	if initialOn {
		dout.Flags |= DF_ON
	}

	digitalOutputs[oid] = dout
	return dout, nil
}

// SetImmediate sets the pin state now, cancelling any PWM toggling.
func (d *DigitalOut) SetImmediate(on bool) error {
	if err := MustGPIO().SetPin(d.Pin, on); err != nil {
		return err
	}
	if on {
		d.Flags |= DF_ON
	} else {
		d.Flags &^= DF_ON
	}
	d.Flags &^= DF_TOGGLING
	return nil
}

// SetPWMCycle sets the PWM cycle length in ticks. A following Queue call
// with onTicks in (0, cycleTicks) enables toggling between on and off.
func (d *DigitalOut) SetPWMCycle(cycleTicks uint32) {
	d.CycleTime = cycleTicks
}

// Queue schedules a state/duty-cycle change to take effect at clock. If a
// PWM cycle is configured via SetPWMCycle, onTicks is interpreted as the
// on-time within that cycle; otherwise it is a simple on (>0) / off (0)
// request.
func (d *DigitalOut) Queue(clock, onTicks uint32) {
	if d.CycleTime != 0 {
		d.OnDuration = onTicks
		d.OffDuration = d.CycleTime - onTicks
		if d.OnDuration > d.CycleTime {
			d.OnDuration = d.CycleTime
			d.OffDuration = 0
		}
		if d.OnDuration > 0 && d.OffDuration > 0 {
			d.Flags |= DF_TOGGLING
		} else {
			d.Flags &^= DF_TOGGLING
			if d.OnDuration > 0 {
				d.Flags |= DF_ON
			} else {
				d.Flags &^= DF_ON
			}
		}
	} else {
		if onTicks > 0 {
			d.Flags |= DF_ON
		} else {
			d.Flags &^= DF_ON
		}
		d.Flags &^= DF_TOGGLING
	}

	if d.MaxDuration != 0 {
		newStateOn := (d.Flags & DF_ON) != 0
		defaultOn := (d.Flags & DF_DEFAULT_ON) != 0
		if newStateOn != defaultOn {
			d.EndTime = clock + d.MaxDuration
			d.Flags |= DF_CHECK_END
		} else {
			d.Flags &^= DF_CHECK_END
		}
	}

	d.Timer.Next = nil
	d.Timer.Priority = PriorityLO
	d.Timer.WakeTime = clock
	d.Timer.Handler = digitalOutLoadEvent
	ScheduleTimer(&d.Timer)
}

func findDigitalOut(t *Timer) *DigitalOut {
	for _, dPtr := range digitalOutputs {
		if dPtr != nil && &dPtr.Timer == t {
			return dPtr
		}
	}
	return nil
}

func digitalOutLoadEvent(t *Timer) uint8 {
	dout := findDigitalOut(t)
	if dout == nil {
		return SF_DONE
	}

	if (dout.Flags & DF_TOGGLING) != 0 {
		if err := MustGPIO().SetPin(dout.Pin, true); err != nil {
			dout.Flags &^= DF_TOGGLING
			return SF_DONE
		}
		t.WakeTime = GetTime() + dout.OnDuration
		t.Handler = digitalOutToggleEvent
		return SF_RESCHEDULE
	}

	state := (dout.Flags & DF_ON) != 0
	if err := MustGPIO().SetPin(dout.Pin, state); err != nil {
		return SF_DONE
	}

	if (dout.Flags & DF_CHECK_END) != 0 {
		t.WakeTime = dout.EndTime
		t.Handler = digitalOutEndEvent
		return SF_RESCHEDULE
	}

	return SF_DONE
}

func digitalOutToggleEvent(t *Timer) uint8 {
	dout := findDigitalOut(t)
	if dout == nil {
		return SF_DONE
	}
	if (dout.Flags & DF_TOGGLING) == 0 {
		return SF_DONE
	}

	currentState := (dout.Flags & DF_ON) != 0
	newState := !currentState
	if err := MustGPIO().SetPin(dout.Pin, newState); err != nil {
		dout.Flags &^= DF_TOGGLING
		return SF_DONE
	}
	if newState {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}

	var nextDuration uint32
	if newState {
		nextDuration = dout.OnDuration
	} else {
		nextDuration = dout.OffDuration
	}

	currentTime := GetTime()
	if (dout.Flags&DF_CHECK_END) != 0 && (currentTime+nextDuration >= dout.EndTime) {
		t.WakeTime = dout.EndTime
		t.Handler = digitalOutLoadEvent
		return SF_RESCHEDULE
	}

	t.WakeTime = currentTime + nextDuration
	return SF_RESCHEDULE
}

func digitalOutEndEvent(t *Timer) uint8 {
	dout := findDigitalOut(t)
	if dout == nil {
		return SF_DONE
	}

	defaultState := (dout.Flags & DF_DEFAULT_ON) != 0
	if err := MustGPIO().SetPin(dout.Pin, defaultState); err != nil {
		return SF_DONE
	}
	if defaultState {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}
	dout.Flags &^= DF_TOGGLING | DF_CHECK_END
	return SF_DONE
}

// ShutdownDigitalOut returns a pin to its default state (called during shutdown).
func ShutdownDigitalOut(dout *DigitalOut) {
	defaultState := (dout.Flags & DF_DEFAULT_ON) != 0
	_ = MustGPIO().SetPin(dout.Pin, defaultState)
	if defaultState {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}
	dout.Flags &^= DF_TOGGLING | DF_CHECK_END
	dout.Timer.Next = nil
}

// ShutdownAllDigitalOut returns all pins to their default states. Called
// from the machine package's hard-alarm handler.
func ShutdownAllDigitalOut() {
	for _, dout := range digitalOutputs {
		if dout != nil {
			ShutdownDigitalOut(dout)
		}
	}
}
