package controller

import "tinygmc/core"

// simGPIO is a minimal in-memory core.GPIODriver, registered by New when
// no target-specific driver has claimed the slot yet, so the host
// simulator's homing/endstop wiring runs the identical code path a real
// MCU would without any hardware attached.
type simGPIO struct {
	pins map[core.GPIOPin]bool
}

func newSimGPIO() *simGPIO {
	return &simGPIO{pins: make(map[core.GPIOPin]bool)}
}

func (g *simGPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.pins[pin] = false
	return nil
}

func (g *simGPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	if _, ok := g.pins[pin]; !ok {
		g.pins[pin] = false
	}
	return nil
}

func (g *simGPIO) ConfigureInputPullDown(pin core.GPIOPin) error {
	if _, ok := g.pins[pin]; !ok {
		g.pins[pin] = false
	}
	return nil
}

func (g *simGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.pins[pin] = value
	return nil
}

func (g *simGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	return g.pins[pin], nil
}

func (g *simGPIO) ReadPin(pin core.GPIOPin) bool {
	return g.pins[pin]
}

// Trigger forces a simulated pin high, letting host-side tooling or a
// test drive an endstop trip without real hardware.
func (g *simGPIO) Trigger(pin core.GPIOPin) {
	g.pins[pin] = true
}
