//go:build rp2040

package stepgen

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// stepperProgram pulses a motor's step pin and sets its direction pin on
// every command word pulled from the PIO FIFO. Command word:
//
//	bits 0-15:  pulse count minus one (jmp x-- tests X before it
//	            decrements, so 0 gives one pulse)
//	bits 16-23: inter-pulse delay cycles
//	bit 24:     direction (the next bit shifted out, written to the
//	            direction pin via OUT)
func stepperProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestX, 16).Encode(),
		asm.Out(rp2pio.OutDestY, 8).Encode(),
		asm.Out(rp2pio.OutDestPins, 1).Encode(),
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Encode(),
		asm.Jmp(5, rp2pio.JmpYNZeroDec).Encode(),
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),
	}
}

// rp2040Motor is one motor's PIO state machine and pin pair.
type rp2040Motor struct {
	sm        rp2pio.StateMachine
	stepPin   machine.Pin
	dirPin    machine.Pin
	direction bool
	enablePin machine.Pin
	hasEnable bool
}

// RP2040Backend drives MotorCount motors over the RP2040's PIO blocks,
// one state machine per motor, so step pulses are generated in hardware
// and immune to Go scheduling jitter.
type RP2040Backend struct {
	pio    *rp2pio.PIO
	motors [MotorCount]rp2040Motor
}

// NewRP2040Backend builds the backend against the given PIO block (0 or
// 1); motors are attached with ConfigureMotor before use.
func NewRP2040Backend(pioNum uint8) *RP2040Backend {
	var hw *rp2pio.PIO
	if pioNum == 0 {
		hw = rp2pio.PIO0
	} else {
		hw = rp2pio.PIO1
	}
	return &RP2040Backend{pio: hw}
}

// ConfigureMotor claims a state machine and pins for one motor index.
func (b *RP2040Backend) ConfigureMotor(motor int, smNum uint8, stepPin, dirPin machine.Pin, enablePin machine.Pin, hasEnable bool) error {
	m := &b.motors[motor]
	m.sm = b.pio.StateMachine(smNum)
	m.stepPin = stepPin
	m.dirPin = dirPin
	m.enablePin = enablePin
	m.hasEnable = hasEnable
	m.sm.TryClaim()

	program := stepperProgram()
	offset, err := b.pio.AddProgram(program, 0)
	if err != nil {
		return err
	}

	m.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	m.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	if hasEnable {
		m.enablePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(m.stepPin, 1)
	cfg.SetOutPins(m.dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1000, 0)

	m.sm.Init(offset, cfg)
	m.sm.SetPindirsConsecutive(m.stepPin, 1, true)
	m.sm.SetPindirsConsecutive(m.dirPin, 1, true)
	m.sm.SetPinsConsecutive(m.stepPin, 1, false)
	m.sm.SetPinsConsecutive(m.dirPin, 1, false)
	m.sm.SetEnabled(true)
	return nil
}

func (b *RP2040Backend) MotorEnable(motor int, on bool) error {
	m := &b.motors[motor]
	if m.hasEnable {
		m.enablePin.Set(!on) // most stepper drivers enable on a low signal
	}
	return nil
}

func (b *RP2040Backend) MotorDirection(motor int, forward bool) {
	b.motors[motor].direction = forward
}

func (b *RP2040Backend) StepPulse(motor int) {
	m := &b.motors[motor]
	cmd := uint32(0) | (uint32(1) << 16)
	if m.direction {
		cmd |= 1 << 24
	}
	for m.sm.IsTxFIFOFull() {
	}
	m.sm.TxPut(cmd)
}
