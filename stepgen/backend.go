package stepgen

// Backend is the hardware abstraction the DDA engine drives: one
// implementation per target (host simulator, RP2040 PIO). Method names
// follow the motion core's own terminology for these operations rather
// than the teacher's queued-command wire names, since there is no longer
// a wire boundary between the engine and the backend.
type Backend interface {
	// MotorEnable enables or disables the driver for the given motor index.
	MotorEnable(motor int, on bool) error
	// MotorDirection sets the latched direction pin for the given motor.
	MotorDirection(motor int, forward bool)
	// StepPulse emits a single step pulse on the given motor.
	StepPulse(motor int)
}
