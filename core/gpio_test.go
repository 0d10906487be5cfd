package core

import "testing"

// MockGPIODriver is a test implementation of GPIODriver
type MockGPIODriver struct {
	pins map[GPIOPin]bool
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins: make(map[GPIOPin]bool),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullUp(pin GPIOPin) error {
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullDown(pin GPIOPin) error {
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	m.pins[pin] = value
	return nil
}

func (m *MockGPIODriver) GetPin(pin GPIOPin) (bool, error) {
	return m.pins[pin], nil
}

func (m *MockGPIODriver) ReadPin(pin GPIOPin) bool {
	return m.pins[pin]
}

func TestDigitalOutBasic(t *testing.T) {
	mockDriver := NewMockGPIODriver()
	SetGPIODriver(mockDriver)

	testOID := uint8(1)
	testPin := GPIOPin(25)

	dout, err := ConfigureDigitalOut(testOID, testPin, true, false, 0)
	if err != nil {
		t.Fatalf("ConfigureDigitalOut failed: %v", err)
	}
	if dout.Pin != testPin {
		t.Errorf("Expected pin %d, got %d", testPin, dout.Pin)
	}
	if dout.Flags&DF_ON == 0 {
		t.Errorf("Expected DF_ON set after initial=true")
	}
}

func TestDigitalOutSetImmediate(t *testing.T) {
	mockDriver := NewMockGPIODriver()
	SetGPIODriver(mockDriver)

	dout, err := ConfigureDigitalOut(2, GPIOPin(4), false, false, 0)
	if err != nil {
		t.Fatalf("ConfigureDigitalOut failed: %v", err)
	}

	if err := dout.SetImmediate(true); err != nil {
		t.Fatalf("SetImmediate(true) failed: %v", err)
	}
	if state, _ := mockDriver.GetPin(dout.Pin); !state {
		t.Errorf("Expected pin high after SetImmediate(true)")
	}

	if err := dout.SetImmediate(false); err != nil {
		t.Fatalf("SetImmediate(false) failed: %v", err)
	}
	if state, _ := mockDriver.GetPin(dout.Pin); state {
		t.Errorf("Expected pin low after SetImmediate(false)")
	}
}

func TestGPIODriverBasic(t *testing.T) {
	mockDriver := NewMockGPIODriver()
	SetGPIODriver(mockDriver)

	pin := GPIOPin(25)
	if err := mockDriver.ConfigureOutput(pin); err != nil {
		t.Fatalf("ConfigureOutput failed: %v", err)
	}

	if err := mockDriver.SetPin(pin, true); err != nil {
		t.Fatalf("SetPin(true) failed: %v", err)
	}
	if state, err := mockDriver.GetPin(pin); err != nil || !state {
		t.Errorf("Expected pin to be high, got low (err=%v)", err)
	}

	if err := mockDriver.SetPin(pin, false); err != nil {
		t.Fatalf("SetPin(false) failed: %v", err)
	}
	if state, err := mockDriver.GetPin(pin); err != nil || state {
		t.Errorf("Expected pin to be low, got high (err=%v)", err)
	}
}
