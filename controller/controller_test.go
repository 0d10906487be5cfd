package controller

import (
	"strings"
	"testing"

	"tinygmc/config"
	"tinygmc/machine"
	"tinygmc/stepgen"
)

func newTestController() *Controller {
	cfg := config.Default6AxisMill()
	return New(cfg, stepgen.NewSimBackend())
}

func TestHandleLineQueuesMove(t *testing.T) {
	c := newTestController()
	resp := c.HandleLine("G1 X10 Y20 F3000")
	if len(resp) == 0 {
		t.Fatal("expected a response line")
	}
	blocks := c.Ring.Queued()
	if len(blocks) != 1 {
		t.Fatalf("expected 1 queued block, got %d", len(blocks))
	}
	if blocks[0].Target[0] != 10 || blocks[0].Target[1] != 20 {
		t.Errorf("unexpected target: %+v", blocks[0].Target)
	}
}

func TestHandleByteFeedhold(t *testing.T) {
	c := newTestController()
	c.Machine.State = machine.StateRun
	if !c.HandleByte(ByteFeedhold) {
		t.Fatal("expected feedhold byte to be consumed")
	}
	if !c.Machine.HoldRequested() {
		t.Error("expected hold request latched")
	}
}

func TestG92SetsOriginOffset(t *testing.T) {
	c := newTestController()
	c.Machine.GMX.AbsoluteMachinePosition[0] = 50
	c.HandleLine("G92 X0")
	if c.Machine.GMX.OriginOffset[0] != 50 {
		t.Errorf("expected origin offset 50, got %v", c.Machine.GMX.OriginOffset[0])
	}
}

func TestG921CancelsOffset(t *testing.T) {
	c := newTestController()
	c.Machine.GMX.OriginOffset[0] = 5
	c.HandleLine("G92.1")
	if c.Machine.GMX.OriginOffset[0] != 0 {
		t.Error("expected G92.1 to cancel the origin offset")
	}
}

func TestSoftLimitTripRejectsMove(t *testing.T) {
	c := newTestController()
	c.Machine.Homed[0] = true
	resp := c.HandleLine("G1 X10000 Y0")
	if !strings.Contains(string(resp), `"er"`) {
		t.Errorf("expected an exception report for soft-limit violation, got %s", resp)
	}
}
