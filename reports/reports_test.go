package reports

import (
	"strings"
	"testing"
)

func TestStatusReportVerboseIncludesAllFields(t *testing.T) {
	sr := NewStatusReport(true)
	sr.Register("posx", func() (string, bool) { return "10.000", false })
	sr.Register("posy", func() (string, bool) { return "20.000", false })

	out := string(sr.Build())
	if !strings.Contains(out, `"posx":10.000`) || !strings.Contains(out, `"posy":20.000`) {
		t.Errorf("verbose report missing a field: %s", out)
	}

	// Verbose mode repeats every field even if unchanged.
	out2 := string(sr.Build())
	if !strings.Contains(out2, `"posx":10.000`) {
		t.Errorf("verbose report should repeat unchanged fields: %s", out2)
	}
}

func TestStatusReportFilteredOnlyIncludesChanges(t *testing.T) {
	x := "10.000"
	sr := NewStatusReport(false)
	sr.Register("posx", func() (string, bool) { return x, false })

	first := string(sr.Build())
	if !strings.Contains(first, "posx") {
		t.Errorf("first filtered report should include the new field: %s", first)
	}

	second := string(sr.Build())
	if strings.Contains(second, "posx") {
		t.Errorf("unchanged field should be filtered out: %s", second)
	}

	x = "11.000"
	third := string(sr.Build())
	if !strings.Contains(third, `"posx":11.000`) {
		t.Errorf("changed field should reappear: %s", third)
	}
}

func TestStatusReportASAPReset(t *testing.T) {
	sr := NewStatusReport(false)
	sr.Register("posx", func() (string, bool) { return "1.000", false })
	sr.Build()
	sr.ResetASAP()
	out := string(sr.Build())
	if !strings.Contains(out, "posx") {
		t.Errorf("expected field to reappear after ResetASAP: %s", out)
	}
}

func TestQueueReportThrottling(t *testing.T) {
	qr := NewQueueReport(false, 100)
	if !qr.ShouldSend(0) {
		t.Fatal("expected first send to be allowed")
	}
	qr.Build(0, 10, 0, 0)
	if qr.ShouldSend(50) {
		t.Error("expected send to be throttled before minInterval elapses")
	}
	if !qr.ShouldSend(150) {
		t.Error("expected send to be allowed after minInterval elapses")
	}
}

func TestExceptionReportAlwaysJSON(t *testing.T) {
	out := string(ExceptionReport(3, `bad "input"`))
	if !strings.HasPrefix(out, `{"er":{"st":3,"msg":"bad \"input\""}}`) {
		t.Errorf("unexpected exception report: %s", out)
	}
}
