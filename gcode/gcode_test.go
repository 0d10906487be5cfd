package gcode

import "testing"

func TestParseBasicCommands(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input   string
		cmdType byte
		cmdNum  int
		params  map[byte]float64
	}{
		{input: "G0 X10 Y20", cmdType: 'G', cmdNum: 0, params: map[byte]float64{'X': 10, 'Y': 20}},
		{input: "G1 X100.5 Y200.25 F3000", cmdType: 'G', cmdNum: 1, params: map[byte]float64{'X': 100.5, 'Y': 200.25, 'F': 3000}},
		{input: "G28", cmdType: 'G', cmdNum: 28, params: map[byte]float64{}},
		{input: "M3 S1000", cmdType: 'M', cmdNum: 3, params: map[byte]float64{'S': 1000}},
		{input: "G92 X0 Y0 Z0", cmdType: 'G', cmdNum: 92, params: map[byte]float64{'X': 0, 'Y': 0, 'Z': 0}},
	}

	for _, test := range tests {
		cmd, err := parser.ParseLine(test.input)
		if err != nil {
			t.Errorf("failed to parse %q: %v", test.input, err)
			continue
		}
		if cmd == nil {
			t.Errorf("got nil command for %q", test.input)
			continue
		}
		if cmd.Type != test.cmdType {
			t.Errorf("expected type %c, got %c for %q", test.cmdType, cmd.Type, test.input)
		}
		if cmd.Number != test.cmdNum {
			t.Errorf("expected number %d, got %d for %q", test.cmdNum, cmd.Number, test.input)
		}
		for param, value := range test.params {
			if !cmd.HasParameter(param) {
				t.Errorf("missing parameter %c in %q", param, test.input)
			} else if cmd.GetParameter(param, 0) != value {
				t.Errorf("expected %c=%f, got %c=%f in %q", param, value, param, cmd.GetParameter(param, 0), test.input)
			}
		}
	}
}

func TestParseSubcode(t *testing.T) {
	tests := []struct {
		input      string
		number     int
		subcode    int
	}{
		{"G92.1", 92, 1},
		{"G28.3 Z0", 28, 3},
		{"G61.1", 61, 1},
		{"M50.1", 50, 1},
		{"G0 X1", 0, -1},
	}
	parser := NewParser()
	for _, tc := range tests {
		cmd, err := parser.ParseLine(tc.input)
		if err != nil || cmd == nil {
			t.Fatalf("failed to parse %q: %v", tc.input, err)
		}
		if cmd.Number != tc.number || cmd.Subcode != tc.subcode {
			t.Errorf("%q: got number=%d subcode=%d, want number=%d subcode=%d",
				tc.input, cmd.Number, cmd.Subcode, tc.number, tc.subcode)
		}
	}
}

func TestParseNegativeNumbers(t *testing.T) {
	parser := NewParser()
	cmd, err := parser.ParseLine("G1 X-10.5 Y-20")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if cmd.GetParameter('X', 0) != -10.5 {
		t.Errorf("expected X=-10.5, got X=%f", cmd.GetParameter('X', 0))
	}
	if cmd.GetParameter('Y', 0) != -20 {
		t.Errorf("expected Y=-20, got Y=%f", cmd.GetParameter('Y', 0))
	}
}

func TestParseComments(t *testing.T) {
	parser := NewParser()
	tests := []string{"; a comment", "G0 X10 ; move to X10", "(a comment)"}
	for _, tc := range tests {
		cmd, err := parser.ParseLine(tc)
		if err != nil {
			t.Errorf("failed to parse %q: %v", tc, err)
		}
		if cmd == nil {
			t.Errorf("got nil command for %q", tc)
		}
	}
}

func TestParseLowercase(t *testing.T) {
	parser := NewParser()
	cmd, err := parser.ParseLine("g1 x10 y20")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if cmd.Type != 'G' || cmd.Number != 1 {
		t.Errorf("expected G1, got %c%d", cmd.Type, cmd.Number)
	}
	if cmd.GetParameter('X', 0) != 10 {
		t.Errorf("expected X=10, got X=%f", cmd.GetParameter('X', 0))
	}
}

func TestParseEmptyLine(t *testing.T) {
	parser := NewParser()
	cmd, err := parser.ParseLine("")
	if err != nil {
		t.Errorf("empty line should not error: %v", err)
	}
	if cmd != nil {
		t.Errorf("empty line should return nil command")
	}
}
