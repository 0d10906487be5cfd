// Package reports builds the line-delimited JSON status ("sr"),
// queue ("qr"), receive-space ("rx"), and exception ("er")
// reports sent out over the line transport. JSON is assembled by manual
// byte-append rather than encoding/json, following the teacher's
// core/dictionary.go idiom of building wire payloads without the
// reflection and allocation overhead json.Marshal brings on a
// memory-constrained target.
package reports

import (
	"strconv"

	"tinygmc/gcodestate"
)

// Field is one key sampled into a status report, in the order it was
// registered; Verbose reports include every registered field, filtered
// reports include only fields whose value changed since the last report.
type Field struct {
	Key   string
	Value func() (jsonValue string, changed bool)
}

// StatusReport assembles "sr" reports: either Verbose (every field every
// time) or filtered (only fields that changed since the prior call).
type StatusReport struct {
	fields  []Field
	verbose bool
	last    map[string]string
}

// NewStatusReport builds a status report generator. verbose=false means
// only changed fields are emitted on each call to Build.
func NewStatusReport(verbose bool) *StatusReport {
	return &StatusReport{verbose: verbose, last: make(map[string]string)}
}

// Register adds a field to the report, in call order.
func (s *StatusReport) Register(key string, value func() (string, bool)) {
	s.fields = append(s.fields, Field{Key: key, Value: value})
}

// Build assembles one {"sr":{...}} line. In filtered mode, a field is
// included if its valueFn reports changed=true OR its cached value
// differs from the last emitted value; the report is empty ({"sr":{}})
// if nothing changed and the caller should then suppress sending it
// entirely unless an ASAP reset was requested.
func (s *StatusReport) Build() []byte {
	out := make([]byte, 0, 256)
	out = append(out, `{"sr":{`...)
	first := true
	for _, f := range s.fields {
		val, changed := f.Value()
		prior, seen := s.last[f.Key]
		include := s.verbose || changed || !seen || prior != val
		if !include {
			continue
		}
		s.last[f.Key] = val
		if !first {
			out = append(out, ',')
		}
		out = append(out, '"')
		out = append(out, f.Key...)
		out = append(out, `":`...)
		out = append(out, val...)
		first = false
	}
	out = append(out, "}}\n"...)
	return out
}

// ResetASAP clears the change-cache so the next Build emits every field
// regardless of filtering, used when a client first connects or after a
// queue flush.
func (s *StatusReport) ResetASAP() {
	s.last = make(map[string]string)
}

// QueueReport assembles "qr" (single) or "qr"/"qi"/"qo" (triple) reports
// describing how many planner buffer slots are available, throttled so
// that after the first report it is not sent again until minInterval
// ticks have passed.
type QueueReport struct {
	Triple bool

	sent       bool
	lastSent   uint32
	minInterval uint32
}

// NewQueueReport builds a queue report generator; minInterval is in the
// same tick units the caller passes to ShouldSend.
func NewQueueReport(triple bool, minInterval uint32) *QueueReport {
	return &QueueReport{Triple: triple, minInterval: minInterval}
}

// ShouldSend reports whether enough time has passed since the last send
// at tick `now`; the first report is always allowed.
func (q *QueueReport) ShouldSend(now uint32) bool {
	if !q.sent {
		return true
	}
	if now-q.lastSent < q.minInterval {
		return false
	}
	return true
}

// Build assembles a queue report from the available slot count and (if
// Triple) the slot counts added/removed since the previous report.
func (q *QueueReport) Build(now uint32, available, added, removed int) []byte {
	q.sent = true
	q.lastSent = now
	out := make([]byte, 0, 48)
	if !q.Triple {
		out = append(out, `{"qr":`...)
		out = strconv.AppendInt(out, int64(available), 10)
		out = append(out, "}\n"...)
		return out
	}
	out = append(out, `{"qr":`...)
	out = strconv.AppendInt(out, int64(available), 10)
	out = append(out, `,"qi":`...)
	out = strconv.AppendInt(out, int64(added), 10)
	out = append(out, `,"qo":`...)
	out = strconv.AppendInt(out, int64(removed), 10)
	out = append(out, "}\n"...)
	return out
}

// ExceptionReport assembles "er" reports; unlike sr/qr these are always
// sent in full JSON regardless of the interface's text/JSON mode, since
// an error must never be silently swallowed by a text-mode client.
func ExceptionReport(code int, message string) []byte {
	out := make([]byte, 0, 64)
	out = append(out, `{"er":{"st":`...)
	out = strconv.AppendInt(out, int64(code), 10)
	out = append(out, `,"msg":"`...)
	out = appendJSONEscaped(out, message)
	out = append(out, `"}}`...)
	out = append(out, '\n')
	return out
}

// RxReport assembles the one-shot "rx" report sent after a queue flush
// completes, announcing available receive buffer space.
func RxReport(available int) []byte {
	out := make([]byte, 0, 24)
	out = append(out, `{"rx":`...)
	out = strconv.AppendInt(out, int64(available), 10)
	out = append(out, "}\n"...)
	return out
}

func appendJSONEscaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			dst = append(dst, '\\', c)
		case '\n':
			dst = append(dst, '\\', 'n')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// PositionField returns a Register-ready value function reporting one
// axis's position from a GCodeState pointer, formatted to 3 decimals.
func PositionField(axis int, state *gcodestate.GCodeState) func() (string, bool) {
	return func() (string, bool) {
		return strconv.FormatFloat(state.Target[axis], 'f', 3, 64), false
	}
}
