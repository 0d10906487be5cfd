package protocol

import "bytes"

// LineHandler processes one complete input line (without its trailing
// delimiter). It returns the bytes to write back to the transport, if any.
type LineHandler func(line []byte) []byte

// LineTransport scans an InputBuffer for LF-delimited lines and dispatches
// each complete line to a handler, writing the handler's response (if any)
// to an OutputBuffer. It mirrors the scan/extract/dispatch/continue shape
// of a framed binary transport, but the delimiter is a single '\n' byte
// instead of a sync byte plus CRC trailer, and there is no sequence number
// to track — the line protocol is not required to be lossless/ordered by
// this layer, that is the job of whatever byte stream carries it.
type LineTransport struct {
	handler LineHandler
	output  OutputBuffer

	// maxLine bounds a single accumulated line before it is discarded as
	// garbage; this guards against a runaway input stream with no LF
	// ever consuming unbounded memory.
	maxLine int
}

// NewLineTransport creates a LineTransport writing responses to output and
// dispatching complete lines to handler.
func NewLineTransport(output OutputBuffer, handler LineHandler) *LineTransport {
	return &LineTransport{
		handler: handler,
		output:  output,
		maxLine: MessageMax,
	}
}

// Receive scans buf for complete lines, dispatches each to the handler, and
// pops the consumed bytes (including delimiters) from buf. It returns the
// number of lines processed.
func (t *LineTransport) Receive(buf InputBuffer) int {
	processed := 0
	for {
		data := buf.Data()
		if len(data) == 0 {
			return processed
		}

		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			if len(data) > t.maxLine {
				// No delimiter within the bound: drop it all as garbage
				// rather than stalling forever waiting for an LF.
				buf.Pop(len(data))
			}
			return processed
		}

		line := data[:idx]
		line = bytes.TrimSuffix(line, []byte{'\r'})

		resp := t.handler(line)
		if resp != nil && t.output != nil {
			t.output.Output(resp)
		}

		buf.Pop(idx + 1)
		processed++
	}
}
