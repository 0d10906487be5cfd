// Package planner implements the lookahead move buffer: a fixed ring of
// blocks (bf) each carrying one line's motion parameters, a junction-
// deviation entry velocity estimate, and back-planning that walks the
// ring backward from the newest block recomputing each block's entry
// velocity against its neighbor until a block already at its jerk-
// limited maximum is reached.
package planner

import "tinygmc/gcodestate"

// BufferState is a planner buffer's lifecycle stage. States only ever
// advance forward; alloc/commit/run/free are the only transitions.
type BufferState uint8

const (
	BufferEmpty BufferState = iota
	BufferLoading
	BufferQueued
	BufferPending
	BufferRunning
)

// BufferHeadroom is the number of trailing empty buffers the planner
// keeps available so a hold or queue-flush always has somewhere to put a
// newly split block without stalling the parser.
const BufferHeadroom = 4

// RingSize is the number of blocks held in the lookahead ring.
const RingSize = 48

// QueuedOp tags a non-motion queued command buffer (spindle/coolant/dwell
// changes that must execute in line with motion, not immediately).
type QueuedOp uint8

const (
	OpNone QueuedOp = iota
	OpDwell
	OpSpindleSpeed
	OpSpindleControl
	OpCoolantControl
	OpToolChange
)

// Buffer (bf) is one planner ring slot.
type Buffer struct {
	State BufferState

	Unit   [gcodestate.AxisCount]float64
	From   [gcodestate.AxisCount]float64
	Target [gcodestate.AxisCount]float64
	Length float64

	CruiseVmax float64
	DeltaVmax  float64
	Jerk       float64

	EntryVmax    float64
	EntryVelocity float64
	ExitVelocity  float64

	Replannable bool

	Op     QueuedOp
	Values [6]float64
	Flags  [6]bool

	GState gcodestate.GCodeState
}

// Ring is the planner's fixed lookahead buffer: a circular array indexed
// by three cursors — r (run, the oldest not-yet-freed block), q (queue,
// where the next planned block is written), w (write, where the parser
// is currently loading a not-yet-committed block).
type Ring struct {
	slots [RingSize]Buffer
	r, q, w int
}

// New returns an empty ring.
func New() *Ring {
	return &Ring{}
}

func next(i int) int { return (i + 1) % RingSize }

// Alloc reserves the next empty slot for the parser to fill, returning
// nil once no more than BufferHeadroom empty slots are left.
func (rg *Ring) Alloc() *Buffer {
	if rg.freeCount() <= BufferHeadroom {
		return nil
	}
	b := &rg.slots[rg.w]
	*b = Buffer{State: BufferLoading}
	return b
}

// Commit marks the most recently allocated block as ready to plan,
// advancing the write cursor.
func (rg *Ring) Commit() {
	rg.slots[rg.w].State = BufferQueued
	rg.w = next(rg.w)
}

// Run marks the oldest queued block as the single running block and
// returns it, or nil if the ring is empty or the head is not yet queued.
func (rg *Ring) Run() *Buffer {
	b := &rg.slots[rg.r]
	if b.State != BufferQueued && b.State != BufferPending {
		return nil
	}
	b.State = BufferRunning
	return b
}

// Free releases the oldest (running) block back to the ring, advancing
// the run cursor.
func (rg *Ring) Free() {
	rg.slots[rg.r].State = BufferEmpty
	rg.r = next(rg.r)
}

// freeCount returns the number of BufferEmpty slots in the ring.
func (rg *Ring) freeCount() int {
	n := 0
	for i := range rg.slots {
		if rg.slots[i].State == BufferEmpty {
			n++
		}
	}
	return n
}

// Available exposes freeCount to callers outside the package (e.g. the
// "qr" queue report, which reports planner headroom to the host).
func (rg *Ring) Available() int {
	return rg.freeCount()
}

// Queued returns the committed blocks, including the running one, from
// oldest to newest, for back-planning.
func (rg *Ring) Queued() []*Buffer {
	var out []*Buffer
	for i := rg.r; i != rg.w; i = next(i) {
		b := &rg.slots[i]
		if b.State == BufferQueued || b.State == BufferPending || b.State == BufferRunning {
			out = append(out, b)
		}
	}
	return out
}

// Newest returns the most recently committed block, or nil if empty.
func (rg *Ring) Newest() *Buffer {
	i := rg.w
	for n := 0; n < RingSize; n++ {
		i = (i - 1 + RingSize) % RingSize
		if rg.slots[i].State != BufferEmpty {
			return &rg.slots[i]
		}
	}
	return nil
}
