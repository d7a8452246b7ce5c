package decoder

import "github.com/linuxmatters/spindle/internal/codec"

// FrameQueue is a FIFO of decoded frames waiting to be consumed. Frames keep
// decode order; nothing here looks at PTS.
type FrameQueue struct {
	frames []*codec.Frame
	head   int
}

// Push appends frames in order.
func (q *FrameQueue) Push(frames ...*codec.Frame) {
	q.frames = append(q.frames, frames...)
}

// Peek returns the oldest frame without removing it, or nil when empty.
func (q *FrameQueue) Peek() *codec.Frame {
	if q.Len() == 0 {
		return nil
	}
	return q.frames[q.head]
}

// Pop removes and returns the oldest frame, or nil when empty.
func (q *FrameQueue) Pop() *codec.Frame {
	if q.Len() == 0 {
		return nil
	}
	f := q.frames[q.head]
	q.frames[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the slice
	if q.head > 32 && q.head*2 > len(q.frames) {
		n := copy(q.frames, q.frames[q.head:])
		clear(q.frames[n:])
		q.frames = q.frames[:n]
		q.head = 0
	}
	return f
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.frames) - q.head
}

// Samples returns the total sample count across queued frames.
func (q *FrameQueue) Samples() int {
	total := 0
	for _, f := range q.frames[q.head:] {
		total += f.Samples()
	}
	return total
}

// Clear drops every queued frame.
func (q *FrameQueue) Clear() {
	clear(q.frames)
	q.frames = q.frames[:0]
	q.head = 0
}
