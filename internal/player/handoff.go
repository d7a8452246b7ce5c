// Package player moves decoded audio from the decode worker to the speaker.
package player

import (
	"errors"
	"sync"
)

// ErrClosed is returned when reading from or writing to a closed Handoff
var ErrClosed = errors.New("handoff is closed")

// marker records the presentation time of the sample at an absolute index.
type marker struct {
	index int
	start float64
}

// Handoff is the thread-safe buffer between the decode worker and the audio
// callback. Samples are stereo float pairs.
//
// Design:
//   - Single producer (the worker) appends via Write
//   - Two consumers with independent read positions: the speaker
//     (ReadForOutput) and the level meter (ReadForMeter)
//   - The meter never reads ahead of the speaker, so it shows what is heard
//   - Every Write carries the start time of its samples, so the playback
//     position survives seeks and loop restarts
type Handoff struct {
	mu sync.Mutex

	sampleRate int
	samples    [][2]float64

	// Absolute index of samples[0]; grows as Compact discards
	offset int

	outPos   int
	meterPos int

	markers []marker
	origin  float64

	closed bool
}

// NewHandoff creates a handoff for audio at sampleRate. initialCapacity is a
// hint for how many samples will be buffered at once.
func NewHandoff(sampleRate, initialCapacity int) *Handoff {
	if initialCapacity <= 0 {
		initialCapacity = sampleRate * 2
	}
	return &Handoff{
		sampleRate: sampleRate,
		samples:    make([][2]float64, 0, initialCapacity),
	}
}

// Write appends samples that start at start seconds.
func (h *Handoff) Write(start float64, samples [][2]float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if len(samples) == 0 {
		return nil
	}
	h.markers = append(h.markers, marker{index: h.offset + len(h.samples), start: start})
	h.samples = append(h.samples, samples...)
	return nil
}

// ReadForOutput copies up to len(dst) unplayed samples into dst. It never
// blocks, so it is safe on the audio callback. It returns ErrClosed once the
// handoff is closed and fully played.
func (h *Handoff) ReadForOutput(dst [][2]float64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := copy(dst, h.samples[h.outPos:])
	h.outPos += n
	if n == 0 && h.closed {
		return 0, ErrClosed
	}
	return n, nil
}

// ReadForMeter returns up to n of the most recently played samples the meter
// has not seen yet. When the meter falls behind it skips ahead rather than
// lagging the speaker.
func (h *Handoff) ReadForMeter(n int) [][2]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.outPos-h.meterPos > n {
		h.meterPos = h.outPos - n
	}
	if h.meterPos >= h.outPos {
		return nil
	}
	out := make([][2]float64, h.outPos-h.meterPos)
	copy(out, h.samples[h.meterPos:h.outPos])
	h.meterPos = h.outPos
	return out
}

// Buffered returns the number of samples written but not yet played.
func (h *Handoff) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples) - h.outPos
}

// BufferedSeconds returns Buffered as a duration in seconds.
func (h *Handoff) BufferedSeconds() float64 {
	if h.sampleRate <= 0 {
		return 0
	}
	return float64(h.Buffered()) / float64(h.sampleRate)
}

// Played returns the presentation time of the next sample the speaker will
// read.
func (h *Handoff) Played() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	abs := h.offset + h.outPos
	pos := h.origin
	for _, m := range h.markers {
		if m.index > abs {
			break
		}
		pos = m.start + float64(abs-m.index)/float64(h.sampleRate)
	}
	return pos
}

// meterHold is how many played samples are kept for a lagging meter. The
// meter only ever shows the most recent audio, so older samples are lost to
// it anyway.
func (h *Handoff) meterHold() int {
	return max(h.sampleRate/4, 1)
}

// Close signals that no more samples will be written.
func (h *Handoff) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// IsClosed returns whether the handoff has been closed.
func (h *Handoff) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Reset drops every buffered sample after a seek. Playback resumes at
// origin seconds.
func (h *Handoff) Reset(origin float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.offset += len(h.samples)
	h.samples = h.samples[:0]
	h.outPos = 0
	h.meterPos = 0
	h.markers = h.markers[:0]
	h.origin = origin
	h.closed = false
}

// Compact removes samples both consumers are done with. A meter that has
// stopped reading holds back at most meterHold of played audio, so the
// buffer stays bounded without one.
func (h *Handoff) Compact() {
	h.mu.Lock()
	defer h.mu.Unlock()

	minPos := min(h.meterPos, h.outPos)
	if held := h.outPos - h.meterHold(); held > minPos {
		minPos = held
	}
	if minPos <= 0 {
		return
	}

	remaining := len(h.samples) - minPos
	copy(h.samples, h.samples[minPos:])
	h.samples = h.samples[:remaining]
	h.outPos -= minPos
	h.meterPos = max(h.meterPos-minPos, 0)
	h.offset += minPos

	// Keep the newest marker at or before the discarded prefix
	keep := 0
	for i, m := range h.markers {
		if m.index <= h.offset {
			keep = i
		}
	}
	h.markers = append(h.markers[:0], h.markers[keep:]...)
}
