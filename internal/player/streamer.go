package player

import (
	"github.com/gopxl/beep/v2"
)

// Streamer plays a Handoff through beep. Underruns are filled with silence
// so the speaker keeps running while the worker catches up.
type Streamer struct {
	h         *Handoff
	underruns int
}

var _ beep.Streamer = (*Streamer)(nil)

// NewStreamer returns a streamer draining h.
func NewStreamer(h *Handoff) *Streamer {
	return &Streamer{h: h}
}

func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	n, err := s.h.ReadForOutput(samples)
	if err != nil {
		return 0, false
	}
	if n == len(samples) {
		return n, true
	}
	if s.h.IsClosed() {
		return n, n > 0
	}

	s.underruns++
	clear(samples[n:])
	return len(samples), true
}

func (s *Streamer) Err() error {
	return nil
}

// Underruns returns how many callbacks found the handoff short. It is only
// meaningful once the speaker has stopped calling Stream.
func (s *Streamer) Underruns() int {
	return s.underruns
}
