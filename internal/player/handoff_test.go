package player

import (
	"math"
	"testing"
)

func ramp(start, n int) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := float64(start + i)
		out[i] = [2]float64{v, -v}
	}
	return out
}

func TestHandoff_BasicWriteRead(t *testing.T) {
	h := NewHandoff(100, 0)

	if err := h.Write(0, ramp(0, 5)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := h.Buffered(); got != 5 {
		t.Errorf("Buffered = %d, want 5", got)
	}

	dst := make([][2]float64, 3)
	n, err := h.ReadForOutput(dst)
	if err != nil {
		t.Fatalf("ReadForOutput failed: %v", err)
	}
	if n != 3 || dst[0][0] != 0 || dst[2][1] != -2 {
		t.Errorf("ReadForOutput returned %d samples: %v", n, dst)
	}
	if got := h.Buffered(); got != 2 {
		t.Errorf("Buffered after read = %d, want 2", got)
	}
	if got := h.BufferedSeconds(); math.Abs(got-0.02) > 1e-12 {
		t.Errorf("BufferedSeconds = %f, want 0.02", got)
	}
}

// TestHandoff_MeterFollowsOutput checks that the meter only sees samples the
// speaker has already played, and skips ahead when it falls behind.
func TestHandoff_MeterFollowsOutput(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(0, ramp(0, 20))

	if got := h.ReadForMeter(8); got != nil {
		t.Errorf("meter read before playback returned %v", got)
	}

	h.ReadForOutput(make([][2]float64, 4))
	got := h.ReadForMeter(8)
	if len(got) != 4 || got[0][0] != 0 {
		t.Errorf("meter read 1 wrong: %v", got)
	}

	h.ReadForOutput(make([][2]float64, 12))
	got = h.ReadForMeter(8)
	if len(got) != 8 || got[0][0] != 8 {
		t.Errorf("meter should skip to the newest 8 samples, got %v", got)
	}

	if got := h.ReadForMeter(8); got != nil {
		t.Errorf("meter read with nothing new returned %v", got)
	}
}

func TestHandoff_CloseDrainsThenFails(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(0, ramp(0, 2))
	h.Close()

	if err := h.Write(0, ramp(0, 1)); err != ErrClosed {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}

	dst := make([][2]float64, 10)
	n, err := h.ReadForOutput(dst)
	if err != nil || n != 2 {
		t.Fatalf("ReadForOutput = %d, %v; want 2 remaining samples", n, err)
	}
	if _, err := h.ReadForOutput(dst); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

// TestHandoff_PlayedTracksMarkers writes two runs with a jump between them,
// as a loop restart does, and checks the position follows each run.
func TestHandoff_PlayedTracksMarkers(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(1.0, ramp(0, 50))
	h.Write(0.25, ramp(0, 50))

	tests := []struct {
		read int
		want float64
	}{
		{0, 1.0},
		{10, 1.1},
		{40, 0.25},
		{25, 0.5},
	}
	for _, tt := range tests {
		h.ReadForOutput(make([][2]float64, tt.read))
		if got := h.Played(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("after reading %d: Played = %f, want %f", tt.read, got, tt.want)
		}
	}
}

func TestHandoff_Reset(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(0, ramp(0, 10))
	h.ReadForOutput(make([][2]float64, 4))
	h.Close()

	h.Reset(7.5)
	if h.IsClosed() {
		t.Error("Reset should reopen the handoff")
	}
	if got := h.Buffered(); got != 0 {
		t.Errorf("Buffered after Reset = %d, want 0", got)
	}
	if got := h.Played(); got != 7.5 {
		t.Errorf("Played after Reset = %f, want 7.5", got)
	}
	if err := h.Write(7.5, ramp(750, 3)); err != nil {
		t.Fatalf("Write after Reset failed: %v", err)
	}
	dst := make([][2]float64, 3)
	h.ReadForOutput(dst)
	if dst[0][0] != 750 {
		t.Errorf("first sample after Reset = %f, want 750", dst[0][0])
	}
}

// TestHandoff_Compact checks that discarding consumed samples keeps read
// positions and the playback clock intact.
func TestHandoff_Compact(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(2.0, ramp(0, 30))
	h.Write(5.0, ramp(100, 30))

	h.ReadForOutput(make([][2]float64, 40))
	h.ReadForMeter(5)
	before := h.Played()

	h.Compact()

	if got := h.Buffered(); got != 20 {
		t.Errorf("Buffered after Compact = %d, want 20", got)
	}
	if got := h.Played(); math.Abs(got-before) > 1e-9 {
		t.Errorf("Played changed across Compact: %f -> %f", before, got)
	}

	dst := make([][2]float64, 1)
	h.ReadForOutput(dst)
	if dst[0][0] != 110 {
		t.Errorf("next sample after Compact = %f, want 110", dst[0][0])
	}
}

// TestHandoff_CompactWithoutMeter plays audio with nobody reading the meter
// and checks the buffer does not keep everything that was played.
func TestHandoff_CompactWithoutMeter(t *testing.T) {
	h := NewHandoff(100, 0)
	dst := make([][2]float64, 50)

	for i := range 20 {
		h.Write(float64(i)/2, ramp(i*50, 50))
		h.ReadForOutput(dst)
		h.Compact()
	}

	h.mu.Lock()
	held := len(h.samples)
	h.mu.Unlock()
	if held > h.meterHold() {
		t.Errorf("handoff holds %d samples with an idle meter, want at most %d", held, h.meterHold())
	}
	if got := h.Played(); math.Abs(got-10) > 1e-9 {
		t.Errorf("Played = %f, want 10", got)
	}

	// A meter that starts late still sees the most recent audio
	got := h.ReadForMeter(5)
	if len(got) != 5 || got[4][0] != 999 {
		t.Errorf("ReadForMeter after idle = %v", got)
	}
}

func TestStreamer_FillsSilenceOnUnderrun(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(0, ramp(1, 3))
	s := NewStreamer(h)

	dst := make([][2]float64, 6)
	for i := range dst {
		dst[i] = [2]float64{9, 9}
	}
	n, ok := s.Stream(dst)
	if n != 6 || !ok {
		t.Fatalf("Stream = %d, %v; want 6, true", n, ok)
	}
	if dst[2][0] != 3 || dst[3] != [2]float64{} || dst[5] != [2]float64{} {
		t.Errorf("unexpected samples: %v", dst)
	}
	if s.Underruns() != 1 {
		t.Errorf("Underruns = %d, want 1", s.Underruns())
	}
	if s.Err() != nil {
		t.Errorf("Err = %v", s.Err())
	}
}

func TestStreamer_EndsWhenClosed(t *testing.T) {
	h := NewHandoff(100, 0)
	h.Write(0, ramp(1, 2))
	h.Close()
	s := NewStreamer(h)

	dst := make([][2]float64, 4)
	if n, ok := s.Stream(dst); n != 2 || !ok {
		t.Errorf("first Stream = %d, %v; want 2, true", n, ok)
	}
	if n, ok := s.Stream(dst); n != 0 || ok {
		t.Errorf("second Stream = %d, %v; want 0, false", n, ok)
	}
}
