package decoder

import "github.com/linuxmatters/spindle/internal/codec"

// FrameBuffer accumulates frames for one buffer fill. Normal appends are
// capped at the maximum sample count; terminal appends at end of stream or
// at a loop boundary bypass the cap so no samples are lost. Ownership of the
// buffer and its frames passes to the caller once returned.
type FrameBuffer struct {
	format     codec.SampleFormat
	channels   int
	sampleRate int
	max        int
	samples    int
	frames     []*codec.Frame
	terminal   bool
}

// NewFrameBuffer returns an empty buffer capped at maxSamples.
func NewFrameBuffer(format codec.SampleFormat, channels, sampleRate, maxSamples int) *FrameBuffer {
	return &FrameBuffer{
		format:     format,
		channels:   channels,
		sampleRate: sampleRate,
		max:        maxSamples,
	}
}

// Append adds f unless it would take the buffer past its maximum. A
// rejected frame is left untouched for the next fill.
func (b *FrameBuffer) Append(f *codec.Frame) bool {
	if b.samples+f.Samples() > b.max {
		return false
	}
	b.add(f)
	return true
}

// AppendTerminal adds f regardless of capacity and marks the buffer terminal.
func (b *FrameBuffer) AppendTerminal(f *codec.Frame) {
	b.add(f)
	b.terminal = true
}

func (b *FrameBuffer) add(f *codec.Frame) {
	b.frames = append(b.frames, f)
	b.samples += f.Samples()
}

// markTerminal flags the buffer as the last of its stream or loop pass.
func (b *FrameBuffer) markTerminal() {
	b.terminal = true
}

// Samples returns the accumulated sample count.
func (b *FrameBuffer) Samples() int { return b.samples }

// IsTerminal reports whether the buffer came from end-of-stream or
// loop-boundary draining. No more frames follow without a seek.
func (b *FrameBuffer) IsTerminal() bool { return b.terminal }

// Format returns the sample format of the payload.
func (b *FrameBuffer) Format() codec.SampleFormat { return b.format }

// Channels returns the interleaved channel count.
func (b *FrameBuffer) Channels() int { return b.channels }

// SampleRate returns the sample rate in Hz.
func (b *FrameBuffer) SampleRate() int { return b.sampleRate }

// Frames returns the accumulated frames in order.
func (b *FrameBuffer) Frames() []*codec.Frame { return b.frames }

// StartTime returns the presentation time of the first frame.
func (b *FrameBuffer) StartTime() (float64, bool) {
	if len(b.frames) == 0 {
		return 0, false
	}
	return b.frames[0].StartTime(), true
}

// Duration returns the buffered audio length in seconds.
func (b *FrameBuffer) Duration() float64 {
	if b.sampleRate <= 0 {
		return 0
	}
	return float64(b.samples) / float64(b.sampleRate)
}

// PCM returns the interleaved payload of every frame as one slice.
func (b *FrameBuffer) PCM() []byte {
	if len(b.frames) == 1 {
		return b.frames[0].Data
	}
	out := make([]byte, 0, b.samples*b.channels*b.format.Size())
	for _, f := range b.frames {
		out = append(out, f.Data...)
	}
	return out
}
