package codec

import "github.com/linuxmatters/spindle/internal/container"

// Frame is one decoded block of interleaved PCM samples. The sample count is
// derived from the payload length, and Truncate, Trim and Split only reslice
// Data, so a frame never grows past what the codec produced.
type Frame struct {
	PTS        int64
	TimeBase   container.Rational
	SampleRate int
	Channels   int
	Format     SampleFormat
	Data       []byte
}

func (f *Frame) stride() int {
	return f.Channels * f.Format.Size()
}

// Samples returns the number of sample frames (one sample per channel).
func (f *Frame) Samples() int {
	s := f.stride()
	if s == 0 {
		return 0
	}
	return len(f.Data) / s
}

// StartTime returns the presentation time of the first sample in seconds.
func (f *Frame) StartTime() float64 {
	return f.TimeBase.Seconds(f.PTS)
}

// Duration returns the frame length in seconds.
func (f *Frame) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(f.Samples()) / float64(f.SampleRate)
}

// EndTime returns the presentation time just past the last sample.
func (f *Frame) EndTime() float64 {
	return f.StartTime() + f.Duration()
}

func (f *Frame) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if total := f.Samples(); n > total {
		return total
	}
	return n
}

// Truncate keeps the first n samples and drops the rest.
func (f *Frame) Truncate(n int) {
	n = f.clamp(n)
	f.Data = f.Data[:n*f.stride()]
}

// Trim drops the first n samples and moves PTS forward to match.
func (f *Frame) Trim(n int) {
	n = f.clamp(n)
	if n == 0 {
		return
	}
	f.Data = f.Data[n*f.stride():]
	f.PTS += f.TimeBase.TicksForSamples(n, f.SampleRate)
}

// Split detaches the first n samples into a new frame and trims them from f.
// The two frames share no writable bytes.
func (f *Frame) Split(n int) *Frame {
	n = f.clamp(n)
	end := n * f.stride()
	head := *f
	head.Data = f.Data[:end:end]
	f.Trim(n)
	return &head
}
