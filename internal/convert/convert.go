// Package convert turns decoded PCM into the sample layouts playback and
// encoding need. It sits downstream of the decoder and never changes what
// the decoder produces.
package convert

import (
	"encoding/binary"
	"math"

	"github.com/go-audio/audio"

	"github.com/linuxmatters/spindle/internal/codec"
)

// PCM is interleaved sample data with its layout. *decoder.FrameBuffer
// satisfies it.
type PCM interface {
	PCM() []byte
	Format() codec.SampleFormat
	Channels() int
	SampleRate() int
}

// Frames returns the number of sample frames in p.
func Frames(p PCM) int {
	stride := p.Channels() * p.Format().Size()
	if stride == 0 {
		return 0
	}
	return len(p.PCM()) / stride
}

// Stereo normalizes p to float pairs in [-1, 1]. Mono is duplicated to both
// sides; channels beyond the first two are dropped.
func Stereo(p PCM) [][2]float64 {
	data, format, channels := p.PCM(), p.Format(), p.Channels()
	n := Frames(p)
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		base := i * channels
		left := sample(data, format, base)
		right := left
		if channels > 1 {
			right = sample(data, format, base+1)
		}
		out[i] = [2]float64{left, right}
	}
	return out
}

// Mono averages every channel of p into one normalized signal.
func Mono(p PCM) []float64 {
	data, format, channels := p.PCM(), p.Format(), p.Channels()
	n := Frames(p)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += sample(data, format, i*channels+ch)
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// BitDepth returns the integer bit depth IntBuffer writes for format.
// Unsigned 8-bit and float input are carried as 16-bit.
func BitDepth(format codec.SampleFormat) int {
	if format == codec.FormatS32 {
		return 32
	}
	return 16
}

// IntBuffer converts p into a go-audio buffer for the WAV encoder.
func IntBuffer(p PCM) *audio.IntBuffer {
	data, format, channels := p.PCM(), p.Format(), p.Channels()
	count := Frames(p) * channels
	depth := BitDepth(format)

	buf := &audio.IntBuffer{
		Data: make([]int, count),
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  p.SampleRate(),
		},
		SourceBitDepth: depth,
	}

	maxVal := float64(audio.IntMaxSignedValue(depth))
	for i := 0; i < count; i++ {
		switch format {
		case codec.FormatU8:
			buf.Data[i] = (int(data[i]) - 128) << 8
		case codec.FormatS16:
			buf.Data[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
		case codec.FormatS32:
			buf.Data[i] = int(int32(binary.LittleEndian.Uint32(data[4*i:])))
		case codec.FormatF32:
			v := clamp(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))))
			buf.Data[i] = int(math.Round(v * maxVal))
		}
	}
	return buf
}

// sample returns the i-th interleaved sample normalized to [-1, 1].
func sample(data []byte, format codec.SampleFormat, i int) float64 {
	switch format {
	case codec.FormatU8:
		return (float64(data[i]) - 128) / 128
	case codec.FormatS16:
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		return clamp(float64(v) / float64(audio.IntMaxSignedValue(16)))
	case codec.FormatS32:
		v := int32(binary.LittleEndian.Uint32(data[4*i:]))
		return clamp(float64(v) / float64(audio.IntMaxSignedValue(32)))
	case codec.FormatF32:
		return clamp(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))))
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
