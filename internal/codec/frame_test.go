package codec

import (
	"testing"

	"github.com/linuxmatters/spindle/internal/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFrame builds a mono S16 frame whose sample i holds the value start+i.
func newTestFrame(pts int64, start, n int) *Frame {
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(start + i)
		data[i*2] = byte(v)
		data[i*2+1] = byte(v >> 8)
	}
	return &Frame{
		PTS:        pts,
		TimeBase:   container.SampleTimeBase(1000),
		SampleRate: 1000,
		Channels:   1,
		Format:     FormatS16,
		Data:       data,
	}
}

func firstSample(f *Frame) int16 {
	return int16(f.Data[0]) | int16(f.Data[1])<<8
}

func TestFrame_Timing(t *testing.T) {
	f := newTestFrame(2000, 0, 500)

	assert.Equal(t, 500, f.Samples())
	assert.InDelta(t, 2.0, f.StartTime(), 1e-9)
	assert.InDelta(t, 0.5, f.Duration(), 1e-9)
	assert.InDelta(t, 2.5, f.EndTime(), 1e-9)
}

func TestFrame_Truncate(t *testing.T) {
	testCases := []struct {
		name string
		n    int
		want int
	}{
		{"Shrink", 300, 300},
		{"Zero", 0, 0},
		{"Negative clamps to zero", -4, 0},
		{"Beyond length is a no-op", 5000, 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFrame(0, 0, 1000)
			f.Truncate(tc.n)
			assert.Equal(t, tc.want, f.Samples())
			assert.Equal(t, int64(0), f.PTS, "truncation must not move PTS")
		})
	}
}

func TestFrame_TrimAdvancesPTS(t *testing.T) {
	f := newTestFrame(1000, 0, 1000)
	capBefore := cap(f.Data)

	f.Trim(250)

	require.Equal(t, 750, f.Samples())
	assert.Equal(t, int64(1250), f.PTS)
	assert.Equal(t, int16(250), firstSample(f))
	assert.InDelta(t, 1.25, f.StartTime(), 1e-9)
	assert.LessOrEqual(t, cap(f.Data), capBefore, "trim must not reallocate")
}

func TestFrame_TrimWithCoarseTimeBase(t *testing.T) {
	// 48 kHz audio in a millisecond time base
	f := &Frame{
		PTS:        100,
		TimeBase:   container.Rational{Num: 1, Den: 1000},
		SampleRate: 48000,
		Channels:   2,
		Format:     FormatS16,
		Data:       make([]byte, 4800*4),
	}

	f.Trim(480)
	assert.Equal(t, int64(110), f.PTS)
	assert.Equal(t, 4320, f.Samples())
}

func TestFrame_TrimClamps(t *testing.T) {
	f := newTestFrame(0, 0, 10)
	f.Trim(50)
	assert.Equal(t, 0, f.Samples())
	assert.Equal(t, int64(10), f.PTS)

	g := newTestFrame(0, 0, 10)
	g.Trim(-3)
	assert.Equal(t, 10, g.Samples())
	assert.Equal(t, int64(0), g.PTS)
}

func TestFrame_Split(t *testing.T) {
	f := newTestFrame(0, 0, 1000)

	head := f.Split(400)

	require.Equal(t, 400, head.Samples())
	require.Equal(t, 600, f.Samples())
	assert.Equal(t, int64(0), head.PTS)
	assert.Equal(t, int64(400), f.PTS)
	assert.Equal(t, int16(0), firstSample(head))
	assert.Equal(t, int16(400), firstSample(f))

	// Appending to the head must not clobber the remainder
	head.Data = append(head.Data, 0xFF, 0xFF)
	assert.Equal(t, int16(400), firstSample(f))
}
