package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/spindle/internal/container"
)

// TestSeek_Accuracy seeks to targets between packet boundaries and checks
// the first sample handed out afterwards is the one at the target.
func TestSeek_Accuracy(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		want   int16
	}{
		{"packet boundary", 1.0, 1000},
		{"mid packet", 1.5, 1500},
		{"just after boundary", 2.02, 2020},
		{"near end of packet", 0.995, 995},
		{"awkward float", 4.3, 4300},
		{"start", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newBound(t, newFakeSource(1000, 5))
			require.NoError(t, d.Seek(tt.target))
			assert.False(t, d.EOF())

			buf, err := d.Decode(10000)
			require.NoError(t, err)
			start, ok := buf.StartTime()
			require.True(t, ok)
			assert.InDelta(t, tt.target, start, 0.01)
			assert.Equal(t, tt.want, samplesOf(buf)[0])
			t.Logf("target %.3f landed %.4f", tt.target, start)
		})
	}
}

// TestSeek_WithinTolerance checks that a head frame already close enough to
// the target is left alone.
func TestSeek_WithinTolerance(t *testing.T) {
	d := newBound(t, newFakeSource(1000, 3))
	require.NoError(t, d.Seek(1.005))

	buf, err := d.Decode(10000)
	require.NoError(t, err)
	start, _ := buf.StartTime()
	assert.Equal(t, 1.0, start)
	assert.Equal(t, int16(1000), samplesOf(buf)[0])
}

func TestSeek_CustomTolerance(t *testing.T) {
	d := newBound(t, newFakeSource(1000, 3), WithSeekTolerance(0.2))
	require.NoError(t, d.Seek(1.15))

	buf, err := d.Decode(10000)
	require.NoError(t, err)
	start, _ := buf.StartTime()
	assert.Equal(t, 1.0, start, "0.15 s off is inside a 0.2 s tolerance")
}

// TestSeek_PrimesCodec uses a container that can only rewind to the start.
// Packets before the one holding the target must be fed through
// DecodeAndDrop and never reach the queue.
func TestSeek_PrimesCodec(t *testing.T) {
	src := newFakeSource(1000, 5)
	src.coarse = true

	var fc *fakeCodec
	d := newBound(t, src, WithCodecFactory(fakeFactory(1, false, &fc)))
	require.NoError(t, d.Seek(2.3))

	assert.Equal(t, 2, fc.dropped, "packets 0 and 1 only prime the codec")
	assert.Equal(t, 1, fc.flushes)

	buf, err := d.Decode(700)
	require.NoError(t, err)
	start, _ := buf.StartTime()
	assert.InDelta(t, 2.3, start, 1e-9)
	assert.Equal(t, int16(2300), samplesOf(buf)[0])
}

// TestSeek_MultiFramePacket splits each packet into four frames. Whole frames
// before the target are dropped before the head frame is trimmed.
func TestSeek_MultiFramePacket(t *testing.T) {
	d := newBound(t, newFakeSource(1000, 4), WithCodecFactory(fakeFactory(4, false, nil)))
	require.NoError(t, d.Seek(1.6))

	buf, err := d.Decode(150)
	require.NoError(t, err)
	require.Len(t, buf.Frames(), 1)
	start, _ := buf.StartTime()
	assert.InDelta(t, 1.6, start, 1e-9)
	assert.Equal(t, 150, buf.Samples())
	assert.Equal(t, int16(1600), samplesOf(buf)[0])
}

// TestSeek_PastEnd checks that seeking beyond the stream puts the decoder
// at end of stream without failing.
func TestSeek_PastEnd(t *testing.T) {
	d := newBound(t, newFakeSource(1000, 3))

	for _, target := range []float64{3.0, 10} {
		require.NoError(t, d.Seek(target))
		assert.True(t, d.EOF())

		buf, err := d.Decode(1000)
		require.NoError(t, err)
		assert.True(t, buf.IsTerminal())
		assert.Zero(t, buf.Samples())
	}
}

// TestSeek_ClearsEOF checks that a seek back into the stream after end of
// stream resumes decoding.
func TestSeek_ClearsEOF(t *testing.T) {
	d := newBound(t, newFakeSource(1000, 2))
	_, err := d.Decode(10000)
	require.NoError(t, err)
	require.True(t, d.EOF())

	require.NoError(t, d.Seek(0.5))
	assert.False(t, d.EOF())
	assert.Equal(t, StateReady, d.State())

	buf, err := d.Decode(10000)
	require.NoError(t, err)
	assert.Equal(t, 1500, buf.Samples())
	assert.True(t, buf.IsTerminal())
}

func TestSeek_NegativeClampsToStart(t *testing.T) {
	src := newFakeSource(1000, 2)
	d := newBound(t, src)
	require.NoError(t, d.Seek(-3))
	assert.Equal(t, []float64{0}, src.seeks)

	buf, err := d.Decode(500)
	require.NoError(t, err)
	assert.Equal(t, int16(0), samplesOf(buf)[0])
}

func TestSeek_ContainerFailure(t *testing.T) {
	src := newFakeSource(1000, 2)
	src.seekErr = &container.SeekError{Err: errors.New("bad index")}
	d := newBound(t, src)

	err := d.Seek(1)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "seek", de.Op)
	assert.False(t, d.EOF())
}

// TestSeek_CorruptTargetPacket checks that a codec failure while seeking is
// surfaced instead of swallowed.
func TestSeek_CorruptTargetPacket(t *testing.T) {
	src := newFakeSource(1000, 3)
	src.corrupt(1)
	d := newBound(t, src)

	err := d.Seek(1.5)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "seek", de.Op)
}

// TestSeek_DropsQueuedFrames checks that frames decoded before a seek never
// leak into the output after it.
func TestSeek_DropsQueuedFrames(t *testing.T) {
	d := newBound(t, newFakeSource(1000, 4))
	_, err := d.Decode(1500)
	require.NoError(t, err)
	require.Equal(t, 1, d.Queued())

	require.NoError(t, d.Seek(3.25))
	buf, err := d.Decode(10000)
	require.NoError(t, err)
	assert.Equal(t, 750, buf.Samples())
	assert.Equal(t, int16(3250), samplesOf(buf)[0])
}
