package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/spindle/internal/config"
)

const testRate = 8000

// writeRamp writes a mono 16-bit WAV whose sample i holds the value i.
func writeRamp(t *testing.T, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ramp.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, testRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testRate},
		Data:           make([]int, frames),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = i
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func readWAV(t *testing.T, path string) *audio.IntBuffer {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	require.NoError(t, err)
	return buf
}

func TestDecodeToWAV_Full(t *testing.T) {
	in := writeRamp(t, testRate)
	out := filepath.Join(t.TempDir(), "out.wav")

	sum, err := decodeToWAV(in, out, decodeOptions{}, &config.Runtime{})
	require.NoError(t, err)

	assert.Equal(t, testRate, sum.SampleRate)
	assert.Equal(t, 1, sum.Channels)
	assert.Equal(t, testRate, sum.Samples)
	assert.InDelta(t, 1.0, sum.Seconds(), 1e-9)
	assert.Greater(t, sum.Bytes, int64(2*testRate))
	assert.Zero(t, sum.Counters.Total())

	buf := readWAV(t, out)
	require.Len(t, buf.Data, testRate)
	for i, v := range buf.Data {
		if v != i {
			t.Fatalf("sample %d = %d, want %d", i, v, i)
		}
	}
}

func TestDecodeToWAV_SmallBuffers(t *testing.T) {
	in := writeRamp(t, 3000)
	out := filepath.Join(t.TempDir(), "out.wav")

	sum, err := decodeToWAV(in, out, decodeOptions{}, &config.Runtime{BufferSamples: 500})
	require.NoError(t, err)

	assert.Equal(t, 3000, sum.Samples)
	assert.GreaterOrEqual(t, sum.Buffers, 6)
	assert.Len(t, readWAV(t, out).Data, 3000)
}

func TestDecodeToWAV_Seek(t *testing.T) {
	in := writeRamp(t, testRate)
	out := filepath.Join(t.TempDir(), "out.wav")

	sum, err := decodeToWAV(in, out, decodeOptions{Seek: 0.5}, &config.Runtime{})
	require.NoError(t, err)
	assert.Equal(t, testRate/2, sum.Samples)

	buf := readWAV(t, out)
	require.NotEmpty(t, buf.Data)
	assert.Equal(t, 4000, buf.Data[0])
	assert.Equal(t, testRate-1, buf.Data[len(buf.Data)-1])
}

func TestDecodeToWAV_SeekPastEnd(t *testing.T) {
	in := writeRamp(t, testRate)
	out := filepath.Join(t.TempDir(), "out.wav")

	sum, err := decodeToWAV(in, out, decodeOptions{Seek: 5}, &config.Runtime{})
	require.NoError(t, err)
	assert.Zero(t, sum.Samples)
}

func TestDecodeToWAV_Loop(t *testing.T) {
	in := writeRamp(t, testRate)
	out := filepath.Join(t.TempDir(), "out.wav")

	opts := decodeOptions{LoopStart: 0.25, LoopEnd: 0.5, Loops: 3}
	sum, err := decodeToWAV(in, out, opts, &config.Runtime{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Loops)
	assert.Equal(t, 3*2000, sum.Samples)

	buf := readWAV(t, out)
	require.Len(t, buf.Data, 6000)
	for i, v := range buf.Data {
		want := 2000 + i%2000
		if v != want {
			t.Fatalf("sample %d = %d, want %d", i, v, want)
		}
	}
}

func TestDecodeToWAV_LoopPastEnd(t *testing.T) {
	in := writeRamp(t, testRate)
	out := filepath.Join(t.TempDir(), "out.wav")

	opts := decodeOptions{LoopStart: 2, LoopEnd: 3, Loops: 1}
	_, err := decodeToWAV(in, out, opts, &config.Runtime{})
	assert.Error(t, err)
}

func TestDecodeToWAV_MissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")
	_, err := decodeToWAV(filepath.Join(t.TempDir(), "missing.wav"), out, decodeOptions{}, &config.Runtime{})
	assert.Error(t, err)
}

func TestDecodeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    decodeOptions
		wantErr bool
	}{
		{"defaults", decodeOptions{}, false},
		{"seek", decodeOptions{Seek: 1.5}, false},
		{"negative seek", decodeOptions{Seek: -1}, true},
		{"loop", decodeOptions{LoopStart: 1, LoopEnd: 2, Loops: 1}, false},
		{"empty loop", decodeOptions{LoopStart: 2, LoopEnd: 2, Loops: 1}, true},
		{"reversed loop", decodeOptions{LoopStart: 3, LoopEnd: 2, Loops: 1}, true},
		{"zero passes", decodeOptions{LoopStart: 1, LoopEnd: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrackTitle(t *testing.T) {
	assert.Equal(t, "ramp", trackTitle("/tmp/ramp.wav", map[string]string{}))
	assert.Equal(t, "Intro", trackTitle("a.flac", map[string]string{"title": "Intro"}))
	assert.Equal(t, "Band - Intro", trackTitle("a.flac", map[string]string{"title": "Intro", "artist": "Band"}))
}

func TestExportArtworkPlaceholder(t *testing.T) {
	in := writeRamp(t, 100)
	out := filepath.Join(t.TempDir(), "cover.png")

	require.NoError(t, exportArtwork(in, out, "", &config.Runtime{ThumbnailSize: 64}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, validateInput(writeRamp(t, 10)))
	assert.Error(t, validateInput(filepath.Join(t.TempDir(), "nope.wav")))
	assert.Error(t, validateInput(t.TempDir()))
}

func TestAnalyzeStream(t *testing.T) {
	in := writeRamp(t, testRate)

	prof, counters, err := analyzeStream(in, &config.Runtime{BufferSamples: 1000})
	require.NoError(t, err)

	assert.Equal(t, testRate, prof.Samples)
	assert.Equal(t, testRate, prof.SampleRate)
	assert.InDelta(t, float64(testRate-1)/32767, prof.Peak, 1e-6)
	assert.Greater(t, prof.RMS, 0.0)
	assert.Greater(t, prof.Windows, 0)
	assert.Zero(t, counters.Total())
}

func TestFormatDB(t *testing.T) {
	assert.Equal(t, "-inf dB", formatDB(0))
	assert.Equal(t, "0.0 dB", formatDB(1))
	assert.Equal(t, "-6.0 dB", formatDB(0.5))
}
