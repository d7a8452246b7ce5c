package meter

import (
	"math"

	"github.com/linuxmatters/spindle/internal/config"
)

// defaultBaseScale is used when a stream has no spectral energy at all
const defaultBaseScale = 0.0075

// Profile summarises a whole stream
type Profile struct {
	Samples    int
	SampleRate int
	Windows    int // FFT windows analysed

	// Sample-domain statistics
	Peak float64 // Highest absolute sample
	RMS  float64 // RMS over every sample

	// Loudest average band magnitude across all windows
	SpectralPeak float64

	// Peak-to-RMS ratio in dB, 0 for silence
	DynamicRange float64

	// Bar scale that maps SpectralPeak to ~0.85 in BinFFT
	OptimalBaseScale float64
}

// Duration returns the analysed length in seconds.
func (p Profile) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Samples) / float64(p.SampleRate)
}

// Profiler accumulates a Profile from mono samples fed in any chunk size.
// Windows of config.FFTSize overlap by half.
type Profiler struct {
	proc       *Processor
	numBars    int
	hop        int
	sampleRate int
	pending    []float64

	samples      int
	sumSquares   float64
	peak         float64
	spectralPeak float64
	windows      int
}

// NewProfiler creates a profiler for a stream at sampleRate.
func NewProfiler(sampleRate, numBars int) *Profiler {
	proc, err := NewProcessor(config.FFTSize)
	if err != nil {
		// config.FFTSize is a power of two
		panic(err)
	}
	return &Profiler{
		proc:       proc,
		numBars:    numBars,
		hop:        config.FFTSize / 2,
		sampleRate: sampleRate,
		pending:    make([]float64, 0, config.FFTSize*2),
	}
}

// Add feeds the next run of samples.
func (p *Profiler) Add(samples []float64) error {
	for _, s := range samples {
		p.sumSquares += s * s
		if a := math.Abs(s); a > p.peak {
			p.peak = a
		}
	}
	p.samples += len(samples)

	p.pending = append(p.pending, samples...)
	size := p.proc.Size()
	for len(p.pending) >= size {
		if err := p.analyze(p.pending[:size]); err != nil {
			return err
		}
		p.pending = append(p.pending[:0], p.pending[p.hop:]...)
	}
	return nil
}

func (p *Profiler) analyze(window []float64) error {
	coeffs, err := p.proc.ProcessChunk(window)
	if err != nil {
		return err
	}
	if peak := peakMagnitude(coeffs, p.numBars); peak > p.spectralPeak {
		p.spectralPeak = peak
	}
	p.windows++
	return nil
}

// Profile returns the statistics so far. A stream shorter than one window
// is analysed zero-padded.
func (p *Profiler) Profile() (Profile, error) {
	if p.windows == 0 && len(p.pending) > 0 {
		if err := p.analyze(p.pending); err != nil {
			return Profile{}, err
		}
	}

	prof := Profile{
		Samples:          p.samples,
		SampleRate:       p.sampleRate,
		Windows:          p.windows,
		Peak:             p.peak,
		SpectralPeak:     p.spectralPeak,
		OptimalBaseScale: defaultBaseScale,
	}
	if p.samples > 0 {
		prof.RMS = math.Sqrt(p.sumSquares / float64(p.samples))
	}
	if prof.RMS > 0 {
		prof.DynamicRange = 20 * math.Log10(prof.Peak/prof.RMS)
	}
	if prof.SpectralPeak > 0 {
		prof.OptimalBaseScale = 0.85 / prof.SpectralPeak
	}
	return prof, nil
}
