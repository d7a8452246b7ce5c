package meter

import (
	"math"

	"github.com/linuxmatters/spindle/internal/config"
)

// Levels returns the RMS and absolute peak of samples.
func Levels(samples []float64) (rms, peak float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += s * s
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return math.Sqrt(sumSquares / float64(len(samples))), peak
}

// Reading is one meter update.
type Reading struct {
	Bars []float64
	RMS  float64
	Peak float64
}

// Analyzer keeps a sliding window of recent samples and produces smoothed
// bars. The bar scale adapts to the loudest magnitude seen so far, so quiet
// and loud recordings both fill the display.
type Analyzer struct {
	proc   *Processor
	window []float64
	raw    []float64
	bars   []float64

	globalPeak float64
	decay      float64
}

// NewAnalyzer creates an analyzer with numBars output bars.
func NewAnalyzer(numBars int) *Analyzer {
	proc, err := NewProcessor(config.FFTSize)
	if err != nil {
		// config.FFTSize is a power of two
		panic(err)
	}
	return &Analyzer{
		proc:   proc,
		window: make([]float64, 0, config.FFTSize),
		raw:    make([]float64, numBars),
		bars:   make([]float64, numBars),
		decay:  0.85,
	}
}

// Push adds newly played mono samples and returns the updated reading.
func (a *Analyzer) Push(samples []float64) (Reading, error) {
	a.window = append(a.window, samples...)
	if over := len(a.window) - a.proc.Size(); over > 0 {
		a.window = append(a.window[:0], a.window[over:]...)
	}

	coeffs, err := a.proc.ProcessChunk(a.window)
	if err != nil {
		return Reading{}, err
	}

	// Track the loudest band so the scale maps it to ~0.85
	if peak := peakMagnitude(coeffs, len(a.raw)); peak > a.globalPeak {
		a.globalPeak = peak
	}
	baseScale := 0.0075
	if a.globalPeak > 0 {
		baseScale = 0.85 / a.globalPeak
	}

	BinFFT(coeffs, 1.0, baseScale, a.raw)
	for i, v := range a.raw {
		a.bars[i] = math.Max(v, a.bars[i]*a.decay)
	}

	rms, peak := Levels(samples)
	out := make([]float64, len(a.bars))
	copy(out, a.bars)
	return Reading{Bars: out, RMS: rms, Peak: peak}, nil
}

// peakMagnitude is the largest average band magnitude, binned as BinFFT does.
func peakMagnitude(coeffs []complex128, numBars int) float64 {
	maxFreqBin := (len(coeffs) / 2 * 3) / 4
	binsPerBar := maxFreqBin / max(numBars, 1)
	if binsPerBar == 0 {
		return 0
	}
	var peak float64
	for bar := 0; bar < numBars; bar++ {
		var sum float64
		for i := bar * binsPerBar; i < (bar+1)*binsPerBar; i++ {
			sum += math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}
		peak = math.Max(peak, sum/float64(binsPerBar))
	}
	return peak
}
