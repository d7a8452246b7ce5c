// Package meter turns played samples into spectrum bars and signal levels
// for the playback UI.
package meter

import (
	"fmt"
	"math"

	"github.com/argusdusty/gofft"
)

// ApplyHanning applies a Hanning window to the input data
func ApplyHanning(data []float64) []float64 {
	windowed := make([]float64, len(data))
	n := len(data)
	if n < 2 {
		copy(windowed, data)
		return windowed
	}
	for i := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = data[i] * window
	}
	return windowed
}

// BinFFT folds FFT coefficients into len(result) bars normalized to roughly
// 0.0-1.0. Only the lower three quarters of the positive spectrum are used,
// where most musical energy sits.
func BinFFT(coeffs []complex128, sensitivity, baseScale float64, result []float64) {
	numBars := len(result)
	if numBars == 0 {
		return
	}

	halfSize := len(coeffs) / 2
	maxFreqBin := (halfSize * 3) / 4
	binsPerBar := maxFreqBin / numBars
	if binsPerBar == 0 {
		clear(result)
		return
	}

	for bar := 0; bar < numBars; bar++ {
		start := bar * binsPerBar
		end := min(start+binsPerBar, maxFreqBin)

		var sum float64
		for i := start; i < end; i++ {
			sum += math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}
		scaled := sum / float64(binsPerBar) * baseScale * sensitivity

		// Noise gate, then log scale for a more even visual spread
		if scaled < 0.01 {
			result[bar] = 0
		} else {
			result[bar] = math.Log10(1 + scaled*9)
		}
	}
}

// RearrangeFrequenciesCenterOut mirrors the lower half of in around the
// centre of out, so the lowest bands sit in the middle and the highest at
// the edges.
func RearrangeFrequenciesCenterOut(in, out []float64) {
	n := len(out)
	center := n / 2
	for i := 0; i < n/2 && i < len(in); i++ {
		out[center-1-i] = in[i]
		out[center+i] = in[i]
	}
}

// Processor runs a fixed-size windowed FFT.
type Processor struct {
	size int
	buf  []complex128
}

// NewProcessor creates a processor for size-sample windows. size must be a
// power of two.
func NewProcessor(size int) (*Processor, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("FFT size %d is not a power of two", size)
	}
	return &Processor{size: size, buf: make([]complex128, size)}, nil
}

// Size returns the window length.
func (p *Processor) Size() int { return p.size }

// ProcessChunk windows samples and returns their spectrum. Short input is
// zero padded; longer input uses its last Size samples. The returned slice
// is reused by the next call.
func (p *Processor) ProcessChunk(samples []float64) ([]complex128, error) {
	if len(samples) > p.size {
		samples = samples[len(samples)-p.size:]
	}
	chunk := make([]float64, p.size)
	copy(chunk, samples)

	windowed := ApplyHanning(chunk)
	for i, v := range windowed {
		p.buf[i] = complex(v, 0)
	}
	if err := gofft.FFT(p.buf); err != nil {
		return nil, fmt.Errorf("failed to compute FFT: %w", err)
	}
	return p.buf, nil
}
