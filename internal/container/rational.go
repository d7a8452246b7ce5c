package container

import (
	"fmt"
	"math"
)

// Rational is a time base: Num/Den seconds per tick.
type Rational struct {
	Num int64
	Den int64
}

// SampleTimeBase returns the 1/sampleRate time base used by PCM streams.
func SampleTimeBase(sampleRate int) Rational {
	return Rational{Num: 1, Den: int64(sampleRate)}
}

// Valid reports whether the time base can be used for conversions.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Seconds converts a timestamp in ticks to seconds.
func (r Rational) Seconds(pts int64) float64 {
	return float64(pts) * float64(r.Num) / float64(r.Den)
}

// Ticks converts seconds to the nearest timestamp at or before it.
// A tiny epsilon absorbs float error so exact tick boundaries do not round down.
func (r Rational) Ticks(seconds float64) int64 {
	return int64(math.Floor(seconds*float64(r.Den)/float64(r.Num) + 1e-9))
}

// TicksForSamples converts a sample count at sampleRate into ticks, rounded to nearest.
func (r Rational) TicksForSamples(samples, sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return int64(math.Round(float64(samples) * float64(r.Den) / (float64(sampleRate) * float64(r.Num))))
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}
