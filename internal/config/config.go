package config

import "time"

// Decoder settings
const (
	// SeekTolerance is the largest gap in seconds between a seek target and
	// the first queued frame that is left uncorrected
	SeekTolerance = 0.01

	// MaxConsecutiveErrors ends a buffer fill after this many packet
	// failures in a row, so an unreadable tail cannot spin forever
	MaxConsecutiveErrors = 64

	// PCMPacketFrames is the packet size, in sample frames, that raw PCM
	// containers are split into. WAV seeks land on this grid.
	PCMPacketFrames = 4096
)

// Player settings
const (
	// BufferSamples is the maximum sample count requested per buffer fill
	BufferSamples = 4096

	// MaxBufferedSeconds caps how far decoding runs ahead of the speaker
	MaxBufferedSeconds = 2.0

	// SpeakerBuffer is the output device latency
	SpeakerBuffer = 100 * time.Millisecond

	// StatusInterval is how often the worker publishes a status snapshot
	StatusInterval = 100 * time.Millisecond

	// SeekStep is how far the arrow keys move the playhead
	SeekStep = 5 * time.Second
)

// Meter settings
const (
	FFTSize = 2048
	NumBars = 48
)

// Artwork settings
const (
	ThumbnailSize   = 512
	ThumbnailMargin = 16 // Margin in pixels around the caption
	CaptionFontSize = 28.0

	// Caption colour (brand yellow #F8B31D)
	TextColorR = 248
	TextColorG = 179
	TextColorB = 29
)

// Runtime holds user overrides. Nil or zero fields fall back to the
// package defaults through the Get* accessors.
type Runtime struct {
	BufferSamples  int
	SeekTolerance  *float64
	MaxErrors      int
	ThumbnailSize  int
	CaptionColorR  *uint8
	CaptionColorG  *uint8
	CaptionColorB  *uint8
	MaxBufferedSec float64
}

// GetBufferSamples returns the per-fill sample cap.
func (c *Runtime) GetBufferSamples() int {
	if c.BufferSamples > 0 {
		return c.BufferSamples
	}
	return BufferSamples
}

// GetSeekTolerance returns the seek correction threshold in seconds.
// An explicit zero disables the tolerance and always trims.
func (c *Runtime) GetSeekTolerance() float64 {
	if c.SeekTolerance != nil && *c.SeekTolerance >= 0 {
		return *c.SeekTolerance
	}
	return SeekTolerance
}

// GetMaxErrors returns the consecutive packet failure limit.
func (c *Runtime) GetMaxErrors() int {
	if c.MaxErrors > 0 {
		return c.MaxErrors
	}
	return MaxConsecutiveErrors
}

// GetThumbnailSize returns the exported artwork edge length in pixels.
func (c *Runtime) GetThumbnailSize() int {
	if c.ThumbnailSize > 0 {
		return c.ThumbnailSize
	}
	return ThumbnailSize
}

// GetMaxBufferedSeconds returns how far decoding may run ahead of output.
func (c *Runtime) GetMaxBufferedSeconds() float64 {
	if c.MaxBufferedSec > 0 {
		return c.MaxBufferedSec
	}
	return MaxBufferedSeconds
}

// GetCaptionColor returns the caption colour. All three components must be
// set for the override to apply.
func (c *Runtime) GetCaptionColor() (uint8, uint8, uint8) {
	if c.CaptionColorR != nil && c.CaptionColorG != nil && c.CaptionColorB != nil {
		return *c.CaptionColorR, *c.CaptionColorG, *c.CaptionColorB
	}
	return TextColorR, TextColorG, TextColorB
}
