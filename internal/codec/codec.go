// Package codec turns container packets into PCM frames.
package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/linuxmatters/spindle/internal/container"
)

var (
	// ErrUnsupported is returned by New for an unknown codec identifier
	ErrUnsupported = errors.New("unsupported codec")

	// ErrInvalidData marks a packet whose payload cannot be decoded
	ErrInvalidData = errors.New("invalid data in packet")

	// ErrDrained is returned when a drained codec is fed again without Flush
	ErrDrained = errors.New("codec already drained")
)

// DecodeError reports a packet the codec rejected.
type DecodeError struct {
	PTS int64
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode packet at pts %d: %v", e.PTS, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec decodes the packets of one stream. Implementations are driven by a
// single goroutine.
type Codec interface {
	// Format is the sample format of every frame the codec produces
	Format() SampleFormat

	// Decode turns one packet into zero or more frames
	Decode(pkt *container.Packet) ([]*Frame, error)

	// DecodeAndDrop feeds a packet only to advance internal state, e.g.
	// to prime prediction ahead of a seek target
	DecodeAndDrop(pkt *container.Packet) error

	// Drain returns frames still held once no more packets will come.
	// It may be called once; Flush re-arms the codec.
	Drain() ([]*Frame, error)

	// Flush discards internal state, typically after a seek
	Flush()
}

// Factory builds a codec for a stream.
type Factory func(s container.Stream) (Codec, error)

var (
	registryMu sync.RWMutex
	registry   = map[container.CodecID]Factory{}
)

func init() {
	for id := range pcmLayouts {
		Register(id, NewPCM)
	}
}

// Register makes a codec available to New. A later registration for the
// same identifier replaces the earlier one.
func Register(id container.CodecID, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = f
}

// New returns a codec for the stream's codec identifier.
func New(s container.Stream) (Codec, error) {
	registryMu.RLock()
	f, ok := registry[s.Codec]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, s.Codec)
	}
	return f(s)
}
