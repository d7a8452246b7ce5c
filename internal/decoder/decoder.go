// Package decoder drives a container and codec pair to fill sample-capped
// buffers of decoded audio, with loop-bounded decoding and sample-accurate
// seeking on top.
package decoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/spindle/internal/codec"
	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/container"
)

var (
	// ErrNotInitialized is returned when the decoder has no bound source
	ErrNotInitialized = errors.New("decoder not initialized")

	// ErrNoAudioStream means the source has nothing to decode
	ErrNoAudioStream = errors.New("no audio stream")

	// ErrInvalidSize rejects a non-positive buffer capacity
	ErrInvalidSize = errors.New("max sample count must be positive")
)

// Error wraps a failure of a decoder operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decoder %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// State is the lifecycle position of a Decoder.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDecoding
	StateEOF
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDecoding:
		return "decoding"
	case StateEOF:
		return "eof"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source is the container side of a decoder. *container.Context satisfies it.
type Source interface {
	AudioStream() (container.Stream, bool)
	ReadPacket(streamIndex int) (*container.Packet, error)
	Seek(streamIndex int, seconds float64) error
	Destroy() error
}

// binding holds what Initialize attached; it exists only while bound.
type binding struct {
	src    Source
	codec  codec.Codec
	stream container.Stream
}

// Decoder owns one Source, one Codec and a queue of decoded frames. It is
// driven by a single goroutine.
type Decoder struct {
	bound     *binding
	state     State
	endOfLoop bool
	drained   bool
	queue     FrameQueue

	logger    *log.Logger
	sink      Sink
	newCodec  codec.Factory
	tolerance float64
	maxErrors int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *log.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDiagnostics adds a sink for swallowed failures. It may be given more
// than once.
func WithDiagnostics(s Sink) Option {
	return func(d *Decoder) {
		if s == nil {
			return
		}
		switch cur := d.sink.(type) {
		case nopSink:
			d.sink = s
		case multiSink:
			d.sink = append(cur, s)
		default:
			d.sink = multiSink{cur, s}
		}
	}
}

// WithCodecFactory replaces the codec registry lookup.
func WithCodecFactory(f codec.Factory) Option {
	return func(d *Decoder) {
		if f != nil {
			d.newCodec = f
		}
	}
}

// WithSeekTolerance sets how far, in seconds, the head frame may start from
// a seek target before it is trimmed.
func WithSeekTolerance(seconds float64) Option {
	return func(d *Decoder) {
		if seconds >= 0 {
			d.tolerance = seconds
		}
	}
}

// WithMaxConsecutiveErrors caps failures in a row before a fill treats the
// stream as ended.
func WithMaxConsecutiveErrors(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxErrors = n
		}
	}
}

// New returns an unbound decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		logger:    log.Default().WithPrefix("decoder"),
		sink:      nopSink{},
		newCodec:  codec.New,
		tolerance: config.SeekTolerance,
		maxErrors: config.MaxConsecutiveErrors,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Initialize binds src and builds a codec for its best audio stream. A
// decoder that is already bound releases its previous source first.
func (d *Decoder) Initialize(src Source) error {
	if src == nil {
		return &Error{Op: "initialize", Err: errors.New("nil source")}
	}
	if d.bound != nil {
		if err := d.PlaybackCompleted(); err != nil {
			d.logger.Warn("failed to release previous source", "err", err)
		}
	}

	stream, ok := src.AudioStream()
	if !ok {
		return &Error{Op: "initialize", Err: ErrNoAudioStream}
	}
	c, err := d.newCodec(stream)
	if err != nil {
		return &Error{Op: "initialize", Err: fmt.Errorf("failed to open codec: %w", err)}
	}

	d.bound = &binding{src: src, codec: c, stream: stream}
	d.queue.Clear()
	d.state = StateReady
	d.endOfLoop = false
	d.drained = false

	d.logger.Debug("initialized",
		"stream", stream.Index,
		"codec", stream.Codec,
		"rate", stream.SampleRate,
		"channels", stream.Channels)
	return nil
}

// Decode fills a buffer with at most maxSampleCount samples. At end of
// stream the remaining frames are added past the cap and the buffer is
// terminal. Errors are returned only when the decoder is unbound or the
// capacity is invalid.
func (d *Decoder) Decode(maxSampleCount int) (*FrameBuffer, error) {
	return d.fill("decode", maxSampleCount, math.Inf(1), false)
}

// DecodeLoop is Decode bounded by loopEnd seconds. The frame straddling the
// boundary is truncated at it and the buffer is terminal; EndOfLoop then
// reports true until the next seek.
func (d *Decoder) DecodeLoop(maxSampleCount int, loopEnd float64) (*FrameBuffer, error) {
	return d.fill("decode loop", maxSampleCount, loopEnd, true)
}

func (d *Decoder) fill(op string, maxSamples int, loopEnd float64, looping bool) (*FrameBuffer, error) {
	if d.bound == nil {
		return nil, &Error{Op: op, Err: ErrNotInitialized}
	}
	if maxSamples <= 0 {
		return nil, &Error{Op: op, Err: ErrInvalidSize}
	}

	s := d.bound.stream
	buf := NewFrameBuffer(d.bound.codec.Format(), s.Channels, s.SampleRate, maxSamples)
	d.endOfLoop = false

	if d.state == StateEOF {
		d.finish(buf, loopEnd, looping)
		return buf, nil
	}
	d.state = StateDecoding

	failures := 0
	for {
		f, err := d.nextFrame()
		if err != nil {
			if errors.Is(err, container.ErrEOF) {
				d.state = StateEOF
				break
			}
			failures++
			d.report(err)
			if failures >= d.maxErrors {
				d.sink.Report(Diagnostic{Kind: KindErrorLimit, PTS: -1, Err: err})
				d.logger.Error("too many consecutive errors, ending stream", "count", failures, "err", err)
				d.state = StateEOF
				break
			}
			continue
		}
		failures = 0

		if looping {
			start := f.StartTime()
			if loopEnd <= start {
				// The frame stays queued for reads after the loop
				buf.markTerminal()
				d.endOfLoop = true
				break
			}
			if loopEnd <= f.EndTime() {
				d.queue.Pop()
				f.Truncate(samplesIn(loopEnd-start, f.SampleRate))
				buf.AppendTerminal(f)
				d.endOfLoop = true
				break
			}
		}

		if !buf.Append(f) {
			if buf.Samples() == 0 {
				// A lone frame larger than the whole buffer is split so each fill makes progress
				buf.Append(f.Split(maxSamples))
			}
			break
		}
		d.queue.Pop()
	}

	if d.state == StateEOF {
		d.finish(buf, loopEnd, looping)
	} else {
		d.state = StateReady
	}
	return buf, nil
}

// finish moves everything left in the pipeline into buf as terminal frames.
func (d *Decoder) finish(buf *FrameBuffer, loopEnd float64, looping bool) {
	frames := make([]*codec.Frame, 0, d.queue.Len())
	for d.queue.Len() > 0 {
		frames = append(frames, d.queue.Pop())
	}

	if !d.drained {
		d.drained = true
		tail, err := d.bound.codec.Drain()
		if err != nil {
			d.sink.Report(Diagnostic{Kind: KindDrainError, PTS: -1, Err: err})
			d.logger.Warn("failed to drain codec", "err", err)
		}
		frames = append(frames, tail...)
	}

	for _, f := range frames {
		if looping {
			start := f.StartTime()
			if loopEnd <= start {
				d.endOfLoop = true
				break
			}
			if loopEnd <= f.EndTime() {
				f.Truncate(samplesIn(loopEnd-start, f.SampleRate))
				buf.AppendTerminal(f)
				d.endOfLoop = true
				break
			}
		}
		buf.AppendTerminal(f)
	}
	buf.markTerminal()
}

// nextFrame returns the head of the queue, reading and decoding packets
// until one is available. The frame is not dequeued.
func (d *Decoder) nextFrame() (*codec.Frame, error) {
	for d.queue.Len() == 0 {
		pkt, err := d.bound.src.ReadPacket(d.bound.stream.Index)
		if err != nil {
			return nil, err
		}
		if pkt == nil {
			continue
		}
		frames, err := d.bound.codec.Decode(pkt)
		if err != nil {
			return nil, err
		}
		d.queue.Push(frames...)
	}
	return d.queue.Peek(), nil
}

func (d *Decoder) report(err error) {
	diag := Diagnostic{Kind: KindReadError, PTS: -1, Err: err}
	var de *codec.DecodeError
	if errors.As(err, &de) {
		diag.Kind = KindDecodeError
		diag.PTS = de.PTS
	}
	d.sink.Report(diag)
	d.logger.Warn("skipping bad packet", "kind", diag.Kind, "pts", diag.PTS, "err", err)
}

// Stop drops queued frames. The binding survives, so a later Decode or Seek
// carries on.
func (d *Decoder) Stop() {
	d.queue.Clear()
	if d.bound != nil {
		d.state = StateStopped
	}
}

// PlaybackCompleted destroys the source and unbinds the decoder. Calling it
// on an unbound decoder does nothing.
func (d *Decoder) PlaybackCompleted() error {
	if d.bound == nil {
		return nil
	}
	src := d.bound.src
	d.bound = nil
	d.queue.Clear()
	d.state = StateUninitialized
	d.endOfLoop = false
	d.drained = false

	if err := src.Destroy(); err != nil {
		return &Error{Op: "release", Err: err}
	}
	return nil
}

// EOF reports whether the stream has ended.
func (d *Decoder) EOF() bool { return d.state == StateEOF }

// EndOfLoop reports whether the last DecodeLoop reached its boundary.
func (d *Decoder) EndOfLoop() bool { return d.endOfLoop }

// State returns the lifecycle state.
func (d *Decoder) State() State { return d.state }

// Stream returns the bound audio stream.
func (d *Decoder) Stream() (container.Stream, bool) {
	if d.bound == nil {
		return container.Stream{}, false
	}
	return d.bound.stream, true
}

// Format returns the codec's sample format, or FormatNone when unbound.
func (d *Decoder) Format() codec.SampleFormat {
	if d.bound == nil {
		return codec.FormatNone
	}
	return d.bound.codec.Format()
}

// Queued returns the number of decoded frames not yet handed out.
func (d *Decoder) Queued() int { return d.queue.Len() }

// samplesIn converts a duration to a whole sample count, rounding down. The
// epsilon keeps values like 0.3*1000 from landing on 299.
func samplesIn(seconds float64, rate int) int {
	if seconds <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Floor(seconds*float64(rate) + 1e-6))
}
