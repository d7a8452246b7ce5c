package decoder

import (
	"sync"
)

// Kind classifies a swallowed failure.
type Kind int

const (
	// KindReadError is a packet the container could not read
	KindReadError Kind = iota
	// KindDecodeError is a packet the codec could not decode
	KindDecodeError
	// KindDrainError is a codec failure while draining at end of stream
	KindDrainError
	// KindErrorLimit means a fill gave up after too many failures in a row
	KindErrorLimit
)

func (k Kind) String() string {
	switch k {
	case KindReadError:
		return "read"
	case KindDecodeError:
		return "decode"
	case KindDrainError:
		return "drain"
	case KindErrorLimit:
		return "error-limit"
	default:
		return "unknown"
	}
}

// Diagnostic describes one failure the decoder recovered from.
type Diagnostic struct {
	Kind Kind
	PTS  int64 // -1 when unknown
	Err  error
}

// Sink receives diagnostics from the decode loops. Report is called on the
// decoding goroutine and must not block.
type Sink interface {
	Report(Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Report(d Diagnostic) { f(d) }

type nopSink struct{}

func (nopSink) Report(Diagnostic) {}

// Counters is a Sink that counts diagnostics per kind. It is safe to read
// from another goroutine while the decoder reports into it.
type Counters struct {
	mu     sync.Mutex
	counts map[Kind]int
	last   error
}

func (c *Counters) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[Kind]int)
	}
	c.counts[d.Kind]++
	c.last = d.Err
}

// Count returns how many diagnostics of kind were reported.
func (c *Counters) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

// Total returns the number of diagnostics of every kind.
func (c *Counters) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Last returns the most recent error reported, if any.
func (c *Counters) Last() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// multiSink fans a diagnostic out to several sinks.
type multiSink []Sink

func (m multiSink) Report(d Diagnostic) {
	for _, s := range m {
		s.Report(d)
	}
}
