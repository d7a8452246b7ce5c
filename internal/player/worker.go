package player

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/convert"
	"github.com/linuxmatters/spindle/internal/decoder"
)

// Status is a snapshot of the worker published after each fill and while
// idle.
type Status struct {
	Position  float64
	Duration  float64
	Buffered  float64
	EOF       bool
	Looping   bool
	LoopStart float64
	LoopEnd   float64
	Loops     int
	Corrupt   int
	State     decoder.State
}

type commandKind int

const (
	cmdSeek commandKind = iota
	cmdSetLoop
	cmdClearLoop
	cmdStop
)

type command struct {
	kind       commandKind
	start, end float64
}

type span struct {
	start, end float64
}

// Options tune a Worker. Zero values fall back to config defaults.
type Options struct {
	Runtime     *config.Runtime
	Diagnostics *decoder.Counters
	Logger      *log.Logger
	Poll        time.Duration
}

// Worker is the single goroutine that owns a decoder for one file. All
// decoder calls happen inside Run; other goroutines talk to it through
// commands and read its Status channel.
type Worker struct {
	dec *decoder.Decoder
	out *Handoff

	bufferSamples int
	maxBuffered   float64
	poll          time.Duration
	counters      *decoder.Counters
	logger        *log.Logger

	duration float64
	loop     *span
	loops    int

	cmds   chan command
	status chan Status
	done   chan struct{}
}

// NewWorker wires a bound decoder to out.
func NewWorker(dec *decoder.Decoder, out *Handoff, opts Options) *Worker {
	rt := opts.Runtime
	if rt == nil {
		rt = &config.Runtime{}
	}
	w := &Worker{
		dec:           dec,
		out:           out,
		bufferSamples: rt.GetBufferSamples(),
		maxBuffered:   rt.GetMaxBufferedSeconds(),
		poll:          opts.Poll,
		counters:      opts.Diagnostics,
		logger:        opts.Logger,
		cmds:          make(chan command, 16),
		status:        make(chan Status, 1),
		done:          make(chan struct{}),
	}
	if w.poll <= 0 {
		w.poll = config.StatusInterval
	}
	if w.counters == nil {
		w.counters = &decoder.Counters{}
	}
	if w.logger == nil {
		w.logger = log.Default().WithPrefix("player")
	}
	if s, ok := dec.Stream(); ok {
		w.duration = s.DurationSeconds()
	}
	return w
}

// Status returns the channel of status snapshots. Only the latest snapshot
// is kept; the channel is closed when Run returns.
func (w *Worker) Status() <-chan Status {
	return w.status
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Seek moves playback to seconds.
func (w *Worker) Seek(seconds float64) {
	w.send(command{kind: cmdSeek, start: seconds})
}

// SetLoop repeats [start, end) until cleared.
func (w *Worker) SetLoop(start, end float64) error {
	if start < 0 || end <= start {
		return fmt.Errorf("invalid loop range %.3f-%.3f", start, end)
	}
	w.send(command{kind: cmdSetLoop, start: start, end: end})
	return nil
}

// ClearLoop lets playback continue past the loop end.
func (w *Worker) ClearLoop() {
	w.send(command{kind: cmdClearLoop})
}

// Stop ends Run.
func (w *Worker) Stop() {
	w.send(command{kind: cmdStop})
}

func (w *Worker) send(c command) {
	select {
	case w.cmds <- c:
	case <-w.done:
	}
}

// Run fills the handoff until stopped or ctx ends. Commands are handled
// between fills; while the handoff is full or the stream has ended the
// worker waits on a ticker.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)
	defer close(w.status)
	defer w.out.Close()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.dec.Stop()
			return nil
		case cmd := <-w.cmds:
			if w.handle(cmd) {
				return nil
			}
			continue
		default:
		}

		if w.dec.EOF() || w.out.BufferedSeconds() >= w.maxBuffered {
			w.publish()
			select {
			case <-ctx.Done():
				w.dec.Stop()
				return nil
			case cmd := <-w.cmds:
				if w.handle(cmd) {
					return nil
				}
			case <-ticker.C:
				w.out.Compact()
			}
			continue
		}

		if err := w.fill(); err != nil {
			return err
		}
		w.publish()
	}
}

func (w *Worker) fill() error {
	var (
		buf *decoder.FrameBuffer
		err error
	)
	if w.loop != nil {
		buf, err = w.dec.DecodeLoop(w.bufferSamples, w.loop.end)
	} else {
		buf, err = w.dec.Decode(w.bufferSamples)
	}
	if err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	if buf.Samples() > 0 {
		start, _ := buf.StartTime()
		if err := w.out.Write(start, convert.Stereo(buf)); err != nil {
			return fmt.Errorf("failed to hand off samples: %w", err)
		}
	}

	// A loop that runs past the end of the stream restarts there too
	if w.loop != nil && (w.dec.EndOfLoop() || w.dec.EOF()) {
		w.loops++
		w.logger.Debug("loop restart", "start", w.loop.start, "count", w.loops)
		if err := w.dec.Seek(w.loop.start); err != nil {
			return fmt.Errorf("failed to restart loop: %w", err)
		}
	}
	return nil
}

// handle applies one command and reports whether the worker should exit.
func (w *Worker) handle(c command) bool {
	switch c.kind {
	case cmdSeek:
		w.seek(c.start)
	case cmdSetLoop:
		w.loop = &span{start: c.start, end: c.end}
		w.loops = 0
		if pos := w.out.Played(); pos < c.start || pos >= c.end {
			w.seek(c.start)
		}
	case cmdClearLoop:
		w.loop = nil
	case cmdStop:
		w.dec.Stop()
		return true
	}
	w.publish()
	return false
}

func (w *Worker) seek(target float64) {
	if target < 0 {
		target = 0
	}
	if w.duration > 0 && target > w.duration {
		target = w.duration
	}
	if err := w.dec.Seek(target); err != nil {
		w.logger.Warn("seek failed", "target", target, "err", err)
		return
	}
	w.out.Reset(target)
}

func (w *Worker) publish() {
	st := Status{
		Position: w.out.Played(),
		Duration: w.duration,
		Buffered: w.out.BufferedSeconds(),
		EOF:      w.dec.EOF(),
		Looping:  w.loop != nil,
		Loops:    w.loops,
		Corrupt:  w.counters.Total(),
		State:    w.dec.State(),
	}
	if w.loop != nil {
		st.LoopStart = w.loop.start
		st.LoopEnd = w.loop.end
	}

	// Replace any snapshot the reader has not picked up yet
	select {
	case <-w.status:
	default:
	}
	select {
	case w.status <- st:
	default:
	}
}
