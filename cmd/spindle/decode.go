package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/wav"

	"github.com/linuxmatters/spindle/internal/cli"
	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/container"
	"github.com/linuxmatters/spindle/internal/convert"
	"github.com/linuxmatters/spindle/internal/decoder"
)

// DecodeCmd decodes a file to WAV through the decoder, optionally from a
// seek point or over a repeated loop
type DecodeCmd struct {
	Input     string  `arg:"" name:"input" help:"Audio file (WAV, FLAC or MP3)"`
	Output    string  `arg:"" name:"output" help:"Output WAV file"`
	Seek      float64 `help:"Start position in seconds" placeholder:"S"`
	LoopStart float64 `help:"Loop start in seconds" placeholder:"S"`
	LoopEnd   float64 `help:"Loop end in seconds" placeholder:"S"`
	Loops     int     `help:"Number of loop passes to write" default:"1"`
}

func (c *DecodeCmd) Run(g *Globals) error {
	if err := validateInput(c.Input); err != nil {
		return err
	}

	opts := decodeOptions{
		Seek:      c.Seek,
		LoopStart: c.LoopStart,
		LoopEnd:   c.LoopEnd,
		Loops:     c.Loops,
	}
	if err := opts.validate(); err != nil {
		return err
	}

	start := time.Now()
	sum, err := decodeToWAV(c.Input, c.Output, opts, g.Runtime())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	rows := []cli.SummaryRow{
		{Key: "Output", Value: c.Output},
		{Key: "Format", Value: fmt.Sprintf("%d Hz, %d ch, %s", sum.SampleRate, sum.Channels, sum.Format)},
		{Key: "Audio", Value: cli.FormatTimestamp(sum.Seconds())},
		{Key: "Buffers", Value: fmt.Sprintf("%d", sum.Buffers)},
		{Key: "Size", Value: cli.FormatBytes(sum.Bytes)},
		{Key: "Time", Value: cli.FormatDuration(elapsed)},
	}
	if elapsed > 0 {
		rows = append(rows, cli.SummaryRow{Key: "Speed", Value: cli.FormatSpeed(sum.Seconds() / elapsed.Seconds())})
	}
	if opts.looping() {
		rows = append(rows, cli.SummaryRow{Key: "Loops", Value: fmt.Sprintf("%d", sum.Loops)})
	}
	rows = append(rows,
		cli.SummaryRow{Key: "Corrupt", Value: fmt.Sprintf("%d read, %d decode",
			sum.Counters.Count(decoder.KindReadError), sum.Counters.Count(decoder.KindDecodeError))})
	cli.PrintSummary("Decode Complete!", rows)

	if sum.Counters.Count(decoder.KindErrorLimit) > 0 {
		cli.PrintWarning(fmt.Sprintf("stopped early after repeated errors: %v", sum.Counters.Last()))
	}
	return nil
}

type decodeOptions struct {
	Seek      float64
	LoopStart float64
	LoopEnd   float64
	Loops     int
}

func (o decodeOptions) looping() bool {
	return o.LoopEnd > 0
}

func (o decodeOptions) validate() error {
	if o.Seek < 0 {
		return fmt.Errorf("invalid seek position: %.3f", o.Seek)
	}
	if !o.looping() {
		return nil
	}
	if o.LoopStart < 0 || o.LoopEnd <= o.LoopStart {
		return fmt.Errorf("invalid loop range %.3f-%.3f", o.LoopStart, o.LoopEnd)
	}
	if o.Loops < 1 {
		return fmt.Errorf("invalid loop count: %d (must be at least 1)", o.Loops)
	}
	return nil
}

type decodeSummary struct {
	SampleRate int
	Channels   int
	Format     string
	Samples    int
	Buffers    int
	Loops      int
	Bytes      int64
	Counters   *decoder.Counters
}

// Seconds is the length of audio written.
func (s decodeSummary) Seconds() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(s.Samples) / float64(s.SampleRate)
}

// decodeToWAV drives a decoder over input and writes every buffer it
// returns to output.
func decodeToWAV(input, output string, opts decodeOptions, rt *config.Runtime) (decodeSummary, error) {
	sum := decodeSummary{Counters: &decoder.Counters{}}

	ctx, err := container.Open(input)
	if err != nil {
		return sum, err
	}

	dec := decoder.New(
		decoder.WithDiagnostics(sum.Counters),
		decoder.WithSeekTolerance(rt.GetSeekTolerance()),
		decoder.WithMaxConsecutiveErrors(rt.GetMaxErrors()),
	)
	if err := dec.Initialize(ctx); err != nil {
		if derr := ctx.Destroy(); derr != nil {
			log.Warn("failed to close container", "err", derr)
		}
		return sum, err
	}
	defer func() {
		if err := dec.PlaybackCompleted(); err != nil {
			log.Warn("failed to release decoder", "err", err)
		}
	}()

	stream, _ := dec.Stream()
	sum.SampleRate = stream.SampleRate
	sum.Channels = stream.Channels
	sum.Format = dec.Format().String()

	out, err := os.Create(output)
	if err != nil {
		return sum, fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, stream.SampleRate, convert.BitDepth(dec.Format()), stream.Channels, 1)

	write := func(buf *decoder.FrameBuffer) error {
		sum.Buffers++
		if buf.Samples() == 0 {
			return nil
		}
		sum.Samples += buf.Samples()
		if err := enc.Write(convert.IntBuffer(buf)); err != nil {
			return fmt.Errorf("failed to write WAV data: %w", err)
		}
		return nil
	}

	bufferSamples := rt.GetBufferSamples()
	if opts.looping() {
		err = decodeLoop(dec, bufferSamples, opts, write, &sum)
	} else {
		err = decodeLinear(dec, bufferSamples, opts.Seek, write)
	}
	if err != nil {
		return sum, err
	}

	if err := enc.Close(); err != nil {
		return sum, fmt.Errorf("failed to finalize WAV: %w", err)
	}
	if info, err := out.Stat(); err == nil {
		sum.Bytes = info.Size()
	}
	return sum, nil
}

func decodeLinear(dec *decoder.Decoder, bufferSamples int, seek float64, write func(*decoder.FrameBuffer) error) error {
	if seek > 0 {
		if err := dec.Seek(seek); err != nil {
			return err
		}
	}
	for !dec.EOF() {
		buf, err := dec.Decode(bufferSamples)
		if err != nil {
			return err
		}
		if err := write(buf); err != nil {
			return err
		}
		if buf.IsTerminal() {
			break
		}
	}
	return nil
}

func decodeLoop(dec *decoder.Decoder, bufferSamples int, opts decodeOptions, write func(*decoder.FrameBuffer) error, sum *decodeSummary) error {
	if err := dec.Seek(opts.LoopStart); err != nil {
		return err
	}
	for sum.Loops < opts.Loops {
		buf, err := dec.DecodeLoop(bufferSamples, opts.LoopEnd)
		if err != nil {
			return err
		}
		if err := write(buf); err != nil {
			return err
		}
		if !dec.EndOfLoop() && !dec.EOF() {
			continue
		}

		sum.Loops++
		log.Debug("loop pass complete", "pass", sum.Loops)
		if sum.Loops < opts.Loops {
			if err := dec.Seek(opts.LoopStart); err != nil {
				return err
			}
		}
	}
	if dec.EOF() && !dec.EndOfLoop() && sum.Samples == 0 {
		return errors.New("loop range starts past the end of the stream")
	}
	return nil
}
