package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/spindle/internal/cli"
	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/container"
	"github.com/linuxmatters/spindle/internal/decoder"
	"github.com/linuxmatters/spindle/internal/player"
	"github.com/linuxmatters/spindle/internal/ui"
)

// PlayCmd plays a file through the default output device
type PlayCmd struct {
	Input     string  `arg:"" name:"input" help:"Audio file (WAV, FLAC or MP3)"`
	Seek      float64 `help:"Start position in seconds" placeholder:"S"`
	LoopStart float64 `help:"Loop start in seconds" placeholder:"S"`
	LoopEnd   float64 `help:"Loop end in seconds; enables looping from the start" placeholder:"S"`
	LogFile   string  `help:"Write logs to this file while the UI is running" placeholder:"PATH"`
}

func (c *PlayCmd) Run(g *Globals, ctx context.Context) error {
	if err := validateInput(c.Input); err != nil {
		return err
	}
	if c.LoopEnd > 0 && (c.LoopStart < 0 || c.LoopEnd <= c.LoopStart) {
		return fmt.Errorf("invalid loop range %.3f-%.3f", c.LoopStart, c.LoopEnd)
	}

	// The TUI owns the terminal, so logs go to a file or nowhere
	restore, err := redirectLogs(c.LogFile)
	if err != nil {
		return err
	}
	defer restore()

	counters := &decoder.Counters{}
	sum, err := c.play(ctx, g.Runtime(), counters)
	if err != nil {
		return err
	}

	rows := []cli.SummaryRow{
		{Key: "Played to", Value: cli.FormatTimestamp(sum.position)},
		{Key: "Underruns", Value: fmt.Sprintf("%d", sum.underruns)},
		{Key: "Corrupt", Value: fmt.Sprintf("%d", counters.Total())},
	}
	title := "Playback Complete!"
	if !sum.finished {
		title = "Playback Stopped"
	}
	cli.PrintSummary(title, rows)
	return nil
}

type playSummary struct {
	position  float64
	underruns int
	finished  bool
}

func (c *PlayCmd) play(ctx context.Context, rt *config.Runtime, counters *decoder.Counters) (playSummary, error) {
	var sum playSummary

	src, err := container.Open(c.Input)
	if err != nil {
		return sum, err
	}

	dec := decoder.New(
		decoder.WithDiagnostics(counters),
		decoder.WithSeekTolerance(rt.GetSeekTolerance()),
		decoder.WithMaxConsecutiveErrors(rt.GetMaxErrors()),
	)
	if err := dec.Initialize(src); err != nil {
		if derr := src.Destroy(); derr != nil {
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
	sr := beep.SampleRate(stream.SampleRate)
	if err := speaker.Init(sr, sr.N(config.SpeakerBuffer)); err != nil {
		return sum, fmt.Errorf("failed to open audio output: %w", err)
	}
	defer speaker.Close()

	capacity := int(rt.GetMaxBufferedSeconds()*float64(stream.SampleRate)) + rt.GetBufferSamples()
	handoff := player.NewHandoff(stream.SampleRate, capacity)
	worker := player.NewWorker(dec, handoff, player.Options{
		Runtime:     rt,
		Diagnostics: counters,
	})

	if c.LoopEnd > 0 {
		if err := worker.SetLoop(c.LoopStart, c.LoopEnd); err != nil {
			return sum, err
		}
	} else if c.Seek > 0 {
		worker.Seek(c.Seek)
	}

	out := player.NewStreamer(handoff)
	ctrl := &beep.Ctrl{Streamer: out}
	speaker.Play(ctrl)

	model := ui.NewPlayModel(ui.PlayConfig{
		Title:     filepath.Base(c.Input),
		Status:    worker.Status(),
		Control:   worker,
		Meter:     handoff,
		LoopStart: c.LoopStart,
		LoopEnd:   c.LoopEnd,
		Pause: func(paused bool) {
			speaker.Lock()
			ctrl.Paused = paused
			speaker.Unlock()
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		defer worker.Stop()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("running UI: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return sum, err
	}

	speaker.Clear()
	sum.position = model.Position()
	sum.finished = model.Finished()
	speaker.Lock()
	sum.underruns = out.Underruns()
	speaker.Unlock()
	return sum, nil
}

// redirectLogs sends the default logger to path, or discards it when path
// is empty. The returned func restores stderr.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
