package main

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/spindle/internal/cli"
	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/container"
	"github.com/linuxmatters/spindle/internal/convert"
	"github.com/linuxmatters/spindle/internal/decoder"
	"github.com/linuxmatters/spindle/internal/meter"
)

// ProbeCmd prints what a file contains without decoding it
type ProbeCmd struct {
	Input   string `arg:"" name:"input" help:"Audio file (WAV, FLAC or MP3)"`
	Analyze bool   `help:"Decode the whole stream and report levels"`
}

func (c *ProbeCmd) Run(g *Globals) error {
	if err := validateInput(c.Input); err != nil {
		return err
	}

	ctx, err := container.Open(c.Input)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctx.Destroy(); err != nil {
			log.Warn("failed to close container", "err", err)
		}
	}()

	cli.PrintBanner()
	cli.PrintSection(filepath.Base(ctx.Path()))
	cli.PrintInfo("Format", ctx.Format())
	cli.PrintInfo("Duration", cli.FormatTimestamp(ctx.Duration()))

	best, _ := ctx.AudioStream()
	cover, hasCover := ctx.ImageStream()

	cli.PrintSection("Streams")
	for _, s := range ctx.Streams() {
		mark := ""
		switch {
		case s.Type == container.MediaAudio && s.Index == best.Index:
			mark = " (selected)"
		case hasCover && s.Type == container.MediaImage && s.Index == cover.Index:
			mark = " (cover)"
		}
		fmt.Println("  " + s.String() + mark)
	}

	if md := ctx.Metadata(); len(md) > 0 {
		cli.PrintSection("Metadata")
		keys := make([]string, 0, len(md))
		for k := range md {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cli.PrintInfo("  "+k, md[k])
		}
	}

	if !c.Analyze {
		return nil
	}

	start := time.Now()
	prof, counters, err := analyzeStream(c.Input, g.Runtime())
	if err != nil {
		return err
	}
	cli.PrintSummary("Analysis Complete!", []cli.SummaryRow{
		{Key: "Decoded", Value: cli.FormatTimestamp(prof.Duration())},
		{Key: "Peak Level", Value: formatDB(prof.Peak)},
		{Key: "RMS Level", Value: formatDB(prof.RMS)},
		{Key: "Dynamic Range", Value: fmt.Sprintf("%.1f dB", prof.DynamicRange)},
		{Key: "Meter Scale", Value: fmt.Sprintf("%.4f", prof.OptimalBaseScale)},
		{Key: "Corrupt", Value: fmt.Sprintf("%d", counters.Total())},
		{Key: "Time", Value: cli.FormatDuration(time.Since(start))},
	})
	return nil
}

// analyzeStream decodes every buffer of input and profiles it as mono.
func analyzeStream(input string, rt *config.Runtime) (meter.Profile, *decoder.Counters, error) {
	counters := &decoder.Counters{}

	src, err := container.Open(input)
	if err != nil {
		return meter.Profile{}, counters, err
	}
	dec := decoder.New(
		decoder.WithDiagnostics(counters),
		decoder.WithMaxConsecutiveErrors(rt.GetMaxErrors()),
	)
	if err := dec.Initialize(src); err != nil {
		if derr := src.Destroy(); derr != nil {
			log.Warn("failed to close container", "err", derr)
		}
		return meter.Profile{}, counters, err
	}
	defer func() {
		if err := dec.PlaybackCompleted(); err != nil {
			log.Warn("failed to release decoder", "err", err)
		}
	}()

	stream, _ := dec.Stream()
	profiler := meter.NewProfiler(stream.SampleRate, config.NumBars)
	for !dec.EOF() {
		buf, err := dec.Decode(rt.GetBufferSamples())
		if err != nil {
			return meter.Profile{}, counters, err
		}
		if err := profiler.Add(convert.Mono(buf)); err != nil {
			return meter.Profile{}, counters, err
		}
		if buf.IsTerminal() {
			break
		}
	}

	prof, err := profiler.Profile()
	return prof, counters, err
}

func formatDB(v float64) string {
	if v <= 0 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", 20*math.Log10(v))
}
