package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/linuxmatters/spindle/internal/cli"
	"github.com/linuxmatters/spindle/internal/config"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// versionFlag prints the styled version banner and exits before any
// command validation runs
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong) error {
	cli.PrintVersion(version)
	app.Exit(0)
	return nil
}

// Globals are flags shared by every command
type Globals struct {
	Debug     bool        `help:"Enable debug logging"`
	Buffer    int         `help:"Maximum samples per decoded buffer" default:"0" placeholder:"N"`
	Tolerance float64     `help:"Seek correction threshold in seconds, negative for the built-in value" default:"-1" placeholder:"S"`
	Version   versionFlag `help:"Show version information"`
}

// Runtime builds the engine configuration from the global flags
func (g *Globals) Runtime() *config.Runtime {
	rt := &config.Runtime{BufferSamples: g.Buffer}
	if g.Tolerance >= 0 {
		tol := g.Tolerance
		rt.SeekTolerance = &tol
	}
	return rt
}

var CLI struct {
	Globals

	Probe  ProbeCmd  `cmd:"" help:"Show the container format, streams and metadata"`
	Decode DecodeCmd `cmd:"" help:"Decode the audio stream to a WAV file"`
	Play   PlayCmd   `cmd:"" help:"Play the audio stream with a live meter"`
	Art    ArtCmd    `cmd:"" help:"Export the embedded cover as a captioned PNG"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("spindle"),
		kong.Description("Decode, seek and loop audio files with sample accuracy."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if CLI.Debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx.BindTo(sigCtx, (*context.Context)(nil))

	if err := ctx.Run(&CLI.Globals); err != nil {
		cli.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

// validateInput checks that path names an existing regular file
func validateInput(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("input is a directory: %s", path)
	}
	return nil
}
