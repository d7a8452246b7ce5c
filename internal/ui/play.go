package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/spindle/internal/cli"
	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/meter"
	"github.com/linuxmatters/spindle/internal/player"
)

// Controller is the part of the player worker the UI drives.
type Controller interface {
	Seek(seconds float64)
	SetLoop(start, end float64) error
	ClearLoop()
}

// MeterSource hands out samples that have already reached the speaker.
type MeterSource interface {
	ReadForMeter(n int) [][2]float64
}

// PlayConfig wires a PlayModel to a running worker.
type PlayConfig struct {
	Title   string
	Status  <-chan player.Status
	Control Controller
	Meter   MeterSource

	// Pause is called with the new pause state; nil disables pausing
	Pause func(paused bool)

	// Loop range toggled by the loop key. A zero LoopEnd loops
	// config.SeekStep from the playhead instead.
	LoopStart float64
	LoopEnd   float64
}

// StatusMsg carries a worker status snapshot into the model.
type StatusMsg player.Status

type statusClosedMsg struct{}

type meterTickMsg time.Time

// meterInterval is the spectrum refresh rate
const meterInterval = 50 * time.Millisecond

// PlayModel implements the Bubbletea model for playback
type PlayModel struct {
	cfg         PlayConfig
	progressBar progress.Model
	analyzer    *meter.Analyzer
	mono        []float64

	status     player.Status
	haveStatus bool
	reading    meter.Reading
	paused     bool
	finished   bool
	quit       bool
	lastErr    error
	width      int
}

// NewPlayModel creates the playback UI model
func NewPlayModel(cfg PlayConfig) *PlayModel {
	p := progress.New(
		progress.WithGradient(string(cli.SpindleTeal), string(cli.SpindleAmber)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)
	return &PlayModel{
		cfg:         cfg,
		progressBar: p,
		analyzer:    meter.NewAnalyzer(config.NumBars),
	}
}

// Init starts listening for status updates and schedules the first meter
// refresh
func (m *PlayModel) Init() tea.Cmd {
	return tea.Batch(waitForStatus(m.cfg.Status), meterTick())
}

func waitForStatus(ch <-chan player.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return statusClosedMsg{}
		}
		return StatusMsg(st)
	}
}

func meterTick() tea.Cmd {
	return tea.Tick(meterInterval, func(t time.Time) tea.Msg {
		return meterTickMsg(t)
	})
}

// Update handles messages
func (m *PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(10, min(msg.Width-30, 60))
		return m, nil

	case StatusMsg:
		m.status = player.Status(msg)
		m.haveStatus = true
		if m.status.EOF && !m.status.Looping && m.status.Buffered <= 0 {
			m.finished = true
			return m, tea.Quit
		}
		return m, waitForStatus(m.cfg.Status)

	case statusClosedMsg:
		m.finished = true
		return m, tea.Quit

	case meterTickMsg:
		m.updateMeter()
		return m, meterTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *PlayModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := config.SeekStep.Seconds()

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quit = true
		return m, tea.Quit

	case " ", "space":
		if m.cfg.Pause != nil {
			m.paused = !m.paused
			m.cfg.Pause(m.paused)
		}

	case "left":
		m.cfg.Control.Seek(math.Max(0, m.status.Position-step))

	case "right":
		target := m.status.Position + step
		if m.status.Duration > 0 {
			target = math.Min(target, m.status.Duration)
		}
		m.cfg.Control.Seek(target)

	case "l":
		m.toggleLoop()
	}
	return m, nil
}

func (m *PlayModel) toggleLoop() {
	if m.status.Looping {
		m.cfg.Control.ClearLoop()
		m.status.Looping = false
		return
	}

	start, end := m.cfg.LoopStart, m.cfg.LoopEnd
	if end <= start {
		start = m.status.Position
		end = start + config.SeekStep.Seconds()
		if m.status.Duration > 0 {
			end = math.Min(end, m.status.Duration)
		}
	}
	if err := m.cfg.Control.SetLoop(start, end); err != nil {
		m.lastErr = err
		return
	}
	m.lastErr = nil
	m.status.Looping = true
	m.status.LoopStart, m.status.LoopEnd = start, end
}

func (m *PlayModel) updateMeter() {
	if m.cfg.Meter == nil || m.paused {
		return
	}
	samples := m.cfg.Meter.ReadForMeter(config.FFTSize)
	if len(samples) == 0 {
		return
	}

	m.mono = m.mono[:0]
	for _, s := range samples {
		m.mono = append(m.mono, (s[0]+s[1])/2)
	}
	reading, err := m.analyzer.Push(m.mono)
	if err != nil {
		m.lastErr = err
		return
	}
	m.reading = reading
}

// Finished reports whether playback reached the end of the file.
func (m *PlayModel) Finished() bool { return m.finished }

// Quit reports whether the user asked to stop.
func (m *PlayModel) Quit() bool { return m.quit }

// Position returns the last reported playhead in seconds.
func (m *PlayModel) Position() float64 { return m.status.Position }

// View renders the UI
func (m *PlayModel) View() string {
	var s strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.SpindleTeal).
		Render("Spindle 🎧")
	s.WriteString(title)
	if m.cfg.Title != "" {
		s.WriteString("  ")
		s.WriteString(lipgloss.NewStyle().Faint(true).Render(m.cfg.Title))
	}
	s.WriteString("\n\n")

	m.renderTransport(&s)
	s.WriteString("\n\n")

	if len(m.reading.Bars) > 0 {
		s.WriteString(renderSpectrum(m.reading.Bars, min(max(m.width-6, 0), 76)))
		s.WriteString("\n\n")
	}

	m.renderStats(&s)
	s.WriteString("\n\n")

	help := "space pause  •  ←/→ seek  •  l loop  •  q quit"
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(help))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.SpindleTeal).
		Padding(1, 2).
		Render(s.String()) + "\n"
}

func (m *PlayModel) renderTransport(s *strings.Builder) {
	state := "▶"
	switch {
	case m.paused:
		state = "⏸"
	case !m.haveStatus:
		state = "…"
	}
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.SpindleAmber).Render(state))
	s.WriteString(" ")

	ratio := 0.0
	if m.status.Duration > 0 {
		ratio = m.status.Position / m.status.Duration
	}
	s.WriteString(m.progressBar.ViewAs(clamp01(ratio)))
	s.WriteString(fmt.Sprintf("  %s / %s",
		cli.FormatTimestamp(m.status.Position),
		cli.FormatTimestamp(m.status.Duration)))
}

func (m *PlayModel) renderStats(s *strings.Builder) {
	labelStyle := lipgloss.NewStyle().Faint(true)

	s.WriteString(labelStyle.Render("Level:    "))
	s.WriteString(makeLevelBar(m.reading.Peak, 20))
	s.WriteString(fmt.Sprintf("  peak %s  rms %s\n", formatDB(m.reading.Peak), formatDB(m.reading.RMS)))

	s.WriteString(labelStyle.Render("Buffered: "))
	s.WriteString(fmt.Sprintf("%4.2fs", m.status.Buffered))
	s.WriteString("  │  ")
	s.WriteString(labelStyle.Render("Loop: "))
	if m.status.Looping {
		s.WriteString(fmt.Sprintf("%s–%s ×%d",
			cli.FormatTimestamp(m.status.LoopStart),
			cli.FormatTimestamp(m.status.LoopEnd),
			m.status.Loops))
	} else {
		s.WriteString("off")
	}
	s.WriteString("  │  ")
	s.WriteString(labelStyle.Render("Corrupt: "))
	corrupt := fmt.Sprintf("%d", m.status.Corrupt)
	if m.status.Corrupt > 0 {
		corrupt = cli.ErrorStyle.Render(corrupt)
	}
	s.WriteString(corrupt)

	if m.lastErr != nil {
		s.WriteString("\n")
		s.WriteString(cli.ErrorStyle.Render(m.lastErr.Error()))
	}
}

func formatDB(v float64) string {
	if v <= 0 {
		return "  -inf dB"
	}
	return fmt.Sprintf("%6.1f dB", 20*math.Log10(v))
}
