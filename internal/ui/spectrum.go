package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Gradient colours from low to high intensity (teal → cyan → amber)
var meterColors = []lipgloss.Color{
	lipgloss.Color("#0F4C45"),
	lipgloss.Color("#0F766E"),
	lipgloss.Color("#0E9F95"),
	lipgloss.Color("#22D3EE"),
	lipgloss.Color("#7DD3C0"),
	lipgloss.Color("#FACC15"),
	lipgloss.Color("#F8B31D"),
	lipgloss.Color("#F97316"),
}

// renderSpectrum draws bar heights in [0, 1] as two rows of block
// characters, sampled down to width columns.
func renderSpectrum(barHeights []float64, width int) string {
	if len(barHeights) == 0 || width <= 0 {
		return ""
	}

	stride := len(barHeights) / width
	if stride == 0 {
		stride = 1
	}

	display := make([]float64, 0, width)
	for i := 0; i < len(barHeights) && len(display) < width; i += stride {
		display = append(display, clamp01(barHeights[i]))
	}

	var result strings.Builder

	// Top row carries the part of each bar above half height
	for _, h := range display {
		if h > 0.5 {
			result.WriteString(block((h-0.5)*2, h))
		} else {
			result.WriteString(" ")
		}
	}
	result.WriteString("\n")

	for _, h := range display {
		if h >= 0.5 {
			result.WriteString(block(1, h))
		} else {
			result.WriteString(block(h*2, h))
		}
	}

	return result.String()
}

// block renders one cell filled to portion, coloured by the bar's overall
// height.
func block(portion, height float64) string {
	idx := int(portion * float64(len(blocks)-1))
	idx = max(0, min(idx, len(blocks)-1))
	colorIdx := int(height * float64(len(meterColors)-1))
	colorIdx = max(0, min(colorIdx, len(meterColors)-1))
	return lipgloss.NewStyle().Foreground(meterColors[colorIdx]).Render(string(blocks[idx]))
}

// makeLevelBar renders a horizontal level meter for a value in [0, 1].
func makeLevelBar(ratio float64, width int) string {
	filled := int(clamp01(ratio) * float64(width))

	var result strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			pos := float64(i) / float64(width)
			colorIdx := min(int(pos*float64(len(meterColors))), len(meterColors)-1)
			result.WriteString(lipgloss.NewStyle().Foreground(meterColors[colorIdx]).Render("█"))
		} else {
			result.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#2A2A2A")).Render("░"))
		}
	}
	return result.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
