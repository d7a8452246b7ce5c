package cli

import "github.com/charmbracelet/lipgloss"

// Shared palette for consistent branding across CLI and TUI
var (
	// Core colours (deep to bright)
	SpindleTeal   = lipgloss.Color("#0F766E")
	SpindleCyan   = lipgloss.Color("#22D3EE")
	SpindleAmber  = lipgloss.Color("#F8B31D")
	SpindleOrange = lipgloss.Color("#F97316")

	// Accent colours
	SlateGray = lipgloss.Color("#94A3B8") // Subtle text
)
