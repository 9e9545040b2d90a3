package debugger

import "github.com/charmbracelet/lipgloss"

// Breakpoint and stop glyphs, readable without color.
const (
	GlyphVerified = "●"
	GlyphPending  = "○"
	GlyphStopped  = "▸"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan)

var (
	taskStyle = lipgloss.NewStyle().
			Bold(true)

	verifiedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	stoppedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
