// ABOUTME: Lipgloss styles for the terminal panels plus palette-driven styles for node types and link strengths.
// ABOUTME: Colors come from the shared reasoning palette so the terminal matches the SVG output.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/reasonsketch/reasoning"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155"))
	FocusedBorderStyle = BorderStyle.
				BorderForeground(lipgloss.Color("#6366f1"))

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#a5b4fc"))

	// Mode buttons
	ModeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8")).
			Padding(0, 1)
	ActiveModeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#4f46e5")).
			Bold(true).
			Padding(0, 1)

	HelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b"))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true)

	// Activity log
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogInfoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	TooltipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e2e8f0")).
			Background(lipgloss.Color("#1e293b"))
)

// NodeStyle colors a node-type glyph with its palette color.
func NodeStyle(t reasoning.NodeType) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(reasoning.NodeColor(t))).Bold(true)
}

