// ABOUTME: Single-line status bar showing mode, graph size, layout temperature, tick count, and zoom.
// ABOUTME: While an analysis runs it shows the elapsed time instead.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/scene"
)

// StatusBarModel displays session status in a single line.
type StatusBarModel struct {
	mode      reasoning.Mode
	stats     scene.Stats
	startTime time.Time
	analyzing bool
	width     int
}

// NewStatusBarModel creates a status bar for the given mode.
func NewStatusBarModel(mode reasoning.Mode) StatusBarModel {
	return StatusBarModel{mode: mode}
}

// SetMode updates the displayed mode.
func (m *StatusBarModel) SetMode(mode reasoning.Mode) { m.mode = mode }

// Start marks an analysis as running from now.
func (m *StatusBarModel) Start() {
	m.startTime = time.Now()
	m.analyzing = true
}

// Stop marks the analysis finished.
func (m *StatusBarModel) Stop() { m.analyzing = false }

// SetStats records the latest layout stats.
func (m *StatusBarModel) SetStats(st scene.Stats) { m.stats = st }

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) { m.width = w }

// Elapsed returns the time since Start() was called, or zero if not started.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	return time.Since(m.startTime)
}

// formatElapsed formats a duration as "12s" or "2m30s".
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// Content returns the unstyled status text.
func (m StatusBarModel) Content() string {
	if m.analyzing {
		return fmt.Sprintf("%s | Analyzing... %s", m.mode.Label(), formatElapsed(m.Elapsed()))
	}
	st := m.stats
	text := fmt.Sprintf("%s | %d nodes | %d links | alpha %.3f | %d ticks | zoom %.0f%%",
		m.mode.Label(), st.Nodes, st.Links, st.Alpha, st.Ticks, st.Scale*100)
	if st.Dropped > 0 {
		text += fmt.Sprintf(" | %d dropped", st.Dropped)
	}
	return text
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(m.Content()))
}
