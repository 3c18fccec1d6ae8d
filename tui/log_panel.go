// ABOUTME: Scrollable activity log built on the bubbles viewport: analysis runs, failures, and node selections.
// ABOUTME: Keeps a bounded number of entries and always scrolls to the newest.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// LogLevel colors an activity entry.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogSuccess
	LogError
)

// LogEntry is one line of activity.
type LogEntry struct {
	Time  time.Time
	Level LogLevel
	Text  string
}

// LogPanelModel is a scrollable activity log.
type LogPanelModel struct {
	entries  []LogEntry
	max      int
	viewport viewport.Model
	width    int
	height   int
}

// NewLogPanelModel creates a log panel holding at most maxEntries lines.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return LogPanelModel{
		entries:  make([]LogEntry, 0, maxEntries),
		max:      maxEntries,
		viewport: viewport.New(40, 5),
	}
}

// Append adds an entry, evicting the oldest at capacity.
func (m *LogPanelModel) Append(level LogLevel, text string) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, LogEntry{Time: time.Now(), Level: level, Text: text})
	m.syncViewport()
}

// Entries returns the retained entries, oldest first.
func (m LogPanelModel) Entries() []LogEntry {
	return m.entries
}

// SetSize sets the outer dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.viewport.Width = max(w-2, 1)
	m.viewport.Height = max(h-3, 1)
	m.syncViewport()
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	content := "No activity yet"
	if len(m.entries) > 0 {
		content = m.viewport.View()
	}
	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(TitleStyle.Render("ACTIVITY") + "\n" + content)
}

func (m *LogPanelModel) syncViewport() {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, formatEntry(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func formatEntry(e LogEntry) string {
	return LogTimestampStyle.Render(e.Time.Format("15:04:05")) + " " + levelStyle(e.Level).Render(e.Text)
}

func levelStyle(l LogLevel) lipgloss.Style {
	switch l {
	case LogSuccess:
		return LogSuccessStyle
	case LogError:
		return LogErrorStyle
	default:
		return LogInfoStyle
	}
}
