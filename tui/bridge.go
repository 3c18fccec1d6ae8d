// ABOUTME: tea.Cmd factories connecting the analyzer and the frame clock to the Bubble Tea message loop.
// ABOUTME: The layout is stepped from TickMsg on the UI goroutine, so no runner goroutine is involved.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/reasonsketch/reasoning"
)

// Analyzer produces an analysis for free-form reasoning text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, mode reasoning.Mode) (*reasoning.AnalysisResponse, error)
}

// AnalyzeCmd runs the analyzer off the UI goroutine and reports the outcome
// as an AnalysisResultMsg.
func AnalyzeCmd(ctx context.Context, a Analyzer, text string, mode reasoning.Mode) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		resp, err := a.Analyze(ctx, text, mode)
		return AnalysisResultMsg{Mode: mode, Response: resp, Err: err, Elapsed: time.Since(start)}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
