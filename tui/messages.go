// ABOUTME: Bubble Tea message types used in the terminal message loop.
// ABOUTME: Each type wraps an analysis outcome or a frame tick for the tea.Msg interface.
package tui

import (
	"time"

	"github.com/2389-research/reasonsketch/reasoning"
)

// AnalysisResultMsg carries the outcome of one analyzer call.
type AnalysisResultMsg struct {
	Mode     reasoning.Mode
	Response *reasoning.AnalysisResponse
	Err      error
	Elapsed  time.Duration
}

// TickMsg is sent once per frame to advance the layout, or to animate the
// spinner while an analysis is running.
type TickMsg struct {
	Time time.Time
}
