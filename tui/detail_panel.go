// ABOUTME: Bubble Tea sub-model showing the insights panel (selected node, fragile points, missing variables) in a viewport.
// ABOUTME: Content is the shared markdown rendering, wrapped to the panel width and scrollable with the page keys.
package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/reasonsketch/reasoning"
)

// DetailPanelModel displays the insights for the current selection.
type DetailPanelModel struct {
	view     reasoning.PanelView
	viewport viewport.Model
	width    int
	height   int
}

// NewDetailPanelModel creates a detail panel showing the empty-state prompt.
func NewDetailPanelModel() DetailPanelModel {
	m := DetailPanelModel{viewport: viewport.New(40, 10)}
	m.sync()
	return m
}

// SetView replaces the panel content.
func (m *DetailPanelModel) SetView(v reasoning.PanelView) {
	m.view = v
	m.sync()
	m.viewport.GotoTop()
}

// PanelView returns the panel content currently shown.
func (m DetailPanelModel) PanelView() reasoning.PanelView {
	return m.view
}

// SetSize sets the outer dimensions and resizes the viewport inside the
// border and title.
func (m *DetailPanelModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.viewport.Width = max(w-4, 1)
	m.viewport.Height = max(h-3, 1)
	m.sync()
}

// Update scrolls the viewport.
func (m DetailPanelModel) Update(msg tea.Msg) (DetailPanelModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DetailPanelModel) sync() {
	text := reasoning.PanelMarkdown(m.view)
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(text))
}

// View renders the panel.
func (m DetailPanelModel) View() string {
	body := TitleStyle.Render("INSIGHTS") + "\n" + m.viewport.View()
	style := BorderStyle.Padding(0, 1)
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(body)
}
