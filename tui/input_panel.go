// ABOUTME: Input screen: mode buttons, a bubbles textarea for the argument, and the example loader.
// ABOUTME: tab cycles the mode, ctrl+e loads the example argument; submission is handled by the app.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/reasonsketch/reasoning"
)

const inputPlaceholder = "Paste an argument, a decision memo, or a paragraph of reasoning..."

// InputPanelModel collects the text and mode for an analysis.
type InputPanelModel struct {
	textarea textarea.Model
	mode     reasoning.Mode
	err      string
	width    int
	height   int
}

// NewInputPanelModel creates a focused input panel.
func NewInputPanelModel(mode reasoning.Mode) InputPanelModel {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Focus()
	return InputPanelModel{textarea: ta, mode: mode}
}

// Mode returns the selected analysis mode.
func (m InputPanelModel) Mode() reasoning.Mode { return m.mode }

// Value returns the entered text.
func (m InputPanelModel) Value() string { return m.textarea.Value() }

// SetValue replaces the entered text.
func (m *InputPanelModel) SetValue(s string) { m.textarea.SetValue(s) }

// SetError shows msg under the textarea; an empty msg clears it.
func (m *InputPanelModel) SetError(msg string) { m.err = msg }

// Error returns the message shown under the textarea.
func (m InputPanelModel) Error() string { return m.err }

// SetSize sets the panel size and the textarea inside it.
func (m *InputPanelModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.textarea.SetWidth(max(w-4, 10))
	m.textarea.SetHeight(max(h-8, 3))
}

// nextMode cycles through the modes in display order.
func nextMode(cur reasoning.Mode) reasoning.Mode {
	modes := reasoning.Modes()
	for i, mode := range modes {
		if mode == cur {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

// Update handles mode cycling and the example loader, forwarding everything
// else to the textarea.
func (m InputPanelModel) Update(msg tea.Msg) (InputPanelModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			m.mode = nextMode(m.mode)
			return m, nil
		case "ctrl+e":
			m.textarea.SetValue(reasoning.ExampleArgument)
			m.err = ""
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// View renders the mode buttons, textarea, errors, and key help.
func (m InputPanelModel) View() string {
	buttons := make([]string, 0, len(reasoning.Modes()))
	for _, mode := range reasoning.Modes() {
		style := ModeStyle
		if mode == m.mode {
			style = ActiveModeStyle
		}
		buttons = append(buttons, style.Render(mode.Label()))
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("INPUT REASONING"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(ErrorStyle.Render(m.err))
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("tab mode · ctrl+e load example argument · ctrl+s analyze structure · ctrl+c quit"))

	style := BorderStyle.Padding(0, 1)
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(b.String())
}
