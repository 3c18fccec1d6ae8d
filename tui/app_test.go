// ABOUTME: Tests for the top-level AppModel: input handling, analysis results, frame ticks, and node selection.
// ABOUTME: Surfaces run on manual ticks, so every test is deterministic and leaves no goroutines behind.
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/goleak"

	"github.com/2389-research/reasonsketch/analysis"
	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
)

func TestMain(m *testing.M) {
	// genai's opencensus dependency starts a stats worker from init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testAnalysis() *reasoning.AnalysisResponse {
	return &reasoning.AnalysisResponse{
		ReasoningMap: reasoning.ReasoningMap{
			Nodes: []reasoning.Node{
				{ID: "n1", Text: "We should ban all cars from the city center", Type: reasoning.TypeNormative},
				{ID: "n2", Text: "Pollution is making kids sick", Type: reasoning.TypeCausal},
				{ID: "n3", Text: "A study on Twitter", Type: reasoning.TypeAnecdotal},
			},
			Links: []reasoning.Link{
				{From: "n2", To: "n1", Strength: reasoning.StrengthSupported},
				{From: "n3", To: "n1", Strength: reasoning.StrengthWeak},
			},
		},
		FragilePoints:    []reasoning.FragilePoint{{NodeID: "n3", WhyFragile: "Unsourced"}},
		MissingVariables: []string{"public transit capacity"},
	}
}

type stubAnalyzer struct {
	resp *reasoning.AnalysisResponse
	err  error
	text string
	mode reasoning.Mode
}

func (a *stubAnalyzer) Analyze(_ context.Context, text string, mode reasoning.Mode) (*reasoning.AnalysisResponse, error) {
	a.text, a.mode = text, mode
	return a.resp, a.err
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return am, cmd
}

func newApp(t *testing.T, opts Options) AppModel {
	t.Helper()
	m := NewAppModel(context.Background(), opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestAppStartsOnInput(t *testing.T) {
	m := newApp(t, Options{})
	if m.Screen() != ScreenInput {
		t.Fatalf("screen = %v, want input", m.Screen())
	}
	if m.Init() != nil {
		t.Error("input screen should not start the frame clock")
	}
	view := m.View()
	for _, want := range []string{"INPUT REASONING", "MAP REASONING", "ctrl+e load example argument"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestAppInputKeys(t *testing.T) {
	m := newApp(t, Options{})

	m, _ = update(t, m, key(tea.KeyTab))
	if m.input.Mode() != reasoning.ModeRewrite {
		t.Errorf("tab should cycle to rewrite, got %s", m.input.Mode())
	}
	m, _ = update(t, m, key(tea.KeyCtrlE))
	if m.input.Value() != reasoning.ExampleArgument {
		t.Error("ctrl+e should load the example argument")
	}
}

func TestAppSubmitValidation(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		text     string
		want     string
	}{
		{"blank", &stubAnalyzer{}, "   ", "Enter some reasoning to analyze."},
		{"no analyzer", nil, "Ban cars.", analysis.UserMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newApp(t, Options{Analyzer: tt.analyzer, Text: tt.text})
			m, cmd := update(t, m, key(tea.KeyCtrlS))
			if cmd != nil {
				t.Error("no command expected")
			}
			if m.Screen() != ScreenInput || m.input.Error() != tt.want {
				t.Errorf("screen %v error %q, want input and %q", m.Screen(), m.input.Error(), tt.want)
			}
		})
	}
}

func TestAppAnalyzeFlow(t *testing.T) {
	a := &stubAnalyzer{resp: testAnalysis()}
	m := newApp(t, Options{Analyzer: a, Mode: reasoning.ModeTeach, Text: "Ban cars."})

	m, cmd := update(t, m, key(tea.KeyCtrlS))
	if cmd == nil || m.Screen() != ScreenAnalyzing {
		t.Fatalf("ctrl+s should start analysis, screen %v", m.Screen())
	}
	if !strings.Contains(m.View(), "Analyzing structure") {
		t.Error("analyzing screen should show progress")
	}

	msg := AnalyzeCmd(context.Background(), a, "Ban cars.", reasoning.ModeTeach)()
	if a.mode != reasoning.ModeTeach || a.text != "Ban cars." {
		t.Errorf("analyzer got %q %s", a.text, a.mode)
	}
	m, cmd = update(t, m, msg)
	t.Cleanup(m.Close)
	if m.Screen() != ScreenGraph || m.Surface() == nil {
		t.Fatalf("result should open the graph, screen %v", m.Screen())
	}
	if cmd == nil {
		t.Error("graph screen should start the frame clock")
	}
	if got := m.Surface().Stats().Nodes; got != 3 {
		t.Errorf("surface nodes = %d, want 3", got)
	}
	view := m.View()
	for _, want := range []string{"STRUCTURAL DECOMPOSITION", "INSIGHTS", "Fragile Points", "ACTIVITY"} {
		if !strings.Contains(view, want) {
			t.Errorf("graph view missing %q", want)
		}
	}
}

func TestAppAnalysisFailure(t *testing.T) {
	a := &stubAnalyzer{err: errors.New("provider down")}
	m := newApp(t, Options{Analyzer: a, Text: "Ban cars."})
	m, _ = update(t, m, key(tea.KeyCtrlS))
	m, _ = update(t, m, AnalysisResultMsg{Mode: reasoning.ModeMap, Err: a.err})

	if m.Screen() != ScreenInput {
		t.Fatalf("failure should return to input, got %v", m.Screen())
	}
	if m.input.Error() != analysis.UserMessage {
		t.Errorf("error = %q", m.input.Error())
	}
	entries := m.log.Entries()
	if len(entries) == 0 || entries[len(entries)-1].Level != LogError {
		t.Errorf("failure should be logged: %+v", entries)
	}
}

func TestAppIgnoresStaleResult(t *testing.T) {
	m := newApp(t, Options{})
	m, _ = update(t, m, AnalysisResultMsg{Response: testAnalysis()})
	if m.Screen() != ScreenInput || m.Surface() != nil {
		t.Error("a result with no analysis in flight should be ignored")
	}
}

func TestAppTickAdvancesLayout(t *testing.T) {
	m := newApp(t, Options{Analysis: testAnalysis()})
	t.Cleanup(m.Close)
	if m.Init() == nil {
		t.Fatal("stored analysis should start the frame clock")
	}

	for i := 0; i < 5; i++ {
		var cmd tea.Cmd
		m, cmd = update(t, m, TickMsg{})
		if cmd == nil {
			t.Fatal("graph ticks should reschedule")
		}
	}
	if ticks := m.Surface().Stats().Ticks; ticks != 5 {
		t.Errorf("ticks = %d, want 5", ticks)
	}
	if !strings.Contains(m.statusBar.Content(), "5 ticks") {
		t.Errorf("status bar: %q", m.statusBar.Content())
	}
}

func TestAppKeyboardSelection(t *testing.T) {
	m := newApp(t, Options{Analysis: testAnalysis()})
	t.Cleanup(m.Close)

	m, _ = update(t, m, key(tea.KeyTab))
	m, _ = update(t, m, key(tea.KeyTab))
	m, _ = update(t, m, key(tea.KeyEnter))

	sel := m.detail.PanelView().Selected
	if sel == nil || sel.Heading != "CAUSAL Node" {
		t.Fatalf("expected n2 selected, got %+v", sel)
	}
	entries := m.log.Entries()
	if entries[len(entries)-1].Text != "selected n2" {
		t.Errorf("last log entry %q", entries[len(entries)-1].Text)
	}
}

func TestAppMouseClickSelects(t *testing.T) {
	m := newApp(t, Options{Analysis: testAnalysis(), Layout: layout.DefaultConfig()})
	t.Cleanup(m.Close)
	for i := 0; i < 60; i++ {
		m, _ = update(t, m, TickMsg{})
	}

	sc := m.Surface().Snapshot()
	var cx, cy int
	for _, d := range sc.Disks {
		if d.NodeID == "n3" {
			p := sc.Transform.Apply(layout.Point{X: d.CX, Y: d.CY})
			cx, cy = toCell(p.X, p.Y)
		}
	}
	x, y := cx+m.graph.originX, cy+m.graph.originY

	m, _ = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	sel := m.detail.PanelView().Selected
	if sel == nil || sel.Text != "A study on Twitter" {
		t.Fatalf("click should select n3, got %+v", sel)
	}
}

func TestAppZoomKeys(t *testing.T) {
	m := newApp(t, Options{Analysis: testAnalysis()})
	t.Cleanup(m.Close)

	m, _ = update(t, m, runes("+"))
	if k := m.Surface().Transform().K; k <= 1 {
		t.Errorf("+ should zoom in, k = %v", k)
	}
	m, _ = update(t, m, runes("0"))
	if k := m.Surface().Transform().K; k != 1 {
		t.Errorf("0 should reset, k = %v", k)
	}
}

func TestAppEscReturnsToInput(t *testing.T) {
	m := newApp(t, Options{Analysis: testAnalysis()})
	s := m.Surface()
	m, _ = update(t, m, key(tea.KeyEsc))
	if m.Screen() != ScreenInput || m.Surface() != nil {
		t.Fatal("esc should close the graph")
	}
	if s.Tick() {
		t.Error("a closed surface should not tick")
	}
}

func TestAppQuitKeys(t *testing.T) {
	m := newApp(t, Options{Analysis: testAnalysis()})
	t.Cleanup(m.Close)
	if _, cmd := update(t, m, runes("q")); cmd == nil {
		t.Error("q should quit on the graph screen")
	}

	in := newApp(t, Options{})
	if _, cmd := update(t, in, key(tea.KeyCtrlC)); cmd == nil {
		t.Error("ctrl+c should quit")
	}
	// q types into the textarea on the input screen.
	in, _ = update(t, in, runes("q"))
	if in.input.Value() != "q" {
		t.Errorf("input value %q", in.input.Value())
	}
}

func TestAppViewSizes(t *testing.T) {
	m := NewAppModel(context.Background(), Options{})
	if m.View() != "Initializing..." {
		t.Errorf("unsized view: %q", m.View())
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 30, Height: 8})
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Errorf("small view: %q", m.View())
	}
}
