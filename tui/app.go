// ABOUTME: Top-level Bubble Tea AppModel: input screen, analysis in flight, and the live graph with insights.
// ABOUTME: The layout advances one step per TickMsg on the UI goroutine; mouse and keys drive the shared surface API.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/analysis"
	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/scene"
)

// Screen is the view the app is showing.
type Screen int

const (
	ScreenInput Screen = iota
	ScreenAnalyzing
	ScreenGraph
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Options configures an AppModel.
type Options struct {
	Analyzer Analyzer
	Layout   layout.Config
	Logger   *zap.Logger
	Mode     reasoning.Mode
	Text     string

	// Analysis opens the graph screen immediately without an analyzer call.
	Analysis *reasoning.AnalysisResponse
}

// AppModel is the top-level Bubble Tea model composing the sub-panels.
type AppModel struct {
	ctx      context.Context
	analyzer Analyzer
	cfg      layout.Config
	logger   *zap.Logger

	input     InputPanelModel
	graph     GraphPanelModel
	detail    DetailPanelModel
	log       LogPanelModel
	statusBar StatusBarModel

	screen   Screen
	surface  *scene.Surface
	analysis *reasoning.AnalysisResponse
	lastSel  ulid.ULID
	frame    time.Duration
	spinner  int
	width    int
	height   int
}

// NewAppModel creates an AppModel. When opts.Analysis is set the graph
// screen opens straight away.
func NewAppModel(ctx context.Context, opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	if opts.Mode == "" {
		opts.Mode = reasoning.ModeMap
	}
	if opts.Layout.FrameRate <= 0 {
		opts.Layout.FrameRate = layout.DefaultConfig().FrameRate
	}
	m := AppModel{
		ctx:       ctx,
		analyzer:  opts.Analyzer,
		cfg:       opts.Layout,
		logger:    opts.Logger,
		input:     NewInputPanelModel(opts.Mode),
		graph:     NewGraphPanelModel(),
		detail:    NewDetailPanelModel(),
		log:       NewLogPanelModel(200),
		statusBar: NewStatusBarModel(opts.Mode),
		frame:     time.Second / time.Duration(opts.Layout.FrameRate),
	}
	if opts.Text != "" {
		m.input.SetValue(opts.Text)
	}
	if opts.Analysis != nil {
		m.open(opts.Analysis)
		m.log.Append(LogInfo, "loaded stored analysis")
	}
	return m
}

// Screen returns the current screen.
func (m AppModel) Screen() Screen { return m.screen }

// Surface returns the live surface, or nil before an analysis opens.
func (m AppModel) Surface() *scene.Surface { return m.surface }

// Close stops the live surface. Call it with the final model once the
// program exits.
func (m AppModel) Close() {
	if m.surface != nil {
		m.surface.Close()
	}
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	if m.screen == ScreenGraph {
		return TickCmd(m.frame)
	}
	return nil
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case AnalysisResultMsg:
		return m.handleAnalysisResult(msg)
	case TickMsg:
		return m.handleTick(msg)
	case tea.MouseMsg:
		if m.screen == ScreenGraph {
			m.graph.HandleMouse(msg)
			m.syncSelection()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m AppModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.layoutPanels()
	return m, nil
}

// layoutPanels sizes the graph (left, 60%), insights over activity (right),
// and the status bar along the bottom.
func (m *AppModel) layoutPanels() {
	if m.width == 0 || m.height == 0 {
		return
	}
	body := max(m.height-1, 3)
	graphW := max(m.width*60/100, 10)
	sideW := max(m.width-graphW, 10)
	logH := max(body/4, 4)

	m.graph.SetSize(graphW, body)
	// Border row and title row sit above the canvas.
	m.graph.SetOrigin(1, 2)
	m.detail.SetSize(sideW, body-logH)
	m.log.SetSize(sideW, logH)
	m.input.SetSize(m.width, body)
	m.statusBar.SetWidth(m.width)
}

// open starts a manually ticked surface on resp and shows the graph.
func (m *AppModel) open(resp *reasoning.AnalysisResponse) {
	if m.surface != nil {
		m.surface.Close()
	}
	w, h := m.graph.CanvasSize()
	m.surface = scene.NewSurface(resp.ReasoningMap, float64(w)*CellWidth, float64(h)*CellHeight, m.cfg,
		scene.WithManualTicks(), scene.WithLogger(m.logger))
	m.analysis = resp
	m.lastSel = ulid.ULID{}
	m.graph.SetSurface(m.surface)
	m.detail.SetView(reasoning.Panel(resp, ""))
	m.statusBar.SetStats(m.surface.Stats())
	m.screen = ScreenGraph

	if report := reasoning.CheckIntegrity(resp.ReasoningMap); !report.Clean() {
		m.log.Append(LogError, fmt.Sprintf("map has %d duplicate ids, %d dangling links",
			len(report.DuplicateNodeIDs), len(report.DanglingLinks)))
	}
}

// closeGraph returns to the input screen and stops the surface.
func (m *AppModel) closeGraph() {
	if m.surface != nil {
		m.surface.Close()
	}
	m.surface = nil
	m.analysis = nil
	m.graph.SetSurface(nil)
	m.detail.SetView(reasoning.PanelView{})
	m.screen = ScreenInput
}

func (m AppModel) handleAnalysisResult(msg AnalysisResultMsg) (tea.Model, tea.Cmd) {
	if m.screen != ScreenAnalyzing {
		return m, nil
	}
	m.statusBar.Stop()
	if msg.Err != nil {
		m.screen = ScreenInput
		m.input.SetError(analysis.UserMessage)
		m.log.Append(LogError, "analysis failed: "+msg.Err.Error())
		m.logger.Warn("analysis failed",
			zap.String("component", "tui"),
			zap.String("mode", string(msg.Mode)),
			zap.Error(msg.Err))
		return m, nil
	}
	m.input.SetError("")
	m.open(msg.Response)
	m.log.Append(LogSuccess, fmt.Sprintf("analyzed in %s: %d nodes, %d links",
		formatElapsed(msg.Elapsed), len(msg.Response.ReasoningMap.Nodes), len(msg.Response.ReasoningMap.Links)))
	return m, TickCmd(m.frame)
}

func (m AppModel) handleTick(_ TickMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case ScreenAnalyzing:
		m.spinner++
		return m, TickCmd(spinnerInterval)
	case ScreenGraph:
		if m.surface == nil {
			return m, nil
		}
		m.surface.Tick()
		m.statusBar.SetStats(m.surface.Stats())
		return m, TickCmd(m.frame)
	}
	return m, nil
}

func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenInput:
		if key == "ctrl+s" {
			return m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.statusBar.SetMode(m.input.Mode())
		return m, cmd

	case ScreenGraph:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.closeGraph()
			return m, nil
		case "pgup", "pgdown", "home", "end":
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		if m.graph.HandleKey(key) {
			m.syncSelection()
		}
	}
	return m, nil
}

// submit starts an analysis of the entered text.
func (m AppModel) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		m.input.SetError("Enter some reasoning to analyze.")
		return m, nil
	}
	if m.analyzer == nil {
		m.input.SetError(analysis.UserMessage)
		m.log.Append(LogError, "no analyzer configured: "+analysis.ErrMissingAPIKey.Error())
		return m, nil
	}
	mode := m.input.Mode()
	m.input.SetError("")
	m.screen = ScreenAnalyzing
	m.statusBar.SetMode(mode)
	m.statusBar.Start()
	m.log.Append(LogInfo, "analyzing ("+mode.Label()+")")
	return m, tea.Batch(AnalyzeCmd(m.ctx, m.analyzer, text, mode), TickCmd(spinnerInterval))
}

// syncSelection refreshes the insights when the surface reports a new click.
func (m *AppModel) syncSelection() {
	if m.surface == nil {
		return
	}
	ev, ok := m.surface.LastSelection()
	if !ok || ev.ID == m.lastSel {
		return
	}
	m.lastSel = ev.ID
	m.detail.SetView(reasoning.Panel(m.analysis, ev.NodeID))
	m.log.Append(LogInfo, "selected "+ev.NodeID)
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	var body string
	switch m.screen {
	case ScreenInput:
		body = m.input.View()
	case ScreenAnalyzing:
		frame := spinnerFrames[m.spinner%len(spinnerFrames)]
		body = lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center,
			TitleStyle.Render(frame+" Analyzing structure..."))
	case ScreenGraph:
		side := lipgloss.JoinVertical(lipgloss.Left, m.detail.View(), m.log.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.graph.View(), side)
	}
	return body + "\n" + m.statusBar.View()
}
