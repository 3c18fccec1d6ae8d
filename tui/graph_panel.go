// ABOUTME: Bubble Tea sub-model that draws the live scene onto a character canvas and routes mouse input to the surface.
// ABOUTME: Lines, arrowheads, disks, and labels are projected through the viewport transform, one cell per 8x16 pixels.
package tui

import (
	"math"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/scene"
)

// Glyphs used on the canvas.
const (
	diskRune    = '●'
	hoverRune   = '◉'
	lineRune    = '·'
	wheelDeltaY = 120.0
	keyZoom     = 1.25
	keyPanCells = 4
)

// GraphPanelModel shows the surface's current scene. The panel does not own
// the surface; the app closes it.
type GraphPanelModel struct {
	surface *scene.Surface
	width   int
	height  int
	originX int
	originY int
}

// NewGraphPanelModel creates an empty graph panel.
func NewGraphPanelModel() GraphPanelModel {
	return GraphPanelModel{}
}

// SetSurface attaches the surface to draw and sizes it to the panel.
func (m *GraphPanelModel) SetSurface(s *scene.Surface) {
	m.surface = s
	m.resizeSurface()
}

// SetSize sets the outer panel size in cells. The canvas is the inside of
// the border minus the title row.
func (m *GraphPanelModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.resizeSurface()
}

// SetOrigin records where the canvas's top-left cell sits on the terminal,
// for translating mouse coordinates.
func (m *GraphPanelModel) SetOrigin(x, y int) {
	m.originX, m.originY = x, y
}

// CanvasSize returns the drawable area in cells.
func (m GraphPanelModel) CanvasSize() (int, int) {
	w, h := m.width-2, m.height-3
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func (m *GraphPanelModel) resizeSurface() {
	if m.surface == nil || m.width == 0 || m.height == 0 {
		return
	}
	w, h := m.CanvasSize()
	m.surface.Resize(float64(w)*CellWidth, float64(h)*CellHeight)
}

// toSurface converts a terminal cell to surface pixels at the cell center.
func (m GraphPanelModel) toSurface(x, y int) (float64, float64, bool) {
	cx, cy := x-m.originX, y-m.originY
	w, h := m.CanvasSize()
	inside := cx >= 0 && cy >= 0 && cx < w && cy < h
	return (float64(cx) + 0.5) * CellWidth, (float64(cy) + 0.5) * CellHeight, inside
}

// HandleMouse routes a terminal mouse event to the surface pointer API.
func (m GraphPanelModel) HandleMouse(msg tea.MouseMsg) {
	if m.surface == nil {
		return
	}
	x, y, inside := m.toSurface(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.surface.Wheel(-wheelDeltaY, x, y)
	case msg.Button == tea.MouseButtonWheelDown:
		m.surface.Wheel(wheelDeltaY, x, y)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if inside {
			m.surface.PointerDown(x, y)
		}
	case msg.Action == tea.MouseActionRelease:
		m.surface.PointerUp(x, y)
	case msg.Action == tea.MouseActionMotion:
		if inside {
			m.surface.PointerMove(x, y)
		} else {
			m.surface.PointerLeave()
		}
	}
}

// HandleKey applies graph keyboard shortcuts and reports whether the key was
// consumed.
func (m GraphPanelModel) HandleKey(key string) bool {
	if m.surface == nil {
		return false
	}
	w, h := m.CanvasSize()
	cx, cy := float64(w)*CellWidth/2, float64(h)*CellHeight/2
	switch key {
	case "+", "=":
		m.surface.ZoomBy(keyZoom, cx, cy)
	case "-", "_":
		m.surface.ZoomBy(1/keyZoom, cx, cy)
	case "left":
		m.surface.PanBy(keyPanCells*CellWidth, 0)
	case "right":
		m.surface.PanBy(-keyPanCells*CellWidth, 0)
	case "up":
		m.surface.PanBy(0, keyPanCells*CellHeight/2)
	case "down":
		m.surface.PanBy(0, -keyPanCells*CellHeight/2)
	case "0":
		m.surface.ResetView()
	case "f":
		m.surface.FitView(2 * CellHeight)
	case "tab":
		m.surface.HoverNext(1)
	case "shift+tab":
		m.surface.HoverNext(-1)
	case "enter", " ":
		m.surface.SelectHovered()
	default:
		return false
	}
	return true
}

// Render draws the scene onto a fresh canvas.
func (m GraphPanelModel) Render() *canvas {
	w, h := m.CanvasSize()
	c := newCanvas(w, h)
	if m.surface == nil {
		return c
	}
	sc := m.surface.Snapshot()
	t := sc.Transform
	hovered := m.surface.Hovered()

	project := func(x, y float64) (float64, float64) {
		p := t.Apply(layout.Point{X: x, Y: y})
		return p.X, p.Y
	}

	for _, l := range sc.Lines {
		x1, y1 := project(l.X1, l.Y1)
		x2, y2 := project(l.X2, l.Y2)
		a, b := toCell(x1, y1)
		cx, cy := toCell(x2, y2)
		c.line(a, b, cx, cy, lineRune, l.Stroke, l.Dash != "")

		// Arrowhead just outside the target disk.
		length := math.Hypot(x2-x1, y2-y1)
		if length > 0 {
			back := scene.DiskRadius * t.K
			ax, ay := toCell(x2-(x2-x1)/length*back, y2-(y2-y1)/length*back)
			c.set(ax, ay, arrowRune(x1, y1, x2, y2), l.Stroke, true)
		}
	}

	diskCol := make(map[int]int, len(sc.Disks))
	for _, d := range sc.Disks {
		x, y := project(d.CX, d.CY)
		cx, _ := toCell(x, y)
		diskCol[d.Node] = cx
	}

	for _, lb := range sc.Labels {
		x, y := project(lb.X, lb.Y)
		cx, cy := toCell(x, y)
		c.text(labelColumn(cx, diskCol[lb.Node], utf8.RuneCountInString(lb.Text), w), cy, lb.Text, lb.Fill)
	}

	for _, d := range sc.Disks {
		x, y := project(d.CX, d.CY)
		cx, cy := toCell(x, y)
		r := diskRune
		if d.Node == hovered {
			r = hoverRune
		}
		c.set(cx, cy, r, d.Fill, true)
	}
	return c
}

// labelColumn picks where a label of n cells starts. Labels sit right of
// their disk; one that would run past the right edge flips to the left of
// the disk, and failing that is pushed back inside the canvas.
func labelColumn(col, disk, n, width int) int {
	if col+n <= width {
		return col
	}
	if left := disk - 1 - n; left >= 0 {
		return left
	}
	return max(width-n, 0)
}

// View renders the panel with its title and, when visible, the tooltip.
func (m GraphPanelModel) View() string {
	title := TitleStyle.Render("STRUCTURAL DECOMPOSITION")
	if m.surface != nil {
		if tt := m.surface.Tooltip(); tt.Visible {
			w, _ := m.CanvasSize()
			kind := strings.ToUpper(string(tt.Type))
			title += "  " + NodeStyle(tt.Type).Render(kind) + " " +
				TooltipStyle.Render(clip(tt.Content, w-len(kind)-30))
		}
	}
	body := title + "\n" + m.Render().String()

	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(body)
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	runes := []rune(s)
	if n < 4 {
		n = 4
	}
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
