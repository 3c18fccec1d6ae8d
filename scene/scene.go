// ABOUTME: Retained drawing primitives (lines, arrow markers, disks, labels) built from a layout buffer.
// ABOUTME: Build creates primitives once per redraw; Sync only moves them as the simulation ticks.
package scene

import (
	"math"

	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
)

// Visual constants shared by every host.
const (
	DiskRadius      = 15.0
	DiskStroke      = "#fff"
	DiskStrokeWidth = 1.5

	LabelOffsetX    = 20.0
	LabelOffsetY    = 5.0
	LabelFill       = "#e2e8f0"
	LabelFontSize   = 12
	LabelFontWeight = 500

	LineWidth   = 2.0
	LineOpacity = 0.6

	MarkerViewBox = "0 -5 10 10"
	MarkerRefX    = 25.0
	MarkerSize    = 6.0
	MarkerPath    = "M0,-5L10,0L0,5"

	// Background is the canvas color the labels are drawn against.
	Background = "#0f172a"
)

// Line is a drawn link from a source disk to a target disk.
type Line struct {
	Link     int
	X1, Y1   float64
	X2, Y2   float64
	Strength reasoning.LinkStrength
	Stroke   string
	Dash     string
	Width    float64
	Opacity  float64
	Marker   string
}

// Marker is an arrowhead definition referenced by lines of one strength.
type Marker struct {
	ID      string
	ViewBox string
	RefX    float64
	RefY    float64
	Width   float64
	Height  float64
	Path    string
	Fill    string
}

// Disk is the circle drawn for a node.
type Disk struct {
	Node        int
	NodeID      string
	CX, CY      float64
	R           float64
	Type        reasoning.NodeType
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Label is the abbreviated node text drawn beside its disk.
type Label struct {
	Node       int
	X, Y       float64
	Text       string
	Fill       string
	FontSize   int
	FontWeight int
}

// Scene is the full set of primitives for one redraw plus the viewing
// transform applied to all of them.
type Scene struct {
	Width, Height float64
	Transform     Transform

	Markers []Marker
	Lines   []Line
	Disks   []Disk
	Labels  []Label
}

// MarkerID names the arrowhead for a link strength.
func MarkerID(s reasoning.LinkStrength) string {
	return "arrow-" + string(s)
}

// Build creates one disk and one label per node, one line per resolved link,
// and one marker per link strength, positioned from buf.
func Build(buf *layout.Buffer, width, height float64) *Scene {
	sc := &Scene{
		Width:     width,
		Height:    height,
		Transform: Identity(),
	}

	for _, s := range reasoning.LinkStrengths() {
		sc.Markers = append(sc.Markers, Marker{
			ID:      MarkerID(s),
			ViewBox: MarkerViewBox,
			RefX:    MarkerRefX,
			Width:   MarkerSize,
			Height:  MarkerSize,
			Path:    MarkerPath,
			Fill:    reasoning.LinkColor(s),
		})
	}

	sc.Lines = make([]Line, len(buf.Links))
	for i, l := range buf.Links {
		sc.Lines[i] = Line{
			Link:     i,
			Strength: l.Strength,
			Stroke:   reasoning.LinkColor(l.Strength),
			Dash:     reasoning.LinkDash(l.Strength),
			Width:    LineWidth,
			Opacity:  LineOpacity,
			Marker:   MarkerID(l.Strength),
		}
	}

	sc.Disks = make([]Disk, len(buf.Nodes))
	sc.Labels = make([]Label, len(buf.Nodes))
	for i, n := range buf.Nodes {
		sc.Disks[i] = Disk{
			Node:        i,
			NodeID:      n.ID,
			R:           DiskRadius,
			Type:        n.Type,
			Fill:        reasoning.NodeColor(n.Type),
			Stroke:      DiskStroke,
			StrokeWidth: DiskStrokeWidth,
		}
		sc.Labels[i] = Label{
			Node:       i,
			Text:       reasoning.TruncateLabel(n.Text),
			Fill:       LabelFill,
			FontSize:   LabelFontSize,
			FontWeight: LabelFontWeight,
		}
	}

	sc.Sync(buf)
	return sc
}

// Sync copies current positions from buf into the existing primitives. It
// never adds or removes primitives.
func (sc *Scene) Sync(buf *layout.Buffer) {
	for i := range sc.Lines {
		l := buf.Links[sc.Lines[i].Link]
		src, dst := buf.Nodes[l.Source], buf.Nodes[l.Target]
		sc.Lines[i].X1, sc.Lines[i].Y1 = src.X, src.Y
		sc.Lines[i].X2, sc.Lines[i].Y2 = dst.X, dst.Y
	}
	for i := range sc.Disks {
		n := buf.Nodes[sc.Disks[i].Node]
		sc.Disks[i].CX, sc.Disks[i].CY = n.X, n.Y
		sc.Labels[i].X = n.X + LabelOffsetX
		sc.Labels[i].Y = n.Y + LabelOffsetY
	}
}

// HitTest returns the index of the topmost disk containing the world point.
// Disks drawn later sit on top.
func (sc *Scene) HitTest(p layout.Point) (int, bool) {
	for i := len(sc.Disks) - 1; i >= 0; i-- {
		d := sc.Disks[i]
		dx, dy := p.X-d.CX, p.Y-d.CY
		if dx*dx+dy*dy <= d.R*d.R {
			return d.Node, true
		}
	}
	return -1, false
}

// Bounds returns the world-space bounding box of all disks, including their
// radius. ok is false when the scene is empty.
func (sc *Scene) Bounds() (lo, hi layout.Point, ok bool) {
	if len(sc.Disks) == 0 {
		return lo, hi, false
	}
	lo = layout.Point{X: math.Inf(1), Y: math.Inf(1)}
	hi = layout.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, d := range sc.Disks {
		lo.X = math.Min(lo.X, d.CX-d.R)
		lo.Y = math.Min(lo.Y, d.CY-d.R)
		hi.X = math.Max(hi.X, d.CX+d.R)
		hi.Y = math.Max(hi.Y, d.CY+d.R)
	}
	return lo, hi, true
}

// Clone returns a deep copy safe to read while the original keeps syncing.
func (sc *Scene) Clone() *Scene {
	c := *sc
	c.Markers = append([]Marker(nil), sc.Markers...)
	c.Lines = append([]Line(nil), sc.Lines...)
	c.Disks = append([]Disk(nil), sc.Disks...)
	c.Labels = append([]Label(nil), sc.Labels...)
	return &c
}
