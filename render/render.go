// ABOUTME: Headless rendering of a reasoning map: settles the layout synchronously, then emits SVG, JSON, DOT, or PNG.
// ABOUTME: PNG pipes pinned-position DOT through graphviz (neato -n2) when it is installed.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/scene"
)

// Formats lists the supported output formats.
var Formats = []string{"svg", "json", "dot", "png"}

// Options controls headless rendering.
type Options struct {
	Width      float64
	Height     float64
	Layout     layout.Config
	Legend     bool
	Background bool
	// Fit zooms the view so every node is visible.
	Fit bool
}

// DefaultOptions renders at 800×600 with the legend and dark background.
func DefaultOptions() Options {
	return Options{
		Width:      800,
		Height:     600,
		Layout:     layout.DefaultConfig(),
		Legend:     true,
		Background: true,
		Fit:        true,
	}
}

const fitPadding = 40

// Settle runs the layout to convergence (or Layout.MaxTicks) and returns the
// resulting scene.
func Settle(m reasoning.ReasoningMap, opts Options) (*scene.Scene, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %vx%v", opts.Width, opts.Height)
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("layout config: %w", err)
	}

	buf := layout.Adapt(m)
	sc := scene.Build(buf, opts.Width, opts.Height)
	if buf.Empty() {
		return sc, nil
	}

	sim := layout.NewSimulation(buf, opts.Layout)
	sim.SetCenter(opts.Width/2, opts.Height/2)
	sim.Run(opts.Layout.MaxTicks)
	sc.Sync(buf)

	if opts.Fit {
		if lo, hi, ok := sc.Bounds(); ok {
			v := scene.NewViewport()
			v.Fit(lo, hi, opts.Width, opts.Height, fitPadding)
			sc.Transform = v.Transform()
		}
	}
	return sc, nil
}

// Render settles m and encodes it in format.
func Render(ctx context.Context, m reasoning.ReasoningMap, format string, opts Options) ([]byte, error) {
	if !supported(format) {
		return nil, fmt.Errorf("unsupported format %q: supported formats are %s", format, strings.Join(Formats, ", "))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := Settle(m, opts)
	if err != nil {
		return nil, err
	}

	switch format {
	case "svg":
		return []byte(sc.SVG(scene.SVGOptions{Legend: opts.Legend, Background: opts.Background})), nil
	case "json":
		return ToJSON(sc, m)
	case "dot":
		return []byte(ToDOT(sc, m)), nil
	default:
		return renderWithGraphviz(ctx, ToDOT(sc, m), format)
	}
}

func supported(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// PositionedNode is a node with its settled coordinates.
type PositionedNode struct {
	ID    string             `json:"id"`
	Text  string             `json:"text"`
	Type  reasoning.NodeType `json:"type"`
	X     float64            `json:"x"`
	Y     float64            `json:"y"`
	Color string             `json:"color"`
}

// PositionedLink is a drawn link with its endpoints.
type PositionedLink struct {
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Strength reasoning.LinkStrength `json:"strength"`
	Color    string                 `json:"color"`
	Dash     string                 `json:"dash,omitempty"`
	X1       float64                `json:"x1"`
	Y1       float64                `json:"y1"`
	X2       float64                `json:"x2"`
	Y2       float64                `json:"y2"`
}

// Layout is the JSON form of a settled scene.
type Layout struct {
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
	Transform scene.Transform  `json:"transform"`
	Nodes     []PositionedNode `json:"nodes"`
	Links     []PositionedLink `json:"links"`
}

// ToJSON encodes node and link positions.
func ToJSON(sc *scene.Scene, m reasoning.ReasoningMap) ([]byte, error) {
	out := Layout{
		Width:     sc.Width,
		Height:    sc.Height,
		Transform: sc.Transform,
		Nodes:     make([]PositionedNode, 0, len(sc.Disks)),
		Links:     make([]PositionedLink, 0, len(sc.Lines)),
	}
	for _, d := range sc.Disks {
		out.Nodes = append(out.Nodes, PositionedNode{
			ID:    d.NodeID,
			Text:  m.Nodes[d.Node].Text,
			Type:  d.Type,
			X:     d.CX,
			Y:     d.CY,
			Color: d.Fill,
		})
	}
	resolved := resolvedLinks(m)
	for i, l := range sc.Lines {
		out.Links = append(out.Links, PositionedLink{
			From:     resolved[i].From,
			To:       resolved[i].To,
			Strength: l.Strength,
			Color:    l.Stroke,
			Dash:     l.Dash,
			X1:       l.X1,
			Y1:       l.Y1,
			X2:       l.X2,
			Y2:       l.Y2,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// resolvedLinks returns the links in m that survive adaptation, in order.
func resolvedLinks(m reasoning.ReasoningMap) []layout.SimLink {
	return layout.Adapt(m).Links
}

// ToDOT writes a graphviz digraph with every node pinned at its settled
// position (y flipped, since graphviz's origin is bottom-left).
func ToDOT(sc *scene.Scene, m reasoning.ReasoningMap) string {
	var b strings.Builder
	b.WriteString("digraph reasoning {\n")
	fmt.Fprintf(&b, "  graph [bgcolor=%q, outputorder=edgesfirst, bb=\"0,0,%.0f,%.0f\"]\n", scene.Background, sc.Width, sc.Height)
	fmt.Fprintf(&b, "  node [shape=circle, style=filled, fixedsize=true, width=%.3f, label=\"\", color=%q, penwidth=%.1f, fontcolor=%q, fontsize=%d]\n",
		2*scene.DiskRadius/72, "#ffffff", scene.DiskStrokeWidth, scene.LabelFill, scene.LabelFontSize)
	b.WriteString("  edge [penwidth=2, arrowsize=0.6]\n")

	for i, d := range sc.Disks {
		fmt.Fprintf(&b, "  %s [fillcolor=%q, xlabel=%s, tooltip=%s, pos=\"%.2f,%.2f!\"]\n",
			quote(d.NodeID), d.Fill, quote(sc.Labels[i].Text), quote(m.Nodes[d.Node].Text), d.CX, sc.Height-d.CY)
	}
	resolved := resolvedLinks(m)
	for i, l := range sc.Lines {
		style := ""
		if l.Dash != "" {
			style = ", style=dashed"
		}
		fmt.Fprintf(&b, "  %s -> %s [color=%q%s]\n", quote(resolved[i].From), quote(resolved[i].To), l.Stroke, style)
	}
	b.WriteString("}\n")
	return b.String()
}

// quote renders s as a DOT double-quoted ID.
func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}

// GraphvizAvailable reports whether the graphviz neato command is on PATH.
func GraphvizAvailable() bool {
	_, err := exec.LookPath("neato")
	return err == nil
}

// renderWithGraphviz pipes pinned DOT text through neato and returns its output.
func renderWithGraphviz(ctx context.Context, dotText, format string) ([]byte, error) {
	if !GraphvizAvailable() {
		return nil, fmt.Errorf("graphviz neato command not found: install graphviz to render %s output", format)
	}
	cmd := exec.CommandContext(ctx, "neato", "-n2", "-T"+format)
	cmd.Stdin = strings.NewReader(dotText)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("graphviz rendering cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("graphviz neato failed: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
