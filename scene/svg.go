// ABOUTME: Serializes a Scene to standalone SVG markup, with optional tooltip and legend overlays.
// ABOUTME: Used for live web frames and for headless rendering to files.
package scene

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/2389-research/reasonsketch/reasoning"
)

// SVGOptions controls overlays drawn on top of the graph.
type SVGOptions struct {
	Tooltip    *Tooltip
	Legend     bool
	Background bool
}

// WriteSVG writes the scene as an <svg> document.
func (sc *Scene) WriteSVG(w io.Writer, opts SVGOptions) error {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(sc.Width), num(sc.Height), num(sc.Width), num(sc.Height))
	if opts.Background {
		fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", Background)
	}

	b.WriteString("<defs>\n")
	for _, m := range sc.Markers {
		fmt.Fprintf(&b, `<marker id="%s" viewBox="%s" refX="%s" refY="%s" markerWidth="%s" markerHeight="%s" orient="auto"><path d="%s" fill="%s"/></marker>`+"\n",
			m.ID, m.ViewBox, num(m.RefX), num(m.RefY), num(m.Width), num(m.Height), m.Path, m.Fill)
	}
	b.WriteString("</defs>\n")

	t := sc.Transform
	fmt.Fprintf(&b, `<g transform="translate(%s,%s) scale(%s)">`+"\n", num(t.X), num(t.Y), num(t.K))

	fmt.Fprintf(&b, `<g stroke-opacity="%s">`+"\n", num(LineOpacity))
	for _, l := range sc.Lines {
		dash := ""
		if l.Dash != "" {
			dash = fmt.Sprintf(` stroke-dasharray="%s"`, l.Dash)
		}
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"%s marker-end="url(#%s)"/>`+"\n",
			num(l.X1), num(l.Y1), num(l.X2), num(l.Y2), l.Stroke, num(l.Width), dash, l.Marker)
	}
	b.WriteString("</g>\n")

	b.WriteString("<g>\n")
	for i, d := range sc.Disks {
		l := sc.Labels[i]
		fmt.Fprintf(&b, `<g class="node" data-id="%s" transform="translate(%s,%s)">`,
			html.EscapeString(d.NodeID), num(d.CX), num(d.CY))
		fmt.Fprintf(&b, `<circle r="%s" fill="%s" stroke="%s" stroke-width="%s" cursor="pointer"/>`,
			num(d.R), d.Fill, d.Stroke, num(d.StrokeWidth))
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="%s" font-size="%dpx" font-weight="%d" pointer-events="none">%s</text>`,
			num(LabelOffsetX), num(LabelOffsetY), l.Fill, l.FontSize, l.FontWeight, html.EscapeString(l.Text))
		b.WriteString("</g>\n")
	}
	b.WriteString("</g>\n")
	b.WriteString("</g>\n")

	if opts.Legend {
		writeLegend(&b, sc.Height)
	}
	if opts.Tooltip != nil && opts.Tooltip.Visible {
		writeTooltip(&b, *opts.Tooltip)
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// SVG returns the scene as an SVG string.
func (sc *Scene) SVG(opts SVGOptions) string {
	var b strings.Builder
	_ = sc.WriteSVG(&b, opts)
	return b.String()
}

func writeLegend(b *strings.Builder, height float64) {
	nodes, conns := reasoning.Legend()
	rows := len(nodes) + len(conns) + 2
	boxH := float64(rows*16 + 12)
	y := height - boxH - 16
	fmt.Fprintf(b, `<g class="legend" transform="translate(16,%s)" font-size="11px" fill="#cbd5e1">`+"\n", num(y))
	fmt.Fprintf(b, `<rect width="150" height="%s" rx="4" fill="#1e293b" fill-opacity="0.8" stroke="#334155"/>`+"\n", num(boxH))
	row := 1
	fmt.Fprintf(b, `<text x="10" y="%d" font-weight="bold">Node Types</text>`+"\n", row*16+2)
	for _, e := range nodes {
		row++
		fmt.Fprintf(b, `<circle cx="16" cy="%d" r="5" fill="%s"/><text x="28" y="%d">%s</text>`+"\n",
			row*16-2, e.Color, row*16+2, html.EscapeString(e.Label))
	}
	row++
	fmt.Fprintf(b, `<text x="10" y="%d" font-weight="bold">Connections</text>`+"\n", row*16+2)
	for _, e := range conns {
		row++
		dash := ""
		if e.Dashed {
			dash = ` stroke-dasharray="3,2"`
		}
		fmt.Fprintf(b, `<line x1="10" y1="%d" x2="24" y2="%d" stroke="%s" stroke-width="2"%s/><text x="28" y="%d">%s</text>`+"\n",
			row*16-2, row*16-2, e.Color, dash, row*16+2, html.EscapeString(e.Label))
	}
	b.WriteString("</g>\n")
}

func writeTooltip(b *strings.Builder, tt Tooltip) {
	lines := wrap(tt.Content, 40)
	h := 28 + 16*len(lines)
	fmt.Fprintf(b, `<g class="tooltip" transform="translate(%s,%s)" pointer-events="none">`+"\n", num(tt.X), num(tt.Y))
	fmt.Fprintf(b, `<rect width="280" height="%d" rx="6" fill="#1e293b" stroke="#64748b"/>`+"\n", h)
	fmt.Fprintf(b, `<text x="10" y="16" font-size="10px" font-weight="bold" fill="#94a3b8">%s</text>`+"\n",
		html.EscapeString(strings.ToUpper(string(tt.Type))))
	for i, line := range lines {
		fmt.Fprintf(b, `<text x="10" y="%d" font-size="13px" fill="#e2e8f0">%s</text>`+"\n", 34+16*i, html.EscapeString(line))
	}
	b.WriteString("</g>\n")
}

// wrap splits text into lines of at most width runes at word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		wr := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(wr) > width {
			lines = append(lines, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// num formats coordinates compactly: two decimals, trailing zeros trimmed.
func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
