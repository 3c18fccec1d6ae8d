// ABOUTME: Converts an immutable reasoning map into the mutable node/link buffer the simulation works on.
// ABOUTME: Resolves link endpoints to indices and drops links that reference unknown node IDs.
package layout

import (
	"github.com/2389-research/reasonsketch/reasoning"
)

// SimNode is a runtime copy of a reasoning node augmented with simulation
// state. A non-nil FX or FY holds the node on that axis; the other axis
// stays free.
type SimNode struct {
	Index int
	ID    string
	Text  string
	Type  reasoning.NodeType

	X, Y   float64
	VX, VY float64

	FX, FY *float64

	placed bool
}

// Pinned reports whether either axis is held.
func (n *SimNode) Pinned() bool { return n.FX != nil || n.FY != nil }

// SimLink is a resolved link. Source and Target are indices into Buffer.Nodes.
type SimLink struct {
	Index    int
	Source   int
	Target   int
	From     string
	To       string
	Strength reasoning.LinkStrength
}

// Buffer holds the simulation's working copy of a map. Only the simulation
// writes positions; renderers read them between steps.
type Buffer struct {
	Nodes []SimNode
	Links []SimLink

	// Dropped counts links whose endpoints could not be resolved.
	Dropped int

	index map[string]int
}

// Adapt copies m into a fresh buffer. Positions start unset (zero, unseeded)
// and are placed by the simulation. The map itself is never modified.
// When IDs repeat, links resolve to the first node with that ID.
func Adapt(m reasoning.ReasoningMap) *Buffer {
	buf := &Buffer{
		Nodes: make([]SimNode, 0, len(m.Nodes)),
		Links: make([]SimLink, 0, len(m.Links)),
		index: make(map[string]int, len(m.Nodes)),
	}

	for i, n := range m.Nodes {
		buf.Nodes = append(buf.Nodes, SimNode{
			Index: i,
			ID:    n.ID,
			Text:  n.Text,
			Type:  n.Type,
		})
		if _, dup := buf.index[n.ID]; !dup {
			buf.index[n.ID] = i
		}
	}

	for _, l := range m.Links {
		src, okS := buf.index[l.From]
		dst, okT := buf.index[l.To]
		if !okS || !okT {
			buf.Dropped++
			continue
		}
		buf.Links = append(buf.Links, SimLink{
			Index:    len(buf.Links),
			Source:   src,
			Target:   dst,
			From:     l.From,
			To:       l.To,
			Strength: l.Strength,
		})
	}

	return buf
}

// IndexOf returns the buffer index of the first node with id.
func (b *Buffer) IndexOf(id string) (int, bool) {
	i, ok := b.index[id]
	return i, ok
}

// Empty reports whether the buffer has no nodes.
func (b *Buffer) Empty() bool {
	return len(b.Nodes) == 0
}

// Place sets a node's starting position so the simulation does not seed it.
func (b *Buffer) Place(i int, x, y float64) {
	b.Nodes[i].X, b.Nodes[i].Y = x, y
	b.Nodes[i].placed = true
}

// Positions returns a snapshot of node positions keyed by node index.
func (b *Buffer) Positions() []Point {
	pts := make([]Point, len(b.Nodes))
	for i, n := range b.Nodes {
		pts[i] = Point{X: n.X, Y: n.Y}
	}
	return pts
}

// Point is a 2D coordinate in world space.
type Point struct {
	X, Y float64
}
