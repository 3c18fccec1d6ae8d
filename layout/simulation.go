// ABOUTME: Velocity-Verlet style force simulation with an alpha cooling schedule.
// ABOUTME: Step is pure and callback-free; hosts drive it from a Runner or their own frame loop.
package layout

import (
	"math"
)

const (
	initialRadius = 10.0
	lcgA          = 1664525
	lcgC          = 1013904223
	lcgM          = 4294967296
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Simulation advances node positions in a Buffer. It is not safe for
// concurrent use; Runner serializes access.
type Simulation struct {
	buf *Buffer
	cfg Config

	alpha       float64
	alphaTarget float64
	centerX     float64
	centerY     float64
	ticks       int

	seed uint64

	linkStrength []float64
	linkBias     []float64
}

// NewSimulation seeds unplaced nodes on a phyllotaxis spiral and precomputes
// per-link strength and bias from node degrees. The spiral starts around the
// origin and follows SetCenter until the first step.
func NewSimulation(buf *Buffer, cfg Config) *Simulation {
	s := &Simulation{
		buf:   buf,
		cfg:   cfg,
		alpha: 1,
		seed:  1,
	}
	s.seedPositions()
	s.initLinks()
	return s
}

// Buffer returns the buffer the simulation writes to.
func (s *Simulation) Buffer() *Buffer { return s.buf }

// Config returns the parameters the simulation was built with.
func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) seedPositions() {
	for i := range s.buf.Nodes {
		n := &s.buf.Nodes[i]
		if !n.placed && n.FX != nil && n.FY != nil {
			n.X, n.Y = *n.FX, *n.FY
			n.placed = true
		}
		if !n.placed {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.X = s.centerX + r*math.Cos(a)
			n.Y = s.centerY + r*math.Sin(a)
			n.placed = true
		}
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		n.VX, n.VY = 0, 0
	}
}

func (s *Simulation) initLinks() {
	degree := make([]int, len(s.buf.Nodes))
	for _, l := range s.buf.Links {
		degree[l.Source]++
		degree[l.Target]++
	}
	s.linkStrength = make([]float64, len(s.buf.Links))
	s.linkBias = make([]float64, len(s.buf.Links))
	for i, l := range s.buf.Links {
		ds, dt := float64(degree[l.Source]), float64(degree[l.Target])
		s.linkStrength[i] = 1 / math.Min(ds, dt)
		s.linkBias[i] = ds / (ds + dt)
	}
}

// Step advances the simulation by one tick: cool alpha toward its target,
// accumulate every force into velocities, then integrate positions.
func (s *Simulation) Step() {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLink()
	s.applyManyBody()
	s.applyCenter()
	s.applyCollide()

	keep := 1 - s.cfg.VelocityDecay
	for i := range s.buf.Nodes {
		n := &s.buf.Nodes[i]
		if n.FX != nil {
			n.X, n.VX = *n.FX, 0
		} else {
			n.VX *= keep
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y, n.VY = *n.FY, 0
		} else {
			n.VY *= keep
			n.Y += n.VY
		}
	}
	s.ticks++
}

// Alpha returns the current cooling parameter.
func (s *Simulation) Alpha() float64 { return s.alpha }

// AlphaTarget returns the value alpha is decaying toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget changes where alpha decays to. A drag holds it above
// AlphaMin so the layout keeps responding.
func (s *Simulation) SetAlphaTarget(t float64) { s.alphaTarget = t }

// Reheat resets alpha to 1.
func (s *Simulation) Reheat() { s.alpha = 1 }

// Settled reports whether alpha has dropped below AlphaMin.
func (s *Simulation) Settled() bool { return s.alpha < s.cfg.AlphaMin }

// Idle reports whether stepping would make no progress: the simulation has
// settled and nothing is holding alpha up.
func (s *Simulation) Idle() bool {
	return s.Settled() && s.alphaTarget < s.cfg.AlphaMin
}

// Ticks returns how many steps have run.
func (s *Simulation) Ticks() int { return s.ticks }

// SetCenter moves the gravity point, typically to the middle of the viewport.
// Before the first step the seeded nodes are translated along with it.
func (s *Simulation) SetCenter(x, y float64) {
	if s.ticks == 0 {
		dx, dy := x-s.centerX, y-s.centerY
		for i := range s.buf.Nodes {
			n := &s.buf.Nodes[i]
			if n.FX == nil {
				n.X += dx
			}
			if n.FY == nil {
				n.Y += dy
			}
		}
	}
	s.centerX, s.centerY = x, y
}

// Center returns the current gravity point.
func (s *Simulation) Center() (float64, float64) { return s.centerX, s.centerY }

// Pin fixes node i at (x, y) until Unpin.
func (s *Simulation) Pin(i int, x, y float64) {
	s.PinAxes(i, &x, &y)
}

// PinAxes holds node i on each axis whose value is non-nil and frees the
// axes given as nil.
func (s *Simulation) PinAxes(i int, fx, fy *float64) {
	if i < 0 || i >= len(s.buf.Nodes) {
		return
	}
	n := &s.buf.Nodes[i]
	n.FX, n.FY = clonePtr(fx), clonePtr(fy)
}

// Unpin releases node i back to the forces on both axes.
func (s *Simulation) Unpin(i int) {
	s.PinAxes(i, nil, nil)
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Run steps until the simulation settles or maxTicks is reached and returns
// the number of steps taken.
func (s *Simulation) Run(maxTicks int) int {
	n := 0
	for n < maxTicks && !s.Settled() {
		s.Step()
		n++
	}
	return n
}

// random is a linear congruential generator with a fixed seed so layouts are
// reproducible.
func (s *Simulation) random() float64 {
	s.seed = (lcgA*s.seed + lcgC) % lcgM
	return float64(s.seed) / lcgM
}

// jiggle returns a tiny random offset used to separate coincident points.
func (s *Simulation) jiggle() float64 {
	return (s.random() - 0.5) * 1e-6
}
