// ABOUTME: The four forces acting on each step: link springs, many-body charge, centering, and collision.
// ABOUTME: Forces only accumulate velocity (centering shifts positions) and never integrate.
package layout

import "math"

// applyLink pulls linked nodes toward LinkDistance. The correction is split
// between endpoints by degree so hubs move less.
func (s *Simulation) applyLink() {
	nodes := s.buf.Nodes
	for i, l := range s.buf.Links {
		src, dst := &nodes[l.Source], &nodes[l.Target]
		x := dst.X + dst.VX - src.X - src.VX
		if x == 0 {
			x = s.jiggle()
		}
		y := dst.Y + dst.VY - src.Y - src.VY
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - s.cfg.LinkDistance) / d * s.alpha * s.linkStrength[i]
		x *= k
		y *= k

		b := s.linkBias[i]
		dst.VX -= x * b
		dst.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// applyManyBody applies pairwise charge. Negative charge repels.
func (s *Simulation) applyManyBody() {
	nodes := s.buf.Nodes
	minSq := s.cfg.DistanceMin * s.cfg.DistanceMin
	for i := range nodes {
		ni := &nodes[i]
		for j := range nodes {
			if i == j {
				continue
			}
			nj := &nodes[j]
			x := nj.X - ni.X
			y := nj.Y - ni.Y
			l := x*x + y*y
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			w := s.cfg.Charge * s.alpha / l
			ni.VX += x * w
			ni.VY += y * w
		}
	}
}

// applyCenter translates every node so their mean sits on the center point.
func (s *Simulation) applyCenter() {
	nodes := s.buf.Nodes
	if len(nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range nodes {
		sx += n.X
		sy += n.Y
	}
	sx = sx/float64(len(nodes)) - s.centerX
	sy = sy/float64(len(nodes)) - s.centerY
	for i := range nodes {
		nodes[i].X -= sx
		nodes[i].Y -= sy
	}
}

// applyCollide pushes apart nodes whose predicted positions overlap,
// treating each as a disk of CollideRadius.
func (s *Simulation) applyCollide() {
	nodes := s.buf.Nodes
	r := s.cfg.CollideRadius
	if r <= 0 {
		return
	}
	reach := 2 * r
	for i := range nodes {
		ni := &nodes[i]
		xi := ni.X + ni.VX
		yi := ni.Y + ni.VY
		for j := i + 1; j < len(nodes); j++ {
			nj := &nodes[j]
			x := xi - nj.X - nj.VX
			y := yi - nj.Y - nj.VY
			l := x*x + y*y
			if l >= reach*reach {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			d := math.Sqrt(l)
			k := (reach - d) / d * s.cfg.CollideStrength
			x *= k
			y *= k
			// Equal radii split the push evenly.
			ni.VX += x * 0.5
			ni.VY += y * 0.5
			nj.VX -= x * 0.5
			nj.VY -= y * 0.5
		}
	}
}
