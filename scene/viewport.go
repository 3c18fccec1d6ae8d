// ABOUTME: Pan/zoom transform between world (simulation) space and screen space.
// ABOUTME: Scale is clamped to [0.1, 4]; viewport operations never touch node positions.
package scene

import (
	"math"

	"github.com/2389-research/reasonsketch/layout"
)

const (
	MinScale = 0.1
	MaxScale = 4.0

	// wheelDelta converts wheel deltaY (pixels) to a log2 zoom step.
	wheelDelta = 0.002
)

// Transform is a uniform scale K followed by a translation (X, Y).
type Transform struct {
	X, Y, K float64
}

// Identity is the untransformed view.
func Identity() Transform { return Transform{K: 1} }

// Apply maps a world point to screen space.
func (t Transform) Apply(p layout.Point) layout.Point {
	return layout.Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to world space.
func (t Transform) Invert(p layout.Point) layout.Point {
	return layout.Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// Viewport holds the current transform. It is not safe for concurrent use.
type Viewport struct {
	t Transform
}

// NewViewport returns a viewport at the identity transform.
func NewViewport() *Viewport {
	return &Viewport{t: Identity()}
}

// Transform returns the current transform.
func (v *Viewport) Transform() Transform { return v.t }

// Scale returns the current zoom factor.
func (v *Viewport) Scale() float64 { return v.t.K }

func clampScale(k float64) float64 {
	if math.IsNaN(k) {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, k))
}

// ZoomTo sets the scale to k (clamped), keeping the world point under the
// screen anchor fixed.
func (v *Viewport) ZoomTo(k float64, anchor layout.Point) {
	k = clampScale(k)
	w := v.t.Invert(anchor)
	v.t = Transform{
		X: anchor.X - w.X*k,
		Y: anchor.Y - w.Y*k,
		K: k,
	}
}

// ZoomBy multiplies the scale by factor around anchor.
func (v *Viewport) ZoomBy(factor float64, anchor layout.Point) {
	v.ZoomTo(v.t.K*factor, anchor)
}

// Wheel zooms in response to a wheel event with the given deltaY. Negative
// deltas zoom in.
func (v *Viewport) Wheel(deltaY float64, anchor layout.Point) {
	v.ZoomBy(math.Pow(2, -deltaY*wheelDelta), anchor)
}

// Pinch applies a two-finger gesture's scale ratio around its midpoint.
func (v *Viewport) Pinch(ratio float64, anchor layout.Point) {
	if ratio <= 0 {
		return
	}
	v.ZoomBy(ratio, anchor)
}

// PanBy translates the view by a screen-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	v.t.X += dx
	v.t.Y += dy
}

// Reset returns to the identity transform.
func (v *Viewport) Reset() {
	v.t = Identity()
}

// Fit scales and translates so the world box [lo, hi] fills a
// width×height screen minus padding on every side.
func (v *Viewport) Fit(lo, hi layout.Point, width, height, padding float64) {
	gw := math.Max(hi.X-lo.X, 1)
	gh := math.Max(hi.Y-lo.Y, 1)
	k := math.Min((width-2*padding)/gw, (height-2*padding)/gh)
	if k <= 0 {
		k = 1
	}
	k = clampScale(k)
	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	v.t = Transform{
		X: width/2 - cx*k,
		Y: height/2 - cy*k,
		K: k,
	}
}

// Focus centers the view on a world point at scale k.
func (v *Viewport) Focus(p layout.Point, k, width, height float64) {
	k = clampScale(k)
	v.t = Transform{
		X: width/2 - p.X*k,
		Y: height/2 - p.Y*k,
		K: k,
	}
}
