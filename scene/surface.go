// ABOUTME: Interactive surface binding a reasoning map to a running simulation, a scene, and a viewport.
// ABOUTME: Routes pointer, wheel, and resize input to drag pinning, panning, hover tooltips, and click selection.
package scene

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
)

// ClickThreshold is how far (screen pixels) a press may travel and still
// count as a click.
const ClickThreshold = 3.0

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithLogger sets the surface logger. The default discards everything.
func WithLogger(l *zap.Logger) SurfaceOption {
	return func(s *Surface) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContext sets the parent context for the layout runner.
func WithContext(ctx context.Context) SurfaceOption {
	return func(s *Surface) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithManualTicks disables the runner goroutine. The host advances the
// layout by calling Tick from its own frame clock.
func WithManualTicks() SurfaceOption {
	return func(s *Surface) { s.manual = true }
}

// WithFrameInterval overrides the runner frame interval.
func WithFrameInterval(d time.Duration) SurfaceOption {
	return func(s *Surface) { s.interval = d }
}

// press tracks one pointer-down to pointer-up gesture.
type press struct {
	active bool
	node   int
	start  layout.Point
	last   layout.Point
	moved  bool
}

// Stats summarizes the live layout for status displays.
type Stats struct {
	Nodes   int
	Links   int
	Dropped int
	Alpha   float64
	Ticks   int
	Scale   float64
	Running bool
	// Subscribers counts open Selections channels.
	Subscribers int
}

// Surface owns the layout lifecycle for one reasoning map at one size.
//
// Lock order is mu, then the runner lock, then sceneMu. Tick callbacks run
// under the runner lock and only take sceneMu.
type Surface struct {
	mu       sync.Mutex
	logger   *zap.Logger
	cfg      layout.Config
	ctx      context.Context
	manual   bool
	interval time.Duration

	data          reasoning.ReasoningMap
	width, height float64
	buf           *layout.Buffer
	runner        *layout.Runner
	viewport      *Viewport
	tooltip       Tooltip
	hover         int
	press         press
	redraws       int
	closed        bool

	sceneMu sync.RWMutex
	scene   *Scene
	frames  []func()

	sel selections
}

// NewSurface adapts m, builds its scene, and starts the layout (unless
// WithManualTicks is set). A map with no nodes produces an empty scene and
// no runner.
func NewSurface(m reasoning.ReasoningMap, width, height float64, cfg layout.Config, opts ...SurfaceOption) *Surface {
	s := &Surface{
		logger:   zap.NewNop(),
		cfg:      cfg,
		ctx:      context.Background(),
		data:     m,
		width:    width,
		height:   height,
		viewport: NewViewport(),
		hover:    -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	s.redrawLocked()
	s.mu.Unlock()
	return s
}

// SetData replaces the map and performs a full redraw.
func (s *Surface) SetData(m reasoning.ReasoningMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.data = m
	s.redrawLocked()
}

// Resize changes the surface dimensions. A change triggers a full redraw
// with the centering force moved to the new middle.
func (s *Surface) Resize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (width == s.width && height == s.height) {
		return
	}
	s.width, s.height = width, height
	s.redrawLocked()
}

// Redraw discards every primitive and the running layout and rebuilds both.
func (s *Surface) Redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.redrawLocked()
}

func (s *Surface) redrawLocked() {
	if s.runner != nil {
		s.runner.Stop()
		s.runner = nil
	}
	s.tooltip = Tooltip{}
	s.hover = -1
	s.press = press{}
	s.redraws++

	s.buf = layout.Adapt(s.data)
	if s.buf.Dropped > 0 {
		s.logger.Info("dropped unresolved links",
			zap.String("component", "scene.surface"),
			zap.String("action", "redraw"),
			zap.Int("dropped", s.buf.Dropped))
	}

	if s.buf.Empty() {
		s.setScene(&Scene{Width: s.width, Height: s.height, Transform: s.viewport.Transform()})
		return
	}

	sim := layout.NewSimulation(s.buf, s.cfg)
	sim.SetCenter(s.width/2, s.height/2)

	sc := Build(s.buf, s.width, s.height)
	sc.Transform = s.viewport.Transform()
	s.setScene(sc)

	opts := []layout.RunnerOption{layout.WithLogger(s.logger)}
	if s.interval > 0 {
		opts = append(opts, layout.WithInterval(s.interval))
	}
	s.runner = layout.NewRunner(sim, opts...)
	s.runner.OnTick(func(b *layout.Buffer) { s.syncScene(sc, b) })
	if !s.manual {
		s.runner.Start(s.ctx)
	}

	s.logger.Debug("surface redrawn",
		zap.String("component", "scene.surface"),
		zap.String("action", "redraw"),
		zap.Int("nodes", len(s.buf.Nodes)),
		zap.Int("links", len(s.buf.Links)),
		zap.Float64("width", s.width),
		zap.Float64("height", s.height))
}

func (s *Surface) setScene(sc *Scene) {
	s.sceneMu.Lock()
	s.scene = sc
	frames := append([]func(){}, s.frames...)
	s.sceneMu.Unlock()
	for _, fn := range frames {
		fn()
	}
}

// syncScene runs on every tick with the runner lock held.
func (s *Surface) syncScene(sc *Scene, b *layout.Buffer) {
	s.sceneMu.Lock()
	if s.scene != sc {
		s.sceneMu.Unlock()
		return
	}
	sc.Sync(b)
	frames := append([]func(){}, s.frames...)
	s.sceneMu.Unlock()
	for _, fn := range frames {
		fn()
	}
}

// OnFrame registers fn to be called whenever the scene changes: after every
// tick, redraw, viewport change, or tooltip change. fn may be called from
// the runner goroutine and must not block or call back into the Surface.
func (s *Surface) OnFrame(fn func()) {
	s.sceneMu.Lock()
	defer s.sceneMu.Unlock()
	s.frames = append(s.frames, fn)
}

func (s *Surface) notifyFrame() {
	s.sceneMu.RLock()
	frames := append([]func(){}, s.frames...)
	s.sceneMu.RUnlock()
	for _, fn := range frames {
		fn()
	}
}

// Tick advances a manually driven layout by one frame and reports whether
// anything moved.
func (s *Surface) Tick() bool {
	s.mu.Lock()
	r := s.runner
	s.mu.Unlock()
	if r == nil {
		return false
	}
	return r.Tick()
}

// Snapshot returns a copy of the current scene.
func (s *Surface) Snapshot() *Scene {
	s.sceneMu.RLock()
	defer s.sceneMu.RUnlock()
	if s.scene == nil {
		return &Scene{Transform: Identity()}
	}
	return s.scene.Clone()
}

// Size returns the current surface dimensions.
func (s *Surface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Redraws counts full rebuilds since creation.
func (s *Surface) Redraws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redraws
}

// Stats reports layout progress and view state.
func (s *Surface) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Scale: s.viewport.Scale(), Subscribers: s.sel.count()}
	if s.buf != nil {
		st.Nodes = len(s.buf.Nodes)
		st.Links = len(s.buf.Links)
		st.Dropped = s.buf.Dropped
	}
	if s.runner != nil {
		s.runner.Do(func(sim *layout.Simulation) {
			st.Alpha = sim.Alpha()
			st.Ticks = sim.Ticks()
		})
		st.Running = s.runner.Running()
	}
	return st
}

// Data returns the map currently displayed.
func (s *Surface) Data() reasoning.ReasoningMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Close stops the layout and closes selection channels. Further input is ignored.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.runner != nil {
		s.runner.Stop()
		s.runner = nil
	}
	s.sel.close()
}

// --- viewport ---

// Transform returns the current viewing transform.
func (s *Surface) Transform() Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport.Transform()
}

func (s *Surface) viewChanged() {
	t := s.viewport.Transform()
	s.sceneMu.Lock()
	if s.scene != nil {
		s.scene.Transform = t
	}
	s.sceneMu.Unlock()
	s.notifyFrame()
}

func (s *Surface) withViewport(fn func(v *Viewport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(s.viewport)
	s.viewChanged()
}

// Wheel zooms around the pointer at (x, y).
func (s *Surface) Wheel(deltaY, x, y float64) {
	s.withViewport(func(v *Viewport) { v.Wheel(deltaY, layout.Point{X: x, Y: y}) })
}

// ZoomBy scales the view around the screen point (x, y).
func (s *Surface) ZoomBy(factor, x, y float64) {
	s.withViewport(func(v *Viewport) { v.ZoomBy(factor, layout.Point{X: x, Y: y}) })
}

// ZoomTo sets an absolute scale around the screen point (x, y).
func (s *Surface) ZoomTo(k, x, y float64) {
	s.withViewport(func(v *Viewport) { v.ZoomTo(k, layout.Point{X: x, Y: y}) })
}

// Pinch applies a pinch gesture centered on (x, y).
func (s *Surface) Pinch(ratio, x, y float64) {
	s.withViewport(func(v *Viewport) { v.Pinch(ratio, layout.Point{X: x, Y: y}) })
}

// PanBy translates the view.
func (s *Surface) PanBy(dx, dy float64) {
	s.withViewport(func(v *Viewport) { v.PanBy(dx, dy) })
}

// ResetView returns to the identity transform.
func (s *Surface) ResetView() {
	s.withViewport(func(v *Viewport) { v.Reset() })
}

// FitView zooms to show every node with padding around the edges.
func (s *Surface) FitView(padding float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sceneMu.RLock()
	lo, hi, ok := s.scene.Bounds()
	s.sceneMu.RUnlock()
	if !ok {
		return
	}
	s.viewport.Fit(lo, hi, s.width, s.height, padding)
	s.viewChanged()
}

// --- pointer ---

func (s *Surface) hitTest(screen layout.Point) (int, bool) {
	world := s.viewport.Transform().Invert(screen)
	s.sceneMu.RLock()
	defer s.sceneMu.RUnlock()
	if s.scene == nil {
		return -1, false
	}
	return s.scene.HitTest(world)
}

// PointerDown starts a gesture. On a disk it pins the node where it is and
// warms the layout; elsewhere it starts a pan.
func (s *Surface) PointerDown(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	p := layout.Point{X: x, Y: y}
	node, hit := s.hitTest(p)
	s.press = press{active: true, node: node, start: p, last: p}
	if !hit || s.runner == nil {
		s.press.node = -1
		return
	}
	s.runner.Do(func(sim *layout.Simulation) {
		n := sim.Buffer().Nodes[node]
		sim.Pin(node, n.X, n.Y)
	})
	s.runner.Restart(s.cfg.DragAlphaTarget)
}

// PointerMove updates hover and the tooltip, and continues any drag or pan.
func (s *Surface) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	p := layout.Point{X: x, Y: y}

	if s.press.active {
		if !s.press.moved && math.Hypot(p.X-s.press.start.X, p.Y-s.press.start.Y) > ClickThreshold {
			s.press.moved = true
		}
		if s.press.node >= 0 {
			w := s.viewport.Transform().Invert(p)
			node := s.press.node
			s.runner.Do(func(sim *layout.Simulation) { sim.Pin(node, w.X, w.Y) })
		} else {
			s.viewport.PanBy(p.X-s.press.last.X, p.Y-s.press.last.Y)
			s.viewChanged()
		}
		s.press.last = p
	}

	s.updateHover(p)
}

// PointerUp ends a gesture. Releasing a dragged node unpins it and lets the
// layout cool; a press that stayed within ClickThreshold on a disk selects it.
func (s *Surface) PointerUp(x, y float64) {
	s.mu.Lock()
	if s.closed || !s.press.active {
		s.mu.Unlock()
		return
	}
	pr := s.press
	s.press = press{}
	if pr.node >= 0 && s.runner != nil {
		s.runner.Do(func(sim *layout.Simulation) { sim.Unpin(pr.node) })
		s.runner.Restart(0)
	}
	var nodeID string
	click := pr.node >= 0 && !pr.moved
	if click {
		nodeID = s.buf.Nodes[pr.node].ID
	}
	s.mu.Unlock()

	if click {
		s.logger.Debug("node selected",
			zap.String("component", "scene.surface"),
			zap.String("action", "select"),
			zap.String("node_id", nodeID))
		s.sel.emit(pr.node, nodeID)
	}
}

// PointerLeave dismisses the tooltip. An in-progress drag keeps going.
func (s *Surface) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.hover == -1 && !s.tooltip.Visible) {
		return
	}
	s.hover = -1
	s.tooltip = Tooltip{}
	s.notifyFrame()
}

func (s *Surface) updateHover(p layout.Point) {
	node, hit := s.hitTest(p)
	if !hit && s.press.active && s.press.node >= 0 {
		// The dragged disk may lag the pointer by a frame.
		node, hit = s.press.node, true
	}
	switch {
	case !hit:
		if s.hover == -1 {
			return
		}
		s.hover = -1
		s.tooltip = Tooltip{}
	case node != s.hover:
		s.hover = node
		s.tooltip = s.tooltipFor(node, p)
	default:
		s.tooltip.X = p.X + TooltipOffset
		s.tooltip.Y = p.Y + TooltipOffset
	}
	s.notifyFrame()
}

func (s *Surface) tooltipFor(node int, p layout.Point) Tooltip {
	n := s.buf.Nodes[node]
	return Tooltip{
		Visible: true,
		X:       p.X + TooltipOffset,
		Y:       p.Y + TooltipOffset,
		Content: n.Text,
		Type:    n.Type,
		Node:    node,
	}
}

// Tooltip returns the current tooltip state.
func (s *Surface) Tooltip() Tooltip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tooltip
}

// Hovered returns the hovered node index, or -1.
func (s *Surface) Hovered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hover
}

// HoverNext moves hover to the next (step > 0) or previous node, for
// keyboard-driven hosts. The tooltip is anchored at the disk's screen position.
func (s *Surface) HoverNext(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.buf == nil || s.buf.Empty() {
		return
	}
	n := len(s.buf.Nodes)
	next := 0
	if s.hover >= 0 {
		next = ((s.hover+step)%n + n) % n
	}
	s.sceneMu.RLock()
	d := s.scene.Disks[next]
	s.sceneMu.RUnlock()
	screen := s.viewport.Transform().Apply(layout.Point{X: d.CX, Y: d.CY})
	s.hover = next
	s.tooltip = s.tooltipFor(next, screen)
	s.notifyFrame()
}

// SelectHovered emits a selection for the hovered node, if any.
func (s *Surface) SelectHovered() bool {
	s.mu.Lock()
	node := s.hover
	if s.closed || node < 0 {
		s.mu.Unlock()
		return false
	}
	id := s.buf.Nodes[node].ID
	s.mu.Unlock()
	s.sel.emit(node, id)
	return true
}

// --- selection ---

// OnSelect registers fn for every selection. fn runs on the goroutine that
// delivered the pointer-up.
func (s *Surface) OnSelect(fn func(SelectionEvent)) {
	s.sel.onSelect(fn)
}

// Selections returns a channel of selection events and a cancel func that
// unsubscribes and closes it. Slow readers miss events; the channel also
// closes with the surface.
func (s *Surface) Selections() (<-chan SelectionEvent, func()) {
	return s.sel.subscribe()
}

// LastSelection returns the most recent selection.
func (s *Surface) LastSelection() (SelectionEvent, bool) {
	return s.sel.lastEvent()
}
