// ABOUTME: Session pairs one analysis with a live interactive surface and tracks the selected node.
// ABOUTME: Frame watchers are coalescing channels so slow websocket clients never stall the layout.
package web

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/scene"
)

// Default surface size until the browser reports its own.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
)

// Session is one analyzed argument being explored.
type Session struct {
	ID        string
	Input     string
	Mode      reasoning.Mode
	Analysis  *reasoning.AnalysisResponse
	CreatedAt time.Time

	surface *scene.Surface
	logger  *zap.Logger

	mu         sync.Mutex
	lastAccess time.Time
	selected   string
	watchers   map[chan struct{}]struct{}
	closed     bool
}

// SessionOptions carries the collaborators a session reports to.
type SessionOptions struct {
	Layout   layout.Config
	Width    float64
	Height   float64
	Logger   *zap.Logger
	OnSelect func(nodeID string)

	// Surface options are appended after the logger.
	Surface []scene.SurfaceOption
}

// NewSession starts the layout for resp.ReasoningMap.
func NewSession(resp *reasoning.AnalysisResponse, input string, mode reasoning.Mode, opts SessionOptions) *Session {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultWidth, DefaultHeight
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	now := time.Now()
	sess := &Session{
		Input:      input,
		Mode:       mode,
		Analysis:   resp,
		CreatedAt:  now,
		logger:     opts.Logger,
		lastAccess: now,
		watchers:   make(map[chan struct{}]struct{}),
	}
	surfaceOpts := append([]scene.SurfaceOption{scene.WithLogger(opts.Logger)}, opts.Surface...)
	sess.surface = scene.NewSurface(resp.ReasoningMap, opts.Width, opts.Height, opts.Layout, surfaceOpts...)
	sess.surface.OnFrame(sess.broadcast)
	sess.surface.OnSelect(func(ev scene.SelectionEvent) {
		sess.mu.Lock()
		sess.selected = ev.NodeID
		sess.mu.Unlock()
		if opts.OnSelect != nil {
			opts.OnSelect(ev.NodeID)
		}
		sess.broadcast()
	})
	return sess
}

// Surface exposes the interactive surface.
func (sess *Session) Surface() *scene.Surface { return sess.surface }

// Touch marks the session accessed now.
func (sess *Session) Touch() {
	sess.mu.Lock()
	sess.lastAccess = time.Now()
	sess.mu.Unlock()
}

// LastAccess returns when the session was last used.
func (sess *Session) LastAccess() time.Time {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastAccess
}

// Selected returns the ID of the most recently clicked node, or "".
func (sess *Session) Selected() string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.selected
}

// WriteSVG writes the current frame, including the hover tooltip.
func (sess *Session) WriteSVG(w io.Writer) error {
	sc := sess.surface.Snapshot()
	opts := scene.SVGOptions{Legend: true, Background: true}
	if tt := sess.surface.Tooltip(); tt.Visible {
		opts.Tooltip = &tt
	}
	return sc.WriteSVG(w, opts)
}

// Panel builds the insights panel for the current selection.
func (sess *Session) Panel() reasoning.PanelView {
	return reasoning.Panel(sess.Analysis, sess.Selected())
}

// PanelHTML renders the insights panel as HTML.
func (sess *Session) PanelHTML() (string, error) {
	return reasoning.PanelHTML(sess.Panel())
}

// Apply routes one input event to the surface.
func (sess *Session) Apply(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	s := sess.surface
	switch ev.Type {
	case EventPointerDown:
		s.PointerDown(ev.X, ev.Y)
	case EventPointerMove:
		s.PointerMove(ev.X, ev.Y)
	case EventPointerUp:
		s.PointerUp(ev.X, ev.Y)
	case EventPointerLeave:
		s.PointerLeave()
	case EventWheel:
		s.Wheel(ev.DeltaY, ev.X, ev.Y)
	case EventPinch:
		s.Pinch(ev.Ratio, ev.X, ev.Y)
	case EventZoom:
		s.ZoomBy(ev.Ratio, ev.X, ev.Y)
	case EventPan:
		s.PanBy(ev.DX, ev.DY)
	case EventResize:
		s.Resize(ev.Width, ev.Height)
	case EventReset:
		s.ResetView()
	case EventFit:
		s.FitView(fitPadding)
	case EventHoverNext:
		step := ev.Step
		if step == 0 {
			step = 1
		}
		s.HoverNext(step)
	case EventSelectHovered:
		s.SelectHovered()
	}
	return nil
}

// Watch returns a channel that receives a value whenever the frame or the
// selection changes. Notifications coalesce; the channel closes with the
// session. Call cancel to stop watching.
func (sess *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	sess.watchers[ch] = struct{}{}
	sess.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if _, ok := sess.watchers[ch]; ok {
				delete(sess.watchers, ch)
				close(ch)
			}
		})
	}
}

func (sess *Session) broadcast() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for ch := range sess.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops the layout and releases every watcher.
func (sess *Session) Close() {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.closed = true
	for ch := range sess.watchers {
		close(ch)
	}
	sess.watchers = nil
	sess.mu.Unlock()

	sess.surface.Close()
	sess.logger.Debug("session closed",
		zap.String("component", "web.session"),
		zap.String("session", sess.ID))
}
