// ABOUTME: Frame loop that steps a Simulation on a ticker and fans positions out to tick callbacks.
// ABOUTME: Idles once the layout settles, wakes on Restart, and guarantees no callback runs after Stop returns.
package layout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithInterval overrides the frame interval derived from Config.FrameRate.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner owns the goroutine that drives a Simulation. All access to the
// simulation from other goroutines must go through Do.
type Runner struct {
	mu        sync.Mutex
	sim       *Simulation
	callbacks []func(*Buffer)

	interval time.Duration
	logger   *zap.Logger

	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// NewRunner wraps sim. The loop does not start until Start is called.
func NewRunner(sim *Simulation, opts ...RunnerOption) *Runner {
	rate := sim.Config().FrameRate
	if rate <= 0 {
		rate = 60
	}
	r := &Runner{
		sim:      sim,
		interval: time.Second / time.Duration(rate),
		logger:   zap.NewNop(),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnTick registers fn to run after every step, on the runner goroutine with
// the simulation lock held. fn must not call Stop or Do.
func (r *Runner) OnTick(fn func(*Buffer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Start launches the frame loop. Calling Start more than once has no effect.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.logger.Debug("layout runner started",
		zap.String("component", "layout.runner"),
		zap.Int("nodes", len(r.sim.buf.Nodes)),
		zap.Duration("interval", r.interval))
	go r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		idle, ticks := r.frame()
		if !idle {
			continue
		}
		r.logger.Debug("layout settled",
			zap.String("component", "layout.runner"),
			zap.Int("ticks", ticks))
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}
	}
}

// Tick runs a single frame synchronously and reports whether the simulation
// stepped. Hosts with their own frame clock call Tick instead of Start.
func (r *Runner) Tick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.sim.Idle() {
		return false
	}
	r.step()
	return true
}

func (r *Runner) frame() (idle bool, ticks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sim.Idle() {
		r.step()
	}
	return r.sim.Idle(), r.sim.Ticks()
}

func (r *Runner) step() {
	r.sim.Step()
	for _, fn := range r.callbacks {
		fn(r.sim.buf)
	}
}

// Restart sets the alpha target and wakes an idle loop. A drag calls
// Restart(DragAlphaTarget) on press and Restart(0) on release.
func (r *Runner) Restart(alphaTarget float64) {
	r.mu.Lock()
	r.sim.SetAlphaTarget(alphaTarget)
	r.mu.Unlock()
	r.poke()
}

// Reheat resets alpha to 1 and wakes the loop.
func (r *Runner) Reheat() {
	r.mu.Lock()
	r.sim.Reheat()
	r.mu.Unlock()
	r.poke()
}

func (r *Runner) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Do runs fn with exclusive access to the simulation, serialized with ticks.
func (r *Runner) Do(fn func(*Simulation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.sim)
}

// Running reports whether the loop goroutine is alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once and before Start. After Stop returns no tick callback will run.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		cancel, done := r.cancel, r.done
		r.started = true
		r.stopped = true
		r.mu.Unlock()
		if cancel == nil {
			return
		}
		cancel()
		<-done
		r.logger.Debug("layout runner stopped", zap.String("component", "layout.runner"))
	})
}
