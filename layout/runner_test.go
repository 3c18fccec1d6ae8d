// ABOUTME: Tests for the Runner frame loop: ticking, idling after settle, restart, and teardown.
// ABOUTME: Uses goleak to confirm Stop leaves no goroutines behind.
package layout

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	sim := NewSimulation(Adapt(sampleMap()), DefaultConfig())
	return NewRunner(sim, WithInterval(time.Millisecond))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRunnerTicksCallbacks(t *testing.T) {
	r := newTestRunner(t)
	var ticks atomic.Int64
	r.OnTick(func(b *Buffer) {
		if len(b.Nodes) != 4 {
			t.Errorf("callback saw %d nodes", len(b.Nodes))
		}
		ticks.Add(1)
	})
	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return ticks.Load() >= 5 })
	if !r.Running() {
		t.Error("runner should be running")
	}
}

func TestRunnerIdlesWhenSettled(t *testing.T) {
	r := newTestRunner(t)
	var ticks atomic.Int64
	r.OnTick(func(*Buffer) { ticks.Add(1) })
	r.Do(func(s *Simulation) {
		s.Run(1000)
	})
	r.Start(context.Background())
	defer r.Stop()

	time.Sleep(20 * time.Millisecond)
	if n := ticks.Load(); n != 0 {
		t.Errorf("settled runner should not tick, got %d ticks", n)
	}

	r.Restart(0.3)
	waitFor(t, func() bool { return ticks.Load() > 0 })
}

func TestRunnerStopIsIdempotentAndFinal(t *testing.T) {
	r := newTestRunner(t)
	var ticks atomic.Int64
	r.OnTick(func(*Buffer) { ticks.Add(1) })
	r.Start(context.Background())
	waitFor(t, func() bool { return ticks.Load() > 0 })

	r.Stop()
	r.Stop()
	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("tick callback ran after Stop returned")
	}
	if r.Running() {
		t.Error("runner should not be running after Stop")
	}
}

func TestRunnerStopBeforeStart(t *testing.T) {
	r := newTestRunner(t)
	r.Stop()
	r.Start(context.Background())
	if r.Running() {
		t.Error("Start after Stop should not launch the loop")
	}
}

func TestRunnerContextCancelStopsLoop(t *testing.T) {
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()
	waitFor(t, func() bool { return !r.Running() })
	r.Stop()
}

func TestRunnerDoSerializesWithTicks(t *testing.T) {
	r := newTestRunner(t)
	r.Start(context.Background())
	defer r.Stop()

	for i := 0; i < 20; i++ {
		r.Do(func(s *Simulation) {
			s.Pin(0, 5, 5)
			s.Unpin(0)
		})
	}
	var pinned bool
	r.Do(func(s *Simulation) {
		s.Pin(0, 7, 9)
		pinned = s.Buffer().Nodes[0].Pinned()
	})
	if !pinned {
		t.Error("Do should see its own mutation")
	}
}

func TestRunnerManualTick(t *testing.T) {
	r := newTestRunner(t)
	var ticks int
	r.OnTick(func(*Buffer) { ticks++ })
	for i := 0; i < 3; i++ {
		if !r.Tick() {
			t.Fatalf("tick %d should step", i)
		}
	}
	if ticks != 3 {
		t.Errorf("expected 3 callbacks, got %d", ticks)
	}
	r.Stop()
	if r.Tick() {
		t.Error("Tick after Stop should not step")
	}
	if ticks != 3 {
		t.Errorf("callback ran after Stop: %d", ticks)
	}
}
