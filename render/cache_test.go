// ABOUTME: Tests for the render cache covering hits, key separation, TTL expiry, pruning, and concurrency.
// ABOUTME: Uses a counting fake renderer so no layout work runs.
package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389-research/reasonsketch/reasoning"
)

type fakeRenderer struct {
	calls  atomic.Int64
	output []byte
	err    error
}

func (f *fakeRenderer) render(ctx context.Context, m reasoning.ReasoningMap, format string, opts Options) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestCacheReturnsCachedResult(t *testing.T) {
	r := &fakeRenderer{output: []byte("<svg/>")}
	c := NewCache(r.render, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := c.Render(ctx, exampleMap(), "svg", DefaultOptions())
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if string(out) != "<svg/>" {
			t.Errorf("call %d: got %s", i, out)
		}
	}
	if r.calls.Load() != 1 {
		t.Errorf("expected 1 render, got %d", r.calls.Load())
	}
}

func TestCacheKeySeparation(t *testing.T) {
	r := &fakeRenderer{output: []byte("x")}
	c := NewCache(r.render, time.Minute)
	ctx := context.Background()
	opts := DefaultOptions()

	c.Render(ctx, exampleMap(), "svg", opts)
	c.Render(ctx, exampleMap(), "json", opts)

	wide := opts
	wide.Width = 1200
	c.Render(ctx, exampleMap(), "svg", wide)

	other := exampleMap()
	other.Nodes[0].Text = "changed"
	c.Render(ctx, other, "svg", opts)

	if r.calls.Load() != 4 {
		t.Errorf("expected 4 distinct renders, got %d", r.calls.Load())
	}
	if c.Len() != 4 {
		t.Errorf("expected 4 entries, got %d", c.Len())
	}
}

func TestCacheExpiry(t *testing.T) {
	r := &fakeRenderer{output: []byte("x")}
	c := NewCache(r.render, 10*time.Millisecond)
	ctx := context.Background()

	c.Render(ctx, exampleMap(), "svg", DefaultOptions())
	time.Sleep(20 * time.Millisecond)
	if n := c.Prune(); n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}
	c.Render(ctx, exampleMap(), "svg", DefaultOptions())
	if r.calls.Load() != 2 {
		t.Errorf("expected re-render after expiry, got %d calls", r.calls.Load())
	}
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	r := &fakeRenderer{err: errors.New("boom")}
	c := NewCache(r.render, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := c.Render(context.Background(), exampleMap(), "svg", DefaultOptions()); err == nil {
			t.Fatal("expected error")
		}
	}
	if c.Len() != 0 || r.calls.Load() != 2 {
		t.Errorf("errors should not be cached: len=%d calls=%d", c.Len(), r.calls.Load())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	r := &fakeRenderer{output: []byte("x")}
	c := NewCache(r.render, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Render(context.Background(), exampleMap(), "svg", DefaultOptions()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if c.Len() != 1 {
		t.Errorf("expected a single entry, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear should empty the cache")
	}
}

func TestNewCacheDefaultsToRender(t *testing.T) {
	c := NewCache(nil, time.Minute)
	out, err := c.Render(context.Background(), exampleMap(), "dot", DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected DOT output")
	}
}
