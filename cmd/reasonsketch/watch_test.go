// ABOUTME: Tests for the debounced file watcher: bursts coalesce, unrelated files are ignored, cancel stops it.
// ABOUTME: Real fsnotify watchers run against t.TempDir().
package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func startWatch(t *testing.T, path string, debounce time.Duration, fn func()) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchFile(ctx, path, debounce, zap.NewNop(), fn) }()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return cancel, done
}

func stopWatch(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchFile returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}

func waitCount(c *atomic.Int32, want int32, within time.Duration) bool {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if c.Load() >= want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.Load() >= want
}

func TestWatchFileCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	cancel, done := startWatch(t, path, 150*time.Millisecond, func() { calls.Add(1) })
	defer stopWatch(t, cancel, done)

	for i := range 5 {
		if err := os.WriteFile(path, []byte{'{', byte('0' + i), '}'}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitCount(&calls, 1, 3*time.Second) {
		t.Fatal("callback never ran after writes")
	}
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times for one burst, want 1", got)
	}
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	cancel, done := startWatch(t, path, 50*time.Millisecond, func() { calls.Add(1) })
	defer stopWatch(t, cancel, done)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times for an unrelated file", got)
	}
}

func TestWatchFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "analysis.json")
	err := watchFile(context.Background(), path, time.Millisecond, zap.NewNop(), func() {})
	if err == nil {
		t.Fatal("expected an error watching a missing directory")
	}
}
