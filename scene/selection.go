// ABOUTME: Selection events emitted when a node disk is clicked, plus the hover tooltip state.
// ABOUTME: Events fan out to callbacks and to buffered subscriber channels without blocking the caller.
package scene

import (
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/reasonsketch/reasoning"
)

// TooltipOffset keeps the tooltip clear of the pointer, right and down.
const TooltipOffset = 15.0

// Tooltip is transient display state for the hovered node. The zero value is
// a hidden tooltip.
type Tooltip struct {
	Visible bool
	X, Y    float64
	Content string
	Type    reasoning.NodeType
	Node    int
}

// SelectionEvent reports a click on a node disk.
type SelectionEvent struct {
	ID     ulid.ULID
	NodeID string
	Node   int
	At     time.Time
}

const subscriberBuffer = 16

// selections fans events out to callbacks and channels.
type selections struct {
	mu       sync.Mutex
	handlers []func(SelectionEvent)
	subs     []chan SelectionEvent
	last     *SelectionEvent
	closed   bool
}

func (s *selections) onSelect(fn func(SelectionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// subscribe adds a buffered subscriber. The returned func removes and closes
// it; calling it more than once, or after close, is harmless.
func (s *selections) subscribe() (<-chan SelectionEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan SelectionEvent, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs = append(s.subs, ch)
	return ch, func() { s.unsubscribe(ch) }
}

func (s *selections) unsubscribe(ch chan SelectionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.subs, ch)
	if i < 0 {
		return
	}
	s.subs = slices.Delete(s.subs, i, i+1)
	close(ch)
}

func (s *selections) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// emit delivers ev to every handler and subscriber. A full subscriber misses
// the event rather than stalling pointer handling.
func (s *selections) emit(node int, nodeID string) SelectionEvent {
	ev := SelectionEvent{
		ID:     ulid.Make(),
		NodeID: nodeID,
		Node:   node,
		At:     time.Now(),
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ev
	}
	s.last = &ev
	handlers := slices.Clone(s.handlers)
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return ev
}

func (s *selections) lastEvent() (SelectionEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return SelectionEvent{}, false
	}
	return *s.last, true
}

func (s *selections) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
