// internal/navigation/bridge.go
package navigation

import (
	"sort"
	"sync"
)

// Host is the native container the app runs in.
type Host interface {
	CurrentURL() string
	ReplaceURL(path string)
	ExitApp()
}

type EventKind int

const (
	// EventDeepLink is a native app-open carrying a URL.
	EventDeepLink EventKind = iota
	// EventHistory is a browser back/forward navigation.
	EventHistory
	// EventBackButton is a hardware back press.
	EventBackButton
)

type Event struct {
	Kind EventKind
	URL  string
}

// Subscription releases a registered handler. Close is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

func (s *Subscription) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	return nil
}

// Subscriptions closes a group of handles together.
type Subscriptions []*Subscription

func (ss Subscriptions) Close() error {
	for _, s := range ss {
		s.Close()
	}
	return nil
}

// Bridge fans native container events out to subscribers.
type Bridge struct {
	mu       sync.Mutex
	next     int
	handlers map[EventKind]map[int]func(Event)
}

func NewBridge() *Bridge {
	return &Bridge{handlers: make(map[EventKind]map[int]func(Event))}
}

func (b *Bridge) Subscribe(kind EventKind, fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]func(Event))
	}
	b.handlers[kind][id] = fn

	return NewSubscription(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	})
}

// Emit delivers ev to every handler of its kind in subscription order and
// returns how many ran. Handlers run without the bridge lock held.
func (b *Bridge) Emit(ev Event) int {
	b.mu.Lock()
	ids := make([]int, 0, len(b.handlers[ev.Kind]))
	for id := range b.handlers[ev.Kind] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.handlers[ev.Kind][id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
	return len(fns)
}
