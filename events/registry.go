// Package events is an ordered, category-keyed listener registry.
//
// Dispatch is synchronous and runs every listener registered at the moment
// dispatch starts, in registration order. A listener that panics is isolated:
// the remaining listeners still run and the panic is reported in the returned
// error.
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Category names one stream of events.
type Category string

const (
	ChatMessage     Category = "chat_message"
	TaskUpdate      Category = "task_update"
	ProactiveUpdate Category = "proactive_update"
	Notification    Category = "notification"
	// Connection carries local connection-state changes and never goes on the wire.
	Connection Category = "connection"
)

// Listener receives one dispatched payload.
type Listener func(payload any)

// ListenerPanicError is returned (joined) by Dispatch for each listener that panicked.
type ListenerPanicError struct {
	Category Category
	Value    any
}

func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("events: listener for %s panicked: %v", e.Category, e.Value)
}

type listenerSet struct {
	order []uint64
	byID  map[uint64]Listener
	dead  int
}

// compact drops unregistered ids from order once they are the majority, which
// keeps Unregister amortised O(1).
func (s *listenerSet) compact() {
	if s.dead*2 < len(s.order) {
		return
	}
	live := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.byID[id]; ok {
			live = append(live, id)
		}
	}
	// zero the tail so the backing array does not pin old ids
	for i := len(live); i < len(s.order); i++ {
		s.order[i] = 0
	}
	s.order = live
	s.dead = 0
}

// Registry holds listeners per category. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	sets   map[Category]*listenerSet
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		sets:   make(map[Category]*listenerSet),
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Register adds fn for category and returns the capability that removes it.
func (r *Registry) Register(category Category, fn Listener) *Subscription {
	if fn == nil {
		panic("events: nil listener")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[category]
	if !ok {
		set = &listenerSet{byID: make(map[uint64]Listener)}
		r.sets[category] = set
	}
	r.nextID++
	id := r.nextID
	set.order = append(set.order, id)
	set.byID[id] = fn
	return &Subscription{registry: r, category: category, id: id}
}

func (r *Registry) unregister(category Category, id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[category]
	if !ok {
		return false
	}
	if _, ok := set.byID[id]; !ok {
		return false
	}
	delete(set.byID, id)
	set.dead++
	set.compact()
	return true
}

// Len reports how many listeners are registered for category.
func (r *Registry) Len(category Category) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.sets[category]; ok {
		return len(set.byID)
	}
	return 0
}

func (r *Registry) snapshot(category Category) []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[category]
	if !ok || len(set.byID) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(set.byID))
	for _, id := range set.order {
		if fn, ok := set.byID[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Dispatch invokes every listener currently registered for category with
// payload. Listeners registered or removed while Dispatch runs take effect on
// the next call.
func (r *Registry) Dispatch(category Category, payload any) error {
	var errs []error
	for _, fn := range r.snapshot(category) {
		if err := r.invoke(category, fn, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) invoke(category Category, fn Listener, payload any) (err error) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Warn().Str("category", string(category)).Interface("panic", v).Msg("listener panicked")
			err = &ListenerPanicError{Category: category, Value: v}
		}
	}()
	fn(payload)
	return nil
}

// Subscription removes exactly one listener. It is safe to call Unsubscribe
// more than once and from inside a listener.
type Subscription struct {
	registry *Registry
	category Category
	id       uint64
	once     sync.Once
}

// Category returns the category the listener was registered for.
func (s *Subscription) Category() Category { return s.category }

// Unsubscribe removes the listener. Later dispatches will not reach it.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.registry.unregister(s.category, s.id)
	})
}

// Group collects subscriptions so they can be released together on teardown.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add records subs for later release.
func (g *Group) Add(subs ...*Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, subs...)
}

// Len reports how many subscriptions are held.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// UnsubscribeAll releases every held subscription and empties the group.
func (g *Group) UnsubscribeAll() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}
