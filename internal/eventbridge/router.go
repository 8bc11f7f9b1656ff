package eventbridge

import (
	"sync"
)

const (
	defaultSubscriberCapacity = 16
	defaultDedupeWindow       = 1024
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router fans slot events out to every subscriber with deduplication and
// bounded channel semantics. Events from this instance's own origin are
// ignored.
type Router struct {
	mu           sync.RWMutex
	subscribers  map[*subscriber]struct{}
	recentIDs    map[string]struct{}
	recentOrder  []string
	origin       string
	channelSize  int
	dedupeWindow int
	logger       Logger
}

// Subscription represents an active subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with sane defaults.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers:  map[*subscriber]struct{}{},
		recentIDs:    map[string]struct{}{},
		recentOrder:  make([]string, 0, defaultDedupeWindow),
		channelSize:  defaultSubscriberCapacity,
		dedupeWindow: defaultDedupeWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop/diagnostic messages.
func RouterWithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// RouterWithOrigin sets this instance's origin so echoes are discarded.
func RouterWithOrigin(origin string) RouterOption {
	return func(r *Router) {
		r.origin = origin
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per subscriber.
func RouterWithSubscriberCapacity(cap int) RouterOption {
	return func(r *Router) {
		if cap > 0 {
			r.channelSize = cap
		}
	}
}

// RouterWithDedupeWindow controls how many recent event IDs are retained.
func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe registers for every routed event.
func (r *Router) Subscribe() Subscription {
	sub := newSubscriber(r.channelSize, r.logger)
	r.mu.Lock()
	r.subscribers[sub] = struct{}{}
	r.mu.Unlock()
	return Subscription{
		Events: sub.channel(),
		cancel: func() {
			r.removeSubscriber(sub)
		},
	}
}

// HandleEvent satisfies the EventProcessor interface.
func (r *Router) HandleEvent(event Event) error {
	r.Route(event)
	return nil
}

// Route delivers the event to current subscribers. Events that arrive with
// no subscriber are dropped; the revision poll covers them.
func (r *Router) Route(event Event) {
	if r.origin != "" && event.Origin == r.origin {
		return
	}
	if event.EventID != "" && r.isDuplicate(event.EventID) {
		return
	}
	r.mu.RLock()
	subs := r.snapshotSubscribers()
	r.mu.RUnlock()
	for _, sub := range subs {
		sub.deliver(event)
	}
}

func (r *Router) snapshotSubscribers() []*subscriber {
	if len(r.subscribers) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(r.subscribers))
	for sub := range r.subscribers {
		items = append(items, sub)
	}
	return items
}

func (r *Router) removeSubscriber(sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, sub)
	sub.close()
}

func (r *Router) isDuplicate(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recentIDs[eventID]; ok {
		return true
	}
	r.recentIDs[eventID] = struct{}{}
	r.recentOrder = append(r.recentOrder, eventID)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	logger Logger
	closed bool
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

// deliver never blocks. On overflow the oldest queued event is dropped,
// since a later slot_changed supersedes it.
func (s *subscriber) deliver(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		select {
		case oldest := <-s.ch:
			s.logDrop(oldest)
		default:
		}
	}
}

func (s *subscriber) logDrop(event Event) {
	if s.logger == nil {
		return
	}
	s.logger.Printf("eventbridge: dropped %s rev %d (queue overflow)", event.Type, event.Revision)
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
