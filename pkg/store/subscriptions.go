package store

import (
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
)

// Subscription receives the change events of the collections it was created for.
type Subscription struct {
	// ID identifies the subscription in log output.
	ID string
	// C delivers the events. It is closed on Unsubscribe or when the store closes.
	C <-chan ChangeEvent

	ch          chan ChangeEvent
	collections []models.Collection
	dropped     atomic.Uint64
	router      *router
}

// Unsubscribe stops delivery and closes C. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.router.remove(s.ID)
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// router fans change events out to subscriptions.
type router struct {
	subs   map[string]*Subscription
	subsMu sync.RWMutex
	size   int
	closed bool
	logger logger.Logger
}

func newRouter(size int, log logger.Logger) *router {
	return &router{
		subs:   make(map[string]*Subscription),
		size:   size,
		logger: log,
	}
}

func (r *router) add(collections []models.Collection) *Subscription {
	ch := make(chan ChangeEvent, r.size)
	sub := &Subscription{
		ID:          uuid.Must(uuid.NewV4()).String(),
		C:           ch,
		ch:          ch,
		collections: collections,
		router:      r,
	}

	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	if r.closed {
		close(ch)
		return sub
	}
	r.subs[sub.ID] = sub
	r.logger.Debug("store subscription added", "subscription_id", sub.ID, "collections", collections)
	return sub
}

func (r *router) remove(id string) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	if sub, ok := r.subs[id]; ok {
		close(sub.ch)
		delete(r.subs, id)
		r.logger.Debug("store subscription removed", "subscription_id", id)
	}
}

// publish never blocks: an event for a subscriber whose buffer is full is dropped.
func (r *router) publish(ev ChangeEvent) {
	r.subsMu.RLock()
	defer r.subsMu.RUnlock()

	for _, sub := range r.subs {
		if !ev.Touches(sub.collections...) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			r.logger.Warn("failed to deliver store event, subscription buffer is full",
				"subscription_id", sub.ID, "seq", ev.Seq)
		}
	}
}

func (r *router) close() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for id, sub := range r.subs {
		close(sub.ch)
		delete(r.subs, id)
	}
	r.closed = true
}
