// Package store implements the in-memory mirror of server state.
//
// A [Store] maps (collection, id) to the latest [models.Model] the client knows.
// All writes are sent to a single writer goroutine which applies them with a
// pure reducer and publishes the resulting [ChangeEvent]. Readers work on
// immutable snapshots and never block the writer.
//
// A Store lives as long as a session: create it on login with [New] and
// release it on logout with [Store.Close], which also drops all records.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
)

type request struct {
	mutation Mutation
	result   chan error
}

type Store struct {
	state atomic.Pointer[snapshot]

	requests chan request
	closeCh  chan struct{}
	loopDone chan struct{}
	closeMu  sync.Once

	// seq is only touched by the writer goroutine.
	seq uint64

	router *router
	logger logger.Logger
	query  *queryCache
}

type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithSubscriptionBuffer sets the channel capacity of new subscriptions.
func WithSubscriptionBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.router.size = n
		}
	}
}

// New creates an empty store and starts its writer goroutine.
func New(opts ...Option) *Store {
	s := &Store{
		requests: make(chan request),
		closeCh:  make(chan struct{}),
		loopDone: make(chan struct{}),
		logger:   logger.Discard(),
		query:    newQueryCache(),
	}
	s.router = newRouter(constants.DefaultSubscriptionSize, s.logger)
	for _, opt := range opts {
		opt(s)
	}
	s.router.logger = s.logger
	s.state.Store(emptySnapshot())

	go s.writeLoop()

	return s
}

func (s *Store) writeLoop() {
	defer close(s.loopDone)

	for {
		select {
		case <-s.closeCh:
			return
		case req := <-s.requests:
			req.result <- s.apply(req.mutation)
		}
	}
}

func (s *Store) apply(m Mutation) error {
	next, ev, err := reduce(s.state.Load(), m)
	if err != nil {
		return err
	}
	if ev.empty() {
		return nil
	}

	s.state.Store(next)
	s.seq++
	ev.Seq = s.seq
	s.logger.Debug("store changed",
		"seq", ev.Seq, "changed", len(ev.Changed), "deleted", len(ev.Deleted), "cleared", ev.Cleared)
	s.router.publish(ev)

	return nil
}

// Apply sends m to the writer and waits until it has been applied.
// When Apply returns nil, every read sees the result of m.
func (s *Store) Apply(ctx context.Context, m Mutation) error {
	if m.empty() {
		return nil
	}

	req := request{mutation: m, result: make(chan error, 1)}

	select {
	case <-s.closeCh:
		return constants.ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.requests <- req:
	}

	// Once the writer has the request it always answers.
	return <-req.result
}

// Add inserts or replaces the given models. Adding a model whose id is
// already present overwrites the previous record.
func (s *Store) Add(ms ...models.Model) error {
	return s.Apply(context.Background(), Mutation{Upserts: ms})
}

// Remove deletes the records of collection c with the given ids.
// Ids that are not present are ignored: they do not appear in
// ChangeEvent.Deleted, and removing only absent ids publishes no event.
func (s *Store) Remove(c models.Collection, ids ...models.ID) error {
	if !c.Valid() || !models.IsRegistered(c) {
		return fmt.Errorf("%w: %q", constants.ErrInvalidCollection, c)
	}
	keys := make([]models.Key, len(ids))
	for i, id := range ids {
		keys[i] = models.NewKey(c, id)
	}
	return s.Apply(context.Background(), Mutation{Deletes: keys})
}

// Clear drops every record.
func (s *Store) Clear() error {
	return s.Apply(context.Background(), Mutation{Clear: true})
}

// Close stops the writer, drops all records and closes every subscription.
// Writes after Close fail with constants.ErrStoreClosed.
func (s *Store) Close() {
	s.closeMu.Do(func() {
		close(s.closeCh)
		<-s.loopDone
		s.state.Store(emptySnapshot())
		s.router.close()
		s.logger.Debug("store closed")
	})
}

// Subscribe returns a subscription for changes to the given collections,
// or to every collection when none are given.
func (s *Store) Subscribe(collections ...models.Collection) *Subscription {
	return s.router.add(collections)
}

// Get returns the record of collection c with the given id.
func (s *Store) Get(c models.Collection, id models.ID) (models.Model, bool) {
	m, ok := s.state.Load().collections[c][id]
	return m, ok
}

// GetMany returns the records with the given ids, in the order of ids.
// Missing ids are skipped.
func (s *Store) GetMany(c models.Collection, ids ...models.ID) []models.Model {
	coll := s.state.Load().collections[c]
	out := make([]models.Model, 0, len(ids))
	for _, id := range ids {
		if m, ok := coll[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// GetAll returns all records of collection c ordered by id.
func (s *Store) GetAll(c models.Collection) []models.Model {
	return s.Filter(c, nil)
}

// Filter returns the records of collection c for which keep returns true,
// ordered by id. A nil keep returns all records.
func (s *Store) Filter(c models.Collection, keep func(models.Model) bool) []models.Model {
	coll := s.state.Load().collections[c]
	out := make([]models.Model, 0, len(coll))
	for _, m := range coll {
		if keep == nil || keep(m) {
			out = append(out, m)
		}
	}
	sortByID(out)
	return out
}

// Count returns the number of records in collection c.
func (s *Store) Count(c models.Collection) int {
	return len(s.state.Load().collections[c])
}

// Collections returns the collections that currently hold records.
func (s *Store) Collections() []models.Collection {
	snap := s.state.Load()
	out := make([]models.Collection, 0, len(snap.collections))
	for c := range snap.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortByID(ms []models.Model) {
	sort.Slice(ms, func(i, j int) bool {
		return LessID(ms[i].ModelID(), ms[j].ModelID())
	})
}

// LessID orders numeric ids numerically and everything else lexically,
// numeric ids first.
func LessID(a, b models.ID) bool {
	an, aok := a.Int()
	bn, bok := b.Int()
	switch {
	case aok && bok:
		return an < bn
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

// GetAs returns the record of collection c with the given id as T.
func GetAs[T models.Model](s *Store, c models.Collection, id models.ID) (T, bool) {
	m, ok := s.Get(c, id)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := m.(T)
	return t, ok
}

// ManyAs is GetMany with the results converted to T.
func ManyAs[T models.Model](s *Store, c models.Collection, ids ...models.ID) []T {
	return convert[T](s.GetMany(c, ids...))
}

// AllAs is GetAll with the results converted to T.
func AllAs[T models.Model](s *Store, c models.Collection) []T {
	return convert[T](s.GetAll(c))
}

func convert[T models.Model](ms []models.Model) []T {
	out := make([]T, 0, len(ms))
	for _, m := range ms {
		if t, ok := m.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
