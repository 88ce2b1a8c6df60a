// Package repository provides per collection access to the mirrored records.
//
// Reads are served from the store. Writes go to the server over REST and
// reach the store the way every other change does, through the autoupdate
// channel. A repository created with [WithDirectInjection] additionally puts
// the server's answer into the store itself, for clients running without an
// autoupdate channel.
package repository

import (
	"context"
	"fmt"

	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

// Backend is the REST surface repositories write through.
// *httpclient.Client implements it.
type Backend interface {
	Create(ctx context.Context, m models.Model) (models.Model, error)
	Update(ctx context.Context, m models.Model) (models.Model, error)
	Patch(ctx context.Context, c models.Collection, id models.ID, fields map[string]any) (models.Model, error)
	Delete(ctx context.Context, c models.Collection, id models.ID) error
}

type options struct {
	direct bool
	logger logger.Logger
}

type Option func(*options)

// WithDirectInjection makes successful writes update the store right away.
func WithDirectInjection() Option {
	return func(o *options) {
		o.direct = true
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Repository gives typed access to one collection. M is a pointer to a
// registered model type, e.g. *models.User.
type Repository[M models.Model] struct {
	collection models.Collection
	store      *store.Store
	backend    Backend
	direct     bool
	logger     logger.Logger
}

// New creates the repository of M's collection. It panics if M is not a
// registered model type.
func New[M models.Model](st *store.Store, backend Backend, opts ...Option) *Repository[M] {
	var zero M
	if any(zero) == nil {
		panic("repository: model type must be a concrete pointer type")
	}
	c := zero.Collection()
	if !models.IsRegistered(c) {
		panic(fmt.Sprintf("repository: collection %q is not registered", c))
	}

	o := options{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Repository[M]{
		collection: c,
		store:      st,
		backend:    backend,
		direct:     o.direct,
		logger:     o.logger,
	}
}

func (r *Repository[M]) Collection() models.Collection {
	return r.collection
}

func (r *Repository[M]) Store() *store.Store {
	return r.store
}

func (r *Repository[M]) Get(id models.ID) (M, bool) {
	return store.GetAs[M](r.store, r.collection, id)
}

func (r *Repository[M]) GetMany(ids ...models.ID) []M {
	return store.ManyAs[M](r.store, r.collection, ids...)
}

// GetAll returns every record ordered by id.
func (r *Repository[M]) GetAll() []M {
	return store.AllAs[M](r.store, r.collection)
}

func (r *Repository[M]) Filter(keep func(M) bool) []M {
	ms := r.store.Filter(r.collection, func(m models.Model) bool {
		t, ok := m.(M)
		return ok && keep(t)
	})
	return convert[M](ms)
}

// Query filters with a CEL expression, see store.Store.Query.
func (r *Repository[M]) Query(expr string) ([]M, error) {
	ms, err := r.store.Query(r.collection, expr)
	if err != nil {
		return nil, err
	}
	return convert[M](ms), nil
}

// Create stores m on the server and returns the id the server assigned.
func (r *Repository[M]) Create(ctx context.Context, m M) (models.ID, error) {
	created, err := r.backend.Create(ctx, m)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", r.collection, err)
	}
	if err := r.inject(ctx, store.Mutation{Upserts: []models.Model{created}}); err != nil {
		return created.ModelID(), err
	}
	return created.ModelID(), nil
}

// Update replaces the server's record with m.
func (r *Repository[M]) Update(ctx context.Context, m M) error {
	updated, err := r.backend.Update(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", models.KeyOf(m), err)
	}
	return r.inject(ctx, store.Mutation{Upserts: []models.Model{updated}})
}

// Patch changes the given fields of record id.
func (r *Repository[M]) Patch(ctx context.Context, id models.ID, fields map[string]any) error {
	patched, err := r.backend.Patch(ctx, r.collection, id, fields)
	if err != nil {
		return fmt.Errorf("failed to patch %s: %w", models.NewKey(r.collection, id), err)
	}
	return r.inject(ctx, store.Mutation{Upserts: []models.Model{patched}})
}

func (r *Repository[M]) Delete(ctx context.Context, id models.ID) error {
	if err := r.backend.Delete(ctx, r.collection, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", models.NewKey(r.collection, id), err)
	}
	return r.inject(ctx, store.Mutation{Deletes: []models.Key{models.NewKey(r.collection, id)}})
}

func (r *Repository[M]) inject(ctx context.Context, m store.Mutation) error {
	if !r.direct {
		return nil
	}
	if err := r.store.Apply(ctx, m); err != nil {
		return fmt.Errorf("failed to inject %s into the store: %w", r.collection, err)
	}
	r.logger.Debug("injected write into store", "collection", r.collection,
		"upserts", len(m.Upserts), "deletes", len(m.Deletes))
	return nil
}

func convert[M models.Model](ms []models.Model) []M {
	out := make([]M, 0, len(ms))
	for _, m := range ms {
		if t, ok := m.(M); ok {
			out = append(out, t)
		}
	}
	return out
}
