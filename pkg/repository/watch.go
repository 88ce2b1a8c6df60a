package repository

import (
	"context"

	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

// Builder turns a record into its view model, resolving relations against
// the store it is given.
type Builder[M models.Model, V any] func(st *store.Store, m M) V

// View pairs a Builder with the collections its view models read besides
// their own. A change to any of them may change a built view model.
type View[M models.Model, V any] struct {
	Build Builder[M, V]
	Deps  []models.Collection
}

// NewView returns a View building with build and rebuilding on changes to
// deps.
func NewView[M models.Model, V any](build Builder[M, V], deps ...models.Collection) View[M, V] {
	return View[M, V]{Build: build, Deps: deps}
}

// Collections returns own followed by the dependencies, without duplicates.
func (v View[M, V]) Collections(own models.Collection) []models.Collection {
	out := []models.Collection{own}
	seen := map[models.Collection]bool{own: true}
	for _, c := range v.Deps {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Watch emits the view models of all records of r, ordered by id, once
// right away and again after every change to r's collection or one of the
// dependencies of view.
//
// Only the latest slice is kept for a slow reader; intermediate slices are
// replaced, never queued. The channel is closed when ctx is done or the
// store is closed.
func Watch[M models.Model, V any](ctx context.Context, r *Repository[M], view View[M, V]) <-chan []V {
	build := view.Build
	sub := r.store.Subscribe(view.Collections(r.collection)...)

	out := make(chan []V, 1)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		emit := func() {
			ms := r.GetAll()
			views := make([]V, len(ms))
			for i, m := range ms {
				views[i] = build(r.store, m)
			}
			// out has room for one slice and only this goroutine sends.
			select {
			case <-out:
			default:
			}
			out <- views
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				r.logger.Debug("rebuilding view models", "collection", r.collection, "seq", ev.Seq)
				emit()
			}
		}
	}()

	return out
}
