package store

import (
	"fmt"

	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/models"
)

// Mutation is a batch of changes applied atomically by the writer.
// Clear is applied first, then Upserts, then Deletes.
type Mutation struct {
	Clear   bool
	Upserts []models.Model
	Deletes []models.Key
}

func (m Mutation) empty() bool {
	return !m.Clear && len(m.Upserts) == 0 && len(m.Deletes) == 0
}

// ChangeEvent describes one applied mutation.
type ChangeEvent struct {
	// Seq increases by one with every published event.
	Seq     uint64
	Cleared bool
	Changed []models.Key
	Deleted []models.Key
}

// Touches reports whether the event concerns any of the given collections.
// A cleared store touches every collection.
func (e ChangeEvent) Touches(collections ...models.Collection) bool {
	if e.Cleared || len(collections) == 0 {
		return true
	}
	for _, c := range collections {
		for _, k := range e.Changed {
			if k.Collection == c {
				return true
			}
		}
		for _, k := range e.Deleted {
			if k.Collection == c {
				return true
			}
		}
	}
	return false
}

func (e ChangeEvent) empty() bool {
	return !e.Cleared && len(e.Changed) == 0 && len(e.Deleted) == 0
}

// snapshot is an immutable view of the store contents.
// Collection maps are shared between snapshots until a mutation touches them.
type snapshot struct {
	collections map[models.Collection]map[models.ID]models.Model
}

func emptySnapshot() *snapshot {
	return &snapshot{collections: map[models.Collection]map[models.ID]models.Model{}}
}

func validateMutation(m Mutation) error {
	for _, model := range m.Upserts {
		if err := models.Validate(model); err != nil {
			return err
		}
	}
	for _, k := range m.Deletes {
		if !k.Collection.Valid() || !models.IsRegistered(k.Collection) {
			return fmt.Errorf("%w: %q", constants.ErrInvalidCollection, k.Collection)
		}
		if k.ID.IsZero() {
			return fmt.Errorf("%w: %s", constants.ErrNoID, k.Collection)
		}
	}
	return nil
}

// reduce returns the snapshot that results from applying m to s, together with
// the event describing the change. s is never modified. An invalid mutation
// is rejected as a whole.
func reduce(s *snapshot, m Mutation) (*snapshot, ChangeEvent, error) {
	if err := validateMutation(m); err != nil {
		return s, ChangeEvent{}, err
	}

	var ev ChangeEvent
	next := &snapshot{collections: make(map[models.Collection]map[models.ID]models.Model, len(s.collections))}
	if m.Clear {
		ev.Cleared = len(s.collections) > 0
	} else {
		for c, coll := range s.collections {
			next.collections[c] = coll
		}
	}

	copied := map[models.Collection]bool{}
	writable := func(c models.Collection) map[models.ID]models.Model {
		if copied[c] {
			return next.collections[c]
		}
		old := next.collections[c]
		coll := make(map[models.ID]models.Model, len(old)+1)
		for id, model := range old {
			coll[id] = model
		}
		next.collections[c] = coll
		copied[c] = true
		return coll
	}

	for _, model := range m.Upserts {
		k := models.KeyOf(model)
		writable(k.Collection)[k.ID] = model
		ev.Changed = append(ev.Changed, k)
	}

	for _, k := range m.Deletes {
		if _, ok := next.collections[k.Collection][k.ID]; !ok {
			continue
		}
		coll := writable(k.Collection)
		delete(coll, k.ID)
		if len(coll) == 0 {
			delete(next.collections, k.Collection)
		}
		ev.Deleted = append(ev.Deleted, k)
	}

	if ev.empty() {
		return s, ev, nil
	}
	return next, ev, nil
}
