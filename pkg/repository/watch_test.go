package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

// userLabel renders "username (group, group)".
func userLabel(st *store.Store, u *models.User) string {
	groups := store.ManyAs[*models.Group](st, models.CollectionGroup, u.GroupsID...)
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return u.Username + " (" + strings.Join(names, ", ") + ")"
}

var userLabels = NewView(userLabel, models.CollectionGroup)

// waitFor reads views until one satisfies ok. Intermediate slices may be
// skipped by Watch, so only the eventual state is asserted.
func waitFor[V any](t *testing.T, ch <-chan []V, ok func([]V) bool) []V {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case views, open := <-ch:
			require.True(t, open, "watch channel closed")
			if ok(views) {
				return views
			}
		case <-timeout:
			t.Fatal("timed out waiting for view models")
			return nil
		}
	}
}

func TestWatch(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Add(&models.Group{ID: models.IntID(2), Name: "Admin"}))
	r := New[*models.User](st, newMemoryBackend())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := Watch(ctx, r, userLabels)

	initial := waitFor(t, views, func(v []string) bool { return true })
	assert.Empty(t, initial)

	require.NoError(t, st.Add(&models.User{ID: models.IntID(1), Username: "admin", GroupsID: models.IntIDs(2, 3)}))
	waitFor(t, views, func(v []string) bool {
		return len(v) == 1 && v[0] == "admin (Admin)"
	})

	// A change to a dependency rebuilds the views as well.
	require.NoError(t, st.Add(&models.Group{ID: models.IntID(3), Name: "Delegates"}))
	waitFor(t, views, func(v []string) bool {
		return len(v) == 1 && v[0] == "admin (Admin, Delegates)"
	})

	require.NoError(t, st.Remove(models.CollectionUser, models.IntID(1)))
	waitFor(t, views, func(v []string) bool { return len(v) == 0 })
}

func TestWatch_IgnoresUnrelatedCollections(t *testing.T) {
	st := newTestStore(t)
	r := New[*models.User](st, newMemoryBackend())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := Watch(ctx, r, NewView(userLabel))
	waitFor(t, views, func(v []string) bool { return true })

	require.NoError(t, st.Add(&models.Motion{ID: models.IntID(1), Title: "Budget"}))

	select {
	case v := <-views:
		t.Fatalf("unexpected rebuild %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestView_Collections(t *testing.T) {
	v := NewView(userLabel, models.CollectionGroup, models.CollectionUser, models.CollectionGroup)
	assert.Equal(t, []models.Collection{models.CollectionUser, models.CollectionGroup}, v.Collections(models.CollectionUser))
	assert.Equal(t, []models.Collection{models.CollectionUser}, NewView(userLabel).Collections(models.CollectionUser))
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	st := newTestStore(t)
	r := New[*models.User](st, newMemoryBackend())

	ctx, cancel := context.WithCancel(context.Background())
	views := Watch(ctx, r, NewView(userLabel))
	waitFor(t, views, func(v []string) bool { return true })
	cancel()

	select {
	case _, open := <-views:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestWatch_ClosesWithStore(t *testing.T) {
	st := store.New()
	r := New[*models.User](st, newMemoryBackend())

	views := Watch(context.Background(), r, userLabels)
	waitFor(t, views, func(v []string) bool { return true })
	st.Close()

	select {
	case _, open := <-views:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after store close")
	}
}
