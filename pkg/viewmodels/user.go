// Package viewmodels wraps mirrored records with accessors that resolve their
// relations against the store.
//
// A view model holds the record it was built from, but nothing it refers to:
// every accessor looks the related records up in the store at call time. View
// models are cheap to build and are rebuilt rather than updated, see
// repository.Watch.
package viewmodels

import (
	"fmt"
	"strings"

	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

type User struct {
	*models.User
	store *store.Store
}

func NewUser(st *store.Store, u *models.User) *User {
	return &User{User: u, store: st}
}

func (u *User) Groups() []*models.Group {
	return store.ManyAs[*models.Group](u.store, models.CollectionGroup, u.GroupsID...)
}

// ShortName is "title first last", falling back to the username when the
// user has no name.
func (u *User) ShortName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	if title := strings.TrimSpace(u.Title); title != "" {
		name = title + " " + name
	}
	return strings.TrimSpace(name)
}

// FullName is the short name followed by structure level and number,
// e.g. "Dr. Jane Doe (Berlin · No. 12)".
func (u *User) FullName() string {
	var additions []string
	if s := strings.TrimSpace(u.StructureLevel); s != "" {
		additions = append(additions, s)
	}
	if n := strings.TrimSpace(u.Number); n != "" {
		additions = append(additions, fmt.Sprintf("No. %s", n))
	}
	if len(additions) == 0 {
		return u.ShortName()
	}
	return fmt.Sprintf("%s (%s)", u.ShortName(), strings.Join(additions, " · "))
}

func (u *User) VoteDelegatedTo() (*User, bool) {
	return lookupUser(u.store, u.VoteDelegatedToID)
}

func (u *User) VoteDelegationsFrom() []*User {
	return users(u.store, u.VoteDelegatedFromUsersID...)
}

// HasPermission reports whether any of the user's groups grants perm.
func (u *User) HasPermission(perm string) bool {
	for _, g := range u.Groups() {
		for _, p := range g.Permissions {
			if p == perm {
				return true
			}
		}
	}
	return false
}

func (u *User) String() string {
	return u.FullName()
}

func lookupUser(st *store.Store, id models.ID) (*User, bool) {
	if id.IsZero() {
		return nil, false
	}
	u, ok := store.GetAs[*models.User](st, models.CollectionUser, id)
	if !ok {
		return nil, false
	}
	return NewUser(st, u), true
}

func users(st *store.Store, ids ...models.ID) []*User {
	us := store.ManyAs[*models.User](st, models.CollectionUser, ids...)
	out := make([]*User, len(us))
	for i, u := range us {
		out[i] = NewUser(st, u)
	}
	return out
}
