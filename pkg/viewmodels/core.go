package viewmodels

import (
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

type Projector struct {
	*models.Projector
	store *store.Store
}

func NewProjector(st *store.Store, p *models.Projector) *Projector {
	return &Projector{Projector: p, store: st}
}

// Projected returns the mirrored records shown by the current elements.
// Elements that are not about a record, like the clock, are skipped.
func (p *Projector) Projected() []models.Model {
	return p.resolve(p.Elements)
}

// Preview returns the mirrored records queued up on the projector.
func (p *Projector) Preview() []models.Model {
	return p.resolve(p.ElementsPreview)
}

func (p *Projector) resolve(elements []models.ProjectorElement) []models.Model {
	var out []models.Model
	for _, e := range elements {
		k, ok := e.Key()
		if !ok {
			continue
		}
		if m, ok := p.store.Get(k.Collection, k.ID); ok {
			out = append(out, m)
		}
	}
	return out
}

// ReferenceProjector returns the projector that sets the countdowns and
// messages of this one.
func (p *Projector) ReferenceProjector() (*Projector, bool) {
	if p.ReferenceProjectorID.IsZero() {
		return nil, false
	}
	ref, ok := store.GetAs[*models.Projector](p.store, models.CollectionProjector, p.ReferenceProjectorID)
	if !ok {
		return nil, false
	}
	return NewProjector(p.store, ref), true
}

type ChatMessage struct {
	*models.ChatMessage
	store *store.Store
}

func NewChatMessage(st *store.Store, c *models.ChatMessage) *ChatMessage {
	return &ChatMessage{ChatMessage: c, store: st}
}

func (c *ChatMessage) Author() (*User, bool) {
	return lookupUser(c.store, c.UserID)
}

// AuthorName prefers the mirrored user's name over the name stored with
// the message.
func (c *ChatMessage) AuthorName() string {
	if u, ok := c.Author(); ok {
		return u.ShortName()
	}
	return c.Username
}
