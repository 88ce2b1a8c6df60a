package viewmodels

import (
	"sort"
	"strings"

	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

type AgendaItem struct {
	*models.AgendaItem
	store *store.Store
}

func NewAgendaItem(st *store.Store, a *models.AgendaItem) *AgendaItem {
	return &AgendaItem{AgendaItem: a, store: st}
}

// ContentObject returns the key of the record the item is about.
func (a *AgendaItem) ContentObject() models.Key {
	return a.AgendaItem.ContentObject.Key()
}

// ContentModel returns the record the item is about, if it is mirrored.
func (a *AgendaItem) ContentModel() (models.Model, bool) {
	k := a.ContentObject()
	return a.store.Get(k.Collection, k.ID)
}

func (a *AgendaItem) Parent() (*AgendaItem, bool) {
	if a.ParentID.IsZero() {
		return nil, false
	}
	p, ok := store.GetAs[*models.AgendaItem](a.store, models.CollectionAgendaItem, a.ParentID)
	if !ok {
		return nil, false
	}
	return NewAgendaItem(a.store, p), true
}

// Children returns the direct sub items ordered by weight.
func (a *AgendaItem) Children() []*AgendaItem {
	ms := a.store.Filter(models.CollectionAgendaItem, func(m models.Model) bool {
		return m.(*models.AgendaItem).ParentID == a.ID
	})
	out := make([]*AgendaItem, len(ms))
	for i, m := range ms {
		out[i] = NewAgendaItem(a.store, m.(*models.AgendaItem))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	return out
}

// ListOfSpeakers returns the list of speakers of the same content object.
func (a *AgendaItem) ListOfSpeakers() (*ListOfSpeakers, bool) {
	return listOfSpeakersFor(a.store, a.ContentObject())
}

// Title is "number · title", or just the title for unnumbered items.
func (a *AgendaItem) Title() string {
	title := a.TitleInformation.Title
	if a.TitleInformation.Identifier != "" {
		title = a.TitleInformation.Identifier + ": " + title
	}
	if a.ItemNumber == "" {
		return title
	}
	return strings.TrimSpace(a.ItemNumber + " · " + title)
}

type ListOfSpeakers struct {
	*models.ListOfSpeakers
	store *store.Store
}

func NewListOfSpeakers(st *store.Store, l *models.ListOfSpeakers) *ListOfSpeakers {
	return &ListOfSpeakers{ListOfSpeakers: l, store: st}
}

// Speaker is an entry of a list of speakers with its user resolved.
type Speaker struct {
	models.Speaker
	// User is nil if the user record is not mirrored.
	User *User
}

func (l *ListOfSpeakers) ContentObject() models.Key {
	return l.ListOfSpeakers.ContentObject.Key()
}

func (l *ListOfSpeakers) ContentModel() (models.Model, bool) {
	k := l.ContentObject()
	return l.store.Get(k.Collection, k.ID)
}

// Speakers returns all entries in the order the server sent them.
func (l *ListOfSpeakers) Speakers() []*Speaker {
	out := make([]*Speaker, len(l.ListOfSpeakers.Speakers))
	for i := range l.ListOfSpeakers.Speakers {
		out[i] = l.speaker(l.ListOfSpeakers.Speakers[i])
	}
	return out
}

// Current returns the speaker who has begun and not yet finished.
func (l *ListOfSpeakers) Current() (*Speaker, bool) {
	for _, s := range l.ListOfSpeakers.Speakers {
		if s.State() == models.SpeakerCurrent {
			return l.speaker(s), true
		}
	}
	return nil, false
}

// Waiting returns the speakers who have not spoken yet, by weight.
func (l *ListOfSpeakers) Waiting() []*Speaker {
	out := l.inState(models.SpeakerWaiting)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	return out
}

// Finished returns the speakers who have spoken, in the order they spoke.
func (l *ListOfSpeakers) Finished() []*Speaker {
	out := l.inState(models.SpeakerFinished)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndTime.Before(*out[j].EndTime) })
	return out
}

func (l *ListOfSpeakers) inState(state models.SpeakerState) []*Speaker {
	var out []*Speaker
	for _, s := range l.ListOfSpeakers.Speakers {
		if s.State() == state {
			out = append(out, l.speaker(s))
		}
	}
	return out
}

func (l *ListOfSpeakers) speaker(s models.Speaker) *Speaker {
	u, _ := lookupUser(l.store, s.UserID)
	return &Speaker{Speaker: s, User: u}
}

func listOfSpeakersFor(st *store.Store, k models.Key) (*ListOfSpeakers, bool) {
	ms := st.Filter(models.CollectionListOfSpeakers, func(m models.Model) bool {
		return m.(*models.ListOfSpeakers).ContentObject.Key() == k
	})
	if len(ms) == 0 {
		return nil, false
	}
	return NewListOfSpeakers(st, ms[0].(*models.ListOfSpeakers)), true
}
