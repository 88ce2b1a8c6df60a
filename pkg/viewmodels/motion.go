package viewmodels

import (
	"sort"

	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/polls"
	"github.com/openslides/openslides.go/pkg/store"
)

type Motion struct {
	*models.Motion
	store *store.Store
}

func NewMotion(st *store.Store, m *models.Motion) *Motion {
	return &Motion{Motion: m, store: st}
}

// Submitters returns the submitting users ordered by submitter weight.
func (m *Motion) Submitters() []*User {
	subs := append([]models.Submitter(nil), m.Motion.Submitters...)
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Weight < subs[j].Weight })

	out := make([]*User, 0, len(subs))
	for _, s := range subs {
		if u, ok := lookupUser(m.store, s.UserID); ok {
			out = append(out, u)
		}
	}
	return out
}

func (m *Motion) Supporters() []*User {
	return users(m.store, m.SupportersID...)
}

// Parent returns the motion this one amends.
func (m *Motion) Parent() (*Motion, bool) {
	if m.ParentID.IsZero() {
		return nil, false
	}
	p, ok := store.GetAs[*models.Motion](m.store, models.CollectionMotion, m.ParentID)
	if !ok {
		return nil, false
	}
	return NewMotion(m.store, p), true
}

func (m *Motion) IsAmendment() bool {
	return !m.ParentID.IsZero()
}

// Amendments returns the motions amending this one, ordered by id.
func (m *Motion) Amendments() []*Motion {
	ms := m.store.Filter(models.CollectionMotion, func(x models.Model) bool {
		return x.(*models.Motion).ParentID == m.ID
	})
	out := make([]*Motion, len(ms))
	for i, x := range ms {
		out[i] = NewMotion(m.store, x.(*models.Motion))
	}
	return out
}

func (m *Motion) AgendaItem() (*AgendaItem, bool) {
	if m.AgendaItemID.IsZero() {
		return nil, false
	}
	a, ok := store.GetAs[*models.AgendaItem](m.store, models.CollectionAgendaItem, m.AgendaItemID)
	if !ok {
		return nil, false
	}
	return NewAgendaItem(m.store, a), true
}

func (m *Motion) ListOfSpeakers() (*ListOfSpeakers, bool) {
	if !m.ListOfSpeakersID.IsZero() {
		if l, ok := store.GetAs[*models.ListOfSpeakers](m.store, models.CollectionListOfSpeakers, m.ListOfSpeakersID); ok {
			return NewListOfSpeakers(m.store, l), true
		}
	}
	return listOfSpeakersFor(m.store, models.KeyOf(m.Motion))
}

// Polls returns the polls on this motion, ordered by id.
func (m *Motion) Polls() []*MotionPoll {
	ms := m.store.Filter(models.CollectionMotionPoll, func(x models.Model) bool {
		return x.(*models.MotionPoll).MotionID == m.ID
	})
	out := make([]*MotionPoll, len(ms))
	for i, x := range ms {
		out[i] = NewMotionPoll(m.store, x.(*models.MotionPoll))
	}
	return out
}

type MotionPoll struct {
	*models.MotionPoll
	store *store.Store
}

func NewMotionPoll(st *store.Store, p *models.MotionPoll) *MotionPoll {
	return &MotionPoll{MotionPoll: p, store: st}
}

func (p *MotionPoll) Motion() (*Motion, bool) {
	m, ok := store.GetAs[*models.Motion](p.store, models.CollectionMotion, p.MotionID)
	if !ok {
		return nil, false
	}
	return NewMotion(p.store, m), true
}

func (p *MotionPoll) Options() []*models.MotionOption {
	return store.ManyAs[*models.MotionOption](p.store, models.CollectionMotionOption, p.OptionsID...)
}

// Votes returns the votes of all options.
func (p *MotionPoll) Votes() []*models.MotionVote {
	var out []*models.MotionVote
	for _, o := range p.Options() {
		out = append(out, store.ManyAs[*models.MotionVote](p.store, models.CollectionMotionVote, o.VotesID...)...)
	}
	return out
}

// VotedUsers returns the users who have voted.
func (p *MotionPoll) VotedUsers() []*User {
	return users(p.store, p.VotedID...)
}

// EntitledGroups returns the groups allowed to vote.
func (p *MotionPoll) EntitledGroups() []*models.Group {
	return store.ManyAs[*models.Group](p.store, models.CollectionGroup, p.GroupsID...)
}

func (p *MotionPoll) IsFinished() bool {
	return p.State == models.PollStateFinished || p.State == models.PollStatePublished
}

// Results computes the result table with the poll's own percent base.
func (p *MotionPoll) Results() []polls.Row {
	return polls.ResultTable(p.MotionPoll, p.Options(), "")
}
