package viewmodels

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/polls"
	"github.com/openslides/openslides.go/pkg/repository"
	"github.com/openslides/openslides.go/pkg/store"
)

var (
	t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(3 * time.Minute)
	t2 = t0.Add(5 * time.Minute)
)

func at(t time.Time) *time.Time {
	return &t
}

func motionKey(id int) models.ContentObject {
	return models.ContentObject{Collection: models.CollectionMotion, ID: models.IntID(id)}
}

func newFixture(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	t.Cleanup(st.Close)

	require.NoError(t, st.Add(
		&models.Group{ID: models.IntID(2), Name: "Admin", Permissions: []string{"motions.can_manage"}},
		&models.Group{ID: models.IntID(3), Name: "Delegates", Permissions: []string{"motions.can_see", "agenda.can_see"}},

		&models.User{ID: models.IntID(1), Username: "admin", FirstName: "Administrator", GroupsID: models.IntIDs(2)},
		&models.User{
			ID: models.IntID(2), Username: "jdoe", Title: "Dr.", FirstName: "Jane", LastName: "Doe",
			StructureLevel: "Berlin", Number: "12", GroupsID: models.IntIDs(3),
			VoteDelegatedFromUsersID: models.IntIDs(3),
		},
		&models.User{ID: models.IntID(3), Username: "guest", VoteDelegatedToID: models.IntID(2)},

		&models.Motion{
			ID: models.IntID(1), Identifier: "A1", Title: "Budget",
			Submitters: []models.Submitter{
				{ID: models.IntID(1), UserID: models.IntID(2), Weight: 2},
				{ID: models.IntID(2), UserID: models.IntID(1), Weight: 1},
			},
			SupportersID:     models.IntIDs(3, 99),
			AgendaItemID:     models.IntID(5),
			ListOfSpeakersID: models.IntID(7),
		},
		&models.Motion{ID: models.IntID(2), Title: "Amend budget", ParentID: models.IntID(1)},
		&models.Motion{ID: models.IntID(3), Title: "Amend budget again", ParentID: models.IntID(1)},

		&models.AgendaItem{
			ID: models.IntID(5), ItemNumber: "TOP 1",
			TitleInformation: models.TitleInformation{Title: "Budget", Identifier: "A1"},
			ContentObject:    motionKey(1),
		},
		&models.AgendaItem{ID: models.IntID(6), ParentID: models.IntID(5), Weight: 2, ContentObject: motionKey(2)},
		&models.AgendaItem{ID: models.IntID(8), ParentID: models.IntID(5), Weight: 1, ContentObject: motionKey(3)},

		&models.ListOfSpeakers{
			ID:            models.IntID(7),
			ContentObject: motionKey(1),
			Speakers: []models.Speaker{
				{ID: models.IntID(1), UserID: models.IntID(2), BeginTime: at(t1), EndTime: at(t2)},
				{ID: models.IntID(2), UserID: models.IntID(3), BeginTime: at(t0), EndTime: at(t1)},
				{ID: models.IntID(3), UserID: models.IntID(1), BeginTime: at(t2)},
				{ID: models.IntID(4), UserID: models.IntID(3), Weight: 2},
				{ID: models.IntID(5), UserID: models.IntID(99), Weight: 1},
			},
		},
		&models.ListOfSpeakers{ID: models.IntID(9), ContentObject: motionKey(2)},

		&models.MotionPoll{
			ID: models.IntID(10), MotionID: models.IntID(1), State: models.PollStatePublished,
			PollMethod: models.PollMethodYNA, OnehundredPercentBase: models.PercentBaseYNA,
			VotesValid: models.DecimalFromInt(3), VotesCast: models.DecimalFromInt(3),
			OptionsID: models.IntIDs(11), VotedID: models.IntIDs(1, 2), GroupsID: models.IntIDs(3),
		},
		&models.MotionOption{
			ID: models.IntID(11), PollID: models.IntID(10),
			Yes: models.DecimalFromInt(2), No: models.DecimalFromInt(1),
			VotesID: models.IntIDs(20, 21),
		},
		&models.MotionVote{ID: models.IntID(20), Value: "Y", UserID: models.IntID(1), OptionID: models.IntID(11)},
		&models.MotionVote{ID: models.IntID(21), Value: "N", UserID: models.IntID(2), OptionID: models.IntID(11)},

		&models.Projector{
			ID: models.IntID(1), Name: "Default projector",
			Elements: []models.ProjectorElement{
				{"name": "motions/motion", "id": 1},
				{"name": "core/clock", "stable": true},
			},
			ElementsPreview: []models.ProjectorElement{
				{"name": "agenda/item", "id": 5},
				{"name": "motions/motion", "id": 42},
			},
		},
		&models.Projector{ID: models.IntID(2), Name: "Side", ReferenceProjectorID: models.IntID(1)},

		&models.ChatMessage{ID: models.IntID(30), Text: "hello", UserID: models.IntID(2), Username: "jdoe"},
		&models.ChatMessage{ID: models.IntID(31), Text: "bye", UserID: models.IntID(99), Username: "ghost"},
	))
	return st
}

func get[M models.Model](t *testing.T, st *store.Store, c models.Collection, id int) M {
	t.Helper()
	m, ok := store.GetAs[M](st, c, models.IntID(id))
	require.True(t, ok, "%s:%d not in store", c, id)
	return m
}

func userNames(us []*User) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Username
	}
	return out
}

func speakerIDs(ss []*Speaker) []models.ID {
	out := make([]models.ID, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

func modelKeys(ms []models.Model) []models.Key {
	out := make([]models.Key, len(ms))
	for i, m := range ms {
		out[i] = models.KeyOf(m)
	}
	return out
}

func TestUser(t *testing.T) {
	st := newFixture(t)
	jane := NewUser(st, get[*models.User](t, st, models.CollectionUser, 2))
	guest := NewUser(st, get[*models.User](t, st, models.CollectionUser, 3))
	admin := NewUser(st, get[*models.User](t, st, models.CollectionUser, 1))

	assert.Equal(t, "Dr. Jane Doe", jane.ShortName())
	assert.Equal(t, "Dr. Jane Doe (Berlin · No. 12)", jane.FullName())
	assert.Equal(t, "guest", guest.ShortName())
	assert.Equal(t, "guest", guest.FullName())
	assert.Equal(t, "Administrator", admin.String())

	require.Len(t, jane.Groups(), 1)
	assert.Equal(t, "Delegates", jane.Groups()[0].Name)
	assert.True(t, jane.HasPermission("agenda.can_see"))
	assert.False(t, jane.HasPermission("motions.can_manage"))
	assert.True(t, admin.HasPermission("motions.can_manage"))

	to, ok := guest.VoteDelegatedTo()
	require.True(t, ok)
	assert.Equal(t, "jdoe", to.Username)
	_, ok = jane.VoteDelegatedTo()
	assert.False(t, ok)
	assert.Equal(t, []string{"guest"}, userNames(jane.VoteDelegationsFrom()))
}

func TestUser_ResolvesAtAccessTime(t *testing.T) {
	st := newFixture(t)
	jane := NewUser(st, get[*models.User](t, st, models.CollectionUser, 2))

	require.NoError(t, st.Add(&models.Group{ID: models.IntID(3), Name: "Voting delegates"}))
	assert.Equal(t, "Voting delegates", jane.Groups()[0].Name)

	require.NoError(t, st.Remove(models.CollectionGroup, models.IntID(3)))
	assert.Empty(t, jane.Groups())
}

func TestAgendaItem(t *testing.T) {
	st := newFixture(t)
	item := NewAgendaItem(st, get[*models.AgendaItem](t, st, models.CollectionAgendaItem, 5))

	assert.Equal(t, models.NewKey(models.CollectionMotion, models.IntID(1)), item.ContentObject())
	content, ok := item.ContentModel()
	require.True(t, ok)
	assert.Equal(t, "Budget", content.(*models.Motion).Title)
	assert.Equal(t, "TOP 1 · A1: Budget", item.Title())

	_, ok = item.Parent()
	assert.False(t, ok)

	children := item.Children()
	require.Len(t, children, 2)
	assert.Equal(t, models.IntID(8), children[0].ID)
	assert.Equal(t, models.IntID(6), children[1].ID)

	parent, ok := children[0].Parent()
	require.True(t, ok)
	assert.Equal(t, models.IntID(5), parent.ID)

	los, ok := item.ListOfSpeakers()
	require.True(t, ok)
	assert.Equal(t, models.IntID(7), los.ID)

	_, ok = children[0].ListOfSpeakers()
	assert.False(t, ok)
}

func TestListOfSpeakers(t *testing.T) {
	st := newFixture(t)
	los := NewListOfSpeakers(st, get[*models.ListOfSpeakers](t, st, models.CollectionListOfSpeakers, 7))

	assert.Len(t, los.Speakers(), 5)

	current, ok := los.Current()
	require.True(t, ok)
	assert.Equal(t, models.IntID(3), current.ID)
	require.NotNil(t, current.User)
	assert.Equal(t, "admin", current.User.Username)

	if diff := cmp.Diff(models.IntIDs(5, 4), speakerIDs(los.Waiting())); diff != "" {
		t.Errorf("waiting speakers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.IntIDs(2, 1), speakerIDs(los.Finished())); diff != "" {
		t.Errorf("finished speakers mismatch (-want +got):\n%s", diff)
	}

	// User 99 is not mirrored.
	assert.Nil(t, los.Waiting()[0].User)

	empty := NewListOfSpeakers(st, get[*models.ListOfSpeakers](t, st, models.CollectionListOfSpeakers, 9))
	_, ok = empty.Current()
	assert.False(t, ok)
	assert.Empty(t, empty.Waiting())
	content, ok := empty.ContentModel()
	require.True(t, ok)
	assert.Equal(t, models.IntID(2), content.ModelID())
}

func TestMotion(t *testing.T) {
	st := newFixture(t)
	m := NewMotion(st, get[*models.Motion](t, st, models.CollectionMotion, 1))

	if diff := cmp.Diff([]string{"admin", "jdoe"}, userNames(m.Submitters())); diff != "" {
		t.Errorf("submitters mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"guest"}, userNames(m.Supporters()))

	assert.False(t, m.IsAmendment())
	_, ok := m.Parent()
	assert.False(t, ok)

	amendments := m.Amendments()
	require.Len(t, amendments, 2)
	assert.Equal(t, "Amend budget", amendments[0].Title)
	assert.True(t, amendments[0].IsAmendment())
	parent, ok := amendments[1].Parent()
	require.True(t, ok)
	assert.Equal(t, m.ID, parent.ID)

	item, ok := m.AgendaItem()
	require.True(t, ok)
	assert.Equal(t, "TOP 1", item.ItemNumber)

	los, ok := m.ListOfSpeakers()
	require.True(t, ok)
	assert.Equal(t, models.IntID(7), los.ID)

	// Without list_of_speakers_id the list is found by its content object.
	los, ok = amendments[0].ListOfSpeakers()
	require.True(t, ok)
	assert.Equal(t, models.IntID(9), los.ID)

	ps := m.Polls()
	require.Len(t, ps, 1)
	assert.Equal(t, models.IntID(10), ps[0].ID)
	assert.Empty(t, amendments[0].Polls())
}

func TestMotionPoll(t *testing.T) {
	st := newFixture(t)
	p := NewMotionPoll(st, get[*models.MotionPoll](t, st, models.CollectionMotionPoll, 10))

	motion, ok := p.Motion()
	require.True(t, ok)
	assert.Equal(t, "Budget", motion.Title)

	require.Len(t, p.Options(), 1)
	votes := p.Votes()
	require.Len(t, votes, 2)
	assert.Equal(t, "Y", votes[0].Value)
	assert.Equal(t, []string{"admin", "jdoe"}, userNames(p.VotedUsers()))
	require.Len(t, p.EntitledGroups(), 1)
	assert.True(t, p.IsFinished())

	rows := p.Results()
	require.Len(t, rows, 6)
	assert.Equal(t, polls.ValueYes, rows[0].Value)
	assert.Equal(t, "66.667 %", rows[0].FormatPercent())
	assert.Equal(t, "33.333 %", rows[1].FormatPercent())
}

func TestProjector(t *testing.T) {
	st := newFixture(t)
	p := NewProjector(st, get[*models.Projector](t, st, models.CollectionProjector, 1))

	want := []models.Key{models.NewKey(models.CollectionMotion, models.IntID(1))}
	if diff := cmp.Diff(want, modelKeys(p.Projected())); diff != "" {
		t.Errorf("projected mismatch (-want +got):\n%s", diff)
	}
	want = []models.Key{models.NewKey(models.CollectionAgendaItem, models.IntID(5))}
	if diff := cmp.Diff(want, modelKeys(p.Preview())); diff != "" {
		t.Errorf("preview mismatch (-want +got):\n%s", diff)
	}

	_, ok := p.ReferenceProjector()
	assert.False(t, ok)

	side := NewProjector(st, get[*models.Projector](t, st, models.CollectionProjector, 2))
	ref, ok := side.ReferenceProjector()
	require.True(t, ok)
	assert.Equal(t, "Default projector", ref.Name)
	assert.Empty(t, side.Projected())
}

func TestChatMessage(t *testing.T) {
	st := newFixture(t)
	known := NewChatMessage(st, get[*models.ChatMessage](t, st, models.CollectionChatMessage, 30))
	unknown := NewChatMessage(st, get[*models.ChatMessage](t, st, models.CollectionChatMessage, 31))

	author, ok := known.Author()
	require.True(t, ok)
	assert.Equal(t, "jdoe", author.Username)
	assert.Equal(t, "Dr. Jane Doe", known.AuthorName())

	_, ok = unknown.Author()
	assert.False(t, ok)
	assert.Equal(t, "ghost", unknown.AuthorName())
}

func TestBuilders_FeedWatch(t *testing.T) {
	st := newFixture(t)
	r := repository.New[*models.Motion](st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := repository.Watch(ctx, r, MotionView)

	select {
	case ms := <-views:
		require.Len(t, ms, 3)
		assert.Equal(t, []string{"admin", "jdoe"}, userNames(ms[0].Submitters()))
	case <-time.After(time.Second):
		t.Fatal("no initial views")
	}

	require.NoError(t, st.Add(&models.User{ID: models.IntID(1), Username: "root"}))

	deadline := time.After(time.Second)
	for {
		select {
		case ms := <-views:
			if names := userNames(ms[0].Submitters()); names[0] == "root" {
				return
			}
		case <-deadline:
			t.Fatal("views not rebuilt after user change")
		}
	}
}

func TestListOfSpeakersView_RebuildsOnUserChange(t *testing.T) {
	st := newFixture(t)
	r := repository.New[*models.ListOfSpeakers](st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := repository.Watch(ctx, r, ListOfSpeakersView)

	select {
	case ls := <-views:
		require.Len(t, ls, 2)
		require.NotNil(t, ls[0].Speakers()[0].User)
		assert.Equal(t, "jdoe", ls[0].Speakers()[0].User.Username)
	case <-time.After(time.Second):
		t.Fatal("no initial views")
	}

	// Only users/user changes. The list of speakers itself is untouched.
	renamed := *get[*models.User](t, st, models.CollectionUser, 2)
	renamed.Username = "jane"
	require.NoError(t, st.Add(&renamed))

	deadline := time.After(time.Second)
	for {
		select {
		case ls := <-views:
			if ls[0].Speakers()[0].User.Username == "jane" {
				return
			}
		case <-deadline:
			t.Fatal("lists of speakers not rebuilt after user change")
		}
	}
}

func TestViews_FollowTheirRelations(t *testing.T) {
	for name, c := range map[string]struct {
		collections []models.Collection
		want        []models.Collection
	}{
		"user":             {UserView.Collections(models.CollectionUser), []models.Collection{models.CollectionGroup}},
		"agenda item":      {AgendaItemView.Collections(models.CollectionAgendaItem), []models.Collection{models.CollectionListOfSpeakers, models.CollectionMotion}},
		"list of speakers": {ListOfSpeakersView.Collections(models.CollectionListOfSpeakers), []models.Collection{models.CollectionUser, models.CollectionMotion}},
		"motion":           {MotionView.Collections(models.CollectionMotion), []models.Collection{models.CollectionUser, models.CollectionMotionPoll}},
		"motion poll":      {MotionPollView.Collections(models.CollectionMotionPoll), []models.Collection{models.CollectionMotionOption, models.CollectionMotionVote}},
		"projector":        {ProjectorView.Collections(models.CollectionProjector), models.Kinds()},
		"chat message":     {ChatMessageView.Collections(models.CollectionChatMessage), []models.Collection{models.CollectionUser}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Subset(t, c.collections, c.want)
		})
	}
}
