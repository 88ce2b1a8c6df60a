package viewmodels

import (
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/repository"
)

// Views for repository.Watch. Each lists every collection its accessors
// resolve relations against, so a watch rebuilds when a related record
// changes. Of the collections that can be content objects only motions are
// mirrored. A projector may show a record of any collection.
var (
	UserView = repository.NewView(NewUser,
		models.CollectionGroup,
		models.CollectionUser,
	)
	AgendaItemView = repository.NewView(NewAgendaItem,
		models.CollectionListOfSpeakers,
		models.CollectionMotion,
	)
	ListOfSpeakersView = repository.NewView(NewListOfSpeakers,
		models.CollectionUser,
		models.CollectionMotion,
		models.CollectionAgendaItem,
	)
	MotionView = repository.NewView(NewMotion,
		models.CollectionUser,
		models.CollectionAgendaItem,
		models.CollectionListOfSpeakers,
		models.CollectionMotionPoll,
	)
	MotionPollView = repository.NewView(NewMotionPoll,
		models.CollectionMotion,
		models.CollectionMotionOption,
		models.CollectionMotionVote,
		models.CollectionUser,
		models.CollectionGroup,
	)
	ProjectorView = repository.NewView(NewProjector,
		models.Kinds()...,
	)
	ChatMessageView = repository.NewView(NewChatMessage,
		models.CollectionUser,
	)
)
