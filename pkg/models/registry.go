package models

import (
	"fmt"
	"sort"

	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/constants"
)

// kind ties a collection to the decoder of its concrete type.
type kind struct {
	collection Collection
	decode     func(u codec.Unmarshaler, data []byte) (Model, error)
}

func register[T any, PT interface {
	*T
	Model
}](c Collection) kind {
	return kind{
		collection: c,
		decode: func(u codec.Unmarshaler, data []byte) (Model, error) {
			var v T
			if err := u.Unmarshal(data, &v); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", c, err)
			}
			return PT(&v), nil
		},
	}
}

var kinds = map[Collection]kind{
	CollectionUser:           register[User](CollectionUser),
	CollectionGroup:          register[Group](CollectionGroup),
	CollectionAgendaItem:     register[AgendaItem](CollectionAgendaItem),
	CollectionListOfSpeakers: register[ListOfSpeakers](CollectionListOfSpeakers),
	CollectionMotion:         register[Motion](CollectionMotion),
	CollectionMotionPoll:     register[MotionPoll](CollectionMotionPoll),
	CollectionMotionOption:   register[MotionOption](CollectionMotionOption),
	CollectionMotionVote:     register[MotionVote](CollectionMotionVote),
	CollectionProjector:      register[Projector](CollectionProjector),
	CollectionChatMessage:    register[ChatMessage](CollectionChatMessage),
	CollectionConfig:         register[Config](CollectionConfig),
}

// IsRegistered reports whether c is one of the known collections.
func IsRegistered(c Collection) bool {
	_, ok := kinds[c]
	return ok
}

// Kinds returns all registered collections in lexical order.
func Kinds() []Collection {
	out := make([]Collection, 0, len(kinds))
	for c := range kinds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decode decodes data as a record of collection c.
func Decode(u codec.Unmarshaler, c Collection, data []byte) (Model, error) {
	k, ok := kinds[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", constants.ErrInvalidCollection, c)
	}
	return k.decode(u, data)
}

// Validate checks the preconditions every stored model must meet.
func Validate(m Model) error {
	if m == nil {
		return fmt.Errorf("%w: nil model", constants.ErrNoID)
	}
	c := m.Collection()
	if !c.Valid() || !IsRegistered(c) {
		return fmt.Errorf("%w: %q", constants.ErrInvalidCollection, c)
	}
	if m.ModelID().IsZero() {
		return fmt.Errorf("%w: %s", constants.ErrNoID, c)
	}
	return nil
}
