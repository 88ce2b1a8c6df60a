package autoupdate

import (
	"errors"

	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

// dispatch applies one frame to the store. Undecodable frames and envelopes
// are logged and skipped; the rest of the frame is still applied.
func (c *Channel) dispatch(frame []byte) {
	envs, err := connection.DecodeEnvelopes(c.codec, frame)
	if err != nil {
		c.logger.Warn("failed to decode autoupdate frame", "error", err, "size", len(frame))
		return
	}

	m := buildMutation(c.codec, envs, c.logger.Warn)
	if len(m.Upserts) == 0 && len(m.Deletes) == 0 {
		return
	}

	if err := c.store.Apply(c.ctx, m); err != nil {
		if errors.Is(err, constants.ErrStoreClosed) || c.ctx.Err() != nil {
			c.logger.Debug("dropping autoupdate frame, store is gone", "error", err)
			return
		}
		c.logger.Error("failed to apply autoupdate frame", "error", err)
	}
}

// buildMutation turns envelopes into one store mutation. Only the last
// envelope for a record counts, so upserts and deletes never overlap.
func buildMutation(u codec.Unmarshaler, envs []connection.Envelope, warn func(msg string, args ...any)) store.Mutation {
	last := make(map[models.Key]int, len(envs))
	for i, env := range envs {
		last[env.Key()] = i
	}

	var m store.Mutation
	for i, env := range envs {
		k := env.Key()
		if last[k] != i {
			continue
		}
		if !models.IsRegistered(env.Collection) {
			warn("ignoring envelope for unknown collection", "collection", env.Collection, "id", env.ID)
			continue
		}
		if env.ID.IsZero() {
			warn("ignoring envelope without id", "collection", env.Collection)
			continue
		}

		switch env.StatusCode {
		case constants.StatusOK:
			model, err := models.Decode(u, env.Collection, env.Data)
			if err != nil {
				warn("failed to decode record", "key", k.String(), "error", err)
				continue
			}
			if got := models.KeyOf(model); got != k {
				warn("record does not match its envelope", "key", k.String(), "record", got.String())
				continue
			}
			m.Upserts = append(m.Upserts, model)
		case constants.StatusNotFound:
			m.Deletes = append(m.Deletes, k)
		default:
			warn("ignoring envelope with unexpected status code", "status_code", env.StatusCode, "key", k.String())
		}
	}
	return m
}
