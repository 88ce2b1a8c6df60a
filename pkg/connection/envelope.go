package connection

import (
	"fmt"

	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/models"
)

// Envelope is one change announced by the server. A status code of 200
// carries the full record in Data; 404 announces that the record is gone.
type Envelope struct {
	StatusCode int               `json:"status_code"`
	Collection models.Collection `json:"collection"`
	ID         models.ID         `json:"id"`
	Data       codec.RawData     `json:"data,omitempty"`
}

func (e Envelope) Key() models.Key {
	return models.NewKey(e.Collection, e.ID)
}

// NewUpsert builds the envelope announcing the current state of m.
func NewUpsert(c codec.Marshaler, m models.Model) (Envelope, error) {
	data, err := codec.Raw(c, m)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s: %w", models.KeyOf(m), err)
	}
	return Envelope{
		StatusCode: constants.StatusOK,
		Collection: m.Collection(),
		ID:         m.ModelID(),
		Data:       data,
	}, nil
}

// NewDelete builds the envelope announcing that the record k is gone.
func NewDelete(k models.Key) Envelope {
	return Envelope{StatusCode: constants.StatusNotFound, Collection: k.Collection, ID: k.ID}
}

// DecodeEnvelopes decodes a frame holding either a single envelope or a list.
func DecodeEnvelopes(c codec.Codec, frame []byte) ([]Envelope, error) {
	if bd, ok := c.(codec.BatchDetector); ok && bd.IsBatch(frame) {
		var batch []Envelope
		if err := c.Unmarshal(frame, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", constants.ErrInvalidEnvelope, err)
		}
		return batch, nil
	}

	var e Envelope
	if err := c.Unmarshal(frame, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrInvalidEnvelope, err)
	}
	return []Envelope{e}, nil
}
