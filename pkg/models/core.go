package models

import "time"

const (
	CollectionProjector   Collection = "core/projector"
	CollectionChatMessage Collection = "core/chat-message"
	CollectionConfig      Collection = "core/config"
)

// ProjectorElement is one slide shown on a projector. Besides "name" the
// element carries slide specific fields, e.g. "id" for model slides.
type ProjectorElement map[string]any

func (e ProjectorElement) Name() string {
	name, _ := e["name"].(string)
	return name
}

// Key returns the projected record, if the element projects one.
func (e ProjectorElement) Key() (Key, bool) {
	raw, ok := e["id"]
	if !ok {
		return Key{}, false
	}
	id, err := ParseID(raw)
	if err != nil || id.IsZero() {
		return Key{}, false
	}
	return Key{Collection: Collection(e.Name()), ID: id}, true
}

type Projector struct {
	ID                     ID                   `json:"id"`
	Name                   string               `json:"name"`
	Elements               []ProjectorElement   `json:"elements"`
	ElementsPreview        []ProjectorElement   `json:"elements_preview"`
	ElementsHistory        [][]ProjectorElement `json:"elements_history"`
	Scroll                 int                  `json:"scroll"`
	Scale                  int                  `json:"scale"`
	Width                  int                  `json:"width"`
	AspectRatioNumerator   int                  `json:"aspect_ratio_numerator"`
	AspectRatioDenominator int                  `json:"aspect_ratio_denominator"`
	ReferenceProjectorID   ID                   `json:"reference_projector_id,omitempty"`
	Color                  string               `json:"color,omitempty"`
	BackgroundColor        string               `json:"background_color,omitempty"`
}

func (*Projector) Collection() Collection { return CollectionProjector }
func (p *Projector) ModelID() ID          { return p.ID }

type ChatMessage struct {
	ID          ID         `json:"id"`
	Text        string     `json:"text"`
	ChatgroupID ID         `json:"chatgroup_id,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Username    string     `json:"username,omitempty"`
	UserID      ID         `json:"user_id,omitempty"`
}

func (*ChatMessage) Collection() Collection { return CollectionChatMessage }
func (c *ChatMessage) ModelID() ID          { return c.ID }

// Config is one server side setting. Value holds whatever the server sends.
type Config struct {
	ID    ID     `json:"id"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (*Config) Collection() Collection { return CollectionConfig }
func (c *Config) ModelID() ID          { return c.ID }
