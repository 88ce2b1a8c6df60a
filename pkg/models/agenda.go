package models

import "time"

const (
	CollectionAgendaItem     Collection = "agenda/item"
	CollectionListOfSpeakers Collection = "agenda/list-of-speakers"
)

// AgendaItemType is the visibility of an agenda item.
type AgendaItemType int

const (
	AgendaItemTypeAgenda   AgendaItemType = 1
	AgendaItemTypeInternal AgendaItemType = 2
	AgendaItemTypeHidden   AgendaItemType = 3
)

// ContentObject references the record an agenda item or list of speakers belongs to.
type ContentObject struct {
	Collection Collection `json:"collection"`
	ID         ID         `json:"id"`
}

func (c ContentObject) Key() Key {
	return Key{Collection: c.Collection, ID: c.ID}
}

type TitleInformation struct {
	Title            string `json:"title,omitempty"`
	Identifier       string `json:"identifier,omitempty"`
	AgendaItemNumber string `json:"agenda_item_number,omitempty"`
}

type AgendaItem struct {
	ID               ID               `json:"id"`
	ItemNumber       string           `json:"item_number,omitempty"`
	TitleInformation TitleInformation `json:"title_information"`
	Comment          string           `json:"comment,omitempty"`
	Closed           bool             `json:"closed"`
	Type             AgendaItemType   `json:"type"`
	IsInternal       bool             `json:"is_internal"`
	IsHidden         bool             `json:"is_hidden"`
	// Duration in minutes.
	Duration      int           `json:"duration,omitempty"`
	ContentObject ContentObject `json:"content_object"`
	Weight        int           `json:"weight"`
	ParentID      ID            `json:"parent_id,omitempty"`
	Level         int           `json:"level"`
	TagsID        []ID          `json:"tags_id,omitempty"`
}

func (*AgendaItem) Collection() Collection { return CollectionAgendaItem }
func (a *AgendaItem) ModelID() ID          { return a.ID }

type Speaker struct {
	ID           ID         `json:"id"`
	UserID       ID         `json:"user_id"`
	BeginTime    *time.Time `json:"begin_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Weight       int        `json:"weight"`
	Marked       bool       `json:"marked"`
	PointOfOrder bool       `json:"point_of_order"`
}

// SpeakerState describes where a speaker is in the list.
type SpeakerState int

const (
	SpeakerWaiting SpeakerState = iota
	SpeakerCurrent
	SpeakerFinished
)

func (s *Speaker) State() SpeakerState {
	switch {
	case s.BeginTime == nil:
		return SpeakerWaiting
	case s.EndTime == nil:
		return SpeakerCurrent
	default:
		return SpeakerFinished
	}
}

type ListOfSpeakers struct {
	ID               ID               `json:"id"`
	TitleInformation TitleInformation `json:"title_information"`
	Speakers         []Speaker        `json:"speakers"`
	Closed           bool             `json:"closed"`
	ContentObject    ContentObject    `json:"content_object"`
}

func (*ListOfSpeakers) Collection() Collection { return CollectionListOfSpeakers }
func (l *ListOfSpeakers) ModelID() ID          { return l.ID }
