package models

import "time"

const (
	CollectionMotion       Collection = "motions/motion"
	CollectionMotionPoll   Collection = "motions/motion-poll"
	CollectionMotionOption Collection = "motions/motion-option"
	CollectionMotionVote   Collection = "motions/motion-vote"
)

type Submitter struct {
	ID     ID  `json:"id"`
	UserID ID  `json:"user_id"`
	Weight int `json:"weight"`
}

type Motion struct {
	ID                   ID          `json:"id"`
	Identifier           string      `json:"identifier,omitempty"`
	Title                string      `json:"title"`
	Text                 string      `json:"text,omitempty"`
	Reason               string      `json:"reason,omitempty"`
	ModifiedFinalVersion string      `json:"modified_final_version,omitempty"`
	ParentID             ID          `json:"parent_id,omitempty"`
	CategoryID           ID          `json:"category_id,omitempty"`
	MotionBlockID        ID          `json:"motion_block_id,omitempty"`
	Origin               string      `json:"origin,omitempty"`
	Submitters           []Submitter `json:"submitters,omitempty"`
	SupportersID         []ID        `json:"supporters_id,omitempty"`
	StateID              ID          `json:"state_id,omitempty"`
	RecommendationID     ID          `json:"recommendation_id,omitempty"`
	TagsID               []ID        `json:"tags_id,omitempty"`
	AgendaItemID         ID          `json:"agenda_item_id,omitempty"`
	ListOfSpeakersID     ID          `json:"list_of_speakers_id,omitempty"`
	SortParentID         ID          `json:"sort_parent_id,omitempty"`
	Weight               int         `json:"weight"`
	Created              *time.Time  `json:"created,omitempty"`
	LastModified         *time.Time  `json:"last_modified,omitempty"`
}

func (*Motion) Collection() Collection { return CollectionMotion }
func (m *Motion) ModelID() ID          { return m.ID }

// PollState is the lifecycle state of a poll.
type PollState int

const (
	PollStateCreated   PollState = 1
	PollStateStarted   PollState = 2
	PollStateFinished  PollState = 3
	PollStatePublished PollState = 4
)

// PollMethod selects which answers a poll offers.
type PollMethod string

const (
	PollMethodYN  PollMethod = "YN"
	PollMethodYNA PollMethod = "YNA"
)

// PercentBase selects what 100% refers to in poll results.
type PercentBase string

const (
	PercentBaseYN       PercentBase = "YN"
	PercentBaseYNA      PercentBase = "YNA"
	PercentBaseValid    PercentBase = "valid"
	PercentBaseCast     PercentBase = "cast"
	PercentBaseDisabled PercentBase = "disabled"
)

type MotionPoll struct {
	ID                    ID          `json:"id"`
	MotionID              ID          `json:"motion_id"`
	State                 PollState   `json:"state"`
	Type                  string      `json:"type"`
	Title                 string      `json:"title"`
	PollMethod            PollMethod  `json:"pollmethod"`
	OnehundredPercentBase PercentBase `json:"onehundred_percent_base"`
	MajorityMethod        string      `json:"majority_method,omitempty"`
	GroupsID              []ID        `json:"groups_id,omitempty"`
	VotesValid            Decimal     `json:"votesvalid"`
	VotesInvalid          Decimal     `json:"votesinvalid"`
	VotesCast             Decimal     `json:"votescast"`
	OptionsID             []ID        `json:"options_id,omitempty"`
	VotedID               []ID        `json:"voted_id,omitempty"`
	UserHasVoted          bool        `json:"user_has_voted"`
}

func (*MotionPoll) Collection() Collection { return CollectionMotionPoll }
func (p *MotionPoll) ModelID() ID          { return p.ID }

type MotionOption struct {
	ID        ID        `json:"id"`
	PollID    ID        `json:"poll_id"`
	Yes       Decimal   `json:"yes"`
	No        Decimal   `json:"no"`
	Abstain   Decimal   `json:"abstain"`
	VotesID   []ID      `json:"votes_id,omitempty"`
	PollState PollState `json:"pollstate"`
}

func (*MotionOption) Collection() Collection { return CollectionMotionOption }
func (o *MotionOption) ModelID() ID          { return o.ID }

type MotionVote struct {
	ID        ID        `json:"id"`
	Weight    Decimal   `json:"weight"`
	Value     string    `json:"value"`
	UserID    ID        `json:"user_id,omitempty"`
	OptionID  ID        `json:"option_id"`
	PollState PollState `json:"pollstate"`
}

func (*MotionVote) Collection() Collection { return CollectionMotionVote }
func (v *MotionVote) ModelID() ID          { return v.ID }
