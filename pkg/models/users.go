package models

const (
	CollectionUser  Collection = "users/user"
	CollectionGroup Collection = "users/group"
)

type User struct {
	ID             ID      `json:"id"`
	Username       string  `json:"username"`
	Title          string  `json:"title,omitempty"`
	FirstName      string  `json:"first_name,omitempty"`
	LastName       string  `json:"last_name,omitempty"`
	StructureLevel string  `json:"structure_level,omitempty"`
	Number         string  `json:"number,omitempty"`
	AboutMe        string  `json:"about_me,omitempty"`
	Email          string  `json:"email,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	Comment        string  `json:"comment,omitempty"`
	GroupsID       []ID    `json:"groups_id,omitempty"`
	IsPresent      bool    `json:"is_present"`
	IsCommittee    bool    `json:"is_committee"`
	IsActive       bool    `json:"is_active"`
	VoteWeight     Decimal `json:"vote_weight"`
	// VoteDelegatedToID is the user who votes on behalf of this user.
	VoteDelegatedToID        ID   `json:"vote_delegated_to_id,omitempty"`
	VoteDelegatedFromUsersID []ID `json:"vote_delegated_from_users_id,omitempty"`
}

func (*User) Collection() Collection { return CollectionUser }
func (u *User) ModelID() ID          { return u.ID }

type Group struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

func (*Group) Collection() Collection { return CollectionGroup }
func (g *Group) ModelID() ID          { return g.ID }
