package models

import (
	"fmt"
	"strings"
)

// Key is the pair of collection and id that addresses one record.
type Key struct {
	Collection Collection `json:"collection"`
	ID         ID         `json:"id"`
}

func NewKey(c Collection, id ID) Key {
	return Key{Collection: c, ID: id}
}

// KeyOf returns the key of m.
func KeyOf(m Model) Key {
	return Key{Collection: m.Collection(), ID: m.ModelID()}
}

// ParseKey parses the "collection:id" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("invalid key %q, expected format is 'app/model:id'", s)
	}
	return Key{Collection: Collection(s[:i]), ID: ID(s[i+1:])}, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Collection, k.ID)
}
