// Package models holds the typed records mirrored from the server.
//
// Every record belongs to a [Collection] such as "users/user" and is identified
// within it by an [ID]. The set of collections is closed: only the kinds
// registered in this package can be decoded or stored, see [Decode].
package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/openslides/openslides.go/pkg/constants"
)

// Collection is the namespace of a record type, e.g. "users/user".
type Collection string

func (c Collection) String() string {
	return string(c)
}

// Valid reports whether c has the "app/model" shape.
func (c Collection) Valid() bool {
	app, model, ok := strings.Cut(string(c), "/")
	return ok && app != "" && model != "" && !strings.ContainsAny(model, "/: ")
}

// Model is a record mirrored from the server.
type Model interface {
	Collection() Collection
	ModelID() ID
}

// ID identifies a record within its collection. The server uses integers;
// string ids are accepted as well. The zero value means "no id".
type ID string

func IntID(n int) ID {
	return ID(strconv.Itoa(n))
}

func (id ID) IsZero() bool {
	return id == ""
}

// Int returns the numeric value of id, if it has one.
func (id ID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	return n, err == nil
}

func (id ID) isCanonicalInt() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id ID) String() string {
	return string(id)
}

// ParseID converts a decoded wire value into an ID.
func ParseID(v any) (ID, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case ID:
		return x, nil
	case string:
		return ID(x), nil
	case int:
		return IntID(x), nil
	case int64:
		return ID(strconv.FormatInt(x, 10)), nil
	case uint64:
		return ID(strconv.FormatUint(x, 10)), nil
	case float64:
		if x != float64(int64(x)) {
			return "", fmt.Errorf("%w: non-integral id %v", constants.ErrNoID, x)
		}
		return ID(strconv.FormatInt(int64(x), 10)), nil
	case fmt.Stringer:
		return ID(x.String()), nil
	default:
		return "", fmt.Errorf("%w: unsupported id type %T", constants.ErrNoID, v)
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if id.isCanonicalInt() {
		return []byte(id), nil
	}
	return []byte(strconv.Quote(string(id))), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		*id = ID(unquoted)
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrNoID, s)
	}
	*id = ID(s)
	return nil
}

func (id ID) MarshalCBOR() ([]byte, error) {
	if id == "" {
		return cbor.Marshal(nil)
	}
	if id.isCanonicalInt() {
		n, _ := strconv.ParseInt(string(id), 10, 64)
		return cbor.Marshal(n)
	}
	return cbor.Marshal(string(id))
}

func (id *ID) UnmarshalCBOR(data []byte) error {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseID(v)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IntIDs converts a list of integers into ids.
func IntIDs(ns ...int) []ID {
	ids := make([]ID, len(ns))
	for i, n := range ns {
		ids[i] = IntID(n)
	}
	return ids
}
