// Package codec provides the wire encodings spoken on the autoupdate channel.
//
// Two codecs are available: [JSON], the default the server speaks, and [CBOR],
// negotiated with the "cbor" WebSocket subprotocol. Models only carry json
// struct tags; the CBOR codec falls back to them.
package codec

import (
	"fmt"
	"io"
	"strings"
)

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is a Marshaler and Unmarshaler pair identified by the
// WebSocket subprotocol name it is negotiated with.
type Codec interface {
	Marshaler
	Unmarshaler
	Name() string
}

// BatchDetector reports whether an encoded frame holds a list of values.
type BatchDetector interface {
	IsBatch(data []byte) bool
}

const (
	NameJSON = "json"
	NameCBOR = "cbor"
)

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		return JSON(), nil
	case NameCBOR:
		return CBOR(), nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
