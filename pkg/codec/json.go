package codec

import (
	"io"

	"github.com/buger/jsonparser"
	json "github.com/goccy/go-json"
)

type jsonCodec struct{}

// JSON returns the JSON codec.
func JSON() Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string {
	return NameJSON
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) NewEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (jsonCodec) Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

func (jsonCodec) NewDecoder(r io.Reader) Decoder {
	return json.NewDecoder(r)
}

func (jsonCodec) IsBatch(data []byte) bool {
	_, dataType, _, err := jsonparser.Get(data)
	return err == nil && dataType == jsonparser.Array
}
