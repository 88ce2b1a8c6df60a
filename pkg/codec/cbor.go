package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// DecimalStringTag marks a decimal number encoded as its string form.
const DecimalStringTag uint64 = 10

const (
	cborMajorTypeMask  = 0xe0
	cborMajorTypeArray = 0x80
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		TimeTagToAny:   cbor.TimeTagToTime,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	cborDecMode = dm
}

type cborCodec struct{}

// CBOR returns the CBOR codec.
func CBOR() Codec {
	return cborCodec{}
}

func (cborCodec) Name() string {
	return NameCBOR
}

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

func (cborCodec) NewEncoder(w io.Writer) Encoder {
	return cborEncMode.NewEncoder(w)
}

func (cborCodec) Unmarshal(data []byte, dst any) error {
	return cborDecMode.Unmarshal(data, dst)
}

func (cborCodec) NewDecoder(r io.Reader) Decoder {
	return cborDecMode.NewDecoder(r)
}

func (cborCodec) IsBatch(data []byte) bool {
	return len(data) > 0 && data[0]&cborMajorTypeMask == cborMajorTypeArray
}
