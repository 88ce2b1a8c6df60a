package codec

// RawData holds a nested value in the encoding it arrived in, so that it can
// be decoded a second time into a concrete type once that type is known.
//
// RawData is only meaningful together with the codec that produced it.
type RawData []byte

var cborNull = []byte{0xf6}

func (r RawData) IsEmpty() bool {
	return len(r) == 0 || string(r) == "null" || (len(r) == 1 && r[0] == cborNull[0])
}

func (r RawData) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawData) UnmarshalJSON(data []byte) error {
	*r = append((*r)[0:0], data...)
	return nil
}

func (r RawData) MarshalCBOR() ([]byte, error) {
	if len(r) == 0 {
		return cborNull, nil
	}
	return r, nil
}

func (r *RawData) UnmarshalCBOR(data []byte) error {
	*r = append((*r)[0:0], data...)
	return nil
}

// Raw encodes v with c and returns it as RawData.
func Raw(c Marshaler, v any) (RawData, error) {
	data, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	return RawData(data), nil
}
