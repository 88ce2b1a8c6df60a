package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	StatusCode int     `json:"status_code"`
	Collection string  `json:"collection"`
	Data       RawData `json:"data"`
}

type payload struct {
	Name string `json:"name"`
}

func TestByName(t *testing.T) {
	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, NameJSON, c.Name())

	c, err = ByName(" CBOR ")
	require.NoError(t, err)
	assert.Equal(t, NameCBOR, c.Name())

	_, err = ByName("msgpack")
	assert.Error(t, err)
}

func TestRawData_SecondDecode(t *testing.T) {
	for _, c := range []Codec{JSON(), CBOR()} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := Raw(c, payload{Name: "admin"})
			require.NoError(t, err)

			frame, err := c.Marshal(envelope{StatusCode: 200, Collection: "users/user", Data: data})
			require.NoError(t, err)

			var env envelope
			require.NoError(t, c.Unmarshal(frame, &env))
			assert.Equal(t, 200, env.StatusCode)
			assert.False(t, env.Data.IsEmpty())

			var p payload
			require.NoError(t, c.Unmarshal(env.Data, &p))
			assert.Equal(t, "admin", p.Name)
		})
	}
}

func TestRawData_Empty(t *testing.T) {
	for _, c := range []Codec{JSON(), CBOR()} {
		t.Run(c.Name(), func(t *testing.T) {
			frame, err := c.Marshal(envelope{StatusCode: 404, Collection: "users/user"})
			require.NoError(t, err)

			var env envelope
			require.NoError(t, c.Unmarshal(frame, &env))
			assert.Equal(t, 404, env.StatusCode)
			assert.True(t, env.Data.IsEmpty())
		})
	}
}

func TestIsBatch(t *testing.T) {
	for _, c := range []Codec{JSON(), CBOR()} {
		t.Run(c.Name(), func(t *testing.T) {
			bd, ok := c.(BatchDetector)
			require.True(t, ok)

			single, err := c.Marshal(envelope{StatusCode: 200})
			require.NoError(t, err)
			batch, err := c.Marshal([]envelope{{StatusCode: 200}, {StatusCode: 404}})
			require.NoError(t, err)

			assert.False(t, bd.IsBatch(single))
			assert.True(t, bd.IsBatch(batch))
			assert.False(t, bd.IsBatch(nil))
		})
	}
}

func TestJSON_IsBatchLeadingWhitespace(t *testing.T) {
	bd := JSON().(BatchDetector)
	assert.True(t, bd.IsBatch([]byte("  \n[{}]")))
	assert.False(t, bd.IsBatch([]byte(`{"a":[1]}`)))
}

func TestCBOR_Time(t *testing.T) {
	c := CBOR()
	ts := time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC)

	data, err := c.Marshal(ts)
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, c.Unmarshal(data, &got))
	assert.True(t, ts.Equal(got))

	var anything any
	require.NoError(t, c.Unmarshal(data, &anything))
	assert.IsType(t, time.Time{}, anything)
}

func TestStreaming(t *testing.T) {
	for _, c := range []Codec{JSON(), CBOR()} {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, c.NewEncoder(&buf).Encode(payload{Name: "a"}))
			require.NoError(t, c.NewEncoder(&buf).Encode(payload{Name: "b"}))

			dec := c.NewDecoder(&buf)
			var p payload
			require.NoError(t, dec.Decode(&p))
			assert.Equal(t, "a", p.Name)
			require.NoError(t, dec.Decode(&p))
			assert.Equal(t, "b", p.Name)
		})
	}
}
