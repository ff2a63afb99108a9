package decode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type extra struct {
	Location string `json:"location"`
	Likes    int    `json:"likes"`
}

func TestOr(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"valid array", `["a","b"]`, []string{"a", "b"}},
		{"malformed", `{not json`, []string{}},
		{"empty", ``, []string{}},
		{"null", `null`, []string{}},
		{"wrong shape", `{"url":"a"}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Or(tt.raw, []string{}))
		})
	}
}

func TestField(t *testing.T) {
	t.Run("inline object", func(t *testing.T) {
		got := Field(json.RawMessage(`{"location":"赣州市","likes":3}`), extra{})
		assert.Equal(t, extra{Location: "赣州市", Likes: 3}, got)
	})

	t.Run("string encoded object", func(t *testing.T) {
		got := Field(json.RawMessage(`"{\"likes\":7}"`), extra{})
		assert.Equal(t, 7, got.Likes)
	})

	t.Run("string encoded garbage", func(t *testing.T) {
		got := Field(json.RawMessage(`"{not json"`), extra{Likes: -1})
		assert.Equal(t, -1, got.Likes)
	})

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, extra{}, Field[extra](nil, extra{}))
		assert.Equal(t, extra{}, Field(json.RawMessage(`null`), extra{}))
	})

	t.Run("string encoded array", func(t *testing.T) {
		got := Field(json.RawMessage(`"[\"u1\",\"u2\"]"`), []string{})
		assert.Equal(t, []string{"u1", "u2"}, got)
	})
}

func TestPtr(t *testing.T) {
	assert.Nil(t, Ptr[extra](`{broken`))
	assert.Nil(t, Ptr[extra](``))

	got := Ptr[extra](`{"likes":1}`)
	if assert.NotNil(t, got) {
		assert.Equal(t, 1, got.Likes)
	}
}

func TestEncode(t *testing.T) {
	s, err := Encode([]string{"x"})
	assert.NoError(t, err)
	assert.Equal(t, `["x"]`, s)

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}
