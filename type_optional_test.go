package neufin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	none := None()
	assert.False(t, none.IsPresent())
	assert.True(t, none.OrZero().IsZero())

	zero := Some(0)
	assert.True(t, zero.IsPresent(), "zero is a present value")

	v, ok := Some(2.5).Get()
	assert.True(t, ok)
	assert.True(t, v.Equal(D("2.5")))

	assert.True(t, none.Or(Some(3)).Equal(Some(3)))
	assert.True(t, Some(1).Or(Some(3)).Equal(Some(1)))
	assert.True(t, none.Or(none).Equal(None()))
	assert.False(t, Some(1).Equal(None()))
}

func TestOptional_JSON(t *testing.T) {
	type record struct {
		A Optional `json:"a"`
		B Optional `json:"b"`
		C Optional `json:"c"`
		D Optional `json:"d"`
		E Optional `json:"e"`
	}

	var r record
	err := json.Unmarshal([]byte(`{"a":1.25,"b":null,"c":"7","d":"seven"}`), &r)
	require.NoError(t, err)

	assert.True(t, r.A.Equal(Some(D("1.25"))))
	assert.False(t, r.B.IsPresent(), "null")
	assert.True(t, r.C.Equal(Some(7)), "numeric string")
	assert.False(t, r.D.IsPresent(), "unparseable")
	assert.False(t, r.E.IsPresent(), "missing")

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.25,"b":null,"c":7,"d":null,"e":null}`, string(out))
}

func TestSome_NumberTypes(t *testing.T) {
	tests := []struct {
		name string
		got  Optional
		want string
	}{
		{"float32", Some(float32(1.5)), "1.5"},
		{"float64", Some(2.25), "2.25"},
		{"int", Some(3), "3"},
		{"int32", Some(int32(-4)), "-4"},
		{"int64", Some(int64(5)), "5"},
		{"uint", Some(uint(6)), "6"},
		{"uint32", Some(uint32(7)), "7"},
		{"uint64", Some(uint64(8)), "8"},
		{"decimal", Some(D("9.125")), "9.125"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.got.IsPresent())
			assert.Equal(t, tt.want, tt.got.String())
		})
	}
}
