package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoice struct {
	RequestID string `json:"requestId"`
	Total     int    `json:"total"`
}

func TestJSONCodec(t *testing.T) {
	t.Run("round trips payload", func(t *testing.T) {
		codec := NewJSONCodec()

		data, err := codec.Encode(&invoice{RequestID: "r-1", Total: 42})
		require.NoError(t, err)
		assert.JSONEq(t, `{"requestId":"r-1","total":42}`, string(data))

		var decoded invoice
		require.NoError(t, codec.Decode(data, &decoded))
		assert.Equal(t, invoice{RequestID: "r-1", Total: 42}, decoded)
	})

	t.Run("rejects nil payload", func(t *testing.T) {
		_, err := NewJSONCodec().Encode(nil)
		assert.Error(t, err)
	})

	t.Run("rejects empty data", func(t *testing.T) {
		var decoded invoice
		err := NewJSONCodec().Decode(nil, &decoded)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "data cannot be empty")
	})

	t.Run("reports malformed data", func(t *testing.T) {
		var decoded invoice
		err := NewJSONCodec().Decode([]byte("{not json"), &decoded)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal payload")
	})

	t.Run("unknown fields are ignored by default", func(t *testing.T) {
		var decoded invoice
		err := NewJSONCodec().Decode([]byte(`{"total":1,"extra":true}`), &decoded)
		assert.NoError(t, err)
		assert.Equal(t, 1, decoded.Total)
	})

	t.Run("unknown fields rejected when configured", func(t *testing.T) {
		var decoded invoice
		err := NewJSONCodec(WithDisallowUnknownFields(true)).Decode([]byte(`{"total":1,"extra":true}`), &decoded)
		assert.Error(t, err)
	})

	t.Run("reports content type", func(t *testing.T) {
		assert.Equal(t, "application/json", NewJSONCodec().ContentType())
	})
}
