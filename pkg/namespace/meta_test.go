package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMeta(t *testing.T) {
	encoded := EncodeMeta("value")
	assert.Equal(t, `{"json":"value"}`, encoded)
	assert.Equal(t, "value", DecodeMeta(encoded))

	// bare strings decode to themselves
	assert.Equal(t, "plain", DecodeMeta("plain"))

	// a JSON document without the wrapper key decodes to nothing
	assert.Equal(t, "", DecodeMeta(`{"other":"value"}`))
}

func TestEncodeMetaMapDropsEmpty(t *testing.T) {
	stored := EncodeMetaMap(map[string]any{
		"keep":       "v",
		"empty":      "",
		"nothing":    nil,
		"empty_list": []any{},
	})
	require.Len(t, stored, 1)
	assert.Equal(t, `{"json":"v"}`, stored["keep"])
}

func TestDecodeMetaMapTolerance(t *testing.T) {
	decoded := DecodeMetaMap(map[string]string{
		"wrapped": `{"json":"a"}`,
		"plain":   "b",
		"empty":   `{"json":""}`,
	})
	assert.Equal(t, map[string]any{"wrapped": "a", "plain": "b"}, decoded)
}

func TestMetadataToList(t *testing.T) {
	pairs := MetadataToList(map[string]string{
		"colors":           `{"json":["red","blue"]}`,
		"radium_create_ts": `{"json":"2026-01-01T00:00:00Z"}`,
		"empty":            `{"json":""}`,
	}, map[string]string{"radium_create_ts": "Creation date"})

	require.Len(t, pairs, 3)
	assert.Equal(t, MetaPair{Key: "colors", Value: "red"}, pairs[0])
	assert.Equal(t, MetaPair{Key: "colors", Value: "blue"}, pairs[1])
	assert.Equal(t, MetaPair{Key: "Creation date", Value: "2026-01-01T00:00:00Z"}, pairs[2])
}

func TestNewObjectID(t *testing.T) {
	id := NewObjectID()
	require.Len(t, id, 48)
	assert.NotEqual(t, id, NewObjectID())

	// enterprise number sits in bytes 2-3, length in byte 5
	assert.Equal(t, "0000A4EF0018", id[:12])
}
