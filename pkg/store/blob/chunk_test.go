package blob

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRaw(t *testing.T) {
	data := []byte("plain content")
	stored, err := EncodeChunk(data, false)
	require.NoError(t, err)
	assert.Equal(t, byte(encodingRaw), stored[0])

	got, err := DecodeChunk(stored)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEncodeDecodeCompressed(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 4096)
	stored, err := EncodeChunk(data, true)
	require.NoError(t, err)
	assert.Equal(t, byte(encodingFlate), stored[0])
	assert.Less(t, len(stored), len(data))

	got, err := DecodeChunk(stored)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecodeChunkRejectsGarbage(t *testing.T) {
	_, err := DecodeChunk(nil)
	assert.Error(t, err)

	_, err = DecodeChunk([]byte{0x7F, 0x01})
	assert.Error(t, err)
}

func TestChecksumRolling(t *testing.T) {
	first := ChecksumInit([]byte("chunk-0"))
	require.NotEmpty(t, first)
	assert.Equal(t, first, ChecksumInit([]byte("chunk-0")))

	extended := ChecksumExtend(first, []byte("chunk-1"))
	assert.NotEqual(t, first, extended)
	assert.Equal(t, extended, ChecksumExtend(first, []byte("chunk-1")))
	assert.NotEqual(t, extended, ChecksumExtend(first, []byte("chunk-2")))
}
