package blob

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/zeebo/blake3"
)

// Chunk encoding
// ==============
//
// Every stored chunk carries a one-byte header naming its encoding, so the
// compression decision is per chunk and readers never need out-of-band
// state. Compression uses DEFLATE; content that is already compressed can
// skip it chunk by chunk.
const (
	encodingRaw   = 0x00
	encodingFlate = 0x01
)

// EncodeChunk prepares a chunk for storage, compressing it when asked.
func EncodeChunk(data []byte, compress bool) ([]byte, error) {
	if !compress {
		out := make([]byte, 1+len(data))
		out[0] = encodingRaw
		copy(out[1:], data)
		return out, nil
	}

	var buf bytes.Buffer
	buf.WriteByte(encodingFlate)
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress chunk: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush compressor: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeChunk restores a stored chunk to its uncompressed form.
func DecodeChunk(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("empty chunk record")
	}
	switch stored[0] {
	case encodingRaw:
		return stored[1:], nil
	case encodingFlate:
		r := flate.NewReader(bytes.NewReader(stored[1:]))
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress chunk: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown chunk encoding 0x%02X", stored[0])
	}
}

// ChecksumInit computes the digest of an object holding a single chunk.
func ChecksumInit(chunk []byte) string {
	sum := blake3.Sum256(chunk)
	return hex.EncodeToString(sum[:])
}

// ChecksumExtend folds the next chunk into a rolling digest: the new value
// hashes the previous digest together with the chunk's own digest, so the
// checksum stays cheap to maintain while appending.
func ChecksumExtend(prev string, chunk []byte) string {
	prevRaw, err := hex.DecodeString(prev)
	if err != nil {
		prevRaw = []byte(prev)
	}
	chunkSum := blake3.Sum256(chunk)

	h := blake3.New()
	h.Write(prevRaw)
	h.Write(chunkSum[:])
	return hex.EncodeToString(h.Sum(nil))
}
