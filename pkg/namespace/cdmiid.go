package namespace

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// CDMI object identifiers, per SNIA CDMI 1.1 §5.11: a 24-byte structure
// carrying the IANA enterprise number of the producer, the total length, a
// CRC-16 over the whole identifier, and 16 bytes of local uniqueness data
// (a random UUID here). The wire form is the uppercase hex encoding.
const (
	identPEN = 42223
	identLen = 24
)

// NewObjectID returns a fresh CDMI object identifier.
func NewObjectID() string {
	id := make([]byte, identLen)
	// enterprise number, network byte order, bytes 2-3
	binary.BigEndian.PutUint16(id[2:], identPEN)
	// total length in byte 5 (byte 4 stays reserved)
	binary.BigEndian.PutUint16(id[4:], identLen)
	u := uuid.New()
	copy(id[8:], u[:])
	// CRC is computed with its own bytes zeroed, then inserted
	binary.BigEndian.PutUint16(id[6:], crc16(id))
	return strings.ToUpper(hex.EncodeToString(id))
}

// crc16 implements CRC-16/ARC (poly 0x8005 reflected, zero init).
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
