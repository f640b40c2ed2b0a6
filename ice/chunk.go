// Package ice implements the ICE chunked container format: a linear
// sequence of (id, size, payload) chunks over a byte stream.
//
// A chunk header is 12 bytes on the wire: a 4-byte ASCII tag followed by
// the payload size as a little-endian uint64. The size counts payload
// bytes only. Chunk order is significant; readers scan forward.
package ice

import "encoding/binary"

// ---------------------------------------------------------------------------
// Chunk identifiers
// ---------------------------------------------------------------------------

// ChunkID is a 4-byte ASCII tag. Equality is byte identity.
type ChunkID [4]byte

// Reserved chunk identifiers.
var (
	IDPack    = MakeID("PACK") // archive header record
	IDIndex   = MakeID("INDX") // archive entry table + string block
	IDMeta    = MakeID("META") // archive manifest (CBOR)
	IDFile    = MakeID("FILE") // archive file payload
	IDBerg    = MakeID("BRG ") // compressed chunk envelope
	IDScript  = MakeID("SCRT") // script resource
	IDTexture = MakeID("TEX ") // texture resource
	IDMesh    = MakeID("MESH") // mesh resource
)

// MakeID builds a ChunkID from a string of up to four bytes, padding
// short tags with spaces.
func MakeID(s string) ChunkID {
	var id ChunkID
	copy(id[:], s)
	for i := len(s); i < 4; i++ {
		id[i] = ' '
	}
	return id
}

// String returns a printable form of the tag for diagnostics.
// Non-printable bytes are shown as '.'.
func (id ChunkID) String() string {
	var out [4]byte
	for i, b := range id {
		if b < 0x20 || b > 0x7E {
			b = '.'
		}
		out[i] = b
	}
	return string(out[:])
}

// ---------------------------------------------------------------------------
// Chunk headers
// ---------------------------------------------------------------------------

// HeaderSize is the on-wire size of a chunk header.
const HeaderSize = 12

// Chunk describes a located chunk: its tag, payload size, and the
// absolute offset of its header within the stream.
type Chunk struct {
	ID     ChunkID
	Size   uint64
	Offset int64
}

// encodeHeader writes a chunk header into a 12-byte buffer.
func encodeHeader(buf []byte, id ChunkID, size uint64) {
	copy(buf, id[:])
	binary.LittleEndian.PutUint64(buf[4:], size)
}

// decodeHeader parses a chunk header from a 12-byte buffer.
func decodeHeader(buf []byte) (ChunkID, uint64) {
	var id ChunkID
	copy(id[:], buf)
	return id, binary.LittleEndian.Uint64(buf[4:])
}
