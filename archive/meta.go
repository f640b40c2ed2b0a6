package archive

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Meta is the optional archive manifest carried by the "META" chunk.
// Readers tolerate its absence; old tools simply skip the chunk.
type Meta struct {
	Tool    string `cbor:"1,keyasint"`
	Format  uint32 `cbor:"2,keyasint"`
	Entries uint64 `cbor:"3,keyasint"`

	// Compressed counts entries stored with FlagBerg set.
	Compressed uint64 `cbor:"4,keyasint,omitempty"`
}

// Canonical encoding keeps archives byte-identical for identical input.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("archive: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalMeta serializes a Meta to canonical CBOR bytes.
func MarshalMeta(m *Meta) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalMeta deserializes a Meta from CBOR bytes.
func UnmarshalMeta(data []byte) (*Meta, error) {
	var m Meta
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("archive: unmarshal meta: %w", err)
	}
	return &m, nil
}
