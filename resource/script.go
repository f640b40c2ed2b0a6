package resource

import (
	"fmt"
	"io"

	"github.com/chazu/glacier/ice"
)

// ---------------------------------------------------------------------------
// Script resource: "SCRT" chunk
// ---------------------------------------------------------------------------

// Script is a source-text resource. The "SCRT" payload is the UTF-8
// source bytes, nothing else; the scripting VM consuming it is outside
// this package.
type Script struct {
	Source []byte
}

// Serialize writes the script as a "SCRT" chunk.
func (s *Script) Serialize(w *ice.Writer) error {
	return w.WriteChunk(ice.IDScript, s.Source)
}

// Deserialize scans for the next "SCRT" chunk, plain or Berg-wrapped.
func (s *Script) Deserialize(r *ice.Reader) error {
	c, _, err := r.FindChunkOrBerg(ice.IDScript)
	if err != nil {
		return err
	}
	s.Source = make([]byte, c.Size)
	if _, err := io.ReadFull(r, s.Source); err != nil {
		return fmt.Errorf("%w: torn SCRT payload: %v", ice.ErrChunkBroken, err)
	}
	return nil
}

// LoadScript loads the script at path through the manager's cache.
func LoadScript(m *Manager, path string) (*Script, error) {
	res, err := m.Load(path, func() Resource { return &Script{} })
	if err != nil {
		return nil, err
	}
	scr, ok := res.(*Script)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrWrongType, path, res)
	}
	return scr, nil
}
