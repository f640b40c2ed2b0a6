package resource

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chazu/glacier/ice"
)

// ---------------------------------------------------------------------------
// Mesh resource: "MESH" chunk
// ---------------------------------------------------------------------------

// Mesh is an indexed triangle mesh resource. The "MESH" payload is
// {vertexCount:u32, indexCount:u32, positions: 3 f32 per vertex,
// indices: u32 each}, all little-endian.
type Mesh struct {
	// Positions holds three floats per vertex: x, y, z.
	Positions []float32

	// Indices reference vertices; every index must be below the vertex
	// count.
	Indices []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Serialize writes the mesh as a "MESH" chunk.
func (m *Mesh) Serialize(w *ice.Writer) error {
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("%w: %d position floats is not a whole number of vertices",
			ice.ErrChunkBroken, len(m.Positions))
	}
	payload := make([]byte, 8+4*len(m.Positions)+4*len(m.Indices))
	binary.LittleEndian.PutUint32(payload[0:], uint32(m.VertexCount()))
	binary.LittleEndian.PutUint32(payload[4:], uint32(len(m.Indices)))
	at := 8
	for _, p := range m.Positions {
		binary.LittleEndian.PutUint32(payload[at:], math.Float32bits(p))
		at += 4
	}
	for _, idx := range m.Indices {
		binary.LittleEndian.PutUint32(payload[at:], idx)
		at += 4
	}
	return w.WriteChunk(ice.IDMesh, payload)
}

// Deserialize scans for the next "MESH" chunk, plain or Berg-wrapped,
// and validates counts and index bounds.
func (m *Mesh) Deserialize(r *ice.Reader) error {
	c, _, err := r.FindChunkOrBerg(ice.IDMesh)
	if err != nil {
		return err
	}
	if c.Size < 8 {
		return fmt.Errorf("%w: MESH payload %d bytes, want at least 8", ice.ErrChunkBroken, c.Size)
	}
	payload := make([]byte, c.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("%w: torn MESH payload: %v", ice.ErrChunkBroken, err)
	}

	vertexCount := binary.LittleEndian.Uint32(payload[0:])
	indexCount := binary.LittleEndian.Uint32(payload[4:])
	want := uint64(8) + 12*uint64(vertexCount) + 4*uint64(indexCount)
	if uint64(len(payload)) != want {
		return fmt.Errorf("%w: MESH declares %d vertices and %d indices in %d bytes, want %d",
			ice.ErrChunkBroken, vertexCount, indexCount, len(payload), want)
	}

	m.Positions = make([]float32, 3*vertexCount)
	at := 8
	for i := range m.Positions {
		m.Positions[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[at:]))
		at += 4
	}
	m.Indices = make([]uint32, indexCount)
	for i := range m.Indices {
		idx := binary.LittleEndian.Uint32(payload[at:])
		if idx >= vertexCount {
			return fmt.Errorf("%w: MESH index %d out of %d vertices",
				ice.ErrChunkBroken, idx, vertexCount)
		}
		m.Indices[i] = idx
		at += 4
	}
	return nil
}

// LoadMesh loads the mesh at path through the manager's cache.
func LoadMesh(m *Manager, path string) (*Mesh, error) {
	res, err := m.Load(path, func() Resource { return &Mesh{} })
	if err != nil {
		return nil, err
	}
	mesh, ok := res.(*Mesh)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrWrongType, path, res)
	}
	return mesh, nil
}
