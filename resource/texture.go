package resource

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chazu/glacier/ice"
)

// ---------------------------------------------------------------------------
// Texture resource: "TEX " chunk
// ---------------------------------------------------------------------------

// Pixel formats carried in the "TEX " payload.
const (
	FormatGray8 uint8 = iota
	FormatRGB8
	FormatRGBA8
)

// texHeaderSize is the fixed part of the payload: pearson(1) +
// format(1) + width(2) + height(2).
const texHeaderSize = 6

// Texture is a raw pixel image resource. The on-wire payload is
// {pearson:u8, format:u8, width:u16, height:u16, pixels}; the Pearson
// hash covers the pixel bytes only and guards against corruption.
type Texture struct {
	Format uint8
	Width  uint16
	Height uint16
	Pixels []byte
}

// BytesPerPixel returns the pixel stride for the texture's format, or 0
// for an unknown format.
func (t *Texture) BytesPerPixel() int {
	switch t.Format {
	case FormatGray8:
		return 1
	case FormatRGB8:
		return 3
	case FormatRGBA8:
		return 4
	}
	return 0
}

// Serialize writes the texture as a "TEX " chunk.
func (t *Texture) Serialize(w *ice.Writer) error {
	payload := make([]byte, texHeaderSize+len(t.Pixels))
	payload[0] = pearson8(t.Pixels)
	payload[1] = t.Format
	binary.LittleEndian.PutUint16(payload[2:], t.Width)
	binary.LittleEndian.PutUint16(payload[4:], t.Height)
	copy(payload[texHeaderSize:], t.Pixels)
	return w.WriteChunk(ice.IDTexture, payload)
}

// Deserialize scans for the next "TEX " chunk, plain or Berg-wrapped,
// and verifies the pixel hash.
func (t *Texture) Deserialize(r *ice.Reader) error {
	c, _, err := r.FindChunkOrBerg(ice.IDTexture)
	if err != nil {
		return err
	}
	if c.Size < texHeaderSize {
		return fmt.Errorf("%w: TEX payload %d bytes, want at least %d",
			ice.ErrChunkBroken, c.Size, texHeaderSize)
	}
	payload := make([]byte, c.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("%w: torn TEX payload: %v", ice.ErrChunkBroken, err)
	}

	t.Format = payload[1]
	t.Width = binary.LittleEndian.Uint16(payload[2:])
	t.Height = binary.LittleEndian.Uint16(payload[4:])
	t.Pixels = payload[texHeaderSize:]

	if got := pearson8(t.Pixels); got != payload[0] {
		return fmt.Errorf("%w: TEX pixel hash %#02x, stored %#02x",
			ice.ErrChunkBroken, got, payload[0])
	}
	if bpp := t.BytesPerPixel(); bpp != 0 {
		want := int(t.Width) * int(t.Height) * bpp
		if len(t.Pixels) != want {
			return fmt.Errorf("%w: TEX %dx%d format %d needs %d pixel bytes, holds %d",
				ice.ErrChunkBroken, t.Width, t.Height, t.Format, want, len(t.Pixels))
		}
	}
	return nil
}

// LoadTexture loads the texture at path through the manager's cache.
func LoadTexture(m *Manager, path string) (*Texture, error) {
	res, err := m.Load(path, func() Resource { return &Texture{} })
	if err != nil {
		return nil, err
	}
	tex, ok := res.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrWrongType, path, res)
	}
	return tex, nil
}
