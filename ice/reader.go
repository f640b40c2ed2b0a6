package ice

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/glacier/berg"
)

// ---------------------------------------------------------------------------
// Reader: forward-only chunk scanning
// ---------------------------------------------------------------------------

// Reader scans chunks forward over a seekable byte source. After a
// successful find, Read consumes the matched chunk's payload; the next
// find continues from the end of that chunk regardless of how much of
// the payload was consumed.
type Reader struct {
	src io.ReadSeeker
	pos int64 // absolute offset of the next header to scan

	cur       Chunk
	body      io.Reader
	remaining uint64
}

// NewReader creates a chunk reader starting at the source's current
// position.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, pos: pos}, nil
}

// FindChunk scans forward for the first chunk tagged id, skipping other
// payloads. On success the reader is positioned at the first payload
// byte and the chunk descriptor is returned.
func (r *Reader) FindChunk(id ChunkID) (Chunk, error) {
	for {
		got, err := r.scanOne()
		if err != nil {
			return Chunk{}, err
		}
		if got.ID == id {
			r.enterRaw(got)
			return got, nil
		}
	}
}

// FindChunkOrBerg behaves like FindChunk but also accepts a "BRG "
// envelope whose decompressed payload is a chunk tagged id. When an
// envelope is unwrapped, compressed is true and subsequent Reads are
// served from the decompressed view.
func (r *Reader) FindChunkOrBerg(id ChunkID) (Chunk, bool, error) {
	for {
		got, err := r.scanOne()
		if err != nil {
			return Chunk{}, false, err
		}
		if got.ID == id {
			r.enterRaw(got)
			return got, false, nil
		}
		if got.ID != IDBerg {
			continue
		}

		payload := make([]byte, got.Size)
		if _, err := io.ReadFull(r.src, payload); err != nil {
			return Chunk{}, false, fmt.Errorf("%w: torn envelope: %v", ErrChunkBroken, err)
		}
		logical, err := berg.Decompress(payload)
		if err != nil {
			return Chunk{}, false, fmt.Errorf("%w: %v", ErrChunkBroken, err)
		}
		if len(logical) < HeaderSize {
			return Chunk{}, false, fmt.Errorf("%w: envelope smaller than a header", ErrChunkBroken)
		}
		innerID, innerSize := decodeHeader(logical)
		if innerID != id {
			continue
		}
		if innerSize != uint64(len(logical)-HeaderSize) {
			return Chunk{}, false, fmt.Errorf("%w: envelope declares %d payload bytes, holds %d",
				ErrChunkBroken, innerSize, len(logical)-HeaderSize)
		}

		cur := Chunk{ID: innerID, Size: innerSize, Offset: got.Offset}
		r.cur = cur
		r.body = bytes.NewReader(logical[HeaderSize:])
		r.remaining = innerSize
		return cur, true, nil
	}
}

// Read consumes payload bytes of the current chunk. It returns io.EOF
// once the payload is exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	if r.body == nil {
		return 0, ErrNoChunk
	}
	n, err := r.body.Read(p)
	if uint64(n) > r.remaining {
		r.remaining = 0
	} else {
		r.remaining -= uint64(n)
	}
	return n, err
}

// Chunk returns the most recently located chunk descriptor.
func (r *Reader) Chunk() Chunk {
	return r.cur
}

// scanOne reads the header at the scan position and advances the scan
// position past the whole chunk. The source is left positioned at the
// chunk's first payload byte.
func (r *Reader) scanOne() (Chunk, error) {
	if _, err := r.src.Seek(r.pos, io.SeekStart); err != nil {
		return Chunk{}, err
	}
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r.src, buf[:]); err != nil {
		if err == io.EOF {
			return Chunk{}, ErrChunkNotFound
		}
		return Chunk{}, fmt.Errorf("%w: torn header: %v", ErrChunkBroken, err)
	}
	id, size := decodeHeader(buf[:])
	c := Chunk{ID: id, Size: size, Offset: r.pos}
	r.pos += HeaderSize + int64(size)
	return c, nil
}

// enterRaw sets up payload reads directly from the source.
func (r *Reader) enterRaw(c Chunk) {
	r.cur = c
	r.body = io.LimitReader(r.src, int64(c.Size))
	r.remaining = c.Size
}

// ReadHeaderAt decodes the chunk header at an absolute offset of a
// random-access source. It is for callers that already know where a
// chunk lives, such as an indexed archive.
func ReadHeaderAt(src io.ReaderAt, off int64) (Chunk, error) {
	var buf [HeaderSize]byte
	if _, err := src.ReadAt(buf[:], off); err != nil {
		return Chunk{}, fmt.Errorf("%w: torn header: %v", ErrChunkBroken, err)
	}
	id, size := decodeHeader(buf[:])
	return Chunk{ID: id, Size: size, Offset: off}, nil
}
