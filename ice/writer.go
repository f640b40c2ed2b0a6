package ice

import (
	"fmt"
	"io"

	"github.com/chazu/glacier/berg"
)

// ---------------------------------------------------------------------------
// Writer: append-only chunk emission
// ---------------------------------------------------------------------------

// Writer emits chunks over an opaque byte sink. Chunks are written in one
// contiguous pass and never rewritten: each WriteHeader must be followed
// by exactly the declared number of payload bytes before the next header.
type Writer struct {
	w         io.Writer
	offset    int64
	remaining uint64
}

// NewWriter creates a chunk writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader emits a 12-byte chunk header declaring a payload of size
// bytes. It fails with ErrChunkOpen if the previous chunk is incomplete.
func (w *Writer) WriteHeader(id ChunkID, size uint64) error {
	if w.remaining != 0 {
		return fmt.Errorf("%w: %d bytes still owed", ErrChunkOpen, w.remaining)
	}
	var buf [HeaderSize]byte
	encodeHeader(buf[:], id, size)
	if _, err := w.w.Write(buf[:]); err != nil {
		return err
	}
	w.offset += HeaderSize
	w.remaining = size
	return nil
}

// Write passes payload bytes through to the sink, bounded by the open
// chunk's declared size.
func (w *Writer) Write(p []byte) (int, error) {
	if uint64(len(p)) > w.remaining {
		return 0, fmt.Errorf("%w: %d bytes into %d remaining",
			ErrChunkOverflow, len(p), w.remaining)
	}
	n, err := w.w.Write(p)
	w.offset += int64(n)
	w.remaining -= uint64(n)
	return n, err
}

// WriteChunk emits a complete chunk: header plus payload.
func (w *Writer) WriteChunk(id ChunkID, payload []byte) error {
	if err := w.WriteHeader(id, uint64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WriteBergChunk emits a chunk wrapped in a "BRG " envelope: the
// envelope's payload is a framed Berg compression of the logical chunk
// (header and payload). Readers unwrap it through FindChunkOrBerg.
func (w *Writer) WriteBergChunk(id ChunkID, payload []byte) error {
	logical := make([]byte, HeaderSize+len(payload))
	encodeHeader(logical, id, uint64(len(payload)))
	copy(logical[HeaderSize:], payload)
	return w.WriteChunk(IDBerg, berg.Compress(logical))
}

// Offset returns the number of bytes emitted so far.
func (w *Writer) Offset() int64 {
	return w.offset
}

// Close verifies that the final chunk was fully written. The underlying
// sink is not closed.
func (w *Writer) Close() error {
	if w.remaining != 0 {
		return fmt.Errorf("%w: %d bytes still owed", ErrChunkOpen, w.remaining)
	}
	return nil
}
