package ice

import "errors"

// ---------------------------------------------------------------------------
// Container Error Types
// ---------------------------------------------------------------------------

var (
	// ErrChunkNotFound is returned when a forward scan reaches the end of
	// the stream without finding the requested tag.
	ErrChunkNotFound = errors.New("ice: chunk not found")

	// ErrChunkBroken is returned for a chunk whose contents fail
	// validation: a torn header, a bad envelope, or a payload checksum
	// mismatch.
	ErrChunkBroken = errors.New("ice: chunk broken")

	// ErrChunkOpen is returned when a new header is written before the
	// previous chunk's declared payload is complete.
	ErrChunkOpen = errors.New("ice: previous chunk payload incomplete")

	// ErrChunkOverflow is returned when a write would exceed the declared
	// payload size of the open chunk.
	ErrChunkOverflow = errors.New("ice: write exceeds declared chunk size")

	// ErrNoChunk is returned when reading payload bytes with no chunk
	// located.
	ErrNoChunk = errors.New("ice: no current chunk")
)
