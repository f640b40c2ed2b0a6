package berg

import "errors"

// ---------------------------------------------------------------------------
// Berg Error Types
// ---------------------------------------------------------------------------

var (
	// ErrInvalidParam is returned for nil buffers or obviously bad sizes.
	ErrInvalidParam = errors.New("berg: invalid parameter")

	// ErrBufferTooSmall is returned when an output or scratch buffer is
	// smaller than the codec requires.
	ErrBufferTooSmall = errors.New("berg: buffer too small")

	// ErrCompressionFailed indicates an internal invariant violation
	// during encoding.
	ErrCompressionFailed = errors.New("berg: compression failed")

	// ErrDecompressionFailed is returned for a truncated stream or an
	// instruction that cannot be executed.
	ErrDecompressionFailed = errors.New("berg: truncated or impossible stream")

	// ErrCorruptData is returned for a frame header mismatch, a reserved
	// distance, or a decoded size that differs from the declared size.
	ErrCorruptData = errors.New("berg: corrupt data")

	// ErrCallbackFailed wraps a non-nil error returned by a streaming
	// emit callback.
	ErrCallbackFailed = errors.New("berg: callback failed")
)
