package object

import "errors"

// ---------------------------------------------------------------------------
// Serializer Error Types
// ---------------------------------------------------------------------------

var (
	// ErrBadHeader is returned when the stream does not open with the
	// expected sentinel.
	ErrBadHeader = errors.New("object: bad stream header")

	// ErrUnknownType is returned when no factory is registered for a
	// saved type name.
	ErrUnknownType = errors.New("object: unknown type")

	// ErrShortRead is returned when the stream ends inside an object
	// body; the loader marks the stream dead.
	ErrShortRead = errors.New("object: short read")

	// ErrDanglingReference is returned in strict mode when a link-list
	// identifier resolves to no constructed object.
	ErrDanglingReference = errors.New("object: dangling reference")

	// ErrLinkExhausted is returned when an object consumes more link
	// identifiers than it wrote.
	ErrLinkExhausted = errors.New("object: link list exhausted")
)
