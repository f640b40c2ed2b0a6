package archive

import "errors"

// ---------------------------------------------------------------------------
// Archive Error Types
// ---------------------------------------------------------------------------

var (
	// ErrFileNotFound is returned when a host file disappears between
	// enumeration and packing.
	ErrFileNotFound = errors.New("archive: file not found")

	// ErrInvalidPath is returned for archive paths that are not
	// canonical: empty, absolute, backslashed, or dot-relative.
	ErrInvalidPath = errors.New("archive: invalid path")

	// ErrPathNotFound is returned when a lookup misses the entry table,
	// or when the pack source directory does not exist.
	ErrPathNotFound = errors.New("archive: path not found")

	// ErrUnableToRead is returned when a source file cannot be read
	// while packing.
	ErrUnableToRead = errors.New("archive: unable to read")
)
