package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chazu/glacier/berg"
	"github.com/chazu/glacier/ice"
)

// Source is the byte source an archive Reader parses: forward scanning
// for the archive prologue plus random access for entry payloads.
type Source interface {
	io.ReadSeeker
	io.ReaderAt
}

// Reader provides indexed access to the entries of a packed archive.
// It is safe for concurrent use once constructed: all lookups go
// through the in-memory entry table and stateless ReadAt calls.
type Reader struct {
	src     Source
	file    *os.File // owned when opened by path
	entries []Entry
	meta    *Meta
}

// OpenArchive opens the archive file at path and parses its index.
func OpenArchive(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnableToRead, path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader parses an archive from an open byte source. The source must
// remain valid for the Reader's lifetime; it is not closed by Close.
func NewReader(src Source) (*Reader, error) {
	r := &Reader{src: src}
	if err := r.parse(); err != nil {
		return nil, err
	}
	return r, nil
}

// parse walks the archive prologue: PACK, then INDX, then the optional
// META manifest.
func (r *Reader) parse() error {
	cr, err := ice.NewReader(r.src)
	if err != nil {
		return err
	}

	if _, err := cr.FindChunk(ice.IDPack); err != nil {
		return fmt.Errorf("%w: no PACK chunk", ice.ErrChunkBroken)
	}
	packPayload := make([]byte, packPayloadSize)
	if _, err := io.ReadFull(cr, packPayload); err != nil {
		return fmt.Errorf("%w: torn PACK payload: %v", ice.ErrChunkBroken, err)
	}
	rec, err := decodePackRecord(packPayload)
	if err != nil {
		return fmt.Errorf("%w: %v", ice.ErrChunkBroken, err)
	}
	if rec.version != FormatVersion {
		return fmt.Errorf("%w: unsupported archive version %d", ice.ErrChunkBroken, rec.version)
	}

	indx, err := cr.FindChunk(ice.IDIndex)
	if err != nil {
		return fmt.Errorf("%w: no INDX chunk", ice.ErrChunkBroken)
	}
	if uint64(indx.Offset) != rec.rootDirOffset {
		return fmt.Errorf("%w: PACK points at offset %d but INDX sits at %d",
			ice.ErrChunkBroken, rec.rootDirOffset, indx.Offset)
	}
	indxPayload := make([]byte, indx.Size)
	if _, err := io.ReadFull(cr, indxPayload); err != nil {
		return fmt.Errorf("%w: torn INDX payload: %v", ice.ErrChunkBroken, err)
	}
	entries, err := decodeIndex(indxPayload)
	if err != nil {
		return fmt.Errorf("%w: %v", ice.ErrChunkBroken, err)
	}
	if uint64(len(entries)) != uint64(rec.fileCount) {
		return fmt.Errorf("%w: PACK declares %d files, INDX holds %d",
			ice.ErrChunkBroken, rec.fileCount, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path >= entries[i].Path {
			return fmt.Errorf("%w: INDX not sorted at entry %d (%q)",
				ice.ErrChunkBroken, i, entries[i].Path)
		}
	}
	r.entries = entries

	meta, err := cr.FindChunk(ice.IDMeta)
	switch {
	case err == nil:
		payload := make([]byte, meta.Size)
		if _, err := io.ReadFull(cr, payload); err != nil {
			return fmt.Errorf("%w: torn META payload: %v", ice.ErrChunkBroken, err)
		}
		m, err := UnmarshalMeta(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ice.ErrChunkBroken, err)
		}
		r.meta = m
	case errors.Is(err, ice.ErrChunkNotFound):
		// Manifest is optional; older packers never wrote one.
	default:
		return err
	}
	return nil
}

// Close releases the archive file when the Reader owns one.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Len returns the number of archived entries.
func (r *Reader) Len() int {
	return len(r.entries)
}

// List returns the entry table in ascending path order.
func (r *Reader) List() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Meta returns the archive manifest, or nil when none was packed.
func (r *Reader) Meta() *Meta {
	return r.meta
}

// Stat returns the entry describing path.
func (r *Reader) Stat(path string) (Entry, error) {
	if err := checkPath(path); err != nil {
		return Entry{}, err
	}
	i, ok := r.find(path)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return r.entries[i], nil
}

// Open returns a seekable reader over the uncompressed contents of
// path. Entries stored raw are served as a bounded substream of the
// archive; compressed entries are inflated up front.
func (r *Reader) Open(path string) (io.ReadSeeker, error) {
	e, err := r.Stat(path)
	if err != nil {
		return nil, err
	}
	if e.Flags&FlagBerg == 0 {
		return io.NewSectionReader(r.src, e.Offset, int64(e.Size)), nil
	}
	data, err := r.inflate(e)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// ReadFile returns the full uncompressed contents of path.
func (r *Reader) ReadFile(path string) ([]byte, error) {
	e, err := r.Stat(path)
	if err != nil {
		return nil, err
	}
	if e.Flags&FlagBerg != 0 {
		return r.inflate(e)
	}
	data := make([]byte, e.Size)
	if _, err := r.src.ReadAt(data, e.Offset); err != nil {
		return nil, fmt.Errorf("%w: torn payload for %s: %v", ice.ErrChunkBroken, e.Path, err)
	}
	return data, nil
}

// inflate reads an entry's compressed FILE payload and decompresses it.
// The stored payload length comes from the FILE chunk header just ahead
// of the entry's data offset.
func (r *Reader) inflate(e Entry) ([]byte, error) {
	hdr, err := ice.ReadHeaderAt(r.src, e.Offset-ice.HeaderSize)
	if err != nil {
		return nil, err
	}
	if hdr.ID != ice.IDFile {
		return nil, fmt.Errorf("%w: entry %s points at %q, want FILE",
			ice.ErrChunkBroken, e.Path, hdr.ID)
	}
	comp := make([]byte, hdr.Size)
	if _, err := r.src.ReadAt(comp, e.Offset); err != nil {
		return nil, fmt.Errorf("%w: torn payload for %s: %v", ice.ErrChunkBroken, e.Path, err)
	}
	data, err := berg.Decompress(comp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ice.ErrChunkBroken, e.Path, err)
	}
	if uint64(len(data)) != e.Size {
		return nil, fmt.Errorf("%w: %s inflated to %d bytes, want %d",
			ice.ErrChunkBroken, e.Path, len(data), e.Size)
	}
	return data, nil
}

// find binary-searches the sorted entry table for path.
func (r *Reader) find(path string) (int, bool) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Path >= path
	})
	return i, i < len(r.entries) && r.entries[i].Path == path
}

// checkPath rejects paths outside the canonical archive form:
// '/'-separated, relative, with no empty, '.', or '..' segments.
func checkPath(path string) error {
	if path == "" || path[0] == '/' || strings.ContainsAny(path, "\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}
