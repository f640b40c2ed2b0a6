// Package archive packs a directory tree into an ICE asset archive and
// reads entries back out of one.
//
// An archive opens with a "PACK" chunk carrying the format version, the
// file count, and the offset of the "INDX" chunk. The INDX payload is an
// entry table sorted ascending by path, followed by a contiguous string
// block of NUL-terminated UTF-8 paths. An optional "META" chunk carries
// a CBOR manifest. One "FILE" chunk per entry follows in table order.
package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FormatVersion is the archive format version written into PACK.
const FormatVersion uint32 = 1

const (
	// packPayloadSize is the fixed PACK record: version(4) +
	// fileCount(4) + rootDirOffset(8).
	packPayloadSize = 16

	// entrySize is one INDX table entry on the wire: pathOffset(8) +
	// dataOffset(8) + size(8) + flags(8).
	entrySize = 32
)

// Entry flags.
const (
	// FlagBerg marks an entry whose FILE payload is a framed Berg
	// compression of the file contents. Size stays the uncompressed
	// size.
	FlagBerg uint64 = 1 << 0
)

// Entry describes one archived file.
type Entry struct {
	// Path is the canonical archive path: '/'-separated, no leading '/'.
	Path string

	// Offset is the absolute offset of the entry's first payload byte,
	// just past the FILE chunk header.
	Offset int64

	// Size is the file's uncompressed size in bytes.
	Size uint64

	// Flags carries per-entry bits; see FlagBerg.
	Flags uint64
}

// packRecord is the PACK chunk payload.
type packRecord struct {
	version       uint32
	fileCount     uint32
	rootDirOffset uint64
}

func (p packRecord) encode() []byte {
	buf := make([]byte, packPayloadSize)
	binary.LittleEndian.PutUint32(buf[0:], p.version)
	binary.LittleEndian.PutUint32(buf[4:], p.fileCount)
	binary.LittleEndian.PutUint64(buf[8:], p.rootDirOffset)
	return buf
}

func decodePackRecord(buf []byte) (packRecord, error) {
	if len(buf) != packPayloadSize {
		return packRecord{}, fmt.Errorf("PACK payload is %d bytes, want %d", len(buf), packPayloadSize)
	}
	return packRecord{
		version:       binary.LittleEndian.Uint32(buf[0:]),
		fileCount:     binary.LittleEndian.Uint32(buf[4:]),
		rootDirOffset: binary.LittleEndian.Uint64(buf[8:]),
	}, nil
}

// encodeIndex builds the INDX payload: {count:u64}{entries}{string block}.
// Entries must already be sorted by path; path offsets are assigned here.
func encodeIndex(entries []Entry) []byte {
	var strings bytes.Buffer
	offsets := make([]uint64, len(entries))
	for i, e := range entries {
		offsets[i] = uint64(strings.Len())
		strings.WriteString(e.Path)
		strings.WriteByte(0)
	}

	buf := make([]byte, 8+entrySize*len(entries)+strings.Len())
	binary.LittleEndian.PutUint64(buf, uint64(len(entries)))
	at := 8
	for i, e := range entries {
		binary.LittleEndian.PutUint64(buf[at:], offsets[i])
		binary.LittleEndian.PutUint64(buf[at+8:], uint64(e.Offset))
		binary.LittleEndian.PutUint64(buf[at+16:], e.Size)
		binary.LittleEndian.PutUint64(buf[at+24:], e.Flags)
		at += entrySize
	}
	copy(buf[at:], strings.Bytes())
	return buf
}

// indexPayloadSize returns the encoded INDX payload size for the given
// paths without building it.
func indexPayloadSize(paths []string) int {
	n := 8 + entrySize*len(paths)
	for _, p := range paths {
		n += len(p) + 1
	}
	return n
}

// decodeIndex parses an INDX payload back into entries.
func decodeIndex(buf []byte) ([]Entry, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("INDX payload is %d bytes, want at least 8", len(buf))
	}
	count := binary.LittleEndian.Uint64(buf)
	if count > uint64(len(buf))/entrySize {
		return nil, fmt.Errorf("INDX declares %d entries but holds %d bytes", count, len(buf))
	}
	tableEnd := 8 + count*entrySize
	if tableEnd > uint64(len(buf)) {
		return nil, fmt.Errorf("INDX declares %d entries but holds %d bytes", count, len(buf))
	}
	strBlock := buf[tableEnd:]
	if len(strBlock) > 0 && strBlock[len(strBlock)-1] != 0 {
		return nil, fmt.Errorf("INDX string block does not end on NUL")
	}

	entries := make([]Entry, count)
	at := uint64(8)
	for i := range entries {
		pathOff := binary.LittleEndian.Uint64(buf[at:])
		if pathOff >= uint64(len(strBlock)) && count > 0 {
			return nil, fmt.Errorf("entry %d path offset %d outside string block", i, pathOff)
		}
		end := bytes.IndexByte(strBlock[pathOff:], 0)
		if end < 0 {
			return nil, fmt.Errorf("entry %d path not NUL-terminated", i)
		}
		entries[i] = Entry{
			Path:   string(strBlock[pathOff : uint64(end)+pathOff]),
			Offset: int64(binary.LittleEndian.Uint64(buf[at+8:])),
			Size:   binary.LittleEndian.Uint64(buf[at+16:]),
			Flags:  binary.LittleEndian.Uint64(buf[at+24:]),
		}
		at += entrySize
	}
	return entries, nil
}
