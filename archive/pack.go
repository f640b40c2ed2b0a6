package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/glacier/berg"
	"github.com/chazu/glacier/ice"
)

var log = commonlog.GetLogger("ice.archive")

// copyBufferSize is the fixed buffer used to stream uncompressed file
// payloads.
const copyBufferSize = 64 * 1024

// toolName is recorded in the META manifest.
const toolName = "icepack"

// source is one file scheduled for packing.
type source struct {
	rel  string // canonical archive path
	disk string // host path
	size int64

	// comp holds the framed Berg payload for entries stored compressed;
	// nil entries stream from disk.
	comp []byte
}

// Pack archives the regular files under srcDir into outPath. The
// archive is written to a temporary file beside outPath and renamed
// into place, so a failed pack never leaves a partial archive behind.
func Pack(srcDir, outPath string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathNotFound, srcDir)
	}

	sources, err := collect(srcDir, cfg)
	if err != nil {
		return err
	}

	tmp := outPath + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := writeArchive(f, sources); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return err
	}
	log.Infof("packed %d files from %s into %s", len(sources), srcDir, outPath)
	return nil
}

// collect enumerates regular files under srcDir, sorted by archive
// path, and pre-compresses the entries the configuration selects.
func collect(srcDir string, cfg *Config) ([]*source, error) {
	var sources []*source
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnableToRead, path, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ConfigFile {
			// The pack configuration describes the archive; it is not
			// part of it.
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnableToRead, path, err)
		}
		sources = append(sources, &source{rel: rel, disk: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].rel < sources[j].rel })

	for _, src := range sources {
		if !cfg.Compress.shouldCompress(src.rel, src.size) {
			continue
		}
		data, err := os.ReadFile(src.disk)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnableToRead, src.disk, err)
		}
		comp := berg.Compress(data)
		// Store compressed only when it actually shrinks the payload.
		if len(comp) < len(data) {
			src.comp = comp
			log.Debugf("compressing %s: %d -> %d bytes", src.rel, len(data), len(comp))
		}
	}
	return sources, nil
}

// writeArchive lays out and emits the whole archive in one pass:
// PACK, INDX, META, then one FILE chunk per entry in table order.
func writeArchive(out io.Writer, sources []*source) error {
	paths := make([]string, len(sources))
	var compressed uint64
	for i, src := range sources {
		paths[i] = src.rel
		if src.comp != nil {
			compressed++
		}
	}

	meta := &Meta{
		Tool:       toolName,
		Format:     FormatVersion,
		Entries:    uint64(len(sources)),
		Compressed: compressed,
	}
	metaPayload, err := MarshalMeta(meta)
	if err != nil {
		return err
	}

	// Layout: chunk offsets are fully determined before anything is
	// written.
	indxOffset := int64(ice.HeaderSize + packPayloadSize)
	metaOffset := indxOffset + ice.HeaderSize + int64(indexPayloadSize(paths))
	fileOffset := metaOffset + ice.HeaderSize + int64(len(metaPayload))

	entries := make([]Entry, len(sources))
	at := fileOffset
	for i, src := range sources {
		payloadSize := src.size
		flags := uint64(0)
		if src.comp != nil {
			payloadSize = int64(len(src.comp))
			flags = FlagBerg
		}
		entries[i] = Entry{
			Path:   src.rel,
			Offset: at + ice.HeaderSize,
			Size:   uint64(src.size),
			Flags:  flags,
		}
		at += ice.HeaderSize + payloadSize
	}

	w := ice.NewWriter(out)
	pack := packRecord{
		version:       FormatVersion,
		fileCount:     uint32(len(sources)),
		rootDirOffset: uint64(indxOffset),
	}
	if err := w.WriteChunk(ice.IDPack, pack.encode()); err != nil {
		return err
	}
	if err := w.WriteChunk(ice.IDIndex, encodeIndex(entries)); err != nil {
		return err
	}
	if err := w.WriteChunk(ice.IDMeta, metaPayload); err != nil {
		return err
	}

	buf := make([]byte, copyBufferSize)
	for _, src := range sources {
		if src.comp != nil {
			if err := w.WriteChunk(ice.IDFile, src.comp); err != nil {
				return err
			}
			continue
		}
		if err := streamFile(w, src, buf); err != nil {
			return err
		}
	}
	return w.Close()
}

// streamFile copies one uncompressed source file into an open FILE
// chunk through the shared copy buffer.
func streamFile(w *ice.Writer, src *source, buf []byte) error {
	f, err := os.Open(src.disk)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, src.disk)
		}
		return fmt.Errorf("%w: %s: %v", ErrUnableToRead, src.disk, err)
	}
	defer f.Close()

	if err := w.WriteHeader(ice.IDFile, uint64(src.size)); err != nil {
		return err
	}
	n, err := io.CopyBuffer(w, f, buf)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnableToRead, src.disk, err)
	}
	if n != src.size {
		return fmt.Errorf("%w: %s changed size during pack", ErrUnableToRead, src.disk)
	}
	return nil
}
