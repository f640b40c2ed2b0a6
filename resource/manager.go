// Package resource loads engine resources out of ICE streams and caches
// them by path. A Manager owns the cache; concrete resource types
// (Script, Texture, Mesh) each read and write their own chunk, with
// "BRG " compressed envelopes accepted transparently.
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chazu/glacier/archive"
	"github.com/chazu/glacier/ice"
)

// ---------------------------------------------------------------------------
// Resource Error Types
// ---------------------------------------------------------------------------

var (
	// ErrWrongType is returned when a cached resource at a path is not
	// the type the caller asked for.
	ErrWrongType = errors.New("resource: wrong resource type")
)

// ---------------------------------------------------------------------------
// Openers
// ---------------------------------------------------------------------------

// Opener resolves a resource path to a seekable ICE stream. Both
// *archive.Reader and Dir satisfy it.
type Opener interface {
	Open(path string) (io.ReadSeeker, error)
}

// Dir serves loose resource files from a directory on disk, for
// development trees that have not been packed yet.
type Dir string

// Open reads the file at path relative to the directory. The contents
// are held in memory so no file handle outlives the call.
func (d Dir) Open(path string) (io.ReadSeeker, error) {
	data, err := os.ReadFile(filepath.Join(string(d), filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", archive.ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", archive.ErrUnableToRead, path, err)
	}
	return bytes.NewReader(data), nil
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Resource is a value the Manager can cache: anything that can
// reconstruct itself from an ICE chunk stream and write itself back.
type Resource interface {
	Serialize(w *ice.Writer) error
	Deserialize(r *ice.Reader) error
}

// Factory constructs an empty resource for Load to fill.
type Factory func() Resource

// Manager caches resources by path, loading each path at most once
// until it is evicted. It is owned by a single goroutine; callers that
// share one must serialize access themselves.
type Manager struct {
	opener Opener
	cache  map[string]Resource
}

// NewManager creates a manager over the given stream source.
func NewManager(opener Opener) *Manager {
	return &Manager{opener: opener, cache: make(map[string]Resource)}
}

// Load returns the resource cached at path, or opens the path, builds
// an empty resource with build, deserializes into it, and caches it.
func (m *Manager) Load(path string, build Factory) (Resource, error) {
	if res, ok := m.cache[path]; ok {
		return res, nil
	}
	src, err := m.opener.Open(path)
	if err != nil {
		return nil, err
	}
	cr, err := ice.NewReader(src)
	if err != nil {
		return nil, err
	}
	res := build()
	if err := res.Deserialize(cr); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.cache[path] = res
	return res, nil
}

// Evict drops the cached resource at path, if any. The next Load
// rebuilds it from the opener.
func (m *Manager) Evict(path string) {
	delete(m.cache, path)
}

// Len returns the number of cached resources.
func (m *Manager) Len() int {
	return len(m.cache)
}

// ---------------------------------------------------------------------------
// Handles
// ---------------------------------------------------------------------------

// Handle names a resource by path without holding it. Dereferencing
// goes through the manager, so every handle to one path observes the
// same instance.
type Handle struct {
	Path    string
	Manager *Manager
}

// Load resolves the handle through its manager.
func (h Handle) Load(build Factory) (Resource, error) {
	return h.Manager.Load(h.Path, build)
}
