package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFile is the optional packer configuration looked up in the
// source directory.
const ConfigFile = "icepack.toml"

// Config controls how a directory is packed.
type Config struct {
	Compress CompressConfig `toml:"compress"`
}

// CompressConfig selects which entries are stored Berg-compressed.
type CompressConfig struct {
	// Enabled turns per-entry compression on.
	Enabled bool `toml:"enabled"`

	// MinSize skips files smaller than this many bytes; tiny payloads
	// rarely shrink past the frame overhead.
	MinSize int64 `toml:"min-size"`

	// Suffixes restricts compression to matching path suffixes. Empty
	// means every eligible file.
	Suffixes []string `toml:"suffixes"`

	// Exclude lists path suffixes never compressed (already-packed
	// formats like .png or .ogg).
	Exclude []string `toml:"exclude"`
}

// DefaultConfig returns the configuration used when no icepack.toml is
// present: compression on for files of 64 bytes and up.
func DefaultConfig() *Config {
	return &Config{
		Compress: CompressConfig{
			Enabled: true,
			MinSize: 64,
		},
	}
}

// LoadConfig parses icepack.toml from the given directory, falling back
// to DefaultConfig when the file does not exist.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

// shouldCompress decides whether the entry at path with the given size
// is stored compressed.
func (c *CompressConfig) shouldCompress(path string, size int64) bool {
	if !c.Enabled || size < c.MinSize {
		return false
	}
	for _, suf := range c.Exclude {
		if strings.HasSuffix(path, suf) {
			return false
		}
	}
	if len(c.Suffixes) == 0 {
		return true
	}
	for _, suf := range c.Suffixes {
		if strings.HasSuffix(path, suf) {
			return true
		}
	}
	return false
}
