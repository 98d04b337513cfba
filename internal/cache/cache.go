// Package cache provides the persistent content-hash cache that drives
// change detection between build runs.
//
// The cache maps file paths to SHA-256 digests of trimmed file content and is
// persisted as one JSON object. It is keyed by path, not identifier: renaming
// a schema does not by itself invalidate the cache entry for its file.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/refnlabs/refbuild/internal/errors"
)

// Status classifies a candidate file against the cache.
type Status int

const (
	// StatusNew means no digest is stored for the path.
	StatusNew Status = iota
	// StatusChanged means the stored digest differs from the current content.
	StatusChanged
	// StatusUnchanged means the stored digest matches the current content.
	StatusUnchanged
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusChanged:
		return "changed"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// NeedsBuild reports whether a file with this status belongs in the rebuild set.
func (s Status) NeedsBuild() bool {
	return s == StatusNew || s == StatusChanged
}

// ContentHashCache holds the path-to-digest map for one session. It is safe
// for concurrent use. Load once at start, Persist once after a successful
// pass; there is no incremental on-disk update.
type ContentHashCache struct {
	path    string
	entries map[string]string
	mutex   sync.RWMutex
}

// New creates an empty cache that will persist to path.
func New(path string) *ContentHashCache {
	return &ContentHashCache{
		path:    path,
		entries: make(map[string]string),
	}
}

// Load reads the cache file. A missing, empty, or unparsable file is a cold
// start, not a failure: the returned error is informational (CacheFormat for
// corrupt content, nil otherwise) and the cache is usable either way.
func Load(path string) (*ContentHashCache, *errors.FileError) {
	c := New(path)

	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return c, nil
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return c, errors.NewCacheFormat(path, err)
	}

	c.entries = entries
	return c, nil
}

// Digest computes the hex-encoded SHA-256 of content after trimming leading
// and trailing whitespace, so a trailing newline does not trigger a rebuild.
func Digest(content []byte) string {
	trimmed := strings.TrimSpace(string(content))
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// Classify reads path, digests its content, and compares against the stored
// entry. It returns the status and the freshly computed digest so callers can
// record it after a successful build without re-reading the file.
func (c *ContentHashCache) Classify(path string) (Status, string, *errors.FileError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return StatusNew, "", errors.NewUnreadableFile(path, err)
	}
	digest := Digest(content)

	c.mutex.RLock()
	stored, exists := c.entries[path]
	c.mutex.RUnlock()

	switch {
	case !exists:
		return StatusNew, digest, nil
	case stored == digest:
		return StatusUnchanged, digest, nil
	default:
		return StatusChanged, digest, nil
	}
}

// Update records a digest for path in memory. Nothing is written to disk
// until Persist.
func (c *ContentHashCache) Update(path, digest string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[path] = digest
}

// Get returns the stored digest for path.
func (c *ContentHashCache) Get(path string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	digest, exists := c.entries[path]
	return digest, exists
}

// Len returns the number of stored entries.
func (c *ContentHashCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Reconcile drops entries whose path is not in the current candidate set,
// so digests for deleted or renamed files do not accumulate across sessions.
func (c *ContentHashCache) Reconcile(candidates []string) {
	keep := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		keep[path] = true
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	for path := range c.entries {
		if !keep[path] {
			delete(c.entries, path)
		}
	}
}

// Persist writes the whole map to the cache file as one atomic operation:
// the JSON snapshot lands in a temp file in the same directory and is renamed
// over the target.
func (c *ContentHashCache) Persist() error {
	c.mutex.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mutex.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, c.path)
}

// Path returns the on-disk location of the cache file.
func (c *ContentHashCache) Path() string {
	return c.path
}
