// Package apicache stores parsed API snapshots of published module versions
// on disk. Published versions never change, so entries do not expire.
package apicache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion is bumped whenever the envelope or a payload format changes.
const schemaVersion uint16 = 1

// Cache is a directory of msgpack-encoded entries. A nil *Cache is a valid
// cache that never hits. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type envelope struct {
	Schema  uint16
	Key     string
	Payload msgpack.RawMessage
}

// Open returns a cache rooted at dir, creating it if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// OpenDefault opens the cache under the user cache directory.
func OpenDefault(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		var err error
		if base, err = os.UserCacheDir(); err != nil {
			return nil, err
		}
	}
	return Open(filepath.Join(base, app, "api"))
}

// Key builds the cache key of a module version snapshot.
func Key(module, version string) string {
	return module + "@" + version
}

func (c *Cache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".mp")
}

// Put stores v under key, replacing any previous entry atomically.
func (c *Cache) Put(key string, v any) error {
	if c == nil {
		return nil
	}
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(envelope{Schema: schemaVersion, Key: key, Payload: payload}); err != nil {
		f.Close()
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return os.Rename(f.Name(), p)
}

// Get decodes the entry stored under key into out. It reports false when
// there is no usable entry; entries written by another schema are misses.
func (c *Cache) Get(key string, out any) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading cache entry %s: %w", key, err)
	}

	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	if env.Schema != schemaVersion || env.Key != key {
		return false, nil
	}
	if err := msgpack.Unmarshal(env.Payload, out); err != nil {
		return false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
