// Package cache stores JSON-encoded values on disk, keyed by a hash of their inputs.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/sentinel-prep/internal/log"
	"github.com/forest-guardian/sentinel-prep/internal/properties"
	"go.uber.org/zap"
)

type Entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

// Store is satisfied by FileCache.
type Store[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
}

// FileCache keeps one file per key. Entries older than MaxAge, or whose
// checksum no longer matches their data, are misses.
type FileCache[T any] struct {
	dir    string
	MaxAge time.Duration
}

// New caches under dir.
func New[T any](dir string) *FileCache[T] {
	return &FileCache[T]{dir: dir}
}

// NewInRoot caches under <ROOT_PATH>/data/<subDir>.
func NewInRoot[T any](subDir string) *FileCache[T] {
	return New[T](filepath.Join(properties.RootPath(), "data", subDir))
}

func (fc *FileCache[T]) Dir() string { return fc.dir }

// Key hashes params into a file-safe key.
func Key(params ...any) string {
	h := sha1.New()
	for _, p := range params {
		fmt.Fprintf(h, "%v_", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if entry.Checksum != checksum(entry.Data) {
		log.Warn("cache checksum mismatch", zap.String("key", key))
		return zero, false
	}
	if fc.MaxAge > 0 && time.Since(entry.CreatedAt) > fc.MaxAge {
		return zero, false
	}
	return entry.Data, true
}

// Set writes through a temporary file so readers never see a partial entry.
func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	payload, err := json.Marshal(Entry[T]{Data: data, CreatedAt: time.Now(), Checksum: checksum(data)})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	file := fc.path(key)
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func checksum[T any](data T) string {
	payload, _ := json.Marshal(data)
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}
