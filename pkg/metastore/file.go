package metastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/unhoist/unhoist/pkg/observability"
)

// FileStore keeps one file per entry in a single directory. The filename is
// the SHA-256 of the key (safe for arbitrary key strings) and the write
// timestamp is the file's mtime, so no side index is needed.
//
// Multiple processes can share a directory; the filesystem's atomic rename
// keeps individual entries intact even when writers race.
type FileStore struct {
	dir      string
	maxAge   time.Duration
	maxBytes int64
}

// NewFileStore creates the directory if needed and returns a store bound to
// it. maxAge 0 disables expiry; maxBytes 0 disables the capacity bound.
func NewFileStore(dir string, maxAge time.Duration, maxBytes int64) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, maxAge: maxAge, maxBytes: maxBytes}, nil
}

// Dir returns the store's directory.
func (s *FileStore) Dir() string { return s.dir }

// Read returns the entry for key, or a miss when it is absent or older than
// the configured maximum age. Expired entries are left in place; the next
// Write for the key overwrites them.
func (s *FileStore) Read(ctx context.Context, key string) (string, bool, error) {
	path := s.path(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		observability.Store().OnMiss(ctx, "file", key, false)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.maxAge > 0 && time.Since(info.ModTime()) > s.maxAge {
		observability.Store().OnMiss(ctx, "file", key, true)
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	observability.Store().OnHit(ctx, "file", key)
	return string(data), true, nil
}

// Write stores text under key, evicting oldest-write-first until the entry
// fits the capacity bound. The write goes through a temp file and rename so
// readers never observe a torn entry.
func (s *FileStore) Write(ctx context.Context, key, text string) error {
	path := s.path(key)
	if err := s.makeRoom(ctx, filepath.Base(path), int64(len(text))); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".write-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	observability.Store().OnWrite(ctx, "file", key, len(text))
	return nil
}

// Close does nothing for the file store.
func (s *FileStore) Close() error { return nil }

// makeRoom evicts entries, oldest mtime first, until existing entries plus
// the incoming one fit under maxBytes. The entry being overwritten does not
// count against the incoming write.
func (s *FileStore) makeRoom(ctx context.Context, incoming string, size int64) error {
	if s.maxBytes <= 0 {
		return nil
	}

	type entry struct {
		name  string
		size  int64
		mtime time.Time
	}

	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	var entries []entry
	var total int64
	for _, de := range dirents {
		if de.IsDir() || de.Name() == incoming || de.Name()[0] == '.' {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{name: de.Name(), size: info.Size(), mtime: info.ModTime()})
		total += info.Size()
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime.Before(entries[j].mtime) })

	for _, e := range entries {
		if total+size <= s.maxBytes {
			break
		}
		if err := os.Remove(filepath.Join(s.dir, e.name)); err != nil && !os.IsNotExist(err) {
			return err
		}
		observability.Store().OnEvict(ctx, "file", e.name)
		total -= e.size
	}
	return nil
}

// path maps a key to its entry file.
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

var _ Store = (*FileStore)(nil)
