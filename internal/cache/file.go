package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	natomic "github.com/natefinch/atomic"
)

// DefaultDir is where the file store keeps entries unless configured.
const DefaultDir = "pug_cache/"

const fileExt = ".html.gz"

// FileStore keeps one gzip file per key in a directory.
type FileStore struct {
	dir    string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// Get returns the entry for key. Expired entries are removed and reported
// as misses.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expired(info.ModTime(), s.ttl) {
		_ = os.Remove(p)
		s.misses.Add(1)
		return nil, false, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, err
	}
	body, err := decompress(data)
	if err != nil {
		_ = os.Remove(p)
		s.misses.Add(1)
		return nil, false, err
	}
	s.hits.Add(1)
	return body, true, nil
}

// Put writes the entry atomically so readers never see a partial file.
func (s *FileStore) Put(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := compress(body)
	if err != nil {
		return err
	}
	if err := natomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every cache entry but leaves unrelated files alone.
func (s *FileStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	s.hits.Store(0)
	s.misses.Store(0)
	return nil
}

func (s *FileStore) Stats() Stats {
	st := Stats{
		Backend: "file",
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return st
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.Entries++
		st.Bytes += info.Size()
	}
	return st
}

func (s *FileStore) Close() error { return nil }
