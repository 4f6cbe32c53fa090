// Package cache stores rendered HTML keyed by the options, name and source
// that produced it.
package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache: store closed")

// Store is a render cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats is a point-in-time view of a store.
type Stats struct {
	Backend   string `json:"backend" yaml:"backend"`
	Entries   int    `json:"entries" yaml:"entries"`
	Bytes     int64  `json:"bytes" yaml:"bytes"`
	Hits      int64  `json:"hits" yaml:"hits"`
	Misses    int64  `json:"misses" yaml:"misses"`
	Evictions int64  `json:"evictions" yaml:"evictions"`
}

// HitRate returns hits / (hits + misses), 0 when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func expired(created time.Time, ttl time.Duration) bool {
	return ttl > 0 && time.Since(created) > ttl
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
