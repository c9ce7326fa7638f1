// Package storage remembers which payload digests were already published per
// target so unchanged responses are not re-announced.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks published digests. Entries expire after the configured TTL.
type Store interface {
	Close() error
	Seen(targetID, digest string) (bool, error)
	Mark(targetID, digest string) error
	Forget(targetID string) error
}

// Options controls retention for every backend.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Backend names accepted by NewStore.
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeBBolt  = "bbolt"
)

// NewStore opens the backend named by typ. path is only used by bbolt.
// An empty typ disables change detection.
func NewStore(typ, path string, opts Options) (Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 6 * time.Hour
	}

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeMemory:
		return newMemoryStore(opts), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// noopStore never reports a digest as seen, so every settlement is published.
type noopStore struct{}

func (noopStore) Close() error                      { return nil }
func (noopStore) Seen(string, string) (bool, error) { return false, nil }
func (noopStore) Mark(string, string) error         { return nil }
func (noopStore) Forget(string) error               { return nil }
