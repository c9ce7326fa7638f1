package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	rootBucket       = "targets"
	expiryValueBytes = 8
)

var errRootBucketMissing = errors.New("targets bucket missing")

// boltStore keeps one nested bucket per target: targets/<target id>/<digest> -> expiry.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Seen reports whether digest was marked for targetID and has not expired.
// Expired entries are deleted on read.
func (b *boltStore) Seen(targetID, digest string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var exists bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return errRootBucketMissing
		}
		target := root.Bucket([]byte(targetID))
		if target == nil {
			return nil
		}

		key := []byte(digest)
		expiry, ok := decodeExpiry(target.Get(key))
		if ok && expiry.After(now) {
			exists = true
			return nil
		}
		if target.Get(key) != nil {
			return target.Delete(key)
		}
		return nil
	})
	return exists, err
}

// Mark records digest for targetID until the TTL elapses.
func (b *boltStore) Mark(targetID, digest string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return errRootBucketMissing
		}
		target, err := root.CreateBucketIfNotExists([]byte(targetID))
		if err != nil {
			return fmt.Errorf("create target bucket %q: %w", targetID, err)
		}
		buf := make([]byte, expiryValueBytes)
		binary.BigEndian.PutUint64(buf, uint64(now.Add(b.ttl).Unix()))
		return target.Put([]byte(digest), buf)
	})
}

// Forget drops every digest recorded for targetID.
func (b *boltStore) Forget(targetID string) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return errRootBucketMissing
		}
		if root.Bucket([]byte(targetID)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(targetID))
	})
}

// maybeCleanupExpired sweeps expired digests at most once per cleanup interval.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return errRootBucketMissing
		}

		var empty [][]byte
		err := root.ForEachBucket(func(name []byte) error {
			target := root.Bucket(name)
			cursor := target.Cursor()
			remaining := 0
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				expiry, ok := decodeExpiry(v)
				if ok && expiry.After(now) {
					remaining++
					continue
				}
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
			if remaining == 0 {
				empty = append(empty, append([]byte(nil), name...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, name := range empty {
			if err := root.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeExpiry decodes the expiry time from the stored byte slice.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
