package storage

import (
	"strings"

	"github.com/jellydator/ttlcache/v3"
)

// memoryStore keeps digests in process. Contents are lost on restart.
type memoryStore struct {
	cache *ttlcache.Cache[string, struct{}]
}

func newMemoryStore(opts Options) *memoryStore {
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](opts.TTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()
	return &memoryStore{cache: cache}
}

func memoryKey(targetID, digest string) string {
	return targetID + "/" + digest
}

func (m *memoryStore) Close() error {
	m.cache.Stop()
	return nil
}

func (m *memoryStore) Seen(targetID, digest string) (bool, error) {
	return m.cache.Get(memoryKey(targetID, digest)) != nil, nil
}

func (m *memoryStore) Mark(targetID, digest string) error {
	m.cache.Set(memoryKey(targetID, digest), struct{}{}, ttlcache.DefaultTTL)
	return nil
}

func (m *memoryStore) Forget(targetID string) error {
	prefix := targetID + "/"
	for _, key := range m.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
		}
	}
	return nil
}
