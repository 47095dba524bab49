package lsm

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pragmatic-zac/sprucedb/internal/errs"
	"github.com/pragmatic-zac/sprucedb/internal/sstable"
)

// defaultReaderCacheSize bounds how many SSTable readers stay open at
// once. Entries evicted by the LRU are closed; they simply reopen on
// next access.
const defaultReaderCacheSize = 64

// registry caches open sstable.Reader handles keyed by SSTable path.
// It is the coordinator's in-memory substitute for an on-disk
// manifest. It starts empty at open and is filled lazily as Get opens
// the files its directory scan finds; an entry is dropped on eviction,
// when a flush writes that path, or when a compactor removes it.
type registry struct {
	cache *lru.Cache[string, *sstable.Reader]
}

func newRegistry() (*registry, error) {
	cache, err := lru.NewWithEvict[string, *sstable.Reader](defaultReaderCacheSize, func(_ string, r *sstable.Reader) {
		r.Close()
	})
	if err != nil {
		return nil, errs.Wrap(errs.State, err, "construct sstable reader cache")
	}
	return &registry{cache: cache}, nil
}

// get returns a cached reader for path, opening and caching one if
// absent.
func (reg *registry) get(path string) (*sstable.Reader, error) {
	if r, ok := reg.cache.Get(path); ok {
		return r, nil
	}
	r, err := sstable.Open(path)
	if err != nil {
		return nil, err
	}
	reg.cache.Add(path, r)
	return r, nil
}

// invalidate drops and closes any cached reader for path. Called when
// a flush writes path and when a compactor removes path out from under
// the coordinator.
func (reg *registry) invalidate(path string) {
	if r, ok := reg.cache.Peek(path); ok {
		r.Close()
		reg.cache.Remove(path)
	}
}

// closeAll closes every cached reader, for coordinator shutdown.
func (reg *registry) closeAll() {
	for _, key := range reg.cache.Keys() {
		if r, ok := reg.cache.Peek(key); ok {
			r.Close()
		}
	}
	reg.cache.Purge()
}
