package vfs

import (
	"path"
	"sync"

	"github.com/spf13/afero"
)

// CouldExistCache memoizes whether a virtual path survives the
// filter/flatten predicates applied to its basename. It is a pure
// function of the path and the (immutable, loaded-once) pattern lists, so
// once computed an answer never changes; the cache therefore only grows
// and is never invalidated or evicted.
type CouldExistCache struct {
	preds Predicates

	mu    sync.RWMutex
	cache map[string]bool
}

// NewCouldExistCache creates a cache that applies preds against fs.
func NewCouldExistCache(preds Predicates) *CouldExistCache {
	return &CouldExistCache{
		preds: preds,
		cache: make(map[string]bool),
	}
}

// CouldExist reports whether path could exist in the projection: its
// basename isn't filtered, and — if it names a directory on the host —
// its basename isn't a flatten-pattern match either.
func (c *CouldExistCache) CouldExist(fs afero.Fs, vpath string) bool {
	c.mu.RLock()
	if v, ok := c.cache[vpath]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	base := path.Base(vpath)
	result := true

	if c.preds.ShouldBeFiltered(base) {
		result = false
	} else if info, err := fs.Stat(vpath); err == nil && info.IsDir() {
		if c.preds.Flatten.MatchAny(base) {
			result = false
		}
	}

	c.mu.Lock()
	c.cache[vpath] = result
	c.mu.Unlock()

	return result
}
