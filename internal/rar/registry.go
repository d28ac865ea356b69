package rar

import (
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// Registry keeps one opened Archive per first-volume path for the life of
// the process, so concurrent lookups of sibling entries in the same
// archive share the parsed entry table instead of re-reading it. A single
// RWMutex guards the map; the archive set is expected to stay small enough
// (one per distinct RAR archive under the source tree) that sharding would
// add complexity without a measurable benefit.
type Registry struct {
	fs   afero.Fs
	mode TraversalMode

	mu        sync.RWMutex
	opened    map[string]*Archive
	openGroup singleflight.Group
}

// NewRegistry creates a registry that opens archives against fs using the
// given volume-traversal mode.
func NewRegistry(fs afero.Fs, mode TraversalMode) *Registry {
	return &Registry{
		fs:     fs,
		mode:   mode,
		opened: make(map[string]*Archive),
	}
}

// Open returns the cached Archive for path, parsing it the first time any
// caller asks for it. Concurrent callers for the same path block on a
// single parse via singleflight rather than racing duplicate opens.
func (r *Registry) Open(path string) (*Archive, error) {
	r.mu.RLock()
	if a, ok := r.opened[path]; ok {
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.openGroup.Do(path, func() (interface{}, error) {
		r.mu.RLock()
		if a, ok := r.opened[path]; ok {
			r.mu.RUnlock()
			return a, nil
		}
		r.mu.RUnlock()

		a, err := Open(r.fs, path, r.mode)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.opened[path] = a
		r.mu.Unlock()

		return a, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Archive), nil
}

// Forget drops path from the registry, e.g. because its backing file has
// vanished. A subsequent Open reparses it.
func (r *Registry) Forget(path string) {
	r.mu.Lock()
	delete(r.opened, path)
	r.mu.Unlock()
}
