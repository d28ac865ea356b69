package vfs

import (
	"sync"

	"github.com/jinzhu/copier"

	"github.com/javi11/rardirfs/internal/rar"
)

// EntryKind distinguishes the two variants a VfsEntry can hold.
type EntryKind int

const (
	// KindHost means the virtual path refers to a real file or
	// directory in the source tree, possibly under a different name due
	// to flattening.
	KindHost EntryKind = iota
	// KindArchive means the virtual path refers to a file inside a RAR
	// archive.
	KindArchive
)

// Entry is the binding recorded for one virtual path: either a pointer
// back into the host tree, or a reference to an opened archive plus the
// filename inside it.
type Entry struct {
	Kind EntryKind

	// RealPath is, for KindHost, the host-relative path this virtual
	// path is ultimately backed by (it may differ from the virtual path
	// when directories were flattened away). For KindArchive, it is the
	// host-relative path of the archive's first volume.
	RealPath string

	Archive      *rar.Archive
	ArchiveEntry *rar.Entry
}

// Table is the process-lifetime map from virtual path to VfsEntry,
// guarded by a single RWMutex. Entries are created lazily as directories
// are enumerated and are never proactively evicted — a stale entry whose
// backing file has vanished is only dropped the next time it's stat'd,
// per the no-invalidation contract for this cache.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewTable creates an empty virtual-path table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Get returns a snapshot of the entry recorded for path, if any. It hands
// back a shallow clone rather than the stored pointer so that a caller
// can't mutate the table's bookkeeping (e.g. its RealPath) through the
// pointer it receives.
func (t *Table) Get(path string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[path]
	if !ok {
		return nil, false
	}

	var clone Entry
	_ = copier.Copy(&clone, e)
	return &clone, true
}

// Set records (or replaces) the entry for path.
func (t *Table) Set(path string, e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[path] = e
}

// Delete drops path from the table, used when its backing file is found
// to have vanished.
func (t *Table) Delete(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, path)
}
