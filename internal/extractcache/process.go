package extractcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// processMapCap bounds the in-flight/recently-finished extraction process
// table. Unlike the vfs package's CouldExist cache and entry table, this
// one has no "never evict" invariant — it only exists to let concurrent
// readers of the same entry discover an extraction already underway, so
// evicting a long-finished entry costs nothing worse than an extra
// os.Stat on the next Get.
const processMapCap = 4096

// procState tracks one extraction attempt's outcome.
type procState struct {
	running bool
	err     error
}

// processTable is a concurrency-safe, size-bounded map from cache file
// path to its extraction state.
type processTable struct {
	mu    sync.Mutex
	procs *lru.LRU[string, *procState]
}

func newProcessTable() *processTable {
	l, _ := lru.NewLRU[string, *procState](processMapCap, nil)
	return &processTable{procs: l}
}

// start records cacheFile as having an extraction in flight and returns a
// callback the spawning goroutine must invoke with the extractor's
// terminal error (nil on success) when it completes.
func (t *processTable) start(cacheFile string) func(err error) {
	t.mu.Lock()
	t.procs.Add(cacheFile, &procState{running: true})
	t.mu.Unlock()

	return func(err error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.procs.Add(cacheFile, &procState{running: false, err: err})
	}
}

// status reports whether cacheFile has a tracked extraction, and whether
// that extraction is still running (running=true) or finished cleanly
// (running=false, alive=true) versus finished with an error (alive=false).
func (t *processTable) status(cacheFile string) (running, alive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.procs.Get(cacheFile)
	if !ok {
		return false, false
	}
	if s.running {
		return true, true
	}
	return false, s.err == nil
}

func (t *processTable) forget(cacheFile string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs.Remove(cacheFile)
}
