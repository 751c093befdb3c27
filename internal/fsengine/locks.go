package fsengine

import (
	"sort"
	"sync"
)

// fidLocks implements the per-FID advisory locking of spec §4.7.
// Multi-FID operations acquire their locks in sorted FID order to avoid
// deadlock; single-FID operations are a degenerate case of the same
// call.
type fidLocks struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newFIDLocks() *fidLocks {
	return &fidLocks{locks: make(map[uint64]*sync.Mutex)}
}

func (l *fidLocks) mutexFor(fid uint64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[fid]
	if !ok {
		m = &sync.Mutex{}
		l.locks[fid] = m
	}
	return m
}

// Acquire locks every distinct FID in fids, in ascending numeric order,
// and returns a release function that unlocks them in reverse. Callers
// should `defer release()` immediately.
func (l *fidLocks) Acquire(fids ...uint64) (release func()) {
	unique := uniqueSorted(fids)

	mutexes := make([]*sync.Mutex, len(unique))
	for i, fid := range unique {
		mutexes[i] = l.mutexFor(fid)
	}
	for _, m := range mutexes {
		m.Lock()
	}

	return func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			mutexes[i].Unlock()
		}
	}
}

func uniqueSorted(fids []uint64) []uint64 {
	set := make(map[uint64]struct{}, len(fids))
	for _, fid := range fids {
		set[fid] = struct{}{}
	}
	out := make([]uint64, 0, len(set))
	for fid := range set {
		out = append(out, fid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// nameLocks implements the destination-name advisory lock that
// SPEC_FULL.md §4 adds on top of spec.md's FID locks: it closes the
// race between "check the name doesn't exist" and "create it" for
// create/mkdir/rename, the same way the original implementation's
// name_lock does.
type nameLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newNameLocks() *nameLocks {
	return &nameLocks{held: make(map[string]struct{})}
}

func nameLockKey(dirPath, name string) string {
	return dirPath + "\x00" + name
}

// TryLock returns true if the (dir, name) pair was not already locked
// and is now held by the caller. A false return means someone else is
// concurrently creating or renaming into that name.
func (n *nameLocks) TryLock(dirPath, name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := nameLockKey(dirPath, name)
	if _, exists := n.held[key]; exists {
		return false
	}
	n.held[key] = struct{}{}
	return true
}

// Unlock releases a lock previously acquired with TryLock. The caller
// must own the lock; this is not speculative.
func (n *nameLocks) Unlock(dirPath, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.held, nameLockKey(dirPath, name))
}
