package fsengine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Resolver maps a FID to the absolute path of its data entry (spec
// §4.3). The cache it maintains is advisory only: every hit is
// re-validated against the live filesystem before being trusted, and a
// validation failure falls through to a fresh BFS rather than erroring.
type Resolver struct {
	layout *Layout

	mu    sync.RWMutex
	cache map[uint64]string
}

func NewResolver(layout *Layout) *Resolver {
	return &Resolver{layout: layout, cache: make(map[uint64]string)}
}

// Resolve returns the absolute path of fid's data entry, or a Stale
// error if fid does not resolve to an existing NFS file.
func (r *Resolver) Resolve(fid uint64) (string, error) {
	if fid == RootFID {
		return r.layout.RootPath(), nil
	}

	if path, ok := r.cachedPath(fid); ok && r.validate(fid, path) {
		return path, nil
	}
	r.Forget(fid)

	path, err := r.bfsFind(fid)
	if err != nil {
		return "", wrapErr(Internal, err, "scan filesystem for fid %d", fid)
	}
	if path == "" {
		return "", newErr(Stale, "fid %d does not resolve", fid)
	}

	r.Insert(fid, path)
	return path, nil
}

func (r *Resolver) cachedPath(fid uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.cache[fid]
	return path, ok
}

// validate re-stats the cached candidate and confirms both the basename
// matches and a paired metadata sibling still exists (spec §4.3,
// invariant I1).
func (r *Resolver) validate(fid uint64, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if filepath.Base(path) != EncodeData(fid) {
		return false
	}
	_ = info

	parent := filepath.Dir(path)
	return metaSiblingExists(parent, fid)
}

// Insert records a known-good mapping. Called by every mutating
// operation that creates or moves an entry (spec §4.3).
func (r *Resolver) Insert(fid uint64, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[fid] = path
}

// Forget evicts fid from the cache. Called by every mutating operation
// that deletes an entry, and as the fallback step of a failed
// validation.
func (r *Resolver) Forget(fid uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, fid)
}

// metaSiblingExists scans dir for any metadata entry whose FID prefix
// is fid.
func metaSiblingExists(dir string, fid uint64) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, ent := range entries {
		parsed, ok := Parse(ent.Name())
		if ok && parsed.Kind == KindMeta && parsed.FID == fid {
			return true
		}
	}
	return false
}

// dataSiblingExists reports whether dir contains the data entry for fid.
func dataSiblingExists(dir string, fid uint64) bool {
	_, err := os.Lstat(filepath.Join(dir, EncodeData(fid)))
	return err == nil
}

// bfsFind performs a breadth-first scan of the server-FS rooted at the
// root data entry, pruning into directories only, and returns the path
// of the data entry whose basename is EncodeData(fid) and which has a
// matching metadata sibling. It is the fallback path spec §4.3
// describes as "expected to happen rarely, such as after a crash."
func (r *Resolver) bfsFind(fid uint64) (string, error) {
	queue := []string{r.layout.RootPath()}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			// A concurrent delete could have removed this directory
			// between enqueue and read; treat it as empty rather than
			// failing the whole scan.
			continue
		}

		dataFIDs := make(map[uint64]bool)
		metaFIDs := make(map[uint64]bool)
		for _, ent := range entries {
			parsed, ok := Parse(ent.Name())
			if !ok {
				continue
			}
			switch parsed.Kind {
			case KindData:
				dataFIDs[parsed.FID] = true
			case KindMeta:
				metaFIDs[parsed.FID] = true
			}
		}

		for dataFID := range dataFIDs {
			if !metaFIDs[dataFID] {
				continue // junk data entry, invariant I1
			}
			childPath := filepath.Join(dir, EncodeData(dataFID))
			if dataFID == fid {
				return childPath, nil
			}
			info, err := os.Stat(childPath)
			if err == nil && info.IsDir() {
				queue = append(queue, childPath)
			}
		}
	}

	return "", nil
}

// fsFindByName looks up a single child name inside dir's data entry
// without walking the whole tree, used by lookup/create/rename.
func fsFindByName(dir, name string) (fid uint64, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, false, fmt.Errorf("read directory %q: %w", dir, err)
	}

	for _, ent := range entries {
		parsed, parseOK := Parse(ent.Name())
		if !parseOK || parsed.Kind != KindMeta || parsed.Name != name {
			continue
		}
		if dataSiblingExists(dir, parsed.FID) {
			return parsed.FID, true, nil
		}
	}
	return 0, false, nil
}
