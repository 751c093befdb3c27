package fsengine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// firstAllocatedFID is the value the counter is initialized to when it
// is absent on first start: FID=1 is reserved for the root, so the
// first allocation must be 2 (spec §4.2).
const firstAllocatedFID uint64 = 2

// Allocator hands out FIDs monotonically, persisting the next value to
// the counter file before returning any FID that will become
// externally visible (spec invariant I3). At most one allocation is
// outstanding at a time.
type Allocator struct {
	layout *Layout
	mu     sync.Mutex
	next   uint64
}

// NewAllocator reads the counter file, initializing it to
// firstAllocatedFID if absent. A malformed counter file is a startup
// failure, not something the allocator silently papers over.
func NewAllocator(layout *Layout) (*Allocator, error) {
	path := layout.CounterPath()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		a := &Allocator{layout: layout, next: firstAllocatedFID}
		if err := a.persist(firstAllocatedFID); err != nil {
			return nil, fmt.Errorf("initialize counter file: %w", err)
		}
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read counter file: %w", err)
	}

	next, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed counter file %q: %w", path, err)
	}

	return &Allocator{layout: layout, next: next}, nil
}

// Next returns a fresh FID, durably advancing the counter first. The
// returned FID must not be used for anything externally visible until
// this call returns successfully: a crash before the persist would
// otherwise let the same FID be re-issued after restart.
func (a *Allocator) Next() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fid := a.next
	if err := a.persist(fid + 1); err != nil {
		return 0, fmt.Errorf("advance FID counter: %w", err)
	}
	a.next = fid + 1
	return fid, nil
}

// Peek returns the next value that Next would hand out, without
// allocating it.
func (a *Allocator) Peek() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

func (a *Allocator) persist(value uint64) error {
	stage := a.layout.StagePath()
	data := []byte(strconv.FormatUint(value, 10))
	return writeFileDurable(stage, a.layout.CounterPath(), a.layout.DataDir(), data)
}
