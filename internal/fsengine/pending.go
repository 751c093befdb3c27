package fsengine

import "sync"

// region is one buffered unstable write, in wire-receipt order.
type region struct {
	offset uint64
	data   []byte
}

func (r region) end() uint64 { return r.offset + uint64(len(r.data)) }

// pendingFile is the ordered sequence of unstable regions for one FID
// (spec §4.5/§9: "the pending buffer"). Regions are kept in the order
// the server received them; overlapping ranges are resolved by replay
// order, so later writes win, matching spec §4.5's ordering rule.
type pendingFile struct {
	mu      sync.Mutex
	regions []region
}

func (p *pendingFile) totalBytes() uint64 {
	var total uint64
	for _, r := range p.regions {
		total += uint64(len(r.data))
	}
	return total
}

// PendingWrites is the per-FID async write buffer of spec §4.5/§9,
// keyed by FID and guarded per-FID as §5 requires.
type PendingWrites struct {
	mu             sync.RWMutex
	byFID          map[uint64]*pendingFile
	maxBytesPerFID uint64 // 0 = unbounded (spec §9's optional cap)
}

func NewPendingWrites(maxBytesPerFID uint64) *PendingWrites {
	return &PendingWrites{byFID: make(map[uint64]*pendingFile), maxBytesPerFID: maxBytesPerFID}
}

func (p *PendingWrites) fileFor(fid uint64) *pendingFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.byFID[fid]
	if !ok {
		f = &pendingFile{}
		p.byFID[fid] = f
	}
	return f
}

func (p *PendingWrites) peek(fid uint64) *pendingFile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byFID[fid]
}

// Append buffers an unstable write. It returns an Internal error if the
// configured per-FID byte cap would be exceeded; per spec §9 the client
// is expected to fall back to a stable write stability level.
func (p *PendingWrites) Append(fid, offset uint64, data []byte) error {
	f := p.fileFor(fid)
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.maxBytesPerFID > 0 && f.totalBytes()+uint64(len(data)) > p.maxBytesPerFID {
		return newErr(Internal, "pending write buffer for fid %d would exceed %d byte cap", fid, p.maxBytesPerFID)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	f.regions = append(f.regions, region{offset: offset, data: buf})
	return nil
}

// LogicalSize returns the largest offset any pending region or the
// committed file extends to, i.e. the size a reader should perceive
// once the pending overlay is applied (spec §4.5: "reads reflect
// committed bytes plus the in-memory pending buffer overlay").
func (p *PendingWrites) LogicalSize(fid uint64, committedSize uint64) uint64 {
	f := p.peek(fid)
	if f == nil {
		return committedSize
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	size := committedSize
	for _, r := range f.regions {
		if r.end() > size {
			size = r.end()
		}
	}
	return size
}

// Overlay returns a copy of committed (which represents the bytes
// already on disk starting at offset, zero-extended to length if the
// pending buffer extends past EOF) with every intersecting pending
// region applied in receipt order.
func (p *PendingWrites) Overlay(fid uint64, offset uint64, committed []byte, length int) []byte {
	result := make([]byte, length)
	copy(result, committed)

	f := p.peek(fid)
	if f == nil {
		return result
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	end := offset + uint64(length)
	for _, r := range f.regions {
		rEnd := r.end()
		if rEnd <= offset || r.offset >= end {
			continue
		}
		start := max64(r.offset, offset)
		stop := min64(rEnd, end)
		copy(result[start-offset:stop-offset], r.data[start-r.offset:stop-r.offset])
	}
	return result
}

// TruncateTo clips or drops every pending region past newSize, so a
// setattr-driven truncate cannot be undone by a later commit replaying
// bytes the client already asked to discard.
func (p *PendingWrites) TruncateTo(fid, newSize uint64) {
	f := p.peek(fid)
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.regions[:0]
	for _, r := range f.regions {
		if r.offset >= newSize {
			continue
		}
		if r.end() > newSize {
			r.data = r.data[:newSize-r.offset]
		}
		kept = append(kept, r)
	}
	f.regions = kept
}

// Drain removes and returns all pending regions for fid, in receipt
// order, so commit can apply them exactly once. An absent or empty
// buffer returns nil.
func (p *PendingWrites) Drain(fid uint64) []region {
	p.mu.Lock()
	f, ok := p.byFID[fid]
	if ok {
		delete(p.byFID, fid)
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regions
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
