package fsengine

// Epoch is the boot-time verifier of spec §4.6: a 64-bit counter, held
// only in memory, returned on every write and commit reply so clients
// can detect a server restart and know to replay unstable writes.
type Epoch struct {
	value uint64
}

// NewEpoch seeds the epoch from the FID allocator, the same derivation
// the original implementation uses (SPEC_FULL.md §4): the epoch reuses
// one tick of the FID space rather than maintaining a second persisted
// counter, since spec §4.6 requires only that the value be unique to
// this server instance, not that it be persisted.
func NewEpoch(alloc *Allocator) (*Epoch, error) {
	value, err := alloc.Next()
	if err != nil {
		return nil, err
	}
	return &Epoch{value: value}, nil
}

func (e *Epoch) Value() uint64 { return e.value }
