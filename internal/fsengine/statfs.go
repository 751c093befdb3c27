package fsengine

import "syscall"

// FSStat is the filesystem-wide usage summary spec §6's statfs op
// returns, modeled on the host filesystem backing the data directory
// rather than tracked separately (SPEC_FULL.md §4).
type FSStat struct {
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	BlockSize  uint32
}

// StatFS reports host filesystem usage for the export (spec §6).
func (e *Engine) StatFS() (FSStat, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(e.layout.DataDir(), &st); err != nil {
		return FSStat{}, wrapErr(Internal, err, "statfs %q", e.layout.DataDir())
	}

	bsize := uint64(st.Bsize)
	return FSStat{
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bfree * bsize,
		AvailBytes: st.Bavail * bsize,
		TotalFiles: st.Files,
		FreeFiles:  st.Ffree,
		BlockSize:  BlockSize,
	}, nil
}
