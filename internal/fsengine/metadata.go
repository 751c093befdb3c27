package fsengine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileType mirrors the handful of NFS file types spec §3 requires.
type FileType int

const (
	TypeNone FileType = iota
	TypeRegular
	TypeDirectory
	TypeBlock
	TypeChar
	TypeSymlink
)

// BlockSize is the fixed block size used for the blocks attribute,
// carried over from the original implementation (SPEC_FULL.md §4).
const BlockSize uint32 = 1 << 12

// Attr is the metadata record of spec §3: "type, mode, uid, gid, size,
// blocksize, blocks, rdev, nlink, fsid, fid, atime, mtime, ctime." It is
// the decoded form of whatever bytes live in a metadata entry.
type Attr struct {
	FID       uint64    `json:"fid"`
	Type      FileType  `json:"type"`
	Mode      uint32    `json:"mode"`
	UID       uint32    `json:"uid"`
	GID       uint32    `json:"gid"`
	Size      uint64    `json:"size"`
	BlockSize uint32    `json:"blocksize"`
	Blocks    uint64    `json:"blocks"`
	Rdev      uint64    `json:"rdev"`
	Nlink     uint32    `json:"nlink"`
	Fsid      uint64    `json:"fsid"`
	Atime     time.Time `json:"atime"`
	Mtime     time.Time `json:"mtime"`
	Ctime     time.Time `json:"ctime"`
}

// Sattr is the subset of attributes a client may set via create/mkdir/
// setattr (spec §6): mode, uid, gid, atime, mtime, and (setattr only)
// size. Pointer fields distinguish "not supplied" from a zero value.
type Sattr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// recomputeBlocks derives Blocks from Size using BlockSize, the same
// ceiling-division the original implementation uses.
func recomputeBlocks(a *Attr) {
	if a.BlockSize == 0 {
		a.BlockSize = BlockSize
	}
	a.Blocks = (a.Size + uint64(a.BlockSize) - 1) / uint64(a.BlockSize)
}

// newAttr builds the initial attribute record for a freshly created
// object, applying any client-supplied sattr (spec SPEC_FULL.md §4:
// create/mkdir apply attributes atomically with creation).
func newAttr(fid uint64, ftype FileType, sattr Sattr, now time.Time) Attr {
	a := Attr{
		FID:       fid,
		Type:      ftype,
		Mode:      0o644,
		BlockSize: BlockSize,
		Fsid:      1,
		Nlink:     1,
		Atime:     now,
		Mtime:     now,
		Ctime:     now,
	}
	if ftype == TypeDirectory {
		a.Mode = 0o755
		a.Size = BlockSize64()
	}
	applySattr(&a, sattr, now)
	recomputeBlocks(&a)
	return a
}

func BlockSize64() uint64 { return uint64(BlockSize) }

// applySattr overlays the supplied fields onto a, bumping Ctime whenever
// any field is supplied, even with its current value (SPEC_FULL.md §5: the resolved open
// question on setattr semantics).
func applySattr(a *Attr, s Sattr, now time.Time) {
	changed := false
	if s.Mode != nil {
		a.Mode = *s.Mode
		changed = true
	}
	if s.UID != nil {
		a.UID = *s.UID
		changed = true
	}
	if s.GID != nil {
		a.GID = *s.GID
		changed = true
	}
	if s.Size != nil {
		a.Size = *s.Size
		changed = true
	}
	if s.Atime != nil {
		a.Atime = *s.Atime
		if s.Mtime == nil {
			a.Mtime = *s.Atime
		}
		changed = true
	}
	if s.Mtime != nil {
		a.Mtime = *s.Mtime
		changed = true
	}
	if changed {
		a.Ctime = now
	}
}

// encodeAttr and decodeAttr are the metadata codec of spec §4.1/§3.
// The record is internal to this server (never transmitted verbatim
// over the wire; the zippynfs protocol layer re-encodes it as XDR), so
// encoding/json is used rather than a wire-format library: it is
// human-inspectable for debugging and carries no cross-language
// compatibility burden that would justify a heavier schema-driven
// codec (see DESIGN.md).
func encodeAttr(a Attr) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode metadata record: %w", err)
	}
	return data, nil
}

func decodeAttr(data []byte) (Attr, error) {
	var a Attr
	if err := json.Unmarshal(data, &a); err != nil {
		return Attr{}, fmt.Errorf("decode metadata record: %w", err)
	}
	return a, nil
}

// readAttr loads the metadata record from path.
func readAttr(path string) (Attr, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attr{}, err
	}
	return decodeAttr(data)
}

// writeAttrDurable writes a's encoded form to a fresh file at
// stagePath and atomically renames it over finalPath, syncing
// parentDir afterward.
func writeAttrDurable(a Attr, stagePath, finalPath, parentDir string) error {
	data, err := encodeAttr(a)
	if err != nil {
		return err
	}
	return writeFileDurable(stagePath, finalPath, parentDir, data)
}
