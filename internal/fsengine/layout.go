package fsengine

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RootFID is reserved for the root of the exported namespace (spec §3).
const RootFID uint64 = 1

// EntryKind distinguishes the two sibling server-FS entries that back
// every NFS file (spec §3, invariant I1).
type EntryKind int

const (
	KindData EntryKind = iota
	KindMeta
)

// ParsedEntry is the result of parsing a server-FS basename. It is the
// tagged variant spec §9 recommends: a single parse call produces either
// a data tag, a meta tag (with its name suffix), or nothing (junk /
// invalid, signaled by Parse's second return value).
type ParsedEntry struct {
	Kind EntryKind
	FID  uint64
	Name string // populated only for KindMeta
}

// Layout owns the naming scheme, the tmp staging area, and the counter
// file path for one data directory. It holds no mutable state of its
// own; FID allocation lives in Allocator.
type Layout struct {
	dataDir string
}

func NewLayout(dataDir string) *Layout {
	return &Layout{dataDir: dataDir}
}

func (l *Layout) DataDir() string { return l.dataDir }

// RootPath returns the path of the root data entry, D/1.
func (l *Layout) RootPath() string {
	return filepath.Join(l.dataDir, EncodeData(RootFID))
}

// TmpDir returns the staging directory, D/tmp.
func (l *Layout) TmpDir() string {
	return filepath.Join(l.dataDir, "tmp")
}

// CounterPath returns the path of the FID counter file, D/counter.
func (l *Layout) CounterPath() string {
	return filepath.Join(l.dataDir, "counter")
}

// StagePath allocates a fresh, unique path inside tmp. Uniqueness comes
// from a random 128-bit token, so concurrent callers never collide and
// no tmp-area lock is required (spec §4.7).
func (l *Layout) StagePath() string {
	return filepath.Join(l.TmpDir(), uuid.NewString())
}

// EncodeData is the decimal representation of fid (spec §4.1).
func EncodeData(fid uint64) string {
	return strconv.FormatUint(fid, 10)
}

// EncodeMeta is "{fid}.{name}" (spec §4.1). name is the human-visible
// component name and may itself contain dots.
func EncodeMeta(fid uint64, name string) string {
	return EncodeData(fid) + "." + name
}

// Parse decodes a server-FS basename into its tagged form. It fails
// (ok=false) if the numeric prefix is not a valid positive integer,
// which is the only structural requirement spec §4.1 places on names.
func Parse(basename string) (entry ParsedEntry, ok bool) {
	if basename == "" {
		return ParsedEntry{}, false
	}

	dot := strings.IndexByte(basename, '.')
	prefix := basename
	if dot >= 0 {
		prefix = basename[:dot]
	}

	fid, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil || fid == 0 {
		return ParsedEntry{}, false
	}

	if dot < 0 {
		return ParsedEntry{Kind: KindData, FID: fid}, true
	}
	return ParsedEntry{Kind: KindMeta, FID: fid, Name: basename[dot+1:]}, true
}

// ValidName reports whether name is an acceptable NFS component name
// (spec §4.4): non-empty, no '/' or NUL, and not "." or "..".
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}
