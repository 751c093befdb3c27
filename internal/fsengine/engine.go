// Package fsengine is the storage engine core of ZippyNFS: the on-disk
// layout that maps a logical NFS hierarchy onto a physical directory
// tree, the FID allocator, the path resolver and its cache, the
// copy-on-write small-write path, the asynchronous write buffer with
// epoch-based recovery, and the concurrency discipline that makes
// rename and small writes atomic under concurrent RPCs and crashes.
//
// Everything in this package operates purely on the local host
// filesystem via standard file operations and atomic rename; no other
// service is involved, matching spec §1's framing of the storage
// engine as the one thing this system specifies precisely.
package fsengine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chimney-labs/zippynfs/internal/logger"
)

const rootEntryName = "root"

// Options configures a new Engine.
type Options struct {
	// DataDir is the host directory the exported namespace is rooted
	// at (spec §3's D).
	DataDir string

	// MaxAsyncBytesPerFID caps the pending-write buffer per FID; 0
	// means unbounded (spec §9).
	MaxAsyncBytesPerFID uint64
}

// Engine wires together every component of §4 into the single object
// that the protocol layer calls into.
type Engine struct {
	layout   *Layout
	alloc    *Allocator
	resolver *Resolver
	locks    *fidLocks
	names    *nameLocks
	pending  *PendingWrites
	epoch    *Epoch
}

// New opens (and, on first use, initializes) the storage engine rooted
// at opts.DataDir.
func New(opts Options) (*Engine, error) {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	layout := NewLayout(opts.DataDir)
	if err := os.MkdirAll(layout.TmpDir(), 0o700); err != nil {
		return nil, fmt.Errorf("create tmp directory: %w", err)
	}

	alloc, err := NewAllocator(layout)
	if err != nil {
		return nil, fmt.Errorf("open FID allocator: %w", err)
	}

	e := &Engine{
		layout:   layout,
		alloc:    alloc,
		resolver: NewResolver(layout),
		locks:    newFIDLocks(),
		names:    newNameLocks(),
		pending:  NewPendingWrites(opts.MaxAsyncBytesPerFID),
	}

	if err := e.ensureRoot(); err != nil {
		return nil, fmt.Errorf("initialize root: %w", err)
	}

	epoch, err := NewEpoch(alloc)
	if err != nil {
		return nil, fmt.Errorf("initialize epoch: %w", err)
	}
	e.epoch = epoch

	logger.Info("storage engine ready: data_dir=%s epoch=%d", opts.DataDir, epoch.Value())
	return e, nil
}

// Epoch returns the current verifier (spec §4.6).
func (e *Engine) Epoch() uint64 { return e.epoch.Value() }

// ensureRoot makes sure FID=1's data/metadata pair exists in D,
// self-healing a half-created pair left over from a crash during a
// previous first boot (see SPEC_FULL.md §4's directory-fsync
// discipline: every step here syncs its parent before proceeding).
func (e *Engine) ensureRoot() error {
	dataDir := e.layout.DataDir()
	dataExists := pathExists(e.layout.RootPath())
	metaName := findMetaEntry(dataDir, RootFID)

	switch {
	case dataExists && metaName != "":
		return nil
	case !dataExists && metaName == "":
		return e.createRootPair()
	case dataExists && metaName == "":
		return e.healRootMeta()
	default: // stray meta, no data: clean up and recreate
		if err := os.Remove(filepath.Join(dataDir, metaName)); err != nil {
			return fmt.Errorf("remove stray root metadata entry: %w", err)
		}
		return e.createRootPair()
	}
}

func (e *Engine) createRootPair() error {
	now := time.Now()
	attr := newAttr(RootFID, TypeDirectory, Sattr{}, now)

	stageDir := e.layout.StagePath()
	if err := os.Mkdir(stageDir, 0o755); err != nil {
		return fmt.Errorf("stage root data entry: %w", err)
	}
	if err := os.Rename(stageDir, e.layout.RootPath()); err != nil {
		os.RemoveAll(stageDir)
		return fmt.Errorf("rename root data entry into place: %w", err)
	}
	if err := syncPath(e.layout.DataDir()); err != nil {
		return fmt.Errorf("sync data directory after root creation: %w", err)
	}

	finalMeta := filepath.Join(e.layout.DataDir(), EncodeMeta(RootFID, rootEntryName))
	if err := writeAttrDurable(attr, e.layout.StagePath(), finalMeta, e.layout.DataDir()); err != nil {
		return fmt.Errorf("write root metadata entry: %w", err)
	}
	return nil
}

func (e *Engine) healRootMeta() error {
	now := time.Now()
	attr := newAttr(RootFID, TypeDirectory, Sattr{}, now)
	finalMeta := filepath.Join(e.layout.DataDir(), EncodeMeta(RootFID, rootEntryName))
	return writeAttrDurable(attr, e.layout.StagePath(), finalMeta, e.layout.DataDir())
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// findMetaEntry returns the basename of dir's metadata entry for fid,
// or "" if none exists.
func findMetaEntry(dir string, fid uint64) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, ent := range entries {
		parsed, ok := Parse(ent.Name())
		if ok && parsed.Kind == KindMeta && parsed.FID == fid {
			return ent.Name()
		}
	}
	return ""
}

// metaPathFor returns the metadata entry path for fid in dirPath, or
// "" if none exists.
func metaPathFor(dirPath string, fid uint64) string {
	name := findMetaEntry(dirPath, fid)
	if name == "" {
		return ""
	}
	return filepath.Join(dirPath, name)
}
