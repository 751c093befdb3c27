package fsengine

import (
	"os"
	"path/filepath"
	"time"
)

// DirEntry is one child of a directory, as returned by Readdir.
type DirEntry struct {
	Name string
	FID  uint64
}

// resolveDir resolves fid and confirms it names a directory.
func (e *Engine) resolveDir(fid uint64) (string, error) {
	path, err := e.resolver.Resolve(fid)
	if err != nil {
		return "", err
	}
	attr, _, err := e.loadAttr(fid, path)
	if err != nil {
		return "", err
	}
	if attr.Type != TypeDirectory {
		return "", newErr(NotDir, "fid %d is not a directory", fid)
	}
	return path, nil
}

// loadAttr reads the metadata record paired with dataPath.
func (e *Engine) loadAttr(fid uint64, dataPath string) (attr Attr, metaPath string, err error) {
	parent := filepath.Dir(dataPath)
	metaPath = metaPathFor(parent, fid)
	if metaPath == "" {
		return Attr{}, "", newErr(Stale, "fid %d has no metadata entry", fid)
	}
	attr, err = readAttr(metaPath)
	if err != nil {
		return Attr{}, "", wrapErr(Internal, err, "read attributes for fid %d", fid)
	}
	return attr, metaPath, nil
}

// touchTimes bumps a FID's mtime and ctime, used after every mutation
// of a directory's contents.
func (e *Engine) touchTimes(fid uint64, dataPath string, now time.Time) error {
	attr, metaPath, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return err
	}
	attr.Mtime = now
	attr.Ctime = now
	return writeAttrDurable(attr, e.layout.StagePath(), metaPath, filepath.Dir(dataPath))
}

// GetAttr returns fid's attributes, with Size/Blocks adjusted to
// reflect any unstable writes still buffered in memory (spec §4.5).
func (e *Engine) GetAttr(fid uint64) (Attr, error) {
	dataPath, err := e.resolver.Resolve(fid)
	if err != nil {
		return Attr{}, err
	}
	attr, _, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return Attr{}, err
	}
	if attr.Type == TypeRegular {
		attr.Size = e.pending.LogicalSize(fid, attr.Size)
		recomputeBlocks(&attr)
	}
	return attr, nil
}

// SetAttr applies a client-supplied attribute change, including a
// truncation/extension when Size is supplied (spec §6's setattr,
// resolved in SPEC_FULL.md §5).
func (e *Engine) SetAttr(fid uint64, sattr Sattr) (Attr, error) {
	release := e.locks.Acquire(fid)
	defer release()

	dataPath, err := e.resolver.Resolve(fid)
	if err != nil {
		return Attr{}, err
	}
	attr, metaPath, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return Attr{}, err
	}

	now := time.Now()
	if sattr.Size != nil && attr.Type == TypeRegular {
		if err := e.truncateData(fid, dataPath, *sattr.Size); err != nil {
			return Attr{}, err
		}
	}

	applySattr(&attr, sattr, now)
	recomputeBlocks(&attr)
	if err := writeAttrDurable(attr, e.layout.StagePath(), metaPath, filepath.Dir(dataPath)); err != nil {
		return Attr{}, wrapErr(Internal, err, "write attributes for fid %d", fid)
	}

	if attr.Type == TypeRegular {
		attr.Size = e.pending.LogicalSize(fid, attr.Size)
		recomputeBlocks(&attr)
	}
	return attr, nil
}

// truncateData resizes a regular file's data entry via copy-on-write
// and clips any pending unstable regions past the new size, so a
// subsequent commit cannot resurrect bytes setattr just discarded.
func (e *Engine) truncateData(fid uint64, dataPath string, newSize uint64) error {
	parent := filepath.Dir(dataPath)
	stage := e.layout.StagePath()
	if err := copyFile(dataPath, stage); err != nil {
		return wrapErr(Internal, err, "stage truncate of fid %d", fid)
	}

	f, err := os.OpenFile(stage, os.O_WRONLY, 0o600)
	if err != nil {
		os.Remove(stage)
		return wrapErr(Internal, err, "open truncate staging file for fid %d", fid)
	}
	if err := f.Truncate(int64(newSize)); err != nil {
		f.Close()
		os.Remove(stage)
		return wrapErr(Internal, err, "truncate fid %d", fid)
	}
	if err := syncFile(f); err != nil {
		f.Close()
		os.Remove(stage)
		return wrapErr(Internal, err, "sync truncate of fid %d", fid)
	}
	if err := f.Close(); err != nil {
		os.Remove(stage)
		return wrapErr(Internal, err, "close truncate staging file for fid %d", fid)
	}

	if err := os.Rename(stage, dataPath); err != nil {
		os.Remove(stage)
		return wrapErr(Internal, err, "rename truncated fid %d into place", fid)
	}
	if err := syncPath(parent); err != nil {
		return wrapErr(Internal, err, "sync parent after truncating fid %d", fid)
	}

	e.pending.TruncateTo(fid, newSize)
	return nil
}

// Lookup resolves name inside dirFid to a FID (spec §6's lookup).
func (e *Engine) Lookup(dirFid uint64, name string) (uint64, error) {
	if !ValidName(name) {
		return 0, newErr(Internal, "invalid name %q", name)
	}
	dirPath, err := e.resolveDir(dirFid)
	if err != nil {
		return 0, err
	}
	fid, ok, err := fsFindByName(dirPath, name)
	if err != nil {
		return 0, wrapErr(Internal, err, "lookup %q in fid %d", name, dirFid)
	}
	if !ok {
		return 0, newErr(NoEnt, "%q not found", name)
	}
	return fid, nil
}

// Readdir lists dirFid's children (spec §6's readdir).
func (e *Engine) Readdir(dirFid uint64) ([]DirEntry, error) {
	dirPath, err := e.resolveDir(dirFid)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, wrapErr(Internal, err, "read directory for fid %d", dirFid)
	}

	dataFIDs := make(map[uint64]bool)
	for _, ent := range entries {
		parsed, ok := Parse(ent.Name())
		if ok && parsed.Kind == KindData {
			dataFIDs[parsed.FID] = true
		}
	}

	var out []DirEntry
	for _, ent := range entries {
		parsed, ok := Parse(ent.Name())
		if !ok || parsed.Kind != KindMeta || !dataFIDs[parsed.FID] {
			continue
		}
		out = append(out, DirEntry{Name: parsed.Name, FID: parsed.FID})
	}
	return out, nil
}

// countMetaEntries counts dirPath's existing children: entries with a
// metadata sibling (spec §4.4). Junk data entries with no metadata
// counterpart do not count as children.
func countMetaEntries(dirPath string) (int, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, ent := range entries {
		if parsed, ok := Parse(ent.Name()); ok && parsed.Kind == KindMeta {
			count++
		}
	}
	return count, nil
}

// removeDirJunk strips every entry from dirPath. It is only safe to
// call once countMetaEntries has confirmed dirPath has no existing
// children, i.e. every remaining entry is junk.
func removeDirJunk(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if err := os.RemoveAll(filepath.Join(dirPath, ent.Name())); err != nil {
			return err
		}
	}
	return nil
}

// create is the shared implementation of Create and Mkdir: allocate a
// FID, write its data entry, then its metadata entry, renaming the
// data entry into place first (a lone data entry is inert junk; a lone
// metadata entry would dangle).
func (e *Engine) create(dirFid uint64, name string, ftype FileType, sattr Sattr) (uint64, Attr, error) {
	if !ValidName(name) {
		return 0, Attr{}, newErr(Internal, "invalid name %q", name)
	}

	dirPath, err := e.resolveDir(dirFid)
	if err != nil {
		return 0, Attr{}, err
	}

	release := e.locks.Acquire(dirFid)
	defer release()

	if !e.names.TryLock(dirPath, name) {
		return 0, Attr{}, newErr(Internal, "concurrent create of %q in fid %d", name, dirFid)
	}
	defer e.names.Unlock(dirPath, name)

	if _, ok, err := fsFindByName(dirPath, name); err != nil {
		return 0, Attr{}, wrapErr(Internal, err, "check existing %q", name)
	} else if ok {
		return 0, Attr{}, newErr(Exist, "%q already exists", name)
	}

	fid, err := e.alloc.Next()
	if err != nil {
		return 0, Attr{}, wrapErr(Internal, err, "allocate fid for %q", name)
	}

	now := time.Now()
	attr := newAttr(fid, ftype, sattr, now)
	finalData := filepath.Join(dirPath, EncodeData(fid))

	switch ftype {
	case TypeDirectory:
		stage := e.layout.StagePath()
		if err := os.Mkdir(stage, 0o755); err != nil {
			return 0, Attr{}, wrapErr(Internal, err, "stage directory %q", name)
		}
		if err := os.Rename(stage, finalData); err != nil {
			os.RemoveAll(stage)
			return 0, Attr{}, wrapErr(Internal, err, "rename directory %q into place", name)
		}
	default:
		stage := e.layout.StagePath()
		f, err := os.OpenFile(stage, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return 0, Attr{}, wrapErr(Internal, err, "stage file %q", name)
		}
		if sattr.Size != nil {
			if err := f.Truncate(int64(*sattr.Size)); err != nil {
				f.Close()
				os.Remove(stage)
				return 0, Attr{}, wrapErr(Internal, err, "preallocate %q", name)
			}
		}
		if err := syncFile(f); err != nil {
			f.Close()
			os.Remove(stage)
			return 0, Attr{}, wrapErr(Internal, err, "sync staged file %q", name)
		}
		f.Close()
		if err := os.Rename(stage, finalData); err != nil {
			os.Remove(stage)
			return 0, Attr{}, wrapErr(Internal, err, "rename file %q into place", name)
		}
	}
	if err := syncPath(dirPath); err != nil {
		return 0, Attr{}, wrapErr(Internal, err, "sync directory after creating %q", name)
	}

	finalMeta := filepath.Join(dirPath, EncodeMeta(fid, name))
	if err := writeAttrDurable(attr, e.layout.StagePath(), finalMeta, dirPath); err != nil {
		return 0, Attr{}, wrapErr(Internal, err, "write metadata for %q", name)
	}

	e.resolver.Insert(fid, finalData)

	if err := e.touchTimes(dirFid, dirPath, now); err != nil {
		return 0, Attr{}, err
	}

	return fid, attr, nil
}

// Create makes a new regular file (spec §6's create).
func (e *Engine) Create(dirFid uint64, name string, sattr Sattr) (uint64, Attr, error) {
	return e.create(dirFid, name, TypeRegular, sattr)
}

// Mkdir makes a new directory (spec §6's mkdir).
func (e *Engine) Mkdir(dirFid uint64, name string, sattr Sattr) (uint64, Attr, error) {
	return e.create(dirFid, name, TypeDirectory, sattr)
}

// remove is shared by Remove and Rmdir; wantDir gates the NOTDIR/ISDIR
// cross-check spec §4.4 requires.
func (e *Engine) remove(dirFid uint64, name string, wantDir bool) error {
	if !ValidName(name) {
		return newErr(Internal, "invalid name %q", name)
	}

	dirPath, err := e.resolveDir(dirFid)
	if err != nil {
		return err
	}

	release := e.locks.Acquire(dirFid)
	defer release()

	if !e.names.TryLock(dirPath, name) {
		return newErr(Internal, "concurrent modification of %q in fid %d", name, dirFid)
	}
	defer e.names.Unlock(dirPath, name)

	fid, ok, err := fsFindByName(dirPath, name)
	if err != nil {
		return wrapErr(Internal, err, "lookup %q", name)
	}
	if !ok {
		return newErr(NoEnt, "%q not found", name)
	}

	dataPath := filepath.Join(dirPath, EncodeData(fid))
	attr, metaPath, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return err
	}

	isDir := attr.Type == TypeDirectory
	if wantDir && !isDir {
		return newErr(NotDir, "%q is not a directory", name)
	}
	if !wantDir && isDir {
		return newErr(IsDir, "%q is a directory", name)
	}

	if isDir {
		count, err := countMetaEntries(dataPath)
		if err != nil {
			return wrapErr(Internal, err, "read directory %q before removal", name)
		}
		if count > 0 {
			return newErr(NotEmpty, "%q is not empty", name)
		}
	}

	// Metadata entry is unlinked first: once it is gone the pairing
	// invariant already says the object does not exist, even though
	// the data entry is still physically present until the next line.
	if err := os.Remove(metaPath); err != nil {
		return wrapErr(Internal, err, "remove metadata entry for %q", name)
	}
	if err := syncPath(dirPath); err != nil {
		return wrapErr(Internal, err, "sync directory after unlinking metadata for %q", name)
	}

	if err := os.Remove(dataPath); err != nil {
		// A directory with no existing (metadata-paired) children can
		// still hold junk data entries left behind by a crashed create;
		// those make the host directory non-empty even though NOTEMPTY
		// was already correctly ruled out above. Strip them and retry
		// once before surfacing the error.
		if isDir && removeDirJunk(dataPath) == nil {
			err = os.Remove(dataPath)
		}
		if err != nil {
			return wrapErr(Internal, err, "remove data entry for %q", name)
		}
	}
	if err := syncPath(dirPath); err != nil {
		return wrapErr(Internal, err, "sync directory after removing %q", name)
	}

	e.resolver.Forget(fid)
	e.pending.Drain(fid)

	return e.touchTimes(dirFid, dirPath, time.Now())
}

// Remove deletes a non-directory entry (spec §6's remove).
func (e *Engine) Remove(dirFid uint64, name string) error {
	return e.remove(dirFid, name, false)
}

// Rmdir deletes an empty directory (spec §6's rmdir).
func (e *Engine) Rmdir(dirFid uint64, name string) error {
	return e.remove(dirFid, name, true)
}

// Rename moves/renames an entry, possibly across directories,
// replacing an existing destination of the same kind if one exists
// (spec §6's rename, §4.4's single-linearization-point invariant).
func (e *Engine) Rename(srcDirFID uint64, srcName string, dstDirFID uint64, dstName string) error {
	if !ValidName(srcName) || !ValidName(dstName) {
		return newErr(Internal, "invalid name in rename")
	}

	srcDirPath, err := e.resolveDir(srcDirFID)
	if err != nil {
		return err
	}
	dstDirPath, err := e.resolveDir(dstDirFID)
	if err != nil {
		return err
	}

	release := e.locks.Acquire(srcDirFID, dstDirFID)
	defer release()

	if !e.names.TryLock(srcDirPath, srcName) {
		return newErr(Internal, "concurrent modification of %q", srcName)
	}
	defer e.names.Unlock(srcDirPath, srcName)
	if dstDirPath != srcDirPath || dstName != srcName {
		if !e.names.TryLock(dstDirPath, dstName) {
			return newErr(Internal, "concurrent modification of %q", dstName)
		}
		defer e.names.Unlock(dstDirPath, dstName)
	}

	srcFID, ok, err := fsFindByName(srcDirPath, srcName)
	if err != nil {
		return wrapErr(Internal, err, "lookup %q", srcName)
	}
	if !ok {
		return newErr(NoEnt, "%q not found", srcName)
	}
	if srcDirFID == dstDirFID && srcName == dstName {
		return nil
	}

	srcDataPath := filepath.Join(srcDirPath, EncodeData(srcFID))
	srcAttr, srcMetaPath, err := e.loadAttr(srcFID, srcDataPath)
	if err != nil {
		return err
	}

	dstFID, dstExists, err := fsFindByName(dstDirPath, dstName)
	if err != nil {
		return wrapErr(Internal, err, "check destination %q", dstName)
	}
	if dstExists {
		dstDataPath := filepath.Join(dstDirPath, EncodeData(dstFID))
		dstAttr, dstMetaPath, err := e.loadAttr(dstFID, dstDataPath)
		if err != nil {
			return err
		}
		if dstAttr.Type == TypeDirectory && srcAttr.Type != TypeDirectory {
			return newErr(IsDir, "%q is a directory", dstName)
		}
		if dstAttr.Type != TypeDirectory && srcAttr.Type == TypeDirectory {
			return newErr(NotDir, "%q is not a directory", dstName)
		}
		if dstAttr.Type == TypeDirectory {
			count, err := countMetaEntries(dstDataPath)
			if err != nil {
				return wrapErr(Internal, err, "read destination directory %q", dstName)
			}
			if count > 0 {
				return newErr(NotEmpty, "%q is not empty", dstName)
			}
		}

		if err := os.Remove(dstMetaPath); err != nil {
			return wrapErr(Internal, err, "remove clobbered metadata for %q", dstName)
		}
		if err := syncPath(dstDirPath); err != nil {
			return wrapErr(Internal, err, "sync destination directory")
		}
		if err := os.Remove(dstDataPath); err != nil {
			if dstAttr.Type == TypeDirectory && removeDirJunk(dstDataPath) == nil {
				err = os.Remove(dstDataPath)
			}
			if err != nil {
				return wrapErr(Internal, err, "remove clobbered data entry for %q", dstName)
			}
		}
		if err := syncPath(dstDirPath); err != nil {
			return wrapErr(Internal, err, "sync destination directory")
		}
		e.resolver.Forget(dstFID)
		e.pending.Drain(dstFID)
	}

	newDataPath := filepath.Join(dstDirPath, EncodeData(srcFID))
	newMetaPath := filepath.Join(dstDirPath, EncodeMeta(srcFID, dstName))

	if srcDirPath == dstDirPath {
		// Within one directory the data entry stays put, so a single
		// host-level rename of the metadata entry onto its new name is the
		// linearization point: srcName stops resolving at the same instant
		// dstName starts.
		if err := os.Rename(srcMetaPath, newMetaPath); err != nil {
			return wrapErr(Internal, err, "rename metadata entry for %q", srcName)
		}
		if err := syncPath(dstDirPath); err != nil {
			return wrapErr(Internal, err, "sync directory after renaming %q", srcName)
		}
		e.resolver.Insert(srcFID, newDataPath)
		return e.touchTimes(dstDirFID, dstDirPath, time.Now())
	}

	// Across directories, stage the destination metadata entry first, carrying srcAttr
	// unchanged. Until the data entry joins it, this is a dangling
	// metadata entry with no data sibling: fsFindByName requires the
	// pairing, so dstName still resolves to nothing and srcName remains
	// the only name the object is known by.
	if err := writeAttrDurable(srcAttr, e.layout.StagePath(), newMetaPath, dstDirPath); err != nil {
		return wrapErr(Internal, err, "stage destination metadata for %q", dstName)
	}

	// The data-entry rename is the single atomic linearization point
	// (spec §4.4): the instant it lands, dstDir has a complete data+meta
	// pair and srcDir's leftover metadata entry has no data sibling, so
	// at every point in time exactly one of srcName/dstName resolves,
	// never neither.
	if err := os.Rename(srcDataPath, newDataPath); err != nil {
		os.Remove(newMetaPath)
		return wrapErr(Internal, err, "move data entry for %q", srcName)
	}
	if srcDirPath != dstDirPath {
		if err := syncPath(srcDirPath); err != nil {
			return wrapErr(Internal, err, "sync source directory after move")
		}
	}
	if err := syncPath(dstDirPath); err != nil {
		return wrapErr(Internal, err, "sync destination directory after move")
	}

	// The source metadata entry is now dangling and does not count as an
	// existing child anywhere; unlink it as cleanup, not as part of the
	// linearization.
	if err := os.Remove(srcMetaPath); err != nil {
		return wrapErr(Internal, err, "remove source metadata entry for %q", srcName)
	}
	if err := syncPath(srcDirPath); err != nil {
		return wrapErr(Internal, err, "sync source directory after removing metadata for %q", srcName)
	}

	e.resolver.Insert(srcFID, newDataPath)

	now := time.Now()
	if err := e.touchTimes(dstDirFID, dstDirPath, now); err != nil {
		return err
	}
	if srcDirFID != dstDirFID {
		if err := e.touchTimes(srcDirFID, srcDirPath, now); err != nil {
			return err
		}
	}
	return nil
}
