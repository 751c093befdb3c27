package fsengine

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// Stability mirrors the three NFS write-commit levels spec §4.5/§6
// distinguishes.
type Stability int

const (
	Unstable Stability = iota
	DataSync
	FileSync
)

// Read returns up to length bytes starting at offset, with any
// buffered unstable writes for fid overlaid on top of the committed
// bytes (spec §4.5).
func (e *Engine) Read(fid uint64, offset uint64, length int) ([]byte, error) {
	dataPath, err := e.resolver.Resolve(fid)
	if err != nil {
		return nil, err
	}
	attr, _, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return nil, err
	}
	if attr.Type != TypeRegular {
		return nil, newErr(IsDir, "fid %d is not a regular file", fid)
	}

	committedSize := attr.Size
	logicalSize := e.pending.LogicalSize(fid, committedSize)
	if offset >= logicalSize {
		return nil, nil
	}
	if uint64(length) > logicalSize-offset {
		length = int(logicalSize - offset)
	}

	committed := make([]byte, length)
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, wrapErr(Internal, err, "open fid %d for read", fid)
	}
	defer f.Close()

	n, err := f.ReadAt(committed, int64(offset))
	if err != nil && err != io.EOF {
		return nil, wrapErr(Internal, err, "read fid %d", fid)
	}
	for i := n; i < length; i++ {
		committed[i] = 0
	}

	return e.pending.Overlay(fid, offset, committed, length), nil
}

// Write stores data at offset with the requested stability level and
// returns the size the file logically has afterward plus the current
// server epoch (spec §4.5/§4.6/§6).
func (e *Engine) Write(fid uint64, offset uint64, data []byte, stability Stability) (size uint64, epoch uint64, err error) {
	dataPath, err := e.resolver.Resolve(fid)
	if err != nil {
		return 0, 0, err
	}
	attr, metaPath, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return 0, 0, err
	}
	if attr.Type != TypeRegular {
		return 0, 0, newErr(IsDir, "fid %d is not a regular file", fid)
	}

	if stability == Unstable {
		if err := e.pending.Append(fid, offset, data); err != nil {
			return 0, 0, err
		}
		return e.pending.LogicalSize(fid, attr.Size), e.epoch.Value(), nil
	}

	release := e.locks.Acquire(fid)
	defer release()

	// Re-read under the lock: another writer may have changed the
	// committed size since the unlocked load above.
	attr, metaPath, err = e.loadAttr(fid, dataPath)
	if err != nil {
		return 0, 0, err
	}

	newSize, err := e.cowWrite(fid, dataPath, offset, data, attr.Size)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	attr.Size = newSize
	attr.Mtime = now
	attr.Ctime = now
	recomputeBlocks(&attr)
	if err := writeAttrDurable(attr, e.layout.StagePath(), metaPath, filepath.Dir(dataPath)); err != nil {
		return 0, 0, wrapErr(Internal, err, "write attributes for fid %d", fid)
	}

	return newSize, e.epoch.Value(), nil
}

// cowWrite is the synchronous small-write path of spec §4.5: stage a
// copy of the current data entry, write data into the copy at offset, fsync
// it, then atomically rename it over the original. The file's name
// never changes, only its inode does, so any concurrently-open reader
// either sees the whole old version or the whole new one.
func (e *Engine) cowWrite(fid uint64, dataPath string, offset uint64, data []byte, committedSize uint64) (uint64, error) {
	stage := e.layout.StagePath()
	if err := copyFile(dataPath, stage); err != nil {
		return 0, wrapErr(Internal, err, "stage write for fid %d", fid)
	}

	f, err := os.OpenFile(stage, os.O_WRONLY, 0o600)
	if err != nil {
		os.Remove(stage)
		return 0, wrapErr(Internal, err, "open staged write for fid %d", fid)
	}

	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		f.Close()
		os.Remove(stage)
		return 0, wrapErr(Internal, err, "patch staged write for fid %d", fid)
	}
	if err := syncFile(f); err != nil {
		f.Close()
		os.Remove(stage)
		return 0, wrapErr(Internal, err, "sync staged write for fid %d", fid)
	}
	if err := f.Close(); err != nil {
		os.Remove(stage)
		return 0, wrapErr(Internal, err, "close staged write for fid %d", fid)
	}

	if err := os.Rename(stage, dataPath); err != nil {
		os.Remove(stage)
		return 0, wrapErr(Internal, err, "rename staged write for fid %d into place", fid)
	}
	if err := syncPath(filepath.Dir(dataPath)); err != nil {
		return 0, wrapErr(Internal, err, "sync parent directory after write to fid %d", fid)
	}

	newSize := committedSize
	if end := offset + uint64(len(data)); end > newSize {
		newSize = end
	}
	return newSize, nil
}

// Commit drains fid's pending unstable writes, applies them to the
// data entry in receipt order via the same copy-on-write path as a
// stable write, and returns the new size and current epoch (spec
// §4.5/§4.6/§6). A FID with nothing pending is a no-op success.
func (e *Engine) Commit(fid uint64) (size uint64, epoch uint64, err error) {
	release := e.locks.Acquire(fid)
	defer release()

	dataPath, err := e.resolver.Resolve(fid)
	if err != nil {
		return 0, 0, err
	}
	attr, metaPath, err := e.loadAttr(fid, dataPath)
	if err != nil {
		return 0, 0, err
	}
	if attr.Type != TypeRegular {
		return 0, 0, newErr(IsDir, "fid %d is not a regular file", fid)
	}

	regions := e.pending.Drain(fid)
	if len(regions) == 0 {
		return attr.Size, e.epoch.Value(), nil
	}

	stage := e.layout.StagePath()
	if err := copyFile(dataPath, stage); err != nil {
		return 0, 0, wrapErr(Internal, err, "stage commit for fid %d", fid)
	}

	f, err := os.OpenFile(stage, os.O_WRONLY, 0o600)
	if err != nil {
		os.Remove(stage)
		return 0, 0, wrapErr(Internal, err, "open staged commit for fid %d", fid)
	}

	newSize := attr.Size
	for _, r := range regions {
		if _, err := f.WriteAt(r.data, int64(r.offset)); err != nil {
			f.Close()
			os.Remove(stage)
			return 0, 0, wrapErr(Internal, err, "apply pending region to fid %d", fid)
		}
		if end := r.end(); end > newSize {
			newSize = end
		}
	}
	if err := syncFile(f); err != nil {
		f.Close()
		os.Remove(stage)
		return 0, 0, wrapErr(Internal, err, "sync staged commit for fid %d", fid)
	}
	if err := f.Close(); err != nil {
		os.Remove(stage)
		return 0, 0, wrapErr(Internal, err, "close staged commit for fid %d", fid)
	}

	if err := os.Rename(stage, dataPath); err != nil {
		os.Remove(stage)
		return 0, 0, wrapErr(Internal, err, "rename staged commit for fid %d into place", fid)
	}
	if err := syncPath(filepath.Dir(dataPath)); err != nil {
		return 0, 0, wrapErr(Internal, err, "sync parent directory after commit of fid %d", fid)
	}

	now := time.Now()
	attr.Size = newSize
	attr.Mtime = now
	attr.Ctime = now
	recomputeBlocks(&attr)
	if err := writeAttrDurable(attr, e.layout.StagePath(), metaPath, filepath.Dir(dataPath)); err != nil {
		return 0, 0, wrapErr(Internal, err, "write attributes after commit of fid %d", fid)
	}

	return newSize, e.epoch.Value(), nil
}
