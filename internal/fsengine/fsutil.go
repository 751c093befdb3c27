package fsengine

import (
	"fmt"
	"io"
	"os"
)

// syncFile fsyncs an already-open file. It is the primitive every
// durability point in this package bottoms out on.
func syncFile(f *os.File) error {
	return f.Sync()
}

// syncPath opens path (which must exist) and fsyncs it. Used to sync a
// directory after a create/rename/unlink into it, mirroring the
// original implementation's dir.sync_all() calls after every mutation
// (see SPEC_FULL.md §4).
func syncPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// writeFileDurable writes data to a fresh file at stagePath, fsyncs it,
// then atomically renames it into place at finalPath and syncs the
// parent directory. This is the same copy-write-fsync-rename sequence
// the COW write path uses, specialized for whole-file replacement (used
// by the FID counter and, via writeAttrDurable, by every metadata-entry
// write).
func writeFileDurable(stagePath, finalPath, parentDir string, data []byte) error {
	f, err := os.OpenFile(stagePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(stagePath)
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := syncFile(f); err != nil {
		f.Close()
		os.Remove(stagePath)
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(stagePath)
		return fmt.Errorf("close staging file: %w", err)
	}

	if err := os.Rename(stagePath, finalPath); err != nil {
		os.Remove(stagePath)
		return fmt.Errorf("rename staging file into place: %w", err)
	}

	return syncPath(parentDir)
}

// copyFile copies src to a fresh file at dst (used to build the
// copy-on-write staging copy for synchronous writes and commit).
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source for copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create copy destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return fmt.Errorf("copy file contents: %w", err)
	}

	return syncFile(out)
}
