// Package atomicfile publishes files so that concurrent readers observe
// either the previous content or the complete new content, never a partial
// write. Every publish stages the data in a temp sibling in the target's
// directory and then renames or hard-links it into place.
//
// Temp siblings are named with [TempPrefix]. Directory listers must skip
// them with [IsTemp]; a crashed writer can leave one behind and
// [SweepTemps] removes such residue once it is old enough.
package atomicfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// TempPrefix marks staging files and tombstones. Names starting with it are
// never part of any store's logical content.
const TempPrefix = ".tmp-"

// WriteFile atomically replaces path with data.
// If any step fails the temp file is removed, path is untouched, and the
// returned error wraps errors.ErrWriteFailure.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	tmpPath, err := stage(path, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.NewWriteError("rename", path, err)
	}
	return nil
}

// CreateExclusive atomically publishes data at path only if path does not
// exist yet. It never overwrites. When path already exists the returned
// error satisfies errors.Is(err, fs.ErrExist) and is not a write failure.
//
// The file is published with a hard link, which the filesystem refuses when
// the target exists. On filesystems without hard links it falls back to
// claiming the name with O_EXCL and renaming the staged data over it; in
// that window a reader can observe an empty file.
func CreateExclusive(path string, data []byte, perm os.FileMode) error {
	tmpPath, err := stage(path, data, perm)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	linkErr := os.Link(tmpPath, path)
	if linkErr == nil {
		return nil
	}
	if errors.Is(linkErr, fs.ErrExist) {
		return existErr(path)
	}

	// Hard links unavailable: claim the name, then fill it.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return existErr(path)
		}
		return errors.NewWriteError("create", path, errors.Join(linkErr, err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return errors.NewWriteError("create", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		return errors.NewWriteError("rename", path, err)
	}
	return nil
}

// IsTemp reports whether a directory entry name is staging residue.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}

// IsPlainName reports whether name can be used as a single file name inside
// a store directory: non-empty, no path separators, not a dot entry, and not
// temp residue.
func IsPlainName(name string) bool {
	if name == "" || name == "." || name == ".." || IsTemp(name) {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}

// TempName returns a sibling path of target carrying TempPrefix and suffix.
// Callers use it for tombstones that must be invisible to listers.
func TempName(target, suffix string) string {
	return filepath.Join(filepath.Dir(target), TempPrefix+suffix)
}

// SweepTemps removes temp residue in dir whose modification time is older
// than olderThan. Errors on individual entries are ignored; a missing
// directory sweeps nothing. It returns the number of entries removed.
func SweepTemps(dir string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !IsTemp(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, entry.Name())) == nil {
			removed++
		}
	}
	return removed, nil
}

// stage writes data to a synced temp sibling of path and returns its name.
func stage(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return "", errors.NewWriteError("create temp", path, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return "", errors.NewWriteError("write", path, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return "", errors.NewWriteError("sync", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", errors.NewWriteError("close", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return "", errors.NewWriteError("chmod", path, err)
	}

	success = true
	return tmpPath, nil
}

func existErr(path string) error {
	return &fs.PathError{Op: "create", Path: path, Err: fs.ErrExist}
}
