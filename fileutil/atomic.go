// Package fileutil provides the atomic file replacement used by every posn
// writer. A reader of the target path observes either the previous contents
// or the complete new contents, never a truncated file.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DefaultPerm is the permission used for application data files.
const DefaultPerm os.FileMode = 0o600

// tempPattern is the os.CreateTemp pattern for in-flight writes.
const tempPattern = ".posn-*.tmp"

// WriteFileAtomic writes data to a temporary file in the directory of path,
// flushes it to stable storage, renames it over path and syncs the parent
// directory. Missing parent directories are created with 0700. On any error the temporary file is
// removed and the previous contents of path are left untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		committed = true
		return fmt.Errorf("failed to rename file: %w", err)
	}
	committed = true

	// the rename is durable only once the directory entry is flushed
	if err := SyncDir(dir); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WriteFileAtomic",
			"dir":      dir,
		}).WithError(err).Debug("Directory sync not supported, skipping")
	}

	logrus.WithFields(logrus.Fields{
		"function": "WriteFileAtomic",
		"path":     path,
		"size":     len(data),
	}).Debug("File replaced atomically")

	return nil
}

// SyncDir flushes the directory entry table of dir to stable storage, making
// earlier renames and creations in it durable. Some platforms (Windows) cannot
// sync a directory; callers that only want best effort may ignore the error.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory %s: %w", dir, err)
	}
	return nil
}
