package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
)

// safeWrite writes data to path atomically: tempfile -> fsync -> rename.
// The tempfile lives in the target directory so the rename stays on one
// filesystem.
func safeWrite(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			os.Remove(tmp) //nolint:errcheck // Best effort cleanup
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err = f.Chmod(perm); err != nil {
		f.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp to target: %w", err)
	}
	return nil
}
