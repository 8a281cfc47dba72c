package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/optracker/internal/firmware"
)

const (
	// fileExt is appended to every key.
	fileExt = ".yml"

	// backupExt is appended to a live file name for its backup.
	backupExt = ".bak"

	dirPermissions  = 0o755
	filePermissions = 0o644
)

// Store is a directory of YAML snapshots with one backup generation per key.
type Store struct {
	root string
}

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{root: filepath.Clean(dir)}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the live file path for key.
func (s *Store) Path(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)+fileExt), nil
}

// Put encodes v and writes it to key.
//
// If a live value exists it is first copied to the backup. A failed copy
// aborts the write. The first write for a key removes any stale backup, so
// a fresh key always reads as "no previous value".
func (s *Store) Put(key string, v any) error {
	file, err := s.Path(key)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrStorage, key, err)
	}

	if err := os.MkdirAll(filepath.Dir(file), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %v", ErrStorage, key, err)
	}

	if err := backup(file); err != nil {
		return fmt.Errorf("%w: backing up %s: %v", ErrStorage, key, err)
	}

	if err := safeWrite(file, data, filePermissions); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, key, err)
	}
	return nil
}

// backup copies file to its backup slot, or clears a stale backup when
// file does not exist yet.
func backup(file string) error {
	live, err := os.ReadFile(file) //nolint:gosec // path is derived from a validated key
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.Remove(file + backupExt); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	case err != nil:
		return err
	}
	return safeWrite(file+backupExt, live, filePermissions)
}

// Get decodes the live value of key into v.
func (s *Store) Get(key string, v any) error {
	file, err := s.Path(key)
	if err != nil {
		return err
	}
	return readYAML(file, key, v)
}

// GetBackup decodes the previous value of key into v.
// ErrNotFound means there was no value before the last Put.
func (s *Store) GetBackup(key string, v any) error {
	file, err := s.Path(key)
	if err != nil {
		return err
	}
	return readYAML(file+backupExt, key, v)
}

// Exists reports whether key has a live value.
func (s *Store) Exists(key string) bool {
	file, err := s.Path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(file)
	return err == nil
}

// DiffNewKeys returns the entries of current whose names are absent from
// the backup of key. With no backup every entry is new. Changed codes for
// known names are not reported.
func (s *Store) DiffNewKeys(key string, current firmware.DeviceList) (firmware.DeviceList, error) {
	var old firmware.DeviceList
	err := s.GetBackup(key, &old)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	diff := make(firmware.DeviceList)
	for name, code := range current {
		if _, ok := old[name]; !ok {
			diff[name] = code
		}
	}
	return diff, nil
}

// WriteView writes a derived artifact to key atomically without keeping a
// backup. ext replaces the default extension when non-empty.
func (s *Store) WriteView(key, ext string, v any) error {
	file, err := s.Path(key)
	if err != nil {
		return err
	}
	if ext != "" {
		file = strings.TrimSuffix(file, fileExt) + ext
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrStorage, key, err)
	}
	if err := os.MkdirAll(filepath.Dir(file), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %v", ErrStorage, key, err)
	}
	if err := safeWrite(file, data, filePermissions); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, key, err)
	}
	return nil
}

// SubDirs returns the sorted names of directories directly under key.
// Use "" for the root. A missing directory yields no names.
func (s *Store) SubDirs(key string) ([]string, error) {
	dir := s.root
	if key != "" {
		clean, err := cleanKey(key)
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(s.root, filepath.FromSlash(clean))
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrStorage, dir, err)
	}

	// os.ReadDir sorts by name.
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func readYAML(file, key string, v any) error {
	data, err := os.ReadFile(file) //nolint:gosec // path is derived from a validated key
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrStorage, key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrNotFound, key)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrStorage, key, err)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}
