package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nerrad567/optracker/internal/firmware"
)

func record(version, date string) firmware.Record {
	return firmware.Record{
		Device:  "OnePlus 9",
		Region:  "Global",
		Branch:  firmware.BranchStable,
		Version: version,
		Date:    date,
		MD5:     "md5-" + version,
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := New(t.TempDir())
	key := "eu/Stable/OnePlus 9"

	if err := s.Put(key, record("11.2.1.1", "01-01-2023")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var got firmware.Record
	if err := s.Get(key, &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != record("11.2.1.1", "01-01-2023") {
		t.Errorf("Get() = %+v", got)
	}

	var old firmware.Record
	if err := s.GetBackup(key, &old); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBackup() after first write error = %v, want ErrNotFound", err)
	}
	if !s.Exists(key) {
		t.Error("Exists() = false after Put")
	}
}

func TestStore_PutKeepsOneBackup(t *testing.T) {
	s := New(t.TempDir())
	key := "eu/Stable/OnePlus 9"

	for _, v := range []string{"1", "2", "3"} {
		if err := s.Put(key, record(v, "01-01-2023")); err != nil {
			t.Fatalf("Put(%s) error = %v", v, err)
		}
	}

	var live, old firmware.Record
	if err := s.Get(key, &live); err != nil {
		t.Fatal(err)
	}
	if err := s.GetBackup(key, &old); err != nil {
		t.Fatal(err)
	}
	if live.Version != "3" || old.Version != "2" {
		t.Errorf("live=%q backup=%q, want 3 and 2", live.Version, old.Version)
	}

	entries, err := os.ReadDir(filepath.Join(s.Root(), "eu", "Stable"))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"OnePlus 9.yml", "OnePlus 9.yml.bak"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("files = %v, want %v (no temp files left)", names, want)
	}
}

func TestStore_FirstWriteClearsStaleBackup(t *testing.T) {
	s := New(t.TempDir())
	key := "eu/eu"
	file, err := s.Path(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file+".bak", []byte("Stale: \"1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Put(key, firmware.DeviceList{"A": "1"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var old firmware.DeviceList
	if err := s.GetBackup(key, &old); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBackup() error = %v, want ErrNotFound", err)
	}
}

func TestStore_BackupFailureAbortsWrite(t *testing.T) {
	s := New(t.TempDir())
	key := "eu/Stable/OnePlus 9"

	if err := s.Put(key, record("1", "01-01-2023")); err != nil {
		t.Fatal(err)
	}

	// A non-empty directory in the backup slot makes the rename fail.
	file, _ := s.Path(key)
	if err := os.MkdirAll(filepath.Join(file+".bak", "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := s.Put(key, record("2", "02-01-2023"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("Put() error = %v, want ErrStorage", err)
	}

	var live firmware.Record
	if err := s.Get(key, &live); err != nil {
		t.Fatal(err)
	}
	if live.Version != "1" {
		t.Errorf("live version = %q, want untouched 1", live.Version)
	}
}

func TestStore_EmptyFilesReadAsNotFound(t *testing.T) {
	s := New(t.TempDir())
	key := "in/in"
	file, _ := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var list firmware.DeviceList
	if err := s.Get(key, &list); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty file error = %v, want ErrNotFound", err)
	}

	// The empty live file becomes an empty backup, which still means "nothing before".
	if err := s.Put(key, firmware.DeviceList{"A": "1"}); err != nil {
		t.Fatal(err)
	}
	diff, err := s.DiffNewKeys(key, firmware.DeviceList{"A": "1"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(diff, firmware.DeviceList{"A": "1"}) {
		t.Errorf("DiffNewKeys() = %v, want all entries", diff)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	s := New(t.TempDir())
	key := "eu/eu"
	file, _ := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("A: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	var list firmware.DeviceList
	if err := s.Get(key, &list); !errors.Is(err, ErrStorage) {
		t.Errorf("Get() error = %v, want ErrStorage", err)
	}
}

func TestStore_DiffNewKeys(t *testing.T) {
	tests := []struct {
		name     string
		previous firmware.DeviceList
		current  firmware.DeviceList
		want     firmware.DeviceList
	}{
		{
			name:     "one device added",
			previous: firmware.DeviceList{"A": "1", "B": "2"},
			current:  firmware.DeviceList{"A": "1", "B": "2", "C": "3"},
			want:     firmware.DeviceList{"C": "3"},
		},
		{
			name:     "no backup means everything is new",
			previous: nil,
			current:  firmware.DeviceList{"A": "1", "B": "2"},
			want:     firmware.DeviceList{"A": "1", "B": "2"},
		},
		{
			name:     "changed code is not new",
			previous: firmware.DeviceList{"A": "1"},
			current:  firmware.DeviceList{"A": "9"},
			want:     firmware.DeviceList{},
		},
		{
			name:     "removed device ignored",
			previous: firmware.DeviceList{"A": "1", "B": "2"},
			current:  firmware.DeviceList{"A": "1"},
			want:     firmware.DeviceList{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(t.TempDir())
			key := "eu/eu"
			if tt.previous != nil {
				if err := s.Put(key, tt.previous); err != nil {
					t.Fatal(err)
				}
			}
			if err := s.Put(key, tt.current); err != nil {
				t.Fatal(err)
			}

			got, err := s.DiffNewKeys(key, tt.current)
			if err != nil {
				t.Fatalf("DiffNewKeys() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DiffNewKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_WriteView(t *testing.T) {
	s := New(t.TempDir())

	if err := s.WriteView("devices", "", []string{"A", "B"}); err != nil {
		t.Fatalf("WriteView() error = %v", err)
	}
	if err := s.WriteView("devices", "", []string{"A", "B", "C"}); err != nil {
		t.Fatalf("WriteView() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "devices.yml.bak")); !os.IsNotExist(err) {
		t.Error("WriteView() should not keep a backup")
	}

	if err := s.WriteView("eu/eu", ".changes", firmware.DeviceList{"C": "3"}); err != nil {
		t.Fatalf("WriteView(.changes) error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.Root(), "eu", "eu.changes"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "C: \"3\"\n" {
		t.Errorf(".changes = %q", data)
	}
}

func TestStore_SubDirs(t *testing.T) {
	s := New(t.TempDir())
	for _, key := range []string{"in/in", "eu/eu", "eu/Stable/A", "eu/Beta/A"} {
		if err := s.Put(key, firmware.DeviceList{}); err != nil {
			t.Fatal(err)
		}
	}

	root, err := s.SubDirs("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(root, []string{"eu", "in"}) {
		t.Errorf("SubDirs(\"\") = %v", root)
	}

	branches, err := s.SubDirs("eu")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(branches, []string{"Beta", "Stable"}) {
		t.Errorf("SubDirs(eu) = %v", branches)
	}

	missing, err := s.SubDirs("us")
	if err != nil || missing != nil {
		t.Errorf("SubDirs(us) = %v, %v; want nil, nil", missing, err)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	s := New(t.TempDir())

	for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../b", ".", `a\b`} {
		if err := s.Put(key, "x"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}
