package gitsync

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/optracker/internal/infrastructure/config"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupRepo creates a working tree with a bare remote named origin.
func setupRepo(t *testing.T) (work, remote string) {
	t.Helper()
	requireGit(t)

	base := t.TempDir()
	remote = filepath.Join(base, "remote.git")
	work = filepath.Join(base, "work")

	runGit(t, base, "init", "-q", "--bare", remote)
	runGit(t, base, "init", "-q", work)
	runGit(t, work, "remote", "add", "origin", remote)
	return work, remote
}

func newTestSyncer(work string) *Syncer {
	s := New(config.GitConfig{
		Enabled:     true,
		Dir:         work,
		Remote:      "origin",
		Branch:      "master",
		AuthorName:  "CI",
		AuthorEmail: "CI@example.com",
	})
	s.now = func() time.Time { return time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC) }
	return s
}

func TestCommitAndPush(t *testing.T) {
	work, remote := setupRepo(t)
	writeFile(t, filepath.Join(work, "data", "devices.yml"), "- OnePlus 9\n")
	writeFile(t, filepath.Join(work, "data", "eu", "Stable", "OnePlus 9.yml"), "version: x\n")
	writeFile(t, filepath.Join(work, "data", "eu", "Stable", "OnePlus 9.yml.bak"), "version: old\n")
	writeFile(t, filepath.Join(work, "data", "eu", "eu.changes"), "[]\n")

	s := newTestSyncer(work)
	if err := s.CommitAndPush(context.Background(), []string{filepath.Join(work, "data")}); err != nil {
		t.Fatalf("CommitAndPush() error = %v", err)
	}

	msg := runGit(t, remote, "log", "-1", "--format=%s%n%an <%ae>", "master")
	if !strings.Contains(msg, "sync: 02-01-2023 15:04:05") || !strings.Contains(msg, "CI <CI@example.com>") {
		t.Errorf("remote head = %q", msg)
	}

	files := runGit(t, remote, "ls-tree", "-r", "--name-only", "master")
	if !strings.Contains(files, "data/devices.yml") || !strings.Contains(files, "data/eu/Stable/OnePlus 9.yml") {
		t.Errorf("committed files = %q", files)
	}
	if strings.Contains(files, ".bak") || strings.Contains(files, ".changes") {
		t.Errorf("non-yml files committed: %q", files)
	}
}

func TestCommitAndPush_NothingToCommit(t *testing.T) {
	work, _ := setupRepo(t)
	writeFile(t, filepath.Join(work, "data", "devices.yml"), "[]\n")

	s := newTestSyncer(work)
	ctx := context.Background()
	if err := s.CommitAndPush(ctx, []string{"data"}); err != nil {
		t.Fatalf("first CommitAndPush() error = %v", err)
	}
	if err := s.CommitAndPush(ctx, []string{"data"}); err != nil {
		t.Errorf("second CommitAndPush() error = %v, want nil for clean tree", err)
	}
}

func TestCommitAndPush_PushFailure(t *testing.T) {
	work, _ := setupRepo(t)
	runGit(t, work, "remote", "set-url", "origin", filepath.Join(t.TempDir(), "missing.git"))
	writeFile(t, filepath.Join(work, "data", "devices.yml"), "[]\n")

	err := newTestSyncer(work).CommitAndPush(context.Background(), []string{"data"})
	if !errors.Is(err, ErrPushFailed) {
		t.Errorf("CommitAndPush() error = %v, want ErrPushFailed", err)
	}
}

func TestCommitAndPush_NoMatchingFiles(t *testing.T) {
	work, _ := setupRepo(t)
	if err := os.MkdirAll(filepath.Join(work, "data"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := newTestSyncer(work).CommitAndPush(context.Background(), []string{"data"})
	if !errors.Is(err, ErrCommitFailed) {
		t.Errorf("CommitAndPush() error = %v, want ErrCommitFailed", err)
	}
}

func TestPathspecs(t *testing.T) {
	root := t.TempDir()
	s := New(config.GitConfig{Dir: root})

	tests := []struct {
		name    string
		dirs    []string
		want    []string
		wantErr error
	}{
		{name: "relative", dirs: []string{"data"}, want: []string{":(glob)data/**/*.yml"}},
		{name: "absolute", dirs: []string{filepath.Join(root, "data", "eu")}, want: []string{":(glob)data/eu/**/*.yml"}},
		{name: "root", dirs: []string{root}, want: []string{":(glob)**/*.yml"}},
		{name: "outside", dirs: []string{filepath.Join(root, "..", "elsewhere")}, wantErr: ErrOutsideRepo},
		{name: "empty", dirs: nil, wantErr: ErrCommitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pathspecs(tt.dirs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("pathspecs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("pathspecs() error = %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("pathspecs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInjectToken(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		token string
		want  string
	}{
		{name: "https", url: "https://github.com/androidtrackers/oneplus-updates-tracker.git", token: "tok", want: "https://tok@github.com/androidtrackers/oneplus-updates-tracker.git"},
		{name: "replaces existing user", url: "https://bot@github.com/x/y.git", token: "tok", want: "https://tok@github.com/x/y.git"},
		{name: "ssh untouched", url: "git@github.com:x/y.git", token: "tok", want: "git@github.com:x/y.git"},
		{name: "file untouched", url: "/srv/git/y.git", token: "tok", want: "/srv/git/y.git"},
		{name: "no token", url: "https://github.com/x/y.git", token: "", want: "https://github.com/x/y.git"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := injectToken(tt.url, tt.token); got != tt.want {
				t.Errorf("injectToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPushTarget_ResolvesNamedRemote(t *testing.T) {
	work, _ := setupRepo(t)
	runGit(t, work, "remote", "set-url", "origin", "https://github.com/x/y.git")

	s := newTestSyncer(work)
	s.cfg.Token = "secret"

	got, err := s.pushTarget(context.Background())
	if err != nil {
		t.Fatalf("pushTarget() error = %v", err)
	}
	if got != "https://secret@github.com/x/y.git" {
		t.Errorf("pushTarget() = %q", got)
	}
}

func TestCommandError_RedactsToken(t *testing.T) {
	s := New(config.GitConfig{Token: "s3cr3t"})
	err := &commandError{op: "push", detail: s.redact("fatal: unable to access 'https://s3cr3t@github.com/x/y.git/'"), err: errors.New("exit status 128")}

	if strings.Contains(err.Error(), "s3cr3t") {
		t.Errorf("error leaks token: %v", err)
	}
	if !strings.Contains(err.Error(), "git push") {
		t.Errorf("error = %v, want it to name the command", err)
	}
}

func TestSubcommand(t *testing.T) {
	if got := subcommand([]string{"-c", "user.name=CI", "-c", "user.email=x", "commit", "-m", "m"}); got != "commit" {
		t.Errorf("subcommand() = %q, want commit", got)
	}
	if got := subcommand([]string{"push", "-q"}); got != "push" {
		t.Errorf("subcommand() = %q, want push", got)
	}
}
