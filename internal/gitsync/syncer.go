package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/optracker/internal/infrastructure/config"
)

// commitTimeLayout formats the commit message timestamp (DD-MM-YYYY HH:MM:SS).
const commitTimeLayout = "02-01-2006 15:04:05"

// exitNothingToCommit is git commit's status when the index is clean.
const exitNothingToCommit = 1

// Logger defines the logging interface used by the Syncer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Syncer runs git against one working tree.
type Syncer struct {
	cfg    config.GitConfig
	binary string
	now    func() time.Time
	logger Logger
}

// New creates a Syncer for cfg. The git binary is resolved from PATH.
func New(cfg config.GitConfig) *Syncer {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	return &Syncer{
		cfg:    cfg,
		binary: "git",
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the syncer.
func (s *Syncer) SetLogger(logger Logger) {
	s.logger = logger
}

// CommitAndPush stages every *.yml file under dirs, commits, and pushes.
// dirs may be absolute or relative to the repository root and must lie
// inside it.
func (s *Syncer) CommitAndPush(ctx context.Context, dirs []string) error {
	specs, err := s.pathspecs(dirs)
	if err != nil {
		return err
	}

	args := append([]string{"add", "--"}, specs...)
	if _, err := s.git(ctx, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	msg := "sync: " + s.now().Format(commitTimeLayout)
	_, err = s.git(ctx,
		"-c", "user.name="+s.cfg.AuthorName,
		"-c", "user.email="+s.cfg.AuthorEmail,
		"commit", "-m", msg)
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() == exitNothingToCommit:
		s.logger.Info("nothing to commit")
		return nil
	case err != nil:
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	s.logger.Info("snapshot committed", "message", msg)

	remote, err := s.pushTarget(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	if _, err := s.git(ctx, "push", "-q", remote, "HEAD:"+s.cfg.Branch); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	s.logger.Info("snapshot pushed", "remote", s.cfg.Remote, "branch", s.cfg.Branch)
	return nil
}

// pathspecs turns dirs into recursive *.yml glob pathspecs relative to the
// repository root.
func (s *Syncer) pathspecs(dirs []string) ([]string, error) {
	root, err := filepath.Abs(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	specs := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		abs := dir
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, dir)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%w: %s", ErrOutsideRepo, dir)
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			specs = append(specs, ":(glob)**/*.yml")
			continue
		}
		specs = append(specs, ":(glob)"+rel+"/**/*.yml")
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no paths to stage", ErrCommitFailed)
	}
	return specs, nil
}

// pushTarget returns the remote argument for git push. A configured token is
// injected into https remotes; other remotes are returned unchanged.
func (s *Syncer) pushTarget(ctx context.Context) (string, error) {
	if s.cfg.Token == "" {
		return s.cfg.Remote, nil
	}

	remoteURL := s.cfg.Remote
	if !strings.Contains(remoteURL, "://") {
		out, err := s.git(ctx, "remote", "get-url", s.cfg.Remote)
		if err != nil {
			return "", err
		}
		remoteURL = strings.TrimSpace(out)
	}
	return injectToken(remoteURL, s.cfg.Token), nil
}

// injectToken sets token as the user info of an https URL.
func injectToken(rawURL, token string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" || token == "" {
		return rawURL
	}
	u.User = url.User(token)
	return u.String()
}

// git runs one git command in the repository and returns its stdout.
// Errors carry the redacted combined output.
func (s *Syncer) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec // Arguments are built from config, not user input
	cmd.Dir = s.cfg.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	op := subcommand(args)
	s.logger.Debug("running git", "command", op)
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return stdout.String(), &commandError{
			op:     op,
			detail: s.redact(detail),
			err:    err,
		}
	}
	return stdout.String(), nil
}

// subcommand returns the git verb in args, skipping "-c key=value" pairs.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}

// redact removes the token from text.
func (s *Syncer) redact(text string) string {
	if s.cfg.Token == "" {
		return text
	}
	return strings.ReplaceAll(text, s.cfg.Token, "***")
}

// commandError describes a failed git invocation without its arguments,
// which may hold credentials.
type commandError struct {
	op     string
	detail string
	err    error
}

func (e *commandError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("git %s: %v", e.op, e.err)
	}
	return fmt.Sprintf("git %s: %v: %s", e.op, e.err, e.detail)
}

func (e *commandError) Unwrap() error {
	return e.err
}
