// Package ffmpeg wraps the external audio merge tool: binary discovery,
// concat-demuxer invocation with a hard timeout, and manifest list files.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the merge binary is missing from both the
	// configured override path and the system PATH.
	ErrNotFound = errors.New("ffmpeg not found")

	// ErrTimeout indicates the merge process exceeded its wall-clock bound
	// and was killed.
	ErrTimeout = errors.New("ffmpeg merge timed out")
)

// stderrLimit bounds how much diagnostic output is attached to errors.
const stderrLimit = 500

// ExitError reports a non-zero exit from the merge tool together with its
// diagnostic output, truncated for display.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, e.Stderr)
}

// Runner abstracts process execution so tests never need a real ffmpeg
type Runner interface {
	// Run executes the command and returns its captured stderr
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Locate resolves the ffmpeg binary path. A non-empty override is verified
// as-is; otherwise the system PATH is searched.
func Locate(override string) (string, error) {
	if override != "" {
		path, err := exec.LookPath(override)
		if err != nil {
			return "", fmt.Errorf("%w: configured path %q: %v", ErrNotFound, override, err)
		}
		return path, nil
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w in system PATH", ErrNotFound)
	}
	return path, nil
}

// Merger invokes the concat demuxer to join chunk artifacts losslessly
type Merger struct {
	path    string
	timeout time.Duration
	run     Runner
}

// Option configures a Merger
type Option func(*Merger)

// WithRunner replaces the process runner (used by tests)
func WithRunner(r Runner) Option {
	return func(m *Merger) { m.run = r }
}

// NewMerger creates a Merger for the given binary path and timeout
func NewMerger(path string, timeout time.Duration, opts ...Option) *Merger {
	m := &Merger{path: path, timeout: timeout, run: execRunner{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Concat concatenates the artifacts listed in listFile into outputPath
// without re-encoding, overwriting any existing output. The listed paths are
// machine-generated, so the demuxer runs with safe mode disabled. The
// process is killed once the configured timeout expires.
func (m *Merger) Concat(ctx context.Context, listFile, outputPath string) error {
	// The binary is verified at startup, but re-check before invoking in
	// case it disappeared since.
	if _, err := exec.LookPath(m.path); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrNotFound, m.path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y",
		outputPath,
	}

	stderr, err := m.run.Run(ctx, m.path, args...)
	if err == nil {
		return nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s: %s", ErrTimeout, m.timeout, TruncateStderr(stderr))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: TruncateStderr(stderr)}
	}
	return fmt.Errorf("failed to invoke ffmpeg: %w", err)
}

// ListEntry formats one manifest line for the concat demuxer. Paths are
// made absolute and single quotes are escaped the way the demuxer expects.
func ListEntry(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	escaped := strings.ReplaceAll(abs, "'", `'\''`)
	return "file '" + escaped + "'\n"
}

// TruncateStderr bounds diagnostic output for display
func TruncateStderr(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > stderrLimit {
		return s[:stderrLimit] + "..."
	}
	return s
}
