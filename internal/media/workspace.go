package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	dirPerm        = 0o755
	timestampPlain = "2006-01-02T15:04:05.000Z"
)

// Workspace owns the output root served to clients and the scratch root for
// per-batch intermediates.
type Workspace struct {
	outputRoot string
	tempRoot   string
	now        func() time.Time
}

// NewWorkspace creates a Workspace over the two roots.
func NewWorkspace(outputRoot, tempRoot string) *Workspace {
	return &Workspace{outputRoot: outputRoot, tempRoot: tempRoot, now: time.Now}
}

// NewWorkspaceWithClock is NewWorkspace with an injectable clock.
func NewWorkspaceWithClock(outputRoot, tempRoot string, now func() time.Time) *Workspace {
	return &Workspace{outputRoot: outputRoot, tempRoot: tempRoot, now: now}
}

// OutputRoot returns the directory served under /output.
func (w *Workspace) OutputRoot() string {
	return w.outputRoot
}

// EnsureRoots creates both roots. Existing directories are not an error.
func (w *Workspace) EnsureRoots() error {
	for _, dir := range []string{w.outputRoot, w.tempRoot} {
		err := os.MkdirAll(dir, dirPerm)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return nil
}

// Timestamp returns the current UTC time in ISO-8601 with ':' and '.'
// replaced by '-', usable as a directory name.
func (w *Workspace) Timestamp() string {
	stamp := w.now().UTC().Format(timestampPlain)

	return strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}

// NewOutputDir creates output/<name>.
func (w *Workspace) NewOutputDir(name string) (string, error) {
	dir := filepath.Join(w.outputRoot, name)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	return dir, nil
}

// NewTempDir creates a fresh scratch directory for one batch.
func (w *Workspace) NewTempDir(name string) (string, error) {
	err := os.MkdirAll(w.tempRoot, dirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create temp root: %w", err)
	}

	dir, err := os.MkdirTemp(w.tempRoot, name+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	return dir, nil
}

// PublicPath converts a path under the output root into the client-facing
// relative form, e.g. "output/<ts>/audio.mp3".
func (w *Workspace) PublicPath(target string) string {
	rel, err := filepath.Rel(w.outputRoot, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(target)
	}

	return path.Join("output", filepath.ToSlash(rel))
}
