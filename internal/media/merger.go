package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

const manifestName = "list.txt"

const (
	logFmtMerge       = "Merging %d audio files into %s"
	logFmtMergeFailed = "ffmpeg exited with %d: %s"
	logFmtMerged      = "Merged audio written to %s"
)

// ErrNoInputs is returned when Merge is called without any input file.
var ErrNoInputs = errors.New("no audio files to merge")

// CommandResult is the captured outcome of one process run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner runs external processes.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run executes one command and captures stdout, stderr, and the exit code.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		result.ExitCode = -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}

		return result, err
	}

	return result, nil
}

// Merger concatenates audio files with the ffmpeg concat demuxer.
type Merger struct {
	ffmpegPath string
	encoding   Encoding
	runner     CommandRunner
	log        *logger.Logger
}

// NewMerger creates a Merger that runs ffmpeg through runner. A nil runner
// means ExecRunner.
func NewMerger(ffmpegPath string, encoding Encoding, runner CommandRunner, log *logger.Logger) *Merger {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Merger{ffmpegPath: ffmpegPath, encoding: encoding, runner: runner, log: log}
}

// Merge writes a concat manifest listing inputs in order into workDir, runs
// ffmpeg once to produce output, and removes the manifest. It returns output.
func (m *Merger) Merge(ctx context.Context, inputs []string, workDir, output string) (string, error) {
	if len(inputs) == 0 {
		return "", ErrNoInputs
	}

	manifest, err := WriteManifest(inputs, workDir)
	if err != nil {
		return "", err
	}
	defer os.Remove(manifest)

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", manifest}
	args = append(args, m.encoding.Args()...)
	args = append(args, output)

	m.log.Info(logFmtMerge, len(inputs), output)

	result, err := m.runner.Run(ctx, m.ffmpegPath, args...)
	if err != nil {
		m.log.Error(logFmtMergeFailed, result.ExitCode, result.Stderr)

		return "", &core.MergeError{
			Command:  m.ffmpegPath,
			Args:     args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}

	m.log.Info(logFmtMerged, output)

	return output, nil
}

// WriteManifest writes the concat demuxer list for inputs into dir and
// returns its path. Paths are made absolute and single quotes escaped.
func WriteManifest(inputs []string, dir string) (string, error) {
	var builder strings.Builder

	for _, input := range inputs {
		absolute, err := filepath.Abs(input)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", input, err)
		}

		builder.WriteString("file '")
		builder.WriteString(strings.ReplaceAll(absolute, "'", `'\''`))
		builder.WriteString("'\n")
	}

	manifest := filepath.Join(dir, manifestName)

	err := os.WriteFile(manifest, []byte(builder.String()), 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to write merge manifest: %w", err)
	}

	return manifest, nil
}
