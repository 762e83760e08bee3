package dev

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sockline-dev/sockline/internal/errors"
)

// BuilderConfig configures the external build runner.
type BuilderConfig struct {
	// Command is the shell command that rebuilds the project. The
	// bundler itself is an external collaborator; sockline only runs it
	// and interprets the outcome.
	Command string

	// Dir is the working directory for the command.
	Dir string

	// AssetDir is scanned after a successful build to produce the asset
	// map carried on ok events.
	AssetDir string

	// Env are additional environment variables.
	Env []string
}

// BuildResult contains the outcome of one build.
type BuildResult struct {
	// Success indicates if the build succeeded.
	Success bool

	// Duration is how long the build took.
	Duration time.Duration

	// Output is the combined command output, one entry per line.
	Output []string

	// Assets maps asset names to their paths, for successful builds.
	Assets map[string]string

	// Error is set when the command could not run at all.
	Error error
}

// Builder runs the external build command. One build at a time; a second
// Run waits for the first to finish.
type Builder struct {
	config BuilderConfig
	mu     sync.Mutex
}

// NewBuilder creates a build runner.
func NewBuilder(config BuilderConfig) *Builder {
	return &Builder{config: config}
}

// Run executes the build command once and interprets its outcome. A
// non-zero exit is a failed build (the output lines are the errors); a
// zero exit with output is a build with warnings.
func (b *Builder) Run(ctx context.Context) BuildResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()

	cmd := exec.CommandContext(ctx, "sh", "-c", b.config.Command)
	cmd.Dir = b.config.Dir
	cmd.Env = append(os.Environ(), b.config.Env...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return BuildResult{
			Duration: time.Since(start),
			Error:    errors.New("E301").Wrap(err),
		}
	}

	err := cmd.Wait()
	result := BuildResult{
		Success:  err == nil,
		Duration: time.Since(start),
		Output:   splitLines(buf.String()),
	}

	if result.Success {
		result.Assets = b.scanAssets()
	}
	return result
}

// scanAssets maps asset names to project-relative paths.
func (b *Builder) scanAssets() map[string]string {
	if b.config.AssetDir == "" {
		return nil
	}

	assets := make(map[string]string)
	filepath.Walk(b.config.AssetDir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.config.AssetDir, p)
		if err != nil {
			return nil
		}
		assets[filepath.ToSlash(rel)] = filepath.ToSlash(rel)
		return nil
	})

	if len(assets) == 0 {
		return nil
	}
	return assets
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
