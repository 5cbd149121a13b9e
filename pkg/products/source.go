package products

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/isolinks/pkg/logger"
)

const (
	// DefaultUpdateCommand refreshes the cached products.xml when run without arguments.
	DefaultUpdateCommand = "download-windows-esd"
	// DefaultUpdateTimeout bounds one updater run.
	DefaultUpdateTimeout = 60 * time.Second
)

// ErrDocumentMissing means the products document does not exist after the updater ran.
var ErrDocumentMissing = errors.New("products document not found")

// Updater refreshes the cached products document.
type Updater interface {
	Update(ctx context.Context) error
}

// CommandUpdater runs an external command that maintains the cache.
type CommandUpdater struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewCommandUpdater returns an updater for command, falling back to the defaults.
func NewCommandUpdater(command string, timeout time.Duration) *CommandUpdater {
	if strings.TrimSpace(command) == "" {
		command = DefaultUpdateCommand
	}
	if timeout <= 0 {
		timeout = DefaultUpdateTimeout
	}
	return &CommandUpdater{Command: command, Timeout: timeout}
}

// Update runs the command. A missing executable, a timeout and a non-zero
// exit status are all reported as errors; stderr is attached when present.
func (u *CommandUpdater) Update(ctx context.Context) error {
	path, err := exec.LookPath(u.Command)
	if err != nil {
		return fmt.Errorf("update command %q not found: %w", u.Command, err)
	}

	timeout := u.Timeout
	if timeout <= 0 {
		timeout = DefaultUpdateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, u.Args...)
	cmd.Stderr = &stderr

	logger.Debug("Running products updater", logger.String("command", path))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", u.Command, err, msg)
		}
		return fmt.Errorf("%s: %w", u.Command, err)
	}
	return nil
}

// DefaultCachePath returns $XDG_CACHE_HOME/download-windows-esd/products.xml,
// with ~/.cache standing in for an unset XDG_CACHE_HOME.
func DefaultCachePath() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, DefaultUpdateCommand, "products.xml")
}

// Source is a products document on disk plus the updater that keeps it fresh.
type Source struct {
	Path    string
	Updater Updater
}

// NewSource returns a Source for path (DefaultCachePath when empty).
func NewSource(path string, updater Updater) *Source {
	if path == "" {
		path = DefaultCachePath()
	}
	return &Source{Path: path, Updater: updater}
}

// Ensure runs the updater and checks the document exists. Updater failures
// are logged and tolerated; only an absent document is an error.
func (s *Source) Ensure(ctx context.Context) error {
	if s.Updater != nil {
		if err := s.Updater.Update(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Products updater failed; using cached document",
				logger.String("path", s.Path),
				logger.Err(err))
		}
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrDocumentMissing, s.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w at %s: is a directory", ErrDocumentMissing, s.Path)
	}
	return nil
}

// Lookup ensures the document and returns the record for sel.
func (s *Source) Lookup(ctx context.Context, sel Selector) (*Record, error) {
	if err := s.Ensure(ctx); err != nil {
		return nil, err
	}
	return ParseFile(s.Path, sel)
}
