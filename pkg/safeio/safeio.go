// Package safeio holds path and file helpers shared by the writers.
package safeio

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ErrPathTraversal is returned for paths that climb out of their base.
var ErrPathTraversal = errors.New("path traversal detected")

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.ToSlash(filepath.Clean(p))
	for _, seg := range strings.Split(c, "/") {
		if seg == ".." {
			return "", ErrPathTraversal
		}
	}
	return c, nil
}

// ReadFile returns the content of name, or nil and false when it does not exist.
func ReadFile(fs billy.Filesystem, name string) ([]byte, bool, error) {
	data, err := util.ReadFile(fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// WriteFileAtomic replaces name with data through a temporary file in the
// same directory. An existing file's permissions are kept; new files get 0644.
func WriteFileAtomic(fs billy.Filesystem, name string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := fs.Stat(name); err == nil {
		if m := st.Mode() & 0o777; m != 0 {
			mode = m
		}
	}

	dir := path.Dir(filepath.ToSlash(name))
	if dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	tmp, err := createTemp(fs, dir, path.Base(name), mode)
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	// The umask may have narrowed the create mode; filesystems that can
	// chmod get the exact bits.
	if ch, ok := fs.(billy.Change); ok {
		if err := ch.Chmod(tmpName, mode); err != nil {
			cleanup()
			return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
		}
	}
	if err := fs.Rename(tmpName, name); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

var tempSeq atomic.Uint64

// createTemp opens a new file next to base with the final mode set at
// create time, since not every billy.Filesystem supports Chmod.
func createTemp(fs billy.Filesystem, dir, base string, mode os.FileMode) (billy.File, error) {
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf(".%s.%d-%d.tmp", base, os.Getpid(), tempSeq.Add(1))
		if dir != "." {
			name = path.Join(dir, name)
		}
		f, err := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("no free temp name for %s in %s", base, dir)
}
