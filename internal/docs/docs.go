// Package docs checks the documentation artifact directory that the
// preview container serves.
//
// The directory is produced by an external build step (`cargo doc`).
// docpreview never writes to it; it only checks that it exists and,
// when asked to, waits for the build step to create it. Waiting uses
// github.com/fsnotify/fsnotify on the nearest existing ancestor, because
// a watch cannot be placed on a path that does not exist yet.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNotReady is returned when the documentation directory does not exist.
var ErrNotReady = errors.New("documentation directory does not exist")

// Check reports whether dir exists and is a directory.
//
// A missing path yields an error wrapping ErrNotReady. A path that exists
// but is a regular file is a different error, since waiting will not fix it.
func Check(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotReady, dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", dir)
	}
	return nil
}

// IsEmpty reports whether dir has no entries. An empty docs directory is
// served as-is; callers only use this for diagnostics.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// WaitReady blocks until dir exists, timeout elapses, or ctx is done.
//
// With timeout <= 0 it behaves exactly like Check. On timeout the returned
// error wraps ErrNotReady.
func WaitReady(ctx context.Context, dir string, timeout time.Duration) error {
	err := Check(dir)
	if err == nil || !errors.Is(err, ErrNotReady) || timeout <= 0 {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := ""
	for {
		// Re-arm on the nearest existing ancestor. As the build creates
		// target/ and then target/doc/, the watch moves one level down.
		ancestor := nearestExistingAncestor(dir)
		if ancestor != watched {
			if watched != "" {
				_ = watcher.Remove(watched)
			}
			if err := watcher.Add(ancestor); err != nil {
				return fmt.Errorf("failed to watch %s: %w", ancestor, err)
			}
			watched = ancestor
		}

		// The directory may have appeared between Check and Add.
		if err := Check(dir); err == nil || !errors.Is(err, ErrNotReady) {
			return err
		}

		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s (waited %s)", ErrNotReady, dir, timeout)
			}
			return waitCtx.Err()

		case _, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("file watcher closed while waiting for %s", dir)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("file watcher closed while waiting for %s", dir)
			}
			return fmt.Errorf("file watcher error: %w", werr)
		}
	}
}

// nearestExistingAncestor walks up from path until it finds a directory
// that exists. The filesystem root always exists, so this terminates.
func nearestExistingAncestor(path string) string {
	current := filepath.Clean(path)
	for {
		if info, err := os.Stat(current); err == nil && info.IsDir() {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}
