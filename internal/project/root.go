// Package project locates the project root that docpreview works from.
//
// The shell wrapper docpreview replaces used its own directory, which was
// always the repository root. A compiled binary lives somewhere on $PATH,
// so the root is resolved instead:
//  1. an explicit --root flag, made absolute;
//  2. `git rev-parse --show-toplevel` from the current directory;
//  3. the current directory.
//
// Git is optional. A missing git binary or a directory outside any
// repository silently falls through to step 3.
package project

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Resolver finds the project root. GitBinary defaults to "git"; tests
// point it at a nonexistent binary to exercise the fallback.
type Resolver struct {
	// GitBinary is the git executable to invoke.
	GitBinary string

	// Getwd returns the starting directory. Defaults to os.Getwd.
	Getwd func() (string, error)
}

// NewResolver creates a Resolver using the git binary on $PATH.
func NewResolver() *Resolver {
	return &Resolver{
		GitBinary: "git",
		Getwd:     os.Getwd,
	}
}

// Resolve returns the absolute project root. explicit takes precedence
// when non-empty.
func (r *Resolver) Resolve(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root %q: %w", explicit, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project root %s: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project root %s is not a directory", abs)
		}
		return abs, nil
	}

	cwd, err := r.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	if top, err := r.gitTopLevel(cwd); err == nil && top != "" {
		return top, nil
	}

	return cwd, nil
}

// gitTopLevel runs `git rev-parse --show-toplevel` in dir.
func (r *Resolver) gitTopLevel(dir string) (string, error) {
	// #nosec G204 -- the binary and args are fixed
	cmd := exec.Command(r.GitBinary, "-C", dir, "rev-parse", "--show-toplevel")

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git rev-parse failed: %s: %w", msg, err)
		}
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}

	return filepath.Clean(strings.TrimSpace(stdout.String())), nil
}
