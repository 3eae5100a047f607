package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moby/term"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// ExitRuntimeNotFound is the status a POSIX shell reports for a missing
// command. It is used when the docker CLI is not installed.
const ExitRuntimeNotFound = 127

// interruptGrace is how long the docker CLI gets to detach and stop the
// container after the context is cancelled, before it is killed.
const interruptGrace = 10 * time.Second

// BuildRunArgs returns the `docker run` argument vector for spec:
//
//	run -it --rm --name <name> -p <host>:<container> --mount type=bind,source=<docs>,target=<webroot> [--label k=v ...] <image>
//
// tty selects -it over -i; the docker CLI refuses -t when stdin is not a
// terminal. labels may be nil. The bind mount uses --mount rather than -v
// because -v splits on ':' and so breaks on Windows drive letters and on
// host paths containing a colon.
func BuildRunArgs(spec *model.PreviewSpec, tty bool, labels map[string]string) []string {
	interactive := "-i"
	if tty {
		interactive = "-it"
	}

	args := make([]string, 0, 10+len(labels)*2)
	args = append(args,
		"run", interactive, "--rm",
		"--name", spec.ContainerName,
		"-p", spec.Port.String(),
		"--mount", BindMountArg(spec.DocsDir, spec.WebRoot),
	)
	args = append(args, LabelArgs(labels)...)
	args = append(args, spec.Image)
	return args
}

// BindMountArg returns the --mount value binding source onto target.
// The value is parsed as a CSV record, so fields containing a comma or a
// quote are quoted.
func BindMountArg(source, target string) string {
	return strings.Join([]string{
		"type=bind",
		csvField("source=" + source),
		csvField("target=" + target),
	}, ",")
}

func csvField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Runner runs the preview container in the foreground through the docker
// CLI, wired to the caller's stdio.
type Runner struct {
	// Binary is the docker CLI executable. Defaults to "docker".
	Binary string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner returns a Runner attached to the process's own stdio.
func NewRunner() *Runner {
	return &Runner{
		Binary: "docker",
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// IsTerminal reports whether the runner's stdin is a terminal.
func (r *Runner) IsTerminal() bool {
	_, isTerm := term.GetFdInfo(r.Stdin)
	return isTerm
}

// Run executes `docker <args...>` and blocks until it exits, returning the
// child's exit status.
//
// While the child runs, SIGINT and SIGTERM are captured and dropped: the
// terminal delivers Ctrl-C to the whole foreground process group, so the
// docker CLI receives it directly and tears the container down itself.
// Cancelling ctx interrupts the child and kills it after a grace period.
//
// A non-zero child status is returned with a nil error. An error is only
// returned when the child could not be started at all.
func (r *Runner) Run(ctx context.Context, args []string) (int, error) {
	binary := r.Binary
	if binary == "" {
		binary = "docker"
	}

	// #nosec G204 -- args are built by BuildRunArgs from validated config
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGrace

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// After a cancellation exec reports ctx.Err() even if the child exited
	// cleanly; its own status is still the one to pass through.
	if ctx.Err() != nil && cmd.ProcessState != nil && cmd.ProcessState.ExitCode() >= 0 {
		return cmd.ProcessState.ExitCode(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Killed by a signal; report it the way a shell would.
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal()), nil
		}
		return int(model.ExitGeneralError), nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return ExitRuntimeNotFound, model.WrapCLIError(
			model.ExitCode(ExitRuntimeNotFound),
			fmt.Sprintf("%s: command not found", binary),
			err,
		)
	}

	return int(model.ExitGeneralError), model.WrapCLIError(
		model.ExitGeneralError,
		fmt.Sprintf("failed to start %s", binary),
		err,
	)
}
