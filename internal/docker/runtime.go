package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// Runtime is the production container runtime behind the preview
// launcher: removal through the Engine API, the foreground run through
// the docker CLI.
//
// Both steps target the same daemon. When the API client can be created,
// its address is passed to the CLI with -H. When it cannot, removal falls
// back to `docker rm -f` and the CLI resolves the daemon for both steps.
type Runtime struct {
	// Runner executes the foreground `docker run`.
	Runner *Runner

	// Log receives debug output. Defaults to the logrus standard logger.
	Log logrus.FieldLogger

	// NewClient creates the API client. Defaults to NewClient.
	NewClient func() (*Client, error)

	// Now stamps the created-at label. Defaults to time.Now.
	Now func() time.Time
}

// NewRuntime creates a Runtime attached to the process's stdio.
func NewRuntime(log logrus.FieldLogger) *Runtime {
	return &Runtime{
		Runner:    NewRunner(),
		Log:       log,
		NewClient: NewClient,
		Now:       time.Now,
	}
}

// Remove force-removes the container called name. A missing container
// is not an error.
func (rt *Runtime) Remove(ctx context.Context, name string) error {
	log := rt.logger().WithField("container", name)

	cli, err := rt.newClient()
	if err != nil {
		log.WithError(err).Debug("Docker API unavailable; removing through the docker CLI")
		return rt.removeWithCLI(ctx, name)
	}
	defer func() { _ = cli.Close() }()

	log.WithField("host", cli.DaemonHost()).Debug("removing previous preview container")
	return RemoveContainer(ctx, cli, name)
}

// Run starts the preview container in the foreground and returns the
// docker CLI's exit status.
func (rt *Runtime) Run(ctx context.Context, spec *model.PreviewSpec) (int, error) {
	runner := rt.runner()
	now := rt.Now
	if now == nil {
		now = time.Now
	}

	args := BuildRunArgs(spec, runner.IsTerminal(), BuildLabels(spec, now()))
	if host := rt.daemonHost(); host != "" {
		args = append([]string{"-H", host}, args...)
	}
	rt.logger().WithField("args", args).Debug("starting preview container")

	return runner.Run(ctx, args)
}

// daemonHost returns the API client's daemon address, or "" when the
// client cannot be created and the CLI should pick the daemon itself.
func (rt *Runtime) daemonHost() string {
	cli, err := rt.newClient()
	if err != nil {
		return ""
	}
	defer func() { _ = cli.Close() }()
	return cli.DaemonHost()
}

// removeWithCLI runs `docker rm -f name` with output captured, treating
// "No such container" as success for CLIs that still report it.
func (rt *Runtime) removeWithCLI(ctx context.Context, name string) error {
	var stderr bytes.Buffer
	quiet := &Runner{
		Binary: rt.runner().Binary,
		Stdout: io.Discard,
		Stderr: &stderr,
	}

	status, err := quiet.Run(ctx, []string{"rm", "-f", name})
	if err != nil {
		return err
	}
	if status == 0 {
		return nil
	}

	msg := strings.TrimSpace(stderr.String())
	if strings.Contains(msg, "No such container") {
		return nil
	}
	return model.NewCLIError(
		model.ExitDockerNotRunning,
		fmt.Sprintf("failed to remove container %q: %s", name, msg),
	)
}

func (rt *Runtime) newClient() (*Client, error) {
	if rt.NewClient == nil {
		return NewClient()
	}
	return rt.NewClient()
}

func (rt *Runtime) runner() *Runner {
	if rt.Runner == nil {
		return NewRunner()
	}
	return rt.Runner
}

func (rt *Runtime) logger() logrus.FieldLogger {
	if rt.Log == nil {
		return logrus.StandardLogger()
	}
	return rt.Log
}
