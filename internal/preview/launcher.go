// Package preview implements the preview launcher: check that the docs
// are built, clear the reserved container name, and run the web server
// container in the foreground.
//
// The sequence is strictly linear:
//
//	docs dir missing  → "not ready" on stdout, exit 1, no runtime calls
//	docs dir present  → remove <name> (ignore "no such container")
//	                  → run <image> attached; exit with its status
//
// Removal always precedes creation, which is what keeps the fixed name
// from colliding with a lingering previous instance.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/docpreview/internal/docs"
	"github.com/shinji-kodama/docpreview/internal/model"
)

// portSuggestionRange is how far above a busy port the launcher looks for
// a free one to suggest.
const portSuggestionRange = 100

// Runtime is the container runtime the launcher drives.
type Runtime interface {
	// Remove force-removes the container called name. A missing
	// container must not be reported as an error.
	Remove(ctx context.Context, name string) error

	// Run starts the container described by spec in the foreground and
	// returns its exit status once it ends.
	Run(ctx context.Context, spec *model.PreviewSpec) (int, error)
}

// PortChecker reports host port availability.
type PortChecker interface {
	IsPortAvailable(port int, protocol string) bool
	FindAvailablePort(startPort, endPort int, protocol string) (int, error)
}

// Options tune a single launch.
type Options struct {
	// Wait, when positive, waits up to this long for the docs directory
	// to appear instead of failing immediately.
	Wait time.Duration

	// JSON reports the not-ready outcome as a JSON object instead of a
	// line of text.
	JSON bool
}

// NotReadyReport is the --json form of the not-ready message.
type NotReadyReport struct {
	Status  string `json:"status"`
	DocsDir string `json:"docsDir"`
	Message string `json:"message"`
}

// Launcher runs the preview sequence.
type Launcher struct {
	Runtime Runtime

	// Ports is optional; nil skips the preflight port check.
	Ports PortChecker

	// Log receives progress and diagnostics (stderr in the CLI).
	Log logrus.FieldLogger

	// Out receives the user-facing "not ready" message. Defaults to stdout.
	Out io.Writer
}

// Launch runs the preview described by spec.
//
// A missing docs directory yields *model.ExitStatusError with status 1
// after printing a message to Out. A non-zero container exit yields
// *model.ExitStatusError carrying that status. Errors starting the
// runtime itself are returned as *model.CLIError.
func (l *Launcher) Launch(ctx context.Context, spec *model.PreviewSpec, opts Options) error {
	if err := spec.Validate(); err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid preview settings", err)
	}

	log := l.logger().WithField("container", spec.ContainerName)

	if opts.Wait > 0 {
		log.WithField("docs", spec.DocsDir).Infof("waiting up to %s for documentation", opts.Wait)
	}
	if err := docs.WaitReady(ctx, spec.DocsDir, opts.Wait); err != nil {
		if errors.Is(err, docs.ErrNotReady) {
			l.reportNotReady(spec.DocsDir, opts.JSON)
			return &model.ExitStatusError{Status: int(model.ExitDocsNotReady)}
		}
		return model.WrapCLIError(model.ExitGeneralError, "documentation directory is unusable", err)
	}

	if empty, err := docs.IsEmpty(spec.DocsDir); err == nil && empty {
		log.WithField("docs", spec.DocsDir).Debug("documentation directory is empty; serving it anyway")
	}

	// Removal is fire-and-forget. If the daemon is unreachable the run
	// below fails with the runtime's own diagnostics.
	if err := l.Runtime.Remove(ctx, spec.ContainerName); err != nil {
		log.WithError(err).Debug("could not remove previous preview container")
	}

	l.checkPort(log, spec.Port)

	log.WithFields(logrus.Fields{
		"image": spec.Image,
		"docs":  spec.DocsDir,
	}).Infof("serving documentation at %s (Ctrl-C to stop)", spec.URL())

	status, err := l.Runtime.Run(ctx, spec)
	if err != nil {
		return err
	}
	if status != 0 {
		return &model.ExitStatusError{Status: status}
	}
	return nil
}

// Stop removes the preview container. Unlike the removal inside Launch,
// errors other than "no such container" are returned.
func (l *Launcher) Stop(ctx context.Context, name string) error {
	if err := model.ValidateContainerName(name); err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid container name", err)
	}
	return l.Runtime.Remove(ctx, name)
}

// reportNotReady tells the user the docs have not been built yet.
func (l *Launcher) reportNotReady(docsDir string, asJSON bool) {
	msg := fmt.Sprintf("Documentation is not ready: %s does not exist. Run `cargo doc` first.", docsDir)
	if !asJSON {
		fmt.Fprintln(l.out(), msg)
		return
	}

	enc := json.NewEncoder(l.out())
	enc.SetIndent("", "  ")
	_ = enc.Encode(NotReadyReport{Status: "not_ready", DocsDir: docsDir, Message: msg})
}

// checkPort warns when the host port is taken by something other than
// the container just removed. It never blocks the launch.
func (l *Launcher) checkPort(log logrus.FieldLogger, mapping model.PortMapping) {
	if l.Ports == nil || l.Ports.IsPortAvailable(mapping.HostPort, mapping.Protocol) {
		return
	}

	entry := log.WithField("port", mapping.HostPort)
	start := mapping.HostPort + 1
	end := min(mapping.HostPort+portSuggestionRange, 65535)
	if start <= end {
		if free, err := l.Ports.FindAvailablePort(start, end, mapping.Protocol); err == nil {
			entry.Warnf("host port %d is already in use; hostPort: %d in docpreview.yaml would be free", mapping.HostPort, free)
			return
		}
	}
	entry.Warnf("host port %d is already in use", mapping.HostPort)
}

func (l *Launcher) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

func (l *Launcher) out() io.Writer {
	if l.Out == nil {
		return os.Stdout
	}
	return l.Out
}
