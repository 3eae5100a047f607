// Package model defines the domain types for the docpreview CLI.
//
// These types are transient: they are reconstructed from defaults, the
// optional config file, or Docker container labels at runtime.
package model

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// PreviewStatus represents the observed state of the preview container.
//
//	absent → running → (interrupted, auto-removed) → absent
//	running → stopped (only when the container was started without --rm)
type PreviewStatus string

const (
	// StatusRunning indicates the preview container is serving.
	StatusRunning PreviewStatus = "running"

	// StatusStopped indicates a container with the reserved name exists
	// but is not running.
	StatusStopped PreviewStatus = "stopped"

	// StatusAbsent indicates no container carries the reserved name.
	StatusAbsent PreviewStatus = "absent"
)

// String returns the string representation of PreviewStatus.
func (s PreviewStatus) String() string {
	return string(s)
}

// IsValid checks whether the PreviewStatus value is one of the
// predefined valid states.
func (s PreviewStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusAbsent:
		return true
	default:
		return false
	}
}

// ParsePreviewStatus converts a string to a PreviewStatus.
// Matching is case-insensitive.
func ParsePreviewStatus(s string) (PreviewStatus, error) {
	status := PreviewStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid preview status: %q (valid: running, stopped, absent)", s)
	}
	return status, nil
}

// Built-in launch parameters. A zero-argument invocation uses exactly
// these values.
const (
	// DefaultContainerName is the name reserved for the preview container.
	// Any container already carrying it is force-removed before a launch.
	DefaultContainerName = "docpreview"

	// DefaultImage is the version-pinned web server image.
	DefaultImage = "nginx:1.27.3-alpine"

	// DefaultHostPort is the host TCP port the preview is published on.
	DefaultHostPort = 9090

	// DefaultContainerPort is the port nginx listens on inside the image.
	DefaultContainerPort = 80

	// DefaultDocsDir is the documentation artifact directory, relative to
	// the project root. It is produced by `cargo doc`.
	DefaultDocsDir = "target/doc"

	// DefaultWebRoot is nginx's content root inside the image.
	DefaultWebRoot = "/usr/share/nginx/html"
)

// PortMapping binds a host port to a container port.
type PortMapping struct {
	// HostPort is the port on the host machine (1-65535).
	HostPort int `json:"hostPort" yaml:"hostPort"`

	// ContainerPort is the port inside the container (1-65535).
	ContainerPort int `json:"containerPort" yaml:"containerPort"`

	// Protocol is "tcp" or "udp". Empty means "tcp".
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

// Validate checks port ranges and the protocol value.
func (p *PortMapping) Validate() error {
	if p.HostPort < 1 || p.HostPort > 65535 {
		return fmt.Errorf("port mapping: host port %d out of range (1-65535)", p.HostPort)
	}
	if p.ContainerPort < 1 || p.ContainerPort > 65535 {
		return fmt.Errorf("port mapping: container port %d out of range (1-65535)", p.ContainerPort)
	}
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		return fmt.Errorf("port mapping: invalid protocol %q (valid: tcp, udp)", p.Protocol)
	}
	return nil
}

// String renders the mapping in `docker run -p` syntax. The protocol
// suffix is omitted for tcp, matching Docker's default.
func (p *PortMapping) String() string {
	if p.Protocol == "" || p.Protocol == "tcp" {
		return fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
	}
	return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
}

// containerNameRegex mirrors the Docker daemon's own rule for container names.
var containerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateContainerName checks a name against Docker's naming rule.
func ValidateContainerName(name string) error {
	if name == "" {
		return fmt.Errorf("container name must not be empty")
	}
	if !containerNameRegex.MatchString(name) {
		return fmt.Errorf("invalid container name %q: must match [a-zA-Z0-9][a-zA-Z0-9_.-]*", name)
	}
	return nil
}

// PreviewSpec is everything needed to (re)launch the preview container.
type PreviewSpec struct {
	// ContainerName is the fixed name; uniqueness is enforced by removing
	// any previous holder right before creation.
	ContainerName string `json:"containerName"`

	// Image is the pinned web server image reference.
	Image string `json:"image"`

	// Port is the published port mapping.
	Port PortMapping `json:"port"`

	// DocsDir is the absolute host path that is bind-mounted.
	DocsDir string `json:"docsDir"`

	// WebRoot is the absolute mount target inside the container.
	WebRoot string `json:"webRoot"`

	// Labels are attached to the container so `status` can describe it.
	Labels map[string]string `json:"labels,omitempty"`
}

// NewPreviewSpec returns a spec populated with the built-in defaults,
// serving docsDir.
func NewPreviewSpec(docsDir string) *PreviewSpec {
	return &PreviewSpec{
		ContainerName: DefaultContainerName,
		Image:         DefaultImage,
		Port: PortMapping{
			HostPort:      DefaultHostPort,
			ContainerPort: DefaultContainerPort,
			Protocol:      "tcp",
		},
		DocsDir: docsDir,
		WebRoot: DefaultWebRoot,
	}
}

// Validate checks that the spec can be turned into a `docker run` call.
func (s *PreviewSpec) Validate() error {
	if err := ValidateContainerName(s.ContainerName); err != nil {
		return err
	}
	if strings.TrimSpace(s.Image) == "" {
		return fmt.Errorf("image must not be empty")
	}
	if err := s.Port.Validate(); err != nil {
		return err
	}
	if s.DocsDir == "" {
		return fmt.Errorf("docs directory must not be empty")
	}
	if !path.IsAbs(s.WebRoot) {
		return fmt.Errorf("web root %q must be an absolute container path", s.WebRoot)
	}
	return nil
}

// URL returns the browser address for the preview.
func (s *PreviewSpec) URL() string {
	return fmt.Sprintf("http://localhost:%d/", s.Port.HostPort)
}

// PreviewInfo describes an existing preview container as reported by
// the Docker daemon.
type PreviewInfo struct {
	// ContainerID is the full Docker container ID.
	ContainerID string `json:"containerId"`

	// ContainerName is the container name without the leading slash.
	ContainerName string `json:"containerName"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// Status is the aggregate state.
	Status PreviewStatus `json:"status"`

	// Ports lists published port mappings.
	Ports []PortMapping `json:"ports,omitempty"`

	// DocsDir is the served host directory, read from labels. Empty when
	// the container was not started by docpreview.
	DocsDir string `json:"docsDir,omitempty"`

	// Managed reports whether the container carries docpreview's labels.
	Managed bool `json:"managed"`

	// CreatedAt is the launch time recorded in labels, zero if unknown.
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// ExitCode defines standard CLI exit codes. Scripts rely on them to tell
// "docs not built yet" apart from runtime failures.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitDocsNotReady indicates the documentation directory is missing.
	// It shares the value 1 with ExitGeneralError; the shell wrapper this
	// tool replaces exits 1 in that case.
	ExitDocsNotReady ExitCode = 1

	// ExitInvalidConfig indicates the config file could not be loaded or
	// failed validation.
	ExitInvalidConfig ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitStatusError carries a child process's exit status through to the
// CLI's own exit. The child already printed its diagnostics, so the CLI
// prints nothing for it.
type ExitStatusError struct {
	// Status is the child's exit status.
	Status int
}

// Error satisfies the error interface.
func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("container runtime exited with status %d", e.Status)
}
