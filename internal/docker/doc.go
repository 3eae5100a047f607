// Package docker provides Docker Engine API wrappers and the container
// lifecycle operations behind docpreview.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Container labels recording which docs directory a preview serves
//   - Idempotent forced removal of the preview container by name
//   - Inspection and listing of preview containers for `docpreview status`
//   - The foreground `docker run` invocation, attached to the caller's
//     terminal, whose exit status is passed through unchanged
//
// Removal and inspection go through github.com/docker/docker/client with
// API version negotiation. The run step shells out to the docker CLI,
// since only the CLI provides the interactive attach, TTY handling, and
// image pull progress the user expects in the foreground.
package docker
