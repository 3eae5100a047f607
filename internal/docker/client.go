package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// defaultPingTimeout bounds a Ping against a paused or wedged daemon.
// Docker Desktop on macOS can take a few seconds to answer.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. It adds platform-specific
// socket detection and maps connection failures to ExitDockerNotRunning.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
type Client struct {
	inner client.APIClient
}

// NewClient creates a Docker client.
//
// The daemon address is chosen the way the docker CLI chooses it, so that
// API calls and CLI invocations land on the same daemon:
//  1. DOCKER_HOST, used as-is (with DOCKER_TLS_VERIFY / DOCKER_CERT_PATH)
//  2. the active CLI context (DOCKER_CONTEXT, then currentContext in
//     config.json), if it points at a local socket
//  3. the platform's default socket:
//     - Linux: /var/run/docker.sock
//     - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//     - Windows: npipe:////./pipe/docker_engine
//
// Returns a model.CLIError with ExitDockerNotRunning if no daemon address
// can be determined.
func NewClient() (*Client, error) {
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		return newClientWithOpts(dockerHost)
	}

	if name := activeContext(); name != "" && name != defaultContextName {
		host, err := contextHost(name)
		if err != nil {
			return nil, model.WrapCLIError(
				model.ExitDockerNotRunning,
				fmt.Sprintf("cannot resolve Docker context %q", name),
				err,
			)
		}
		return newClientWithOpts(host, client.WithHost(host))
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker socket not found",
			err,
		)
	}

	return newClientWithOpts(host, client.WithHost(host))
}

// NewClientFromAPI wraps an existing API client. Tests use it to inject
// a client built by testcontainers or a fake.
func NewClientFromAPI(api client.APIClient) *Client {
	return &Client{inner: api}
}

// newClientWithOpts creates a client from the environment, then applies
// extra, overriding options. host is only used for error messages. API
// version negotiation keeps it working against older daemons.
func newClientWithOpts(host string, extra ...client.Opt) (*Client, error) {
	opts := append([]client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, extra...)
	c, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}

	return &Client{inner: c}, nil
}

// detectDockerHost probes the platform's known socket locations.
// Existence is enough here; Ping verifies the daemon actually answers.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Newer Docker Desktop releases skip the /var/run symlink.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// os.Stat does not work on named pipes; a short dial does.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			_ = conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns "unix://<path>" for the first path that exists.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf(
		"Docker socket not found at any of: %v (is Docker running?)",
		paths,
	)
}

// Ping verifies that the Docker daemon is reachable within
// defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the client's resources. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// DaemonHost returns the address the client talks to, in the form the
// docker CLI accepts for -H.
func (c *Client) DaemonHost() string {
	return c.inner.DaemonHost()
}

// Inner returns the underlying SDK client for calls not wrapped here.
func (c *Client) Inner() client.APIClient {
	return c.inner
}
