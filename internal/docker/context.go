package docker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultContextName is the CLI's built-in context: DOCKER_HOST or the
// platform socket.
const defaultContextName = "default"

// dockerConfigDir returns the docker CLI's configuration directory.
func dockerConfigDir() string {
	if dir := os.Getenv("DOCKER_CONFIG"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".docker")
}

// activeContext returns the CLI context the docker CLI would use when
// DOCKER_HOST is unset, or "" if none is selected.
func activeContext() string {
	if name := os.Getenv("DOCKER_CONTEXT"); name != "" {
		return name
	}

	dir := dockerConfigDir()
	if dir == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return ""
	}

	var cfg struct {
		CurrentContext string `json:"currentContext"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	return cfg.CurrentContext
}

// contextMeta is the subset of a context's meta.json read here.
type contextMeta struct {
	Name      string `json:"Name"`
	Endpoints map[string]struct {
		Host string `json:"Host"`
	} `json:"Endpoints"`
}

// contextHost returns the docker endpoint of the named CLI context.
//
// Context metadata lives in <config>/contexts/meta/<sha256(name)>/meta.json.
// Only local socket endpoints are accepted; TCP and SSH endpoints carry
// TLS material or connection helpers that only the CLI can use.
func contextHost(name string) (string, error) {
	dir := dockerConfigDir()
	if dir == "" {
		return "", fmt.Errorf("docker config directory not found")
	}

	sum := sha256.Sum256([]byte(name))
	metaPath := filepath.Join(dir, "contexts", "meta", hex.EncodeToString(sum[:]), "meta.json")

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return "", fmt.Errorf("context %q not found: %w", name, err)
	}

	var meta contextMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", metaPath, err)
	}

	host := meta.Endpoints["docker"].Host
	switch {
	case host == "":
		return "", fmt.Errorf("context %q has no docker endpoint", name)
	case strings.HasPrefix(host, "unix://"), strings.HasPrefix(host, "npipe://"):
		return host, nil
	default:
		return "", fmt.Errorf("context %q uses unsupported endpoint %s", name, host)
	}
}
