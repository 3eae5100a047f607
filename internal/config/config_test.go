package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// writeFile is a test helper that writes content to name inside dir and
// returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "docpreview", cfg.ContainerName)
	assert.Equal(t, model.DefaultImage, cfg.Image)
	assert.Equal(t, 9090, cfg.HostPort)
	assert.Equal(t, 80, cfg.ContainerPort)
	assert.Equal(t, "target/doc", cfg.DocsDir)
	assert.Equal(t, "/usr/share/nginx/html", cfg.WebRoot)
	assert.Empty(t, cfg.Validate())
}

func TestFind(t *testing.T) {
	t.Run("no config", func(t *testing.T) {
		assert.Equal(t, "", Find(t.TempDir()))
	})

	t.Run("yaml preferred over json", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "docpreview.json", `{}`)
		want := writeFile(t, dir, "docpreview.yaml", "hostPort: 9191\n")
		assert.Equal(t, want, Find(dir))
	})

	t.Run("directory with config name is ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "docpreview.yaml"), 0o755))
		assert.Equal(t, "", Find(dir))
	})
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "docpreview.yaml", `
containerName: chrono-docs
hostPort: 9191
labels:
  team: docs
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "chrono-docs", cfg.ContainerName)
	assert.Equal(t, 9191, cfg.HostPort)
	assert.Equal(t, "docs", cfg.Labels["team"])
	assert.Equal(t, p, cfg.Source)

	// Unset fields fall back to the built-in values.
	assert.Equal(t, model.DefaultImage, cfg.Image)
	assert.Equal(t, 80, cfg.ContainerPort)
	assert.Equal(t, "target/doc", cfg.DocsDir)
}

// TestLoad_JSONC verifies that comments and trailing commas are accepted
// in JSON config files.
func TestLoad_JSONC(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "docpreview.json", `{
  // serve the docs from a different build profile
  "docsDir": "target/x86_64-unknown-linux-gnu/doc",
  /* pinned */
  "image": "nginx:1.27.3",
}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "target/x86_64-unknown-linux-gnu/doc", cfg.DocsDir)
	assert.Equal(t, "nginx:1.27.3", cfg.Image)
	assert.Equal(t, 9090, cfg.HostPort)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{
			name:    "missing file",
			path:    filepath.Join(dir, "absent.yaml"),
			wantMsg: "not found",
		},
		{
			name:    "bad yaml",
			path:    writeFile(t, dir, "bad.yaml", "hostPort: [1, 2\n"),
			wantMsg: "failed to parse",
		},
		{
			name:    "bad json",
			path:    writeFile(t, dir, "bad.json", `{"hostPort": "nine"}`),
			wantMsg: "failed to parse",
		},
		{
			name:    "unsupported extension",
			path:    writeFile(t, dir, "docpreview.toml", "hostPort = 1\n"),
			wantMsg: "unsupported config file extension",
		},
		{
			name:    "invalid values",
			path:    writeFile(t, dir, "invalid.yaml", "hostPort: 70000\ncontainerName: -x\nwebRoot: html\n"),
			wantMsg: "invalid config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitInvalidConfig, cliErr.Code)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// TestValidate_ReportsAllFields checks that every invalid field is listed,
// not only the first one found.
func TestValidate_ReportsAllFields(t *testing.T) {
	cfg := &Config{
		ContainerName: "bad name",
		Image:         " ",
		HostPort:      0,
		ContainerPort: 65536,
		DocsDir:       "/abs/doc",
		WebRoot:       "relative",
	}

	errs := cfg.Validate()
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t,
		[]string{"containerName", "image", "hostPort", "containerPort", "docsDir", "webRoot"},
		fields)
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := LoadOrDefault(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file in root", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "docpreview.yml", "hostPort: 8088\n")
		cfg, err := LoadOrDefault(dir)
		require.NoError(t, err)
		assert.Equal(t, 8088, cfg.HostPort)
	})
}

func TestSpec(t *testing.T) {
	cfg := Default()
	cfg.Labels = map[string]string{"team": "docs"}

	spec := cfg.Spec("/work/chrono")

	assert.Equal(t, filepath.Join("/work/chrono", "target", "doc"), spec.DocsDir)
	assert.Equal(t, "docpreview", spec.ContainerName)
	assert.Equal(t, 9090, spec.Port.HostPort)
	assert.Equal(t, 80, spec.Port.ContainerPort)
	assert.Equal(t, "/usr/share/nginx/html", spec.WebRoot)
	assert.Equal(t, "docs", spec.Labels["team"])
	assert.NoError(t, spec.Validate())

	// The spec owns its label map.
	cfg.Labels["team"] = "changed"
	assert.Equal(t, "docs", spec.Labels["team"])
}
