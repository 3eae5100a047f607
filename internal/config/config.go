// Package config loads the optional docpreview configuration file.
//
// docpreview works with no configuration at all: every field defaults to
// the built-in launch parameters in the model package. A project may
// override them with one of these files in its root, searched in order:
//
//	docpreview.yaml
//	docpreview.yml
//	docpreview.json   (JSONC: comments and trailing commas allowed)
//
// YAML is parsed with gopkg.in/yaml.v3. JSON files go through
// github.com/tidwall/jsonc to strip comments before encoding/json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// FileNames lists the config file names searched in the project root,
// in priority order.
var FileNames = []string{
	"docpreview.yaml",
	"docpreview.yml",
	"docpreview.json",
}

// Config holds the user-tunable launch parameters. Zero values mean
// "use the default"; Load fills them in before returning.
type Config struct {
	// ContainerName is the reserved container name.
	ContainerName string `yaml:"containerName" json:"containerName"`

	// Image is the pinned web server image.
	Image string `yaml:"image" json:"image"`

	// HostPort is the published host port.
	HostPort int `yaml:"hostPort" json:"hostPort"`

	// ContainerPort is the port the web server listens on in the image.
	ContainerPort int `yaml:"containerPort" json:"containerPort"`

	// DocsDir is the documentation directory, relative to the project root.
	DocsDir string `yaml:"docsDir" json:"docsDir"`

	// WebRoot is the bind mount target inside the container.
	WebRoot string `yaml:"webRoot" json:"webRoot"`

	// Labels are extra container labels, merged under docpreview's own.
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Source is the file the config was loaded from; empty for defaults.
	Source string `yaml:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ContainerName: model.DefaultContainerName,
		Image:         model.DefaultImage,
		HostPort:      model.DefaultHostPort,
		ContainerPort: model.DefaultContainerPort,
		DocsDir:       model.DefaultDocsDir,
		WebRoot:       model.DefaultWebRoot,
	}
}

// Find returns the path of the first config file present in root, or ""
// when the project has none. Absence is not an error.
func Find(root string) string {
	for _, name := range FileNames {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Load reads and validates the config file at configPath. The format is
// chosen by extension. Unset fields fall back to Default().
//
// Errors are *model.CLIError with ExitInvalidConfig.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(model.ExitInvalidConfig,
				fmt.Sprintf("config file not found: %s", configPath), err)
		}
		return nil, model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("failed to read config file %s", configPath), err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(configPath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig,
				fmt.Sprintf("failed to parse %s", configPath), err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig,
				fmt.Sprintf("failed to parse %s", configPath), err)
		}
	default:
		return nil, model.NewCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("unsupported config file extension %q (valid: .yaml, .yml, .json, .jsonc)", ext))
	}

	cfg.applyDefaults()
	cfg.Source = configPath

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("invalid config file %s", configPath), errors.Join(toErrors(errs)...))
	}

	return cfg, nil
}

// LoadOrDefault loads the config found in root, or returns Default()
// when there is none.
func LoadOrDefault(root string) (*Config, error) {
	configPath := Find(root)
	if configPath == "" {
		return Default(), nil
	}
	return Load(configPath)
}

// applyDefaults fills zero-valued fields from Default().
func (c *Config) applyDefaults() {
	def := Default()
	if c.ContainerName == "" {
		c.ContainerName = def.ContainerName
	}
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.HostPort == 0 {
		c.HostPort = def.HostPort
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = def.ContainerPort
	}
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}
	if c.WebRoot == "" {
		c.WebRoot = def.WebRoot
	}
}

// ValidationError represents a single invalid config field.
type ValidationError struct {
	// Field is the config key that failed validation.
	Field string

	// Message describes what's wrong with the value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every field and returns all failures at once, so a user
// fixing a config file sees the complete list.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if err := model.ValidateContainerName(c.ContainerName); err != nil {
		errs = append(errs, ValidationError{Field: "containerName", Message: err.Error()})
	}
	if strings.TrimSpace(c.Image) == "" {
		errs = append(errs, ValidationError{Field: "image", Message: "must not be empty"})
	}
	if c.HostPort < 1 || c.HostPort > 65535 {
		errs = append(errs, ValidationError{Field: "hostPort", Message: fmt.Sprintf("%d out of range (1-65535)", c.HostPort)})
	}
	if c.ContainerPort < 1 || c.ContainerPort > 65535 {
		errs = append(errs, ValidationError{Field: "containerPort", Message: fmt.Sprintf("%d out of range (1-65535)", c.ContainerPort)})
	}
	if filepath.IsAbs(c.DocsDir) {
		errs = append(errs, ValidationError{Field: "docsDir", Message: "must be relative to the project root"})
	}
	if !path.IsAbs(c.WebRoot) {
		errs = append(errs, ValidationError{Field: "webRoot", Message: "must be an absolute container path"})
	}

	return errs
}

// DocsPath returns the absolute documentation directory under root.
func (c *Config) DocsPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(c.DocsDir))
}

// Spec builds the launch description for a project rooted at root.
func (c *Config) Spec(root string) *model.PreviewSpec {
	spec := model.NewPreviewSpec(c.DocsPath(root))
	spec.ContainerName = c.ContainerName
	spec.Image = c.Image
	spec.Port.HostPort = c.HostPort
	spec.Port.ContainerPort = c.ContainerPort
	spec.WebRoot = c.WebRoot

	if len(c.Labels) > 0 {
		spec.Labels = make(map[string]string, len(c.Labels))
		for k, v := range c.Labels {
			spec.Labels[k] = v
		}
	}
	return spec
}

func toErrors(errs []ValidationError) []error {
	out := make([]error, 0, len(errs))
	for i := range errs {
		out = append(out, &errs[i])
	}
	return out
}
