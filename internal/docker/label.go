package docker

import (
	"fmt"
	"sort"
	"time"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// Label keys recorded on every container docpreview starts. They let
// `docpreview status` report what a running preview serves without any
// state file.
const (
	// LabelPrefix is the common prefix for all docpreview labels.
	LabelPrefix = "docpreview."

	// LabelManagedBy identifies containers started by docpreview.
	// Key: "docpreview.managed-by", Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelDocsDir stores the absolute host path of the served directory.
	LabelDocsDir = LabelPrefix + "docs-dir"

	// LabelCreatedAt stores the RFC3339 launch timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "docpreview"

// BuildLabels constructs the label map for a preview container. User
// labels from spec.Labels are included, but may not override docpreview's
// own keys.
func BuildLabels(spec *model.PreviewSpec, createdAt time.Time) map[string]string {
	labels := make(map[string]string, len(spec.Labels)+3)
	for k, v := range spec.Labels {
		labels[k] = v
	}

	labels[LabelManagedBy] = ManagedByValue
	labels[LabelDocsDir] = spec.DocsDir
	labels[LabelCreatedAt] = createdAt.UTC().Format(time.RFC3339)

	return labels
}

// LabelArgs renders labels as `--label key=value` pairs, sorted by key so
// the resulting command line is deterministic.
func LabelArgs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, "--label", k+"="+labels[k])
	}
	return args
}

// LabelMetadata is what ParseLabels recovers from a container's labels.
type LabelMetadata struct {
	// Managed is true when the container was started by docpreview.
	Managed bool

	// DocsDir is the served host directory.
	DocsDir string

	// CreatedAt is the launch time; zero when absent.
	CreatedAt time.Time
}

// ParseLabels is the inverse of BuildLabels. Containers not started by
// docpreview yield a zero LabelMetadata and no error; a managed container
// with a malformed timestamp is an error.
func ParseLabels(labels map[string]string) (LabelMetadata, error) {
	if labels[LabelManagedBy] != ManagedByValue {
		return LabelMetadata{}, nil
	}

	meta := LabelMetadata{
		Managed: true,
		DocsDir: labels[LabelDocsDir],
	}

	if raw, ok := labels[LabelCreatedAt]; ok && raw != "" {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return LabelMetadata{}, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
		}
		meta.CreatedAt = createdAt
	}

	return meta, nil
}
