//go:build integration

package docker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// TestRemoveContainer_Integration starts a real nginx container holding a
// reserved name, then checks that RemoveContainer kills and removes it and
// that a second removal is a silent no-op.
func TestRemoveContainer_Integration(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	name := "docpreview-it-" + time.Now().UTC().Format("150405")

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        model.DefaultImage,
			Name:         name,
			ExposedPorts: []string{"80/tcp"},
			Labels: map[string]string{
				LabelManagedBy: ManagedByValue,
				LabelDocsDir:   "/tmp/doc",
			},
			WaitingFor: wait.ForListeningPort("80/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("failed to start nginx container: %v", err)
	}
	// Terminate fails once RemoveContainer has done its job; only the
	// failure path needs this cleanup.
	defer func() { _ = ctr.Terminate(context.Background()) }()

	cli, err := NewClient()
	require.NoError(t, err)
	defer func() { _ = cli.Close() }()
	require.NoError(t, cli.Ping(ctx))

	info, err := InspectPreview(ctx, cli, name)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, info.Status)
	assert.True(t, info.Managed)
	assert.Equal(t, "/tmp/doc", info.DocsDir)

	require.NoError(t, RemoveContainer(ctx, cli, name))

	info, err = InspectPreview(ctx, cli, name)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbsent, info.Status)

	assert.NoError(t, RemoveContainer(ctx, cli, name), "second removal must be a no-op")
}
