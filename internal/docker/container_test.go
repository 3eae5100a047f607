package docker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// fakeAPI overrides the handful of Engine API calls docpreview makes.
// Any other call panics through the nil embedded interface.
type fakeAPI struct {
	client.APIClient

	removeErr  error
	removed    []string
	removeOpts container.RemoveOptions

	inspect    container.InspectResponse
	inspectErr error

	list    []container.Summary
	listErr error
	listOpts container.ListOptions

	waitErr error

	host   string
	closed int
}

func (f *fakeAPI) ContainerRemove(_ context.Context, name string, opts container.RemoveOptions) error {
	f.removed = append(f.removed, name)
	f.removeOpts = opts
	return f.removeErr
}

func (f *fakeAPI) ContainerInspect(_ context.Context, _ string) (container.InspectResponse, error) {
	return f.inspect, f.inspectErr
}

func (f *fakeAPI) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.listOpts = opts
	return f.list, f.listErr
}

func (f *fakeAPI) ContainerWait(_ context.Context, _ string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)
	if f.waitErr != nil {
		errCh <- f.waitErr
	} else {
		statusCh <- container.WaitResponse{}
	}
	return statusCh, errCh
}

func (f *fakeAPI) DaemonHost() string { return f.host }

func (f *fakeAPI) Close() error {
	f.closed++
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("No such container: %s: %w", name, cerrdefs.ErrNotFound)
}

// TestRemoveContainer_Existing verifies the removal is forced, so a running
// container is killed rather than refused.
func TestRemoveContainer_Existing(t *testing.T) {
	api := &fakeAPI{}

	err := RemoveContainer(context.Background(), NewClientFromAPI(api), "docpreview")

	require.NoError(t, err)
	assert.Equal(t, []string{"docpreview"}, api.removed)
	assert.True(t, api.removeOpts.Force)
}

// TestRemoveContainer_NotFound verifies idempotency: removing a container
// that does not exist succeeds silently.
func TestRemoveContainer_NotFound(t *testing.T) {
	api := &fakeAPI{removeErr: notFound("docpreview")}

	err := RemoveContainer(context.Background(), NewClientFromAPI(api), "docpreview")
	assert.NoError(t, err)
}

func TestRemoveContainer_AlreadyInProgress(t *testing.T) {
	api := &fakeAPI{
		removeErr: fmt.Errorf("removal of container docpreview is already in progress: %w", cerrdefs.ErrConflict),
	}

	err := RemoveContainer(context.Background(), NewClientFromAPI(api), "docpreview")
	assert.NoError(t, err)

	api.waitErr = errors.New("daemon went away")
	err = RemoveContainer(context.Background(), NewClientFromAPI(api), "docpreview")
	assert.Error(t, err)
}

func TestRemoveContainer_DaemonError(t *testing.T) {
	api := &fakeAPI{removeErr: errors.New("Cannot connect to the Docker daemon")}

	err := RemoveContainer(context.Background(), NewClientFromAPI(api), "docpreview")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

func makeInspect(running bool, labels map[string]string) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:    "0123456789abcdef",
			Name:  "/docpreview",
			State: &container.State{Running: running},
			HostConfig: &container.HostConfig{
				PortBindings: nat.PortMap{
					"80/tcp": []nat.PortBinding{
						{HostIP: "0.0.0.0", HostPort: "9090"},
						{HostIP: "::", HostPort: "9090"},
					},
				},
			},
		},
		Config: &container.Config{
			Image:  model.DefaultImage,
			Labels: labels,
		},
	}
}

func TestInspectPreview_Running(t *testing.T) {
	createdAt := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	labels := BuildLabels(model.NewPreviewSpec("/work/chrono/target/doc"), createdAt)
	api := &fakeAPI{inspect: makeInspect(true, labels)}

	info, err := InspectPreview(context.Background(), NewClientFromAPI(api), "docpreview")
	require.NoError(t, err)

	assert.Equal(t, "docpreview", info.ContainerName)
	assert.Equal(t, model.StatusRunning, info.Status)
	assert.Equal(t, model.DefaultImage, info.Image)
	assert.True(t, info.Managed)
	assert.Equal(t, "/work/chrono/target/doc", info.DocsDir)
	assert.True(t, createdAt.Equal(info.CreatedAt))
	assert.Equal(t, []model.PortMapping{{HostPort: 9090, ContainerPort: 80, Protocol: "tcp"}}, info.Ports)
}

// TestInspectPreview_Foreign covers a container that holds the reserved
// name but was not started by docpreview.
func TestInspectPreview_Foreign(t *testing.T) {
	api := &fakeAPI{inspect: makeInspect(false, nil)}

	info, err := InspectPreview(context.Background(), NewClientFromAPI(api), "docpreview")
	require.NoError(t, err)
	assert.Equal(t, model.StatusStopped, info.Status)
	assert.False(t, info.Managed)
	assert.Empty(t, info.DocsDir)
}

func TestInspectPreview_Absent(t *testing.T) {
	api := &fakeAPI{inspectErr: notFound("docpreview")}

	info, err := InspectPreview(context.Background(), NewClientFromAPI(api), "docpreview")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbsent, info.Status)
	assert.Equal(t, "docpreview", info.ContainerName)
}

func TestInspectPreview_Error(t *testing.T) {
	api := &fakeAPI{inspectErr: errors.New("connection refused")}

	_, err := InspectPreview(context.Background(), NewClientFromAPI(api), "docpreview")
	assert.Error(t, err)
}

func TestListManagedPreviews(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelDocsDir:   "/work/a/target/doc",
	}
	api := &fakeAPI{list: []container.Summary{
		{
			ID:     "bbb",
			Names:  []string{"/zeta-docs"},
			Image:  model.DefaultImage,
			State:  "exited",
			Labels: labels,
		},
		{
			ID:     "aaa",
			Names:  []string{"/docpreview"},
			Image:  model.DefaultImage,
			State:  "running",
			Labels: labels,
			Ports: []types.Port{
				{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 9090, Type: "tcp"},
				{IP: "::", PrivatePort: 80, PublicPort: 9090, Type: "tcp"},
				{PrivatePort: 443, Type: "tcp"},
			},
		},
	}}

	previews, err := ListManagedPreviews(context.Background(), NewClientFromAPI(api))
	require.NoError(t, err)
	require.Len(t, previews, 2)

	assert.Equal(t, "docpreview", previews[0].ContainerName)
	assert.Equal(t, model.StatusRunning, previews[0].Status)
	assert.Equal(t, []model.PortMapping{{HostPort: 9090, ContainerPort: 80, Protocol: "tcp"}}, previews[0].Ports)

	assert.Equal(t, "zeta-docs", previews[1].ContainerName)
	assert.Equal(t, model.StatusStopped, previews[1].Status)
	assert.Empty(t, previews[1].Ports)

	assert.True(t, api.listOpts.All, "stopped previews must be listed too")
	assert.Equal(t, []string{LabelManagedBy + "=" + ManagedByValue}, api.listOpts.Filters.Get("label"))
}

func TestListManagedPreviews_Error(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("connection refused")}

	_, err := ListManagedPreviews(context.Background(), NewClientFromAPI(api))
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

func TestPortsFromBindings(t *testing.T) {
	ports := portsFromBindings(nat.PortMap{
		"443/tcp": []nat.PortBinding{{HostPort: "9443"}},
		"80/tcp":  []nat.PortBinding{{HostPort: "9090"}},
		"53/udp":  []nat.PortBinding{{HostPort: ""}},
	})

	assert.Equal(t, []model.PortMapping{
		{HostPort: 9090, ContainerPort: 80, Protocol: "tcp"},
		{HostPort: 9443, ContainerPort: 443, Protocol: "tcp"},
	}, ports)
	assert.Empty(t, portsFromBindings(nil))
}
