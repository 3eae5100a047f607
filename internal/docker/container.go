// container.go implements the SDK-side container operations: forced
// removal of the preview container, and inspection/listing for status.
//
// Every docpreview container carries the "docpreview.managed-by" label,
// which is how `docpreview status --all` finds previews started under
// other names (for example from a project with its own config file).
package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"

	"github.com/shinji-kodama/docpreview/internal/model"
)

// removalWaitTimeout bounds the wait for a removal the daemon started on
// its own (auto-remove of an exiting --rm container).
const removalWaitTimeout = 30 * time.Second

// RemoveContainer force-removes the container called name, killing it
// first if it is running (the SDK equivalent of `docker rm -f`).
//
// A container that does not exist is not an error: removal is idempotent
// so it can run unconditionally before every launch. Anonymous volumes
// are removed with the container, matching what --rm would have done.
func RemoveContainer(ctx context.Context, cli *Client, name string) error {
	err := cli.Inner().ContainerRemove(ctx, name, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err == nil || cerrdefs.IsNotFound(err) {
		return nil
	}
	// A container started with --rm may already be mid-removal after the
	// kill; Docker reports that as a conflict.
	if cerrdefs.IsConflict(err) && strings.Contains(err.Error(), "already in progress") {
		return waitRemoved(ctx, cli, name)
	}
	return model.WrapCLIError(
		model.ExitDockerNotRunning,
		fmt.Sprintf("failed to remove container %q", name),
		err,
	)
}

// waitRemoved blocks until the daemon finishes removing name, so the
// name is free for the next `docker run`.
func waitRemoved(ctx context.Context, cli *Client, name string) error {
	waitCtx, cancel := context.WithTimeout(ctx, removalWaitTimeout)
	defer cancel()

	statusCh, errCh := cli.Inner().ContainerWait(waitCtx, name, container.WaitConditionRemoved)
	select {
	case <-statusCh:
		return nil
	case err := <-errCh:
		if err == nil || cerrdefs.IsNotFound(err) {
			return nil
		}
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed waiting for container %q to be removed", name),
			err,
		)
	}
}

// InspectPreview reports the state of the container called name.
// A missing container yields StatusAbsent and no error.
func InspectPreview(ctx context.Context, cli *Client, name string) (*model.PreviewInfo, error) {
	resp, err := cli.Inner().ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return &model.PreviewInfo{ContainerName: name, Status: model.StatusAbsent}, nil
		}
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect container %q", name),
			err,
		)
	}

	info, err := inspectToInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("container %q: %w", name, err)
	}
	return info, nil
}

// ListManagedPreviews lists every container, running or not, that carries
// docpreview's managed-by label. Filtering happens on the daemon side.
func ListManagedPreviews(ctx context.Context, cli *Client) ([]model.PreviewInfo, error) {
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
		),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.PreviewInfo, 0, len(containers))
	for _, c := range containers {
		info, err := summaryToInfo(c)
		if err != nil {
			return nil, err
		}
		result = append(result, *info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ContainerName < result[j].ContainerName
	})
	return result, nil
}

// inspectToInfo maps an inspect response onto the domain model.
// Ports come from HostConfig.PortBindings so a stopped container still
// reports what it would publish.
func inspectToInfo(resp container.InspectResponse) (*model.PreviewInfo, error) {
	info := &model.PreviewInfo{Status: model.StatusStopped}

	if resp.ContainerJSONBase != nil {
		info.ContainerID = resp.ID
		info.ContainerName = strings.TrimPrefix(resp.Name, "/")
		if resp.State != nil && resp.State.Running {
			info.Status = model.StatusRunning
		}
		if resp.HostConfig != nil {
			info.Ports = portsFromBindings(resp.HostConfig.PortBindings)
		}
	}

	var labels map[string]string
	if resp.Config != nil {
		info.Image = resp.Config.Image
		labels = resp.Config.Labels
	}

	meta, err := ParseLabels(labels)
	if err != nil {
		return nil, err
	}
	info.Managed = meta.Managed
	info.DocsDir = meta.DocsDir
	info.CreatedAt = meta.CreatedAt

	return info, nil
}

// summaryToInfo maps a ContainerList entry onto the domain model.
// Docker prefixes names with "/"; it is stripped for display.
func summaryToInfo(c container.Summary) (*model.PreviewInfo, error) {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	status := model.StatusStopped
	if string(c.State) == "running" {
		status = model.StatusRunning
	}

	info := &model.PreviewInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Image:         c.Image,
		Status:        status,
	}

	seen := make(map[string]bool)
	for _, p := range c.Ports {
		if p.PublicPort == 0 {
			continue
		}
		mapping := model.PortMapping{
			HostPort:      int(p.PublicPort),
			ContainerPort: int(p.PrivatePort),
			Protocol:      p.Type,
		}
		// IPv4 and IPv6 bindings of the same port are listed separately.
		if key := mapping.String(); !seen[key] {
			seen[key] = true
			info.Ports = append(info.Ports, mapping)
		}
	}
	sortPorts(info.Ports)

	meta, err := ParseLabels(c.Labels)
	if err != nil {
		return nil, fmt.Errorf("container %q: %w", name, err)
	}
	info.Managed = meta.Managed
	info.DocsDir = meta.DocsDir
	info.CreatedAt = meta.CreatedAt

	return info, nil
}

// portsFromBindings flattens a nat.PortMap into port mappings, one per
// distinct host port.
func portsFromBindings(bindings nat.PortMap) []model.PortMapping {
	var ports []model.PortMapping
	seen := make(map[string]bool)

	for containerPort, hostBindings := range bindings {
		for _, b := range hostBindings {
			hostPort, err := nat.ParsePort(b.HostPort)
			if err != nil || hostPort == 0 {
				continue
			}
			mapping := model.PortMapping{
				HostPort:      hostPort,
				ContainerPort: containerPort.Int(),
				Protocol:      containerPort.Proto(),
			}
			if key := mapping.String(); !seen[key] {
				seen[key] = true
				ports = append(ports, mapping)
			}
		}
	}

	sortPorts(ports)
	return ports
}

func sortPorts(ports []model.PortMapping) {
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].HostPort != ports[j].HostPort {
			return ports[i].HostPort < ports[j].HostPort
		}
		return ports[i].Protocol < ports[j].Protocol
	})
}
