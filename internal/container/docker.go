package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"docklite/internal/template"
	"docklite/pkg/logger"
)

const stopTimeoutSeconds = 10

// DockerRuntime implements Runtime on top of the Docker Engine API.
type DockerRuntime struct {
	cli *client.Client
	log *logger.Logger
}

// NewDockerRuntime connects to the Docker daemon. An empty socketPath
// falls back to the environment (DOCKER_HOST or the default socket).
func NewDockerRuntime(socketPath string) (*DockerRuntime, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if socketPath != "" {
		opts = append(opts, client.WithHost("unix://"+socketPath))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerRuntime{
		cli: cli,
		log: logger.GetLogger(),
	}, nil
}

// Close releases the underlying client connection.
func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}

func (d *DockerRuntime) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

func (d *DockerRuntime) Version(ctx context.Context) (string, error) {
	v, err := d.cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get docker version: %w", err)
	}
	return v.Version, nil
}

// CreateContainer translates a compiled template spec into a Docker
// container. The container is created but not started.
func (d *DockerRuntime) CreateContainer(ctx context.Context, spec template.Spec) (string, error) {
	cfg := &dockercontainer.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Cmd:          spec.Cmd,
		WorkingDir:   spec.WorkingDir,
		ExposedPorts: spec.ExposedPorts,
		Labels:       spec.Labels,
	}

	hostCfg := &dockercontainer.HostConfig{
		Binds:        spec.Binds,
		PortBindings: spec.PortBindings,
	}
	if spec.RestartPolicy != "" {
		hostCfg.RestartPolicy = dockercontainer.RestartPolicy{
			Name: dockercontainer.RestartPolicyMode(spec.RestartPolicy),
		}
	}
	if spec.NetworkMode != "" {
		hostCfg.NetworkMode = dockercontainer.NetworkMode(spec.NetworkMode)
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}

	d.log.Debug("Container created", "name", spec.Name, "id", resp.ID[:12])
	return resp.ID, nil
}

func (d *DockerRuntime) StartContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStart(ctx, containerID, dockercontainer.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) StopContainer(ctx context.Context, containerID string) error {
	timeout := stopTimeoutSeconds
	err := d.cli.ContainerStop(ctx, containerID, dockercontainer.StopOptions{Timeout: &timeout})
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) RestartContainer(ctx context.Context, containerID string) error {
	timeout := stopTimeoutSeconds
	err := d.cli.ContainerRestart(ctx, containerID, dockercontainer.StopOptions{Timeout: &timeout})
	if err != nil {
		return fmt.Errorf("failed to restart container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	err := d.cli.ContainerRemove(ctx, containerID, dockercontainer.RemoveOptions{Force: force})
	if err != nil {
		return fmt.Errorf("failed to remove container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) ListContainers(ctx context.Context, all bool) ([]*Container, error) {
	return d.list(ctx, all, filters.Args{})
}

// ListManaged returns only containers carrying the docklite managed label.
func (d *DockerRuntime) ListManaged(ctx context.Context, all bool) ([]*Container, error) {
	f := filters.NewArgs()
	f.Add("label", template.LabelManaged+"=true")
	return d.list(ctx, all, f)
}

func (d *DockerRuntime) list(ctx context.Context, all bool, f filters.Args) ([]*Container, error) {
	summaries, err := d.cli.ContainerList(ctx, dockercontainer.ListOptions{
		All:     all,
		Filters: f,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	containers := make([]*Container, 0, len(summaries))
	for _, s := range summaries {
		c := &Container{
			ID:      s.ID,
			Image:   s.Image,
			Status:  s.Status,
			State:   s.State,
			Created: time.Unix(s.Created, 0),
			Labels:  s.Labels,
		}
		if len(s.Names) > 0 {
			c.Name = trimNamePrefix(s.Names[0])
		}
		for _, p := range s.Ports {
			if p.PublicPort == 0 {
				continue
			}
			c.Ports = append(c.Ports, PortMapping{
				HostPort:      int(p.PublicPort),
				ContainerPort: int(p.PrivatePort),
			})
		}
		containers = append(containers, c)
	}
	return containers, nil
}

func (d *DockerRuntime) InspectContainer(ctx context.Context, containerID string) (*Container, error) {
	resp, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", containerID, err)
	}

	c := &Container{
		ID:    resp.ID,
		Name:  trimNamePrefix(resp.Name),
		Image: resp.Config.Image,
		State: resp.State.Status,
	}
	c.Status = resp.State.Status
	c.Labels = resp.Config.Labels

	if created, err := time.Parse(time.RFC3339Nano, resp.Created); err == nil {
		c.Created = created
	}

	if resp.NetworkSettings != nil {
		for port, bindings := range resp.NetworkSettings.Ports {
			for _, b := range bindings {
				hostPort, err := strconv.Atoi(b.HostPort)
				if err != nil {
					continue
				}
				c.Ports = append(c.Ports, PortMapping{
					HostPort:      hostPort,
					ContainerPort: port.Int(),
				})
			}
		}
	}

	return c, nil
}

func (d *DockerRuntime) ContainerLogs(ctx context.Context, containerID string, tail int) (string, error) {
	opts := dockercontainer.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}

	reader, err := d.cli.ContainerLogs(ctx, containerID, opts)
	if err != nil {
		return "", fmt.Errorf("failed to get logs for container %s: %w", containerID, err)
	}
	defer reader.Close()

	// Container streams are multiplexed unless the container runs with a
	// TTY; demux stdout and stderr into a single buffer.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "", fmt.Errorf("failed to read logs for container %s: %w", containerID, err)
	}
	return buf.String(), nil
}

func (d *DockerRuntime) ContainerStats(ctx context.Context, containerID string) (*Stats, error) {
	resp, err := d.cli.ContainerStats(ctx, containerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for container %s: %w", containerID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for container %s: %w", containerID, err)
	}

	return parseStats(data)
}

func (d *DockerRuntime) PullImage(ctx context.Context, imageRef string) error {
	d.log.Info("Pulling image", "image", imageRef)

	reader, err := d.cli.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}

	d.log.Debug("Image pulled", "image", imageRef)
	return nil
}

func (d *DockerRuntime) ImageExists(ctx context.Context, imageRef string) (bool, error) {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, imageRef)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image %s: %w", imageRef, err)
	}
	return true, nil
}

// EnsureNetwork creates the named bridge network if it does not exist.
func (d *DockerRuntime) EnsureNetwork(ctx context.Context, name string) error {
	_, err := d.cli.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to inspect network %s: %w", name, err)
	}

	d.log.Info("Creating network", "name", name)
	_, err = d.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		return fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return nil
}

func trimNamePrefix(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
