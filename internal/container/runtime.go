// Package container wraps the Docker Engine API behind a small runtime
// interface and a manager that provisions and tracks DockLite-managed
// containers.
package container

import (
	"context"
	"time"

	"docklite/internal/template"
)

// PortMapping is a published host→container port pair.
type PortMapping struct {
	HostPort      int `json:"host_port"`
	ContainerPort int `json:"container_port"`
}

// Container is the runtime-agnostic view of a container.
type Container struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Image   string            `json:"image"`
	Status  string            `json:"status"`
	State   string            `json:"state"`
	Created time.Time         `json:"created"`
	Ports   []PortMapping     `json:"ports"`
	Labels  map[string]string `json:"labels"`
}

// Running reports whether the container state is running.
func (c *Container) Running() bool {
	return c.State == "running"
}

// Stats is a single CPU/memory sample for a running container.
type Stats struct {
	CPUPercent    float64 `json:"cpu"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryLimit   uint64  `json:"memory_limit"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Runtime is the contract the manager needs from a container engine.
type Runtime interface {
	// Lifecycle
	CreateContainer(ctx context.Context, spec template.Spec) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string) error
	RestartContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string, force bool) error

	// Inspection
	ListContainers(ctx context.Context, all bool) ([]*Container, error)
	ListManaged(ctx context.Context, all bool) ([]*Container, error)
	InspectContainer(ctx context.Context, containerID string) (*Container, error)
	ContainerLogs(ctx context.Context, containerID string, tail int) (string, error)
	ContainerStats(ctx context.Context, containerID string) (*Stats, error)

	// Images
	PullImage(ctx context.Context, imageRef string) error
	ImageExists(ctx context.Context, imageRef string) (bool, error)

	// Networks
	EnsureNetwork(ctx context.Context, name string) error

	// Engine information
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}
