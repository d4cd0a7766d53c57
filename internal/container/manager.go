package container

import (
	"context"
	"fmt"
	"strconv"

	"docklite/internal/template"
	"docklite/pkg/logger"
)

// Metadata is the docklite identity a managed container carries in its
// labels.
type Metadata struct {
	Type     string `json:"type"`
	Domain   string `json:"domain"`
	SiteID   int64  `json:"site_id,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	FolderID *int64 `json:"folder_id,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`
}

// MetadataFromLabels decodes a managed container's labels. Unparseable
// numeric labels are left at their zero value.
func MetadataFromLabels(labels map[string]string) Metadata {
	meta := Metadata{
		Type:     labels[template.LabelType],
		Domain:   labels[template.LabelDomain],
		Database: labels[template.LabelDatabase],
		Username: labels[template.LabelUsername],
	}
	if v, err := strconv.ParseInt(labels[template.LabelSiteID], 10, 64); err == nil {
		meta.SiteID = v
	}
	if v, err := strconv.ParseInt(labels[template.LabelUserID], 10, 64); err == nil {
		meta.UserID = v
	}
	if raw, ok := labels[template.LabelFolderID]; ok && raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			meta.FolderID = &v
		}
	}
	return meta
}

// Manager provisions and tears down managed containers on top of a
// Runtime.
type Manager struct {
	runtime Runtime
	log     *logger.Logger
}

func NewManager(rt Runtime) *Manager {
	return &Manager{
		runtime: rt,
		log:     logger.GetLogger(),
	}
}

// Runtime exposes the underlying engine for callers that need direct
// lifecycle or inspection operations.
func (m *Manager) Runtime() Runtime {
	return m.runtime
}

// EnsureImage pulls the image only when it is not present locally.
func (m *Manager) EnsureImage(ctx context.Context, imageRef string) error {
	exists, err := m.runtime.ImageExists(ctx, imageRef)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.runtime.PullImage(ctx, imageRef)
}

// Provision creates and starts a container from a compiled spec. If the
// container cannot be started the created container is removed so no
// half-provisioned container is left behind.
func (m *Manager) Provision(ctx context.Context, spec template.Spec) (string, error) {
	if err := m.EnsureImage(ctx, spec.Image); err != nil {
		return "", err
	}

	id, err := m.runtime.CreateContainer(ctx, spec)
	if err != nil {
		return "", err
	}

	if err := m.runtime.StartContainer(ctx, id); err != nil {
		m.log.Warn("Start failed, removing container", "name", spec.Name, "error", err)
		if rmErr := m.runtime.RemoveContainer(ctx, id, true); rmErr != nil {
			m.log.Error("Failed to remove container after failed start", "id", id, "error", rmErr)
		}
		return "", fmt.Errorf("failed to start container %s: %w", spec.Name, err)
	}

	m.log.Info("Container provisioned", "name", spec.Name, "id", id[:12])
	return id, nil
}

// Deprovision stops and removes a managed container. Already-stopped
// containers are removed without error.
func (m *Manager) Deprovision(ctx context.Context, containerID string) error {
	if err := m.runtime.StopContainer(ctx, containerID); err != nil {
		m.log.Debug("Stop before remove failed", "id", containerID, "error", err)
	}
	return m.runtime.RemoveContainer(ctx, containerID, true)
}
