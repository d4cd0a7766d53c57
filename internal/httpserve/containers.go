package httpserve

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"docklite/internal/container"
)

const defaultLogTail = 200

// containerView is the list representation: runtime state plus the
// docklite metadata recovered from labels.
type containerView struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Image    string             `json:"image"`
	State    string             `json:"state"`
	Status   string             `json:"status"`
	Uptime   string             `json:"uptime"`
	Ports    string             `json:"ports"`
	Metadata container.Metadata `json:"metadata"`
}

func (s *Server) handleListContainers(c echo.Context) error {
	id := currentIdentity(c)

	list, err := s.manager.Runtime().ListManaged(c.Request().Context(), true)
	if err != nil {
		return err
	}

	now := time.Now()
	views := make([]containerView, 0, len(list))
	for _, ct := range list {
		meta := container.MetadataFromLabels(ct.Labels)
		if !id.IsAdmin && meta.UserID != 0 && meta.UserID != id.UserID {
			continue
		}

		uptime := "-"
		if ct.Running() {
			uptime = container.FormatUptime(ct.Created, now)
		}
		views = append(views, containerView{
			ID:       ct.ID,
			Name:     ct.Name,
			Image:    ct.Image,
			State:    ct.State,
			Status:   ct.Status,
			Uptime:   uptime,
			Ports:    container.FormatPorts(ct.Ports),
			Metadata: meta,
		})
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) handleContainerLogs(c echo.Context) error {
	containerID := c.Param("id")
	if err := s.requireContainerAccess(c, containerID); err != nil {
		return err
	}

	tail := defaultLogTail
	if raw := c.QueryParam("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid tail")
		}
		tail = n
	}

	logs, err := s.manager.Runtime().ContainerLogs(c.Request().Context(), containerID, tail)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"logs": logs})
}

func (s *Server) handleContainerStats(c echo.Context) error {
	containerID := c.Param("id")
	if err := s.requireContainerAccess(c, containerID); err != nil {
		return err
	}

	stats, err := s.manager.Runtime().ContainerStats(c.Request().Context(), containerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// requireContainerAccess restricts non-admins to containers labeled
// with their own user id. Containers without a user label (databases)
// are admin-only for log and stats access.
func (s *Server) requireContainerAccess(c echo.Context, containerID string) error {
	id := currentIdentity(c)
	if id.IsAdmin {
		return nil
	}

	ct, err := s.manager.Runtime().InspectContainer(c.Request().Context(), containerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	meta := container.MetadataFromLabels(ct.Labels)
	if meta.UserID != id.UserID {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return nil
}
