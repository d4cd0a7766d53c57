package httpserve

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"docklite/internal/site"
	"docklite/internal/store"
	"docklite/pkg/validation"
)

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (s *Server) handleListSites(c echo.Context) error {
	id := currentIdentity(c)

	var (
		sites []*store.Site
		err   error
	)
	if id.IsAdmin {
		sites, err = s.store.ListSites()
	} else {
		sites, err = s.store.ListSitesByUser(id.UserID)
	}
	if err != nil {
		return err
	}
	if sites == nil {
		sites = []*store.Site{}
	}
	return c.JSON(http.StatusOK, sites)
}

func (s *Server) handleCreateSite(c echo.Context) error {
	var req struct {
		Domain             string `json:"domain"`
		Type               string `json:"type"`
		Port               int    `json:"port"`
		FolderID           *int64 `json:"folder_id"`
		CreateDefaultFiles bool   `json:"create_default_files"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateDomain(req.Domain); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateSiteType(req.Type); err != nil {
		return badRequest(err)
	}
	// Port 0 means the template default.
	if req.Port < 0 || req.Port > 65535 {
		return echo.NewHTTPError(http.StatusBadRequest, "port must be between 0 and 65535")
	}

	id := currentIdentity(c)
	if req.FolderID != nil {
		if err := s.requireFolderOwnership(*req.FolderID, id); err != nil {
			return err
		}
	}

	created, err := s.orch.CreateSite(c.Request().Context(), site.CreateSiteParams{
		Domain:             req.Domain,
		Type:               req.Type,
		UserID:             id.UserID,
		FolderID:           req.FolderID,
		Port:               req.Port,
		CreateDefaultFiles: req.CreateDefaultFiles,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleDeleteSite(c echo.Context) error {
	siteID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.requireSiteOwnership(siteID, currentIdentity(c)); err != nil {
		return err
	}
	if err := s.orch.DeleteSite(c.Request().Context(), siteID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleSiteAction starts, stops, or restarts a site's container and
// records the resulting status.
func (s *Server) handleSiteAction(action string) echo.HandlerFunc {
	return func(c echo.Context) error {
		siteID, err := paramID(c, "id")
		if err != nil {
			return err
		}
		row, err := s.requireSiteOwnership(siteID, currentIdentity(c))
		if err != nil {
			return err
		}
		if row.ContainerID == nil {
			return echo.NewHTTPError(http.StatusConflict, "site has no container")
		}

		ctx := c.Request().Context()
		rt := s.manager.Runtime()
		status := store.SiteStatusRunning

		switch action {
		case "start":
			err = rt.StartContainer(ctx, *row.ContainerID)
		case "stop":
			err = rt.StopContainer(ctx, *row.ContainerID)
			status = store.SiteStatusStopped
		case "restart":
			err = rt.RestartContainer(ctx, *row.ContainerID)
		}
		if err != nil {
			return err
		}

		if err := s.store.UpdateSiteStatus(row.ID, status); err != nil {
			return err
		}
		updated, err := s.store.GetSiteByID(row.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, updated)
	}
}

// requireSiteOwnership loads a site and rejects callers who neither own
// it nor hold admin rights. Non-owners get a 404, not a 403, so site
// ids don't leak.
func (s *Server) requireSiteOwnership(siteID int64, id identity) (*store.Site, error) {
	row, err := s.store.GetSiteByID(siteID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin && row.UserID != id.UserID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return row, nil
}

func (s *Server) requireFolderOwnership(folderID int64, id identity) error {
	f, err := s.store.GetFolder(folderID)
	if err != nil {
		return err
	}
	if !id.IsAdmin && f.UserID != id.UserID {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return nil
}
