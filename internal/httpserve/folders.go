package httpserve

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"docklite/internal/folder"
	"docklite/pkg/validation"
)

// handleFolderTree returns the caller's folder hierarchy with container
// memberships attached, rebuilt from the flat list on every read.
func (s *Server) handleFolderTree(c echo.Context) error {
	id := currentIdentity(c)

	if _, err := s.store.EnsureDefaultFolder(id.UserID); err != nil {
		return err
	}

	folders, err := s.store.ListFoldersByUser(id.UserID)
	if err != nil {
		return err
	}
	byFolder, err := s.store.ContainersByFolder(id.UserID)
	if err != nil {
		return err
	}

	tree := folder.BuildTree(folders, byFolder)
	if tree == nil {
		tree = []*folder.Node{}
	}
	return c.JSON(http.StatusOK, tree)
}

func (s *Server) handleCreateFolder(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateFolderName(req.Name); err != nil {
		return badRequest(err)
	}
	if req.Name == folder.DefaultFolderName {
		return echo.NewHTTPError(http.StatusBadRequest, "folder name is reserved")
	}

	id := currentIdentity(c)
	folders, err := s.store.ListFoldersByUser(id.UserID)
	if err != nil {
		return err
	}

	depth := 0
	if req.ParentID != nil {
		if err := s.requireFolderOwnership(*req.ParentID, id); err != nil {
			return err
		}
		depth = folder.CalculateDepth(req.ParentID, folders)
		if depth > folder.MaxDepth {
			return echo.NewHTTPError(http.StatusBadRequest, "maximum folder depth exceeded")
		}
	}

	created, err := s.store.CreateFolder(id.UserID, req.Name, req.ParentID, depth)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleRenameFolder(c echo.Context) error {
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateFolderName(req.Name); err != nil {
		return badRequest(err)
	}
	if req.Name == folder.DefaultFolderName {
		return echo.NewHTTPError(http.StatusBadRequest, "folder name is reserved")
	}

	f, err := s.ownedFolder(folderID, c)
	if err != nil {
		return err
	}
	if f.IsDefault() {
		return echo.NewHTTPError(http.StatusBadRequest, "the Default folder cannot be renamed")
	}

	if err := s.store.RenameFolder(folderID, req.Name); err != nil {
		return err
	}
	renamed, err := s.store.GetFolder(folderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, renamed)
}

func (s *Server) handleMoveFolder(c echo.Context) error {
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		ParentID *int64 `json:"parent_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}

	id := currentIdentity(c)
	f, err := s.ownedFolder(folderID, c)
	if err != nil {
		return err
	}
	if f.IsDefault() {
		return echo.NewHTTPError(http.StatusBadRequest, "the Default folder cannot be moved")
	}
	if req.ParentID != nil {
		if err := s.requireFolderOwnership(*req.ParentID, id); err != nil {
			return err
		}
	}

	folders, err := s.store.ListFoldersByUser(id.UserID)
	if err != nil {
		return err
	}
	if err := folder.CanNest(folderID, req.ParentID, folders); err != nil {
		return err
	}

	newDepth := folder.CalculateDepth(req.ParentID, folders)
	if err := s.store.MoveFolder(folderID, req.ParentID, newDepth); err != nil {
		return err
	}
	moved, err := s.store.GetFolder(folderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, moved)
}

// handleDeleteFolder removes a folder; child folders and container
// memberships are removed with it, the containers themselves are
// untouched.
func (s *Server) handleDeleteFolder(c echo.Context) error {
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	f, err := s.ownedFolder(folderID, c)
	if err != nil {
		return err
	}
	if f.IsDefault() {
		return echo.NewHTTPError(http.StatusBadRequest, "the Default folder cannot be deleted")
	}

	if err := s.store.DeleteFolder(folderID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAssignContainer(c echo.Context) error {
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		ContainerID string `json:"container_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if req.ContainerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "container_id is required")
	}

	if _, err := s.ownedFolder(folderID, c); err != nil {
		return err
	}
	if err := s.store.AssignContainer(folderID, req.ContainerID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleReorderContainers(c echo.Context) error {
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		ContainerIDs []string `json:"container_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}

	if _, err := s.ownedFolder(folderID, c); err != nil {
		return err
	}
	if err := s.store.ReorderContainers(folderID, req.ContainerIDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ownedFolder loads a folder the caller owns (admins may touch any).
func (s *Server) ownedFolder(folderID int64, c echo.Context) (*folder.Folder, error) {
	id := currentIdentity(c)
	f, err := s.store.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin && f.UserID != id.UserID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return f, nil
}
