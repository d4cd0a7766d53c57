package httpserve

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"docklite/internal/files"
)

func (s *Server) callerIdentity(c echo.Context) files.Identity {
	id := currentIdentity(c)
	return files.Identity{Username: id.Username, IsAdmin: id.IsAdmin}
}

func (s *Server) handleListFiles(c echo.Context) error {
	entries, err := s.files.List(c.QueryParam("path"), s.callerIdentity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleReadFile(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	data, err := s.files.Read(path, s.callerIdentity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"path":    path,
		"content": string(data),
	})
}

func (s *Server) handleWriteFile(c echo.Context) error {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	if err := s.files.Write(req.Path, []byte(req.Content), s.callerIdentity(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMkdir(c echo.Context) error {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	if err := s.files.Mkdir(req.Path, s.callerIdentity(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	if err := s.files.Delete(path, s.callerIdentity(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMoveFile(c echo.Context) error {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if req.From == "" || req.To == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from and to are required")
	}
	if err := s.files.Move(req.From, req.To, s.callerIdentity(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
