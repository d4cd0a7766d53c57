package httpserve

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleSSLStatus(c echo.Context) error {
	statuses, err := s.traefik.SSLStatus(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"sites": statuses})
}

func (s *Server) handleSystemInfo(c echo.Context) error {
	ctx := c.Request().Context()
	rt := s.manager.Runtime()

	info := map[string]any{"docker": "unreachable"}
	if err := rt.Ping(ctx); err == nil {
		info["docker"] = "ok"
		if version, err := rt.Version(ctx); err == nil {
			info["docker_version"] = version
		}
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleReconcile(c echo.Context) error {
	report, err := s.orch.Reconcile(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
