// Package httpserve is the JSON API surface of the panel.
package httpserve

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"docklite/internal/config"
	"docklite/internal/container"
	"docklite/internal/files"
	"docklite/internal/site"
	"docklite/internal/store"
	"docklite/internal/traefik"
	"docklite/pkg/logger"
)

// Server wires the subsystems behind the echo router.
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	store   *store.Store
	orch    *site.Orchestrator
	manager *container.Manager
	files   *files.Service
	traefik *traefik.Client
	log     *logger.Logger
}

func New(cfg *config.Config, st *store.Store, orch *site.Orchestrator, mgr *container.Manager, fsvc *files.Service, tfk *traefik.Client) *Server {
	s := &Server{
		echo:    echo.New(),
		cfg:     cfg,
		store:   st,
		orch:    orch,
		manager: mgr,
		files:   fsvc,
		traefik: tfk,
		log:     logger.GetLogger(),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.errorHandler

	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Auth.SessionSecret))))
	s.echo.Use(s.requestLogger)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")

	// Unauthenticated
	api.POST("/auth/setup", s.handleSetup)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/health", s.handleHealth)

	// Authenticated
	auth := api.Group("", s.requireLogin)
	auth.POST("/auth/logout", s.handleLogout)
	auth.GET("/auth/me", s.handleMe)
	auth.PUT("/auth/password", s.handleChangePassword)

	auth.GET("/sites", s.handleListSites)
	auth.POST("/sites", s.handleCreateSite)
	auth.DELETE("/sites/:id", s.handleDeleteSite)
	auth.POST("/sites/:id/start", s.handleSiteAction("start"))
	auth.POST("/sites/:id/stop", s.handleSiteAction("stop"))
	auth.POST("/sites/:id/restart", s.handleSiteAction("restart"))

	auth.GET("/databases", s.handleListDatabases)
	auth.GET("/databases/ports/suggest", s.handleSuggestPort)
	auth.POST("/databases", s.handleCreateDatabase)
	auth.GET("/databases/:id", s.handleGetDatabase)
	auth.DELETE("/databases/:id", s.handleDeleteDatabase)

	auth.GET("/folders", s.handleFolderTree)
	auth.POST("/folders", s.handleCreateFolder)
	auth.PUT("/folders/:id", s.handleRenameFolder)
	auth.PUT("/folders/:id/move", s.handleMoveFolder)
	auth.DELETE("/folders/:id", s.handleDeleteFolder)
	auth.POST("/folders/:id/containers", s.handleAssignContainer)
	auth.PUT("/folders/:id/containers/order", s.handleReorderContainers)

	auth.GET("/files", s.handleListFiles)
	auth.GET("/files/content", s.handleReadFile)
	auth.PUT("/files/content", s.handleWriteFile)
	auth.POST("/files/mkdir", s.handleMkdir)
	auth.DELETE("/files", s.handleDeleteFile)
	auth.POST("/files/move", s.handleMoveFile)

	auth.GET("/containers", s.handleListContainers)
	auth.GET("/containers/:id/logs", s.handleContainerLogs)
	auth.GET("/containers/:id/stats", s.handleContainerStats)

	auth.GET("/ssl/status", s.handleSSLStatus)

	// Admin only
	admin := auth.Group("", s.requireAdmin)
	admin.GET("/users", s.handleListUsers)
	admin.POST("/users", s.handleCreateUser)
	admin.DELETE("/users/:id", s.handleDeleteUser)
	admin.POST("/databases/:id/permissions", s.handleGrantDatabase)
	admin.DELETE("/databases/:id/permissions/:userID", s.handleRevokeDatabase)
	admin.GET("/system", s.handleSystemInfo)
	admin.POST("/system/reconcile", s.handleReconcile)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.log.Info("API server listening", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.log.Debug("Request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status)
		return err
	}
}
