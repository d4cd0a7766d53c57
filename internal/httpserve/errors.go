package httpserve

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"docklite/internal/folder"
	"docklite/internal/pathguard"
	"docklite/internal/site"
	"docklite/internal/store"
)

// errorHandler maps domain errors onto HTTP statuses and renders every
// error as JSON. Path resolution errors carry their own status so the
// escape/not-found distinction decided during resolution survives to
// the response.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	var pathErr *pathguard.PathError
	var folderErr *folder.ValidationError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &pathErr):
		code = pathErr.Status
		message = pathErr.Message
	case errors.As(err, &folderErr):
		code = http.StatusBadRequest
		message = folderErr.Message
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
		message = "not found"
	case errors.Is(err, store.ErrInvalidCredentials):
		code = http.StatusUnauthorized
		message = "invalid credentials"
	case errors.Is(err, site.ErrSiteExists), errors.Is(err, site.ErrDatabaseExists),
		errors.Is(err, store.ErrFolderExists):
		code = http.StatusConflict
		message = err.Error()
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	}

	if code >= http.StatusInternalServerError {
		s.log.Error("Request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err)
	}

	if err := c.JSON(code, map[string]string{"error": message}); err != nil {
		s.log.Error("Failed to write error response", "error", err)
	}
}

// badRequest wraps client input errors (validation failures, malformed
// bodies) as 400s.
func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
