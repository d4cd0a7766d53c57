package httpserve

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"docklite/internal/site"
	"docklite/internal/store"
	"docklite/pkg/validation"
)

// databaseResponse hides the stored password except on explicit single
// fetches by users with access.
type databaseResponse struct {
	*store.Database
	Password string `json:"password,omitempty"`
}

func (s *Server) handleListDatabases(c echo.Context) error {
	id := currentIdentity(c)

	var (
		dbs []*store.Database
		err error
	)
	if id.IsAdmin {
		dbs, err = s.store.ListDatabases()
	} else {
		dbs, err = s.store.ListDatabasesForUser(id.UserID)
	}
	if err != nil {
		return err
	}
	if dbs == nil {
		dbs = []*store.Database{}
	}
	return c.JSON(http.StatusOK, dbs)
}

// handleGetDatabase returns a single database including its connection
// password, for callers with access.
func (s *Server) handleGetDatabase(c echo.Context) error {
	dbID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	id := currentIdentity(c)
	db, err := s.store.GetDatabaseByID(dbID)
	if err != nil {
		return err
	}

	if !id.IsAdmin {
		ok, err := s.store.HasDatabaseAccess(db.ID, id.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
	}

	return c.JSON(http.StatusOK, databaseResponse{Database: db, Password: db.Password})
}

// handleSuggestPort returns the host port the next database would be
// assigned, so clients can show it before creating.
func (s *Server) handleSuggestPort(c echo.Context) error {
	port, err := s.store.NextAvailablePort()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"port": port})
}

func (s *Server) handleCreateDatabase(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateDatabaseName(req.Name); err != nil {
		return badRequest(err)
	}

	db, err := s.orch.CreateDatabase(c.Request().Context(), site.CreateDatabaseParams{
		Name:   req.Name,
		UserID: currentIdentity(c).UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, databaseResponse{Database: db, Password: db.Password})
}

func (s *Server) handleDeleteDatabase(c echo.Context) error {
	dbID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	id := currentIdentity(c)
	if !id.IsAdmin {
		ok, err := s.store.HasDatabaseAccess(dbID, id.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
	}

	if err := s.orch.DeleteDatabase(c.Request().Context(), dbID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGrantDatabase(c echo.Context) error {
	dbID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}

	if _, err := s.store.GetDatabaseByID(dbID); err != nil {
		return err
	}
	if _, err := s.store.GetUserByID(req.UserID); err != nil {
		return err
	}
	if err := s.store.GrantDatabaseAccess(dbID, req.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRevokeDatabase(c echo.Context) error {
	dbID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userID")
	if err != nil {
		return err
	}
	if err := s.store.RevokeDatabaseAccess(dbID, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
