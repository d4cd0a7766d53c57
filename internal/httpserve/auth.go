package httpserve

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"docklite/pkg/validation"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const minPasswordLength = 8

// handleSetup creates the first admin account. It only works while the
// user table is empty; after that, user management is admin-only.
func (s *Server) handleSetup(c echo.Context) error {
	n, err := s.store.CountUsers()
	if err != nil {
		return err
	}
	if n > 0 {
		return echo.NewHTTPError(http.StatusForbidden, "setup already completed")
	}

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return badRequest(err)
	}
	if len(req.Password) < minPasswordLength {
		return badRequest(fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	user, err := s.store.CreateUser(req.Username, req.Password, true)
	if err != nil {
		return err
	}

	s.log.Info("Initial admin account created", "username", user.Username)
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}

	user, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		return err
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.HttpOnly = true
	sess.Options.SameSite = http.SameSiteLaxMode
	sess.Options.MaxAge = 7 * 24 * 60 * 60
	sess.Values["user_id"] = user.ID
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}

	s.log.Info("User logged in", "username", user.Username)
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleLogout(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	delete(sess.Values, "user_id")
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.store.GetUserByID(currentIdentity(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if len(req.NewPassword) < minPasswordLength {
		return badRequest(fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	id := currentIdentity(c)
	if _, err := s.store.Authenticate(id.Username, req.CurrentPassword); err != nil {
		return err
	}
	if err := s.store.UpdatePassword(id.UserID, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.store.ListUsers()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req struct {
		credentialsRequest
		IsAdmin bool `json:"is_admin"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return badRequest(err)
	}
	if len(req.Password) < minPasswordLength {
		return badRequest(fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	user, err := s.store.CreateUser(req.Username, req.Password, req.IsAdmin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleDeleteUser(c echo.Context) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if userID == currentIdentity(c).UserID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete your own account")
	}
	if err := s.store.DeleteUser(userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
