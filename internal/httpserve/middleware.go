package httpserve

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const sessionName = "docklite_session"

// identity is the authenticated caller, pulled from the session by
// requireLogin and stashed in the request context.
type identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

func (s *Server) requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(sessionName, c)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "could not get session")
		}

		userID, ok := sess.Values["user_id"].(int64)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}

		// Re-read the user so privilege changes and deletions take
		// effect on the next request, not the next login.
		user, err := s.store.GetUserByID(userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}

		c.Set("identity", identity{
			UserID:   user.ID,
			Username: user.Username,
			IsAdmin:  user.IsAdmin,
		})
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !currentIdentity(c).IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

func currentIdentity(c echo.Context) identity {
	id, _ := c.Get("identity").(identity)
	return id
}
