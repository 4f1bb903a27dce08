package middleware

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
)

/*
Echo middleware to ensure a valid `sessionId` HTTP query parameter was provided
*/
func MandateSessionIdAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.HelixContext)

		// check for sessionId query parameter
		sessionId := c.QueryParam("sessionId")
		if len(sessionId) == 0 {
			// if no id was provided return an error
			return echo.NewHTTPError(http.StatusBadRequest, "Missing 'sessionId' query parameter!")
		}

		gc.SessionId = sessionId
		return next(gc)
	}
}
