package middleware

import (
	"net/http"

	"github.com/labstack/echo"
)

/*
Echo middleware to ensure a valid `taskId` HTTP query parameter was provided
*/
func MandateTaskIdAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// check for taskId query parameter
		taskId := c.QueryParam("taskId")
		if len(taskId) == 0 {
			// if no id was provided return an error
			return echo.NewHTTPError(http.StatusBadRequest, "Missing 'taskId' query parameter!")
		}

		return next(c)
	}
}
