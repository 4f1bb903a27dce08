package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
)

/*
Echo middleware to calibrate the optional `page` and `pageSize` HTTP query parameters
*/
func CalibrateOptionalPagingAttributes(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.HelixContext)

		// defaults
		gc.Page = 1
		gc.PageSize = gc.Config.Pipeline.PageSize

		// check for page query parameter
		pageQP := c.QueryParam("page")
		if len(pageQP) > 0 {
			i, conversionErr := strconv.Atoi(pageQP)
			if conversionErr != nil || i <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "Please provide a 'page' greater than 0!")
			}
			gc.Page = i
		}

		// check for pageSize query parameter
		pageSizeQP := c.QueryParam("pageSize")
		if len(pageSizeQP) > 0 {
			i, conversionErr := strconv.Atoi(pageSizeQP)
			if conversionErr != nil || i <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "Please provide a 'pageSize' greater than 0!")
			}
			gc.PageSize = i
		}

		return next(gc)
	}
}
