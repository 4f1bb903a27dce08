package middleware

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	assid "github.com/helena-bio/helix-frontend-sub000/models/constants/assembly-id"
)

/*
Echo middleware to calibrate an optionally provided `assemblyId` attribute,
arriving either as a query parameter or as an upload form value
*/
func ValidateOptionalAssemblyIdAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.HelixContext)

		assemblyId := c.QueryParam("assemblyId")
		if len(assemblyId) == 0 {
			assemblyId = c.FormValue("assemblyId")
		}
		if len(assemblyId) == 0 {
			// nothing to calibrate
			return next(gc)
		}

		if !assid.IsKnownAssemblyId(assemblyId) {
			// if an id was provided, it has to be a known genome build
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown assemblyId!")
		}

		gc.AssemblyId = assid.CastToAssemblyId(assemblyId)
		return next(gc)
	}
}
