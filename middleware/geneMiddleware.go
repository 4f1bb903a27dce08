package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
)

/*
Echo middleware to ensure a valid `gene` HTTP query parameter was provided
*/
func MandateGeneAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.HelixContext)

		// check for gene query parameter
		gene := c.QueryParam("gene")
		if len(gene) == 0 {
			// if no symbol was provided return an error
			return echo.NewHTTPError(http.StatusBadRequest, "Missing 'gene' query parameter!")
		}

		// gene symbols are indexed upper-case
		gc.Gene = strings.ToUpper(strings.TrimSpace(gene))
		return next(gc)
	}
}
