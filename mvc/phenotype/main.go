package phenotype

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	serverErrors "github.com/helena-bio/helix-frontend-sub000/models/dtos/errors"
)

// PhenotypeMatching scores the supplied genes (or every known gene)
// against a set of clinical phenotype terms.
func PhenotypeMatching(c echo.Context) error {
	fmt.Printf("[%s] - PhenotypeMatching hit!\n", time.Now())
	gc := c.(*contexts.HelixContext)

	var requestDto dtos.PhenotypeMatchRequestDto
	if bindErr := c.Bind(&requestDto); bindErr != nil {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest("Malformed request body!"))
	}
	if len(requestDto.Terms) == 0 {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest("Provide at least one phenotype term!"))
	}

	matches := gc.MatchingService.Match(requestDto.Terms, requestDto.Genes)

	return c.JSON(http.StatusOK, dtos.PhenotypeMatchResponseDto{
		Status:  200,
		Message: "Success",
		Matches: matches,
	})
}
