package genes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetb/go-linq"
	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	"github.com/helena-bio/helix-frontend-sub000/models"
	s "github.com/helena-bio/helix-frontend-sub000/models/constants/sort"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	serverErrors "github.com/helena-bio/helix-frontend-sub000/models/dtos/errors"
	"github.com/helena-bio/helix-frontend-sub000/mvc"
	"github.com/helena-bio/helix-frontend-sub000/services/results"
)

// GenesSearch serves one page of a session's per-gene summaries,
// optionally narrowed by a symbol substring and re-ordered by one of
// the review table columns.
func GenesSearch(c echo.Context) error {
	fmt.Printf("[%s] - GenesSearch hit!\n", time.Now())
	gc := c.(*contexts.HelixContext)
	_, repository, _, sessionId := mvc.RetrieveCommonElements(c)

	// Name search term
	term := c.QueryParam("term")

	sortBy := s.CastToSortField(c.QueryParam("sortBy"))
	direction := s.CastToSortDirection(c.QueryParam("dir"))

	summaries, getErr := repository.GetGenes(sessionId)
	if getErr != nil {
		return c.JSON(http.StatusNotFound, serverErrors.CreateSimpleNotFound(
			fmt.Sprintf("No annotated session found for id %s", sessionId)))
	}

	// narrow by case-insensitive symbol substring
	filtered := summaries
	if len(term) > 0 {
		loweredTerm := strings.ToLower(term)
		filtered = []models.GeneSummary{}
		linq.From(summaries).WhereT(func(gene models.GeneSummary) bool {
			return strings.Contains(strings.ToLower(gene.Symbol), loweredTerm)
		}).ToSlice(&filtered)
	}

	// TODO: move SortSummaries out of the results package into a
	// neutral home shared by client and server
	sorted := results.SortSummaries(filtered, sortBy, direction)

	// page the ordering
	start := (gc.Page - 1) * gc.PageSize
	if start > len(sorted) {
		start = len(sorted)
	}
	end := start + gc.PageSize
	if end > len(sorted) {
		end = len(sorted)
	}

	entries := make([]dtos.GeneEntryDto, 0, end-start)
	for _, summary := range sorted[start:end] {
		entries = append(entries, dtos.GeneEntryDto{Summary: summary})
	}

	fmt.Printf("Found %d docs!\n", len(entries))

	return c.JSON(http.StatusOK, dtos.GenesResponseDto{
		Status:     200,
		Message:    "Success",
		Term:       term,
		Page:       gc.Page,
		PageSize:   gc.PageSize,
		TotalGenes: len(sorted),
		Count:      len(entries),
		Results:    entries,
	})
}
