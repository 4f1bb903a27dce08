package sort

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Undefined  constants.SortDirection = ""
	Ascending  constants.SortDirection = "asc"
	Descending constants.SortDirection = "desc"
)

const (
	BySymbol         constants.SortField = "symbol"
	ByTotalVariants  constants.SortField = "total_variants"
	ByClassification constants.SortField = "classification"
	ByImpact         constants.SortField = "impact"
)

func CastToSortDirection(text string) constants.SortDirection {
	switch strings.ToLower(text) {
	case "asc":
		return Ascending
	case "desc":
		return Descending
	default:
		return Undefined
	}
}

func CastToSortField(text string) constants.SortField {
	switch strings.ToLower(text) {
	case "symbol":
		return BySymbol
	case "total_variants", "total":
		return ByTotalVariants
	case "classification":
		return ByClassification
	case "impact":
		return ByImpact
	default:
		return BySymbol
	}
}
