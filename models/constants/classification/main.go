package classification

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.Classification = "unknown"

	Pathogenic       constants.Classification = "Pathogenic"
	LikelyPathogenic constants.Classification = "Likely Pathogenic"
	Uncertain        constants.Classification = "Uncertain Significance"
	LikelyBenign     constants.Classification = "Likely Benign"
	Benign           constants.Classification = "Benign"

	// filter sentinel matching every tier
	All constants.Classification = "all"
)

// Tiers lists every ACMG tier from most to least severe.
func Tiers() []constants.Classification {
	return []constants.Classification{
		Pathogenic, LikelyPathogenic, Uncertain, LikelyBenign, Benign,
	}
}

// CastToClassification maps free-form clinical significance text,
// including raw ClinVar CLNSIG tokens, onto an ACMG tier. Compound
// CLNSIG values such as 'Pathogenic/Likely_pathogenic' collapse to
// their more severe side, and conflicting or unrecognized records
// land on 'Uncertain Significance'.
func CastToClassification(text string) constants.Classification {
	normalized := strings.ToLower(strings.ReplaceAll(text, "_", " "))

	switch normalized {
	case "pathogenic", "pathogenic/likely pathogenic":
		return Pathogenic
	case "likely pathogenic":
		return LikelyPathogenic
	case "uncertain significance", "uncertain", "vus",
		"conflicting interpretations of pathogenicity",
		"conflicting classifications of pathogenicity":
		return Uncertain
	case "likely benign", "benign/likely benign":
		return LikelyBenign
	case "benign":
		return Benign
	case "all":
		return All
	case "":
		return Uncertain
	default:
		return Unknown
	}
}

// CastToTier behaves like CastToClassification but never falls
// outside the five ACMG tiers, making it safe for ingest paths
// where every variant must land in exactly one bucket.
func CastToTier(text string) constants.Classification {
	casted := CastToClassification(text)
	if casted == Unknown || casted == All {
		return Uncertain
	}
	return casted
}

// Priority ranks tiers for severity sorting, most severe highest.
func Priority(c constants.Classification) int {
	switch c {
	case Pathogenic:
		return 5
	case LikelyPathogenic:
		return 4
	case Uncertain:
		return 3
	case LikelyBenign:
		return 2
	case Benign:
		return 1
	default:
		return 0
	}
}
