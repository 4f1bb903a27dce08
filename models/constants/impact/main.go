package impact

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.Impact = "unknown"

	High     constants.Impact = "HIGH"
	Moderate constants.Impact = "MODERATE"
	Low      constants.Impact = "LOW"
	Modifier constants.Impact = "MODIFIER"

	// filter sentinel matching every impact
	All constants.Impact = "all"
)

// Levels lists every predicted impact from most to least severe.
func Levels() []constants.Impact {
	return []constants.Impact{High, Moderate, Low, Modifier}
}

func CastToImpact(text string) constants.Impact {
	switch strings.ToLower(text) {
	case "high":
		return High
	case "moderate":
		return Moderate
	case "low":
		return Low
	case "modifier":
		return Modifier
	case "all":
		return All
	default:
		return Unknown
	}
}

// CastToLevel behaves like CastToImpact but never falls outside
// the four annotation levels; unannotated variants count as
// 'MODIFIER', the least consequential bucket.
func CastToLevel(text string) constants.Impact {
	casted := CastToImpact(text)
	if casted == Unknown || casted == All {
		return Modifier
	}
	return casted
}

// Priority ranks impacts for severity sorting, most severe highest.
func Priority(i constants.Impact) int {
	switch i {
	case High:
		return 4
	case Moderate:
		return 3
	case Low:
		return 2
	case Modifier:
		return 1
	default:
		return 0
	}
}
