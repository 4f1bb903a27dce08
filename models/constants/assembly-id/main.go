package assemblyId

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.AssemblyId = "Unknown"

	GRCh38 constants.AssemblyId = "GRCh38"
	GRCh37 constants.AssemblyId = "GRCh37"
	Other  constants.AssemblyId = "Other"
)

func CastToAssemblyId(text string) constants.AssemblyId {
	switch strings.ToLower(text) {
	case "grch38", "hg38":
		return GRCh38
	case "grch37", "hg19":
		return GRCh37
	case "other":
		return Other
	default:
		return Unknown
	}
}

func IsKnownAssemblyId(text string) bool {
	// attempt to cast to assemblyId and
	// return if unknown assemblyId
	return CastToAssemblyId(text) != Unknown
}

// IsPrimaryAssembly reports whether an assembly is the build the
// annotation references are curated against. Files aligned to any
// other build surface a QC warning before review can begin.
func IsPrimaryAssembly(id constants.AssemblyId) bool {
	return id == GRCh38
}
