package analysisType

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.AnalysisType = "unknown"

	Germline constants.AnalysisType = "germline"
	Somatic  constants.AnalysisType = "somatic"
)

func CastToAnalysisType(text string) constants.AnalysisType {
	switch strings.ToLower(text) {
	case "germline":
		return Germline
	case "somatic":
		return Somatic
	default:
		return Unknown
	}
}

func IsKnownAnalysisType(text string) bool {
	return CastToAnalysisType(text) != Unknown
}
