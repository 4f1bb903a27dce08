package phase

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.Phase = "unknown"

	Selection       constants.Phase = "selection"
	Compressing     constants.Phase = "compressing"
	Uploading       constants.Phase = "uploading"
	Validating      constants.Phase = "validating"
	QcResults       constants.Phase = "qc_results"
	Processing      constants.Phase = "processing"
	FrontendLoading constants.Phase = "frontend_loading"
	Ready           constants.Phase = "ready"
	Error           constants.Phase = "error"
)

// ordered pipeline progression, excluding the
// out-of-band 'error' phase
var ordered = []constants.Phase{
	Selection, Compressing, Uploading, Validating,
	QcResults, Processing, FrontendLoading, Ready,
}

func CastToPhase(text string) constants.Phase {
	switch strings.ToLower(text) {
	case "selection":
		return Selection
	case "compressing":
		return Compressing
	case "uploading":
		return Uploading
	case "validating":
		return Validating
	case "qc_results":
		return QcResults
	case "processing":
		return Processing
	case "frontend_loading":
		return FrontendLoading
	case "ready":
		return Ready
	case "error":
		return Error
	default:
		return Unknown
	}
}

func IsKnownPhase(text string) bool {
	return CastToPhase(text) != Unknown
}

// Rank returns the position of a phase along the
// pipeline, or -1 for 'error' and anything unknown.
func Rank(p constants.Phase) int {
	for i, candidate := range ordered {
		if candidate == p {
			return i
		}
	}
	return -1
}

func IsTerminal(p constants.Phase) bool {
	return p == Ready || p == Error
}
