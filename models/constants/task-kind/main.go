package taskKind

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.TaskKind = "unknown"

	Validation constants.TaskKind = "validation"
	Processing constants.TaskKind = "processing"
)

func CastToTaskKind(text string) constants.TaskKind {
	switch strings.ToLower(text) {
	case "validation":
		return Validation
	case "processing":
		return Processing
	default:
		return Unknown
	}
}
