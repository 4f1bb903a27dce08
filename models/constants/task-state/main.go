package taskState

import (
	"strings"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

const (
	Unknown constants.TaskState = "unknown"

	Pending   constants.TaskState = "pending"
	Running   constants.TaskState = "running"
	Succeeded constants.TaskState = "succeeded"
	Failed    constants.TaskState = "failed"
)

func CastToTaskState(text string) constants.TaskState {
	switch strings.ToLower(text) {
	case "pending":
		return Pending
	case "running", "started", "in_progress":
		return Running
	case "succeeded", "success", "done":
		return Succeeded
	case "failed", "failure", "error":
		return Failed
	default:
		return Unknown
	}
}

func IsTerminal(s constants.TaskState) bool {
	return s == Succeeded || s == Failed
}
