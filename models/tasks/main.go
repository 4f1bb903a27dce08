package tasks

import (
	"github.com/google/uuid"

	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

// TaskRecord tracks one server-side validation or processing run
// from creation to its terminal state.
type TaskRecord struct {
	Id        uuid.UUID           `json:"id"`
	SessionId string              `json:"sessionId"`
	Kind      constants.TaskKind  `json:"kind"`
	State     constants.TaskState `json:"state"`
	Message   string              `json:"message"`
	CreatedAt string              `json:"createdAt"`
	UpdatedAt string              `json:"updatedAt"`

	Progress        float64  `json:"progress"`
	Stage           string   `json:"stage"`
	CompletedStages []string `json:"completedStages"`

	Result map[string]interface{} `json:"result,omitempty"`
}

type TaskResponseDTO struct {
	Id      uuid.UUID           `json:"id"`
	Kind    constants.TaskKind  `json:"kind"`
	State   constants.TaskState `json:"state"`
	Message string              `json:"message"`
}
