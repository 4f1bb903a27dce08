package structs

import (
	"github.com/helena-bio/helix-frontend-sub000/models/tasks"
)

type AnnotationQueueStructure struct {
	Task     *tasks.TaskRecord
	FilePath string
}
