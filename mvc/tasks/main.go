package tasks

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	taskState "github.com/helena-bio/helix-frontend-sub000/models/constants/task-state"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	serverErrors "github.com/helena-bio/helix-frontend-sub000/models/dtos/errors"
)

// TasksGetStatus reports where a validation or processing run is at,
// including its result payload once it has succeeded.
func TasksGetStatus(c echo.Context) error {
	fmt.Printf("[%s] - TasksGetStatus hit!\n", time.Now())
	gc := c.(*contexts.HelixContext)

	taskId := c.QueryParam("taskId")

	task, found := gc.AnnotationService.GetTask(taskId)
	if !found {
		return c.JSON(http.StatusNotFound, serverErrors.CreateSimpleNotFound(
			fmt.Sprintf("No task found for id %s", taskId)))
	}

	respDTO := dtos.TaskStatusDto{
		TaskId: task.Id.String(),
		Status: task.State,
		Info: dtos.TaskInfoDto{
			Progress:        task.Progress,
			Stage:           task.Stage,
			CompletedStages: task.CompletedStages,
		},
		Ready:      taskState.IsTerminal(task.State),
		Successful: task.State == taskState.Succeeded,
		Failed:     task.State == taskState.Failed,
		Result:     task.Result,
	}
	if respDTO.Failed {
		respDTO.Error = task.Message
	}

	return c.JSON(http.StatusOK, respDTO)
}

func GetAllTaskRequests(c echo.Context) error {
	fmt.Printf("[%s] - GetAllTaskRequests hit!\n", time.Now())
	gc := c.(*contexts.HelixContext)

	return c.JSON(http.StatusOK, gc.AnnotationService.GetAllTasks())
}
