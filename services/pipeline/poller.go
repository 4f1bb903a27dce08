package pipeline

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	taskState "github.com/helena-bio/helix-frontend-sub000/models/constants/task-state"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	"github.com/helena-bio/helix-frontend-sub000/services"
)

// maximum number of consecutive failed status fetches tolerated
// before a task is declared unreachable
const maxConsecutiveFetchFailures = 5

type TaskUpdate struct {
	TaskId string
	Status *dtos.TaskStatusDto
	Err    error
}

// TaskPoller watches one server-side task at a fixed cadence. The
// cadence never backs off; a review session is interactive and the
// status endpoint is cheap.
type TaskPoller struct {
	Api      *services.ApiService
	Interval time.Duration
	Logger   zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewTaskPoller(api *services.ApiService, interval time.Duration, logger zerolog.Logger) *TaskPoller {
	return &TaskPoller{
		Api:      api,
		Interval: interval,
		Logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Watch polls until the task reaches a terminal state, the fetch
// failure budget runs out, or Stop is called. Every successful poll
// is delivered to onUpdate tagged with the task id, so a consumer
// that has since moved on to another task can discard the update.
// Watch blocks; callers run it on its own goroutine.
func (p *TaskPoller) Watch(taskId string, onUpdate func(TaskUpdate)) {
	defer close(p.done)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	// poll immediately, then on every tick
	for {
		status, fetchErr := p.Api.FetchTaskStatus(taskId)
		if fetchErr != nil {
			consecutiveFailures++
			p.Logger.Warn().
				Err(fetchErr).
				Str("taskId", taskId).
				Int("consecutiveFailures", consecutiveFailures).
				Msg("task status fetch failed")

			if consecutiveFailures >= maxConsecutiveFetchFailures {
				onUpdate(TaskUpdate{TaskId: taskId, Err: fetchErr})
				return
			}
		} else {
			consecutiveFailures = 0

			status.Status = taskState.CastToTaskState(string(status.Status))
			onUpdate(TaskUpdate{TaskId: taskId, Status: status})

			if taskState.IsTerminal(status.Status) {
				return
			}
		}

		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the watch after the in-flight poll, if any. Safe to call
// more than once and from any goroutine.
func (p *TaskPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Done is closed once the watch loop has fully wound down.
func (p *TaskPoller) Done() <-chan struct{} {
	return p.done
}
