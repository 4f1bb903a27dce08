package pipeline

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	taskState "github.com/helena-bio/helix-frontend-sub000/models/constants/task-state"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	"github.com/helena-bio/helix-frontend-sub000/services"
)

func pollerApi(baseUrl string) *services.ApiService {
	var cfg models.Config
	cfg.Api.Url = baseUrl
	cfg.Pipeline.UploadChunkBytes = 1024
	return services.NewApiService(&cfg)
}

// statusScript serves one canned status per request, holding the last
// entry once the script runs out.
func statusScript(t *testing.T, taskId string, script []dtos.TaskStatusDto, calls *int, mux *sync.Mutex) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.Lock()
		defer mux.Unlock()

		assert.Equal(t, "/tasks/status", r.URL.Path)
		assert.Equal(t, taskId, r.URL.Query().Get("taskId"))

		step := *calls
		if step >= len(script) {
			step = len(script) - 1
		}
		*calls++

		json.NewEncoder(w).Encode(script[step])
	}))
}

func TestTaskPollerWatch(t *testing.T) {
	t.Run("should deliver every poll and return on the terminal state", func(t *testing.T) {
		var mux sync.Mutex
		calls := 0

		script := []dtos.TaskStatusDto{
			{TaskId: "task-1", Status: taskState.Running, Info: dtos.TaskInfoDto{Progress: 0.2, Stage: "open"}},
			{TaskId: "task-1", Status: taskState.Running, Info: dtos.TaskInfoDto{Progress: 0.7, Stage: "annotate"}},
			{TaskId: "task-1", Status: taskState.Succeeded, Info: dtos.TaskInfoDto{Progress: 1}, Ready: true, Successful: true},
		}

		server := statusScript(t, "task-1", script, &calls, &mux)
		defer server.Close()

		poller := NewTaskPoller(pollerApi(server.URL), 10*time.Millisecond, logx.NewLogger("poller-test", false))

		updates := []TaskUpdate{}
		poller.Watch("task-1", func(update TaskUpdate) {
			updates = append(updates, update)
		})

		// Watch has returned, so Done must already be closed
		select {
		case <-poller.Done():
		default:
			t.Fatal("done channel still open after Watch returned")
		}

		assert.Equal(t, 3, len(updates))
		assert.Equal(t, 0.2, updates[0].Status.Info.Progress)
		assert.Equal(t, "annotate", updates[1].Status.Info.Stage)
		assert.Equal(t, taskState.Succeeded, updates[2].Status.Status)
		assert.True(t, taskState.IsTerminal(updates[2].Status.Status))

		for _, update := range updates {
			assert.Equal(t, "task-1", update.TaskId)
			assert.Nil(t, update.Err)
		}

		mux.Lock()
		assert.Equal(t, 3, calls)
		mux.Unlock()
	})

	t.Run("should normalize backend status spellings", func(t *testing.T) {
		var mux sync.Mutex
		calls := 0

		script := []dtos.TaskStatusDto{
			{TaskId: "task-2", Status: "SUCCESS", Info: dtos.TaskInfoDto{Progress: 1}},
		}

		server := statusScript(t, "task-2", script, &calls, &mux)
		defer server.Close()

		poller := NewTaskPoller(pollerApi(server.URL), 10*time.Millisecond, logx.NewLogger("poller-test", false))

		updates := []TaskUpdate{}
		poller.Watch("task-2", func(update TaskUpdate) {
			updates = append(updates, update)
		})

		assert.Equal(t, 1, len(updates))
		assert.Equal(t, taskState.Succeeded, updates[0].Status.Status)
	})

	t.Run("should give up after five consecutive fetch failures", func(t *testing.T) {
		var mux sync.Mutex
		calls := 0

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mux.Lock()
			calls++
			mux.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		poller := NewTaskPoller(pollerApi(server.URL), 5*time.Millisecond, logx.NewLogger("poller-test", false))

		updates := []TaskUpdate{}
		poller.Watch("unreachable", func(update TaskUpdate) {
			updates = append(updates, update)
		})

		assert.Equal(t, 1, len(updates))
		assert.NotNil(t, updates[0].Err)
		assert.Nil(t, updates[0].Status)
		assert.Equal(t, "unreachable", updates[0].TaskId)

		mux.Lock()
		assert.Equal(t, 5, calls)
		mux.Unlock()
	})

	t.Run("should reset the failure budget after a good poll", func(t *testing.T) {
		var mux sync.Mutex
		calls := 0

		running, _ := json.Marshal(dtos.TaskStatusDto{
			TaskId: "task-3", Status: taskState.Running, Info: dtos.TaskInfoDto{Progress: 0.5},
		})
		succeeded, _ := json.Marshal(dtos.TaskStatusDto{
			TaskId: "task-3", Status: taskState.Succeeded, Info: dtos.TaskInfoDto{Progress: 1},
		})

		// four failures, one good poll, four more failures, then done;
		// neither failure run reaches the budget of five on its own
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mux.Lock()
			step := calls
			calls++
			mux.Unlock()

			switch {
			case step < 4:
				w.WriteHeader(http.StatusInternalServerError)
			case step == 4:
				w.Write(running)
			case step < 9:
				w.WriteHeader(http.StatusInternalServerError)
			default:
				w.Write(succeeded)
			}
		}))
		defer server.Close()

		poller := NewTaskPoller(pollerApi(server.URL), 5*time.Millisecond, logx.NewLogger("poller-test", false))

		updates := []TaskUpdate{}
		poller.Watch("task-3", func(update TaskUpdate) {
			updates = append(updates, update)
		})

		assert.Equal(t, 2, len(updates))
		assert.Nil(t, updates[0].Err)
		assert.Nil(t, updates[1].Err)
		assert.Equal(t, taskState.Succeeded, updates[1].Status.Status)
	})
}

func TestTaskPollerStop(t *testing.T) {
	var mux sync.Mutex
	calls := 0

	script := []dtos.TaskStatusDto{
		{TaskId: "task-4", Status: taskState.Running, Info: dtos.TaskInfoDto{Progress: 0.1}},
	}

	server := statusScript(t, "task-4", script, &calls, &mux)
	defer server.Close()

	poller := NewTaskPoller(pollerApi(server.URL), 5*time.Millisecond, logx.NewLogger("poller-test", false))

	go poller.Watch("task-4", func(TaskUpdate) {})

	// let a few polls land, then pull the plug
	time.Sleep(30 * time.Millisecond)
	poller.Stop()
	poller.Stop() // calling twice must be harmless

	select {
	case <-poller.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not wind down after Stop")
	}

	mux.Lock()
	assert.True(t, calls >= 1)
	mux.Unlock()
}
