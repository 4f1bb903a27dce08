package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	analysisType "github.com/helena-bio/helix-frontend-sub000/models/constants/analysis-type"
	assemblyId "github.com/helena-bio/helix-frontend-sub000/models/constants/assembly-id"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/phase"
	taskState "github.com/helena-bio/helix-frontend-sub000/models/constants/task-state"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	"github.com/helena-bio/helix-frontend-sub000/services"
	"github.com/helena-bio/helix-frontend-sub000/services/compression"
	"github.com/helena-bio/helix-frontend-sub000/services/results"
)

// MinVisibleProgress is the smallest percentage an active phase ever
// shows. Long-running stages report nothing for a while after they
// start; pinning the bar at a visible floor keeps the session from
// looking stalled.
const MinVisibleProgress = 10

// Snapshot is a point-in-time copy of the session pipeline, safe to
// hand to renderers and tests.
type Snapshot struct {
	SessionId string                   `json:"sessionId"`
	Phase     constants.Phase          `json:"phase"`
	Progress  int                      `json:"progress"`
	Message   string                   `json:"message"`
	TaskId    string                   `json:"taskId,omitempty"`
	Report    *models.ValidationReport `json:"report,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// PipelineService drives one review session through its phases:
//
//	selection -> compressing -> uploading -> validating -> qc_results
//	          -> processing -> frontend_loading -> ready
//
// with 'error' reachable from any running phase. Starting a new file
// replaces the running session outright; every asynchronous step
// carries the generation it was started under and quietly retires
// when a newer session has taken over.
type PipelineService struct {
	Config      *models.Config
	Logger      zerolog.Logger
	Api         *services.ApiService
	Compression *compression.CompressionService
	Results     *results.ResultsService

	// invoked after every snapshot change, outside the state lock
	OnChange func(Snapshot)

	mu           sync.RWMutex
	snapshot     Snapshot
	poller       *TaskPoller
	generation   int
	activeTaskId string
	remotePath   string
	localPath    string
	meta         models.SessionMeta
}

// Option adjusts a pipeline service beyond what the environment
// configured.
type Option func(*PipelineService)

// WithAutoAdvanceQc sets the QC gate policy in code. Embedders with
// no one to prompt pass true and treat qc_results as a transit phase;
// a non-primary genome build still holds the gate either way.
func WithAutoAdvanceQc(auto bool) Option {
	return func(p *PipelineService) {
		p.Config.Pipeline.AutoAdvanceQc = auto
	}
}

func NewPipelineService(
	cfg *models.Config,
	api *services.ApiService,
	compressionService *compression.CompressionService,
	resultsService *results.ResultsService,
	opts ...Option) *PipelineService {

	p := &PipelineService{
		Config:      cfg,
		Logger:      logx.NewLogger("pipeline", cfg.Debug),
		Api:         api,
		Compression: compressionService,
		Results:     resultsService,
		snapshot:    Snapshot{Phase: phase.Selection},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a copy of the current session state.
func (p *PipelineService) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Start validates the selected file locally and, if it passes, kicks
// off the pipeline in the background. A session already underway is
// replaced: its poller is stopped and its in-flight goroutines are
// retired by the generation bump.
//
// Local rejections never enter the 'error' phase; the session stays
// in 'selection' with the rejection message so the user can simply
// pick another file.
func (p *PipelineService) Start(filePath string, meta models.SessionMeta) error {
	if rejectionErr := validateSelection(filePath, meta, p.Config.Pipeline.MaxUploadBytes); rejectionErr != nil {
		p.mu.Lock()
		p.snapshot = Snapshot{
			SessionId: p.snapshot.SessionId,
			Phase:     phase.Selection,
			Message:   rejectionErr.Error(),
		}
		snapshot := p.snapshot
		p.mu.Unlock()

		p.notify(snapshot)
		return rejectionErr
	}

	if meta.SessionId == "" {
		meta.SessionId = uuid.New().String()
	}
	if meta.FileName == "" {
		meta.FileName = filepath.Base(filePath)
	}

	p.mu.Lock()
	p.generation++
	generation := p.generation
	if p.poller != nil {
		p.poller.Stop()
		p.poller = nil
	}
	p.activeTaskId = ""
	p.remotePath = ""
	p.localPath = filePath
	p.meta = meta
	p.snapshot = Snapshot{
		SessionId: meta.SessionId,
		Phase:     phase.Compressing,
		Progress:  MinVisibleProgress,
		Message:   fmt.Sprintf("preparing %s", meta.FileName),
	}
	snapshot := p.snapshot
	p.mu.Unlock()

	p.Results.Clear()
	p.notify(snapshot)

	go p.runToValidation(generation, filePath, meta)

	return nil
}

// ContinueToProcessing confirms the QC summary and moves the session
// on to annotation. Calls outside the 'qc_results' phase are ignored.
func (p *PipelineService) ContinueToProcessing() {
	p.mu.Lock()
	if p.snapshot.Phase != phase.QcResults {
		p.mu.Unlock()
		p.Logger.Debug().Str("phase", string(p.snapshot.Phase)).Msg("continue requested outside qc_results, ignoring")
		return
	}
	generation := p.generation
	p.mu.Unlock()

	go p.runProcessing(generation)
}

// Retry re-submits the file from the failed attempt, under the same
// session id. Only a session sitting in the 'error' phase has
// anything to retry; other phases ignore the call.
func (p *PipelineService) Retry() error {
	p.mu.RLock()
	failed := p.snapshot.Phase == phase.Error
	filePath := p.localPath
	meta := p.meta
	p.mu.RUnlock()

	if !failed || filePath == "" {
		p.Logger.Debug().Msg("retry requested with nothing to retry, ignoring")
		return nil
	}
	return p.Start(filePath, meta)
}

// Reset abandons the session and returns to file selection.
func (p *PipelineService) Reset() {
	p.mu.Lock()
	p.generation++
	if p.poller != nil {
		p.poller.Stop()
		p.poller = nil
	}
	p.activeTaskId = ""
	p.remotePath = ""
	p.localPath = ""
	p.meta = models.SessionMeta{}
	p.snapshot = Snapshot{Phase: phase.Selection}
	snapshot := p.snapshot
	p.mu.Unlock()

	p.Results.Clear()
	p.notify(snapshot)
}

func (p *PipelineService) runToValidation(generation int, filePath string, meta models.SessionMeta) {
	// -- compression: best-effort, never fails the session
	compressed := p.Compression.Compress(filePath, func(fraction float64) {
		p.setProgress(generation, fraction)
	})

	if !p.transition(generation, phase.Uploading, fmt.Sprintf("uploading %s", meta.FileName)) {
		return
	}

	// -- upload: streaming, runs to completion or failure
	receipt, uploadErr := p.Api.Upload(compressed.Path, meta, func(sentBytes int64, totalBytes int64) {
		if totalBytes > 0 {
			p.setProgress(generation, float64(sentBytes)/float64(totalBytes))
		}
	})
	if compressed.Compressed {
		os.Remove(compressed.Path)
	}
	if uploadErr != nil {
		p.fail(generation, fmt.Sprintf("upload failed: %v", uploadErr))
		return
	}
	receipt.Ratio = compressed.Ratio

	p.mu.Lock()
	if p.generation == generation {
		p.remotePath = receipt.FilePath
	}
	p.mu.Unlock()

	if !p.transition(generation, phase.Validating, "validating uploaded file") {
		return
	}

	// -- validation task
	taskId, taskErr := p.Api.RunValidation(meta.SessionId, receipt.FilePath)
	if taskErr != nil {
		p.fail(generation, fmt.Sprintf("validation failed: %v", taskErr))
		return
	}

	finalStatus, watchErr := p.watchTask(generation, taskId)
	if watchErr != nil {
		p.fail(generation, fmt.Sprintf("annotation task unreachable: %v", watchErr))
		return
	}
	if finalStatus == nil {
		// superseded mid-watch
		return
	}
	if finalStatus.Status == taskState.Failed {
		p.fail(generation, fmt.Sprintf("validation failed: %s", finalStatus.Error))
		return
	}

	report, decodeErr := decodeTaskResult[models.ValidationReport](finalStatus.Result)
	if decodeErr != nil {
		p.fail(generation, fmt.Sprintf("validation failed: malformed result: %v", decodeErr))
		return
	}
	if !assemblyId.IsPrimaryAssembly(report.AssemblyId) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("file is aligned to %s; annotations are curated against %s", report.AssemblyId, assemblyId.GRCh38))
	}

	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		return
	}
	if report.FilePath != "" {
		p.remotePath = report.FilePath
	}
	p.snapshot.Report = report
	p.mu.Unlock()

	if !p.transition(generation, phase.QcResults, "quality summary ready") {
		return
	}

	if p.Config.Pipeline.AutoAdvanceQc {
		if assemblyId.IsPrimaryAssembly(report.AssemblyId) {
			p.runProcessing(generation)
		} else {
			p.Logger.Info().
				Str("assemblyId", string(report.AssemblyId)).
				Msg("auto-advance held: a non-primary build needs an explicit continue")
		}
	}
}

func (p *PipelineService) runProcessing(generation int) {
	p.mu.RLock()
	sessionId := p.meta.SessionId
	remotePath := p.remotePath
	p.mu.RUnlock()

	if !p.transition(generation, phase.Processing, "annotating variants") {
		return
	}

	taskId, taskErr := p.Api.RunProcessing(sessionId, remotePath)
	if taskErr != nil {
		p.fail(generation, fmt.Sprintf("processing failed: %v", taskErr))
		return
	}

	finalStatus, watchErr := p.watchTask(generation, taskId)
	if watchErr != nil {
		p.fail(generation, fmt.Sprintf("annotation task unreachable: %v", watchErr))
		return
	}
	if finalStatus == nil {
		return
	}
	if finalStatus.Status == taskState.Failed {
		p.fail(generation, fmt.Sprintf("processing failed: %s", finalStatus.Error))
		return
	}

	summary, decodeErr := decodeTaskResult[models.ProcessingSummary](finalStatus.Result)
	if decodeErr != nil {
		p.fail(generation, fmt.Sprintf("processing failed: malformed result: %v", decodeErr))
		return
	}
	p.Results.IngestSummary(sessionId, summary)

	if !p.transition(generation, phase.FrontendLoading, "loading review tables") {
		return
	}

	if loadErr := p.Results.LoadSummaries(sessionId, func(loaded int, total int) {
		if total > 0 {
			p.setProgress(generation, float64(loaded)/float64(total))
		}
	}); loadErr != nil {
		p.fail(generation, fmt.Sprintf("processing failed: could not load review tables: %v", loadErr))
		return
	}

	if p.transition(generation, phase.Ready, "review ready") {
		p.setProgress(generation, 1)
	}
}

// watchTask polls a task to its terminal state. It returns (nil, nil)
// when a newer session superseded this one mid-watch, and discards
// updates for any task other than the one it was pointed at.
func (p *PipelineService) watchTask(generation int, taskId string) (*dtos.TaskStatusDto, error) {
	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		return nil, nil
	}
	p.activeTaskId = taskId
	p.snapshot.TaskId = taskId
	poller := NewTaskPoller(p.Api, time.Duration(p.Config.Pipeline.PollIntervalMs)*time.Millisecond, p.Logger)
	p.poller = poller
	p.mu.Unlock()

	var (
		finalStatus *dtos.TaskStatusDto
		watchErr    error
	)

	poller.Watch(taskId, func(update TaskUpdate) {
		p.mu.RLock()
		stale := p.generation != generation || p.activeTaskId != update.TaskId
		p.mu.RUnlock()
		if stale {
			p.Logger.Debug().Str("taskId", update.TaskId).Msg("discarding update for stale task")
			return
		}

		if update.Err != nil {
			watchErr = update.Err
			return
		}

		p.setProgress(generation, update.Status.Info.Progress)
		if update.Status.Info.Stage != "" {
			p.setMessage(generation, update.Status.Info.Stage)
		}

		if taskState.IsTerminal(update.Status.Status) {
			finalStatus = update.Status
		}
	})

	p.mu.RLock()
	superseded := p.generation != generation
	p.mu.RUnlock()
	if superseded {
		return nil, nil
	}
	if watchErr != nil {
		return nil, watchErr
	}
	return finalStatus, nil
}

// transition moves the session to a new phase and resets the progress
// floor. It reports false when the generation has been superseded.
func (p *PipelineService) transition(generation int, to constants.Phase, message string) bool {
	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		return false
	}

	from := p.snapshot.Phase
	p.snapshot.Phase = to
	p.snapshot.Message = message
	p.snapshot.Error = ""
	switch to {
	case phase.Ready:
		p.snapshot.Progress = 100
	case phase.Selection:
		p.snapshot.Progress = 0
	default:
		p.snapshot.Progress = MinVisibleProgress
	}
	snapshot := p.snapshot
	p.mu.Unlock()

	p.Logger.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("sessionId", snapshot.SessionId).
		Msg("phase transition")

	p.notify(snapshot)
	return true
}

// setProgress folds a 0..1 fraction into the displayed percentage.
// The display never drops within a phase and never dips below the
// visibility floor while work is underway.
func (p *PipelineService) setProgress(generation int, fraction float64) {
	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		return
	}

	percent := int(fraction * 100)
	if percent < MinVisibleProgress {
		percent = MinVisibleProgress
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= p.snapshot.Progress {
		p.mu.Unlock()
		return
	}
	p.snapshot.Progress = percent
	snapshot := p.snapshot
	p.mu.Unlock()

	p.notify(snapshot)
}

func (p *PipelineService) setMessage(generation int, message string) {
	p.mu.Lock()
	if p.generation != generation || p.snapshot.Message == message {
		p.mu.Unlock()
		return
	}
	p.snapshot.Message = message
	snapshot := p.snapshot
	p.mu.Unlock()

	p.notify(snapshot)
}

func (p *PipelineService) fail(generation int, message string) {
	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		return
	}
	p.snapshot.Phase = phase.Error
	p.snapshot.Message = message
	p.snapshot.Error = message
	snapshot := p.snapshot
	p.mu.Unlock()

	p.Logger.Error().Str("sessionId", snapshot.SessionId).Msg(message)
	p.notify(snapshot)
}

func (p *PipelineService) notify(snapshot Snapshot) {
	if p.OnChange != nil {
		p.OnChange(snapshot)
	}
}

// validateSelection applies the cheap local checks that gate the
// pipeline: a readable, non-empty VCF under the size ceiling, and
// coherent session metadata.
func validateSelection(filePath string, meta models.SessionMeta, maxBytes int64) error {
	lowered := strings.ToLower(filePath)
	if !strings.HasSuffix(lowered, ".vcf") &&
		!strings.HasSuffix(lowered, ".vcf.gz") &&
		!strings.HasSuffix(lowered, ".bgz") {
		return fmt.Errorf("file rejected: %s does not look like a vcf", filepath.Base(filePath))
	}

	info, statErr := os.Stat(filePath)
	if statErr != nil {
		return fmt.Errorf("file rejected: cannot read %s", filepath.Base(filePath))
	}
	if info.Size() == 0 {
		return fmt.Errorf("file rejected: %s is empty", filepath.Base(filePath))
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return fmt.Errorf("file rejected: %s exceeds the %d byte upload ceiling", filepath.Base(filePath), maxBytes)
	}

	if !analysisType.IsKnownAnalysisType(string(meta.AnalysisType)) {
		return fmt.Errorf("file rejected: unknown analysis type '%s'", meta.AnalysisType)
	}
	if meta.AssemblyId != "" && !assemblyId.IsKnownAssemblyId(string(meta.AssemblyId)) {
		return fmt.Errorf("file rejected: unknown genome assembly '%s'", meta.AssemblyId)
	}

	return nil
}

func decodeTaskResult[T any](result map[string]interface{}) (*T, error) {
	if result == nil {
		return nil, fmt.Errorf("task finished without a result payload")
	}

	var decoded T
	decoder, decoderErr := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &decoded,
	})
	if decoderErr != nil {
		return nil, decoderErr
	}
	if decodeErr := decoder.Decode(result); decodeErr != nil {
		return nil, decodeErr
	}

	return &decoded, nil
}
