package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	assemblyId "github.com/helena-bio/helix-frontend-sub000/models/constants/assembly-id"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/chromosome"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/classification"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/impact"
	taskKind "github.com/helena-bio/helix-frontend-sub000/models/constants/task-kind"
	taskState "github.com/helena-bio/helix-frontend-sub000/models/constants/task-state"
	"github.com/helena-bio/helix-frontend-sub000/models/tasks"
	"github.com/helena-bio/helix-frontend-sub000/models/tasks/structs"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	"github.com/helena-bio/helix-frontend-sub000/utils"
)

// UnassignedGene buckets variants whose INFO column carries no gene
// symbol at all, so they stay reviewable instead of vanishing.
const UnassignedGene = "UNASSIGNED"

// scanner token ceiling; multi-allelic INFO columns routinely blow
// past bufio's default 64K line limit
const maxVcfLineBytes = 4 * 1024 * 1024

type (
	AnnotationService struct {
		Initialized                   bool
		Config                        *models.Config
		Logger                        zerolog.Logger
		TaskRequestChan               chan *tasks.TaskRecord
		TaskRequestMap                map[string]*tasks.TaskRecord
		TaskRequestMapMux             sync.RWMutex
		ConcurrentFileProcessingQueue chan bool
		Repository                    repositories.SessionRepository
	}
)

func NewAnnotationService(repository repositories.SessionRepository, cfg *models.Config) *AnnotationService {
	az := &AnnotationService{
		Initialized:                   false,
		Config:                        cfg,
		Logger:                        logx.NewLogger("annotation", cfg.Debug),
		TaskRequestChan:               make(chan *tasks.TaskRecord),
		TaskRequestMap:                map[string]*tasks.TaskRecord{},
		TaskRequestMapMux:             sync.RWMutex{},
		ConcurrentFileProcessingQueue: make(chan bool, 2),
		Repository:                    repository,
	}

	az.Init()

	return az
}

func (a *AnnotationService) Init() {
	// safeguard to prevent multiple initilizations
	if !a.Initialized {
		// spin up a go routine acting as a listener for
		// new task registrations
		go func() {
			for task := range a.TaskRequestChan {
				if task.State == taskState.Pending {
					fmt.Printf("Queueing a new %s task for session %s\n", task.Kind, task.SessionId)
				}

				a.TaskRequestMapMux.Lock()
				task.UpdatedAt = time.Now().String()
				a.TaskRequestMap[task.Id.String()] = task
				a.TaskRequestMapMux.Unlock()
			}
		}()

		a.Initialized = true
	}
}

// CreateTask registers a validation or processing run and starts it
// in the background, gated by the file processing queue.
func (a *AnnotationService) CreateTask(sessionId string, kind constants.TaskKind, filePath string) *tasks.TaskRecord {
	task := &tasks.TaskRecord{
		Id:              uuid.New(),
		SessionId:       sessionId,
		Kind:            kind,
		State:           taskState.Pending,
		CreatedAt:       time.Now().String(),
		CompletedStages: []string{},
	}

	a.TaskRequestChan <- task

	go a.runTask(&structs.AnnotationQueueStructure{
		Task:     task,
		FilePath: filePath,
	})

	return task
}

// GetTask returns a copy of a tracked task.
func (a *AnnotationService) GetTask(taskId string) (tasks.TaskRecord, bool) {
	a.TaskRequestMapMux.RLock()
	defer a.TaskRequestMapMux.RUnlock()

	task, found := a.TaskRequestMap[taskId]
	if !found {
		return tasks.TaskRecord{}, false
	}

	copied := *task
	copied.CompletedStages = append([]string{}, task.CompletedStages...)
	return copied, true
}

// GetAllTasks returns a light listing of every tracked task.
func (a *AnnotationService) GetAllTasks() []tasks.TaskResponseDTO {
	a.TaskRequestMapMux.RLock()
	defer a.TaskRequestMapMux.RUnlock()

	listing := make([]tasks.TaskResponseDTO, 0, len(a.TaskRequestMap))
	for _, task := range a.TaskRequestMap {
		listing = append(listing, tasks.TaskResponseDTO{
			Id:      task.Id,
			Kind:    task.Kind,
			State:   task.State,
			Message: task.Message,
		})
	}
	return listing
}

func (a *AnnotationService) runTask(queued *structs.AnnotationQueueStructure) {
	// take a spot in the queue, and free it up when done
	a.ConcurrentFileProcessingQueue <- true
	defer func() { <-a.ConcurrentFileProcessingQueue }()

	task := queued.Task

	a.updateTask(task, func(t *tasks.TaskRecord) {
		t.State = taskState.Running
		t.Stage = "open"
	})

	var runErr error
	switch task.Kind {
	case taskKind.Validation:
		runErr = a.runValidation(task, queued.FilePath)
	case taskKind.Processing:
		runErr = a.runProcessing(task, queued.FilePath)
	default:
		runErr = fmt.Errorf("unknown task kind '%s'", task.Kind)
	}

	if runErr != nil {
		a.Logger.Error().
			Err(runErr).
			Str("taskId", task.Id.String()).
			Str("kind", string(task.Kind)).
			Msg("task failed")

		a.updateTask(task, func(t *tasks.TaskRecord) {
			t.State = taskState.Failed
			t.Message = runErr.Error()
		})
		return
	}

	a.updateTask(task, func(t *tasks.TaskRecord) {
		t.State = taskState.Succeeded
		t.Progress = 1
	})
}

func (a *AnnotationService) updateTask(task *tasks.TaskRecord, mutate func(*tasks.TaskRecord)) {
	a.TaskRequestMapMux.Lock()
	mutate(task)
	task.UpdatedAt = time.Now().String()
	a.TaskRequestMapMux.Unlock()
}

func (a *AnnotationService) completeStage(task *tasks.TaskRecord, stage string, next string) {
	a.updateTask(task, func(t *tasks.TaskRecord) {
		if !utils.StringInSlice(stage, t.CompletedStages) {
			t.CompletedStages = append(t.CompletedStages, stage)
		}
		t.Stage = next
	})
}

// runValidation walks the uploaded file once and checks it is a VCF
// this service can annotate: a #CHROM header, at least one parseable
// record, and a recognizable genome build.
func (a *AnnotationService) runValidation(task *tasks.TaskRecord, filePath string) error {
	walker, openErr := openVcf(filePath)
	if openErr != nil {
		return openErr
	}
	defer walker.Close()

	a.completeStage(task, "open", "scan_headers")

	var (
		discoveredHeaders bool = false
		headers           []string
		sniffedAssembly   = assemblyId.Unknown
		totalVariants     int
		malformedRows     int
	)

	for walker.Scanner.Scan() {
		line := walker.Scanner.Text()

		if !discoveredHeaders {
			if strings.HasPrefix(line, "##") {
				if sniffedAssembly == assemblyId.Unknown {
					sniffedAssembly = sniffAssembly(line)
				}
				continue
			}
			if strings.HasPrefix(line, "#CHROM") {
				headers = strings.Split(line, "\t")
				discoveredHeaders = true

				a.completeStage(task, "scan_headers", "scan_records")
				continue
			}
			continue
		}

		if validVcfRow(strings.Split(line, "\t")) {
			totalVariants++
		} else {
			malformedRows++
		}

		if totalVariants%10000 == 0 {
			a.reportScanProgress(task, walker)
		}
	}
	if scanErr := walker.Scanner.Err(); scanErr != nil {
		return fmt.Errorf("failed scanning %s: %v", filePath, scanErr)
	}

	if !discoveredHeaders {
		return fmt.Errorf("missing #CHROM header row; file is not a usable vcf")
	}
	if totalVariants == 0 {
		return fmt.Errorf("no variant records found")
	}

	a.completeStage(task, "scan_records", "summarize")

	sampleCount := len(headers) - len(models.VcfHeaders)
	if sampleCount < 0 {
		sampleCount = 0
	}

	warnings := []string{}
	if malformedRows > 0 {
		warnings = append(warnings, fmt.Sprintf("%d malformed rows were skipped", malformedRows))
	}
	if sampleCount == 0 {
		warnings = append(warnings, "no sample columns found; genotype detail will be unavailable")
	}
	if sniffedAssembly == assemblyId.Unknown {
		warnings = append(warnings, "could not detect the genome build from the file headers")
	}

	report := models.ValidationReport{
		TotalVariants: totalVariants,
		SampleCount:   sampleCount,
		AssemblyId:    sniffedAssembly,
		FilePath:      filePath,
		Warnings:      warnings,
	}

	// sessions seeded at upload time keep their latest report; a
	// validation run against a bare file path has nothing to attach to
	if existing, getErr := a.Repository.GetSession(task.SessionId); getErr == nil {
		merged := *existing
		merged.Report = report
		if saveErr := a.Repository.SaveSession(&merged); saveErr != nil {
			a.Logger.Warn().Err(saveErr).Str("sessionId", task.SessionId).Msg("could not attach validation report to session")
		}
	}

	resultMap, resultErr := asResultMap(report)
	if resultErr != nil {
		return resultErr
	}

	a.updateTask(task, func(t *tasks.TaskRecord) {
		t.Result = resultMap
		t.Message = fmt.Sprintf("validated %d variants across %d samples", totalVariants, sampleCount)
	})
	a.completeStage(task, "summarize", "")

	return nil
}

// runProcessing walks the file again, this time lifting GENE, CLNSIG
// and IMPACT out of each INFO column and folding every record into
// per-gene summaries and the classification/impact cross matrix.
func (a *AnnotationService) runProcessing(task *tasks.TaskRecord, filePath string) error {
	walker, openErr := openVcf(filePath)
	if openErr != nil {
		return openErr
	}
	defer walker.Close()

	a.completeStage(task, "open", "annotate")

	var (
		discoveredHeaders bool = false
		sniffedAssembly   = assemblyId.Unknown
		variantIdx        int
		skippedRows       int

		summariesByGene = map[string]*models.GeneSummary{}
		variantsByGene  = map[string][]models.VariantRecord{}
		matrix          = models.CrossMatrix{}
	)

	for walker.Scanner.Scan() {
		line := walker.Scanner.Text()

		if !discoveredHeaders {
			if strings.HasPrefix(line, "##") {
				if sniffedAssembly == assemblyId.Unknown {
					sniffedAssembly = sniffAssembly(line)
				}
				continue
			}
			if strings.HasPrefix(line, "#CHROM") {
				discoveredHeaders = true
				continue
			}
			continue
		}

		rowComponents := strings.Split(line, "\t")
		if !validVcfRow(rowComponents) {
			skippedRows++
			continue
		}

		record := recordFromRow(rowComponents, variantIdx)
		variantIdx++

		summary, found := summariesByGene[record.Gene]
		if !found {
			summary = &models.GeneSummary{
				Symbol:          record.Gene,
				Classifications: map[constants.Classification]int{},
				Impacts:         map[constants.Impact]int{},
			}
			summariesByGene[record.Gene] = summary
		}
		summary.TotalVariants++
		summary.Classifications[record.Classification]++
		summary.Impacts[record.Impact]++

		variantsByGene[record.Gene] = append(variantsByGene[record.Gene], record)

		cell := models.ImpactVector{}
		switch record.Impact {
		case impact.High:
			cell.High = 1
		case impact.Moderate:
			cell.Moderate = 1
		case impact.Low:
			cell.Low = 1
		default:
			cell.Modifier = 1
		}
		matrix[string(record.Classification)] = matrix[string(record.Classification)].Add(cell)
		matrix[string(classification.All)] = matrix[string(classification.All)].Add(cell)

		if variantIdx%10000 == 0 {
			a.reportScanProgress(task, walker)
		}
	}
	if scanErr := walker.Scanner.Err(); scanErr != nil {
		return fmt.Errorf("failed scanning %s: %v", filePath, scanErr)
	}

	if !discoveredHeaders {
		return fmt.Errorf("missing #CHROM header row; file is not a usable vcf")
	}
	if variantIdx == 0 {
		return fmt.Errorf("no variant records found")
	}

	a.completeStage(task, "annotate", "aggregate")

	genes := make([]models.GeneSummary, 0, len(summariesByGene))
	for _, summary := range summariesByGene {
		genes = append(genes, *summary)
	}
	sort.Slice(genes, func(x, y int) bool {
		return genes[x].Symbol < genes[y].Symbol
	})

	summary := models.ProcessingSummary{
		TotalVariants: variantIdx,
		GeneCount:     len(genes),
		Genes:         genes,
		CrossMatrix:   matrix,
	}

	a.completeStage(task, "aggregate", "persist")

	// inherit the envelope seeded at upload time (case label, retention,
	// declared build); fall back to what the file itself revealed
	record := &repositories.SessionRecord{
		SessionId: task.SessionId,
		Meta: models.SessionMeta{
			SessionId:  task.SessionId,
			AssemblyId: sniffedAssembly,
		},
	}
	if existing, getErr := a.Repository.GetSession(task.SessionId); getErr == nil {
		record.Meta = existing.Meta
		record.Report = existing.Report
		if record.Meta.AssemblyId == "" || record.Meta.AssemblyId == assemblyId.Unknown {
			record.Meta.AssemblyId = sniffedAssembly
		}
	}
	record.Summary = summary
	record.VariantsByGene = variantsByGene

	if saveErr := a.Repository.SaveSession(record); saveErr != nil {
		return fmt.Errorf("failed persisting session %s: %v", task.SessionId, saveErr)
	}

	// the task payload travels light: gene pages are fetched
	// separately once the session is stored
	payload := summary
	payload.Genes = nil

	resultMap, resultErr := asResultMap(payload)
	if resultErr != nil {
		return resultErr
	}

	a.updateTask(task, func(t *tasks.TaskRecord) {
		t.Result = resultMap
		t.Message = fmt.Sprintf("annotated %d variants across %d genes", summary.TotalVariants, summary.GeneCount)
	})
	a.completeStage(task, "persist", "")

	a.Logger.Info().
		Str("sessionId", task.SessionId).
		Int("variants", summary.TotalVariants).
		Int("genes", summary.GeneCount).
		Int("skippedRows", skippedRows).
		Msg("processing finished")

	return nil
}

func (a *AnnotationService) reportScanProgress(task *tasks.TaskRecord, walker *vcfWalker) {
	if walker.TotalBytes <= 0 {
		return
	}
	fraction := float64(walker.Counting.Count()) / float64(walker.TotalBytes)
	a.updateTask(task, func(t *tasks.TaskRecord) {
		t.Progress = utils.Clamp01(fraction)
	})
}

// vcfWalker bundles the open file with a line scanner that follows
// the compressed byte offset for progress reporting.
type vcfWalker struct {
	Scanner    *bufio.Scanner
	Counting   *utils.CountingReader
	TotalBytes int64

	file       *os.File
	gzipReader *gzip.Reader
}

func (w *vcfWalker) Close() {
	if w.gzipReader != nil {
		w.gzipReader.Close()
	}
	if w.file != nil {
		w.file.Close()
	}
}

func openVcf(filePath string) (*vcfWalker, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", filePath, err)
	}

	info, statErr := f.Stat()
	if statErr != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %v", filePath, statErr)
	}

	counting := &utils.CountingReader{Reader: f}
	walker := &vcfWalker{
		Counting:   counting,
		TotalBytes: info.Size(),
		file:       f,
	}

	var lineSource io.Reader = counting
	lowered := strings.ToLower(filePath)
	if strings.HasSuffix(lowered, ".gz") || strings.HasSuffix(lowered, ".bgz") {
		gr, gzErr := gzip.NewReader(counting)
		if gzErr != nil {
			f.Close()
			return nil, fmt.Errorf("failed to gunzip %s: %v", filePath, gzErr)
		}
		walker.gzipReader = gr
		lineSource = gr
	}

	scanner := bufio.NewScanner(lineSource)
	scanner.Buffer(make([]byte, 0, 64*1024), maxVcfLineBytes)
	walker.Scanner = scanner

	return walker, nil
}

// validVcfRow keeps the cheap structural checks in one place: the
// eight fixed columns, a human chromosome, and an integer position.
func validVcfRow(rowComponents []string) bool {
	if len(rowComponents) < 8 {
		return false
	}
	if !chromosome.IsValidHumanChromosome(rowComponents[0]) {
		return false
	}
	if _, posErr := strconv.Atoi(rowComponents[1]); posErr != nil {
		return false
	}
	return true
}

func recordFromRow(rowComponents []string, idx int) models.VariantRecord {
	position, _ := strconv.Atoi(rowComponents[1])

	// check for "empty" IDs (i.e, those with a period) and tokenize with "none"
	id := strings.TrimSpace(rowComponents[2])
	if id == "." {
		id = "none"
	}

	infos := parseInfoFields(rowComponents[7])

	gene := strings.TrimSpace(infos["GENE"])
	if gene == "" {
		// ClinVar-style GENEINFO carries 'SYMBOL:GeneID' pairs
		if geneInfo := infos["GENEINFO"]; geneInfo != "" {
			gene = strings.Split(geneInfo, ":")[0]
		}
	}
	if gene == "" {
		gene = UnassignedGene
	}

	record := models.VariantRecord{
		Idx:            idx,
		Chrom:          chromosome.Normalize(strings.TrimSpace(rowComponents[0])),
		Pos:            position,
		Id:             id,
		Ref:            strings.TrimSpace(rowComponents[3]),
		Alt:            strings.TrimSpace(rowComponents[4]),
		Gene:           gene,
		Classification: classification.CastToTier(infos["CLNSIG"]),
		Impact:         impact.CastToLevel(infos["IMPACT"]),
	}
	if strings.HasPrefix(id, "rs") {
		record.DbSnpId = id
	}

	return record
}

// parseInfoFields splits a VCF INFO column into its key/value pairs.
// Flag entries with no '=' land in the map with an empty value.
func parseInfoFields(value string) map[string]string {
	infos := map[string]string{}

	// Split all entries by semi-colon
	semiColonSeparations := strings.Split(value, ";")

	for _, scSep := range semiColonSeparations {
		// Split by equality symbol
		equalitySeparations := strings.SplitN(scSep, "=", 2)

		if len(equalitySeparations) == 2 {
			infos[strings.TrimSpace(equalitySeparations[0])] = strings.TrimSpace(equalitySeparations[1])
		} else { // len(equalitySeparations) == 1
			infos[strings.TrimSpace(equalitySeparations[0])] = ""
		}
	}

	return infos
}

// sniffAssembly looks for a genome build token in a '##' header line,
// typically '##reference=' or a contig assembly attribute.
func sniffAssembly(headerLine string) constants.AssemblyId {
	lowered := strings.ToLower(headerLine)
	switch {
	case strings.Contains(lowered, "grch38"), strings.Contains(lowered, "hg38"):
		return assemblyId.GRCh38
	case strings.Contains(lowered, "grch37"), strings.Contains(lowered, "hg19"):
		return assemblyId.GRCh37
	default:
		return assemblyId.Unknown
	}
}

func asResultMap(payload interface{}) (map[string]interface{}, error) {
	payloadBytes, marshallErr := json.Marshal(payload)
	if marshallErr != nil {
		return nil, fmt.Errorf("cannot encode task result: %v", marshallErr)
	}

	resultMap := make(map[string]interface{})
	if umErr := json.Unmarshal(payloadBytes, &resultMap); umErr != nil {
		return nil, fmt.Errorf("cannot decode task result: %v", umErr)
	}
	return resultMap, nil
}
