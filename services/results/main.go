package results

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ahmetb/go-linq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/classification"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/impact"
	s "github.com/helena-bio/helix-frontend-sub000/models/constants/sort"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	"github.com/helena-bio/helix-frontend-sub000/services"
)

// number of gene summary pages fetched concurrently while the
// review tables are loading
const summaryFetchConcurrency = 4

// ResultsService is the review pane's in-memory view of a processed
// session: gene summaries, the classification/impact cross matrix,
// and lazily loaded per-gene variant lists.
//
// Filtering works from the summary counts alone, so narrowing the
// table stays O(genes) no matter how many variants the file carried.
type ResultsService struct {
	Config *models.Config
	Logger zerolog.Logger
	Api    *services.ApiService

	mu            sync.RWMutex
	sessionId     string
	totalVariants int
	geneCount     int
	matrix        models.CrossMatrix
	genes         []models.GeneSummary
	geneIndex     map[string]int
	variants      map[string][]models.VariantRecord
	details       map[int]models.VariantRecord
	phenotype     map[string][]dtos.PhenotypeMatch

	loadGroup singleflight.Group
}

func NewResultsService(cfg *models.Config, api *services.ApiService) *ResultsService {
	return &ResultsService{
		Config:    cfg,
		Logger:    logx.NewLogger("results", cfg.Debug),
		Api:       api,
		matrix:    models.CrossMatrix{},
		geneIndex: map[string]int{},
		variants:  map[string][]models.VariantRecord{},
		details:   map[int]models.VariantRecord{},
		phenotype: map[string][]dtos.PhenotypeMatch{},
	}
}

// IngestSummary installs the headline numbers from a finished
// processing task. Gene summaries, when the payload carries them,
// replace whatever was loaded before; the per-gene variant cache is
// dropped either way since it described the previous summary.
//
// The numbers have to reconcile before the pane trusts them: gene
// counts are checked against their own buckets, the headline totals
// against the gene list, and the cross matrix roll-up against its
// tier rows. Discrepancies are logged and settled in favor of the
// recount.
func (r *ResultsService) IngestSummary(sessionId string, summary *models.ProcessingSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessionId = sessionId
	r.totalVariants = summary.TotalVariants
	r.geneCount = summary.GeneCount
	r.matrix = summary.CrossMatrix
	if r.matrix == nil {
		r.matrix = models.CrossMatrix{}
	}

	if len(summary.Genes) > 0 {
		counted := 0
		for _, gene := range summary.Genes {
			if !gene.Balanced() {
				r.Logger.Warn().Str("gene", gene.Symbol).Msg("summary buckets do not add up to the gene total")
			}
			counted += gene.TotalVariants
		}
		if counted != r.totalVariants {
			r.Logger.Warn().
				Int("declared", r.totalVariants).
				Int("counted", counted).
				Msg("total variants reconciled from the gene summaries")
			r.totalVariants = counted
		}
		if len(summary.Genes) != r.geneCount {
			r.geneCount = len(summary.Genes)
		}
	}

	if len(r.matrix) > 0 {
		rollUp := models.ImpactVector{}
		tierRows := 0
		for key, vector := range r.matrix {
			if key == string(classification.All) {
				continue
			}
			tierRows++
			rollUp = rollUp.Add(vector)
		}
		if tierRows > 0 && r.matrix[string(classification.All)] != rollUp {
			r.Logger.Warn().Msg("cross matrix roll-up reconciled from its tier rows")
			r.matrix[string(classification.All)] = rollUp
		}
	}

	r.genes = nil
	r.geneIndex = map[string]int{}
	r.variants = map[string][]models.VariantRecord{}
	r.details = map[int]models.VariantRecord{}
	r.phenotype = map[string][]dtos.PhenotypeMatch{}
	if len(summary.Genes) > 0 {
		r.installGenesLocked(summary.Genes)
	}
}

// LoadSummaries pulls every gene summary page for a session into the
// cache. The first page establishes the total; the rest are fetched
// a few at a time. Progress arrives as (pagesLoaded, totalPages).
func (r *ResultsService) LoadSummaries(sessionId string, onProgress func(loaded int, total int)) error {
	if onProgress == nil {
		onProgress = func(int, int) {}
	}

	pageSize := r.Config.Pipeline.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	firstPage, firstErr := r.Api.SearchGenes(sessionId, "", 1, pageSize, string(s.BySymbol), string(s.Ascending))
	if firstErr != nil {
		return fmt.Errorf("failed to load gene summaries: %v", firstErr)
	}

	totalGenes := firstPage.TotalGenes
	totalPages := 1
	if totalGenes > pageSize {
		totalPages = (totalGenes + pageSize - 1) / pageSize
	}

	pages := make([][]models.GeneSummary, totalPages)
	pages[0] = summariesOf(firstPage.Results)

	var loadedPages int64 = 1
	onProgress(1, totalPages)

	var group errgroup.Group
	group.SetLimit(summaryFetchConcurrency)
	for pageNumber := 2; pageNumber <= totalPages; pageNumber++ {
		pageNumber := pageNumber
		group.Go(func() error {
			page, pageErr := r.Api.SearchGenes(sessionId, "", pageNumber, pageSize, string(s.BySymbol), string(s.Ascending))
			if pageErr != nil {
				return fmt.Errorf("failed to load gene summary page %d: %v", pageNumber, pageErr)
			}
			pages[pageNumber-1] = summariesOf(page.Results)
			onProgress(int(atomic.AddInt64(&loadedPages, 1)), totalPages)
			return nil
		})
	}
	if groupErr := group.Wait(); groupErr != nil {
		return groupErr
	}

	merged := make([]models.GeneSummary, 0, totalGenes)
	for _, page := range pages {
		merged = append(merged, page...)
	}

	r.mu.Lock()
	r.sessionId = sessionId
	r.installGenesLocked(merged)
	r.mu.Unlock()

	r.Logger.Info().
		Int("genes", len(merged)).
		Int("pages", totalPages).
		Str("sessionId", sessionId).
		Msg("gene summaries loaded")

	return nil
}

func (r *ResultsService) installGenesLocked(genes []models.GeneSummary) {
	r.genes = genes
	r.geneIndex = make(map[string]int, len(genes))
	for index, gene := range genes {
		r.geneIndex[gene.Symbol] = index
	}
	if r.geneCount == 0 {
		r.geneCount = len(genes)
	}
	// the candidate set behind any memoized phenotype match just changed
	r.phenotype = map[string][]dtos.PhenotypeMatch{}
}

// Genes returns a copy of the loaded summaries in their load order.
func (r *ResultsService) Genes() []models.GeneSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	genes := make([]models.GeneSummary, len(r.genes))
	copy(genes, r.genes)
	return genes
}

func (r *ResultsService) GeneBySymbol(symbol string) (models.GeneSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, found := r.geneIndex[symbol]
	if !found {
		return models.GeneSummary{}, false
	}
	return r.genes[index], true
}

func (r *ResultsService) TotalVariants() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalVariants
}

func (r *ResultsService) GeneCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.geneCount
}

// FilterGenes narrows the table using only the per-gene count maps:
// a gene passes a classification or impact constraint when it has at
// least one variant in that bucket, and a search term matches the
// symbol case-insensitively. The axes are independent, so applying
// them in any order yields the same set.
func (r *ResultsService) FilterGenes(filter models.FilterSet) []models.GeneSummary {
	genes := r.Genes()
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))

	filtered := []models.GeneSummary{}
	linq.From(genes).WhereT(func(gene models.GeneSummary) bool {
		if filter.ConstrainsClassification() && gene.Classifications[filter.Classification] == 0 {
			return false
		}
		if filter.ConstrainsImpact() && gene.Impacts[filter.Impact] == 0 {
			return false
		}
		if term != "" && !strings.Contains(strings.ToLower(gene.Symbol), term) {
			return false
		}
		return true
	}).ToSlice(&filtered)

	return filtered
}

// SortGenes orders summaries for display. Severity fields rank a
// gene by the most severe bucket it carries; symbol is always the
// tie-breaker so the order is stable run to run.
func (r *ResultsService) SortGenes(genes []models.GeneSummary, field constants.SortField, direction constants.SortDirection) []models.GeneSummary {
	return SortSummaries(genes, field, direction)
}

// SortSummaries is the ordering behind SortGenes, shared with the
// genes search endpoint.
func SortSummaries(genes []models.GeneSummary, field constants.SortField, direction constants.SortDirection) []models.GeneSummary {
	if direction == s.Undefined {
		if field == s.BySymbol {
			direction = s.Ascending
		} else {
			direction = s.Descending
		}
	}

	input := linq.From(genes)
	var ordered linq.OrderedQuery

	switch field {
	case s.ByTotalVariants:
		key := func(gene models.GeneSummary) int { return gene.TotalVariants }
		if direction == s.Ascending {
			ordered = input.OrderByT(key)
		} else {
			ordered = input.OrderByDescendingT(key)
		}
	case s.ByClassification:
		key := func(gene models.GeneSummary) int { return classificationSeverity(gene) }
		if direction == s.Ascending {
			ordered = input.OrderByT(key)
		} else {
			ordered = input.OrderByDescendingT(key)
		}
	case s.ByImpact:
		key := func(gene models.GeneSummary) int { return impactSeverity(gene) }
		if direction == s.Ascending {
			ordered = input.OrderByT(key)
		} else {
			ordered = input.OrderByDescendingT(key)
		}
	default:
		key := func(gene models.GeneSummary) string { return gene.Symbol }
		if direction == s.Descending {
			ordered = input.OrderByDescendingT(key)
		} else {
			ordered = input.OrderByT(key)
		}
	}

	sorted := []models.GeneSummary{}
	ordered.ThenByT(func(gene models.GeneSummary) string { return gene.Symbol }).ToSlice(&sorted)
	return sorted
}

// MatrixRow returns one classification row of the cross matrix. A
// key with no entry is an honest zero vector; it is never answered
// with the 'all' roll-up row.
func (r *ResultsService) MatrixRow(key string) models.ImpactVector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matrix[key]
}

func (r *ResultsService) MatrixCell(tier constants.Classification, level constants.Impact) int {
	return r.MatrixRow(string(tier)).Get(level)
}

func (r *ResultsService) Matrix() models.CrossMatrix {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matrix := make(models.CrossMatrix, len(r.matrix))
	for key, vector := range r.matrix {
		matrix[key] = vector
	}
	return matrix
}

// GeneDetail returns the variant list for one gene, fetching it on
// first use. Concurrent requests for the same gene collapse into a
// single fetch, and a failed fetch caches nothing, so one flaky gene
// neither poisons its neighbours nor blocks its own retry.
func (r *ResultsService) GeneDetail(sessionId string, gene string) ([]models.VariantRecord, error) {
	r.mu.RLock()
	cached, found := r.variants[gene]
	cachedSession := r.sessionId
	r.mu.RUnlock()
	if found && cachedSession == sessionId {
		return cached, nil
	}

	value, loadErr, _ := r.loadGroup.Do(sessionId+"::"+gene, func() (interface{}, error) {
		r.mu.RLock()
		if cached, found := r.variants[gene]; found && r.sessionId == sessionId {
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		response, fetchErr := r.Api.FetchGeneVariants(sessionId, gene)
		if fetchErr != nil {
			return nil, fmt.Errorf("failed to load variants for %s: %v", gene, fetchErr)
		}

		r.mu.Lock()
		if r.sessionId == sessionId {
			r.variants[gene] = response.Results
			// index the returned records so point lookups by idx are free
			for _, record := range response.Results {
				r.details[record.Idx] = record
			}
		}
		r.mu.Unlock()

		return response.Results, nil
	})
	if loadErr != nil {
		return nil, loadErr
	}

	return value.([]models.VariantRecord), nil
}

// VariantDetail returns a single variant by its stable index,
// fetching it on first use. Indexes already seen in a gene list are
// answered from the cache without a request; like GeneDetail,
// concurrent lookups collapse and failures cache nothing.
func (r *ResultsService) VariantDetail(sessionId string, idx int) (*models.VariantRecord, error) {
	r.mu.RLock()
	if cached, found := r.details[idx]; found && r.sessionId == sessionId {
		r.mu.RUnlock()
		return &cached, nil
	}
	r.mu.RUnlock()

	value, loadErr, _ := r.loadGroup.Do(fmt.Sprintf("%s::#%d", sessionId, idx), func() (interface{}, error) {
		r.mu.RLock()
		if cached, found := r.details[idx]; found && r.sessionId == sessionId {
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		record, fetchErr := r.Api.FetchVariantByIdx(sessionId, idx)
		if fetchErr != nil {
			return nil, fmt.Errorf("failed to load variant %d: %v", idx, fetchErr)
		}

		r.mu.Lock()
		if r.sessionId == sessionId {
			r.details[idx] = *record
		}
		r.mu.Unlock()

		return *record, nil
	})
	if loadErr != nil {
		return nil, loadErr
	}

	detail := value.(models.VariantRecord)
	return &detail, nil
}

// PhenotypeMatches scores the loaded gene table against a set of
// clinical terms, memoized per normalized term signature so
// re-rendering a pane with the same terms costs no request. The memo
// empties whenever the gene table changes.
func (r *ResultsService) PhenotypeMatches(terms []string) ([]dtos.PhenotypeMatch, error) {
	signature := termSignature(terms)
	if signature == "" {
		return []dtos.PhenotypeMatch{}, nil
	}

	r.mu.RLock()
	cached, found := r.phenotype[signature]
	r.mu.RUnlock()
	if found {
		return cached, nil
	}

	genes := r.Genes()
	symbols := make([]string, 0, len(genes))
	for _, gene := range genes {
		symbols = append(symbols, gene.Symbol)
	}

	value, loadErr, _ := r.loadGroup.Do("phenotype::"+signature, func() (interface{}, error) {
		r.mu.RLock()
		if cached, found := r.phenotype[signature]; found {
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		response, fetchErr := r.Api.MatchPhenotypes(terms, symbols)
		if fetchErr != nil {
			return nil, fmt.Errorf("phenotype matching failed: %v", fetchErr)
		}

		r.mu.Lock()
		r.phenotype[signature] = response.Matches
		r.mu.Unlock()

		return response.Matches, nil
	})
	if loadErr != nil {
		return nil, loadErr
	}

	return value.([]dtos.PhenotypeMatch), nil
}

// Clear drops everything held for the current session.
func (r *ResultsService) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessionId = ""
	r.totalVariants = 0
	r.geneCount = 0
	r.matrix = models.CrossMatrix{}
	r.genes = nil
	r.geneIndex = map[string]int{}
	r.variants = map[string][]models.VariantRecord{}
	r.details = map[int]models.VariantRecord{}
	r.phenotype = map[string][]dtos.PhenotypeMatch{}
}

func summariesOf(entries []dtos.GeneEntryDto) []models.GeneSummary {
	summaries := make([]models.GeneSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, entry.Summary)
	}
	return summaries
}

// termSignature folds a term list into a stable memoization key:
// lower-cased, trimmed, sorted so order does not matter.
// Whitespace-only lists fold to the empty signature.
func termSignature(terms []string) string {
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		if trimmed := strings.ToLower(strings.TrimSpace(term)); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	if len(normalized) == 0 {
		return ""
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ";")
}

func classificationSeverity(gene models.GeneSummary) int {
	for _, tier := range classification.Tiers() {
		if gene.Classifications[tier] > 0 {
			return classification.Priority(tier)
		}
	}
	return 0
}

func impactSeverity(gene models.GeneSummary) int {
	for _, level := range impact.Levels() {
		if gene.Impacts[level] > 0 {
			return impact.Priority(level)
		}
	}
	return 0
}
