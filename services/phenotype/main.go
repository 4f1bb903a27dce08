package phenotype

import (
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
)

type (
	// MatchingService scores genes against a set of clinical
	// phenotype terms using a gene-to-term association table.
	MatchingService struct {
		Initialized     bool
		Config          *models.Config
		Logger          zerolog.Logger
		AssociationsMux sync.RWMutex
		Associations    map[string]map[string]bool
	}
)

func NewMatchingService(cfg *models.Config) *MatchingService {
	ms := &MatchingService{
		Initialized:  false,
		Config:       cfg,
		Logger:       logx.NewLogger("phenotype", cfg.Debug),
		Associations: map[string]map[string]bool{},
	}

	ms.Init()

	return ms
}

func (ms *MatchingService) Init() {
	if !ms.Initialized {
		if ms.Config.Api.PhenotypePath != "" {
			if loadErr := ms.loadAssociations(ms.Config.Api.PhenotypePath); loadErr != nil {
				ms.Logger.Warn().
					Err(loadErr).
					Str("path", ms.Config.Api.PhenotypePath).
					Msg("could not load phenotype associations; matching will return no hits")
			}
		}

		ms.Initialized = true
	}
}

// loadAssociations reads a two column tsv of 'GENE<tab>term' rows,
// in the shape of the HPO 'genes_to_phenotype' export.
func (ms *MatchingService) loadAssociations(path string) error {
	contents, readErr := ioutil.ReadFile(path)
	if readErr != nil {
		return readErr
	}

	loadedRows := 0
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		columns := strings.Split(line, "\t")
		if len(columns) < 2 {
			continue
		}

		ms.RegisterAssociation(columns[0], columns[1])
		loadedRows++
	}

	ms.Logger.Info().
		Int("rows", loadedRows).
		Str("path", path).
		Msg("phenotype associations loaded")

	return nil
}

// RegisterAssociation records that a gene is associated with a
// phenotype term. Terms are matched case-insensitively.
func (ms *MatchingService) RegisterAssociation(gene string, term string) {
	gene = strings.ToUpper(strings.TrimSpace(gene))
	term = normalizeTerm(term)
	if gene == "" || term == "" {
		return
	}

	ms.AssociationsMux.Lock()
	defer ms.AssociationsMux.Unlock()

	if ms.Associations[gene] == nil {
		ms.Associations[gene] = map[string]bool{}
	}
	ms.Associations[gene][term] = true
}

// Match scores each candidate gene by the fraction of the requested
// terms it is associated with. Genes with no overlap are omitted.
// An empty candidate list matches against every known gene.
func (ms *MatchingService) Match(terms []string, genes []string) []dtos.PhenotypeMatch {
	normalizedTerms := make([]string, 0, len(terms))
	for _, term := range terms {
		if normalized := normalizeTerm(term); normalized != "" {
			normalizedTerms = append(normalizedTerms, normalized)
		}
	}

	matches := []dtos.PhenotypeMatch{}
	if len(normalizedTerms) == 0 {
		return matches
	}

	ms.AssociationsMux.RLock()
	defer ms.AssociationsMux.RUnlock()

	candidates := genes
	if len(candidates) == 0 {
		candidates = make([]string, 0, len(ms.Associations))
		for gene := range ms.Associations {
			candidates = append(candidates, gene)
		}
	}

	for _, gene := range candidates {
		associated := ms.Associations[strings.ToUpper(strings.TrimSpace(gene))]
		if len(associated) == 0 {
			continue
		}

		matchedTerms := []string{}
		for _, term := range normalizedTerms {
			if associated[term] {
				matchedTerms = append(matchedTerms, term)
			}
		}
		if len(matchedTerms) == 0 {
			continue
		}

		matches = append(matches, dtos.PhenotypeMatch{
			Gene:  strings.ToUpper(strings.TrimSpace(gene)),
			Score: float64(len(matchedTerms)) / float64(len(normalizedTerms)),
			Terms: matchedTerms,
		})
	}

	// strongest associations first, ties broken alphabetically
	sort.Slice(matches, func(x, y int) bool {
		if matches[x].Score != matches[y].Score {
			return matches[x].Score > matches[y].Score
		}
		return matches[x].Gene < matches[y].Gene
	})

	return matches
}

// normalizeTerm lower-cases and squeezes whitespace so that free-text
// terms and HPO identifiers ('HP:0001250') compare consistently.
func normalizeTerm(term string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(term)))
	return strings.Join(fields, " ")
}

// KnownGenes reports how many genes carry at least one association,
// mostly for the service banner.
func (ms *MatchingService) KnownGenes() int {
	ms.AssociationsMux.RLock()
	defer ms.AssociationsMux.RUnlock()
	return len(ms.Associations)
}
