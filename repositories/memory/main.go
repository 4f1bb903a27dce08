package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
)

// Repository keeps sessions in process memory. It is the default
// store: a single-node review service does not need a cluster to
// hold what is essentially a working set with a short retention.
type Repository struct {
	mu       sync.RWMutex
	sessions map[string]*repositories.SessionRecord
}

func New() *Repository {
	return &Repository{
		sessions: map[string]*repositories.SessionRecord{},
	}
}

func (r *Repository) SaveSession(record *repositories.SessionRecord) error {
	if record.SessionId == "" {
		return fmt.Errorf("refusing to save a session without an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, found := r.sessions[record.SessionId]; found {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	r.sessions[record.SessionId] = record

	return nil
}

func (r *Repository) GetSession(sessionId string) (*repositories.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, found := r.sessions[sessionId]
	if !found {
		return nil, fmt.Errorf("session %s not found", sessionId)
	}
	return record, nil
}

func (r *Repository) GetGenes(sessionId string) ([]models.GeneSummary, error) {
	record, err := r.GetSession(sessionId)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	genes := make([]models.GeneSummary, len(record.Summary.Genes))
	copy(genes, record.Summary.Genes)
	return genes, nil
}

func (r *Repository) GetGeneVariants(sessionId string, gene string) ([]models.VariantRecord, error) {
	record, err := r.GetSession(sessionId)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	variants, found := record.VariantsByGene[gene]
	if !found {
		// a gene with no variants is an empty list, not an error
		return []models.VariantRecord{}, nil
	}

	copied := make([]models.VariantRecord, len(variants))
	copy(copied, variants)
	return copied, nil
}

func (r *Repository) GetVariantByIdx(sessionId string, idx int) (*models.VariantRecord, error) {
	record, err := r.GetSession(sessionId)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, variants := range record.VariantsByGene {
		for _, variant := range variants {
			if variant.Idx == idx {
				found := variant
				return &found, nil
			}
		}
	}
	return nil, fmt.Errorf("variant %d not found in session %s", idx, sessionId)
}

func (r *Repository) DeleteSessionsBefore(cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for sessionId, record := range r.sessions {
		if record.Meta.Retain {
			// explicitly retained sessions outlive the sweep
			continue
		}
		if record.UpdatedAt.Before(cutoff) {
			delete(r.sessions, sessionId)
			deleted++
		}
	}
	return deleted, nil
}
