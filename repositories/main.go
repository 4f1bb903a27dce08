package repositories

import (
	"time"

	"github.com/helena-bio/helix-frontend-sub000/models"
)

// SessionRecord is everything the annotation engine keeps for one
// uploaded file: the validation report, the processing summary, and
// the per-gene variant lists the review pane loads lazily.
type SessionRecord struct {
	SessionId      string                            `json:"sessionId"`
	Meta           models.SessionMeta                `json:"meta"`
	Report         models.ValidationReport           `json:"report"`
	Summary        models.ProcessingSummary          `json:"summary"`
	VariantsByGene map[string][]models.VariantRecord `json:"variantsByGene"`
	CreatedAt      time.Time                         `json:"createdAt"`
	UpdatedAt      time.Time                         `json:"updatedAt"`
}

// SessionRepository stores finished sessions. The default store is
// in-memory; an Elasticsearch-backed store can be swapped in when a
// cluster is configured.
type SessionRepository interface {
	SaveSession(record *SessionRecord) error
	GetSession(sessionId string) (*SessionRecord, error)
	GetGenes(sessionId string) ([]models.GeneSummary, error)
	GetGeneVariants(sessionId string, gene string) ([]models.VariantRecord, error)
	GetVariantByIdx(sessionId string, idx int) (*models.VariantRecord, error)
	DeleteSessionsBefore(cutoff time.Time) (int, error)
}
