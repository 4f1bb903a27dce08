package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helena-bio/helix-frontend-sub000/models"
	assemblyId "github.com/helena-bio/helix-frontend-sub000/models/constants/assembly-id"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/classification"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/impact"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
)

func reviewRecord(sessionId string) *repositories.SessionRecord {
	return &repositories.SessionRecord{
		SessionId: sessionId,
		Meta: models.SessionMeta{
			SessionId:  sessionId,
			AssemblyId: assemblyId.GRCh38,
		},
		Summary: models.ProcessingSummary{
			TotalVariants: 3,
			GeneCount:     2,
			Genes: []models.GeneSummary{
				{Symbol: "BRCA1", TotalVariants: 2},
				{Symbol: "TP53", TotalVariants: 1},
			},
		},
		VariantsByGene: map[string][]models.VariantRecord{
			"BRCA1": {
				{Idx: 0, Chrom: "17", Pos: 43045729, Gene: "BRCA1", Classification: classification.Pathogenic, Impact: impact.High},
				{Idx: 1, Chrom: "17", Pos: 43051071, Gene: "BRCA1", Classification: classification.Benign, Impact: impact.Low},
			},
			"TP53": {
				{Idx: 2, Chrom: "17", Pos: 7674220, Gene: "TP53", Classification: classification.Uncertain, Impact: impact.Moderate},
			},
		},
	}
}

func TestSaveSession(t *testing.T) {
	t.Run("should stamp both timestamps on first save", func(t *testing.T) {
		repository := New()

		assert.Nil(t, repository.SaveSession(reviewRecord("session-1")))

		stored, getErr := repository.GetSession("session-1")
		assert.Nil(t, getErr)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
	})

	t.Run("should keep CreatedAt and bump UpdatedAt when a session is replaced", func(t *testing.T) {
		repository := New()

		assert.Nil(t, repository.SaveSession(reviewRecord("session-1")))
		first, _ := repository.GetSession("session-1")
		firstCreatedAt := first.CreatedAt

		time.Sleep(5 * time.Millisecond)

		replacement := reviewRecord("session-1")
		replacement.Summary.TotalVariants = 99
		assert.Nil(t, repository.SaveSession(replacement))

		stored, getErr := repository.GetSession("session-1")
		assert.Nil(t, getErr)
		assert.Equal(t, 99, stored.Summary.TotalVariants)
		assert.Equal(t, firstCreatedAt, stored.CreatedAt)
		assert.True(t, stored.UpdatedAt.After(firstCreatedAt))
	})

	t.Run("should refuse a record without a session id", func(t *testing.T) {
		repository := New()

		saveErr := repository.SaveSession(&repositories.SessionRecord{})
		assert.NotNil(t, saveErr)
		assert.Contains(t, saveErr.Error(), "without an id")
	})
}

func TestSessionReads(t *testing.T) {
	repository := New()
	assert.Nil(t, repository.SaveSession(reviewRecord("session-1")))

	t.Run("should find a stored session and miss an unknown one", func(t *testing.T) {
		stored, getErr := repository.GetSession("session-1")
		assert.Nil(t, getErr)
		assert.Equal(t, assemblyId.GRCh38, stored.Meta.AssemblyId)

		_, missErr := repository.GetSession("who-dis")
		assert.NotNil(t, missErr)
		assert.Contains(t, missErr.Error(), "not found")
	})

	t.Run("should hand out gene summaries as a copy", func(t *testing.T) {
		genes, getErr := repository.GetGenes("session-1")
		assert.Nil(t, getErr)
		assert.Equal(t, 2, len(genes))

		genes[0].Symbol = "TAMPERED"

		again, _ := repository.GetGenes("session-1")
		assert.Equal(t, "BRCA1", again[0].Symbol)
	})

	t.Run("should serve a gene's variants", func(t *testing.T) {
		variants, getErr := repository.GetGeneVariants("session-1", "BRCA1")
		assert.Nil(t, getErr)
		assert.Equal(t, 2, len(variants))
		assert.Equal(t, classification.Pathogenic, variants[0].Classification)
	})

	t.Run("should treat a gene with no variants as an empty list", func(t *testing.T) {
		variants, getErr := repository.GetGeneVariants("session-1", "GHOST")
		assert.Nil(t, getErr)
		assert.NotNil(t, variants)
		assert.Equal(t, 0, len(variants))
	})

	t.Run("should error variant lookups against an unknown session", func(t *testing.T) {
		_, getErr := repository.GetGeneVariants("who-dis", "BRCA1")
		assert.NotNil(t, getErr)
	})

	t.Run("should find a single variant by its session-wide index", func(t *testing.T) {
		variant, getErr := repository.GetVariantByIdx("session-1", 2)
		assert.Nil(t, getErr)
		assert.Equal(t, "TP53", variant.Gene)

		// the pointer targets a copy, not the stored record
		variant.Gene = "TAMPERED"
		again, _ := repository.GetVariantByIdx("session-1", 2)
		assert.Equal(t, "TP53", again.Gene)
	})

	t.Run("should miss an index outside the session", func(t *testing.T) {
		_, getErr := repository.GetVariantByIdx("session-1", 99)
		assert.NotNil(t, getErr)
		assert.Contains(t, getErr.Error(), "variant 99 not found")
	})
}

func TestDeleteSessionsBefore(t *testing.T) {
	t.Run("should sweep only sessions untouched since the cutoff", func(t *testing.T) {
		repository := New()

		assert.Nil(t, repository.SaveSession(reviewRecord("session-old")))
		time.Sleep(5 * time.Millisecond)
		cutoff := time.Now()
		time.Sleep(5 * time.Millisecond)
		assert.Nil(t, repository.SaveSession(reviewRecord("session-new")))

		deleted, deleteErr := repository.DeleteSessionsBefore(cutoff)
		assert.Nil(t, deleteErr)
		assert.Equal(t, 1, deleted)

		_, oldErr := repository.GetSession("session-old")
		assert.NotNil(t, oldErr)
		_, newErr := repository.GetSession("session-new")
		assert.Nil(t, newErr)
	})

	t.Run("should sweep everything given a future cutoff", func(t *testing.T) {
		repository := New()
		assert.Nil(t, repository.SaveSession(reviewRecord("session-1")))
		assert.Nil(t, repository.SaveSession(reviewRecord("session-2")))

		deleted, deleteErr := repository.DeleteSessionsBefore(time.Now().Add(time.Hour))
		assert.Nil(t, deleteErr)
		assert.Equal(t, 2, deleted)
	})

	t.Run("should leave retained sessions alone regardless of age", func(t *testing.T) {
		repository := New()

		retained := reviewRecord("session-retained")
		retained.Meta.Retain = true
		assert.Nil(t, repository.SaveSession(retained))
		assert.Nil(t, repository.SaveSession(reviewRecord("session-disposable")))

		deleted, deleteErr := repository.DeleteSessionsBefore(time.Now().Add(time.Hour))
		assert.Nil(t, deleteErr)
		assert.Equal(t, 1, deleted)

		_, keptErr := repository.GetSession("session-retained")
		assert.Nil(t, keptErr)
		_, sweptErr := repository.GetSession("session-disposable")
		assert.NotNil(t, sweptErr)
	})
}
