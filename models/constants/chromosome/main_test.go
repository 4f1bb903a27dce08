package chromosome

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("should strip the ucsc chr prefix", func(t *testing.T) {
		assert.Equal(t, "1", Normalize("chr1"))
		assert.Equal(t, "2", Normalize("Chr2"))
		assert.Equal(t, "X", Normalize("chrX"))
		assert.Equal(t, "17", Normalize("17"))
	})

	t.Run("should collapse the mitochondrial aliases", func(t *testing.T) {
		assert.Equal(t, "M", Normalize("MT"))
		assert.Equal(t, "M", Normalize("chrMT"))
		assert.Equal(t, "M", Normalize("chrM"))
		assert.Equal(t, "M", Normalize("m"))
	})
}

func TestIsValidHumanChromosome(t *testing.T) {
	t.Run("should accept the autosomes and sex chromosomes", func(t *testing.T) {
		assert.True(t, IsValidHumanChromosome("1"))
		assert.True(t, IsValidHumanChromosome("23"))
		assert.True(t, IsValidHumanChromosome("chr7"))
		assert.True(t, IsValidHumanChromosome("X"))
		assert.True(t, IsValidHumanChromosome("y"))
		assert.True(t, IsValidHumanChromosome("chrMT"))
	})

	t.Run("should reject everything else", func(t *testing.T) {
		assert.False(t, IsValidHumanChromosome("0"))
		assert.False(t, IsValidHumanChromosome("24"))
		assert.False(t, IsValidHumanChromosome("99"))
		assert.False(t, IsValidHumanChromosome(""))
		assert.False(t, IsValidHumanChromosome("scaffold_41"))
	})
}

func TestValidListOfHumanChromosomes(t *testing.T) {
	chroms := ValidListOfHumanChromosomes()

	assert.Equal(t, 26, len(chroms))
	assert.Contains(t, chroms, "1")
	assert.Contains(t, chroms, "23")
	assert.Contains(t, chroms, "X")
	assert.Contains(t, chroms, "Y")
	assert.Contains(t, chroms, "M")
}
