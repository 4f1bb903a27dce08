package chromosome

import (
	"fmt"
	"strconv"
	"strings"
)

func ValidListOfHumanChromosomes() []string {
	var humChroms []string
	for i := 1; i < 24; i++ {
		humChroms = append(humChroms, fmt.Sprint(i))
	}
	humChroms = append(humChroms, "X")
	humChroms = append(humChroms, "Y")
	humChroms = append(humChroms, "M")
	return humChroms
}

// Normalize strips the UCSC-style 'chr' prefix and collapses the
// mitochondrial aliases so 'chr1', '1', 'chrMT' and 'M' all compare
// equal across genome builds.
func Normalize(text string) string {
	normalized := strings.TrimPrefix(strings.TrimPrefix(text, "chr"), "Chr")
	if strings.EqualFold(normalized, "mt") || strings.EqualFold(normalized, "m") {
		return "M"
	}
	return normalized
}

func IsValidHumanChromosome(text string) bool {
	normalized := Normalize(text)

	// Check if number can be represented as an int as is non-zero
	chromNumber, _ := strconv.Atoi(normalized)
	if chromNumber > 0 {
		// It can..
		// Check if it in range 1-23
		if chromNumber < 24 {
			return true
		}
	} else {
		// No it can't..
		// Check if it is an X, Y or M (MT)
		switch strings.ToLower(normalized) {
		case "x", "y", "m":
			return true
		}
	}

	return false
}
