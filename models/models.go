package models

import (
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/impact"
)

var VcfHeaders = []string{"chrom", "pos", "id", "ref", "alt", "qual", "filter", "info", "format"}

type VariantRecord struct {
	Idx     int    `json:"idx"`
	Chrom   string `json:"chrom"`
	Pos     int    `json:"pos"`
	Id      string `json:"id"`
	Ref     string `json:"ref"`
	Alt     string `json:"alt"`
	Gene    string `json:"gene"`
	DbSnpId string `json:"dbSnpId,omitempty"`
	FileId  string `json:"fileId,omitempty"`

	Classification constants.Classification `json:"classification"`
	Impact         constants.Impact         `json:"impact"`
}

// GeneSummary carries the per-gene aggregate counts produced by the
// annotation pass. Every variant lands in exactly one classification
// and one impact bucket, so both count maps always sum to TotalVariants.
type GeneSummary struct {
	Symbol          string                           `json:"symbol"`
	TotalVariants   int                              `json:"totalVariants"`
	Classifications map[constants.Classification]int `json:"classifications"`
	Impacts         map[constants.Impact]int         `json:"impacts"`
}

// Balanced reports whether both count maps add up to TotalVariants.
func (g GeneSummary) Balanced() bool {
	classificationTotal := 0
	for _, count := range g.Classifications {
		classificationTotal += count
	}
	impactTotal := 0
	for _, count := range g.Impacts {
		impactTotal += count
	}
	return classificationTotal == g.TotalVariants && impactTotal == g.TotalVariants
}

// ImpactVector is one row of the classification/impact cross matrix.
type ImpactVector struct {
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
	Modifier int `json:"modifier"`
}

func (v ImpactVector) Total() int {
	return v.High + v.Moderate + v.Low + v.Modifier
}

func (v ImpactVector) Add(other ImpactVector) ImpactVector {
	return ImpactVector{
		High:     v.High + other.High,
		Moderate: v.Moderate + other.Moderate,
		Low:      v.Low + other.Low,
		Modifier: v.Modifier + other.Modifier,
	}
}

// Get returns the cell matching a single impact level.
func (v ImpactVector) Get(i constants.Impact) int {
	switch i {
	case impact.High:
		return v.High
	case impact.Moderate:
		return v.Moderate
	case impact.Low:
		return v.Low
	case impact.Modifier:
		return v.Modifier
	default:
		return 0
	}
}

// CrossMatrix maps classification tiers (plus the 'all' roll-up row)
// to impact count vectors for the whole session.
type CrossMatrix map[string]ImpactVector

type ValidationReport struct {
	TotalVariants int                  `json:"total_variants"`
	SampleCount   int                  `json:"sample_count"`
	AssemblyId    constants.AssemblyId `json:"assembly_id"`
	FilePath      string               `json:"file_path"`
	Warnings      []string             `json:"warnings,omitempty"`
}

type ProcessingSummary struct {
	TotalVariants int           `json:"total_variants"`
	GeneCount     int           `json:"gene_count"`
	Genes         []GeneSummary `json:"genes"`
	CrossMatrix   CrossMatrix   `json:"cross_matrix"`
}

type SessionMeta struct {
	SessionId    string                 `json:"sessionId"`
	FileName     string                 `json:"fileName"`
	AnalysisType constants.AnalysisType `json:"analysisType"`
	AssemblyId   constants.AssemblyId   `json:"assemblyId"`
	CaseLabel    string                 `json:"caseLabel,omitempty"`

	// retained sessions survive the sanitation sweep
	Retain bool `json:"retain,omitempty"`
}

// FilterSet narrows the review table. Zero values and the 'all'
// sentinels both mean 'no constraint on this axis'.
type FilterSet struct {
	Classification constants.Classification `json:"classification"`
	Impact         constants.Impact         `json:"impact"`
	SearchTerm     string                   `json:"searchTerm"`
}

func (f FilterSet) ConstrainsClassification() bool {
	return f.Classification != "" && f.Classification != constants.Classification("all")
}

func (f FilterSet) ConstrainsImpact() bool {
	return f.Impact != "" && f.Impact != constants.Impact("all")
}

type UploadReceipt struct {
	FileId    string  `json:"fileId"`
	FilePath  string  `json:"filePath"`
	BytesSent int64   `json:"bytesSent"`
	Ratio     float64 `json:"ratio"`
}
