package dtos

import (
	"time"

	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
)

// ---- general error handling

type GeneralError struct {
	Message string `json:"message"`
}

type GeneralErrorResponseDto struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}

// ---- upload

type UploadResponseDto struct {
	Id       string `json:"id"`
	FilePath string `json:"file_path"`
	Size     int64  `json:"size"`
}

// ---- tasks

type TaskCreatedDto struct {
	TaskId string `json:"task_id"`
}

type TaskInfoDto struct {
	Progress        float64  `json:"progress"`
	Stage           string   `json:"stage"`
	CompletedStages []string `json:"completed_stages"`
}

type TaskStatusDto struct {
	TaskId     string              `json:"task_id"`
	Status     constants.TaskState `json:"status"`
	Info       TaskInfoDto         `json:"info"`
	Ready      bool                `json:"ready"`
	Successful bool                `json:"successful"`
	Failed     bool                `json:"failed"`
	Error      string              `json:"error,omitempty"`

	// validation or processing payload, shaped by the task kind
	Result map[string]interface{} `json:"result,omitempty"`
}

// ---- review results

type GeneEntryDto struct {
	Summary  models.GeneSummary     `json:"summary"`
	Variants []models.VariantRecord `json:"variants,omitempty"`
}

type GenesResponseDto struct {
	Status     int            `json:"status"`
	Message    string         `json:"message"`
	Term       string         `json:"term"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalGenes int            `json:"totalGenes"`
	Count      int            `json:"count"`
	Results    []GeneEntryDto `json:"results"`
}

type VariantsResponseDto struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Count   int                    `json:"count"`
	Results []models.VariantRecord `json:"results"`
}

type CrossMatrixResponseDto struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Matrix  models.CrossMatrix `json:"matrix"`
}

// ---- phenotype matching

type PhenotypeMatchRequestDto struct {
	Terms []string `json:"terms"`
	Genes []string `json:"genes"`
}

type PhenotypeMatch struct {
	Gene  string   `json:"gene"`
	Score float64  `json:"score"`
	Terms []string `json:"terms"`
}

type PhenotypeMatchResponseDto struct {
	Status  int              `json:"status"`
	Message string           `json:"message"`
	Matches []PhenotypeMatch `json:"matches"`
}
