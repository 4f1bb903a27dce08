package models

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// ReviewParams describes one review run the way an analyst would
// hand it to the command line: which file, what the case looks like,
// and how the results table should open.
type ReviewParams struct {
	VcfPath      string `yaml:"vcfPath"`
	AnalysisType string `yaml:"analysisType"`
	AssemblyId   string `yaml:"assemblyId"`

	// free-text case label carried with the session, and whether the
	// backend should keep the session past the sanitation window
	CaseLabel string `yaml:"caseLabel"`
	Retain    bool   `yaml:"retain"`

	PhenotypeTerms []string `yaml:"phenotypeTerms"`

	Filter struct {
		Classification string `yaml:"classification"`
		Impact         string `yaml:"impact"`
		SearchTerm     string `yaml:"searchTerm"`
	} `yaml:"filter"`

	Sort struct {
		Field     string `yaml:"field"`
		Direction string `yaml:"direction"`
	} `yaml:"sort"`
}

func LoadReviewParams(path string) (*ReviewParams, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read review params at %s: %v", path, err)
	}

	var params ReviewParams
	if err := yaml.Unmarshal(content, &params); err != nil {
		return nil, fmt.Errorf("failed to parse review params at %s: %v", path, err)
	}

	return &params, nil
}
