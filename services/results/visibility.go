package results

import (
	"fmt"
	"strings"
	"sync"

	"github.com/helena-bio/helix-frontend-sub000/models"
)

// VisibilityController meters how much of a filtered gene table is
// actually materialized in the review pane. Tables can run to tens
// of thousands of genes; rendering grows a watermark instead, and a
// scroll sentinel at the bottom of the pane asks for more.
type VisibilityController struct {
	Initial int
	Step    int

	mu        sync.Mutex
	visible   int
	bound     bool
	signature string
}

func NewVisibilityController(initial int, step int) *VisibilityController {
	if initial <= 0 {
		initial = 50
	}
	if step <= 0 {
		step = initial
	}
	return &VisibilityController{
		Initial: initial,
		Step:    step,
		visible: initial,
	}
}

// Window returns the leading slice of genes the pane should render
// under the given filter. A filter change rewinds the watermark to
// the initial window; within one filter the watermark only grows.
func (v *VisibilityController) Window(filter models.FilterSet, genes []models.GeneSummary) []models.GeneSummary {
	v.mu.Lock()
	defer v.mu.Unlock()

	signature := filterSignature(filter)
	if v.bound && signature != v.signature {
		v.visible = v.Initial
	}
	v.bound = true
	v.signature = signature

	count := v.visible
	if count > len(genes) {
		count = len(genes)
	}
	return genes[:count]
}

// Grow raises the watermark by one step.
func (v *VisibilityController) Grow() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible += v.Step
}

// HasMore reports whether genes extend past the current window.
func (v *VisibilityController) HasMore(filter models.FilterSet, genes []models.GeneSummary) bool {
	return len(v.Window(filter, genes)) < len(genes)
}

// Visible returns the current watermark.
func (v *VisibilityController) Visible() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Reset rewinds the watermark and forgets the filter it was bound to.
func (v *VisibilityController) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = v.Initial
	v.bound = false
	v.signature = ""
}

func filterSignature(filter models.FilterSet) string {
	return strings.ToLower(fmt.Sprintf("%s|%s|%s",
		filter.Classification, filter.Impact, strings.TrimSpace(filter.SearchTerm)))
}
