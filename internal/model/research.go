package model

import "time"

// RunStatus represents the current state of a research run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// ResearchPack is the normalized output of one successful per-item
// research call, ready for the results view and content export.
type ResearchPack struct {
	ItemID          string   `json:"item_id"`
	Title           string   `json:"title"`
	PriceKRW        int64    `json:"price_krw"`
	IsRocket        bool     `json:"is_rocket"`
	Features        []string `json:"features"`
	Pros            []string `json:"pros"`
	Cons            []string `json:"cons"`
	Keywords        []string `json:"keywords"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Slug            string   `json:"slug"`
	Sources         []string `json:"sources,omitempty"`
}

// FailedItem records one item whose research call did not produce a pack.
type FailedItem struct {
	Item             Product  `json:"item"`
	Error            string   `json:"error"`
	MissingFields    []string `json:"missing_fields,omitempty"`
	SuggestedQueries []string `json:"suggested_queries,omitempty"`
}

// Run is one batch research job: the selected items, everything the
// orchestrator produced for them, and bookkeeping. Failed items are kept
// alongside the packs so a partial run is distinguishable from a short
// selection, but they are never part of the results handoff.
type Run struct {
	ProjectID    string         `json:"project_id"`
	Items        []Product      `json:"items"`
	Packs        []ResearchPack `json:"packs"`
	Failures     []FailedItem   `json:"failures,omitempty"`
	Status       RunStatus      `json:"status"`
	Total        int            `json:"total"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	ProcessingMS int64          `json:"processing_ms,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Start marks the run as processing.
func (r *Run) Start(now time.Time) {
	r.Status = RunStatusProcessing
	r.StartedAt = &now
	r.UpdatedAt = now
}

// AddPack records one successful item.
func (r *Run) AddPack(pack ResearchPack) {
	r.Packs = append(r.Packs, pack)
	r.Succeeded++
}

// AddFailure records one failed item.
func (r *Run) AddFailure(f FailedItem) {
	r.Failures = append(r.Failures, f)
	r.Failed++
}

// Complete marks the run complete. A run with zero packs still completes;
// whether an empty result set matters is the consumer's call.
func (r *Run) Complete(now time.Time) {
	r.Status = RunStatusComplete
	r.CompletedAt = &now
	r.UpdatedAt = now
	if r.StartedAt != nil {
		r.ProcessingMS = now.Sub(*r.StartedAt).Milliseconds()
	}
}

// Fail marks the run as failed outside per-item containment.
func (r *Run) Fail(now time.Time) {
	r.Status = RunStatusFailed
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// SuccessRate is the fraction of items that produced a pack.
func (r *Run) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total)
}

// Handoff is the consolidated payload delivered to the results surface
// once every batch has settled. Failed items are not included.
type Handoff struct {
	ProjectID string         `json:"project_id"`
	Packs     []ResearchPack `json:"packs"`
}
