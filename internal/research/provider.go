// Package research drives batched, partially-failable AI research
// generation over selected products.
package research

import (
	"context"

	"github.com/linkmill/partners-cli/internal/model"
)

// Request is one per-item research call.
type Request struct {
	ProjectID string
	Item      model.Product
}

// Raw is the unnormalized body of a successful research response.
type Raw struct {
	Features      []string `json:"features"`
	Benefits      []string `json:"benefits"`
	Drawbacks     []string `json:"drawbacks,omitempty"`
	PopularBrands []string `json:"popularBrands,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Sources       []string `json:"sources,omitempty"`
}

// Provider performs one research call per item. Implementations live in
// pkg/insight (the research API service) and pkg/perplexity (direct LLM
// research); the orchestrator does not care which.
type Provider interface {
	Research(ctx context.Context, req Request) (*Raw, error)
}

// InsufficientSourcesError reports a research outcome rejected for lack
// of trustworthy sources. It is a per-item failure like any other, but
// carries what the provider suggests trying instead.
type InsufficientSourcesError struct {
	MissingFields    []string
	SuggestedQueries []string
}

func (e *InsufficientSourcesError) Error() string {
	return "research: insufficient sources"
}
