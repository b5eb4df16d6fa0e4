// Package insight calls the product research API service. It is the
// default research provider: one POST per selected item, returning the
// normalized research payload the results surface consumes.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/linkmill/partners-cli/internal/model"
	"github.com/linkmill/partners-cli/internal/research"
)

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets a bearer token for the research service.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout overrides the default per-request timeout. Research calls
// fan out to external search, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// Client implements research.Provider against the research API service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a research service client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type researchRequest struct {
	ProjectID   string        `json:"projectId"`
	ItemID      string        `json:"itemId"`
	ItemName    string        `json:"itemName"`
	ProductData model.Product `json:"productData"`
}

// Research performs one research call for the given item.
func (c *Client) Research(ctx context.Context, req research.Request) (*research.Raw, error) {
	payload, err := json.Marshal(researchRequest{
		ProjectID:   req.ProjectID,
		ItemID:      req.Item.SelectionID(),
		ItemName:    req.Item.Name,
		ProductData: req.Item,
	})
	if err != nil {
		return nil, eris.Wrap(err, "insight: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/research", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "insight: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "insight: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "insight: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("insight: unexpected status %d: %s", resp.StatusCode, errorMessage(body))
	}

	// An insufficient-sources outcome arrives as a 200 with its own
	// status; it is a per-item failure with retry hints attached.
	if gjson.GetBytes(body, "status").String() == "insufficient_sources" {
		return nil, &research.InsufficientSourcesError{
			MissingFields:    stringSlice(gjson.GetBytes(body, "missingFields")),
			SuggestedQueries: stringSlice(gjson.GetBytes(body, "suggestedQueries")),
		}
	}

	data := gjson.GetBytes(body, "researchData")
	if !data.Exists() {
		return nil, eris.New("insight: response missing researchData")
	}

	var raw research.Raw
	if err := json.Unmarshal([]byte(data.Raw), &raw); err != nil {
		return nil, eris.Wrap(err, "insight: unmarshal researchData")
	}
	return &raw, nil
}

// errorMessage pulls a human-readable message out of an error body; the
// service uses both "error" and "details" depending on the failure.
func errorMessage(body []byte) string {
	for _, key := range []string{"error", "details", "message"} {
		if msg := gjson.GetBytes(body, key).String(); msg != "" {
			return msg
		}
	}
	return string(body)
}

func stringSlice(res gjson.Result) []string {
	var out []string
	for _, v := range res.Array() {
		out = append(out, v.String())
	}
	return out
}
