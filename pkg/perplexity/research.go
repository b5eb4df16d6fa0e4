package perplexity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/linkmill/partners-cli/internal/research"
)

// researchSystemPrompt constrains the model to sourced, JSON-only output.
const researchSystemPrompt = `역할: 신뢰 가능한 출처만 사용하는 상품 리서치 에이전트.
규칙:
- 출력은 반드시 "JSON 객체" 한 개만(설명/코드펜스 금지).
- 추측 금지. 확인되지 않은 값은 빈 배열 또는 null.
- sources는 3개 이상이며, 제조사/공식 도메인을 1개 이상 포함.
- 출처가 부족하면 다음 형태로 실패 반환:
  { "status":"insufficient_sources", "missing_fields":["..."], "suggested_queries":["..."] }

필수 출력 스키마:
{
  "features": ["<핵심 기능>", ...],
  "benefits": ["<장점, 2개 이상 출처에서 확인된 것만>", ...],
  "drawbacks": ["<단점>", ...],
  "popularBrands": ["<해당 카테고리 인기 브랜드>", ...],
  "overview": "<2~3문장 요약>",
  "sources": ["<URL>", ...],
  "status": "success"
}`

// Researcher implements research.Provider by querying Perplexity
// directly, for deployments without the research API service.
type Researcher struct {
	client Client
}

// NewResearcher wraps a Perplexity client as a research provider.
func NewResearcher(client Client) *Researcher {
	return &Researcher{client: client}
}

// Research performs one sourced research call for the given item.
func (r *Researcher) Research(ctx context.Context, req research.Request) (*research.Raw, error) {
	temperature := 0.2
	maxTokens := 1500

	resp, err := r.client.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: buildQuery(req)},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("perplexity: empty completion")
	}

	payload := extractJSON(resp.Choices[0].Message.Content)

	var out struct {
		research.Raw
		Status           string   `json:"status"`
		MissingFields    []string `json:"missing_fields"`
		SuggestedQueries []string `json:"suggested_queries"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, eris.Wrap(err, "perplexity: parse research response")
	}

	if out.Status == "insufficient_sources" {
		return nil, &research.InsufficientSourcesError{
			MissingFields:    out.MissingFields,
			SuggestedQueries: out.SuggestedQueries,
		}
	}

	raw := out.Raw
	// Citation URLs arrive outside the completion body; fold them in.
	for _, c := range resp.Citations {
		if !containsString(raw.Sources, c) {
			raw.Sources = append(raw.Sources, c)
		}
	}
	return &raw, nil
}

func buildQuery(req research.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "다음 상품을 조사하라: %s\n", req.Item.Name)
	fmt.Fprintf(&b, "가격: %d원\n", req.Item.Price)
	if req.Item.CategoryName != "" {
		fmt.Fprintf(&b, "카테고리: %s\n", req.Item.CategoryName)
	}
	if req.Item.URL != "" {
		fmt.Fprintf(&b, "상품 URL: %s\n", req.Item.URL)
	}
	b.WriteString("\n기능, 장단점, 인기 브랜드, 요약, 출처를 스키마대로 반환하라.")
	return b.String()
}

// extractJSON isolates the outermost JSON object from a completion that
// may carry fences or prose around it.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
