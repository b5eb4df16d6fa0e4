package research

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/linkmill/partners-cli/internal/model"
)

// Generator rewrites a pack's SEO fields. BuildPack already filled
// deterministic defaults, so a failing generator costs nothing but the
// nicer copy.
type Generator interface {
	Apply(ctx context.Context, pack *model.ResearchPack) error
}

const seoSystemPrompt = `역할: 쿠팡 파트너스 상품 콘텐츠의 SEO 메타데이터 작성자.
규칙:
- 출력은 JSON 객체 한 개만: {"meta_title": "...", "meta_description": "...", "slug": "..."}
- meta_title은 60자 이내, meta_description은 155자 이내.
- slug는 영문 소문자, 숫자, 하이픈만 사용.
- 과장 광고 표현 금지.`

// ClaudeGenerator produces SEO metadata with the Anthropic API.
type ClaudeGenerator struct {
	client sdk.Client
	model  string
}

// NewClaudeGenerator creates a Claude-backed SEO generator.
func NewClaudeGenerator(apiKey, model string) *ClaudeGenerator {
	return &ClaudeGenerator{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Apply replaces the pack's meta title, description, and slug. The pack
// is left untouched on any error.
func (g *ClaudeGenerator) Apply(ctx context.Context, pack *model.ResearchPack) error {
	prompt, err := json.Marshal(map[string]any{
		"title":    pack.Title,
		"features": pack.Features,
		"pros":     pack.Pros,
		"keywords": pack.Keywords,
	})
	if err != nil {
		return eris.Wrap(err, "seo: marshal prompt")
	}

	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: 512,
		System:    []sdk.TextBlockParam{{Text: seoSystemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(string(prompt))),
		},
	})
	if err != nil {
		return eris.Wrap(err, "seo: create message")
	}

	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "" || b.Type == "text" {
			text.WriteString(b.Text)
		}
	}

	var out struct {
		MetaTitle       string `json:"meta_title"`
		MetaDescription string `json:"meta_description"`
		Slug            string `json:"slug"`
	}
	if err := json.Unmarshal([]byte(stripFences(text.String())), &out); err != nil {
		return eris.Wrap(err, "seo: parse response")
	}
	if out.MetaTitle == "" || out.MetaDescription == "" {
		return eris.New("seo: response missing required fields")
	}

	pack.MetaTitle = truncateRunes(out.MetaTitle, maxMetaTitleRunes)
	pack.MetaDescription = truncateRunes(out.MetaDescription, maxMetaDescRunes)
	if out.Slug != "" {
		pack.Slug = Slugify(out.Slug)
	}
	return nil
}

// stripFences removes markdown code fences and isolates the outermost
// JSON value. Models wrap JSON in fences often enough that every parse
// site goes through this.
func stripFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	if start := strings.IndexAny(text, "[{"); start >= 0 {
		var end int
		if text[start] == '{' {
			end = strings.LastIndex(text, "}")
		} else {
			end = strings.LastIndex(text, "]")
		}
		if end > start {
			text = text[start : end+1]
		}
	}

	return strings.TrimSpace(text)
}
