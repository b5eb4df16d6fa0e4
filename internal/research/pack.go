package research

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/linkmill/partners-cli/internal/model"
)

const (
	maxMetaTitleRunes = 60
	maxMetaDescRunes  = 155
)

// BuildPack normalizes a raw research response into the pack handed to
// the results view. SEO fields get deterministic defaults here; a
// Generator (seo.go) may overwrite them afterwards.
func BuildPack(item model.Product, raw Raw) model.ResearchPack {
	pack := model.ResearchPack{
		ItemID:   item.SelectionID(),
		Title:    item.Name,
		PriceKRW: item.Price,
		IsRocket: item.IsRocket,
		Features: raw.Features,
		Pros:     raw.Benefits,
		Cons:     raw.Drawbacks,
		Keywords: buildKeywords(item, raw),
		Sources:  raw.Sources,
	}

	pack.MetaTitle = truncateRunes(fmt.Sprintf("%s 리뷰 및 구매 가이드", item.Name), maxMetaTitleRunes)
	pack.MetaDescription = truncateRunes(metaDescription(item, raw), maxMetaDescRunes)
	pack.Slug = Slugify(item.Name)
	return pack
}

func metaDescription(item model.Product, raw Raw) string {
	if raw.Overview != "" {
		return raw.Overview
	}
	if len(raw.Features) > 0 {
		return fmt.Sprintf("%s — %s", item.Name, strings.Join(raw.Features, ", "))
	}
	return fmt.Sprintf("%s 상세 정보와 가격 비교", item.Name)
}

func buildKeywords(item model.Product, raw Raw) []string {
	seen := make(map[string]struct{})
	var keywords []string
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}

	if item.Keyword != "" {
		add(item.Keyword)
	}
	if item.CategoryName != "" {
		add(item.CategoryName)
	}
	for _, b := range raw.PopularBrands {
		add(b)
	}
	return keywords
}

// Slugify lowercases and dash-joins a product name into a URL slug.
// Korean and other letters are kept as-is; runs of anything that is not
// a letter or digit collapse into single dashes.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
