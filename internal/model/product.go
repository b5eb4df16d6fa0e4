package model

import (
	"net/url"
	"strconv"
)

// Product is the canonical form of a single Coupang listing. Raw search
// and category payloads use inconsistent field names; catalog.ParseListings
// resolves them into this shape once, on ingestion, and nothing downstream
// ever reads a raw payload again.
type Product struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	Price          int64  `json:"price"` // KRW
	ImageURL       string `json:"image_url,omitempty"`
	URL            string `json:"url"`
	CategoryName   string `json:"category_name,omitempty"`
	Keyword        string `json:"keyword,omitempty"`
	Rank           int    `json:"rank,omitempty"`
	IsRocket       bool   `json:"is_rocket"`
	IsFreeShipping bool   `json:"is_free_shipping"`
}

// GroupKey returns the identity used to group listings into one logical
// product. Listings without a product ID group by URL path instead, so a
// malformed listing forms its own singleton group rather than colliding.
func (p Product) GroupKey() string {
	if p.ProductID != 0 {
		return strconv.FormatInt(p.ProductID, 10)
	}
	if u, err := url.Parse(p.URL); err == nil && u.Path != "" {
		return "url:" + u.Host + u.Path
	}
	return "name:" + p.Name
}

// SelectionID is the stable identifier a product contributes to a
// selection set. It survives filtering, sorting, and regrouping.
func (p Product) SelectionID() string {
	return p.GroupKey()
}

// Variant is one purchasable listing within a grouped product.
type Variant struct {
	ProductID    int64    `json:"product_id"`
	ItemID       string   `json:"item_id,omitempty"`
	VendorItemID string   `json:"vendor_item_id,omitempty"`
	PriceDiff    int64    `json:"price_diff"` // relative to the group's cheapest listing
	Listing      *Product `json:"listing"`
}

// PriceRange is the min/max listing price within a group.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// GroupedProduct is the deduplicated, display-ready entity: one logical
// product represented by its cheapest listing plus every seller/option
// variant, price ascending.
type GroupedProduct struct {
	Key        string     `json:"key"`
	ProductID  int64      `json:"product_id"`
	Main       *Product   `json:"main"`
	Variants   []Variant  `json:"variants"`
	PriceRange PriceRange `json:"price_range"`
}

// VariantCount reports how many listings the group holds.
func (g GroupedProduct) VariantCount() int {
	return len(g.Variants)
}

// DeepLink is one converted affiliate link.
type DeepLink struct {
	OriginalURL string `json:"original_url"`
	ShortenURL  string `json:"shorten_url"`
	LandingURL  string `json:"landing_url"`
}

// SelectionID returns the stable identifier a deep link contributes to a
// selection set: the original URL, which is known before conversion.
func (d DeepLink) SelectionID() string {
	return d.OriginalURL
}

// BestURL returns the most specific usable link: the tracked short link
// when conversion produced one, otherwise the landing page, otherwise the
// original input.
func (d DeepLink) BestURL() string {
	if d.ShortenURL != "" {
		return d.ShortenURL
	}
	if d.LandingURL != "" {
		return d.LandingURL
	}
	return d.OriginalURL
}
