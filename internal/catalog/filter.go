package catalog

import (
	"sort"

	"github.com/linkmill/partners-cli/internal/model"
)

// SortOrder controls price sorting of a product view.
type SortOrder string

const (
	SortNone SortOrder = "none"
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterOptions narrows a product view. Price bounds are inclusive and
// apply only when PriceFiltering is set; keyword and link search results
// are not price-annotated consistently, so callers enable it only in
// category contexts.
type FilterOptions struct {
	RocketOnly     bool
	PriceFiltering bool
	MinPrice       int64
	MaxPrice       int64 // 0 means unbounded
}

// Filter returns the records passing every enabled criterion. Input is
// not modified; empty input yields empty output.
func Filter(records []model.Product, opts FilterOptions) []model.Product {
	if len(records) == 0 {
		return nil
	}

	out := make([]model.Product, 0, len(records))
	for _, p := range records {
		if opts.RocketOnly && !p.IsRocket {
			continue
		}
		if opts.PriceFiltering {
			if p.Price < opts.MinPrice {
				continue
			}
			if opts.MaxPrice > 0 && p.Price > opts.MaxPrice {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Sort orders records by price. SortNone returns the input order
// unchanged; asc/desc are stable, so equal prices keep their input order.
func Sort(records []model.Product, order SortOrder) []model.Product {
	if len(records) == 0 {
		return nil
	}

	out := make([]model.Product, len(records))
	copy(out, records)

	switch order {
	case SortAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}
