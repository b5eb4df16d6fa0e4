package catalog

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/linkmill/partners-cli/internal/model"
)

// Group partitions listings by product identity. Within each partition
// the cheapest listing becomes the main item, variants are ordered price
// ascending (ties keep input order), and every variant carries its price
// difference against the main item. Groups come out in first-appearance
// order of their key.
func Group(listings []model.Product) []model.GroupedProduct {
	if len(listings) == 0 {
		return nil
	}

	byKey := make(map[string][]model.Product, len(listings))
	var order []string
	for _, p := range listings {
		key := p.GroupKey()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], p)
	}

	groups := make([]model.GroupedProduct, 0, len(order))
	for _, key := range order {
		groups = append(groups, buildGroup(key, byKey[key]))
	}
	return groups
}

func buildGroup(key string, listings []model.Product) model.GroupedProduct {
	sorted := make([]model.Product, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})

	main := sorted[0]
	rng := model.PriceRange{Min: main.Price, Max: main.Price}
	variants := make([]model.Variant, 0, len(sorted))
	for i := range sorted {
		p := sorted[i]
		if p.Price > rng.Max {
			rng.Max = p.Price
		}
		itemID, vendorItemID := variantIDsFromURL(p.URL)
		variants = append(variants, model.Variant{
			ProductID:    p.ProductID,
			ItemID:       itemID,
			VendorItemID: vendorItemID,
			PriceDiff:    p.Price - main.Price,
			Listing:      &sorted[i],
		})
	}

	return model.GroupedProduct{
		Key:        key,
		ProductID:  main.ProductID,
		Main:       &sorted[0],
		Variants:   variants,
		PriceRange: rng,
	}
}

// variantIDsFromURL pulls the itemId/vendorItemId query parameters that
// distinguish seller/option listings sharing one product ID. Either may
// be absent.
func variantIDsFromURL(raw string) (itemID, vendorItemID string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	q := u.Query()
	return q.Get("itemId"), q.Get("vendorItemId")
}

// Flatten returns each group's main item for flat display contexts. When
// a group holds more than one listing, the returned record is a copy with
// the name annotated with the option count and price range, so downstream
// code cannot mistake it for a single exact listing. Originals are never
// mutated.
func Flatten(groups []model.GroupedProduct) []model.Product {
	if len(groups) == 0 {
		return nil
	}

	flat := make([]model.Product, 0, len(groups))
	for _, g := range groups {
		main := *g.Main
		if g.VariantCount() > 1 {
			main.Name = fmt.Sprintf("%s (%d개 옵션, %d~%d원)",
				main.Name, g.VariantCount(), g.PriceRange.Min, g.PriceRange.Max)
		}
		flat = append(flat, main)
	}
	return flat
}
