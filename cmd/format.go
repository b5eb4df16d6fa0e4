package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/linkmill/partners-cli/internal/catalog"
	"github.com/linkmill/partners-cli/internal/model"
)

var krw = message.NewPrinter(language.Korean)

// formatKRW renders a price with thousands separators, e.g. "129,000원".
func formatKRW(v int64) string {
	return krw.Sprintf("%d원", v)
}

// formatGroups writes a tabular view of grouped products to w.
func formatGroups(out io.Writer, groups []model.GroupedProduct) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE\tOPTIONS\tRANGE\tROCKET")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t-----\t------")

	for _, g := range groups {
		priceRange := "-"
		if g.VariantCount() > 1 {
			priceRange = fmt.Sprintf("%s ~ %s", formatKRW(g.PriceRange.Min), formatKRW(g.PriceRange.Max))
		}
		rocket := ""
		if g.Main.IsRocket {
			rocket = "🚀"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			g.Key,
			truncateName(g.Main.Name),
			formatKRW(g.Main.Price),
			g.VariantCount(),
			priceRange,
			rocket,
		)
	}
	_ = w.Flush()
}

// formatProducts writes a flat listing table to w.
func formatProducts(out io.Writer, products []model.Product) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE\tCATEGORY\tROCKET")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t--------\t------")

	for _, p := range products {
		rocket := ""
		if p.IsRocket {
			rocket = "🚀"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.SelectionID(),
			truncateName(p.Name),
			formatKRW(p.Price),
			p.CategoryName,
			rocket,
		)
	}
	_ = w.Flush()
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) > 40 {
		return string(runes[:37]) + "..."
	}
	return name
}

// parseSort maps the --sort flag onto a catalog sort order.
func parseSort(s string) (catalog.SortOrder, error) {
	switch s {
	case "", "none":
		return catalog.SortNone, nil
	case "asc", "price-asc":
		return catalog.SortAsc, nil
	case "desc", "price-desc":
		return catalog.SortDesc, nil
	default:
		return catalog.SortNone, fmt.Errorf("unknown sort order %q (use asc, desc, or none)", s)
	}
}
