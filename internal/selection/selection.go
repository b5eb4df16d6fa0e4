// Package selection tracks user-chosen items across changing product
// views and gates the actions that consume a selection.
package selection

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/linkmill/partners-cli/internal/model"
)

// ErrEmptySelection is returned by the action gate when no items are
// selected. Callers surface it as a notice and make no further calls.
var ErrEmptySelection = eris.New("선택된 상품이 없습니다")

// ItemKind discriminates the selectable result types.
type ItemKind string

const (
	KindProduct  ItemKind = "product"
	KindDeepLink ItemKind = "deeplink"
)

// Item is a tagged union over the result shapes that flow through shared
// selection code. Exactly one payload field is set, per Kind.
type Item struct {
	Kind     ItemKind
	Product  *model.Product
	DeepLink *model.DeepLink
}

// ProductItem wraps a product result.
func ProductItem(p *model.Product) Item {
	return Item{Kind: KindProduct, Product: p}
}

// DeepLinkItem wraps a deep-link conversion result.
func DeepLinkItem(d *model.DeepLink) Item {
	return Item{Kind: KindDeepLink, DeepLink: d}
}

// ID derives the item's stable selection identifier. Products key on
// their product identity, deep links on the original URL; both survive
// filtering, sorting, and re-rendering of the view.
func (it Item) ID() string {
	switch it.Kind {
	case KindProduct:
		return it.Product.SelectionID()
	case KindDeepLink:
		return it.DeepLink.SelectionID()
	}
	return ""
}

// URL resolves the most specific link the item offers.
func (it Item) URL() string {
	switch it.Kind {
	case KindProduct:
		return it.Product.URL
	case KindDeepLink:
		return it.DeepLink.BestURL()
	}
	return ""
}

// Set is an insertion-ordered set of stable item IDs. IDs pointing at
// items no longer in the current view are tolerated; they simply resolve
// to nothing.
type Set struct {
	ids   map[string]struct{}
	order []string
}

// NewSet returns an empty selection.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Len reports how many IDs are selected.
func (s *Set) Len() int { return len(s.order) }

// Has reports whether id is selected.
func (s *Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected IDs in insertion order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Add selects id. Adding an already-selected id is a no-op.
func (s *Set) Add(id string) {
	if id == "" || s.Has(id) {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// Remove deselects id.
func (s *Set) Remove(id string) {
	if !s.Has(id) {
		return
	}
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Toggle flips id's membership.
func (s *Set) Toggle(id string) {
	if s.Has(id) {
		s.Remove(id)
	} else {
		s.Add(id)
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.ids = make(map[string]struct{})
	s.order = nil
}

// ToggleAll implements select-all against the currently visible IDs as a
// pure toggle: if every visible ID is already selected the selection is
// cleared, otherwise it becomes exactly allIDs. It is deliberately not a
// union, so selecting all in a filtered view never keeps out-of-view
// items selected forever.
func (s *Set) ToggleAll(allIDs []string) {
	if len(allIDs) > 0 && s.hasAll(allIDs) {
		s.Clear()
		return
	}
	s.Clear()
	for _, id := range allIDs {
		s.Add(id)
	}
}

func (s *Set) hasAll(ids []string) bool {
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// AllIDs derives the selection IDs of a visible item list, in view order.
func AllIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if id := it.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Resolve maps the selection back to items in the current view, in
// selection order. Stale IDs contribute nothing.
func Resolve(s *Set, items []Item) []Item {
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		if id := it.ID(); id != "" {
			if _, dup := byID[id]; !dup {
				byID[id] = it
			}
		}
	}

	var out []Item
	for _, id := range s.IDs() {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Links joins the resolved items' most specific URLs with newlines, the
// shape expected by the clipboard and by link export.
func Links(items []Item) string {
	urls := make([]string, 0, len(items))
	for _, it := range items {
		if u := it.URL(); u != "" {
			urls = append(urls, u)
		}
	}
	return strings.Join(urls, "\n")
}

// Guard is the action gate: every selection-driven action (copy links,
// generate research) calls it first and stops on ErrEmptySelection
// before any network call is made. Safe to call repeatedly.
func Guard(items []Item) error {
	if len(items) == 0 {
		return ErrEmptySelection
	}
	return nil
}

// Products unwraps the product payloads of the resolved items, skipping
// deep-link entries; research runs operate on products only.
func Products(items []Item) []model.Product {
	var out []model.Product
	for _, it := range items {
		if it.Kind == KindProduct && it.Product != nil {
			out = append(out, *it.Product)
		}
	}
	return out
}
