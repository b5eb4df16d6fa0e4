// Package catalog turns raw Coupang search/category payloads into
// deduplicated, filterable, sortable product views.
package catalog

import (
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/internal/model"
)

// ParseListings decodes a raw listing array into canonical products.
// Search and category responses disagree on field names (productId vs id,
// productPrice vs price, isRocket vs rocketShipping), so every read here
// goes through a fallback chain. This is the only place raw payloads are
// touched.
//
// Malformed input never propagates: anything that is not a JSON array
// yields an empty slice with a logged warning.
func ParseListings(data []byte) []model.Product {
	if len(data) == 0 {
		return nil
	}

	root := gjson.ParseBytes(data)
	if root.Get("data").IsArray() {
		root = root.Get("data")
	}
	if !root.IsArray() {
		zap.L().Warn("catalog: listing payload is not an array, ignoring",
			zap.String("type", root.Type.String()),
		)
		return nil
	}

	var products []model.Product
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			zap.L().Warn("catalog: skipping non-object listing entry")
			return true
		}
		products = append(products, parseListing(item))
		return true
	})
	return products
}

func parseListing(item gjson.Result) model.Product {
	return model.Product{
		ProductID:      firstInt(item, "productId", "id"),
		Name:           firstString(item, "productName", "title", "name"),
		Price:          firstInt(item, "productPrice", "price"),
		ImageURL:       firstString(item, "productImage", "image"),
		URL:            firstString(item, "productUrl", "url"),
		CategoryName:   firstString(item, "categoryName", "category"),
		Keyword:        item.Get("keyword").String(),
		Rank:           int(item.Get("rank").Int()),
		IsRocket:       firstBool(item, "isRocket", "rocketShipping", "isRocketDelivery"),
		IsFreeShipping: firstBool(item, "isFreeShipping", "freeShipping"),
	}
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func firstInt(item gjson.Result, keys ...string) int64 {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

func firstBool(item gjson.Result, keys ...string) bool {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() {
			return v.Bool()
		}
	}
	return false
}
