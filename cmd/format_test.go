package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkmill/partners-cli/internal/catalog"
	"github.com/linkmill/partners-cli/internal/model"
)

func TestFormatKRW(t *testing.T) {
	assert.Equal(t, "0원", formatKRW(0))
	assert.Equal(t, "990원", formatKRW(990))
	assert.Equal(t, "129,000원", formatKRW(129000))
	assert.Equal(t, "1,234,567원", formatKRW(1234567))
}

func TestFormatGroups(t *testing.T) {
	groups := []model.GroupedProduct{
		{
			Key:  "123",
			Main: &model.Product{ProductID: 123, Name: "무선 청소기", Price: 129000, IsRocket: true},
			Variants: []model.Variant{
				{ProductID: 123},
				{ProductID: 123},
			},
			PriceRange: model.PriceRange{Min: 129000, Max: 159000},
		},
		{
			Key:      "456",
			Main:     &model.Product{ProductID: 456, Name: "보조배터리", Price: 25900},
			Variants: []model.Variant{{ProductID: 456}},
		},
	}

	var buf bytes.Buffer
	formatGroups(&buf, groups)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "무선 청소기")
	assert.Contains(t, out, "129,000원")
	assert.Contains(t, out, "129,000원 ~ 159,000원")
	assert.Contains(t, out, "🚀")
	assert.Contains(t, out, "보조배터리")
}

func TestFormatGroups_SingleVariantHasNoRange(t *testing.T) {
	groups := []model.GroupedProduct{
		{
			Key:      "456",
			Main:     &model.Product{ProductID: 456, Name: "보조배터리", Price: 25900},
			Variants: []model.Variant{{ProductID: 456}},
		},
	}

	var buf bytes.Buffer
	formatGroups(&buf, groups)

	assert.NotContains(t, buf.String(), "~")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "짧은 이름", truncateName("짧은 이름"))

	long := ""
	for i := 0; i < 50; i++ {
		long += "가"
	}
	got := truncateName(long)
	assert.Len(t, []rune(got), 40)
	assert.Contains(t, got, "...")
}

func TestParseSort(t *testing.T) {
	cases := []struct {
		in   string
		want catalog.SortOrder
	}{
		{"", catalog.SortNone},
		{"none", catalog.SortNone},
		{"asc", catalog.SortAsc},
		{"price-asc", catalog.SortAsc},
		{"desc", catalog.SortDesc},
		{"price-desc", catalog.SortDesc},
	}
	for _, tc := range cases {
		got, err := parseSort(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := parseSort("popularity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort order")
}
