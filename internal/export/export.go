// Package export writes selected products and research results to
// spreadsheet files for off-platform workflows.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/linkmill/partners-cli/internal/model"
)

var productHeader = []string{
	"productId", "productName", "price", "isRocket", "isFreeShipping",
	"categoryName", "keyword", "rank", "productUrl", "productImage",
}

var packHeader = []string{
	"itemId", "title", "priceKrw", "isRocket", "metaTitle",
	"metaDescription", "slug", "keywords", "sources",
}

// ProductsXLSX writes listings to an xlsx file with one row per product.
func ProductsXLSX(path string, products []model.Product) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("products")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	writeRow(sheet, productHeader)
	for _, p := range products {
		writeRow(sheet, productRow(p))
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// PacksXLSX writes a run's research packs to an xlsx file.
func PacksXLSX(path string, run *model.Run) error {
	if len(run.Packs) == 0 {
		return eris.New("export: run has no packs")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("research")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	writeRow(sheet, packHeader)
	for _, pack := range run.Packs {
		writeRow(sheet, packRow(pack))
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// ProductsCSV writes listings as UTF-8 CSV with a BOM so spreadsheet
// apps detect Korean text correctly.
func ProductsCSV(path string, products []model.Product) error {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer file.Close()

	if _, err := file.WriteString("\uFEFF"); err != nil {
		return eris.Wrap(err, "export: write BOM")
	}

	w := csv.NewWriter(file)
	if err := w.Write(productHeader); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, p := range products {
		if err := w.Write(productRow(p)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush")
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func productRow(p model.Product) []string {
	return []string{
		strconv.FormatInt(p.ProductID, 10),
		p.Name,
		strconv.FormatInt(p.Price, 10),
		strconv.FormatBool(p.IsRocket),
		strconv.FormatBool(p.IsFreeShipping),
		p.CategoryName,
		p.Keyword,
		strconv.Itoa(p.Rank),
		p.URL,
		p.ImageURL,
	}
}

func packRow(pack model.ResearchPack) []string {
	return []string{
		pack.ItemID,
		pack.Title,
		strconv.FormatInt(pack.PriceKRW, 10),
		strconv.FormatBool(pack.IsRocket),
		pack.MetaTitle,
		pack.MetaDescription,
		pack.Slug,
		joinList(pack.Keywords),
		joinList(pack.Sources),
	}
}

func joinList(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "; "
		}
		out += item
	}
	return out
}
