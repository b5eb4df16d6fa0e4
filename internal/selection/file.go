package selection

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/linkmill/partners-cli/internal/model"
)

// File is a saved selection: IDs referencing fetched listings, inline
// product entries, or both.
type File struct {
	IDs      []string      `yaml:"ids,omitempty"`
	Products []fileProduct `yaml:"products,omitempty"`
}

type fileProduct struct {
	ProductID      int64  `yaml:"product_id"`
	Name           string `yaml:"name"`
	Price          int64  `yaml:"price"`
	URL            string `yaml:"url,omitempty"`
	ImageURL       string `yaml:"image_url,omitempty"`
	CategoryName   string `yaml:"category_name,omitempty"`
	Keyword        string `yaml:"keyword,omitempty"`
	IsRocket       bool   `yaml:"is_rocket,omitempty"`
	IsFreeShipping bool   `yaml:"is_free_shipping,omitempty"`
}

// LoadFile reads a selection file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "selection: read %s", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "selection: parse %s", path)
	}
	if len(f.IDs) == 0 && len(f.Products) == 0 {
		return nil, eris.Errorf("selection: %s contains no ids or products", path)
	}
	return &f, nil
}

// InlineProducts returns the file's inline product entries as listings.
func (f *File) InlineProducts() []model.Product {
	products := make([]model.Product, 0, len(f.Products))
	for _, p := range f.Products {
		products = append(products, model.Product{
			ProductID:      p.ProductID,
			Name:           p.Name,
			Price:          p.Price,
			URL:            p.URL,
			ImageURL:       p.ImageURL,
			CategoryName:   p.CategoryName,
			Keyword:        p.Keyword,
			IsRocket:       p.IsRocket,
			IsFreeShipping: p.IsFreeShipping,
		})
	}
	return products
}
