// Package catalog loads tracked items and product targets from a YAML file.
package catalog

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pricespy/backend/internal/domain"
	"github.com/pricespy/backend/internal/usecase"
)

// Catalog is the on-disk list of products and the pages tracking them.
//
//	products:
//	  - id: 1
//	    name: Cola Zero
//	    target_price: 1.20
//	    target_unit: L
//	items:
//	  - id: 10
//	    product_id: 1
//	    url: https://shop.example/cola
//	    packaging: 6 x 330 ml
type Catalog struct {
	Products []domain.Product `yaml:"products"`
	Items    []Item           `yaml:"items"`
}

// Item is one tracked page as written in the catalog file
type Item struct {
	ID         int64     `yaml:"id"`
	ProductID  int64     `yaml:"product_id"`
	StoreName  string    `yaml:"store_name"`
	URL        string    `yaml:"url"`
	TargetSize string    `yaml:"target_size"`
	Packaging  Packaging `yaml:"packaging"`
	Active     *bool     `yaml:"active"`
}

// Packaging accepts either shorthand ("6 x 330 ml") or the full mapping
type Packaging struct {
	domain.PackagingSpec

	// Err holds a shorthand that could not be read. It fails only the
	// item it belongs to, not the whole file.
	Err error
}

// UnmarshalYAML implements yaml.Unmarshaler
func (p *Packaging) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		spec, err := usecase.ParsePackaging(node.Value)
		if err != nil {
			p.Err = fmt.Errorf("line %d: %w", node.Line, err)
			return nil
		}
		p.PackagingSpec = spec
		return nil
	}

	var spec domain.PackagingSpec
	if err := node.Decode(&spec); err != nil {
		return err
	}
	if spec.ItemsPerLot == 0 {
		spec.ItemsPerLot = 1
	}
	p.PackagingSpec = spec
	return nil
}

// Load reads and parses a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

// Parse decodes catalog YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	return &c, nil
}

// ActiveItems resolves each active item against its product. Items are
// returned in file order. Only file-level problems fail the call; a bad
// packaging or target unit travels with its item and is rejected when the
// item is run.
func (c *Catalog) ActiveItems() ([]domain.TrackedItem, error) {
	products := make(map[int64]*domain.Product, len(c.Products))
	for i := range c.Products {
		products[c.Products[i].ID] = &c.Products[i]
	}

	seen := make(map[int64]bool, len(c.Items))
	items := make([]domain.TrackedItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Active != nil && !*it.Active {
			continue
		}
		if it.ID <= 0 {
			return nil, eris.Errorf("catalog: item with url %q has no positive id", it.URL)
		}
		if seen[it.ID] {
			return nil, eris.Errorf("catalog: duplicate item id %d", it.ID)
		}
		seen[it.ID] = true

		product, ok := products[it.ProductID]
		if !ok {
			return nil, eris.Errorf("catalog: item %d references unknown product %d", it.ID, it.ProductID)
		}

		items = append(items, domain.TrackedItem{
			ID:           it.ID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Category:     product.Category,
			StoreName:    it.StoreName,
			URL:          it.URL,
			TargetSize:   it.TargetSize,
			Packaging:    it.Packaging.PackagingSpec,
			PackagingErr: it.Packaging.Err,
			Target:       product.Target(),
		})
	}
	return items, nil
}

// Item returns the resolved active item with id
func (c *Catalog) Item(id int64) (domain.TrackedItem, bool) {
	items, err := c.ActiveItems()
	if err != nil {
		return domain.TrackedItem{}, false
	}
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.TrackedItem{}, false
}
