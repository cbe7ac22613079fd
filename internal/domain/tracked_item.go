package domain

// Product is the thing being bought, independent of store
type Product struct {
	ID          int64    `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	TargetPrice *float64 `json:"target_price,omitempty" yaml:"target_price,omitempty"`
	TargetUnit  string   `json:"target_unit,omitempty" yaml:"target_unit,omitempty"`
}

// Target returns the product's deal threshold, or nil when none is set
func (p *Product) Target() *TargetSpec {
	return NewTargetSpec(p.TargetPrice, p.TargetUnit)
}

// TrackedItem is one URL+store+packaging configuration monitored for a product
type TrackedItem struct {
	ID          int64         `json:"id"`
	ProductID   int64         `json:"product_id"`
	ProductName string        `json:"product_name"`
	Category    string        `json:"category,omitempty"`
	StoreName   string        `json:"store_name,omitempty"`
	URL         string        `json:"url"`
	TargetSize  string        `json:"target_size,omitempty"`
	Packaging   PackagingSpec `json:"packaging"`
	Target      *TargetSpec   `json:"target,omitempty"`

	// PackagingErr is set when the packaging could not be read from the
	// catalog; the item is reported as failed instead of being extracted.
	PackagingErr error `json:"-"`
}
