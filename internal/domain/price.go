package domain

import "time"

// RawExtraction is the untyped JSON object returned by the vision model.
// Nothing about its shape is trusted until it has been validated.
type RawExtraction map[string]any

// PackagingSpec describes what one tracked page price covers
type PackagingSpec struct {
	QuantitySize float64 `json:"quantity_size" yaml:"quantity_size"` // size of one atomic item, e.g. 330
	QuantityUnit string  `json:"quantity_unit" yaml:"quantity_unit"` // e.g. "ml", "g", "piece"
	ItemsPerLot  int     `json:"items_per_lot" yaml:"items_per_lot"` // e.g. 6 for a 6-pack
}

// WarningKind labels a non-blocking data-quality signal
type WarningKind string

const (
	WarningTruncation            WarningKind = "truncation"
	WarningOriginalBelowPrice    WarningKind = "original_price_below_price"
	WarningDroppedField          WarningKind = "dropped_field"
	WarningDiscountInconsistency WarningKind = "discount_inconsistency"
	WarningTargetUnitMismatch    WarningKind = "target_unit_mismatch"
)

// Warning is attached to a record when something was coerced, cut or looks
// suspicious but the record is still usable.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

// ValidatedPriceRecord is the typed, bounded form of one extraction and the
// unit of persistence. Records are append-only per tracked item.
type ValidatedPriceRecord struct {
	ID            string    `json:"id,omitempty"`
	TrackedItemID int64     `json:"tracked_item_id,omitempty"`
	CapturedAt    time.Time `json:"captured_at,omitempty"`

	ProductName string  `json:"product_name"`
	StoreName   string  `json:"store_name,omitempty"`
	Price       float64 `json:"price" validate:"gte=0,lte=1000000"`
	Currency    string  `json:"currency,omitempty" validate:"omitempty,currency_code"`
	IsAvailable bool    `json:"is_available"`

	OriginalPrice       *float64 `json:"original_price,omitempty" validate:"omitempty,gt=0"`
	DealType            string   `json:"deal_type,omitempty"`
	DealDescription     string   `json:"deal_description,omitempty"`
	DiscountPercentage  *float64 `json:"discount_percentage,omitempty" validate:"omitempty,gt=0,lte=100"`
	DiscountFixedAmount *float64 `json:"discount_fixed_amount,omitempty" validate:"omitempty,gt=0"`

	AvailableSizes []string `json:"available_sizes"`
	IsSizeMatched  bool     `json:"is_size_matched"`
	Notes          string   `json:"notes,omitempty"`

	Warnings []Warning `json:"warnings,omitempty"`
}

// HasWarning reports whether a warning of the given kind is attached
func (r *ValidatedPriceRecord) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// VolumePrice is the price per canonical unit (EUR/L, EUR/kg or EUR/unit)
type VolumePrice struct {
	UnitPrice float64 `json:"unit_price"`
	UnitLabel string  `json:"unit_label"`
}

// ProcessResult bundles everything derived from one extraction
type ProcessResult struct {
	Record      *ValidatedPriceRecord `json:"validated_record"`
	VolumePrice *VolumePrice          `json:"volume_price,omitempty"`
	Discount    DiscountInfo          `json:"discount_info"`
	Comparison  PriceComparison       `json:"comparison"`
}
