package domain

// TargetScope says whether a product's target price applies to the lot
// price on the page or to the per-canonical-unit price
type TargetScope string

const (
	TargetScopeLot  TargetScope = "lot"
	TargetScopeUnit TargetScope = "unit"
)

// TargetSpec is a product's deal threshold
type TargetSpec struct {
	Value float64     `json:"value" yaml:"value"`
	Scope TargetScope `json:"scope" yaml:"scope"`
	Unit  string      `json:"unit,omitempty" yaml:"unit,omitempty"` // required for unit scope, e.g. "L"
}

// NewTargetSpec builds the target for a product. A product that declares a
// target unit is unit-scoped; otherwise the target applies to the lot price.
func NewTargetSpec(targetPrice *float64, targetUnit string) *TargetSpec {
	if targetPrice == nil || *targetPrice <= 0 {
		return nil
	}
	if targetUnit == "" {
		return &TargetSpec{Value: *targetPrice, Scope: TargetScopeLot}
	}
	return &TargetSpec{Value: *targetPrice, Scope: TargetScopeUnit, Unit: targetUnit}
}

// PriceComparison relates the current record to the previous one and to the
// product target. It is derived data and never stored on its own.
type PriceComparison struct {
	CurrentPrice  *float64 `json:"current_price"`
	PreviousPrice *float64 `json:"previous_price"`
	Delta         *float64 `json:"delta"`
	DeltaPercent  *float64 `json:"delta_percent"`
	IsPriceDrop   bool     `json:"is_price_drop"`

	IsDeal             bool        `json:"is_deal"`
	TargetScope        TargetScope `json:"target_scope,omitempty"`
	TargetPrice        *float64    `json:"target_price,omitempty"`   // in the compared unit
	ComparedPrice      *float64    `json:"compared_price,omitempty"` // lot or unit price checked against the target
	TargetUnitMismatch bool        `json:"target_unit_mismatch,omitempty"`
}
