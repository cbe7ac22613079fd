package domain

// DiscountType is the normalized form of the free-text deal_type tag
type DiscountType string

const (
	DiscountNone           DiscountType = "none"
	DiscountPercentageOff  DiscountType = "percentage_off"
	DiscountFixedAmountOff DiscountType = "fixed_amount_off"
	DiscountReducedPrice   DiscountType = "reduced_price"
	DiscountMultibuy       DiscountType = "multibuy"
	DiscountBOGO           DiscountType = "bogo"
	DiscountValuePack      DiscountType = "value_pack"
	DiscountMemberOnly     DiscountType = "member_only"
	DiscountClearance      DiscountType = "clearance"
	DiscountOther          DiscountType = "other"
)

// DiscountInfo is the canonical view of whatever discount representation the
// page showed: a single comparable percentage where one can be derived.
type DiscountInfo struct {
	HasDiscount         bool         `json:"has_discount"`
	DiscountType        DiscountType `json:"discount_type"`
	EffectivePercentage *float64     `json:"effective_percentage"`
	OriginalPrice       *float64     `json:"original_price"`
	FixedAmount         *float64     `json:"fixed_amount,omitempty"`
	Description         string       `json:"description,omitempty"`
	IsInconsistent      bool         `json:"is_inconsistent"`
}
