package usecase

import (
	"math"
	"regexp"
	"strings"

	"github.com/pricespy/backend/internal/domain"
)

// DefaultDiscountTolerance is the relative gap (1% of the price) allowed
// between the advertised discount and the displayed price
const DefaultDiscountTolerance = 0.01

var multibuyPattern = regexp.MustCompile(`^\d+\s*(\+|for|voor)\s*\d+$`)

var dealTypeAliases = map[string]domain.DiscountType{
	"":                  domain.DiscountNone,
	"none":              domain.DiscountNone,
	"null":              domain.DiscountNone,
	"n/a":               domain.DiscountNone,
	"no_deal":           domain.DiscountNone,
	"percentage_off":    domain.DiscountPercentageOff,
	"percentage":        domain.DiscountPercentageOff,
	"percent_off":       domain.DiscountPercentageOff,
	"percent":           domain.DiscountPercentageOff,
	"discount":          domain.DiscountPercentageOff,
	"fixed_amount_off":  domain.DiscountFixedAmountOff,
	"fixed_amount":      domain.DiscountFixedAmountOff,
	"amount_off":        domain.DiscountFixedAmountOff,
	"price_cut":         domain.DiscountFixedAmountOff,
	"reduced_price":     domain.DiscountReducedPrice,
	"price_drop":        domain.DiscountReducedPrice,
	"sale":              domain.DiscountReducedPrice,
	"multibuy":          domain.DiscountMultibuy,
	"multi_buy":         domain.DiscountMultibuy,
	"bundle":            domain.DiscountMultibuy,
	"second_half_price": domain.DiscountMultibuy,
	"2nd_half_price":    domain.DiscountMultibuy,
	"bogo":              domain.DiscountBOGO,
	"buy_one_get_one":   domain.DiscountBOGO,
	"buy_1_get_1":       domain.DiscountBOGO,
	"1+1":               domain.DiscountBOGO,
	"value_pack":        domain.DiscountValuePack,
	"valuepack":         domain.DiscountValuePack,
	"family_pack":       domain.DiscountValuePack,
	"member_only":       domain.DiscountMemberOnly,
	"members_only":      domain.DiscountMemberOnly,
	"member_price":      domain.DiscountMemberOnly,
	"loyalty":           domain.DiscountMemberOnly,
	"clearance":         domain.DiscountClearance,
	"outlet":            domain.DiscountClearance,
}

// NormalizeDealType maps the model's free-text deal tag onto DiscountType
func NormalizeDealType(dealType string) domain.DiscountType {
	token := strings.ToLower(strings.TrimSpace(dealType))
	token = strings.Join(strings.Fields(token), "_")
	token = strings.ReplaceAll(token, "-", "_")

	if t, ok := dealTypeAliases[token]; ok {
		return t
	}
	if multibuyPattern.MatchString(strings.ReplaceAll(token, "_", " ")) {
		return domain.DiscountMultibuy
	}
	if strings.Contains(token, "%") {
		return domain.DiscountPercentageOff
	}
	return domain.DiscountOther
}

// DiscountClassifier canonicalizes the discount fields of a record
type DiscountClassifier struct {
	tolerance float64
}

// NewDiscountClassifier creates a classifier; tolerance <= 0 selects the default
func NewDiscountClassifier(tolerance float64) *DiscountClassifier {
	if tolerance <= 0 {
		tolerance = DefaultDiscountTolerance
	}
	return &DiscountClassifier{tolerance: tolerance}
}

// Classify derives a single comparable discount percentage from whichever
// representation the page used and flags representations that disagree.
// Inconsistency is a quality signal only; the record is never discarded.
func (c *DiscountClassifier) Classify(record *domain.ValidatedPriceRecord) domain.DiscountInfo {
	info := domain.DiscountInfo{
		DiscountType: domain.DiscountNone,
		Description:  record.DealDescription,
	}

	price := record.Price
	original := positive(record.OriginalPrice)
	pct := positive(record.DiscountPercentage)
	fixed := positive(record.DiscountFixedAmount)

	if original != nil {
		info.OriginalPrice = float64Ptr(*original)
	}
	if fixed != nil {
		info.FixedAmount = float64Ptr(*fixed)
	}

	// Effective percentage, in order of how directly the page stated it
	switch {
	case pct != nil:
		info.EffectivePercentage = float64Ptr(*pct)
	case fixed != nil && original != nil:
		info.EffectivePercentage = float64Ptr(*fixed / *original * 100)
	case original != nil && price > 0 && *original > price:
		info.EffectivePercentage = float64Ptr((*original - price) / *original * 100)
	}

	if price > 0 {
		info.IsInconsistent = c.inconsistent(price, original, pct, fixed)
	}
	if ep := info.EffectivePercentage; ep != nil && (*ep <= 0 || *ep > 100) {
		info.EffectivePercentage = nil
		info.IsInconsistent = true
	}

	dealType := NormalizeDealType(record.DealType)
	if dealType == domain.DiscountNone {
		switch {
		case pct != nil:
			dealType = domain.DiscountPercentageOff
		case fixed != nil:
			dealType = domain.DiscountFixedAmountOff
		case original != nil && price > 0 && *original > price:
			dealType = domain.DiscountReducedPrice
		}
	}
	info.DiscountType = dealType
	info.HasDiscount = dealType != domain.DiscountNone

	return info
}

func (c *DiscountClassifier) inconsistent(price float64, original, pct, fixed *float64) bool {
	allowed := c.tolerance * price

	if original != nil && *original < price {
		return true
	}
	if original != nil && pct != nil {
		expected := *original * (1 - *pct/100)
		if math.Abs(expected-price) > allowed {
			return true
		}
	}
	if original != nil && fixed != nil {
		if math.Abs((*original-*fixed)-price) > allowed {
			return true
		}
	}
	if original == nil && pct != nil && fixed != nil {
		// Both representations imply an original price; they must agree with
		// each other and with what is displayed.
		impliedOriginal := *fixed * 100 / *pct
		if math.Abs(impliedOriginal-*fixed-price) > allowed {
			return true
		}
	}
	return false
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func float64Ptr(v float64) *float64 {
	return &v
}
