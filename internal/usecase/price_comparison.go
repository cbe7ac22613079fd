package usecase

import (
	"math"

	"github.com/pricespy/backend/internal/domain"
)

// Compare relates the current record to the previous one for the same
// tracked item and to the product target.
//
// With no previous record (first observation) delta and delta percent are
// nil and the item is never a price drop. A drop requires a strictly lower
// price. Deal evaluation looks only at the current price and the target:
// lot-scoped targets are compared with the lot price, unit-scoped targets
// with unitPrice after converting the target into the same canonical unit.
func Compare(
	current *domain.ValidatedPriceRecord,
	previous *domain.ValidatedPriceRecord,
	target *domain.TargetSpec,
	unitPrice *domain.VolumePrice,
) domain.PriceComparison {
	var cmp domain.PriceComparison

	if current != nil && current.Price > 0 {
		cmp.CurrentPrice = float64Ptr(current.Price)
	}
	if previous != nil {
		cmp.PreviousPrice = float64Ptr(previous.Price)
	}

	if cmp.CurrentPrice != nil && cmp.PreviousPrice != nil {
		delta := *cmp.CurrentPrice - *cmp.PreviousPrice
		cmp.Delta = float64Ptr(delta)
		cmp.IsPriceDrop = delta < 0

		// A zero previous price cannot come out of validation, but a percent
		// change against it is undefined rather than infinite.
		if *cmp.PreviousPrice != 0 {
			pct := delta / *cmp.PreviousPrice * 100
			if !math.IsNaN(pct) && !math.IsInf(pct, 0) {
				cmp.DeltaPercent = float64Ptr(pct)
			}
		}
	}

	evaluateTarget(&cmp, target, unitPrice)
	return cmp
}

func evaluateTarget(cmp *domain.PriceComparison, target *domain.TargetSpec, unitPrice *domain.VolumePrice) {
	if target == nil || target.Value <= 0 || cmp.CurrentPrice == nil {
		return
	}
	cmp.TargetScope = target.Scope

	switch target.Scope {
	case domain.TargetScopeUnit:
		if unitPrice == nil {
			return
		}
		perCanonical, label, ok := normalizeTarget(target)
		if !ok || label != unitPrice.UnitLabel {
			cmp.TargetUnitMismatch = true
			return
		}
		cmp.TargetPrice = float64Ptr(perCanonical)
		cmp.ComparedPrice = float64Ptr(unitPrice.UnitPrice)
		cmp.IsDeal = unitPrice.UnitPrice <= perCanonical

	default:
		cmp.TargetScope = domain.TargetScopeLot
		cmp.TargetPrice = float64Ptr(target.Value)
		cmp.ComparedPrice = float64Ptr(*cmp.CurrentPrice)
		cmp.IsDeal = *cmp.CurrentPrice <= target.Value
	}
}

// normalizeTarget expresses a unit-scoped target per canonical unit, so a
// target of 0.005 per g becomes 5 per kg.
func normalizeTarget(target *domain.TargetSpec) (float64, string, bool) {
	measure, err := ToCanonical(1, target.Unit)
	if err != nil || measure.Size <= 0 {
		return 0, "", false
	}
	if measure.Dimension == domain.DimensionCount {
		return target.Value, domain.UnitCount, true
	}
	return target.Value / measure.Size, measure.Dimension.Label(), true
}
