package usecase

import (
	"fmt"
	"math"

	"github.com/pricespy/backend/internal/domain"
)

// ComputeUnitPrice returns the price per canonical unit for a lot price.
//
// Example: a 6-pack of 330 ml cans at 6.00 costs 1.00 per can, and one can
// is 0.330 L, so the volume price is 1.00 / 0.330 = 3.0303 per liter.
// Count-based packaging skips the size division and yields price per item.
//
// The result keeps full precision; rounding for display is up to the caller.
func ComputeUnitPrice(price float64, packaging domain.PackagingSpec) (domain.VolumePrice, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return domain.VolumePrice{}, fmt.Errorf("%w: %v", domain.ErrInvalidPrice, price)
	}
	if err := ValidatePackaging(packaging); err != nil {
		return domain.VolumePrice{}, err
	}

	measure, err := ToCanonical(packaging.QuantitySize, packaging.QuantityUnit)
	if err != nil {
		return domain.VolumePrice{}, err
	}

	perItem := price / float64(packaging.ItemsPerLot)
	if measure.Dimension == domain.DimensionCount {
		return domain.VolumePrice{UnitPrice: perItem, UnitLabel: domain.UnitCount}, nil
	}

	return domain.VolumePrice{
		UnitPrice: perItem / measure.Size,
		UnitLabel: measure.Dimension.Label(),
	}, nil
}
