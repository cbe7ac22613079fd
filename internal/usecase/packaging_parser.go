package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricespy/backend/internal/domain"
)

// Compiled regex patterns for packaging shorthand
var (
	sizeUnitExpr = `(fl\.?\s*oz|ml|cl|dl|ltr|liters?|litres?|l|kg|kilos?|grams?|gr|g|lbs?|pounds?|ounces?|oz)`

	// Matches multipacks like "6 x 330 ml", "6x330ml", "4 × 1.5 L"
	multipackPattern = regexp.MustCompile(`(?i)\b(\d+)\s*[x×*]\s*(\d+(?:[.,]\d+)?)\s*` + sizeUnitExpr + `\b`)

	// Matches a single size like "330 ml", "1.9kg", "12 fl oz"
	singleSizePattern = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*` + sizeUnitExpr + `\b`)

	// Matches pack counts like "6 pack", "6-pack", "12 count", "pack of 6", "24 stuks"
	packCountRegex = regexp.MustCompile(`(?i)\b(\d+)[-\s]*(?:pack|pk|count|ct|stuks|pcs|pieces|cans|bottles)\b|\bpack\s*of\s*(\d+)\b`)
)

// ParsePackaging reads packaging shorthand such as "6 x 330 ml",
// "1.9 kg", "6-pack 330ml" or "pack of 4" into a PackagingSpec.
// A bare count without a size becomes count packaging of single pieces.
func ParsePackaging(text string) (domain.PackagingSpec, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return domain.PackagingSpec{}, fmt.Errorf("%w: empty packaging description", domain.ErrInvalidPackaging)
	}

	if m := multipackPattern.FindStringSubmatch(cleaned); m != nil {
		lot, _ := strconv.Atoi(m[1])
		return buildPackaging(m[2], m[3], lot)
	}

	lot := 1
	if m := packCountRegex.FindStringSubmatch(cleaned); m != nil {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		lot, _ = strconv.Atoi(n)
	}

	if m := singleSizePattern.FindStringSubmatch(cleaned); m != nil {
		return buildPackaging(m[1], m[2], lot)
	}

	if lot > 1 || packCountRegex.MatchString(cleaned) {
		return domain.PackagingSpec{QuantitySize: 1, QuantityUnit: "piece", ItemsPerLot: lot}, nil
	}

	return domain.PackagingSpec{}, fmt.Errorf("%w: cannot read packaging from %q", domain.ErrInvalidPackaging, text)
}

func buildPackaging(size, unit string, lot int) (domain.PackagingSpec, error) {
	value, err := strconv.ParseFloat(strings.Replace(size, ",", ".", 1), 64)
	if err != nil {
		return domain.PackagingSpec{}, fmt.Errorf("%w: bad size %q", domain.ErrInvalidPackaging, size)
	}
	name, ok := NormalizeUnit(unit)
	if !ok {
		return domain.PackagingSpec{}, &domain.UnknownUnitError{Unit: unit}
	}
	if lot < 1 {
		lot = 1
	}

	packaging := domain.PackagingSpec{QuantitySize: value, QuantityUnit: name, ItemsPerLot: lot}
	if err := ValidatePackaging(packaging); err != nil {
		return domain.PackagingSpec{}, err
	}
	return packaging, nil
}
