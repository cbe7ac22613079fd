package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pricespy/backend/internal/domain"
)

// unitDef converts a unit into its canonical unit as size * numerator / denominator.
// Metric units keep the power of ten in the denominator so that 330 ml is
// computed as 330/1000 rather than 330*0.001.
type unitDef struct {
	dimension   domain.Dimension
	numerator   float64
	denominator float64
}

var unitRegistry = map[string]unitDef{
	// Volume -> liters
	"ml":    {domain.DimensionVolume, 1, 1000},
	"cl":    {domain.DimensionVolume, 1, 100},
	"dl":    {domain.DimensionVolume, 1, 10},
	"L":     {domain.DimensionVolume, 1, 1},
	"fl oz": {domain.DimensionVolume, 29.5735295625, 1000}, // US fluid ounce

	// Mass -> kilograms
	"g":  {domain.DimensionMass, 1, 1000},
	"kg": {domain.DimensionMass, 1, 1},
	"lb": {domain.DimensionMass, 0.45359237, 1},
	"oz": {domain.DimensionMass, 0.028349523125, 1},

	// Count
	"piece":  {domain.DimensionCount, 1, 1},
	"pack":   {domain.DimensionCount, 1, 1},
	"pair":   {domain.DimensionCount, 1, 1},
	"set":    {domain.DimensionCount, 1, 1},
	"tube":   {domain.DimensionCount, 1, 1},
	"bottle": {domain.DimensionCount, 1, 1},
	"can":    {domain.DimensionCount, 1, 1},
	"box":    {domain.DimensionCount, 1, 1},
	"bag":    {domain.DimensionCount, 1, 1},
	"tub":    {domain.DimensionCount, 1, 1},
	"jar":    {domain.DimensionCount, 1, 1},
	"unit":   {domain.DimensionCount, 1, 1},
}

// unitAliases maps lower-cased spellings seen in store pages and user input
// onto registry keys
var unitAliases = map[string]string{
	"l": "L", "ltr": "L", "liter": "L", "liters": "L", "litre": "L", "litres": "L",
	"mls": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"centiliter": "cl", "centilitre": "cl",
	"deciliter": "dl", "decilitre": "dl",
	"floz": "fl oz", "fluid ounce": "fl oz", "fluid ounces": "fl oz",

	"gr": "g", "gram": "g", "grams": "g", "gramme": "g",
	"kgs": "kg", "kilo": "kg", "kilos": "kg", "kilogram": "kg", "kilograms": "kg",
	"lbs": "lb", "pound": "lb", "pounds": "lb",
	"ounce": "oz", "ounces": "oz",

	"pc": "piece", "pcs": "piece", "pieces": "piece", "stuk": "piece", "stuks": "piece",
	"item": "piece", "items": "piece", "ea": "piece", "each": "piece",
	"packs": "pack", "pk": "pack", "pairs": "pair", "sets": "set", "tubes": "tube",
	"bottles": "bottle", "cans": "can", "boxes": "box", "bags": "bag", "tubs": "tub",
	"jars": "jar", "units": "unit", "count": "unit", "ct": "unit",
}

// NormalizeUnit maps a unit token onto its registered spelling.
// The second return value is false when the token is unknown.
func NormalizeUnit(unit string) (string, bool) {
	token := strings.TrimSpace(unit)
	if _, ok := unitRegistry[token]; ok {
		return token, true
	}

	token = strings.ToLower(token)
	token = strings.ReplaceAll(token, ".", "")
	token = strings.Join(strings.Fields(token), " ")

	if _, ok := unitRegistry[token]; ok {
		return token, true
	}
	if alias, ok := unitAliases[token]; ok {
		return alias, true
	}
	return "", false
}

func lookupUnit(unit string) (string, unitDef, error) {
	name, ok := NormalizeUnit(unit)
	if !ok {
		return "", unitDef{}, &domain.UnknownUnitError{Unit: unit}
	}
	return name, unitRegistry[name], nil
}

// ToCanonical converts size in unit into liters, kilograms or a count.
// Unknown units are a hard error: no conversion factor is guessed.
func ToCanonical(size float64, unit string) (domain.CanonicalMeasure, error) {
	_, def, err := lookupUnit(unit)
	if err != nil {
		return domain.CanonicalMeasure{}, err
	}
	return domain.CanonicalMeasure{
		Size:      size * def.numerator / def.denominator,
		Dimension: def.dimension,
	}, nil
}

// FromCanonical converts a canonical measure back into unit
func FromCanonical(measure domain.CanonicalMeasure, unit string) (float64, error) {
	name, def, err := lookupUnit(unit)
	if err != nil {
		return 0, err
	}
	if def.dimension != measure.Dimension {
		return 0, fmt.Errorf("%w: cannot express %s in %s", domain.ErrDimensionMismatch, measure.Dimension, name)
	}
	return measure.Size * def.denominator / def.numerator, nil
}

// CanonicalUnitLabel returns "L", "kg" or "unit" for a known unit token
func CanonicalUnitLabel(unit string) (string, error) {
	_, def, err := lookupUnit(unit)
	if err != nil {
		return "", err
	}
	return def.dimension.Label(), nil
}

// KnownUnits lists the registered units grouped by dimension
func KnownUnits() []domain.UnitInfo {
	units := make([]domain.UnitInfo, 0, len(unitRegistry))
	for name, def := range unitRegistry {
		units = append(units, domain.UnitInfo{
			Name:          name,
			Dimension:     def.dimension,
			CanonicalUnit: def.dimension.Label(),
			Factor:        def.numerator / def.denominator,
		})
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Dimension != units[j].Dimension {
			return units[i].Dimension > units[j].Dimension // volume, mass, count
		}
		return units[i].Name < units[j].Name
	})
	return units
}

// ValidatePackaging checks the preconditions the volume price calculator relies on
func ValidatePackaging(packaging domain.PackagingSpec) error {
	if packaging.ItemsPerLot < 1 {
		return fmt.Errorf("%w: items_per_lot must be >= 1, got %d", domain.ErrInvalidPackaging, packaging.ItemsPerLot)
	}
	if math.IsNaN(packaging.QuantitySize) || math.IsInf(packaging.QuantitySize, 0) || packaging.QuantitySize <= 0 {
		return fmt.Errorf("%w: quantity_size must be a positive number, got %v", domain.ErrInvalidPackaging, packaging.QuantitySize)
	}
	if _, _, err := lookupUnit(packaging.QuantityUnit); err != nil {
		return err
	}
	return nil
}
