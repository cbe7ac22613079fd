package domain

// Dimension is the physical quantity a unit measures
type Dimension string

const (
	DimensionVolume Dimension = "volume"
	DimensionMass   Dimension = "mass"
	DimensionCount  Dimension = "count"
)

// Canonical unit labels
const (
	UnitLiter    = "L"
	UnitKilogram = "kg"
	UnitCount    = "unit"
)

// Label returns the canonical unit label for the dimension
func (d Dimension) Label() string {
	switch d {
	case DimensionVolume:
		return UnitLiter
	case DimensionMass:
		return UnitKilogram
	default:
		return UnitCount
	}
}

// CanonicalMeasure is a size expressed in liters, kilograms or count
type CanonicalMeasure struct {
	Size      float64   `json:"size"`
	Dimension Dimension `json:"dimension"`
}

// UnitInfo describes one registered unit token
type UnitInfo struct {
	Name          string    `json:"name"`
	Dimension     Dimension `json:"dimension"`
	CanonicalUnit string    `json:"canonical_unit"`
	Factor        float64   `json:"factor"` // canonical units per one of this unit
}
