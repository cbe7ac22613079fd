package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricespy/backend/internal/domain"
)

func record(price float64) *domain.ValidatedPriceRecord {
	return &domain.ValidatedPriceRecord{Price: price, Currency: "EUR", IsAvailable: price > 0}
}

func TestCompare_PriceMovement(t *testing.T) {
	tests := []struct {
		name         string
		current      float64
		previous     float64
		delta        float64
		deltaPercent float64
		isDrop       bool
	}{
		{"unchanged", 52.99, 52.99, 0, 0, false},
		{"drop", 8, 10, -2, -20, true},
		{"increase", 12, 10, 2, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(record(tt.current), record(tt.previous), nil, nil)

			require.NotNil(t, cmp.Delta)
			require.NotNil(t, cmp.DeltaPercent)
			assert.InDelta(t, tt.delta, *cmp.Delta, 1e-9)
			assert.InDelta(t, tt.deltaPercent, *cmp.DeltaPercent, 1e-9)
			assert.Equal(t, tt.isDrop, cmp.IsPriceDrop)
			assert.False(t, cmp.IsDeal)
		})
	}
}

func TestCompare_FirstObservation(t *testing.T) {
	cmp := Compare(record(6.99), nil, nil, nil)

	require.NotNil(t, cmp.CurrentPrice)
	assert.Equal(t, 6.99, *cmp.CurrentPrice)
	assert.Nil(t, cmp.PreviousPrice)
	assert.Nil(t, cmp.Delta)
	assert.Nil(t, cmp.DeltaPercent)
	assert.False(t, cmp.IsPriceDrop)
}

func TestCompare_ZeroPreviousPrice(t *testing.T) {
	cmp := Compare(record(5), record(0), nil, nil)

	require.NotNil(t, cmp.Delta)
	assert.Equal(t, 5.0, *cmp.Delta)
	assert.Nil(t, cmp.DeltaPercent)
	assert.False(t, cmp.IsPriceDrop)
}

func TestCompare_UnavailableCurrent(t *testing.T) {
	target := domain.NewTargetSpec(ptr(100), "")
	cmp := Compare(record(0), record(10), target, nil)

	assert.Nil(t, cmp.CurrentPrice)
	assert.Nil(t, cmp.Delta)
	assert.False(t, cmp.IsPriceDrop)
	assert.False(t, cmp.IsDeal)
	assert.Empty(t, cmp.TargetScope)
}

func TestCompare_DeltaAntisymmetric(t *testing.T) {
	pairs := [][2]float64{{1, 2}, {52.99, 45.99}, {0.01, 999999}}
	for _, p := range pairs {
		ab := Compare(record(p[0]), record(p[1]), nil, nil)
		ba := Compare(record(p[1]), record(p[0]), nil, nil)

		require.NotNil(t, ab.Delta)
		require.NotNil(t, ba.Delta)
		assert.InDelta(t, *ab.Delta, -*ba.Delta, 1e-9)
		assert.NotEqual(t, ab.IsPriceDrop, ba.IsPriceDrop)
	}
}

func TestCompare_LotAndUnitTargets(t *testing.T) {
	// 6 bags of 1.9 kg for 52.99 is about 4.648 per kg
	current := record(52.99)
	unitPrice, err := ComputeUnitPrice(current.Price, domain.PackagingSpec{
		QuantitySize: 1.9, QuantityUnit: "kg", ItemsPerLot: 6,
	})
	require.NoError(t, err)

	tests := []struct {
		name          string
		targetPrice   float64
		targetUnit    string
		scope         domain.TargetScope
		isDeal        bool
		targetInUnit  float64
		comparedPrice float64
		mismatch      bool
	}{
		{
			name:          "lot target below lot price",
			targetPrice:   51,
			scope:         domain.TargetScopeLot,
			isDeal:        false,
			targetInUnit:  51,
			comparedPrice: 52.99,
		},
		{
			name:          "lot target equal to lot price",
			targetPrice:   52.99,
			scope:         domain.TargetScopeLot,
			isDeal:        true,
			targetInUnit:  52.99,
			comparedPrice: 52.99,
		},
		{
			name:          "unit target above unit price",
			targetPrice:   5,
			targetUnit:    "kg",
			scope:         domain.TargetScopeUnit,
			isDeal:        true,
			targetInUnit:  5,
			comparedPrice: 4.6482,
		},
		{
			name:          "unit target below unit price",
			targetPrice:   4.5,
			targetUnit:    "kg",
			scope:         domain.TargetScopeUnit,
			isDeal:        false,
			targetInUnit:  4.5,
			comparedPrice: 4.6482,
		},
		{
			name:          "unit target per gram",
			targetPrice:   0.005,
			targetUnit:    "g",
			scope:         domain.TargetScopeUnit,
			isDeal:        true,
			targetInUnit:  5,
			comparedPrice: 4.6482,
		},
		{
			name:        "unit target in another dimension",
			targetPrice: 5,
			targetUnit:  "L",
			scope:       domain.TargetScopeUnit,
			mismatch:    true,
		},
		{
			name:        "unit target with unknown unit",
			targetPrice: 5,
			targetUnit:  "bushel",
			scope:       domain.TargetScopeUnit,
			mismatch:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := domain.NewTargetSpec(ptr(tt.targetPrice), tt.targetUnit)
			cmp := Compare(current, nil, target, &unitPrice)

			assert.Equal(t, tt.scope, cmp.TargetScope)
			assert.Equal(t, tt.isDeal, cmp.IsDeal)
			assert.Equal(t, tt.mismatch, cmp.TargetUnitMismatch)
			if tt.mismatch {
				assert.Nil(t, cmp.TargetPrice)
				return
			}
			require.NotNil(t, cmp.TargetPrice)
			require.NotNil(t, cmp.ComparedPrice)
			assert.InDelta(t, tt.targetInUnit, *cmp.TargetPrice, 1e-9)
			assert.InDelta(t, tt.comparedPrice, *cmp.ComparedPrice, 1e-4)
		})
	}
}

func TestCompare_CountTarget(t *testing.T) {
	unitPrice, err := ComputeUnitPrice(10, domain.PackagingSpec{QuantitySize: 1, QuantityUnit: "piece", ItemsPerLot: 4})
	require.NoError(t, err)

	cmp := Compare(record(10), nil, domain.NewTargetSpec(ptr(3), "piece"), &unitPrice)
	assert.True(t, cmp.IsDeal)
	assert.False(t, cmp.TargetUnitMismatch)
}

func TestCompare_NoTarget(t *testing.T) {
	assert.Nil(t, domain.NewTargetSpec(nil, "L"))
	assert.Nil(t, domain.NewTargetSpec(ptr(0), ""))

	cmp := Compare(record(1), nil, nil, nil)
	assert.False(t, cmp.IsDeal)
	assert.Empty(t, cmp.TargetScope)
	assert.Nil(t, cmp.TargetPrice)
}
