package accounts

import (
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tiers := DefaultTiers()

	tests := []struct {
		points int
		want   domain.LoyaltyTier
	}{
		{0, domain.TierBronze},
		{999, domain.TierBronze},
		{1000, domain.TierSilver},
		{2450, domain.TierGold},
		{3000, domain.TierPlatinum},
		{99999, domain.TierPlatinum},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tiers.TierFor(tt.points), "points=%d", tt.points)
	}
}

func TestNextTier(t *testing.T) {
	tiers := DefaultTiers()

	p := tiers.NextTier(2450)
	assert.Equal(t, domain.TierGold, p.Current)
	assert.Equal(t, domain.TierPlatinum, p.Next)
	assert.Equal(t, 550, p.PointsToNext)
	assert.Equal(t, 81, p.Percent)

	top := tiers.NextTier(3500)
	assert.Equal(t, domain.TierPlatinum, top.Current)
	assert.Empty(t, top.Next)
	assert.Equal(t, 100, top.Percent)
}

func TestNewTiers_SortsAndDefaults(t *testing.T) {
	tiers := NewTiers([]TierLevel{
		{Tier: domain.TierGold, MinPoints: 500},
		{Tier: domain.TierBronze, MinPoints: 0},
	})
	assert.Equal(t, domain.TierBronze, tiers[0].Tier)
	assert.Equal(t, domain.TierGold, tiers.TierFor(600))

	assert.Equal(t, DefaultTiers(), NewTiers(nil))
}

func TestPointsFor(t *testing.T) {
	ten := decimal.NewFromInt(10)

	assert.Equal(t, 59, PointsFor(decimal.RequireFromString("599.98"), ten))
	assert.Equal(t, 19, PointsFor(decimal.RequireFromString("199.99"), ten))
	assert.Equal(t, 0, PointsFor(decimal.RequireFromString("9.99"), ten))
	assert.Equal(t, 0, PointsFor(decimal.NewFromInt(100), decimal.Zero))
}
