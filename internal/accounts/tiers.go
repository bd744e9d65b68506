package accounts

import (
	"sort"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type TierLevel struct {
	Tier      domain.LoyaltyTier
	MinPoints int
}

// Tiers is a ladder of loyalty levels ordered by MinPoints.
type Tiers []TierLevel

func DefaultTiers() Tiers {
	return Tiers{
		{Tier: domain.TierBronze, MinPoints: 0},
		{Tier: domain.TierSilver, MinPoints: 1000},
		{Tier: domain.TierGold, MinPoints: 2000},
		{Tier: domain.TierPlatinum, MinPoints: 3000},
	}
}

// NewTiers sorts the levels. An empty ladder falls back to the defaults.
func NewTiers(levels []TierLevel) Tiers {
	if len(levels) == 0 {
		return DefaultTiers()
	}
	t := make(Tiers, len(levels))
	copy(t, levels)
	sort.SliceStable(t, func(i, j int) bool { return t[i].MinPoints < t[j].MinPoints })
	return t
}

// TierFor returns the highest tier whose threshold points reach.
func (t Tiers) TierFor(points int) domain.LoyaltyTier {
	tier := t[0].Tier
	for _, l := range t {
		if points >= l.MinPoints {
			tier = l.Tier
		}
	}
	return tier
}

type Progress struct {
	Current      domain.LoyaltyTier `json:"current"`
	Next         domain.LoyaltyTier `json:"next,omitempty"`
	PointsToNext int                `json:"points_to_next"`
	Percent      int                `json:"percent"`
}

// NextTier reports how far points are from the next level. At the top
// level Next is empty and Percent is 100.
func (t Tiers) NextTier(points int) Progress {
	p := Progress{Current: t.TierFor(points), Percent: 100}
	for _, l := range t {
		if points < l.MinPoints {
			p.Next = l.Tier
			p.PointsToNext = l.MinPoints - points
			p.Percent = min(100, max(0, points*100/l.MinPoints))
			return p
		}
	}
	return p
}

// PointsFor returns the points earned on an order total: one point per
// whole unit spent.
func PointsFor(total, unit decimal.Decimal) int {
	if !unit.IsPositive() || !total.IsPositive() {
		return 0
	}
	return int(total.Div(unit).Floor().IntPart())
}
