package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"kingdom-engine/internal/model"
)

func TestResolveInsolvency_SolventKingdomUntouched(t *testing.T) {
	units := map[string]int64{"militia": 100} // 5 gold/s
	heroes := []model.Hero{}

	res := ResolveInsolvency(0, 10, 1, units, heroes)

	assert.False(t, res.Insolvent())
	assert.Empty(t, res.DisbandedUnits)
	assert.Empty(t, res.DismissedHeroes)
	assert.Equal(t, int64(100), res.RemainingUnits["militia"])
}

func TestResolveInsolvency_GoldBufferAbsorbsUpkeep(t *testing.T) {
	units := map[string]int64{"militia": 100} // 5 gold/s

	// No income at all, but 100 gold covers a 5 gold tick with room to spare.
	res := ResolveInsolvency(100, 0, 1, units, nil)

	assert.False(t, res.Insolvent())
	assert.Equal(t, int64(100), res.RemainingUnits["militia"])
}

func TestResolveInsolvency_HeroesGoFirst(t *testing.T) {
	units := map[string]int64{"dragons": 100}  // 1.5 each -> 150/s
	heroes := []model.Hero{{ID: 1, Level: 1}} // 200/s

	// 350/s against 300/s income and no gold: 50 short over one second. The
	// hero abandons the kingdom before any dragon is touched, even though
	// dismissing it overshoots the deficit.
	res := ResolveInsolvency(0, 300, 1, units, heroes)

	assert.Len(t, res.DismissedHeroes, 1)
	assert.Empty(t, res.DisbandedUnits)
	assert.Equal(t, int64(100), res.RemainingUnits["dragons"])
	assert.Empty(t, res.RemainingHeroes)
}

func TestResolveInsolvency_HigherLevelHeroDismissedFirst(t *testing.T) {
	heroes := []model.Hero{
		{ID: 1, Level: 1}, // 200/s
		{ID: 2, Level: 3}, // 600/s
	}

	// 800/s against 250/s: dismissing the level 3 hero alone covers it.
	res := ResolveInsolvency(0, 250, 1, nil, heroes)

	assert.Len(t, res.DismissedHeroes, 1)
	assert.Equal(t, int64(2), res.DismissedHeroes[0].ID)
	assert.Len(t, res.RemainingHeroes, 1)
	assert.Equal(t, int64(1), res.RemainingHeroes[0].ID)
}

func TestResolveInsolvency_DrainsCostliestStackFirst(t *testing.T) {
	units := map[string]int64{
		"militia": 100, // 0.05 each -> 5/s total
		"knights": 20,  // 0.45 each -> 9/s total
	}

	// Total 14/s against 10/s income: 4 gold short over one second. The
	// knight stack carries the larger total upkeep, so ceil(4/0.45) = 9
	// knights go and the militia stays whole.
	res := ResolveInsolvency(0, 10, 1, units, nil)

	assert.True(t, res.Insolvent())
	assert.Equal(t, int64(9), res.DisbandedUnits["knights"])
	assert.NotContains(t, res.DisbandedUnits, "militia")
	assert.Equal(t, int64(11), res.RemainingUnits["knights"])
	assert.Equal(t, int64(100), res.RemainingUnits["militia"])
	assert.LessOrEqual(t, ArmyUpkeep(res.RemainingUnits, nil), 10.0)
}

func TestResolveInsolvency_OrdersByTotalNotPerUnitUpkeep(t *testing.T) {
	units := map[string]int64{
		"militia": 200, // 0.05 each -> 10/s total
		"knights": 10,  // 0.45 each -> 4.5/s total
	}

	// 14.5/s against 12/s: 2.5 gold short over one second. Knights cost more
	// per unit, but the militia stack's total upkeep is larger, so militia
	// desert first: ceil(2.5/0.05) = 50 of them.
	res := ResolveInsolvency(0, 12, 1, units, nil)

	assert.Equal(t, int64(50), res.DisbandedUnits["militia"])
	assert.NotContains(t, res.DisbandedUnits, "knights")
	assert.Equal(t, int64(150), res.RemainingUnits["militia"])
	assert.Equal(t, int64(10), res.RemainingUnits["knights"])
}

func TestResolveInsolvency_UnitsGoWhenHeroesDoNotCover(t *testing.T) {
	units := map[string]int64{"militia": 10}  // 0.5/s
	heroes := []model.Hero{{ID: 7, Level: 1}} // 200/s

	// 200.5 gold owed with no income and no gold: the hero's 200 refund
	// still leaves half a gold uncovered, so militia desert too.
	res := ResolveInsolvency(0, 0, 1, units, heroes)

	assert.Len(t, res.DismissedHeroes, 1)
	assert.Equal(t, int64(7), res.DismissedHeroes[0].ID)
	assert.Equal(t, int64(10), res.DisbandedUnits["militia"])
	assert.Empty(t, res.RemainingHeroes)
}

func TestResolveInsolvency_DisbandsOnlyWhatTheTickNeeds(t *testing.T) {
	units := map[string]int64{"militia": 10000} // 500 gold/s

	// 499 gold against a 500 gold tick: the projected balance is one gold
	// short, so only ceil(1/0.05) = 20 militia desert, not the whole army.
	res := ResolveInsolvency(499, 0, 1, units, nil)

	assert.Equal(t, int64(20), res.DisbandedUnits["militia"])
	assert.Equal(t, int64(9980), res.RemainingUnits["militia"])

	projected := 499 - ArmyUpkeep(res.RemainingUnits, nil)
	assert.InDelta(t, 0.0, projected, 1e-9)
}

func TestResolveInsolvency_LongTickScalesTheDeficit(t *testing.T) {
	units := map[string]int64{"militia": 100} // 5 gold/s

	// Ten seconds at 5/s owes 50 gold against 30 in the treasury: 20 short,
	// each militia refunds 0.5 gold for the tick, so 40 desert.
	res := ResolveInsolvency(30, 0, 10, units, nil)

	assert.Equal(t, int64(40), res.DisbandedUnits["militia"])
	assert.Equal(t, int64(60), res.RemainingUnits["militia"])
}

// After resolution the tick's projected gold is non-negative, or nothing that
// costs upkeep survived. Heroes are dismissed before any unit deserts, and
// nothing is ever disbanded below zero.
func TestResolveInsolvency_Properties(t *testing.T) {
	unitIDs := []string{"militia", "archers", "knights", "mages", "dragons"}

	rapid.Check(t, func(t *rapid.T) {
		units := make(map[string]int64)
		for _, id := range unitIDs {
			if n := rapid.Int64Range(0, 5000).Draw(t, id); n > 0 {
				units[id] = n
			}
		}
		var heroes []model.Hero
		for i := int64(0); i < rapid.Int64Range(0, 4).Draw(t, "heroCount"); i++ {
			heroes = append(heroes, model.Hero{
				ID:    i + 1,
				Level: rapid.Int64Range(1, 5).Draw(t, "heroLevel"),
			})
		}
		gold := rapid.Float64Range(0, 100000).Draw(t, "gold")
		income := rapid.Float64Range(0, 2000).Draw(t, "income")
		elapsed := rapid.Float64Range(0.5, 120).Draw(t, "elapsed")

		res := ResolveInsolvency(gold, income, elapsed, units, heroes)

		for id, n := range res.DisbandedUnits {
			if n < 0 || n > units[id] {
				t.Fatalf("disbanded %d of %d %s", n, units[id], id)
			}
			if res.RemainingUnits[id] != units[id]-n {
				t.Fatalf("remaining %s mismatch", id)
			}
		}
		if len(res.DismissedHeroes)+len(res.RemainingHeroes) != len(heroes) {
			t.Fatalf("hero accounting mismatch")
		}
		if len(res.DisbandedUnits) > 0 && len(res.RemainingHeroes) > 0 {
			t.Fatalf("units deserted while %d heroes stayed", len(res.RemainingHeroes))
		}

		projected := gold + (income-ArmyUpkeep(res.RemainingUnits, res.RemainingHeroes))*elapsed
		armyGone := len(res.RemainingHeroes) == 0
		for _, n := range res.RemainingUnits {
			if n > 0 {
				armyGone = false
			}
		}
		if projected < -1e-6 && !armyGone {
			t.Fatalf("still insolvent: projected gold %f", projected)
		}
	})
}
