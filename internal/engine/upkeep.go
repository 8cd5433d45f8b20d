package engine

import (
	"math"
	"sort"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
)

// UpkeepResolution records what an insolvent kingdom lost: dismissed heroes
// and disbanded unit stacks, with the surviving counts alongside.
type UpkeepResolution struct {
	DismissedHeroes []model.Hero
	DisbandedUnits  map[string]int64
	RemainingUnits  map[string]int64
	RemainingHeroes []model.Hero
}

// Insolvent reports whether anything was lost.
func (r UpkeepResolution) Insolvent() bool {
	return len(r.DisbandedUnits) > 0 || len(r.DismissedHeroes) > 0
}

type upkeepStack struct {
	unitType string
	perUnit  float64
	total    float64
	count    int64
}

// ResolveInsolvency trims the army until the tick's projected gold, the
// current balance plus (income minus remaining upkeep) over the elapsed
// seconds, reaches zero. Heroes abandon the kingdom first, highest upkeep
// first, each dismissal refunding its full upkeep for the tick. If the
// kingdom still cannot pay, unit stacks are drained in order of total stack
// upkeep, each losing only as many units as needed. Greedy by intent; a hero
// dismissal may free more gold than the deficit strictly required.
func ResolveInsolvency(gold, goldIncome, elapsed float64, units map[string]int64, heroes []model.Hero) UpkeepResolution {
	res := UpkeepResolution{
		DisbandedUnits: make(map[string]int64),
		RemainingUnits: make(map[string]int64, len(units)),
	}
	for id, count := range units {
		res.RemainingUnits[id] = count
	}

	deficit := -(gold + (goldIncome-ArmyUpkeep(units, heroes))*elapsed)
	if deficit <= 0 || elapsed <= 0 {
		res.RemainingHeroes = heroes
		return res
	}

	sorted := make([]model.Hero, len(heroes))
	copy(sorted, heroes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return gamedata.HeroUpkeep(sorted[i].Level) > gamedata.HeroUpkeep(sorted[j].Level)
	})

	dismissed := make(map[int64]bool)
	for _, h := range sorted {
		if deficit <= 0 {
			break
		}
		dismissed[h.ID] = true
		res.DismissedHeroes = append(res.DismissedHeroes, h)
		deficit -= gamedata.HeroUpkeep(h.Level) * elapsed
	}
	for _, h := range heroes {
		if !dismissed[h.ID] {
			res.RemainingHeroes = append(res.RemainingHeroes, h)
		}
	}
	if deficit <= 0 {
		return res
	}

	stacks := make([]upkeepStack, 0, len(units))
	for id, count := range units {
		u, ok := gamedata.UnitByID(id)
		if !ok || count <= 0 || u.Upkeep <= 0 {
			continue
		}
		stacks = append(stacks, upkeepStack{
			unitType: id,
			perUnit:  u.Upkeep,
			total:    u.Upkeep * float64(count),
			count:    count,
		})
	}
	sort.Slice(stacks, func(i, j int) bool {
		if stacks[i].total != stacks[j].total {
			return stacks[i].total > stacks[j].total
		}
		return stacks[i].unitType < stacks[j].unitType
	})

	for _, s := range stacks {
		if deficit <= 0 {
			break
		}
		perUnitGold := s.perUnit * elapsed
		n := int64(math.Ceil(deficit / perUnitGold))
		if n > s.count {
			n = s.count
		}
		res.DisbandedUnits[s.unitType] = n
		res.RemainingUnits[s.unitType] = s.count - n
		deficit -= float64(n) * perUnitGold
	}
	return res
}
