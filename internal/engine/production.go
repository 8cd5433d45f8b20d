package engine

import (
	"time"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
)

// Production is a kingdom's per-second resource rates before upkeep.
type Production struct {
	GoldPerSecond       float64
	ManaPerSecond       float64
	PopulationPerSecond float64
}

// CalculateProduction derives the gross production rates from buildings and
// active resource buffs. Base income flows regardless of buildings.
func CalculateProduction(buildings map[string]int64, effects []model.Effect, now time.Time) Production {
	prod := Production{
		GoldPerSecond:       gamedata.BaseGoldIncome,
		ManaPerSecond:       gamedata.BaseManaIncome,
		PopulationPerSecond: gamedata.BasePopulationGrowth / 60,
	}

	for id, count := range buildings {
		b, ok := gamedata.BuildingByID(id)
		if !ok || count <= 0 {
			continue
		}
		prod.GoldPerSecond += b.GoldPerSecond * float64(count)
		prod.ManaPerSecond += b.ManaPerSecond * float64(count)
		prod.PopulationPerSecond += b.PopulationPerSecond * float64(count)
	}

	prod.GoldPerSecond *= resourceMultiplier(effects, "gold", now)
	prod.ManaPerSecond *= resourceMultiplier(effects, "mana", now)
	return prod
}

// ArmyUpkeep returns the total gold per second the army and heroes drain.
func ArmyUpkeep(units map[string]int64, heroes []model.Hero) float64 {
	total := 0.0
	for id, count := range units {
		u, ok := gamedata.UnitByID(id)
		if !ok || count <= 0 {
			continue
		}
		total += u.Upkeep * float64(count)
	}
	for _, h := range heroes {
		total += gamedata.HeroUpkeep(h.Level)
	}
	return total
}
