package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"kingdom-engine/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func buff(kind model.EffectKind, resource string, mult float64, until time.Time) model.Effect {
	return model.Effect{Kind: kind, Resource: resource, Multiplier: mult, ExpiresAt: until}
}

func TestCalculateProduction_BaseRates(t *testing.T) {
	prod := CalculateProduction(nil, nil, testNow)

	assert.Equal(t, 10.0, prod.GoldPerSecond)
	assert.Equal(t, 5.0, prod.ManaPerSecond)
	assert.InDelta(t, 1.0/60, prod.PopulationPerSecond, 1e-9)
}

func TestCalculateProduction_Buildings(t *testing.T) {
	buildings := map[string]int64{
		"gold_mine":    2, // +2 gold/s each
		"mana_crystal": 3, // +1 mana/s each
		"farm":         1, // +0.5 pop/s
		"marketplace":  1, // +3 gold/s
		"walls":        5, // no production
	}

	prod := CalculateProduction(buildings, nil, testNow)

	assert.Equal(t, 10.0+4+3, prod.GoldPerSecond)
	assert.Equal(t, 5.0+3, prod.ManaPerSecond)
	assert.InDelta(t, 1.0/60+0.5, prod.PopulationPerSecond, 1e-9)
}

func TestCalculateProduction_ResourceBuffs(t *testing.T) {
	active := testNow.Add(time.Hour)
	expired := testNow.Add(-time.Second)

	effects := []model.Effect{
		buff(model.EffectResourceBuff, "gold", 1.5, active),
		buff(model.EffectResourceBuff, "mana", 2.0, active),
		buff(model.EffectResourceBuff, "gold", 3.0, expired), // ignored
		buff(model.EffectOffenseBuff, "", 2.0, active),       // wrong kind
	}

	prod := CalculateProduction(nil, effects, testNow)

	assert.InDelta(t, 15.0, prod.GoldPerSecond, 1e-9)
	assert.InDelta(t, 10.0, prod.ManaPerSecond, 1e-9)
}

func TestCalculateProduction_StackedBuffsMultiply(t *testing.T) {
	active := testNow.Add(time.Hour)
	effects := []model.Effect{
		buff(model.EffectResourceBuff, "gold", 1.5, active),
		buff(model.EffectResourceBuff, "gold", 1.5, active),
	}

	prod := CalculateProduction(nil, effects, testNow)
	assert.InDelta(t, 10.0*2.25, prod.GoldPerSecond, 1e-9)
}

func TestArmyUpkeep(t *testing.T) {
	units := map[string]int64{
		"militia": 100, // 0.05 each
		"knights": 10,  // 0.45 each
		"unknown": 50,  // ignored
	}
	heroes := []model.Hero{
		{Level: 1}, // 200
		{Level: 3}, // 600
	}

	assert.InDelta(t, 5+4.5+800, ArmyUpkeep(units, heroes), 1e-9)
}

func TestArmyUpkeep_Empty(t *testing.T) {
	assert.Equal(t, 0.0, ArmyUpkeep(nil, nil))
}

// Production never drops under the base rates: buildings only add, and buffs
// in the catalog never multiply below 1 on the caster's own resources.
func TestCalculateProduction_NeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buildings := map[string]int64{
			"gold_mine":    rapid.Int64Range(0, 1000).Draw(t, "mines"),
			"farm":         rapid.Int64Range(0, 1000).Draw(t, "farms"),
			"mana_crystal": rapid.Int64Range(0, 1000).Draw(t, "crystals"),
		}
		mult := rapid.Float64Range(0.1, 5).Draw(t, "mult")
		effects := []model.Effect{
			buff(model.EffectResourceBuff, "gold", mult, testNow.Add(time.Hour)),
		}

		prod := CalculateProduction(buildings, effects, testNow)

		if prod.GoldPerSecond < 0 || prod.ManaPerSecond < 0 || prod.PopulationPerSecond < 0 {
			t.Fatalf("negative production: %+v", prod)
		}
		if prod.ManaPerSecond < 5 {
			t.Fatalf("mana below base: %f", prod.ManaPerSecond)
		}
	})
}
