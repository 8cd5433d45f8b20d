package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"kingdom-engine/internal/model"
)

func TestAttackPower(t *testing.T) {
	units := map[string]int64{
		"cavalry": 100, // 5 attack each
		"militia": 50,  // 1 attack each
	}

	assert.InDelta(t, 550.0, AttackPower(units, nil, testNow), 1e-9)
}

func TestAttackPower_OffenseBuff(t *testing.T) {
	units := map[string]int64{"militia": 100} // 1 attack each
	effects := []model.Effect{
		buff(model.EffectOffenseBuff, "", 1.75, testNow.Add(time.Hour)),
	}

	assert.InDelta(t, 175.0, AttackPower(units, effects, testNow), 1e-9)
}

func TestAttackPower_WeaknessDebuff(t *testing.T) {
	units := map[string]int64{"militia": 100}
	effects := []model.Effect{
		buff(model.EffectOffenseBuff, "", 0.5, testNow.Add(time.Hour)),
	}

	assert.InDelta(t, 50.0, AttackPower(units, effects, testNow), 1e-9)
}

func TestDefensePower_DefenseBuff(t *testing.T) {
	units := map[string]int64{"militia": 100} // 1 defense each
	effects := []model.Effect{
		buff(model.EffectDefenseBuff, "", 1.5, testNow.Add(time.Hour)),
	}

	assert.InDelta(t, 150.0, DefensePower(units, effects, testNow), 1e-9)
}

func TestResolveBattle_AttackerWins(t *testing.T) {
	attacker := &model.Player{
		ID:    "a",
		Units: map[string]int64{"cavalry": 100}, // 500 attack
	}
	defender := &model.Player{
		ID:        "d",
		Gold:      10000,
		TotalLand: 100,
		Units:     map[string]int64{"militia": 400}, // 400 defense
	}

	out := ResolveBattle(attacker, defender, testNow)

	assert.True(t, out.Report.Victory)
	assert.InDelta(t, 500.0, out.Report.AttackerPower, 1e-9)
	assert.InDelta(t, 400.0, out.Report.DefenderPower, 1e-9)
	assert.Equal(t, int64(5), out.AttackerLosses["cavalry"])  // 5% of 100
	assert.Equal(t, int64(60), out.DefenderLosses["militia"]) // 15% of 400
	assert.InDelta(t, 1000.0, out.Report.GoldStolen, 1e-9)    // 10% of gold
	assert.Equal(t, int64(5), out.Report.LandCaptured)        // 5% of land
}

func TestResolveBattle_AttackerRepelled(t *testing.T) {
	attacker := &model.Player{
		ID:    "a",
		Units: map[string]int64{"militia": 100}, // 100 attack
	}
	defender := &model.Player{
		ID:        "d",
		Gold:      10000,
		TotalLand: 100,
		Units:     map[string]int64{"pikemen": 100}, // 300 defense
	}

	out := ResolveBattle(attacker, defender, testNow)

	assert.False(t, out.Report.Victory)
	assert.Equal(t, int64(20), out.AttackerLosses["militia"]) // 20% of 100
	assert.Equal(t, int64(5), out.DefenderLosses["pikemen"])  // 5% of 100
	assert.Zero(t, out.Report.GoldStolen)
	assert.Zero(t, out.Report.LandCaptured)
}

func TestResolveBattle_EqualPowerDefenderHolds(t *testing.T) {
	attacker := &model.Player{Units: map[string]int64{"militia": 100}}
	defender := &model.Player{Units: map[string]int64{"militia": 100}}

	out := ResolveBattle(attacker, defender, testNow)
	assert.False(t, out.Report.Victory)
}

// Casualties never exceed the stack, and spoils only flow on victory.
func TestResolveBattle_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attacker := &model.Player{
			Gold:      rapid.Float64Range(0, 1e6).Draw(t, "aGold"),
			TotalLand: rapid.Int64Range(0, 10000).Draw(t, "aLand"),
			Units: map[string]int64{
				"militia": rapid.Int64Range(0, 10000).Draw(t, "aMilitia"),
				"knights": rapid.Int64Range(0, 1000).Draw(t, "aKnights"),
			},
		}
		defender := &model.Player{
			Gold:      rapid.Float64Range(0, 1e6).Draw(t, "dGold"),
			TotalLand: rapid.Int64Range(0, 10000).Draw(t, "dLand"),
			Units: map[string]int64{
				"militia": rapid.Int64Range(0, 10000).Draw(t, "dMilitia"),
			},
		}

		out := ResolveBattle(attacker, defender, testNow)

		for id, n := range out.AttackerLosses {
			if n < 0 || n > attacker.Units[id] {
				t.Fatalf("attacker lost %d of %d %s", n, attacker.Units[id], id)
			}
		}
		for id, n := range out.DefenderLosses {
			if n < 0 || n > defender.Units[id] {
				t.Fatalf("defender lost %d of %d %s", n, defender.Units[id], id)
			}
		}
		if !out.Report.Victory && (out.Report.GoldStolen != 0 || out.Report.LandCaptured != 0) {
			t.Fatalf("spoils on a failed attack: %+v", out.Report)
		}
		if out.Report.GoldStolen > defender.Gold {
			t.Fatalf("stole more gold than the defender had")
		}
		if out.Report.LandCaptured > defender.TotalLand {
			t.Fatalf("captured more land than the defender had")
		}
	})
}

func TestHasImmunity(t *testing.T) {
	active := []model.Effect{buff(model.EffectImmunity, "", 1, testNow.Add(time.Minute))}
	expired := []model.Effect{buff(model.EffectImmunity, "", 1, testNow.Add(-time.Minute))}

	assert.True(t, hasImmunity(active, testNow))
	assert.False(t, hasImmunity(expired, testNow))
	assert.False(t, hasImmunity(nil, testNow))
}
