package gamedata

import (
	"fmt"
	"math"

	"kingdom-engine/internal/model"
)

// Spell schools.
const (
	SchoolCombat      = "combat"
	SchoolEconomic    = "economic"
	SchoolStrategic   = "strategic"
	SchoolEnchantment = "enchantment"
	SchoolSummoning   = "summoning"
)

// SpellEffect is the tagged variant produced by casting a spell. Exactly one
// handler exists per Kind; the dispatcher rejects kinds outside the closed
// set instead of ignoring them.
type SpellEffect struct {
	Kind            model.EffectKind
	Percentage      float64 // damage_units, steal_resource
	Resource        string  // buff_resource, steal_resource: "gold" or "mana"
	Multiplier      float64 // buff kinds; <1 acts as a debuff
	DurationSeconds int     // buff kinds
	Gold            float64 // instant_resource
	Mana            float64 // instant_resource
	UnitType        string  // summon_units
	Amount          int64   // summon_units
	Damage          float64 // dragon_attack: fraction of target units killed
	Message         string
}

// Spell is a castable spell definition. Targeted spells require a resolvable
// target player; buffs from targeted spells land on the target (debuffs),
// otherwise on the caster.
type Spell struct {
	ID              string
	Name            string
	School          string
	ManaCost        float64
	ResearchDays    int
	CooldownSeconds int
	Targeted        bool
	Description     string
	Effect          func(caster, target *model.Player) SpellEffect
}

var spells = map[string]Spell{
	"fireball": {
		ID: "fireball", Name: "Fireball", School: SchoolCombat,
		ManaCost: 500, ResearchDays: 1, CooldownSeconds: 300, Targeted: true,
		Description: "Destroy enemy units with magical fire",
		Effect: func(caster, target *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectDamageUnits, Percentage: 0.05,
				Message: fmt.Sprintf("%s cast Fireball! 5%% of %s's army was destroyed!", caster.Username, target.Username),
			}
		},
	},
	"lightning_storm": {
		ID: "lightning_storm", Name: "Lightning Storm", School: SchoolCombat,
		ManaCost: 1200, ResearchDays: 2, CooldownSeconds: 600, Targeted: true,
		Description: "Unleash devastating lightning on enemy forces",
		Effect: func(caster, target *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectDamageUnits, Percentage: 0.12,
				Message: fmt.Sprintf("%s summoned a Lightning Storm! 12%% of %s's army was obliterated!", caster.Username, target.Username),
			}
		},
	},
	"prosperity": {
		ID: "prosperity", Name: "Prosperity", School: SchoolEconomic,
		ManaCost: 800, ResearchDays: 1, CooldownSeconds: 600,
		Description: "Increase gold production for 1 hour",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectResourceBuff, Resource: "gold", Multiplier: 1.5, DurationSeconds: 3600,
				Message: fmt.Sprintf("%s cast Prosperity! Gold production increased by 50%% for 1 hour!", caster.Username),
			}
		},
	},
	"mana_surge": {
		ID: "mana_surge", Name: "Mana Surge", School: SchoolEconomic,
		ManaCost: 600, ResearchDays: 1, CooldownSeconds: 600,
		Description: "Increase mana regeneration for 1 hour",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectResourceBuff, Resource: "mana", Multiplier: 2.0, DurationSeconds: 3600,
				Message: fmt.Sprintf("%s channeled Mana Surge! Mana regeneration doubled for 1 hour!", caster.Username),
			}
		},
	},
	"harvest_blessing": {
		ID: "harvest_blessing", Name: "Harvest Blessing", School: SchoolEconomic,
		ManaCost: 1000, ResearchDays: 2, CooldownSeconds: 900,
		Description: "Instantly gain resources based on land owned",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectInstantResource,
				Gold: float64(caster.TotalLand) * 10, Mana: float64(caster.TotalLand) * 5,
				Message: fmt.Sprintf("%s blessed the harvest! Gained instant resources!", caster.Username),
			}
		},
	},
	"steal_mana": {
		ID: "steal_mana", Name: "Steal Mana", School: SchoolStrategic,
		ManaCost: 500, ResearchDays: 1, CooldownSeconds: 600, Targeted: true,
		Description: "Drain mana from target and add to your own",
		Effect: func(caster, target *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectStealResource, Resource: "mana", Percentage: 0.10,
				Message: fmt.Sprintf("%s stole mana from %s!", caster.Username, target.Username),
			}
		},
	},
	"time_warp": {
		ID: "time_warp", Name: "Time Warp", School: SchoolStrategic,
		ManaCost: 3000, ResearchDays: 4, CooldownSeconds: 2400,
		Description: "Speed up all training and construction for 30 minutes",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectSpeedBuff, Multiplier: 3.0, DurationSeconds: 1800,
				Message: fmt.Sprintf("%s warped time! All actions 3x faster for 30 minutes!", caster.Username),
			}
		},
	},
	"fortification": {
		ID: "fortification", Name: "Fortification", School: SchoolEnchantment,
		ManaCost: 1200, ResearchDays: 2, CooldownSeconds: 1200,
		Description: "Increase defensive strength for 2 hours",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectDefenseBuff, Multiplier: 1.5, DurationSeconds: 7200,
				Message: fmt.Sprintf("%s fortified their defenses! +50%% defense for 2 hours!", caster.Username),
			}
		},
	},
	"bloodlust": {
		ID: "bloodlust", Name: "Bloodlust", School: SchoolEnchantment,
		ManaCost: 1000, ResearchDays: 2, CooldownSeconds: 900,
		Description: "Increase offensive power for 1 hour",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectOffenseBuff, Multiplier: 1.75, DurationSeconds: 3600,
				Message: fmt.Sprintf("%s enraged their army with Bloodlust! +75%% attack for 1 hour!", caster.Username),
			}
		},
	},
	"sanctuary": {
		ID: "sanctuary", Name: "Sanctuary", School: SchoolEnchantment,
		ManaCost: 2500, ResearchDays: 3, CooldownSeconds: 3600,
		Description: "Make your kingdom immune to attacks for 15 minutes",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectImmunity, Multiplier: 1, DurationSeconds: 900,
				Message: fmt.Sprintf("%s created a Sanctuary! Immune to attacks for 15 minutes!", caster.Username),
			}
		},
	},
	"weakness": {
		ID: "weakness", Name: "Curse of Weakness", School: SchoolCombat,
		ManaCost: 900, ResearchDays: 2, CooldownSeconds: 1200, Targeted: true,
		Description: "Reduce enemy offensive power",
		Effect: func(caster, target *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectOffenseBuff, Multiplier: 0.5, DurationSeconds: 3600,
				Message: fmt.Sprintf("%s cursed %s with Weakness! -50%% attack for 1 hour!", caster.Username, target.Username),
			}
		},
	},
	"confusion": {
		ID: "confusion", Name: "Confusion", School: SchoolStrategic,
		ManaCost: 700, ResearchDays: 1, CooldownSeconds: 600, Targeted: true,
		Description: "Slow down enemy training and construction",
		Effect: func(caster, target *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectSpeedBuff, Multiplier: 0.5, DurationSeconds: 1800,
				Message: fmt.Sprintf("%s confused %s! Training and construction slowed by 50%% for 30 minutes!", caster.Username, target.Username),
			}
		},
	},
	"summon_elementals": {
		ID: "summon_elementals", Name: "Summon Elementals", School: SchoolSummoning,
		ManaCost: 1500, ResearchDays: 2, CooldownSeconds: 1200,
		Description: "Summon powerful elemental warriors",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectSummonUnits, UnitType: "elementals",
				Amount:  int64(math.Floor(float64(caster.TotalLand) * 2)),
				Message: fmt.Sprintf("%s summoned Elementals to join their army!", caster.Username),
			}
		},
	},
	"summon_undead": {
		ID: "summon_undead", Name: "Raise Undead", School: SchoolSummoning,
		ManaCost: 1000, ResearchDays: 2, CooldownSeconds: 900,
		Description: "Raise the dead to serve you",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectSummonUnits, UnitType: "undead",
				Amount:  int64(math.Floor(float64(caster.TotalLand) * 3)),
				Message: fmt.Sprintf("%s raised an Undead army from the graves!", caster.Username),
			}
		},
	},
	"summon_demons": {
		ID: "summon_demons", Name: "Summon Demons", School: SchoolSummoning,
		ManaCost: 2200, ResearchDays: 3, CooldownSeconds: 1800,
		Description: "Summon fearsome demons from the abyss",
		Effect: func(caster, _ *model.Player) SpellEffect {
			return SpellEffect{
				Kind: model.EffectSummonUnits, UnitType: "demons",
				Amount:  int64(math.Floor(float64(caster.TotalLand) * 1.5)),
				Message: fmt.Sprintf("%s opened a portal and summoned Demons!", caster.Username),
			}
		},
	},
	"summon_dragon": {
		ID: "summon_dragon", Name: "Summon Dragon", School: SchoolSummoning,
		ManaCost: 5000, ResearchDays: 5, CooldownSeconds: 3600,
		Description: "Summon an ancient dragon to devastate your enemies",
		Effect: func(caster, target *model.Player) SpellEffect {
			msg := fmt.Sprintf("%s summoned an Ancient Dragon! The dragon awaits orders!", caster.Username)
			if target != nil {
				msg = fmt.Sprintf("%s summoned an Ancient Dragon! %s's kingdom burns!", caster.Username, target.Username)
			}
			return SpellEffect{Kind: model.EffectDragonAttack, Damage: 0.25, Message: msg}
		},
	},
}

// SpellByID looks up a spell by its identifier.
func SpellByID(id string) (Spell, bool) {
	s, ok := spells[id]
	return s, ok
}

// Spells returns the full spell catalog.
func Spells() map[string]Spell {
	return spells
}
