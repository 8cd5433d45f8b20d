package gamedata

import "math"

// HeroType is a hero definition as it appears in the auction pool.
type HeroType struct {
	ID          string
	Name        string
	Class       string
	GoldCost    float64
	BaseAttack  float64
	BaseDefense float64
	BaseHealth  float64
	Description string
}

var heroTypes = map[string]HeroType{
	"warrior":     {ID: "warrior", Name: "Warlord Grimfang", Class: "Warrior", GoldCost: 1000000, BaseAttack: 100, BaseDefense: 80, BaseHealth: 1000, Description: "Master of combat and military tactics"},
	"mage":        {ID: "mage", Name: "Archmage Zarathus", Class: "Mage", GoldCost: 1000000, BaseAttack: 150, BaseDefense: 40, BaseHealth: 600, Description: "Supreme master of magical arts"},
	"rogue":       {ID: "rogue", Name: "Shadow Nightblade", Class: "Rogue", GoldCost: 1000000, BaseAttack: 120, BaseDefense: 60, BaseHealth: 700, Description: "Master of espionage and subterfuge"},
	"priest":      {ID: "priest", Name: "High Priest Luminara", Class: "Priest", GoldCost: 1000000, BaseAttack: 60, BaseDefense: 100, BaseHealth: 800, Description: "Divine healer and protector"},
	"necromancer": {ID: "necromancer", Name: "Lord Mortis", Class: "Necromancer", GoldCost: 1000000, BaseAttack: 140, BaseDefense: 50, BaseHealth: 650, Description: "Master of death and the undead"},
	"ranger":      {ID: "ranger", Name: "Sylvan Huntmaster Kael", Class: "Ranger", GoldCost: 1200000, BaseAttack: 135, BaseDefense: 70, BaseHealth: 760, Description: "Tactical skirmisher commanding elite ranged formations"},
	"paladin":     {ID: "paladin", Name: "Lady Seraphine Dawnshield", Class: "Paladin", GoldCost: 1400000, BaseAttack: 110, BaseDefense: 130, BaseHealth: 980, Description: "Holy champion who inspires armies"},
	"artificer":   {ID: "artificer", Name: "Master Artificer Voltren", Class: "Artificer", GoldCost: 1600000, BaseAttack: 95, BaseDefense: 95, BaseHealth: 840, Description: "Arcane engineer of battlefield constructs"},
}

var heroPool = func() []HeroType {
	pool := make([]HeroType, 0, len(heroTypes))
	for _, id := range []string{"warrior", "mage", "rogue", "priest", "necromancer", "ranger", "paladin", "artificer"} {
		pool = append(pool, heroTypes[id])
	}
	return pool
}()

// HeroByID looks up a hero definition by its identifier.
func HeroByID(id string) (HeroType, bool) {
	h, ok := heroTypes[id]
	return h, ok
}

// HeroPool returns hero definitions in a stable order, for random listing
// generation.
func HeroPool() []HeroType {
	return heroPool
}

// ScaledHeroStats returns a hero's attack, defense and health at the given
// level: base stats times 1 + 0.12 per level above 1, floored.
func ScaledHeroStats(h HeroType, level int64) (attack, defense, health float64) {
	if level < 1 {
		level = 1
	}
	m := 1 + float64(level-1)*HeroLevelStatStep
	return math.Floor(h.BaseAttack * m), math.Floor(h.BaseDefense * m), math.Floor(h.BaseHealth * m)
}

// HeroUpkeep returns the per-second gold upkeep of an owned hero.
func HeroUpkeep(level int64) float64 {
	if level < 1 {
		level = 1
	}
	return HeroUpkeepBase * float64(level)
}

// StartingBid returns the opening price for an auction listing of the given
// hero at the given level.
func StartingBid(h HeroType, level int64) float64 {
	return math.Floor(h.GoldCost * (0.65 + float64(level)*0.18))
}
