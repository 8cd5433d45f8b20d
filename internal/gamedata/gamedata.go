// Package gamedata holds the static game catalog: unit, building, spell and
// hero definitions plus balance constants. Values are data, not behavior; the
// engine interprets them.
package gamedata

// Balance constants.
const (
	BaseGoldIncome           = 10.0 // gold per second
	BaseManaIncome           = 5.0  // mana per second
	BasePopulationGrowth     = 1.0  // population per minute
	StartingGold             = 5000.0
	StartingMana             = 1000.0
	StartingPopulation       = 100.0
	StartingLand             = 50
	StartingMilitia          = 50
	LandExpansionCost        = 1000.0
	HeroUpkeepBase           = 200.0 // gold per second, scaled by level
	HeroLevelStatStep        = 0.12  // stat multiplier per level above 1
	ResearchSecondsPerDay    = 86400
	ResearchCutPerUniversity = 1800 // flat seconds shaved per university owned
	MinResearchSeconds       = 3600
)

// UnitType describes one trainable (or summonable) unit type.
type UnitType struct {
	ID              string
	Name            string
	GoldCost        float64
	ManaCost        float64
	PopulationCost  float64
	TrainingSeconds float64
	Upkeep          float64 // gold per second per unit
	Attack          float64
	Defense         float64
	Description     string
}

// BuildingType describes one constructible building type.
type BuildingType struct {
	ID                  string
	Name                string
	GoldCost            float64
	LandCost            int64
	BuildSeconds        float64
	GoldPerSecond       float64
	ManaPerSecond       float64
	PopulationPerSecond float64
	TrainingSpeedBonus  float64
	ResearchBuilding    bool
	DefenseBonus        float64
	SpellPowerBonus     float64
	Description         string
}

var unitTypes = map[string]UnitType{
	"militia":     {ID: "militia", Name: "Militia", GoldCost: 50, PopulationCost: 1, TrainingSeconds: 10, Upkeep: 0.05, Attack: 1, Defense: 1, Description: "Basic infantry units"},
	"archers":     {ID: "archers", Name: "Archers", GoldCost: 100, PopulationCost: 1, TrainingSeconds: 15, Upkeep: 0.09, Attack: 3, Defense: 1, Description: "Ranged units with higher attack"},
	"pikemen":     {ID: "pikemen", Name: "Pikemen", GoldCost: 140, PopulationCost: 1, TrainingSeconds: 20, Upkeep: 0.12, Attack: 3, Defense: 3, Description: "Disciplined spear infantry"},
	"cavalry":     {ID: "cavalry", Name: "Cavalry", GoldCost: 200, PopulationCost: 2, TrainingSeconds: 30, Upkeep: 0.18, Attack: 5, Defense: 3, Description: "Fast, powerful mounted units"},
	"crossbowmen": {ID: "crossbowmen", Name: "Crossbowmen", GoldCost: 240, PopulationCost: 1, TrainingSeconds: 28, Upkeep: 0.2, Attack: 6, Defense: 2, Description: "Heavy ranged infantry"},
	"knights":     {ID: "knights", Name: "Knights", GoldCost: 500, PopulationCost: 3, TrainingSeconds: 60, Upkeep: 0.45, Attack: 10, Defense: 8, Description: "Elite armored warriors"},
	"paladins":    {ID: "paladins", Name: "Paladins", GoldCost: 650, ManaCost: 40, PopulationCost: 3, TrainingSeconds: 75, Upkeep: 0.5, Attack: 12, Defense: 11, Description: "Holy heavy cavalry"},
	"mages":       {ID: "mages", Name: "Battle Mages", GoldCost: 800, ManaCost: 100, PopulationCost: 2, TrainingSeconds: 90, Upkeep: 0.55, Attack: 15, Defense: 5, Description: "Powerful spellcasters"},
	"warlocks":    {ID: "warlocks", Name: "Warlocks", GoldCost: 950, ManaCost: 180, PopulationCost: 2, TrainingSeconds: 110, Upkeep: 0.65, Attack: 19, Defense: 6, Description: "Dark battlefield casters"},
	"elementals":  {ID: "elementals", Name: "Elementals", Upkeep: 0.28, Attack: 12, Defense: 10, Description: "Magical beings summoned by spells"},
	"undead":      {ID: "undead", Name: "Undead", Upkeep: 0.24, Attack: 8, Defense: 12, Description: "Risen corpses that never tire"},
	"demons":      {ID: "demons", Name: "Demons", Upkeep: 0.38, Attack: 20, Defense: 15, Description: "Fearsome creatures from the abyss"},
	"dragons":     {ID: "dragons", Name: "Dragons", Upkeep: 1.5, Attack: 50, Defense: 40, Description: "Ancient dragons of immense power"},
}

var buildingTypes = map[string]BuildingType{
	"gold_mine":    {ID: "gold_mine", Name: "Gold Mine", GoldCost: 500, LandCost: 1, BuildSeconds: 60, GoldPerSecond: 2, Description: "Produces gold over time"},
	"mana_crystal": {ID: "mana_crystal", Name: "Mana Crystal", GoldCost: 800, LandCost: 1, BuildSeconds: 90, ManaPerSecond: 1, Description: "Generates mana over time"},
	"farm":         {ID: "farm", Name: "Farm", GoldCost: 300, LandCost: 2, BuildSeconds: 45, PopulationPerSecond: 0.5, Description: "Increases population growth"},
	"barracks":     {ID: "barracks", Name: "Barracks", GoldCost: 1000, LandCost: 3, BuildSeconds: 120, TrainingSpeedBonus: 0.25, Description: "Increases unit training speed by 25%"},
	"wizard_tower": {ID: "wizard_tower", Name: "Wizard Tower", GoldCost: 2000, LandCost: 2, BuildSeconds: 180, ManaPerSecond: 2, SpellPowerBonus: 0.20, Description: "Increases spell power and mana generation"},
	"walls":        {ID: "walls", Name: "Fortified Walls", GoldCost: 1500, LandCost: 1, BuildSeconds: 150, DefenseBonus: 0.30, Description: "Increases defensive strength by 30%"},
	"marketplace":  {ID: "marketplace", Name: "Marketplace", GoldCost: 800, LandCost: 2, BuildSeconds: 90, GoldPerSecond: 3, Description: "Increases gold income and trade efficiency"},
	"university":   {ID: "university", Name: "University", GoldCost: 1800, LandCost: 2, BuildSeconds: 140, ResearchBuilding: true, Description: "Shortens spell research per University owned"},
}

// UnitByID looks up a unit type by its identifier.
func UnitByID(id string) (UnitType, bool) {
	u, ok := unitTypes[id]
	return u, ok
}

// BuildingByID looks up a building type by its identifier.
func BuildingByID(id string) (BuildingType, bool) {
	b, ok := buildingTypes[id]
	return b, ok
}

// UnitIDs returns the identifiers of all unit types.
func UnitIDs() []string {
	ids := make([]string, 0, len(unitTypes))
	for id := range unitTypes {
		ids = append(ids, id)
	}
	return ids
}
