package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kingdom-engine/internal/gamedata"
)

func mustUnit(t *testing.T, id string) gamedata.UnitType {
	t.Helper()
	u, ok := gamedata.UnitByID(id)
	if !ok {
		t.Fatalf("unit %q missing from catalog", id)
	}
	return u
}

func mustBuilding(t *testing.T, id string) gamedata.BuildingType {
	t.Helper()
	b, ok := gamedata.BuildingByID(id)
	if !ok {
		t.Fatalf("building %q missing from catalog", id)
	}
	return b
}

func TestTrainingDuration(t *testing.T) {
	militia := mustUnit(t, "militia") // 10s each

	tests := []struct {
		name      string
		amount    int64
		barracks  int64
		speedMult float64
		want      float64 // seconds
	}{
		{"single unit", 1, 0, 1, 10},
		{"batch of ten", 10, 0, 1, 100},
		{"one barracks", 10, 1, 1, 80},
		{"two barracks", 10, 2, 1, 100.0 / 1.5},
		{"time warp", 10, 0, 3, 100.0 / 3},
		{"confusion", 10, 0, 0.5, 200},
		{"barracks and time warp", 10, 2, 3, 100.0 / 1.5 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := TrainingDuration(militia, tt.amount, tt.barracks, tt.speedMult)
			assert.InDelta(t, tt.want, d.Seconds(), 1e-6)
		})
	}
}

func TestTrainingDuration_SpeedMultiplierFloor(t *testing.T) {
	militia := mustUnit(t, "militia")

	// A zero or absurd debuff cannot stretch work without bound.
	d := TrainingDuration(militia, 1, 0, 0)
	assert.InDelta(t, 100, d.Seconds(), 1e-6)
}

func TestBuildDuration(t *testing.T) {
	farm := mustBuilding(t, "farm") // 45s each

	assert.InDelta(t, 45, BuildDuration(farm, 1, 1).Seconds(), 1e-6)
	assert.InDelta(t, 90, BuildDuration(farm, 2, 1).Seconds(), 1e-6)
	assert.InDelta(t, 30, BuildDuration(farm, 2, 3).Seconds(), 1e-6)
}

func TestBuildDuration_BarracksDoNotHelp(t *testing.T) {
	farm := mustBuilding(t, "farm")

	// Construction time only depends on amount and speed effects.
	assert.Equal(t, BuildDuration(farm, 4, 1), time.Duration(4*45)*time.Second)
}
