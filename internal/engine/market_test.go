package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollHeroLevel_Range(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		level := rollHeroLevel(rng)
		assert.GreaterOrEqual(t, level, int64(1))
		assert.LessOrEqual(t, level, int64(5))
	}
}

func TestRollHeroLevel_LowLevelsDominate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := make(map[int64]int)
	const draws = 100000
	for i := 0; i < draws; i++ {
		counts[rollHeroLevel(rng)]++
	}

	// The bands are 45/30/17/6/2 percent. Allow generous slack; this guards
	// the band ordering, not the exact distribution.
	assert.Greater(t, counts[1], counts[2])
	assert.Greater(t, counts[2], counts[3])
	assert.Greater(t, counts[3], counts[4])
	assert.Greater(t, counts[4], counts[5])
	assert.Greater(t, counts[1], draws*40/100)
	assert.Less(t, counts[5], draws*5/100)
}
