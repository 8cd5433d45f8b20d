// End-to-end service tests against a real PostgreSQL container, driven by a
// manual clock so cycles can be replayed deterministically.
package engine

import (
	"context"
	"math/rand"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"kingdom-engine/internal/config"
	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/db"
	"kingdom-engine/internal/pkg/lock"
	"kingdom-engine/internal/repository"
)

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// testEnv wires every service against a fresh database with a manual clock.
type testEnv struct {
	repos   *Repos
	clk     *clock.Manual
	tick    *TickService
	queue   *QueueService
	spells  *SpellService
	combat  *CombatService
	market  *MarketService
	kingdom *KingdomService
}

func setupEnv(t *testing.T) *testEnv {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pgxPool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pgxPool.Close)

	require.NoError(t, db.Migrate(ctx, pgxPool))
	pool := &db.Pool{Pool: pgxPool}

	repos := &Repos{
		Players:   repository.NewPlayerRepository(pool),
		Army:      repository.NewArmyRepository(pool),
		Queue:     repository.NewQueueRepository(pool),
		Spells:    repository.NewSpellRepository(pool),
		Effects:   repository.NewEffectRepository(pool),
		Market:    repository.NewMarketRepository(pool),
		Messages:  repository.NewMessageRepository(pool),
		CombatLog: repository.NewCombatLogRepository(pool),
	}

	locks := lock.NewPlayerLock()
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	notifier := notify.Nop{}
	marketCfg := config.MarketConfig{MaxActiveListings: 3, ListingDuration: time.Hour}

	return &testEnv{
		repos:   repos,
		clk:     clk,
		tick:    NewTickService(repos, locks, clk, notifier, NewSessions()),
		queue:   NewQueueService(repos, locks, clk, notifier),
		spells:  NewSpellService(repos, locks, clk, notifier),
		combat:  NewCombatService(repos, locks, clk, notifier),
		market:  NewMarketService(repos, locks, clk, notifier, marketCfg, rand.New(rand.NewSource(1))),
		kingdom: NewKingdomService(repos, locks, clk, notifier),
	}
}

func (e *testEnv) register(t *testing.T, username string) *model.Player {
	t.Helper()
	p, err := e.kingdom.Register(context.Background(), username)
	require.NoError(t, err)
	return p
}

func (e *testEnv) gold(t *testing.T, playerID string) float64 {
	t.Helper()
	p, err := e.repos.Players.GetByID(context.Background(), playerID)
	require.NoError(t, err)
	return p.Gold
}

func TestTickCycle_ProducesResources(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "tickland")

	// First cycle only establishes the baseline.
	require.NoError(t, env.tick.RunCycle(ctx))
	require.Equal(t, 5000.0, env.gold(t, p.ID))

	env.clk.Advance(10 * time.Second)
	require.NoError(t, env.tick.RunCycle(ctx))

	militia, _ := gamedata.UnitByID("militia")
	goldRate := gamedata.BaseGoldIncome - 50*militia.Upkeep

	got, err := env.repos.Players.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5000+goldRate*10, got.Gold, 1e-6)
	assert.InDelta(t, 1000+gamedata.BaseManaIncome*10, got.Mana, 1e-6)
	assert.InDelta(t, 100+10.0/60.0, got.Population, 1e-6)
}

func TestTickCycle_InsolvencyDismissesArmy(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "broke")
	require.NoError(t, env.repos.Army.SetUnits(ctx, p.ID, "militia", 0))
	require.NoError(t, env.repos.Players.UpdateResources(ctx, p.ID, 0, 0, 0))
	_, err := env.repos.Army.AddHero(ctx, model.Hero{
		PlayerID: p.ID, HeroID: "warrior", Level: 5,
		Health: 1960, MaxHealth: 1960, Attack: 196, Defense: 156,
	})
	require.NoError(t, err)

	require.NoError(t, env.tick.RunCycle(ctx))
	env.clk.Advance(10 * time.Second)
	require.NoError(t, env.tick.RunCycle(ctx))

	// A level 5 hero costs 1000 gold per second against 10 income, so the
	// hero deserts. The ten seconds of base income survive the desertion.
	heroes, err := env.repos.Army.HeroesFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, heroes)
	assert.InDelta(t, 100.0, env.gold(t, p.ID), 1e-6,
		"income earned during the tick is kept once the army fits")

	msgs, err := env.repos.Messages.ListRecent(ctx, p.ID, 10)
	require.NoError(t, err)
	var warned bool
	for _, m := range msgs {
		if m.Type == model.MessageDanger {
			warned = true
		}
	}
	assert.True(t, warned, "the player is told what deserted")
}

func TestTickCycle_InsolvencyDisbandsOnlyTheShortfall(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "squeezed")
	require.NoError(t, env.repos.Army.SetUnits(ctx, p.ID, "militia", 10000))
	require.NoError(t, env.repos.Players.UpdateResources(ctx, p.ID, 480, 0, 0))

	require.NoError(t, env.tick.RunCycle(ctx))
	env.clk.Advance(time.Second)
	require.NoError(t, env.tick.RunCycle(ctx))

	// 10,000 militia drain 500 gold against 480 in the treasury plus 10
	// income: a 10 gold shortfall costs exactly 200 militia, not the army.
	units, err := env.repos.Army.UnitsFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9800), units["militia"])
	assert.InDelta(t, 0.0, env.gold(t, p.ID), 1e-6)
}

func TestTickCycle_ClampsResourcesAtZero(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "drained")
	require.NoError(t, env.repos.Players.UpdateResources(ctx, p.ID, 5000, -100, -50))

	require.NoError(t, env.tick.RunCycle(ctx))
	env.clk.Advance(time.Second)
	require.NoError(t, env.tick.RunCycle(ctx))

	got, err := env.repos.Players.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Mana, 0.0)
	assert.GreaterOrEqual(t, got.Population, 0.0)
}

func TestQueueService_TrainAndDeliver(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "trainer")
	militia, _ := gamedata.UnitByID("militia")

	item, err := env.queue.TrainUnits(ctx, p.ID, "militia", 10)
	require.NoError(t, err)
	assert.InDelta(t, 5000-10*militia.GoldCost, env.gold(t, p.ID), 1e-6,
		"training costs are paid up front")

	// A second batch chains after the first.
	second, err := env.queue.TrainUnits(ctx, p.ID, "militia", 5)
	require.NoError(t, err)
	assert.WithinDuration(t, item.CompletesAt, second.StartedAt, time.Millisecond)

	// Nothing delivers before its time.
	require.NoError(t, env.queue.RunCycle(ctx))
	units, err := env.repos.Army.UnitsFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), units["militia"])

	env.clk.Set(item.CompletesAt.Add(time.Second))
	require.NoError(t, env.queue.RunCycle(ctx))
	units, err = env.repos.Army.UnitsFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), units["militia"], "only the due batch delivers")

	env.clk.Set(second.CompletesAt.Add(time.Second))
	require.NoError(t, env.queue.RunCycle(ctx))
	units, err = env.repos.Army.UnitsFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(65), units["militia"])

	pending, err := env.queue.PendingQueue(ctx, p.ID, model.QueueTraining)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueueService_BacklogDrainsOnePerCycle(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "backlog")

	_, err := env.queue.TrainUnits(ctx, p.ID, "militia", 10)
	require.NoError(t, err)
	second, err := env.queue.TrainUnits(ctx, p.ID, "militia", 5)
	require.NoError(t, err)

	// Jump past both completion times; the queue still advances one batch per
	// cycle, oldest first.
	env.clk.Set(second.CompletesAt.Add(time.Second))

	require.NoError(t, env.queue.RunCycle(ctx))
	units, err := env.repos.Army.UnitsFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), units["militia"])

	require.NoError(t, env.queue.RunCycle(ctx))
	units, err = env.repos.Army.UnitsFor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(65), units["militia"])
}

func TestQueueService_RejectsUnaffordable(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "pauper")
	require.NoError(t, env.repos.Players.UpdateResources(ctx, p.ID, 1, 1000, 100))

	_, err := env.queue.TrainUnits(ctx, p.ID, "militia", 10)
	assert.ErrorIs(t, err, ErrInsufficientGold)

	_, err = env.queue.TrainUnits(ctx, p.ID, "dragons", 1)
	assert.ErrorIs(t, err, ErrUnitNotTrainable)
}

func TestSpellService_ResearchThenCast(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "wizard")

	// Casting before research fails.
	_, err := env.spells.CastSpell(ctx, p.ID, "prosperity", "")
	assert.ErrorIs(t, err, ErrSpellNotResearched)

	res, err := env.spells.ResearchSpell(ctx, p.ID, "prosperity")
	require.NoError(t, err)

	// One research at a time.
	_, err = env.spells.ResearchSpell(ctx, p.ID, "mana_surge")
	var busy *ResearchInProgressError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, "prosperity", busy.SpellID)

	env.clk.Set(res.CompletesAt.Add(time.Second))
	require.NoError(t, env.spells.CompleteResearchCycle(ctx))

	_, err = env.spells.ResearchSpell(ctx, p.ID, "prosperity")
	assert.ErrorIs(t, err, ErrAlreadyResearched)

	result, err := env.spells.CastSpell(ctx, p.ID, "prosperity", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Message)

	spell, _ := gamedata.SpellByID("prosperity")
	got, err := env.repos.Players.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1000-spell.ManaCost, got.Mana, 1e-6)

	effects, err := env.repos.Effects.ActiveFor(ctx, p.ID, env.clk.Now())
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, model.EffectResourceBuff, effects[0].Kind)
	assert.Equal(t, "gold", effects[0].Resource)

	// Cooldown blocks an immediate recast.
	_, err = env.spells.CastSpell(ctx, p.ID, "prosperity", "")
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.WithinDuration(t, result.ReadyAt, cd.ReadyAt, time.Millisecond)
}

func TestCombatService_AttackTransfersSpoils(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	attacker := env.register(t, "raider")
	defender := env.register(t, "farmer")

	// 200 knights crush 50 militia.
	require.NoError(t, env.repos.Army.AddUnits(ctx, attacker.ID, "knights", 200))

	report, err := env.combat.Attack(ctx, attacker.ID, defender.ID)
	require.NoError(t, err)
	assert.True(t, report.Victory)
	assert.Positive(t, report.GoldStolen)
	assert.Positive(t, report.LandCaptured)

	a, err := env.repos.Players.GetByID(ctx, attacker.ID)
	require.NoError(t, err)
	d, err := env.repos.Players.GetByID(ctx, defender.ID)
	require.NoError(t, err)

	assert.InDelta(t, 5000+report.GoldStolen, a.Gold, 1e-6)
	assert.InDelta(t, 5000-report.GoldStolen, d.Gold, 1e-6)
	assert.Equal(t, int64(50)+report.LandCaptured, a.TotalLand)
	assert.Equal(t, int64(50)-report.LandCaptured, d.TotalLand)
	assert.Equal(t, int64(1), a.Wins)
	assert.Equal(t, int64(1), d.Losses)

	history, err := env.combat.History(ctx, defender.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Report.Victory)

	_, err = env.combat.Attack(ctx, attacker.ID, attacker.ID)
	assert.ErrorIs(t, err, ErrSelfTarget)
}

func TestCombatService_SanctuaryBlocksAttack(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	attacker := env.register(t, "aggressor")
	defender := env.register(t, "protected")

	_, err := env.repos.Effects.Add(ctx, model.Effect{
		PlayerID: defender.ID, Kind: model.EffectImmunity, Multiplier: 1,
		ExpiresAt: env.clk.Now().Add(time.Hour), Source: "sanctuary",
	})
	require.NoError(t, err)

	_, err = env.combat.Attack(ctx, attacker.ID, defender.ID)
	assert.ErrorIs(t, err, ErrTargetImmune)
}

func TestMarketService_CycleFillsListings(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, env.market.RunCycle(ctx))

	listings, err := env.market.Listings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 3, "the cycle fills the board to its cap")
	for _, l := range listings {
		_, ok := gamedata.HeroByID(l.HeroID)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, l.HeroLevel, int64(1))
		assert.LessOrEqual(t, l.HeroLevel, int64(5))
		assert.WithinDuration(t, env.clk.Now().Add(time.Hour), l.ExpiresAt, time.Millisecond)
	}

	// Another cycle adds nothing while the board is full.
	require.NoError(t, env.market.RunCycle(ctx))
	listings, err = env.market.Listings(ctx)
	require.NoError(t, err)
	assert.Len(t, listings, 3)
}

func TestMarketService_SettlementGrantsHero(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	buyer := env.register(t, "collector")
	require.NoError(t, env.repos.Players.UpdateResources(ctx, buyer.ID, 5e6, 1000, 100))

	require.NoError(t, env.market.RunCycle(ctx))
	listings, err := env.market.Listings(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, listings)
	target := listings[0]

	_, err = env.market.PlaceBid(ctx, buyer.ID, target.ID, target.StartingBid)
	require.NoError(t, err)

	env.clk.Advance(2 * time.Hour)
	require.NoError(t, env.market.RunCycle(ctx))

	heroes, err := env.repos.Army.HeroesFor(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, heroes, 1)
	assert.Equal(t, target.HeroID, heroes[0].HeroID)
	assert.Equal(t, target.HeroLevel, heroes[0].Level)

	ht, _ := gamedata.HeroByID(target.HeroID)
	attack, defense, health := gamedata.ScaledHeroStats(ht, target.HeroLevel)
	assert.Equal(t, attack, heroes[0].Attack)
	assert.Equal(t, defense, heroes[0].Defense)
	assert.Equal(t, health, heroes[0].MaxHealth)
}

func TestKingdomService_ExpandLand(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p := env.register(t, "landlord")

	cost := ExpandLandCost(50, 2)
	require.NoError(t, env.repos.Players.UpdateResources(ctx, p.ID, cost+100, 1000, 100))

	require.NoError(t, env.kingdom.ExpandLand(ctx, p.ID, 2))

	got, err := env.repos.Players.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(52), got.Land)
	assert.Equal(t, int64(52), got.TotalLand)
	assert.InDelta(t, 100, got.Gold, 1e-6)

	assert.ErrorIs(t, env.kingdom.ExpandLand(ctx, p.ID, 100), ErrInsufficientGold)
}
