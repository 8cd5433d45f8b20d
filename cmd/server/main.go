// Package main is the entry point for the kingdom simulation server.
package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/api"
	"kingdom-engine/internal/config"
	"kingdom-engine/internal/engine"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/db"
	"kingdom-engine/internal/pkg/lock"
	"kingdom-engine/internal/repository"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := &engine.Repos{
		Players:   repository.NewPlayerRepository(dbPool),
		Army:      repository.NewArmyRepository(dbPool),
		Queue:     repository.NewQueueRepository(dbPool),
		Spells:    repository.NewSpellRepository(dbPool),
		Effects:   repository.NewEffectRepository(dbPool),
		Market:    repository.NewMarketRepository(dbPool),
		Messages:  repository.NewMessageRepository(dbPool),
		CombatLog: repository.NewCombatLogRepository(dbPool),
	}

	// Initialize shared engine plumbing
	playerLock := lock.NewPlayerLock()
	clk := clock.New()
	sessions := engine.NewSessions()
	hub := notify.NewHub(sessions)

	// Initialize services
	tickService := engine.NewTickService(repos, playerLock, clk, hub, sessions)
	queueService := engine.NewQueueService(repos, playerLock, clk, hub)
	spellService := engine.NewSpellService(repos, playerLock, clk, hub)
	combatService := engine.NewCombatService(repos, playerLock, clk, hub)
	kingdomService := engine.NewKingdomService(repos, playerLock, clk, hub)
	marketService := engine.NewMarketService(repos, playerLock, clk, hub, cfg.Market,
		rand.New(rand.NewSource(time.Now().UnixNano())))

	// Register simulation cycles
	scheduler := engine.NewScheduler()
	scheduler.Add("tick", cfg.Engine.TickInterval, tickService.RunCycle)
	scheduler.Add("queues", cfg.Engine.QueueInterval, func(ctx context.Context) error {
		if err := queueService.RunCycle(ctx); err != nil {
			return err
		}
		return spellService.CompleteResearchCycle(ctx)
	})
	scheduler.Add("effects", cfg.Engine.EffectSweepInterval, tickService.SweepEffectsCycle)
	scheduler.Add("market", cfg.Engine.MarketInterval, marketService.RunCycle)
	scheduler.Start(ctx)

	// Build the HTTP surface: JSON API plus the websocket hub
	mux := http.NewServeMux()
	apiServer := api.NewServer(kingdomService, queueService, spellService, combatService, marketService)
	apiServer.Register(mux)
	mux.Handle("GET /ws", hub)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbPool.HealthCheck(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown: stop cycles first, then drain the HTTP server
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}
