package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"
	"sync"

	"github.com/feed-farm/engine/internal/config"
	"github.com/feed-farm/engine/internal/engine"
	"github.com/feed-farm/engine/internal/logger"
	"github.com/feed-farm/engine/internal/state"
	"github.com/feed-farm/engine/internal/token"
	"github.com/feed-farm/engine/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the farm reward engine daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Farm Reward Engine Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Token Ledger Initialization ---
	rewardBook := token.NewCappedBook(
		config.RewardAssetID,
		config.RewardSupplyCap,
		config.RewardPremineAccount,
		config.RewardPremine,
	)
	log.Info().
		Str("asset", config.RewardAssetID).
		Str("cap", config.RewardSupplyCap.String()).
		Str("premine", config.RewardPremine.String()).
		Msg("Reward ledger initialized")

	registry := newLedgerRegistry()

	// --- 3. Engine Initialization (restore or bootstrap) ---
	var farmEngine *engine.Engine

	persisted, err := state.LoadEngineState()
	switch {
	case err == nil:
		depositLedgers := make(map[string]token.Ledger, len(persisted.Pools))
		for i := range persisted.Pools {
			asset := persisted.Pools[i].DepositAssetID
			ledger, lerr := registry.Resolve(asset)
			if lerr != nil {
				log.Fatal().Err(lerr).Str("asset", asset).Msg("Failed to open deposit ledger")
			}
			depositLedgers[asset] = ledger
		}
		farmEngine, err = engine.Restore(*persisted, rewardBook, depositLedgers)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to restore engine from persisted state")
		}
		log.Info().Int("pools", len(persisted.Pools)).Msg("Engine restored from database")

	case errors.Is(err, sql.ErrNoRows):
		farmEngine, err = engine.NewEngine(engine.Config{
			Admin:              config.AdminAccount,
			Account:            config.EngineAccount,
			OpsRecipient:       config.OpsRecipient,
			ReserveRecipient:   config.ReserveRecipient,
			FeeRecipient:       config.FeeRecipient,
			RewardLedger:       rewardBook,
			RewardPerTick:      config.RewardPerTick,
			StartHeight:        config.StartHeight,
			RateChangeCooldown: config.RateChangeCooldown,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create engine instance")
		}
		if err := state.SaveEngineState(farmEngine.Export()); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial engine state")
		}
		log.Info().
			Int64("startHeight", config.StartHeight).
			Str("rewardPerTick", config.RewardPerTick.String()).
			Msg("Engine bootstrapped from configuration")

	default:
		log.Fatal().Err(err).Msg("Failed to load persisted engine state")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, farmEngine, state.SaveEngineState, registry.Resolve)
	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting farm engine API")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// ledgerRegistry hands out one in-memory deposit book per asset. Real
// deployments swap this for a client of the external token ledger.
type ledgerRegistry struct {
	mu    sync.Mutex
	books map[string]*token.Book
}

func newLedgerRegistry() *ledgerRegistry {
	return &ledgerRegistry{books: make(map[string]*token.Book)}
}

func (r *ledgerRegistry) Resolve(assetID string) (token.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if book, ok := r.books[assetID]; ok {
		return book, nil
	}
	book := token.NewBook(assetID, nil)
	r.books[assetID] = book
	return book, nil
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
