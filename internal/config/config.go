package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// AdminAccount is the account allowed to run admin operations
	// (add/set pools, emission rate, referral commission).
	AdminAccount string
	// EngineAccount is the engine's own custody account, holding staked
	// deposits and the reward buffer.
	EngineAccount string

	// OpsRecipient receives the 5% operations share at settlement.
	OpsRecipient string
	// ReserveRecipient receives the 2% reserve share at settlement.
	ReserveRecipient string
	// FeeRecipient receives deposit-asset exit fees.
	FeeRecipient string

	// RewardAssetID is the identity of the emitted reward asset.
	RewardAssetID string
	// RewardSupplyCap is the reward asset's hard supply cap.
	RewardSupplyCap sdkmath.Int
	// RewardPremine is the supply already issued before emission starts.
	RewardPremine sdkmath.Int
	// RewardPremineAccount receives the premine.
	RewardPremineAccount string

	// RewardPerTick is the genesis emission rate.
	RewardPerTick sdkmath.Int
	// StartHeight is the height emission begins at.
	StartHeight int64
	// RateChangeCooldown is the minimum tick gap between emission rate changes.
	RateChangeCooldown int64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AdminAccount, err = getEnv("FARM_ADMIN_ACCOUNT")
	if err != nil {
		return err
	}

	EngineAccount, err = getEnv("FARM_ENGINE_ACCOUNT")
	if err != nil {
		return err
	}

	OpsRecipient, err = getEnv("FARM_OPS_RECIPIENT")
	if err != nil {
		return err
	}

	ReserveRecipient, err = getEnv("FARM_RESERVE_RECIPIENT")
	if err != nil {
		return err
	}

	FeeRecipient, err = getEnv("FARM_FEE_RECIPIENT")
	if err != nil {
		return err
	}

	RewardAssetID, err = getEnv("FARM_REWARD_ASSET_ID")
	if err != nil {
		return err
	}

	RewardSupplyCap, err = getEnvAsInt("FARM_REWARD_SUPPLY_CAP")
	if err != nil {
		return err
	}

	RewardPremine, err = getEnvAsInt("FARM_REWARD_PREMINE")
	if err != nil {
		return err
	}

	RewardPremineAccount, err = getEnv("FARM_REWARD_PREMINE_ACCOUNT")
	if err != nil {
		return err
	}

	RewardPerTick, err = getEnvAsInt("FARM_REWARD_PER_TICK")
	if err != nil {
		return err
	}

	StartHeight, err = getEnvAsInt64("FARM_START_HEIGHT")
	if err != nil {
		return err
	}

	RateChangeCooldown, err = getEnvAsInt64("FARM_RATE_CHANGE_COOLDOWN")
	if err != nil {
		return err
	}

	log.Debug().
		Str("AdminAccount", AdminAccount).
		Str("RewardAssetID", RewardAssetID).
		Str("RewardPerTick", RewardPerTick.String()).
		Int64("StartHeight", StartHeight).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an arbitrary-precision
// integer amount. Returns error if not set or invalid.
func getEnvAsInt(key string) (sdkmath.Int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok || value.IsNegative() {
		return sdkmath.ZeroInt(), errors.New("environment variable " + key + " must be a non-negative integer, got: " + valueStr)
	}
	return value, nil
}
