/*

This file contains the Engine, the central reward accrual and
distribution component. It owns the pool registry, per-position
bookkeeping, the referral ledger and the fee recipient roles, and
drives the emission scheduler and capped minter.

Every public entry point is serialized under one mutex: the engine is a
single-writer ledger, and "concurrency" is the ordering of externally
height-stamped calls, which the engine treats as ground truth.

*/

package engine

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/feed-farm/engine/internal/emission"
	"github.com/feed-farm/engine/internal/logger"
	"github.com/feed-farm/engine/internal/token"
	"github.com/feed-farm/engine/internal/types"
)

const (
	// Settlement share split, in percent. Protocol constants, not
	// per-pool configuration.
	poolSharePct    = 93
	opsSharePct     = 5
	reserveSharePct = 2

	bpDenom = 10000

	// MaxExitFeeBp is the hard ceiling on per-pool exit fees (10%).
	MaxExitFeeBp = uint32(1000)
	// MaxReferralBp is the hard ceiling on the referral commission (20%).
	MaxReferralBp = uint32(2000)
	// DefaultReferralBp is the commission applied until governance
	// changes it (2%).
	DefaultReferralBp = uint32(200)
)

// Engine is the reward accrual ledger.
type Engine struct {
	mu     sync.Mutex
	logger zerolog.Logger

	admin      string
	account    string // custody account holding staked deposits and the reward buffer
	recipients types.Recipients
	referralBp uint32

	sched  *emission.Scheduler
	reward token.RewardLedger
	minter *token.CappedMinter

	pools       []*types.Pool
	poolByAsset map[string]types.PoolID
	deposits    map[types.PoolID]token.Ledger
	positions   map[types.PoolID]map[string]*types.Position
	referrals   map[string]string
}

// Config holds the dependencies and genesis parameters for a new Engine.
type Config struct {
	Admin   string
	Account string // the engine's own custody account

	OpsRecipient     string
	ReserveRecipient string
	FeeRecipient     string

	RewardLedger token.RewardLedger

	RewardPerTick      sdkmath.Int
	StartHeight        int64
	RateChangeCooldown int64
}

// NewEngine creates an engine with dependency injection.
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	sched, err := emission.NewScheduler(cfg.RewardPerTick, cfg.StartHeight, cfg.RateChangeCooldown)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		logger:  logger.GetForComponent("engine"),
		admin:   cfg.Admin,
		account: cfg.Account,
		recipients: types.Recipients{
			Ops:     cfg.OpsRecipient,
			Reserve: cfg.ReserveRecipient,
			Fee:     cfg.FeeRecipient,
		},
		referralBp:  DefaultReferralBp,
		sched:       sched,
		reward:      cfg.RewardLedger,
		minter:      token.NewCappedMinter(cfg.RewardLedger),
		poolByAsset: make(map[string]types.PoolID),
		deposits:    make(map[types.PoolID]token.Ledger),
		positions:   make(map[types.PoolID]map[string]*types.Position),
		referrals:   make(map[string]string),
	}

	e.logger.Info().
		Str("rewardAsset", cfg.RewardLedger.AssetID()).
		Str("rewardPerTick", cfg.RewardPerTick.String()).
		Int64("startHeight", cfg.StartHeight).
		Int64("cooldown", cfg.RateChangeCooldown).
		Msg("Engine created")

	return e, nil
}

func validateConfig(cfg Config) error {
	if cfg.Admin == "" {
		return fmt.Errorf("admin account cannot be empty")
	}
	if cfg.Account == "" {
		return fmt.Errorf("engine custody account cannot be empty")
	}
	if cfg.OpsRecipient == "" || cfg.ReserveRecipient == "" || cfg.FeeRecipient == "" {
		return fmt.Errorf("all fee recipient accounts must be set")
	}
	if cfg.RewardLedger == nil {
		return fmt.Errorf("reward ledger cannot be nil")
	}
	if cfg.RewardPerTick.IsNil() {
		return fmt.Errorf("reward per tick cannot be nil")
	}
	return nil
}

// Account returns the engine's custody account.
func (e *Engine) Account() string {
	return e.account
}

// Recipients returns the current fee recipient accounts.
func (e *Engine) Recipients() types.Recipients {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recipients
}

// ReferralBasisPoints returns the current referral commission rate.
func (e *Engine) ReferralBasisPoints() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.referralBp
}

// Schedule returns the current emission schedule state.
func (e *Engine) Schedule() types.ScheduleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.State()
}

// RewardSupply reports the reward asset's issued supply and cap.
func (e *Engine) RewardSupply() (issued, cap sdkmath.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reward.TotalIssued(), e.reward.Cap()
}

// RewardBuffer returns the engine's own reward-asset balance, the pool
// from which harvests are paid.
func (e *Engine) RewardBuffer() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reward.BalanceOf(e.account)
}

func (e *Engine) requireAdmin(caller string) error {
	if caller != e.admin {
		return types.ErrUnauthorized.Wrapf("account %s is not the engine admin", caller)
	}
	return nil
}

// totalAllocationWeight sums allocation weights over all pools.
func (e *Engine) totalAllocationWeight() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, p := range e.pools {
		total = total.Add(p.AllocationWeight)
	}
	return total
}

// position returns the stored position, creating it lazily on first use.
// Positions persist at zero stake after full withdrawal.
func (e *Engine) position(poolID types.PoolID, account string) *types.Position {
	byAccount, ok := e.positions[poolID]
	if !ok {
		byAccount = make(map[string]*types.Position)
		e.positions[poolID] = byAccount
	}
	pos, ok := byAccount[account]
	if !ok {
		pos = &types.Position{
			PoolID:       poolID,
			Account:      account,
			StakedAmount: sdkmath.ZeroInt(),
			RewardDebt:   sdkmath.ZeroInt(),
		}
		byAccount[account] = pos
	}
	return pos
}
