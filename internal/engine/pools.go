/*

This file contains the pool registry and the settlement path: advancing
a pool's per-share accumulator to the current height, splitting the
issued reward 93/5/2 and crediting the shares.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/feed-farm/engine/internal/token"
	"github.com/feed-farm/engine/internal/types"
)

// AddPool registers a new pool for the given deposit-asset ledger.
// Admin only. The deposit asset must not already be registered, and the
// exit fee must respect the ceiling. The pool opens at
// max(currentHeight, startHeight) so pre-start ticks never accrue.
func (e *Engine) AddPool(caller string, ledger token.Ledger, allocationWeight sdkmath.Int, exitFeeBp uint32, currentHeight int64) (types.PoolID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return 0, err
	}
	if ledger == nil {
		return 0, types.ErrInvalidConfiguration.Wrap("deposit ledger cannot be nil")
	}
	assetID := ledger.AssetID()
	if _, exists := e.poolByAsset[assetID]; exists {
		return 0, types.ErrInvalidConfiguration.Wrapf("duplicated pool for deposit asset %s", assetID)
	}
	if exitFeeBp > MaxExitFeeBp {
		return 0, types.ErrInvalidConfiguration.Wrapf(
			"exit fee %d bp exceeds maximum %d bp", exitFeeBp, MaxExitFeeBp)
	}
	if allocationWeight.IsNil() || allocationWeight.IsNegative() {
		return 0, types.ErrInvalidConfiguration.Wrap("allocation weight must be non-negative")
	}

	opensAt := currentHeight
	if start := e.sched.StartHeight(); opensAt < start {
		opensAt = start
	}

	id := types.PoolID(len(e.pools))
	pool := &types.Pool{
		ID:                id,
		DepositAssetID:    assetID,
		AllocationWeight:  allocationWeight,
		LastSettledHeight: opensAt,
		AccRewardPerShare: sdkmath.ZeroInt(),
		ExitFeeBp:         exitFeeBp,
		TotalStaked:       sdkmath.ZeroInt(),
	}
	e.pools = append(e.pools, pool)
	e.poolByAsset[assetID] = id
	e.deposits[id] = ledger

	e.logger.Info().
		Uint64("poolID", uint64(id)).
		Str("asset", assetID).
		Str("weight", allocationWeight.String()).
		Uint32("exitFeeBp", exitFeeBp).
		Int64("opensAt", opensAt).
		Msg("Pool added")

	return id, nil
}

// SetPool updates a pool's allocation weight and exit fee. Admin only.
// All pools are settled first so ticks already elapsed are priced under
// the old weights.
func (e *Engine) SetPool(caller string, id types.PoolID, allocationWeight sdkmath.Int, exitFeeBp uint32, currentHeight int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	pool, err := e.pool(id)
	if err != nil {
		return err
	}
	if exitFeeBp > MaxExitFeeBp {
		return types.ErrInvalidConfiguration.Wrapf(
			"exit fee %d bp exceeds maximum %d bp", exitFeeBp, MaxExitFeeBp)
	}
	if allocationWeight.IsNil() || allocationWeight.IsNegative() {
		return types.ErrInvalidConfiguration.Wrap("allocation weight must be non-negative")
	}

	if err := e.settleAll(currentHeight); err != nil {
		return err
	}

	pool.AllocationWeight = allocationWeight
	pool.ExitFeeBp = exitFeeBp

	e.logger.Info().
		Uint64("poolID", uint64(id)).
		Str("weight", allocationWeight.String()).
		Uint32("exitFeeBp", exitFeeBp).
		Msg("Pool updated")

	return nil
}

// PoolCount returns the number of registered pools.
func (e *Engine) PoolCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pools)
}

// PoolSnapshot returns a read-only view of one pool.
func (e *Engine) PoolSnapshot(id types.PoolID) (types.PoolSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, err := e.pool(id)
	if err != nil {
		return types.PoolSnapshot{}, err
	}
	return pool.Snapshot(), nil
}

// PoolSnapshots returns read-only views of every pool.
func (e *Engine) PoolSnapshots() []types.PoolSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.PoolSnapshot, 0, len(e.pools))
	for _, p := range e.pools {
		out = append(out, p.Snapshot())
	}
	return out
}

// FindPoolByDepositAsset returns the pool id registered for an asset.
func (e *Engine) FindPoolByDepositAsset(assetID string) (types.PoolID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.poolByAsset[assetID]
	if !ok {
		return 0, types.ErrNotFound.Wrapf("deposit asset %s is not registered in any pool", assetID)
	}
	return id, nil
}

// SettlePool advances one pool's accumulator to the current height.
func (e *Engine) SettlePool(id types.PoolID, currentHeight int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, err := e.pool(id)
	if err != nil {
		return err
	}
	return e.settle(pool, currentHeight)
}

// SettleAllPools advances every pool's accumulator to the current
// height. Administrative mutations that reprice future ticks call this
// first so no already-elapsed window is repriced.
func (e *Engine) SettleAllPools(currentHeight int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settleAll(currentHeight)
}

func (e *Engine) pool(id types.PoolID) (*types.Pool, error) {
	if int(id) >= len(e.pools) {
		return nil, types.ErrNotFound.Wrapf("pool %d does not exist", id)
	}
	return e.pools[id], nil
}

func (e *Engine) settleAll(currentHeight int64) error {
	for _, pool := range e.pools {
		if err := e.settle(pool, currentHeight); err != nil {
			return err
		}
	}
	return nil
}

// settle brings one pool's accumulator current. Idempotent: a second
// call at the same height is a no-op. Unstaked windows and windows after
// supply exhaustion advance LastSettledHeight without accruing.
func (e *Engine) settle(pool *types.Pool, currentHeight int64) error {
	if currentHeight <= pool.LastSettledHeight {
		return nil
	}

	ticks := e.sched.TicksElapsed(pool.LastSettledHeight, currentHeight)
	if ticks == 0 || pool.TotalStaked.IsZero() {
		pool.LastSettledHeight = currentHeight
		return nil
	}

	nominal := e.sched.NominalReward(ticks, pool.AllocationWeight, e.totalAllocationWeight())
	issued, err := e.minter.Issue(e.account, nominal)
	if err != nil {
		return err
	}

	if issued.IsPositive() {
		// Fixed 93/5/2 split of what could actually be created. When the
		// cap truncates issuance the three shares scale down together,
		// reproducing fractional-tick truncation exactly. Floor dust
		// stays in the engine buffer.
		poolShare := issued.MulRaw(poolSharePct).QuoRaw(100)
		opsShare := issued.MulRaw(opsSharePct).QuoRaw(100)
		reserveShare := issued.MulRaw(reserveSharePct).QuoRaw(100)

		if err := e.reward.Transfer(e.account, e.recipients.Ops, opsShare); err != nil {
			return types.ErrIntegrationInvariant.Wrapf("operations share transfer failed: %s", err)
		}
		if err := e.reward.Transfer(e.account, e.recipients.Reserve, reserveShare); err != nil {
			return types.ErrIntegrationInvariant.Wrapf("reserve share transfer failed: %s", err)
		}

		pool.AccRewardPerShare = pool.AccRewardPerShare.Add(
			poolShare.Mul(types.AccRewardScale).Quo(pool.TotalStaked))

		e.logger.Debug().
			Uint64("poolID", uint64(pool.ID)).
			Int64("height", currentHeight).
			Int64("ticks", ticks).
			Str("issued", issued.String()).
			Str("poolShare", poolShare.String()).
			Msg("Pool settled")
	}

	pool.LastSettledHeight = currentHeight
	return nil
}

// projectedAccumulator returns the accumulator value a settle at the
// given height would commit, without mutating anything. PendingReward
// uses this to stay bit-exact with the settlement path.
func (e *Engine) projectedAccumulator(pool *types.Pool, currentHeight int64) sdkmath.Int {
	acc := pool.AccRewardPerShare
	if currentHeight <= pool.LastSettledHeight || pool.TotalStaked.IsZero() {
		return acc
	}
	ticks := e.sched.TicksElapsed(pool.LastSettledHeight, currentHeight)
	if ticks == 0 {
		return acc
	}
	nominal := e.sched.NominalReward(ticks, pool.AllocationWeight, e.totalAllocationWeight())
	issued := sdkmath.MinInt(nominal, e.minter.Room())
	if !issued.IsPositive() {
		return acc
	}
	poolShare := issued.MulRaw(poolSharePct).QuoRaw(100)
	return acc.Add(poolShare.Mul(types.AccRewardScale).Quo(pool.TotalStaked))
}
