/*

This file contains the position ledger: deposit, withdraw, emergency
withdraw and harvest settlement on top of the pool distributor.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/feed-farm/engine/internal/types"
)

// Deposit locks amount of the pool's deposit asset for the account.
// A zero amount is a valid call used purely to harvest. If the caller
// has no referral binding yet and referrerCandidate is a valid distinct
// account, the binding is written permanently before the deposit.
func (e *Engine) Deposit(account string, poolID types.PoolID, amount sdkmath.Int, referrerCandidate string, currentHeight int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInsufficientBalance.Wrapf("deposit amount %s is negative", amount)
	}
	ledger := e.deposits[poolID]
	if amount.IsPositive() && ledger.BalanceOf(account).LT(amount) {
		return types.ErrInsufficientBalance.Wrapf(
			"account %s holds %s of %s, deposit needs %s",
			account, ledger.BalanceOf(account), pool.DepositAssetID, amount)
	}

	if err := e.settle(pool, currentHeight); err != nil {
		return err
	}

	e.bindReferrer(account, referrerCandidate)

	pos := e.position(poolID, account)
	if err := e.harvest(pool, pos); err != nil {
		return err
	}

	if amount.IsPositive() {
		if err := ledger.Transfer(account, e.account, amount); err != nil {
			return err
		}
		pos.StakedAmount = pos.StakedAmount.Add(amount)
		pool.TotalStaked = pool.TotalStaked.Add(amount)
	}
	pos.RewardDebt = pos.StakedAmount.Mul(pool.AccRewardPerShare)

	e.logger.Info().
		Str("account", account).
		Uint64("poolID", uint64(poolID)).
		Str("amount", amount.String()).
		Int64("height", currentHeight).
		Msg("Deposit settled")

	return nil
}

// Withdraw unlocks amount of the deposit asset, harvesting pending
// reward first and charging the pool's exit fee on the way out.
func (e *Engine) Withdraw(account string, poolID types.PoolID, amount sdkmath.Int, currentHeight int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInsufficientBalance.Wrapf("withdraw amount %s is negative", amount)
	}
	pos := e.position(poolID, account)
	if amount.GT(pos.StakedAmount) {
		return types.ErrInsufficientBalance.Wrapf(
			"withdraw amount %s is larger than staked balance %s", amount, pos.StakedAmount)
	}

	if err := e.settle(pool, currentHeight); err != nil {
		return err
	}
	if err := e.harvest(pool, pos); err != nil {
		return err
	}

	if amount.IsPositive() {
		// Exit fee floors; the remainder returns to the caller.
		exitFee := amount.MulRaw(int64(pool.ExitFeeBp)).QuoRaw(bpDenom)
		ledger := e.deposits[poolID]
		if exitFee.IsPositive() {
			if err := ledger.Transfer(e.account, e.recipients.Fee, exitFee); err != nil {
				return types.ErrIntegrationInvariant.Wrapf("exit fee transfer failed: %s", err)
			}
		}
		if err := ledger.Transfer(e.account, account, amount.Sub(exitFee)); err != nil {
			return types.ErrIntegrationInvariant.Wrapf("withdraw transfer failed: %s", err)
		}
		pos.StakedAmount = pos.StakedAmount.Sub(amount)
		pool.TotalStaked = pool.TotalStaked.Sub(amount)
	}
	pos.RewardDebt = pos.StakedAmount.Mul(pool.AccRewardPerShare)

	e.logger.Info().
		Str("account", account).
		Uint64("poolID", uint64(poolID)).
		Str("amount", amount.String()).
		Int64("height", currentHeight).
		Msg("Withdraw settled")

	return nil
}

// EmergencyWithdraw returns the full staked amount with no exit fee,
// forfeiting all unclaimed reward. It bypasses settlement entirely so it
// can never fail on reward-asset liquidity.
func (e *Engine) EmergencyWithdraw(account string, poolID types.PoolID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.pool(poolID)
	if err != nil {
		return err
	}
	pos := e.position(poolID, account)
	staked := pos.StakedAmount
	if staked.IsPositive() {
		if err := e.deposits[poolID].Transfer(e.account, account, staked); err != nil {
			return types.ErrIntegrationInvariant.Wrapf("emergency withdraw transfer failed: %s", err)
		}
		pool.TotalStaked = pool.TotalStaked.Sub(staked)
	}
	pos.StakedAmount = sdkmath.ZeroInt()
	pos.RewardDebt = sdkmath.ZeroInt()

	e.logger.Warn().
		Str("account", account).
		Uint64("poolID", uint64(poolID)).
		Str("amount", staked.String()).
		Msg("Emergency withdraw, rewards forfeited")

	return nil
}

// PendingReward recomputes, without mutating state, the reward a
// settle-then-harvest at the queried height would pay out before the
// referral split. Bit-exact with the settlement path.
func (e *Engine) PendingReward(poolID types.PoolID, account string, currentHeight int64) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.pool(poolID)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	byAccount := e.positions[poolID]
	pos, ok := byAccount[account]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	acc := e.projectedAccumulator(pool, currentHeight)
	return pendingOf(pos, acc), nil
}

// PositionSnapshot returns a read-only view of one position.
func (e *Engine) PositionSnapshot(poolID types.PoolID, account string) (types.PositionSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.pool(poolID); err != nil {
		return types.PositionSnapshot{}, err
	}
	pos, ok := e.positions[poolID][account]
	if !ok {
		return types.PositionSnapshot{
			PoolID: poolID, Account: account, StakedAmount: sdkmath.ZeroInt().String(),
		}, nil
	}
	return pos.Snapshot(), nil
}

// pendingOf computes a position's unreconciled reward against an
// accumulator value. Both terms floor separately; this is the documented
// reward-debt arithmetic and the settlement invariant depends on it.
func pendingOf(pos *types.Position, acc sdkmath.Int) sdkmath.Int {
	earned := pos.StakedAmount.Mul(acc).Quo(types.AccRewardScale)
	debt := pos.RewardDebt.Quo(types.AccRewardScale)
	return earned.Sub(debt)
}

// harvest pays a position's pending reward out of the engine's reward
// buffer, splitting off the referral commission when a referrer is
// bound. The caller must have settled the pool at the current height
// and must recompute the position's reward debt afterwards.
func (e *Engine) harvest(pool *types.Pool, pos *types.Position) error {
	pending := pendingOf(pos, pool.AccRewardPerShare)
	if !pending.IsPositive() {
		return nil
	}

	// The distributor's bookkeeping guarantees the buffer covers every
	// outstanding pending reward; a shortfall is a bug, not a condition
	// to paper over with a partial payout.
	if e.reward.BalanceOf(e.account).LT(pending) {
		return types.ErrIntegrationInvariant.Wrapf(
			"reward buffer %s cannot fund harvest of %s for %s",
			e.reward.BalanceOf(e.account), pending, pos.Account)
	}

	payout := pending
	if referrer, ok := e.referrals[pos.Account]; ok && e.referralBp > 0 {
		commission := pending.MulRaw(int64(e.referralBp)).QuoRaw(bpDenom)
		if commission.IsPositive() {
			if err := e.reward.Transfer(e.account, referrer, commission); err != nil {
				return types.ErrIntegrationInvariant.Wrapf("referral commission transfer failed: %s", err)
			}
			payout = pending.Sub(commission)
		}
	}
	if err := e.reward.Transfer(e.account, pos.Account, payout); err != nil {
		return types.ErrIntegrationInvariant.Wrapf("harvest transfer failed: %s", err)
	}

	e.logger.Debug().
		Str("account", pos.Account).
		Uint64("poolID", uint64(pool.ID)).
		Str("pending", pending.String()).
		Msg("Harvest paid")

	return nil
}
