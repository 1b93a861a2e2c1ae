// ./internal/state/engine_store.go
package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/feed-farm/engine/internal/engine"
	"github.com/feed-farm/engine/internal/types"
)

// SaveEngineState writes the complete engine state in one transaction.
// Called after every mutating operation; the write replaces the stored
// snapshot wholesale so a restart restores the exact entity state.
func SaveEngineState(st engine.State) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	stmtState := `
		INSERT INTO engine_state (
			id, reward_per_tick, start_height, rate_change_cooldown, last_rate_change_height,
			referral_bp, ops_recipient, reserve_recipient, fee_recipient,
			admin_account, engine_account, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			reward_per_tick = EXCLUDED.reward_per_tick,
			start_height = EXCLUDED.start_height,
			rate_change_cooldown = EXCLUDED.rate_change_cooldown,
			last_rate_change_height = EXCLUDED.last_rate_change_height,
			referral_bp = EXCLUDED.referral_bp,
			ops_recipient = EXCLUDED.ops_recipient,
			reserve_recipient = EXCLUDED.reserve_recipient,
			fee_recipient = EXCLUDED.fee_recipient,
			admin_account = EXCLUDED.admin_account,
			engine_account = EXCLUDED.engine_account,
			updated_at = CURRENT_TIMESTAMP;`

	_, err = tx.Exec(stmtState,
		st.Schedule.RewardPerTick.String(),
		st.Schedule.StartHeight,
		st.Schedule.RateChangeCooldown,
		st.Schedule.LastRateChangeHeight,
		st.ReferralBp,
		st.Recipients.Ops,
		st.Recipients.Reserve,
		st.Recipients.Fee,
		st.Admin,
		st.Account,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert engine state: %w", err)
	}

	stmtPool := `
		INSERT INTO pools (
			pool_id, deposit_asset_id, allocation_weight, last_settled_height,
			acc_reward_per_share, exit_fee_bp, total_staked, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (pool_id) DO UPDATE SET
			allocation_weight = EXCLUDED.allocation_weight,
			last_settled_height = EXCLUDED.last_settled_height,
			acc_reward_per_share = EXCLUDED.acc_reward_per_share,
			exit_fee_bp = EXCLUDED.exit_fee_bp,
			total_staked = EXCLUDED.total_staked,
			updated_at = CURRENT_TIMESTAMP;`

	for _, p := range st.Pools {
		_, err = tx.Exec(stmtPool,
			uint64(p.ID), p.DepositAssetID, p.AllocationWeight.String(),
			p.LastSettledHeight, p.AccRewardPerShare.String(),
			p.ExitFeeBp, p.TotalStaked.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert pool %d: %w", p.ID, err)
		}
	}

	stmtPosition := `
		INSERT INTO positions (pool_id, account, staked_amount, reward_debt, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (pool_id, account) DO UPDATE SET
			staked_amount = EXCLUDED.staked_amount,
			reward_debt = EXCLUDED.reward_debt,
			updated_at = CURRENT_TIMESTAMP;`

	for _, pos := range st.Positions {
		_, err = tx.Exec(stmtPosition,
			uint64(pos.PoolID), pos.Account,
			pos.StakedAmount.String(), pos.RewardDebt.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert position (%d, %s): %w", pos.PoolID, pos.Account, err)
		}
	}

	stmtReferral := `
		INSERT INTO referrals (account, referrer)
		VALUES ($1, $2)
		ON CONFLICT (account) DO NOTHING;`

	for _, r := range st.Referrals {
		_, err = tx.Exec(stmtReferral, r.Account, r.Referrer)
		if err != nil {
			return fmt.Errorf("failed to insert referral for %s: %w", r.Account, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit engine state: %w", err)
	}

	log.Debug().
		Int("pools", len(st.Pools)).
		Int("positions", len(st.Positions)).
		Int("referrals", len(st.Referrals)).
		Msg("Saved engine state")
	return nil
}

// LoadEngineState reads the persisted engine state. Returns
// sql.ErrNoRows wrapped if no state has ever been saved.
func LoadEngineState() (*engine.State, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	st := &engine.State{}

	row := DB.QueryRow(`
		SELECT reward_per_tick, start_height, rate_change_cooldown, last_rate_change_height,
		       referral_bp, ops_recipient, reserve_recipient, fee_recipient,
		       admin_account, engine_account
		FROM engine_state WHERE id = 1;`)

	var rewardPerTick string
	err := row.Scan(
		&rewardPerTick,
		&st.Schedule.StartHeight,
		&st.Schedule.RateChangeCooldown,
		&st.Schedule.LastRateChangeHeight,
		&st.ReferralBp,
		&st.Recipients.Ops,
		&st.Recipients.Reserve,
		&st.Recipients.Fee,
		&st.Admin,
		&st.Account,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no persisted engine state: %w", err)
		}
		return nil, fmt.Errorf("failed to scan engine state: %w", err)
	}
	st.Schedule.RewardPerTick, err = parseAmount(rewardPerTick)
	if err != nil {
		return nil, fmt.Errorf("bad reward_per_tick: %w", err)
	}

	st.Pools, err = loadPools()
	if err != nil {
		return nil, err
	}
	st.Positions, err = loadPositions()
	if err != nil {
		return nil, err
	}
	st.Referrals, err = loadReferrals()
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("pools", len(st.Pools)).
		Int("positions", len(st.Positions)).
		Int("referrals", len(st.Referrals)).
		Msg("Loaded engine state")
	return st, nil
}

func loadPools() ([]types.Pool, error) {
	rows, err := DB.Query(`
		SELECT pool_id, deposit_asset_id, allocation_weight, last_settled_height,
		       acc_reward_per_share, exit_fee_bp, total_staked
		FROM pools ORDER BY pool_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer rows.Close()

	var pools []types.Pool
	for rows.Next() {
		var p types.Pool
		var id uint64
		var weight, acc, staked string
		if err := rows.Scan(&id, &p.DepositAssetID, &weight, &p.LastSettledHeight, &acc, &p.ExitFeeBp, &staked); err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		p.ID = types.PoolID(id)
		if p.AllocationWeight, err = parseAmount(weight); err != nil {
			return nil, fmt.Errorf("bad allocation_weight for pool %d: %w", id, err)
		}
		if p.AccRewardPerShare, err = parseAmount(acc); err != nil {
			return nil, fmt.Errorf("bad acc_reward_per_share for pool %d: %w", id, err)
		}
		if p.TotalStaked, err = parseAmount(staked); err != nil {
			return nil, fmt.Errorf("bad total_staked for pool %d: %w", id, err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

func loadPositions() ([]types.Position, error) {
	rows, err := DB.Query(`
		SELECT pool_id, account, staked_amount, reward_debt
		FROM positions ORDER BY pool_id, account;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []types.Position
	for rows.Next() {
		var pos types.Position
		var id uint64
		var staked, debt string
		if err := rows.Scan(&id, &pos.Account, &staked, &debt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.PoolID = types.PoolID(id)
		if pos.StakedAmount, err = parseAmount(staked); err != nil {
			return nil, fmt.Errorf("bad staked_amount for (%d, %s): %w", id, pos.Account, err)
		}
		if pos.RewardDebt, err = parseAmount(debt); err != nil {
			return nil, fmt.Errorf("bad reward_debt for (%d, %s): %w", id, pos.Account, err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func loadReferrals() ([]types.Referral, error) {
	rows, err := DB.Query(`SELECT account, referrer FROM referrals ORDER BY account;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	defer rows.Close()

	var referrals []types.Referral
	for rows.Next() {
		var r types.Referral
		if err := rows.Scan(&r.Account, &r.Referrer); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referrals = append(referrals, r)
	}
	return referrals, rows.Err()
}

// parseAmount converts a NUMERIC column back into an Int.
func parseAmount(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid integer amount %q", s)
	}
	return v, nil
}
