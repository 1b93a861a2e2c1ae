/*

This is a custom type for pools which contains all the state needed for
reward accrual bookkeeping on a single deposit asset.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// AccRewardScale is the fixed-point scale factor for the per-share
// accumulator. Per-share amounts are stored multiplied by this value so
// integer division against small stakes does not destroy precision.
var AccRewardScale = sdkmath.NewInt(1_000_000_000_000) // 1e12

// Pool is the bookkeeping record for one accepted deposit asset.
type Pool struct {
	ID                PoolID      `json:"id"`
	DepositAssetID    string      `json:"deposit_asset_id"`  // unique across pools
	AllocationWeight  sdkmath.Int `json:"allocation_weight"` // share of the global emission rate
	LastSettledHeight int64       `json:"last_settled_height"`
	AccRewardPerShare sdkmath.Int `json:"acc_reward_per_share"` // scaled by AccRewardScale, never decreases
	ExitFeeBp         uint32      `json:"exit_fee_bp"`          // basis points charged on withdraw
	TotalStaked       sdkmath.Int `json:"total_staked"`
}

// PoolSnapshot is the read-only view served to API consumers.
type PoolSnapshot struct {
	ID                PoolID `json:"id"`
	DepositAssetID    string `json:"deposit_asset_id"`
	AllocationWeight  string `json:"allocation_weight"`
	LastSettledHeight int64  `json:"last_settled_height"`
	AccRewardPerShare string `json:"acc_reward_per_share"`
	ExitFeeBp         uint32 `json:"exit_fee_bp"`
	TotalStaked       string `json:"total_staked"`
}

// Snapshot renders the pool with amounts as decimal strings.
func (p Pool) Snapshot() PoolSnapshot {
	return PoolSnapshot{
		ID:                p.ID,
		DepositAssetID:    p.DepositAssetID,
		AllocationWeight:  p.AllocationWeight.String(),
		LastSettledHeight: p.LastSettledHeight,
		AccRewardPerShare: p.AccRewardPerShare.String(),
		ExitFeeBp:         p.ExitFeeBp,
		TotalStaked:       p.TotalStaked.String(),
	}
}
