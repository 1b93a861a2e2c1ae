/*

This file contains the types for per-account stake positions and the
referral binding record.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Position is one account's stake in one pool. RewardDebt is kept fully
// scaled (stake times the per-share accumulator) so pending reward math
// stays exact across arbitrarily long settlement gaps.
type Position struct {
	PoolID       PoolID      `json:"pool_id"`
	Account      string      `json:"account"`
	StakedAmount sdkmath.Int `json:"staked_amount"`
	RewardDebt   sdkmath.Int `json:"reward_debt"` // scaled by AccRewardScale
}

// PositionSnapshot is the read-only view served to API consumers.
type PositionSnapshot struct {
	PoolID       PoolID `json:"pool_id"`
	Account      string `json:"account"`
	StakedAmount string `json:"staked_amount"`
}

func (p Position) Snapshot() PositionSnapshot {
	return PositionSnapshot{
		PoolID:       p.PoolID,
		Account:      p.Account,
		StakedAmount: p.StakedAmount.String(),
	}
}

// Referral binds an account to the referrer it was recruited by.
// A binding is written at most once and never mutated.
type Referral struct {
	Account  string `json:"account"`
	Referrer string `json:"referrer"`
}
