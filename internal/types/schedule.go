package types

import (
	sdkmath "cosmossdk.io/math"
)

// ScheduleState is the global emission schedule as persisted and served.
type ScheduleState struct {
	RewardPerTick        sdkmath.Int `json:"reward_per_tick"`
	StartHeight          int64       `json:"start_height"`
	RateChangeCooldown   int64       `json:"rate_change_cooldown"`
	LastRateChangeHeight int64       `json:"last_rate_change_height"`
}

// Recipients holds the three self-administered fee recipient accounts.
// Each field may only be rotated by the account currently holding it.
type Recipients struct {
	Ops     string `json:"ops"`     // receives the 5% operations share
	Reserve string `json:"reserve"` // receives the 2% reserve share
	Fee     string `json:"fee"`     // receives deposit-asset exit fees
}
