/*

This file contains the emission scheduler. It owns the reward-per-tick
rate, the program start height and the rate-change cooldown, and answers
how many reward units are nominally due for a settlement window.

*/

package emission

import (
	sdkmath "cosmossdk.io/math"

	"github.com/feed-farm/engine/internal/types"
)

// Scheduler holds the global emission schedule.
type Scheduler struct {
	rewardPerTick        sdkmath.Int
	startHeight          int64
	rateChangeCooldown   int64
	lastRateChangeHeight int64
}

// NewScheduler creates a scheduler. The cooldown clock starts at the
// program start height, so the first rate change also waits out one
// full cooldown from start.
func NewScheduler(rewardPerTick sdkmath.Int, startHeight, rateChangeCooldown int64) (*Scheduler, error) {
	if rewardPerTick.IsNil() || rewardPerTick.IsNegative() {
		return nil, types.ErrInvalidConfiguration.Wrap("reward per tick must be non-negative")
	}
	if rateChangeCooldown < 0 {
		return nil, types.ErrInvalidConfiguration.Wrap("rate change cooldown must be non-negative")
	}
	return &Scheduler{
		rewardPerTick:        rewardPerTick,
		startHeight:          startHeight,
		rateChangeCooldown:   rateChangeCooldown,
		lastRateChangeHeight: startHeight,
	}, nil
}

// Restore rebuilds a scheduler from persisted state.
func Restore(s types.ScheduleState) *Scheduler {
	return &Scheduler{
		rewardPerTick:        s.RewardPerTick,
		startHeight:          s.StartHeight,
		rateChangeCooldown:   s.RateChangeCooldown,
		lastRateChangeHeight: s.LastRateChangeHeight,
	}
}

func (s *Scheduler) RewardPerTick() sdkmath.Int { return s.rewardPerTick }
func (s *Scheduler) StartHeight() int64         { return s.startHeight }

// State returns the schedule as a persistable value.
func (s *Scheduler) State() types.ScheduleState {
	return types.ScheduleState{
		RewardPerTick:        s.rewardPerTick,
		StartHeight:          s.startHeight,
		RateChangeCooldown:   s.rateChangeCooldown,
		LastRateChangeHeight: s.lastRateChangeHeight,
	}
}

// TicksElapsed returns the number of emission ticks between a pool's
// last settled height and the current height. Ticks before the program
// start contribute zero.
func (s *Scheduler) TicksElapsed(lastSettled, currentHeight int64) int64 {
	from := lastSettled
	if from < s.startHeight {
		from = s.startHeight
	}
	if currentHeight <= from {
		return 0
	}
	return currentHeight - from
}

// NominalReward returns ticks * rewardPerTick * weight / totalWeight,
// floored. Precision lost here is intentional; the per-share accumulator
// carries the scaled remainder instead.
func (s *Scheduler) NominalReward(ticks int64, weight, totalWeight sdkmath.Int) sdkmath.Int {
	if ticks <= 0 || !weight.IsPositive() || !totalWeight.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return s.rewardPerTick.MulRaw(ticks).Mul(weight).Quo(totalWeight)
}

// ValidateRateChange checks whether a new rate may be applied at the
// given height. The rate cannot change before the program starts, nor
// again inside the cooldown window after the previous change.
func (s *Scheduler) ValidateRateChange(currentHeight int64) error {
	if currentHeight < s.startHeight {
		return types.ErrPreconditionNotMet.Wrapf(
			"emission rate can only change after start height %d (current %d)", s.startHeight, currentHeight)
	}
	if currentHeight-s.lastRateChangeHeight < s.rateChangeCooldown {
		return types.ErrPreconditionNotMet.Wrapf(
			"emission rate changed at height %d, cooldown of %d ticks still running",
			s.lastRateChangeHeight, s.rateChangeCooldown)
	}
	return nil
}

// SetRate applies a new reward-per-tick rate. Callers must have settled
// every pool at the old rate first; ValidateRateChange gates eligibility.
func (s *Scheduler) SetRate(newRate sdkmath.Int, currentHeight int64) error {
	if newRate.IsNil() || newRate.IsNegative() {
		return types.ErrInvalidConfiguration.Wrap("reward per tick must be non-negative")
	}
	if err := s.ValidateRateChange(currentHeight); err != nil {
		return err
	}
	s.rewardPerTick = newRate
	s.lastRateChangeHeight = currentHeight
	return nil
}
