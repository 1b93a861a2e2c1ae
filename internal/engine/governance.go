/*

This file contains governance entry points: emission rate changes and
the self-administered rotation of the fee recipient roles.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/feed-farm/engine/internal/types"
)

// SetEmissionRate changes the reward-per-tick rate. Admin only, allowed
// only after the program start and outside the cooldown window. Every
// pool is settled at the old rate first so no elapsed window is
// repriced.
func (e *Engine) SetEmissionRate(caller string, newRate sdkmath.Int, currentHeight int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.sched.ValidateRateChange(currentHeight); err != nil {
		return err
	}
	if err := e.settleAll(currentHeight); err != nil {
		return err
	}
	if err := e.sched.SetRate(newRate, currentHeight); err != nil {
		return err
	}

	e.logger.Info().
		Str("rewardPerTick", newRate.String()).
		Int64("height", currentHeight).
		Msg("Emission rate updated")

	return nil
}

// RoleName identifies one of the self-administered recipient roles.
type RoleName string

const (
	RoleOps     RoleName = "ops"
	RoleReserve RoleName = "reserve"
	RoleFee     RoleName = "fee"
)

// RotateRecipient hands a recipient role to a new account. Each role is
// self-administered: only the account currently holding it may rotate
// it, the admin included has no say.
func (e *Engine) RotateRecipient(caller string, role RoleName, newAccount string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if newAccount == "" {
		return types.ErrInvalidConfiguration.Wrap("recipient account cannot be empty")
	}

	var holder *string
	switch role {
	case RoleOps:
		holder = &e.recipients.Ops
	case RoleReserve:
		holder = &e.recipients.Reserve
	case RoleFee:
		holder = &e.recipients.Fee
	default:
		return types.ErrNotFound.Wrapf("unknown recipient role %q", role)
	}

	if caller != *holder {
		return types.ErrUnauthorized.Wrapf(
			"only the current %s recipient can rotate the %s role", role, role)
	}
	old := *holder
	*holder = newAccount

	e.logger.Info().
		Str("role", string(role)).
		Str("old", old).
		Str("new", newAccount).
		Msg("Recipient role rotated")

	return nil
}
