/*

This file contains the referral ledger: the one-time referrer binding
and the governance control over the commission rate. The commission
split itself happens in harvest.

*/

package engine

import (
	"github.com/feed-farm/engine/internal/types"
)

// bindReferrer writes the referral binding if the account has none yet
// and the candidate is a valid distinct account. Invalid candidates are
// ignored rather than rejected: a deposit with a bad referrer still
// deposits.
func (e *Engine) bindReferrer(account, candidate string) {
	if candidate == "" || candidate == account {
		return
	}
	if _, bound := e.referrals[account]; bound {
		return
	}
	e.referrals[account] = candidate
	e.logger.Info().
		Str("account", account).
		Str("referrer", candidate).
		Msg("Referral bound")
}

// GetReferral returns the referrer bound to an account, or an empty
// string if none is bound.
func (e *Engine) GetReferral(account string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.referrals[account]
}

// SetReferralBasisPoints updates the referral commission rate. Admin
// only. Values above the ceiling and no-op updates are rejected; the
// latter signals a configuration mistake explicitly.
func (e *Engine) SetReferralBasisPoints(caller string, newBp uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if newBp > MaxReferralBp {
		return types.ErrInvalidConfiguration.Wrapf(
			"referral commission %d bp exceeds maximum %d bp", newBp, MaxReferralBp)
	}
	if newBp == e.referralBp {
		return types.ErrInvalidConfiguration.Wrapf("referral commission is already %d bp", newBp)
	}
	old := e.referralBp
	e.referralBp = newBp

	e.logger.Info().
		Uint32("oldBp", old).
		Uint32("newBp", newBp).
		Msg("Referral commission updated")

	return nil
}
