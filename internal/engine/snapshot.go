/*

This file contains export/restore of the engine's durable entity state.
The state package persists the exported value; token ledger balances
belong to the external token ledgers and are not part of it.

*/

package engine

import (
	"fmt"

	"github.com/feed-farm/engine/internal/emission"
	"github.com/feed-farm/engine/internal/token"
	"github.com/feed-farm/engine/internal/types"
)

// State is the complete durable state of the engine.
type State struct {
	Schedule   types.ScheduleState
	Recipients types.Recipients
	ReferralBp uint32
	Admin      string
	Account    string
	Pools      []types.Pool
	Positions  []types.Position
	Referrals  []types.Referral
}

// Export copies the engine's durable state for persistence.
func (e *Engine) Export() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Schedule:   e.sched.State(),
		Recipients: e.recipients,
		ReferralBp: e.referralBp,
		Admin:      e.admin,
		Account:    e.account,
	}
	for _, p := range e.pools {
		st.Pools = append(st.Pools, *p)
	}
	for _, byAccount := range e.positions {
		for _, pos := range byAccount {
			st.Positions = append(st.Positions, *pos)
		}
	}
	for account, referrer := range e.referrals {
		st.Referrals = append(st.Referrals, types.Referral{Account: account, Referrer: referrer})
	}
	return st
}

// Restore rebuilds an engine from persisted state. Deposit ledgers are
// rebound by asset id; every persisted pool must find its ledger.
func Restore(st State, rewardLedger token.RewardLedger, depositLedgers map[string]token.Ledger) (*Engine, error) {
	cfg := Config{
		Admin:              st.Admin,
		Account:            st.Account,
		OpsRecipient:       st.Recipients.Ops,
		ReserveRecipient:   st.Recipients.Reserve,
		FeeRecipient:       st.Recipients.Fee,
		RewardLedger:       rewardLedger,
		RewardPerTick:      st.Schedule.RewardPerTick,
		StartHeight:        st.Schedule.StartHeight,
		RateChangeCooldown: st.Schedule.RateChangeCooldown,
	}
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	e.sched = emission.Restore(st.Schedule)
	e.referralBp = st.ReferralBp

	for i := range st.Pools {
		p := st.Pools[i]
		// Pool ids are slice indices; persisted pools must arrive in order.
		if int(p.ID) != len(e.pools) {
			return nil, fmt.Errorf("pool ids are not contiguous: got %d at index %d", p.ID, len(e.pools))
		}
		ledger, ok := depositLedgers[p.DepositAssetID]
		if !ok {
			return nil, fmt.Errorf("no deposit ledger bound for asset %s (pool %d)", p.DepositAssetID, p.ID)
		}
		pool := p
		e.pools = append(e.pools, &pool)
		e.poolByAsset[p.DepositAssetID] = p.ID
		e.deposits[p.ID] = ledger
	}
	for i := range st.Positions {
		pos := st.Positions[i]
		byAccount, ok := e.positions[pos.PoolID]
		if !ok {
			byAccount = make(map[string]*types.Position)
			e.positions[pos.PoolID] = byAccount
		}
		stored := pos
		byAccount[pos.Account] = &stored
	}
	for _, r := range st.Referrals {
		e.referrals[r.Account] = r.Referrer
	}

	e.logger.Info().
		Int("pools", len(st.Pools)).
		Int("positions", len(st.Positions)).
		Int("referrals", len(st.Referrals)).
		Msg("Engine state restored")

	return e, nil
}
