package token

import (
	sdkmath "cosmossdk.io/math"

	"github.com/feed-farm/engine/internal/logger"
)

var minterLogger = logger.GetForComponent("capped_minter")

// CappedMinter wraps the reward ledger and truncates issuance requests
// to the remaining supply room. Every credit of newly created reward
// units routes through Issue; nothing else mints.
type CappedMinter struct {
	ledger RewardLedger
}

func NewCappedMinter(ledger RewardLedger) *CappedMinter {
	return &CappedMinter{ledger: ledger}
}

// Room returns the number of units that can still be issued.
func (m *CappedMinter) Room() sdkmath.Int {
	room := m.ledger.Cap().Sub(m.ledger.TotalIssued())
	if room.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return room
}

// Issue mints min(amount, room) to the given account and returns the
// amount actually issued, which may be zero. A zero result is not an
// error; it means emission is exhausted.
func (m *CappedMinter) Issue(to string, amount sdkmath.Int) (sdkmath.Int, error) {
	if !amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	issue := sdkmath.MinInt(amount, m.Room())
	if issue.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if err := m.ledger.Mint(to, issue); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if issue.LT(amount) {
		minterLogger.Debug().
			Str("requested", amount.String()).
			Str("issued", issue.String()).
			Msg("Issuance truncated at supply cap")
	}
	return issue, nil
}
