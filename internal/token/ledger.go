package token

import (
	sdkmath "cosmossdk.io/math"
)

// Ledger defines the interface the engine needs from an external
// fungible token ledger. This interface abstracts away the concrete
// token implementation, allowing for different backends (in-memory,
// remote, simulation) without touching the accrual engine.
type Ledger interface {
	// AssetID returns the stable identity of the asset this ledger tracks.
	AssetID() string

	// Transfer moves amount from one account to another. It fails with
	// ErrInsufficientBalance if the source balance is too small.
	Transfer(from, to string, amount sdkmath.Int) error

	// BalanceOf returns the current balance of an account.
	BalanceOf(account string) sdkmath.Int
}

// RewardLedger extends Ledger with supply-cap-aware issuance. Only the
// reward asset is mintable; minting past the cap must fail.
type RewardLedger interface {
	Ledger

	// Mint creates amount new units credited to the given account.
	// It fails if the mint would push total issued supply past the cap.
	Mint(to string, amount sdkmath.Int) error

	// TotalIssued returns the cumulative issued supply.
	TotalIssued() sdkmath.Int

	// Cap returns the fixed maximum supply.
	Cap() sdkmath.Int
}
