/*

This file contains the in-memory reference implementation of the token
ledger interfaces. It backs the test suite and the single-process farmd
deployment; a production integration substitutes its own Ledger.

*/

package token

import (
	sdkmath "cosmossdk.io/math"

	"github.com/feed-farm/engine/internal/types"
)

// Book is an in-memory fungible token ledger.
type Book struct {
	assetID  string
	balances map[string]sdkmath.Int
	issued   sdkmath.Int
	cap      sdkmath.Int // nil cap means the asset is not mintable
}

// NewBook creates a non-mintable ledger, seeded with the given balances.
func NewBook(assetID string, seed map[string]sdkmath.Int) *Book {
	b := &Book{
		assetID:  assetID,
		balances: make(map[string]sdkmath.Int, len(seed)),
		issued:   sdkmath.ZeroInt(),
	}
	for account, amount := range seed {
		b.balances[account] = amount
		b.issued = b.issued.Add(amount)
	}
	return b
}

// NewCappedBook creates a mintable ledger with a hard supply cap and an
// optional premine credited to one account.
func NewCappedBook(assetID string, cap sdkmath.Int, premineTo string, premine sdkmath.Int) *Book {
	b := &Book{
		assetID:  assetID,
		balances: make(map[string]sdkmath.Int),
		issued:   sdkmath.ZeroInt(),
		cap:      cap,
	}
	if !premine.IsZero() {
		b.balances[premineTo] = premine
		b.issued = premine
	}
	return b
}

func (b *Book) AssetID() string {
	return b.assetID
}

func (b *Book) BalanceOf(account string) sdkmath.Int {
	bal, ok := b.balances[account]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}

func (b *Book) Transfer(from, to string, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return types.ErrInsufficientBalance.Wrapf("%s: negative transfer amount %s", b.assetID, amount)
	}
	if amount.IsZero() {
		return nil
	}
	bal := b.BalanceOf(from)
	if bal.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf(
			"%s: account %s has %s, needs %s", b.assetID, from, bal, amount)
	}
	b.balances[from] = bal.Sub(amount)
	b.balances[to] = b.BalanceOf(to).Add(amount)
	return nil
}

func (b *Book) Mint(to string, amount sdkmath.Int) error {
	if b.cap.IsNil() {
		return types.ErrUnauthorized.Wrapf("%s is not mintable", b.assetID)
	}
	if amount.IsNegative() {
		return types.ErrInsufficientBalance.Wrapf("%s: negative mint amount %s", b.assetID, amount)
	}
	if b.issued.Add(amount).GT(b.cap) {
		return types.ErrInsufficientBalance.Wrapf(
			"%s: mint of %s exceeds cap %s (issued %s)", b.assetID, amount, b.cap, b.issued)
	}
	b.issued = b.issued.Add(amount)
	b.balances[to] = b.BalanceOf(to).Add(amount)
	return nil
}

func (b *Book) TotalIssued() sdkmath.Int {
	return b.issued
}

func (b *Book) Cap() sdkmath.Int {
	if b.cap.IsNil() {
		return sdkmath.ZeroInt()
	}
	return b.cap
}
