package types

import (
	sdkerrors "cosmossdk.io/errors"
)

// Codespace for all engine errors.
const Codespace = "farm"

// NOTE: Error status code must start from 2.
var (
	// ErrInvalidConfiguration covers fee/commission ceilings, duplicate
	// pool registration and rejected no-op configuration updates.
	ErrInvalidConfiguration = sdkerrors.Register(Codespace, 2, "invalid configuration")

	// ErrNotFound is returned for lookups of unregistered pools or assets.
	ErrNotFound = sdkerrors.Register(Codespace, 3, "not found")

	// ErrUnauthorized is returned when a caller does not hold the role
	// required for the action.
	ErrUnauthorized = sdkerrors.Register(Codespace, 4, "unauthorized")

	// ErrInsufficientBalance is returned when a withdrawal exceeds the
	// staked amount or a transfer exceeds the caller's balance.
	ErrInsufficientBalance = sdkerrors.Register(Codespace, 5, "insufficient balance")

	// ErrPreconditionNotMet is returned for rate changes attempted before
	// the program start or inside the cooldown window.
	ErrPreconditionNotMet = sdkerrors.Register(Codespace, 6, "precondition not met")

	// ErrIntegrationInvariant signals that the engine's reward buffer
	// cannot fund a harvest the bookkeeping says it must. This is a
	// bookkeeping bug, not a caller error; it aborts the call and is
	// never retried.
	ErrIntegrationInvariant = sdkerrors.Register(Codespace, 7, "integration invariant violated")
)
