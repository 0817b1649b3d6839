package ledger

import "errors"

// Grouped by the error kinds of spec.md §7.
var (
	// authorization
	ErrNotOwner          = errors.New("ledger: caller is not the owner")
	ErrNotMinter         = errors.New("ledger: caller is not a minter")
	ErrNotBurner         = errors.New("ledger: caller is not a burner")
	ErrNotBlacklister    = errors.New("ledger: caller is not a blacklister")
	ErrReentrant         = errors.New("ledger: reentrant call detected")

	// validation
	ErrZeroAddress       = errors.New("ledger: zero address")
	ErrZeroAmount        = errors.New("ledger: amount must be > 0")

	// state
	ErrAlreadyMinter      = errors.New("ledger: address is already a minter")
	ErrAlreadyBurner      = errors.New("ledger: address is already a burner")
	ErrAlreadyBlacklister = errors.New("ledger: address is already a blacklister")
	ErrNotCurrentlyMinter = errors.New("ledger: address is not currently a minter")
	ErrNotCurrentlyBurner = errors.New("ledger: address is not currently a burner")
	ErrNotCurrentlyBlacklister = errors.New("ledger: address is not currently a blacklister")

	// economic
	ErrBlacklisted        = errors.New("ledger: account is blacklisted")
	ErrOverMintLimit       = errors.New("ledger: amount exceeds the per-epoch mint limit")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")

	// persistence
	ErrCorruptBalance = errors.New("ledger: stored balance is not a valid decimal integer")
)
