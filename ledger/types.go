package ledger

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Decimals is fixed at 8 to match BTC satoshi units; spec.md §3/§4.1 treats
// this as immutable ("dynamic reconfiguration of the peg-unit decimal
// precision" is an explicit Non-goal).
const Decimals = 8

// account is the internal per-holder record. Role flags and the blacklist
// flag are independent predicates, never a single enum, matching
// spec.md §3's LedgerAccount.
type account struct {
	balance       *big.Int
	isMinter      bool
	isBurner      bool
	isBlacklister bool
	isBlacklisted bool
}

func newAccount() *account {
	return &account{balance: new(big.Int)}
}

// EpochState is the sliding-window mint-limit tracker of spec.md §3/§4.1:
// "an epoch roll-over discards unused budget" — this is NOT a token bucket.
type EpochState struct {
	MaxMintLimit  *big.Int
	EpochLength   uint64
	LastEpoch     uint64
	LastMintLimit *big.Int // remaining budget in the current epoch
}

// Snapshot is a read-only view of one account, shaped so callers can't
// mutate ledger state through an aliasing pointer. No Ledger method
// currently returns it.
type Snapshot struct {
	Address       ethcommon.Address
	Balance       *big.Int
	IsMinter      bool
	IsBurner      bool
	IsBlacklister bool
	IsBlacklisted bool
}
