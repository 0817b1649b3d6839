package burnrouter

import "errors"

// Grouped by the error kinds of spec.md §7.
var (
	// authorization
	ErrNotOwner    = errors.New("burnrouter: caller is not the owner")
	ErrReentrant   = errors.New("burnrouter: reentrant call detected")

	// validation
	ErrZeroAddress           = errors.New("burnrouter: zero address")
	ErrInvalidScriptLength   = errors.New("burnrouter: userScript length does not match scriptType")
	ErrIndexLengthMismatch   = errors.New("burnrouter: burnReqIndexes and voutIndexes must be the same length")
	ErrVoutIndexesUnsorted   = errors.New("burnrouter: voutIndexes must be strictly increasing")

	// state
	ErrNoSuchLocker         = errors.New("burnrouter: no locker for given script")
	ErrNoSuchBurnRequest    = errors.New("burnrouter: no burn request at given index")
	ErrAlreadyTransferred   = errors.New("burnrouter: burn request already transferred")

	// proof
	ErrBelowStartingBlock   = errors.New("burnrouter: blockNumber is before startingBlockNumber")
	ErrTxNotFinalized       = errors.New("burnrouter: relay did not confirm inclusion of the transaction")
	ErrAlreadyUsedAsProof   = errors.New("burnrouter: input transaction already claimed as a burn proof")
	ErrOutpointMismatch     = errors.New("burnrouter: input's previous outpoint does not match the claimed output transaction")
	ErrScriptMismatch       = errors.New("burnrouter: claimed output's script does not match the locker's locking script")
	ErrDeadlineNotElapsed   = errors.New("burnrouter: deadline has not elapsed on the relay yet")
	ErrSpendNotStale        = errors.New("burnrouter: input spend is not old enough to be disputed")

	// economic
	ErrBelowDustFloor       = errors.New("burnrouter: amount does not exceed protocolFee + 2*bitcoinFee")
)
