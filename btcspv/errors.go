package btcspv

import "errors"

// Every error here is a proof-kind failure per spec.md §7: malformed input
// must fail closed, never silently truncate or read out of bounds.
var (
	ErrInvalidScriptLength   = errors.New("btcspv: script payload has the wrong length for its type")
	ErrMalformedTransaction  = errors.New("btcspv: malformed bitcoin transaction bytes")
	ErrVinIndexOutOfRange    = errors.New("btcspv: vin index out of range")
	ErrVoutIndexOutOfRange   = errors.New("btcspv: vout index out of range")
	ErrOutputValueOverflow   = errors.New("btcspv: summed output value overflowed int64")
	ErrNonZeroLocktime       = errors.New("btcspv: transaction locktime must be zero")
)
