package burnrouter

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/btcpeg/peg-core/btcspv"
)

// burnRequest is the internal record of spec.md §3's BurnRequest, stored in
// an append-only per-locker sequence plus a per-locker counter.
type burnRequest struct {
	amount            *big.Int
	burntAmount       *big.Int
	sender            ethcommon.Address
	userScript        []byte
	scriptType        btcspv.ScriptType
	deadline          uint64
	isTransferred     bool
	requestIdOfLocker uint64
}

// BurnRequestSnapshot is the read-only external view.
type BurnRequestSnapshot struct {
	Amount            *big.Int
	BurntAmount       *big.Int
	Sender            ethcommon.Address
	UserScript        []byte
	ScriptType        btcspv.ScriptType
	Deadline          uint64
	IsTransferred     bool
	RequestIdOfLocker uint64
}

func (b *burnRequest) snapshot() *BurnRequestSnapshot {
	return &BurnRequestSnapshot{
		Amount:            new(big.Int).Set(b.amount),
		BurntAmount:       new(big.Int).Set(b.burntAmount),
		Sender:            b.sender,
		UserScript:        append([]byte(nil), b.userScript...),
		ScriptType:        b.scriptType,
		Deadline:          b.deadline,
		IsTransferred:     b.isTransferred,
		RequestIdOfLocker: b.requestIdOfLocker,
	}
}

// perLocker is the append-only sequence plus counter spec.md §3 describes,
// keyed by locker script in Router.
type perLocker struct {
	requests []*burnRequest
}

type lockerKey = string

func keyForScript(script []byte) lockerKey { return string(script) }

// chainhashKey adapts chainhash.Hash for use as a Go map key (it already is
// a fixed-size array, so no conversion is actually needed — this alias just
// documents the intent at call sites).
type chainhashKey = chainhash.Hash
