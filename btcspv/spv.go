// Package btcspv is the pure, side-effect-free Bitcoin transaction parsing
// library spec.md §9 calls for: "every router/registry call that touches a
// transaction must fail closed on malformed input (no silent truncation, no
// out-of-bounds reads)". Rather than hand-roll a varint/serialization
// reader, it wraps github.com/btcsuite/btcd/wire and
// github.com/btcsuite/btcd/txscript, which already implement bit-exact
// legacy and segwit deserialization (segwit marker/flag skipped for txid
// computation per BIP141, exactly as spec.md §6 requires).
package btcspv

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ExtractTx deserializes raw transaction bytes into a *wire.MsgTx, covering
// both legacy and witness serializations. It never panics on malformed
// input: wire.MsgTx.Deserialize already bounds-checks every read, and any
// error is wrapped into ErrMalformedTransaction so callers have one error to
// check.
func ExtractTx(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, ErrMalformedTransaction
	}
	return tx, nil
}

// CalculateTxId returns the transaction's id — the double-SHA256 of its
// non-witness serialization, matching Bitcoin Core's txid (not wtxid).
func CalculateTxId(tx *wire.MsgTx) chainhash.Hash {
	return tx.TxHash()
}

// RequireZeroLocktime enforces spec.md §4.3's "require locktime == 0
// (prevents deferred spends)" rule for burnProof.
func RequireZeroLocktime(tx *wire.MsgTx) error {
	if tx.LockTime != 0 {
		return ErrNonZeroLocktime
	}
	return nil
}

// Outpoint identifies the previous output a transaction input spends.
type Outpoint struct {
	TxId  chainhash.Hash
	Index uint32
}

// ExtractOutpoint returns the outpoint consumed by vin[index].
func ExtractOutpoint(tx *wire.MsgTx, index int) (Outpoint, error) {
	if index < 0 || index >= len(tx.TxIn) {
		return Outpoint{}, ErrVinIndexOutOfRange
	}
	prevOut := tx.TxIn[index].PreviousOutPoint
	return Outpoint{TxId: prevOut.Hash, Index: prevOut.Index}, nil
}

// ParseOutputsTotalValue sums every output's satoshi value, used by
// disputeLocker to compute the native-equivalent slashing amount of a
// provably-stolen outpoint's spending transaction (spec.md §4.3 step 6).
// It fails closed on an overflowing sum rather than wrapping.
func ParseOutputsTotalValue(tx *wire.MsgTx) (int64, error) {
	var total int64
	for _, out := range tx.TxOut {
		if out.Value < 0 {
			return 0, ErrMalformedTransaction
		}
		next := total + out.Value
		if next < total {
			return 0, ErrOutputValueOverflow
		}
		total = next
	}
	return total, nil
}

// GetLockingScript returns the raw scriptPubKey of vout[index].
func GetLockingScript(tx *wire.MsgTx, index int) ([]byte, error) {
	if index < 0 || index >= len(tx.TxOut) {
		return nil, ErrVoutIndexOutOfRange
	}
	return tx.TxOut[index].PkScript, nil
}

// buildCanonicalScript constructs the scriptPubKey spec.md §6's template
// table describes for (scriptType, payload). It is the inverse of
// "recognize": given the expected raw payload, produce the exact bytes a
// conforming output must carry.
func buildCanonicalScript(t ScriptType, payload []byte) ([]byte, error) {
	size, err := t.PayloadSize()
	if err != nil {
		return nil, err
	}
	if len(payload) != size {
		return nil, ErrInvalidScriptLength
	}

	b := txscript.NewScriptBuilder()
	switch t {
	case ScriptTypeP2PK:
		b.AddData(payload).AddOp(txscript.OP_CHECKSIG)
	case ScriptTypeP2PKH:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).AddData(payload).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG)
	case ScriptTypeP2SH:
		b.AddOp(txscript.OP_HASH160).AddData(payload).AddOp(txscript.OP_EQUAL)
	case ScriptTypeP2WPKH:
		b.AddOp(txscript.OP_0).AddData(payload)
	case ScriptTypeP2WSH:
		b.AddOp(txscript.OP_0).AddData(payload)
	case ScriptTypeP2TR:
		b.AddOp(txscript.OP_1).AddData(payload)
	default:
		return nil, ErrUnknownScriptType
	}
	return b.Script()
}

// ParseValueFromSpecificOutputHavingScript returns vout[index]'s satoshi
// value only if its scriptPubKey is exactly the canonical template for
// (scriptType, expectedScript) — spec.md §4.3's contract for
// parseValueFromSpecificOutputHavingScript. A well-formed output whose
// script differs from that template returns (0, false, nil): a locating
// miss is not an error, it's the caller's cue to try the next candidate
// output. An out-of-range index, an unknown scriptType, or an expectedScript
// whose length does not fit scriptType returns an error instead.
func ParseValueFromSpecificOutputHavingScript(
	tx *wire.MsgTx,
	index int,
	expectedScript []byte,
	scriptType ScriptType,
) (value int64, matched bool, err error) {
	pkScript, err := GetLockingScript(tx, index)
	if err != nil {
		return 0, false, err
	}

	want, err := buildCanonicalScript(scriptType, expectedScript)
	if err != nil {
		return 0, false, err
	}

	if !bytes.Equal(pkScript, want) {
		return 0, false, nil
	}

	return tx.TxOut[index].Value, true, nil
}
