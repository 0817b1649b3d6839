package registry

import (
	"math/big"

	"github.com/btcpeg/peg-core/btcspv"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// NativeDecimals assumes 18, as spec.md §3 does for the target-chain native
// unit.
const NativeDecimals = 18

// HealthFactor and UpperHealthFactor are the fixed scaling constants of
// spec.md §4.2, matching the collateral-ratio basis-point denomination: a
// locker exactly at its liquidation threshold has healthFactor ==
// UpperHealthFactor, so the two are equal for this is-it-below-or-at-the-line
// comparison to be meaningful at the boundary.
const (
	HealthFactor      = 10_000
	UpperHealthFactor = 10_000
)

// locker is the internal per-operator record, named Locker in spec.md §3.
// Role is tracked via independent flags (isCandidate/isLocker) rather than
// an enum, matching ledger.account's flag style.
type locker struct {
	lockingScript []byte
	rescueScript  []byte
	rescueType    btcspv.ScriptType

	nativeTokenLockedAmount *big.Int
	netMinted               *big.Int
	slashingCoreBTCAmount   *big.Int

	isCandidate bool
	isLocker    bool

	// inactivationTimestamp is 0 while active; otherwise the unix time at
	// which the locker becomes inactive (spec.md §3).
	inactivationTimestamp int64

	targetAddress ethcommon.Address
}

func newLocker() *locker {
	return &locker{
		nativeTokenLockedAmount: new(big.Int),
		netMinted:               new(big.Int),
		slashingCoreBTCAmount:   new(big.Int),
	}
}

// isActive reports whether the locker may still mint/operate at now. A
// locker with a pending inactivation request stays active until now reaches
// inactivationTimestamp (spec.md §3: that timestamp is when it "becomes"
// inactive, not when the request is made).
func (l *locker) isActive(now int64) bool {
	return l.isLocker && (l.inactivationTimestamp == 0 || now < l.inactivationTimestamp)
}

// isInactive reports whether now has reached the locker's inactivation
// timestamp, unlocking RemoveCollateral/SelfRemoveLocker.
func (l *locker) isInactive(now int64) bool {
	return l.isLocker && l.inactivationTimestamp != 0 && now >= l.inactivationTimestamp
}

// LockerSnapshot is a read-only external view, returned by query accessors
// so callers can't mutate registry state through an aliasing pointer.
type LockerSnapshot struct {
	LockingScript           []byte
	RescueScript            []byte
	RescueType              btcspv.ScriptType
	NativeTokenLockedAmount *big.Int
	NetMinted               *big.Int
	SlashingCoreBTCAmount   *big.Int
	IsCandidate             bool
	IsLocker                bool
	InactivationTimestamp   int64
	TargetAddress           ethcommon.Address
}

func (l *locker) snapshot() *LockerSnapshot {
	return &LockerSnapshot{
		LockingScript:           append([]byte(nil), l.lockingScript...),
		RescueScript:            append([]byte(nil), l.rescueScript...),
		RescueType:              l.rescueType,
		NativeTokenLockedAmount: new(big.Int).Set(l.nativeTokenLockedAmount),
		NetMinted:               new(big.Int).Set(l.netMinted),
		SlashingCoreBTCAmount:   new(big.Int).Set(l.slashingCoreBTCAmount),
		IsCandidate:             l.isCandidate,
		IsLocker:                l.isLocker,
		InactivationTimestamp:   l.inactivationTimestamp,
		TargetAddress:           l.targetAddress,
	}
}

func scriptKey(script []byte) string {
	return string(script)
}
