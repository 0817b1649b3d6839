package registry

import (
	"errors"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrInsufficientNativeBalance = errors.New("registry: native custodian has insufficient balance to pay")

// NativeTransferer is the registry's view of whatever host-chain primitive
// moves the native collateral asset (spec.md §4.2's native-token payouts
// during slashing, liquidation, and collateral withdrawal). Incoming
// collateral amounts are trusted parameters exactly as spec.md's
// requestToBecomeLocker/addCollateral take nativeAmount as a parameter
// rather than a queried value; only outgoing payouts need a collaborator.
type NativeTransferer interface {
	Pay(to ethcommon.Address, amount *big.Int) error
}

// SimulatedNative is an in-memory native-asset custodian for tests and
// cmd/bridgecore, analogous to relay.Simulated and oracle.Simulated: it
// tracks one pool of native value the registry draws payouts from. The
// registry never funds it; whoever wires it up credits the pool via Fund.
type SimulatedNative struct {
	mu   sync.Mutex
	pool *big.Int
	paid map[ethcommon.Address]*big.Int
}

func NewSimulatedNative() *SimulatedNative {
	return &SimulatedNative{
		pool: new(big.Int),
		paid: make(map[ethcommon.Address]*big.Int),
	}
}

// Fund credits the custodian's pool. Registry operations that bookkeep an
// incoming nativeAmount do not call it.
func (s *SimulatedNative) Fund(amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool.Add(s.pool, amount)
}

func (s *SimulatedNative) Pay(to ethcommon.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool.Cmp(amount) < 0 {
		return ErrInsufficientNativeBalance
	}
	s.pool.Sub(s.pool, amount)

	paid, ok := s.paid[to]
	if !ok {
		paid = new(big.Int)
		s.paid[to] = paid
	}
	paid.Add(paid, amount)
	return nil
}

func (s *SimulatedNative) PaidTo(to ethcommon.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	paid, ok := s.paid[to]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(paid)
}

func (s *SimulatedNative) Pool() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.pool)
}
