// Package ledger implements the wrapped-BTC ledger of spec.md §4.1: a
// fungible balance store with role-gated mint/burn, a per-epoch mint cap,
// and a blacklist gate on transfer. It is the leaf of the dependency order
// in spec.md §2 (Ledger ← LockerRegistry ← BurnRouter) — it never calls out
// to the other two components.
package ledger

import (
	"math/big"
	"sync"

	"github.com/btcpeg/peg-core/bridgeevents"
	"github.com/btcpeg/peg-core/logconfig"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Ledger is guarded by a single mutex for its whole lifetime: every
// exported mutating method holds mu for its full duration, which is the
// "single bit preventing nested entry" reentrancy guard of spec.md §5. A
// call that re-enters a guarded method on the same instance (directly or
// transitively) deadlocks rather than interleaves state writes — the
// correct fail-closed behavior for a host model where partial state must
// never be observable.
type Ledger struct {
	mu sync.Mutex

	owner ethcommon.Address

	accounts    map[ethcommon.Address]*account
	allowances  map[ethcommon.Address]map[ethcommon.Address]*big.Int
	totalSupply *big.Int

	epoch EpochState

	db  *StateDB // nil is valid: in-memory only, no persistence
	bus *bridgeevents.Bus
	log *logrus.Entry
}

// New creates a Ledger. db may be nil for a purely in-memory instance (used
// by tests and by the registry/router test fixtures); bus may be nil if the
// caller doesn't want to subscribe to Mint/Burn/Blacklisted events.
func New(owner ethcommon.Address, maxMintLimit *big.Int, epochLength uint64, db *StateDB, bus *bridgeevents.Bus) (*Ledger, error) {
	if owner == (ethcommon.Address{}) {
		return nil, ErrZeroAddress
	}
	if epochLength == 0 {
		epochLength = 1
	}

	l := &Ledger{
		owner:       owner,
		accounts:    make(map[ethcommon.Address]*account),
		allowances:  make(map[ethcommon.Address]map[ethcommon.Address]*big.Int),
		totalSupply: new(big.Int),
		epoch: EpochState{
			MaxMintLimit:  new(big.Int).Set(maxMintLimit),
			EpochLength:   epochLength,
			LastEpoch:     0,
			LastMintLimit: new(big.Int).Set(maxMintLimit),
		},
		db:  db,
		bus: bus,
		log: logconfig.Component("ledger"),
	}

	if db != nil {
		if err := db.loadInto(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

func (l *Ledger) acct(addr ethcommon.Address) *account {
	a, ok := l.accounts[addr]
	if !ok {
		a = newAccount()
		l.accounts[addr] = a
	}
	return a
}

// --- role mutations (owner-only, spec.md §4.1) ---

func (l *Ledger) requireOwner(caller ethcommon.Address) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	return nil
}

func (l *Ledger) AddMinter(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if target == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	a := l.acct(target)
	if a.isMinter {
		return ErrAlreadyMinter
	}
	a.isMinter = true
	return l.persist(target)
}

func (l *Ledger) RemoveMinter(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	a := l.acct(target)
	if !a.isMinter {
		return ErrNotCurrentlyMinter
	}
	a.isMinter = false
	return l.persist(target)
}

func (l *Ledger) AddBurner(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if target == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	a := l.acct(target)
	if a.isBurner {
		return ErrAlreadyBurner
	}
	a.isBurner = true
	return l.persist(target)
}

func (l *Ledger) RemoveBurner(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	a := l.acct(target)
	if !a.isBurner {
		return ErrNotCurrentlyBurner
	}
	a.isBurner = false
	return l.persist(target)
}

func (l *Ledger) AddBlacklister(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if target == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	a := l.acct(target)
	if a.isBlacklister {
		return ErrAlreadyBlacklister
	}
	a.isBlacklister = true
	return l.persist(target)
}

func (l *Ledger) RemoveBlacklister(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	a := l.acct(target)
	if !a.isBlacklister {
		return ErrNotCurrentlyBlacklister
	}
	a.isBlacklister = false
	return l.persist(target)
}

// --- blacklist (spec.md §4.1, §9 Open Questions) ---

func (l *Ledger) Blacklist(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if target == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if !l.acct(caller).isBlacklister {
		return ErrNotBlacklister
	}
	l.acct(target).isBlacklisted = true
	if l.bus != nil {
		l.bus.EmitBlacklisted(&bridgeevents.BlacklistedEvent{Account: target})
	}
	return l.persist(target)
}

func (l *Ledger) UnBlacklist(caller, target ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.acct(caller).isBlacklister {
		return ErrNotBlacklister
	}
	l.acct(target).isBlacklisted = false
	if l.bus != nil {
		l.bus.EmitUnBlacklisted(&bridgeevents.UnBlacklistedEvent{Account: target})
	}
	return l.persist(target)
}

// IsBlacklisted preserves the asymmetry spec.md §9 documents as
// intentional: the zero address is a valid (non-blacklisted) query target,
// unlike IsMinter/IsBurner/IsBlacklister which reject it.
func (l *Ledger) IsBlacklisted(addr ethcommon.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if addr == (ethcommon.Address{}) {
		return false
	}
	a, ok := l.accounts[addr]
	return ok && a.isBlacklisted
}

func (l *Ledger) IsMinter(addr ethcommon.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if addr == (ethcommon.Address{}) {
		return false, ErrZeroAddress
	}
	a, ok := l.accounts[addr]
	return ok && a.isMinter, nil
}

func (l *Ledger) IsBurner(addr ethcommon.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if addr == (ethcommon.Address{}) {
		return false, ErrZeroAddress
	}
	a, ok := l.accounts[addr]
	return ok && a.isBurner, nil
}

func (l *Ledger) IsBlacklister(addr ethcommon.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if addr == (ethcommon.Address{}) {
		return false, ErrZeroAddress
	}
	a, ok := l.accounts[addr]
	return ok && a.isBlacklister, nil
}

// --- reads ---

func (l *Ledger) BalanceOf(addr ethcommon.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(a.balance)
}

func (l *Ledger) TotalSupply() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalSupply)
}

func (l *Ledger) Allowance(owner, spender ethcommon.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.allowances[owner]
	if !ok {
		return new(big.Int)
	}
	v, ok := m[spender]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func (l *Ledger) Approve(owner, spender ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if spender == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[ethcommon.Address]*big.Int)
		l.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
	return nil
}

// --- mint / burn (spec.md §4.1) ---

// Mint enforces the sliding-window-per-epoch budget of spec.md §4.1: an
// epoch rollover discards unused budget rather than carrying it forward
// (NOT a token bucket).
func (l *Ledger) Mint(caller, to ethcommon.Address, amount *big.Int, blockHeight uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.acct(caller).isMinter {
		return ErrNotMinter
	}
	if to == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if amount.Cmp(l.epoch.MaxMintLimit) > 0 {
		return ErrOverMintLimit
	}
	if l.acct(to).isBlacklisted {
		return ErrBlacklisted
	}

	currentEpoch := blockHeight / l.epoch.EpochLength
	var remaining *big.Int
	if currentEpoch == l.epoch.LastEpoch {
		remaining = l.epoch.LastMintLimit
	} else {
		remaining = l.epoch.MaxMintLimit
	}
	if amount.Cmp(remaining) > 0 {
		return ErrOverMintLimit
	}

	l.epoch.LastEpoch = currentEpoch
	l.epoch.LastMintLimit = new(big.Int).Sub(remaining, amount)

	toAcct := l.acct(to)
	toAcct.balance.Add(toAcct.balance, amount)
	l.totalSupply.Add(l.totalSupply, amount)

	if l.bus != nil {
		l.bus.EmitMint(&bridgeevents.MintEvent{Receiver: to, Amount: new(big.Int).Set(amount)})
	}
	return l.persist(to)
}

// Burn burns amount from the caller's own balance. caller must be a
// registered burner (spec.md §4.1).
func (l *Ledger) Burn(caller ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burnFrom(caller, caller, amount, false)
}

// OwnerBurn is the admin override of spec.md §4.1: it burns from an
// arbitrary user, temporarily bypassing the blacklist gate so a blacklisted
// account's balance can still be zeroed out by the owner.
func (l *Ledger) OwnerBurn(caller, user ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	return l.burnFrom(caller, user, amount, true)
}

func (l *Ledger) burnFrom(caller, user ethcommon.Address, amount *big.Int, bypassBlacklist bool) error {
	if !bypassBlacklist && !l.acct(caller).isBurner {
		return ErrNotBurner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if !bypassBlacklist && l.acct(user).isBlacklisted {
		return ErrBlacklisted
	}

	a := l.acct(user)
	if a.balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	a.balance.Sub(a.balance, amount)
	l.totalSupply.Sub(l.totalSupply, amount)

	if l.bus != nil {
		l.bus.EmitBurn(&bridgeevents.BurnEvent{Burner: caller, Amount: new(big.Int).Set(amount)})
	}
	return l.persist(user)
}

// --- transfer (spec.md §4.1: blacklist gate lives in the pre-transfer
// hook, so minting-to / burning-from blacklisted accounts also fails
// unless via OwnerBurn) ---

func (l *Ledger) Transfer(from, to ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(from, to, amount)
}

func (l *Ledger) TransferFrom(spender, from, to ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := l.allowances[from]
	allowed := new(big.Int)
	if m != nil {
		if v, ok := m[spender]; ok {
			allowed = v
		}
	}
	if allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}

	if err := l.transfer(from, to, amount); err != nil {
		return err
	}

	m[spender] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (l *Ledger) transfer(from, to ethcommon.Address, amount *big.Int) error {
	if to == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if l.acct(from).isBlacklisted || l.acct(to).isBlacklisted {
		return ErrBlacklisted
	}

	fromAcct := l.acct(from)
	if fromAcct.balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	fromAcct.balance.Sub(fromAcct.balance, amount)
	l.acct(to).balance.Add(l.acct(to).balance, amount)

	if err := l.persist(from); err != nil {
		return err
	}
	return l.persist(to)
}

func (l *Ledger) persist(addr ethcommon.Address) error {
	if l.db == nil {
		return nil
	}
	return l.db.saveAccount(addr, l.accounts[addr], &l.epoch)
}
