// Package registry implements the LockerRegistry of spec.md §4.2: locker
// onboarding, collateral bookkeeping, health/liquidation math, and the only
// authorized caller of Ledger.mint/burn. It sits between Ledger and
// BurnRouter in the dependency order of spec.md §2 (Ledger ← LockerRegistry
// ← BurnRouter) — it calls into ledger.Ledger but never into burnrouter.
package registry

import (
	"math/big"
	"sync"

	"github.com/btcpeg/peg-core/bridgecfg"
	"github.com/btcpeg/peg-core/bridgeevents"
	"github.com/btcpeg/peg-core/btcspv"
	"github.com/btcpeg/peg-core/common"
	"github.com/btcpeg/peg-core/ledger"
	"github.com/btcpeg/peg-core/logconfig"
	"github.com/btcpeg/peg-core/oracle"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Registry is guarded by a single mutex, the same reentrancy-guard model as
// ledger.Ledger (spec.md §5). Every exported mutating method holds mu for
// its whole duration; calls into r.ledger happen while still holding mu,
// which is safe because Ledger never calls back into Registry (the call
// graph is a DAG with no back-edges).
type Registry struct {
	mu sync.Mutex

	// address is this component's own participant address on the Ledger:
	// wrapped-BTC routed through Registry.mint/burn/liquidate briefly sits
	// in this account before being forwarded or destroyed.
	address ethcommon.Address
	owner   ethcommon.Address
	router  ethcommon.Address // BurnRouter; owner-settable, gates slash/burn calls

	cfg    *bridgecfg.Config
	ledger *ledger.Ledger
	oracle oracle.Oracle
	native NativeTransferer

	lockers        map[string]*locker
	targetToScript map[ethcommon.Address]string

	minters map[ethcommon.Address]bool

	db  *StateDB
	bus *bridgeevents.Bus
	log *logrus.Entry
}

func New(
	address, owner ethcommon.Address,
	cfg *bridgecfg.Config,
	ledg *ledger.Ledger,
	orc oracle.Oracle,
	native NativeTransferer,
	db *StateDB,
	bus *bridgeevents.Bus,
) (*Registry, error) {
	if address == (ethcommon.Address{}) || owner == (ethcommon.Address{}) {
		return nil, ErrZeroAddress
	}

	r := &Registry{
		address:        address,
		owner:          owner,
		cfg:            cfg,
		ledger:         ledg,
		oracle:         orc,
		native:         native,
		lockers:        make(map[string]*locker),
		targetToScript: make(map[ethcommon.Address]string),
		minters:        make(map[ethcommon.Address]bool),
		db:             db,
		bus:            bus,
		log:            logconfig.Component("registry"),
	}

	if db != nil {
		if err := db.loadInto(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) requireOwner(caller ethcommon.Address) error {
	if caller != r.owner {
		return ErrNotOwner
	}
	return nil
}

func (r *Registry) requireRouter(caller ethcommon.Address) error {
	if caller != r.router {
		return ErrNotRouter
	}
	return nil
}

func (r *Registry) SetRouter(caller, addr ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if addr == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	r.router = addr
	return nil
}

func (r *Registry) AddMinter(caller, target ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if target == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if r.minters[target] {
		return ErrAlreadyMinter
	}
	r.minters[target] = true
	return nil
}

func (r *Registry) RemoveMinter(caller, target ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if !r.minters[target] {
		return ErrNotCurrentlyMinter
	}
	delete(r.minters, target)
	return nil
}

func (r *Registry) lockerByTarget(target ethcommon.Address) (*locker, error) {
	key, ok := r.targetToScript[target]
	if !ok {
		return nil, ErrNoSuchLocker
	}
	l, ok := r.lockers[key]
	if !ok {
		return nil, ErrNoSuchLocker
	}
	return l, nil
}

// --- pricing / health math (spec.md §4.2) ---

func (r *Registry) collateralValueBTC(l *locker) (*big.Int, error) {
	return r.oracle.EquivalentOutputAmount(
		l.nativeTokenLockedAmount, NativeDecimals, ledger.Decimals,
		r.cfg.NativeTokenAddress, r.cfg.CoreBTCAddress,
	)
}

// capacity floors at zero rather than erroring when netMinted already
// exceeds the collateral-backed ceiling: that state is reachable (a price
// drop can push a previously well-collateralized locker there) and is
// exactly what makes the locker liquidatable, not a programming error.
func (r *Registry) capacity(l *locker) (*big.Int, error) {
	cv, err := r.collateralValueBTC(l)
	if err != nil {
		return nil, err
	}
	scaled, err := common.MulDiv(cv, big.NewInt(bridgecfg.MaxBasisPoints), new(big.Int).SetUint64(r.cfg.CollateralRatio))
	if err != nil {
		return nil, err
	}
	if scaled.Cmp(l.netMinted) <= 0 {
		return new(big.Int), nil
	}
	return new(big.Int).Sub(scaled, l.netMinted), nil
}

// Capacity is the public, query-only form of capacity.
func (r *Registry) Capacity(target ethcommon.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.lockerByTarget(target)
	if err != nil {
		return nil, err
	}
	return r.capacity(l)
}

// healthFactor returns (factor, liquidatable, err). A locker with zero
// netMinted carries no debt and is never liquidatable regardless of
// collateral value, sidestepping the division by zero spec.md §4.2's
// formula would otherwise hit.
func (r *Registry) healthFactor(l *locker) (*big.Int, bool, error) {
	if l.netMinted.Sign() == 0 {
		return nil, false, nil
	}
	cv, err := r.collateralValueBTC(l)
	if err != nil {
		return nil, false, err
	}
	num := new(big.Int).Mul(cv, big.NewInt(bridgecfg.MaxBasisPoints))
	num.Mul(num, big.NewInt(UpperHealthFactor))
	den := new(big.Int).Mul(l.netMinted, new(big.Int).SetUint64(r.cfg.LiquidationRatio))
	hf := new(big.Int).Div(num, den)
	return hf, hf.Cmp(big.NewInt(HealthFactor)) < 0, nil
}

func (r *Registry) HealthFactor(target ethcommon.Address) (*big.Int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.lockerByTarget(target)
	if err != nil {
		return nil, false, err
	}
	return r.healthFactor(l)
}

// getMaximumBuyableCollateral bounds a single liquidateLocker call to never
// remove more native collateral than is posted, nor more than covers the
// locker's outstanding debt at the discounted price — spec.md §4.2 leaves
// the exact bound unspecified beyond naming it; this is the resolution
// recorded in DESIGN.md.
func (r *Registry) getMaximumBuyableCollateral(l *locker) (*big.Int, error) {
	debtEquivNative, err := r.oracle.EquivalentOutputAmountWithDiscount(
		l.netMinted, ledger.Decimals, NativeDecimals,
		r.cfg.CoreBTCAddress, r.cfg.NativeTokenAddress, r.cfg.PriceWithDiscountRatio,
	)
	if err != nil {
		return nil, err
	}
	if l.nativeTokenLockedAmount.Cmp(debtEquivNative) < 0 {
		return new(big.Int).Set(l.nativeTokenLockedAmount), nil
	}
	return debtEquivNative, nil
}

// --- locker lifecycle (spec.md §4.2 state machine) ---

func (r *Registry) RequestToBecomeLocker(
	caller ethcommon.Address,
	script []byte,
	nativeAmount *big.Int,
	rescueType btcspv.ScriptType,
	rescueScript []byte,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nativeAmount == nil || nativeAmount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if nativeAmount.Cmp(r.cfg.MinRequiredTNTLockedAmount) < 0 {
		return ErrBelowMinCollateral
	}
	key := scriptKey(script)
	if _, exists := r.lockers[key]; exists {
		return ErrScriptAlreadyLocker
	}
	if existingKey, ok := r.targetToScript[caller]; ok {
		existing := r.lockers[existingKey]
		if existing.isCandidate {
			return ErrAlreadyCandidate
		}
		if existing.isLocker {
			return ErrAlreadyLocker
		}
	}

	l := newLocker()
	l.lockingScript = append([]byte(nil), script...)
	l.rescueScript = append([]byte(nil), rescueScript...)
	l.rescueType = rescueType
	l.nativeTokenLockedAmount = new(big.Int).Set(nativeAmount)
	l.isCandidate = true
	l.targetAddress = caller

	r.lockers[key] = l
	r.targetToScript[caller] = key

	if r.bus != nil {
		r.bus.EmitRequestAddLocker(&bridgeevents.RequestAddLockerEvent{
			Candidate: caller, LockingScript: l.lockingScript, NativeAmount: new(big.Int).Set(nativeAmount),
		})
	}
	return r.persist(key)
}

func (r *Registry) RevokeRequest(caller ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.targetToScript[caller]
	if !ok {
		return ErrNoSuchLocker
	}
	l := r.lockers[key]
	if !l.isCandidate {
		return ErrNotCandidate
	}

	if err := r.native.Pay(caller, l.nativeTokenLockedAmount); err != nil {
		return err
	}

	delete(r.lockers, key)
	delete(r.targetToScript, caller)

	if r.bus != nil {
		r.bus.EmitRevokeAddLockerRequest(&bridgeevents.RevokeAddLockerRequestEvent{Candidate: caller})
	}
	return r.deletePersisted(key)
}

func (r *Registry) AddLocker(caller, target ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(caller); err != nil {
		return err
	}
	l, err := r.lockerByTarget(target)
	if err != nil {
		return err
	}
	if !l.isCandidate {
		return ErrNotCandidate
	}
	l.isCandidate = false
	l.isLocker = true

	if r.bus != nil {
		r.bus.EmitLockerAdded(&bridgeevents.LockerAddedEvent{LockerTarget: target, LockingScript: l.lockingScript})
	}
	return r.persist(scriptKey(l.lockingScript))
}

func (r *Registry) AddCollateral(caller, target ethcommon.Address, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	l, err := r.lockerByTarget(target)
	if err != nil {
		return err
	}
	sum, err := common.CheckedAdd(l.nativeTokenLockedAmount, amount)
	if err != nil {
		return err
	}
	l.nativeTokenLockedAmount = sum

	if r.bus != nil {
		r.bus.EmitCollateralAdded(&bridgeevents.CollateralAddedEvent{LockerTarget: target, Adder: caller, Amount: new(big.Int).Set(amount)})
	}
	return r.persist(scriptKey(l.lockingScript))
}

func (r *Registry) RemoveCollateral(caller ethcommon.Address, now int64, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	l, err := r.lockerByTarget(caller)
	if err != nil {
		return err
	}
	if !l.isInactive(now) {
		return ErrNotInactive
	}

	remaining, err := common.CheckedSub(l.nativeTokenLockedAmount, amount)
	if err != nil {
		return err
	}
	saved := l.nativeTokenLockedAmount
	l.nativeTokenLockedAmount = remaining
	// capacity() floors at zero, so the remaining collateral is checked
	// against netMinted directly.
	cv, err := r.collateralValueBTC(l)
	if err != nil {
		l.nativeTokenLockedAmount = saved
		return err
	}
	scaled, err := common.MulDiv(cv, big.NewInt(bridgecfg.MaxBasisPoints), new(big.Int).SetUint64(r.cfg.CollateralRatio))
	if err != nil {
		l.nativeTokenLockedAmount = saved
		return err
	}
	if scaled.Cmp(l.netMinted) < 0 {
		l.nativeTokenLockedAmount = saved
		return ErrInsufficientCollateral
	}

	if err := r.native.Pay(caller, amount); err != nil {
		l.nativeTokenLockedAmount = saved
		return err
	}

	if r.bus != nil {
		r.bus.EmitCollateralRemoved(&bridgeevents.CollateralRemovedEvent{LockerTarget: caller, Amount: new(big.Int).Set(amount)})
	}
	return r.persist(scriptKey(l.lockingScript))
}

func (r *Registry) RequestInactivateLocker(caller ethcommon.Address, now, inactivationDelaySeconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lockerByTarget(caller)
	if err != nil {
		return err
	}
	if !l.isActive(now) {
		return ErrNotActive
	}
	l.inactivationTimestamp = now + inactivationDelaySeconds

	if r.bus != nil {
		r.bus.EmitRequestInactivateLocker(&bridgeevents.RequestInactivateLockerEvent{
			LockerTarget: caller, InactivationTimestamp: l.inactivationTimestamp,
		})
	}
	return r.persist(scriptKey(l.lockingScript))
}

func (r *Registry) ActivateLocker(caller ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lockerByTarget(caller)
	if err != nil {
		return err
	}
	if !l.isLocker || l.inactivationTimestamp == 0 {
		return ErrNotInactive
	}
	l.inactivationTimestamp = 0

	if r.bus != nil {
		r.bus.EmitActivateLocker(&bridgeevents.ActivateLockerEvent{LockerTarget: caller})
	}
	return r.persist(scriptKey(l.lockingScript))
}

func (r *Registry) SelfRemoveLocker(caller ethcommon.Address, now int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lockerByTarget(caller)
	if err != nil {
		return err
	}
	if !l.isInactive(now) {
		return ErrNotInactive
	}
	if l.netMinted.Sign() != 0 || l.slashingCoreBTCAmount.Sign() != 0 {
		return ErrOutstandingObligations
	}

	if err := r.native.Pay(caller, l.nativeTokenLockedAmount); err != nil {
		return err
	}

	key := scriptKey(l.lockingScript)
	delete(r.lockers, key)
	delete(r.targetToScript, caller)

	if r.bus != nil {
		r.bus.EmitLockerRemoved(&bridgeevents.LockerRemovedEvent{LockerTarget: caller})
	}
	return r.deletePersisted(key)
}

// --- mint / burn (spec.md §4.2, the only authorized caller of Ledger) ---

func (r *Registry) Mint(caller ethcommon.Address, now int64, script []byte, receiver ethcommon.Address, btcTxId [32]byte, amount *big.Int, blockHeight uint64) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.minters[caller] {
		return nil, ErrNotMinter
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	l, ok := r.lockers[scriptKey(script)]
	if !ok {
		return nil, ErrNoSuchLocker
	}
	if !l.isActive(now) {
		return nil, ErrNotActive
	}

	capNow, err := r.capacity(l)
	if err != nil {
		return nil, err
	}
	if capNow.Cmp(amount) < 0 {
		return nil, ErrInsufficientCapacity
	}

	netMinted, err := common.CheckedAdd(l.netMinted, amount)
	if err != nil {
		return nil, err
	}

	lockerFee, err := common.MulDiv(amount, new(big.Int).SetUint64(r.cfg.LockerPercentageFee), big.NewInt(bridgecfg.MaxBasisPoints))
	if err != nil {
		return nil, err
	}
	net, err := common.CheckedSub(amount, lockerFee)
	if err != nil {
		return nil, err
	}

	if err := r.ledger.Mint(r.address, receiver, net, blockHeight); err != nil {
		return nil, err
	}
	if lockerFee.Sign() > 0 {
		if err := r.ledger.Mint(r.address, l.targetAddress, lockerFee, blockHeight); err != nil {
			return nil, err
		}
	}
	l.netMinted = netMinted

	if r.bus != nil {
		r.bus.EmitMint(&bridgeevents.MintEvent{LockerTarget: l.targetAddress, Receiver: receiver, BtcTxId: btcTxId, Amount: new(big.Int).Set(amount)})
	}
	return net, r.persist(scriptKey(script))
}

// Burn is called by the BurnRouter; caller pulls amount from its own
// balance into Registry, burns amount-lockerFee, forwards lockerFee to the
// locker, and returns afterLockerFee to the Router for its own burntAmount
// computation (spec.md §4.3 step 5-6).
func (r *Registry) Burn(caller ethcommon.Address, script []byte, amount *big.Int) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRouter(caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	l, ok := r.lockers[scriptKey(script)]
	if !ok {
		return nil, ErrNoSuchLocker
	}

	lockerFee, err := common.MulDiv(amount, new(big.Int).SetUint64(r.cfg.LockerPercentageFee), big.NewInt(bridgecfg.MaxBasisPoints))
	if err != nil {
		return nil, err
	}
	afterLockerFee, err := common.CheckedSub(amount, lockerFee)
	if err != nil {
		return nil, err
	}
	if l.netMinted.Cmp(afterLockerFee) < 0 {
		return nil, ErrInsufficientNetMinted
	}

	if err := r.ledger.TransferFrom(r.address, caller, r.address, amount); err != nil {
		return nil, err
	}
	if lockerFee.Sign() > 0 {
		if err := r.ledger.Transfer(r.address, l.targetAddress, lockerFee); err != nil {
			return nil, err
		}
	}
	if err := r.ledger.Burn(r.address, afterLockerFee); err != nil {
		return nil, err
	}

	l.netMinted = new(big.Int).Sub(l.netMinted, afterLockerFee)
	return afterLockerFee, r.persist(scriptKey(script))
}

// --- slashing (spec.md §4.2, §9 Open Questions on the netMinted asymmetry) ---

func (r *Registry) SlashIdleLocker(caller, target ethcommon.Address, rewardAmountBTC *big.Int, rewardRecipient ethcommon.Address, amountBTC *big.Int, userRecipient ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRouter(caller); err != nil {
		return err
	}
	l, err := r.lockerByTarget(target)
	if err != nil {
		return err
	}

	userWanted, err := r.oracle.EquivalentOutputAmount(amountBTC, ledger.Decimals, NativeDecimals, r.cfg.CoreBTCAddress, r.cfg.NativeTokenAddress)
	if err != nil {
		return err
	}
	rewardWanted, err := r.oracle.EquivalentOutputAmount(rewardAmountBTC, ledger.Decimals, NativeDecimals, r.cfg.CoreBTCAddress, r.cfg.NativeTokenAddress)
	if err != nil {
		return err
	}
	wanted, err := common.CheckedAdd(userWanted, rewardWanted)
	if err != nil {
		return err
	}

	available := l.nativeTokenLockedAmount
	var userPaid, slasherPaid *big.Int
	if wanted.Cmp(available) <= 0 {
		userPaid, slasherPaid = userWanted, rewardWanted
	} else {
		userPaid, err = common.MulDiv(userWanted, available, wanted)
		if err != nil {
			return err
		}
		slasherPaid, err = common.MulDiv(rewardWanted, available, wanted)
		if err != nil {
			return err
		}
		shortfallNative := new(big.Int).Sub(wanted, available)
		shortfallBTC, err := r.oracle.EquivalentOutputAmount(shortfallNative, NativeDecimals, ledger.Decimals, r.cfg.NativeTokenAddress, r.cfg.CoreBTCAddress)
		if err != nil {
			return err
		}
		slashed, err := common.CheckedAdd(l.slashingCoreBTCAmount, shortfallBTC)
		if err != nil {
			return err
		}
		l.slashingCoreBTCAmount = slashed
	}

	totalPaid := new(big.Int).Add(userPaid, slasherPaid)
	l.nativeTokenLockedAmount = new(big.Int).Sub(available, totalPaid)

	if userPaid.Sign() > 0 {
		if err := r.native.Pay(userRecipient, userPaid); err != nil {
			return err
		}
	}
	if slasherPaid.Sign() > 0 {
		if err := r.native.Pay(rewardRecipient, slasherPaid); err != nil {
			return err
		}
	}

	if l.netMinted.Cmp(amountBTC) < 0 {
		l.netMinted = new(big.Int)
	} else {
		l.netMinted = new(big.Int).Sub(l.netMinted, amountBTC)
	}

	if r.bus != nil {
		r.bus.EmitLockerSlashed(&bridgeevents.LockerSlashedEvent{
			Kind: bridgeevents.SlashedIdle, LockerTarget: target,
			RewardAmount: new(big.Int).Set(slasherPaid), Recipient: userRecipient, BtcAmount: new(big.Int).Set(amountBTC),
		})
	}
	return r.persist(scriptKey(l.lockingScript))
}

// SlashThiefLocker does NOT decrement netMinted — spec.md §9 freezes this
// asymmetry: the stolen BTC's wrapped representation stays outstanding
// until buyers retire it via BuySlashedCollateralOfLocker.
func (r *Registry) SlashThiefLocker(caller, target ethcommon.Address, rewardAmountBTC *big.Int, rewardRecipient ethcommon.Address, amountBTC *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRouter(caller); err != nil {
		return err
	}
	l, err := r.lockerByTarget(target)
	if err != nil {
		return err
	}

	rewardWanted, err := r.oracle.EquivalentOutputAmountWithDiscount(
		rewardAmountBTC, ledger.Decimals, NativeDecimals, r.cfg.CoreBTCAddress, r.cfg.NativeTokenAddress, r.cfg.PriceWithDiscountRatio,
	)
	if err != nil {
		return err
	}

	paid := rewardWanted
	if l.nativeTokenLockedAmount.Cmp(paid) < 0 {
		paid = new(big.Int).Set(l.nativeTokenLockedAmount)
	}
	l.nativeTokenLockedAmount = new(big.Int).Sub(l.nativeTokenLockedAmount, paid)

	if paid.Sign() > 0 {
		if err := r.native.Pay(rewardRecipient, paid); err != nil {
			return err
		}
	}

	slashed, err := common.CheckedAdd(l.slashingCoreBTCAmount, amountBTC)
	if err != nil {
		return err
	}
	l.slashingCoreBTCAmount = slashed

	if r.bus != nil {
		r.bus.EmitLockerSlashed(&bridgeevents.LockerSlashedEvent{
			Kind: bridgeevents.SlashedThief, LockerTarget: target,
			RewardAmount: new(big.Int).Set(paid), Recipient: rewardRecipient, BtcAmount: new(big.Int).Set(amountBTC),
		})
	}
	return r.persist(scriptKey(l.lockingScript))
}

// --- liquidation / slashed-collateral sale (spec.md §4.2) ---

// LiquidateLocker burns the buyer's wrapped-BTC against the locker's debt
// directly rather than literally routing through BurnRouter: Registry
// cannot call forward into Router without breaking the Ledger ← Registry ←
// Router dependency order of spec.md §2/§5, so it performs the router's
// "effective" burn itself. See DESIGN.md.
func (r *Registry) LiquidateLocker(caller, target ethcommon.Address, collateralAmount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if collateralAmount == nil || collateralAmount.Sign() <= 0 {
		return ErrZeroAmount
	}
	l, err := r.lockerByTarget(target)
	if err != nil {
		return err
	}

	_, liquidatable, err := r.healthFactor(l)
	if err != nil {
		return err
	}
	if !liquidatable {
		return ErrNotLiquidatable
	}

	maxBuyable, err := r.getMaximumBuyableCollateral(l)
	if err != nil {
		return err
	}
	if collateralAmount.Cmp(maxBuyable) > 0 {
		return ErrExceedsMaxBuyable
	}

	neededCoreBTC, err := r.oracle.EquivalentOutputAmountWithDiscount(
		collateralAmount, NativeDecimals, ledger.Decimals, r.cfg.NativeTokenAddress, r.cfg.CoreBTCAddress, r.cfg.PriceWithDiscountRatio,
	)
	if err != nil {
		return err
	}

	if err := r.ledger.TransferFrom(r.address, caller, r.address, neededCoreBTC); err != nil {
		return err
	}
	if err := r.ledger.Burn(r.address, neededCoreBTC); err != nil {
		return err
	}

	if l.netMinted.Cmp(neededCoreBTC) < 0 {
		l.netMinted = new(big.Int)
	} else {
		l.netMinted = new(big.Int).Sub(l.netMinted, neededCoreBTC)
	}
	l.nativeTokenLockedAmount = new(big.Int).Sub(l.nativeTokenLockedAmount, collateralAmount)

	if err := r.native.Pay(caller, collateralAmount); err != nil {
		return err
	}

	if r.bus != nil {
		r.bus.EmitLockerLiquidated(&bridgeevents.LockerLiquidatedEvent{LockerTarget: target, Buyer: caller, CollateralAmount: new(big.Int).Set(collateralAmount)})
	}
	return r.persist(scriptKey(l.lockingScript))
}

func (r *Registry) BuySlashedCollateralOfLocker(caller, target ethcommon.Address, collateralAmount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if collateralAmount == nil || collateralAmount.Sign() <= 0 {
		return ErrZeroAmount
	}
	l, err := r.lockerByTarget(target)
	if err != nil {
		return err
	}
	if l.slashingCoreBTCAmount.Sign() <= 0 {
		return ErrNoSlashingBalance
	}
	if collateralAmount.Cmp(l.nativeTokenLockedAmount) > 0 {
		return ErrInsufficientCollateral
	}

	neededCoreBTC, err := r.oracle.EquivalentOutputAmountWithDiscount(
		collateralAmount, NativeDecimals, ledger.Decimals, r.cfg.NativeTokenAddress, r.cfg.CoreBTCAddress, r.cfg.PriceWithDiscountRatio,
	)
	if err != nil {
		return err
	}
	if neededCoreBTC.Cmp(l.slashingCoreBTCAmount) > 0 {
		return ErrExceedsMaxBuyable
	}

	if err := r.ledger.TransferFrom(r.address, caller, r.address, neededCoreBTC); err != nil {
		return err
	}
	if err := r.ledger.Burn(r.address, neededCoreBTC); err != nil {
		return err
	}

	l.slashingCoreBTCAmount = new(big.Int).Sub(l.slashingCoreBTCAmount, neededCoreBTC)
	l.nativeTokenLockedAmount = new(big.Int).Sub(l.nativeTokenLockedAmount, collateralAmount)

	if err := r.native.Pay(caller, collateralAmount); err != nil {
		return err
	}

	if r.bus != nil {
		r.bus.EmitLockerSlashedCollateralSold(&bridgeevents.LockerSlashedCollateralSoldEvent{
			LockerTarget: target, Buyer: caller, CollateralAmount: new(big.Int).Set(collateralAmount), CoreBTCAmount: new(big.Int).Set(neededCoreBTC),
		})
	}
	return r.persist(scriptKey(l.lockingScript))
}

// --- queries ---

func (r *Registry) Locker(target ethcommon.Address) (*LockerSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.lockerByTarget(target)
	if err != nil {
		return nil, err
	}
	return l.snapshot(), nil
}

func (r *Registry) TargetForScript(script []byte) (ethcommon.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lockers[scriptKey(script)]
	if !ok {
		return ethcommon.Address{}, false
	}
	return l.targetAddress, true
}

func (r *Registry) persist(key string) error {
	if r.db == nil {
		return nil
	}
	l, ok := r.lockers[key]
	if !ok {
		return nil
	}
	return r.db.saveLocker(l)
}

func (r *Registry) deletePersisted(key string) error {
	if r.db == nil {
		return nil
	}
	return r.db.deleteLocker(key)
}
