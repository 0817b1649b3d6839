package registry

import (
	"math/big"
	"testing"

	"github.com/btcpeg/peg-core/bridgecfg"
	"github.com/btcpeg/peg-core/bridgeevents"
	"github.com/btcpeg/peg-core/ledger"
	"github.com/btcpeg/peg-core/oracle"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	owner         = ethcommon.HexToAddress("0x1")
	registryAddr  = ethcommon.HexToAddress("0x2")
	routerAddr    = ethcommon.HexToAddress("0x3")
	lockerTarget  = ethcommon.HexToAddress("0xa11ce")
	otherTarget   = ethcommon.HexToAddress("0xb0b")
	nativeToken   = ethcommon.Address{}
	coreBTC       = ethcommon.HexToAddress("0xc0de")
	userRecipient = ethcommon.HexToAddress("0xd00d")
	lockerScript  = []byte("a locking script distinguishing this locker")
)

// fixture wires a Ledger + Registry + SimulatedNative + Simulated oracle
// with a 1:1 native-to-BTC price and registers the Registry as the
// Ledger's minter/burner, the way cmd/bridgecore does.
type fixture struct {
	ledg   *ledger.Ledger
	reg    *Registry
	orc    *oracle.Simulated
	native *SimulatedNative
	cfg    *bridgecfg.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := bridgecfg.DefaultConfig()
	cfg.Owner = owner
	cfg.CoreBTCAddress = coreBTC
	cfg.NativeTokenAddress = nativeToken
	cfg.MinRequiredTNTLockedAmount = big.NewInt(1000)
	cfg.CollateralRatio = 15000
	cfg.LiquidationRatio = 13000
	cfg.LockerPercentageFee = 0
	cfg.PriceWithDiscountRatio = 9500
	cfg.MaxMintLimit = big.NewInt(1_000_000_000)
	cfg.EpochLength = 1

	ledg, err := ledger.New(owner, cfg.MaxMintLimit, cfg.EpochLength, nil, nil)
	require.NoError(t, err)

	// Native carries 18 decimals, core BTC carries 8; these numerator/
	// denominator pairs cancel that decimal gap so a 1:1 value price reads
	// as the identity function on the raw integers used throughout these
	// tests (oracle.Simulated rescales by the decimals difference itself).
	orc := oracle.NewSimulated()
	orc.SetPrice(nativeToken, coreBTC, big.NewInt(10_000_000_000), big.NewInt(1))
	orc.SetPrice(coreBTC, nativeToken, big.NewInt(1), big.NewInt(10_000_000_000))

	native := NewSimulatedNative()
	native.Fund(big.NewInt(1_000_000_000))

	reg, err := New(registryAddr, owner, cfg, ledg, orc, native, nil, bridgeevents.NewBus(8))
	require.NoError(t, err)

	require.NoError(t, ledg.AddMinter(owner, registryAddr))
	require.NoError(t, ledg.AddBurner(owner, registryAddr))
	require.NoError(t, reg.SetRouter(owner, routerAddr))

	return &fixture{ledg: ledg, reg: reg, orc: orc, native: native, cfg: cfg}
}

func (f *fixture) onboardLocker(t *testing.T, script []byte, target ethcommon.Address, nativeAmount int64) {
	t.Helper()
	require.NoError(t, f.reg.RequestToBecomeLocker(target, script, big.NewInt(nativeAmount), 0, make([]byte, 20)))
	require.NoError(t, f.reg.AddLocker(owner, target))
}

func TestLockerLifecycle(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.reg.RequestToBecomeLocker(lockerTarget, lockerScript, big.NewInt(10_000), 0, make([]byte, 20)))
	snap, err := f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.True(t, snap.IsCandidate)
	require.False(t, snap.IsLocker)

	require.NoError(t, f.reg.AddLocker(owner, lockerTarget))
	snap, err = f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.False(t, snap.IsCandidate)
	require.True(t, snap.IsLocker)

	require.NoError(t, f.reg.RequestInactivateLocker(lockerTarget, 1000, 100))
	snap, _ = f.reg.Locker(lockerTarget)
	require.Equal(t, int64(1100), snap.InactivationTimestamp)

	require.NoError(t, f.reg.ActivateLocker(lockerTarget))
	snap, _ = f.reg.Locker(lockerTarget)
	require.Equal(t, int64(0), snap.InactivationTimestamp)

	require.NoError(t, f.reg.RequestInactivateLocker(lockerTarget, 1000, 0))
	require.NoError(t, f.reg.SelfRemoveLocker(lockerTarget, 1000))
	_, err = f.reg.Locker(lockerTarget)
	require.ErrorIs(t, err, ErrNoSuchLocker)
	require.Equal(t, big.NewInt(10_000), f.native.PaidTo(lockerTarget))
}

func TestRequestToBecomeLockerBelowMinCollateral(t *testing.T) {
	f := newFixture(t)
	err := f.reg.RequestToBecomeLocker(lockerTarget, lockerScript, big.NewInt(1), 0, make([]byte, 20))
	require.ErrorIs(t, err, ErrBelowMinCollateral)
}

func TestRevokeRequestReturnsCollateral(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.RequestToBecomeLocker(lockerTarget, lockerScript, big.NewInt(5000), 0, make([]byte, 20)))
	require.NoError(t, f.reg.RevokeRequest(lockerTarget))
	require.Equal(t, big.NewInt(5000), f.native.PaidTo(lockerTarget))
	_, err := f.reg.Locker(lockerTarget)
	require.ErrorIs(t, err, ErrNoSuchLocker)
}

func TestCapacityAndHealthFactor(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)

	// collateralValueBTC = 15_000 (1:1 price); capacity = cv*10000/15000 = 10_000.
	cap, err := f.reg.Capacity(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10_000), cap)

	require.NoError(t, f.reg.AddMinter(owner, routerAddr))
	var txId [32]byte
	_, err = f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(10_000), 0)
	require.NoError(t, err)

	cap, err = f.reg.Capacity(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), cap)

	_, liquidatable, err := f.reg.HealthFactor(lockerTarget)
	require.NoError(t, err)
	require.False(t, liquidatable) // capacity is used up, but health factor (11_538) is still above 10_000

	// Halve the price: collateralValueBTC drops to 7_500, netMinted stays
	// 10_000 — now undercollateralized and liquidatable.
	f.orc.SetPrice(nativeToken, coreBTC, big.NewInt(10_000_000_000), big.NewInt(2))
	_, liquidatable, err = f.reg.HealthFactor(lockerTarget)
	require.NoError(t, err)
	require.True(t, liquidatable)
}

func TestHealthFactorZeroNetMintedNeverLiquidatable(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	f.orc.SetPrice(nativeToken, coreBTC, big.NewInt(1), big.NewInt(1_000_000))

	_, liquidatable, err := f.reg.HealthFactor(lockerTarget)
	require.NoError(t, err)
	require.False(t, liquidatable)
}

func TestMintRejectsOverCapacity(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	require.NoError(t, f.reg.AddMinter(owner, routerAddr))

	var txId [32]byte
	_, err := f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(10_001), 0)
	require.ErrorIs(t, err, ErrInsufficientCapacity)
}

func TestMintRejectsUnregisteredMinter(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)

	var txId [32]byte
	_, err := f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(1), 0)
	require.ErrorIs(t, err, ErrNotMinter)
}

func TestBurnRejectsNonRouterCaller(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	_, err := f.reg.Burn(otherTarget, lockerScript, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotRouter)
}

// Burn is called by BurnRouter with its own address as caller — the actual
// end user's funds are already pulled into the Router's own Ledger account
// by burnrouter.CcBurn before it ever calls Registry.Burn (spec.md §4.3
// steps 3-6). This test exercises that same shape directly: the funds to
// burn sit on routerAddr's own Ledger balance.
func TestBurnRoundTripsMintedAmount(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	require.NoError(t, f.reg.AddMinter(owner, routerAddr))

	var txId [32]byte
	net, err := f.reg.Mint(routerAddr, 0, lockerScript, routerAddr, txId, big.NewInt(10_000), 0)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10_000), net) // lockerPercentageFee == 0 in this fixture

	require.NoError(t, f.ledg.Approve(routerAddr, registryAddr, big.NewInt(10_000)))
	afterLockerFee, err := f.reg.Burn(routerAddr, lockerScript, big.NewInt(10_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10_000), afterLockerFee)

	snap, err := f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), snap.NetMinted)
	require.Equal(t, big.NewInt(0), f.ledg.BalanceOf(routerAddr))
}

// slashIdleLocker reduces netMinted by the slashed amount; slashThiefLocker
// does not — spec.md §9's documented asymmetry.
func TestSlashIdleVsThiefNetMintedAsymmetry(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	require.NoError(t, f.reg.AddMinter(owner, routerAddr))

	var txId [32]byte
	_, err := f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(5_000), 0)
	require.NoError(t, err)

	require.NoError(t, f.reg.SlashIdleLocker(routerAddr, lockerTarget, big.NewInt(100), otherTarget, big.NewInt(2_000), userRecipient))
	snap, err := f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3_000), snap.NetMinted)

	require.NoError(t, f.reg.SlashThiefLocker(routerAddr, lockerTarget, big.NewInt(100), otherTarget, big.NewInt(1_000)))
	snap, err = f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3_000), snap.NetMinted) // unchanged
	require.Equal(t, big.NewInt(1_000), snap.SlashingCoreBTCAmount)
}

func TestSlashIdleLockerRejectsNonRouter(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	err := f.reg.SlashIdleLocker(otherTarget, lockerTarget, big.NewInt(1), otherTarget, big.NewInt(1), userRecipient)
	require.ErrorIs(t, err, ErrNotRouter)
}

// Scenario 3 of spec.md §8: buySlashedCollateralOfLocker reduces
// slashingCoreBTCAmount and burns the buyer's wrapped-BTC. 950 native at the
// 95% discount costs 902 wrapped-BTC: slashing 1_000 -> 98, supply 5_000 -> 4_098.
func TestBuySlashedCollateralOfLocker(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	require.NoError(t, f.reg.AddMinter(owner, routerAddr))

	var txId [32]byte
	_, err := f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(5_000), 0)
	require.NoError(t, err)
	require.NoError(t, f.reg.SlashThiefLocker(routerAddr, lockerTarget, big.NewInt(0), otherTarget, big.NewInt(1_000)))

	require.NoError(t, f.ledg.Approve(otherTarget, registryAddr, big.NewInt(5_000)))
	err = f.reg.BuySlashedCollateralOfLocker(otherTarget, lockerTarget, big.NewInt(950))
	require.NoError(t, err)

	snap, err := f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(98), snap.SlashingCoreBTCAmount)
	require.Equal(t, big.NewInt(4_098), f.ledg.TotalSupply())
	require.Equal(t, big.NewInt(950), f.native.PaidTo(otherTarget))
}

func TestBuySlashedCollateralRejectsWithNoSlashingBalance(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	err := f.reg.BuySlashedCollateralOfLocker(otherTarget, lockerTarget, big.NewInt(1))
	require.ErrorIs(t, err, ErrNoSlashingBalance)
}

// Scenario 4 of spec.md §8: liquidation proceeds through Registry's direct
// burn once the price drop makes the locker liquidatable.
func TestLiquidateLocker(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	require.NoError(t, f.reg.AddMinter(owner, routerAddr))

	var txId [32]byte
	_, err := f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(10_000), 0)
	require.NoError(t, err)

	err = f.reg.LiquidateLocker(otherTarget, lockerTarget, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotLiquidatable)

	f.orc.SetPrice(nativeToken, coreBTC, big.NewInt(10_000_000_000), big.NewInt(2))

	maxBuyable, err := f.reg.getMaximumBuyableCollateral(mustLocker(t, f, lockerTarget))
	require.NoError(t, err)
	require.True(t, maxBuyable.Sign() > 0)

	require.NoError(t, f.ledg.Approve(otherTarget, registryAddr, big.NewInt(10_000)))
	err = f.reg.LiquidateLocker(otherTarget, lockerTarget, maxBuyable)
	require.NoError(t, err)
	require.Equal(t, maxBuyable, f.native.PaidTo(otherTarget))
}

func TestLiquidateLockerRejectsOverMaxBuyable(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)
	require.NoError(t, f.reg.AddMinter(owner, routerAddr))

	var txId [32]byte
	_, err := f.reg.Mint(routerAddr, 0, lockerScript, otherTarget, txId, big.NewInt(10_000), 0)
	require.NoError(t, err)
	f.orc.SetPrice(nativeToken, coreBTC, big.NewInt(10_000_000_000), big.NewInt(2))

	err = f.reg.LiquidateLocker(otherTarget, lockerTarget, big.NewInt(15_000))
	require.ErrorIs(t, err, ErrExceedsMaxBuyable)
}

func mustLocker(t *testing.T, f *fixture, target ethcommon.Address) *locker {
	t.Helper()
	key, ok := f.reg.targetToScript[target]
	require.True(t, ok)
	return f.reg.lockers[key]
}

func TestAddAndRemoveCollateral(t *testing.T) {
	f := newFixture(t)
	f.onboardLocker(t, lockerScript, lockerTarget, 15_000)

	require.NoError(t, f.reg.AddCollateral(lockerTarget, lockerTarget, big.NewInt(5_000)))
	snap, err := f.reg.Locker(lockerTarget)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(20_000), snap.NativeTokenLockedAmount)

	err = f.reg.RemoveCollateral(lockerTarget, 1, big.NewInt(1_000))
	require.ErrorIs(t, err, ErrNotInactive)

	require.NoError(t, f.reg.RequestInactivateLocker(lockerTarget, 1, 0))
	require.NoError(t, f.reg.RemoveCollateral(lockerTarget, 1, big.NewInt(1_000)))
	snap, _ = f.reg.Locker(lockerTarget)
	require.Equal(t, big.NewInt(19_000), snap.NativeTokenLockedAmount)
	require.Equal(t, big.NewInt(1_000), f.native.PaidTo(lockerTarget))
}
