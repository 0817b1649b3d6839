package burnrouter

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/btcpeg/peg-core/bridgecfg"
	"github.com/btcpeg/peg-core/bridgeevents"
	"github.com/btcpeg/peg-core/btcspv"
	"github.com/btcpeg/peg-core/common"
	"github.com/btcpeg/peg-core/ledger"
	"github.com/btcpeg/peg-core/oracle"
	"github.com/btcpeg/peg-core/registry"
	"github.com/btcpeg/peg-core/relay"
)

var (
	owner        = ethcommon.HexToAddress("0x1")
	registryAddr = ethcommon.HexToAddress("0x2")
	routerAddr   = ethcommon.HexToAddress("0x3")
	treasury     = ethcommon.HexToAddress("0x4")
	lockerTarget = ethcommon.HexToAddress("0xa11ce")
	user         = ethcommon.HexToAddress("0xb0b")
	nativeToken  = ethcommon.Address{}
	coreBTC      = ethcommon.HexToAddress("0xc0de")
	lockerScript = []byte("a locking script distinguishing this locker")
)

type fixture struct {
	ledg   *ledger.Ledger
	reg    *registry.Registry
	router *Router
	rel    *relay.Simulated
	cfg    *bridgecfg.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := bridgecfg.DefaultConfig()
	cfg.Owner = owner
	cfg.CoreBTCAddress = coreBTC
	cfg.NativeTokenAddress = nativeToken
	cfg.TreasuryAddress = treasury
	cfg.MinRequiredTNTLockedAmount = big.NewInt(1000)
	cfg.CollateralRatio = 15000
	cfg.LiquidationRatio = 13000
	cfg.LockerPercentageFee = 100  // 1%
	cfg.ProtocolPercentageFee = 50 // 0.5%
	cfg.SlasherPercentageReward = 500
	cfg.PriceWithDiscountRatio = 9500
	cfg.BitcoinFee = 1000
	cfg.TransferDeadline = 20
	cfg.MaxMintLimit = big.NewInt(1_000_000_000)
	cfg.EpochLength = 1

	ledg, err := ledger.New(owner, cfg.MaxMintLimit, cfg.EpochLength, nil, nil)
	require.NoError(t, err)

	orc := oracle.NewSimulated()
	orc.SetPrice(nativeToken, coreBTC, big.NewInt(10_000_000_000), big.NewInt(1))
	orc.SetPrice(coreBTC, nativeToken, big.NewInt(1), big.NewInt(10_000_000_000))

	native := registry.NewSimulatedNative()
	native.Fund(big.NewInt(1_000_000_000))

	reg, err := registry.New(registryAddr, owner, cfg, ledg, orc, native, nil, nil)
	require.NoError(t, err)

	rel := relay.NewSimulated(6)

	router, err := New(routerAddr, owner, cfg, ledg, reg, rel, nil, bridgeevents.NewBus(8))
	require.NoError(t, err)

	require.NoError(t, ledg.AddMinter(owner, registryAddr))
	require.NoError(t, ledg.AddBurner(owner, registryAddr))
	require.NoError(t, ledg.AddBurner(owner, routerAddr))
	require.NoError(t, reg.SetRouter(owner, routerAddr))
	require.NoError(t, reg.AddMinter(owner, routerAddr))

	// CcBurn pulls the end user's funds into the Router's own account, then
	// calls Registry.Burn(r.address, ...), which in turn does
	// ledger.TransferFrom(registryAddr, routerAddr, registryAddr, remaining)
	// on the Router's behalf. That TransferFrom needs a standing
	// routerAddr -> registryAddr allowance; nothing else grants it, so the
	// Router establishes it once up front the same way it would at
	// real wiring time (see cmd/bridgecore/main.go).
	require.NoError(t, ledg.Approve(routerAddr, registryAddr, common.MaxUint256))

	require.NoError(t, reg.RequestToBecomeLocker(lockerTarget, lockerScript, big.NewInt(200_000_000), 0, make([]byte, 20)))
	require.NoError(t, reg.AddLocker(owner, lockerTarget))

	return &fixture{ledg: ledg, reg: reg, router: router, rel: rel, cfg: cfg}
}

// mintTo gives user a wrapped-BTC balance via Registry.Mint, the way a real
// deposit flow (out of this module's scope) would, and returns the net
// amount actually credited (amount minus the locker's cut).
func (f *fixture) mintTo(t *testing.T, to ethcommon.Address, amount int64) *big.Int {
	t.Helper()
	var txId [32]byte
	net, err := f.reg.Mint(routerAddr, 0, lockerScript, to, txId, big.NewInt(amount), 0)
	require.NoError(t, err)
	return net
}

func TestCcBurnAppliesFeesAndEmitsRequest(t *testing.T) {
	f := newFixture(t)
	amount := f.mintTo(t, user, 100_000_000) // 1 "BTC" of wrapped supply, net of the locker's mint-side cut
	require.NoError(t, f.ledg.Approve(user, routerAddr, amount))

	userScript := make([]byte, 20)
	lockerBefore := f.ledg.BalanceOf(lockerTarget) // mint-side locker fee already credited
	burntAmount, err := f.router.CcBurn(user, amount, userScript, btcspv.ScriptTypeP2PKH, lockerScript)
	require.NoError(t, err)

	// Recompute the expected value with the exact same checked-arithmetic
	// sequence CcBurn/Registry.Burn perform, rather than an independently
	// derived formula, so this test pins the implementation's behavior.
	protocolFee, err := common.MulDiv(amount, big.NewInt(int64(f.cfg.ProtocolPercentageFee)), big.NewInt(bridgecfg.MaxBasisPoints))
	require.NoError(t, err)
	remaining, err := common.CheckedSub(amount, protocolFee)
	require.NoError(t, err)
	lockerFee, err := common.MulDiv(remaining, big.NewInt(int64(f.cfg.LockerPercentageFee)), big.NewInt(bridgecfg.MaxBasisPoints))
	require.NoError(t, err)
	afterLockerFee, err := common.CheckedSub(remaining, lockerFee)
	require.NoError(t, err)
	netOfMinerFee, err := common.CheckedSub(remaining, big.NewInt(int64(f.cfg.BitcoinFee)))
	require.NoError(t, err)
	expected, err := common.MulDiv(afterLockerFee, netOfMinerFee, remaining)
	require.NoError(t, err)

	require.Equal(t, expected, burntAmount)
	require.Equal(t, protocolFee, f.ledg.BalanceOf(treasury))
	require.Equal(t, new(big.Int).Add(lockerBefore, lockerFee), f.ledg.BalanceOf(lockerTarget))

	req, err := f.router.BurnRequest(lockerScript, 0)
	require.NoError(t, err)
	require.Equal(t, burntAmount, req.BurntAmount)
	require.False(t, req.IsTransferred)
}

func TestCcBurnRejectsBelowDustFloor(t *testing.T) {
	f := newFixture(t)
	net := f.mintTo(t, user, 10_000)
	require.NoError(t, f.ledg.Approve(user, routerAddr, net))

	// protocolFee(0.5% of 10) + 2*bitcoinFee(1000) comfortably exceeds a
	// 10-unit burn, so it must be rejected before any balance moves.
	_, err := f.router.CcBurn(user, big.NewInt(10), make([]byte, 20), btcspv.ScriptTypeP2PKH, lockerScript)
	require.ErrorIs(t, err, ErrBelowDustFloor)
	require.Equal(t, net, f.ledg.BalanceOf(user))
}

func TestCcBurnRejectsUnknownLocker(t *testing.T) {
	f := newFixture(t)
	net := f.mintTo(t, user, 100_000_000)
	require.NoError(t, f.ledg.Approve(user, routerAddr, net))

	_, err := f.router.CcBurn(user, net, make([]byte, 20), btcspv.ScriptTypeP2PKH, []byte("nonexistent script"))
	require.ErrorIs(t, err, ErrNoSuchLocker)
}

func TestCcBurnRejectsWrongScriptLength(t *testing.T) {
	f := newFixture(t)
	net := f.mintTo(t, user, 100_000_000)
	require.NoError(t, f.ledg.Approve(user, routerAddr, net))

	_, err := f.router.CcBurn(user, net, make([]byte, 19), btcspv.ScriptTypeP2PKH, lockerScript)
	require.ErrorIs(t, err, ErrInvalidScriptLength)
}

// Scenario 2 of spec.md §8: once the relay advances past a request's
// deadline without a burn proof, disputeBurn slashes the idle locker.
func TestDisputeBurnAfterDeadline(t *testing.T) {
	f := newFixture(t)
	net := f.mintTo(t, user, 100_000_000)
	require.NoError(t, f.ledg.Approve(user, routerAddr, net))

	f.rel.SubmitBlock(1, chainhash.Hash{})
	_, err := f.router.CcBurn(user, net, make([]byte, 20), btcspv.ScriptTypeP2PKH, lockerScript)
	require.NoError(t, err)

	err = f.router.DisputeBurn(owner, lockerScript, []int{0})
	require.ErrorIs(t, err, ErrDeadlineNotElapsed)

	f.rel.SubmitBlock(1+f.cfg.TransferDeadline+1, chainhash.Hash{})
	require.NoError(t, f.router.DisputeBurn(owner, lockerScript, []int{0}))

	req, err := f.router.BurnRequest(lockerScript, 0)
	require.NoError(t, err)
	require.True(t, req.IsTransferred)

	err = f.router.DisputeBurn(owner, lockerScript, []int{0})
	require.ErrorIs(t, err, ErrAlreadyTransferred)
}

func TestDisputeBurnRejectsNonOwner(t *testing.T) {
	f := newFixture(t)
	err := f.router.DisputeBurn(user, lockerScript, []int{0})
	require.ErrorIs(t, err, ErrNotOwner)
}

// Scenario 6 of spec.md §8: un-sorted voutIndexes (here a repeated index,
// which would let one output discharge two requests) are rejected outright.
func TestBurnProofRejectsUnsortedVoutIndexes(t *testing.T) {
	f := newFixture(t)
	err := f.router.BurnProof(nil, 0, nil, 0, lockerScript, []int{0, 1}, []int{2, 2})
	require.ErrorIs(t, err, ErrVoutIndexesUnsorted)
}

func TestBurnProofRejectsIndexLengthMismatch(t *testing.T) {
	f := newFixture(t)
	err := f.router.BurnProof(nil, 0, nil, 0, lockerScript, []int{0, 1}, []int{1})
	require.ErrorIs(t, err, ErrIndexLengthMismatch)
}

func TestBurnProofRejectsBelowStartingBlock(t *testing.T) {
	f := newFixture(t)
	f.cfg.StartingBlockNumber = 100
	err := f.router.BurnProof(nil, 50, nil, 0, lockerScript, nil, nil)
	require.ErrorIs(t, err, ErrBelowStartingBlock)
}

func TestIsUsedAsBurnProofDefaultsFalse(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.router.IsUsedAsBurnProof(chainhash.Hash{}))
}

func TestNewRejectsZeroAddress(t *testing.T) {
	f := newFixture(t)
	_, err := New(ethcommon.Address{}, owner, f.cfg, f.ledg, f.reg, f.rel, nil, nil)
	require.ErrorIs(t, err, ErrZeroAddress)
}
