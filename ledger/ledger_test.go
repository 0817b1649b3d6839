package ledger

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	owner = ethcommon.HexToAddress("0x1")
	alice = ethcommon.HexToAddress("0xa11ce")
	bob   = ethcommon.HexToAddress("0xb0b")
)

func newTestLedger(t *testing.T, maxMintLimit int64, epochLength uint64) *Ledger {
	t.Helper()
	l, err := New(owner, big.NewInt(maxMintLimit), epochLength, nil, nil)
	require.NoError(t, err)
	return l
}

func TestNewRejectsZeroOwner(t *testing.T) {
	_, err := New(ethcommon.Address{}, big.NewInt(100), 10, nil, nil)
	require.ErrorIs(t, err, ErrZeroAddress)
}

// Invariant I1: totalSupply always equals the sum of all balances.
func TestTotalSupplyTracksMintAndBurn(t *testing.T) {
	l := newTestLedger(t, 1000, 10)
	require.NoError(t, l.AddMinter(owner, alice))
	require.NoError(t, l.AddBurner(owner, alice))

	require.NoError(t, l.Mint(alice, bob, big.NewInt(400), 0))
	require.Equal(t, big.NewInt(400), l.TotalSupply())
	require.Equal(t, big.NewInt(400), l.BalanceOf(bob))

	require.NoError(t, l.Transfer(bob, alice, big.NewInt(150)))
	require.Equal(t, big.NewInt(400), l.TotalSupply())
	require.Equal(t, big.NewInt(250), l.BalanceOf(bob))
	require.Equal(t, big.NewInt(150), l.BalanceOf(alice))

	require.NoError(t, l.Burn(alice, big.NewInt(150)))
	require.Equal(t, big.NewInt(250), l.TotalSupply())
	require.Equal(t, big.NewInt(0), l.BalanceOf(alice))
}

// Scenario 5 of spec.md §8: an epoch rollover discards unused budget rather
// than carrying it forward.
func TestMintEpochCap(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))

	require.NoError(t, l.Mint(owner, alice, big.NewInt(50), 5))
	err := l.Mint(owner, alice, big.NewInt(60), 5)
	require.ErrorIs(t, err, ErrOverMintLimit)

	require.NoError(t, l.Mint(owner, alice, big.NewInt(100), 10))
	require.Equal(t, big.NewInt(150), l.BalanceOf(alice))
}

func TestMintRejectsNonMinter(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	err := l.Mint(alice, bob, big.NewInt(1), 0)
	require.ErrorIs(t, err, ErrNotMinter)
}

func TestMintRejectsOverMaxMintLimit(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))
	err := l.Mint(owner, alice, big.NewInt(101), 0)
	require.ErrorIs(t, err, ErrOverMintLimit)
}

func TestMintRejectsBlacklistedReceiver(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))
	require.NoError(t, l.AddBlacklister(owner, owner))
	require.NoError(t, l.Blacklist(owner, alice))

	err := l.Mint(owner, alice, big.NewInt(1), 0)
	require.ErrorIs(t, err, ErrBlacklisted)
}

func TestTransferBlacklistGate(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))
	require.NoError(t, l.AddBlacklister(owner, owner))
	require.NoError(t, l.Mint(owner, alice, big.NewInt(10), 0))

	require.NoError(t, l.Blacklist(owner, alice))
	err := l.Transfer(alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrBlacklisted)

	require.NoError(t, l.UnBlacklist(owner, alice))
	require.NoError(t, l.Transfer(alice, bob, big.NewInt(1)))
}

// OwnerBurn bypasses the blacklist gate: a blacklisted account's balance can
// still be zeroed out by the owner.
func TestOwnerBurnBypassesBlacklist(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))
	require.NoError(t, l.AddBlacklister(owner, owner))
	require.NoError(t, l.Mint(owner, alice, big.NewInt(10), 0))
	require.NoError(t, l.Blacklist(owner, alice))

	err := l.Burn(alice, big.NewInt(10))
	require.ErrorIs(t, err, ErrNotBurner)

	require.NoError(t, l.OwnerBurn(owner, alice, big.NewInt(10)))
	require.Equal(t, big.NewInt(0), l.BalanceOf(alice))
}

func TestOwnerBurnRejectsNonOwner(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	err := l.OwnerBurn(alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotOwner)
}

// IsBlacklisted(zero) is permitted and returns false; IsMinter/IsBurner/
// IsBlacklister reject the zero address. This asymmetry is documented in
// spec.md §9 Open Questions and preserved as-is.
func TestZeroAddressQueryAsymmetry(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.False(t, l.IsBlacklisted(ethcommon.Address{}))

	_, err := l.IsMinter(ethcommon.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = l.IsBurner(ethcommon.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = l.IsBlacklister(ethcommon.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)
}

func TestRoleMutationIdempotency(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, alice))
	require.ErrorIs(t, l.AddMinter(owner, alice), ErrAlreadyMinter)

	require.NoError(t, l.RemoveMinter(owner, alice))
	require.ErrorIs(t, l.RemoveMinter(owner, alice), ErrNotCurrentlyMinter)
}

func TestRoleMutationRequiresOwner(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.ErrorIs(t, l.AddMinter(alice, bob), ErrNotOwner)
	require.ErrorIs(t, l.AddBurner(alice, bob), ErrNotOwner)
	require.ErrorIs(t, l.AddBlacklister(alice, bob), ErrNotOwner)
}

func TestTransferFromHonorsAllowance(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))
	require.NoError(t, l.Mint(owner, alice, big.NewInt(100), 0))

	err := l.TransferFrom(bob, alice, bob, big.NewInt(10))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.Approve(alice, bob, big.NewInt(10)))
	require.NoError(t, l.TransferFrom(bob, alice, bob, big.NewInt(10)))
	require.Equal(t, big.NewInt(0), l.Allowance(alice, bob))
	require.Equal(t, big.NewInt(10), l.BalanceOf(bob))

	err = l.TransferFrom(bob, alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	err := l.Transfer(alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestTransferRejectsZeroAddressAndAmount(t *testing.T) {
	l := newTestLedger(t, 100, 10)
	require.NoError(t, l.AddMinter(owner, owner))
	require.NoError(t, l.Mint(owner, alice, big.NewInt(10), 0))

	require.ErrorIs(t, l.Transfer(alice, ethcommon.Address{}, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, l.Transfer(alice, bob, big.NewInt(0)), ErrZeroAmount)
}
