// Package bridgecfg holds the admin-settable configuration shared by the
// Ledger, Registry, and BurnRouter, and the owner-gated setters that mutate
// it at runtime (spec.md §6 "Administrative surface").
package bridgecfg

import (
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// MaxBasisPoints is the shared denominator of the protocol fee, locker fee
// and slasher reward percentages: a value of MaxBasisPoints represents 100%.
const MaxBasisPoints = 10_000

var (
	ErrZeroAddress      = errors.New("address must not be zero")
	ErrNotOwner         = errors.New("caller is not the owner")
	ErrRatioOutOfRange  = errors.New("ratio out of range")
	ErrCollateralRatio  = errors.New("collateralRatio must exceed liquidationRatio")
	ErrZeroValue        = errors.New("value must be > 0")
	ErrNotIncreasing    = errors.New("startingBlockNumber must strictly increase")
	ErrNotBitcoinOracle = errors.New("caller is not the bitcoinFeeOracle")
)

// Config is the full set of owner-settable parameters binding the three
// components (spec.md §6). ChannelSize mirrors the teacher's
// state.Config.ChannelSize for the event bus (bridgeevents) buffering.
type Config struct {
	Owner            ethcommon.Address
	BitcoinFeeOracle ethcommon.Address // distinct principal, sets BitcoinFee only

	RelayAddress    ethcommon.Address
	OracleAddress   ethcommon.Address
	LockersAddress  ethcommon.Address // the Registry, as seen by the Router
	CoreBTCAddress  ethcommon.Address // the Ledger, as seen by the Registry/Router
	TreasuryAddress ethcommon.Address

	// NativeTokenAddress is the oracle pair key for the target chain's
	// native collateral asset; the zero address is a valid sentinel for it
	// (native currency has no ERC20-style contract address of its own).
	NativeTokenAddress ethcommon.Address

	TransferDeadline    uint64 // Bitcoin blocks
	StartingBlockNumber uint64

	ProtocolPercentageFee   uint64 // out of MaxBasisPoints
	SlasherPercentageReward uint64
	LockerPercentageFee     uint64
	PriceWithDiscountRatio  uint64

	CollateralRatio  uint64
	LiquidationRatio uint64

	MinRequiredTNTLockedAmount *big.Int
	BitcoinFee                 uint64 // flat sats, set by BitcoinFeeOracle

	EpochLength  uint64 // target-chain blocks
	MaxMintLimit *big.Int

	ChannelSize int
}

// DefaultConfig mirrors values plausible for a testnet deployment; callers
// load real values via LoadFromViper or set them explicitly before use.
func DefaultConfig() *Config {
	return &Config{
		TransferDeadline:        20,
		ProtocolPercentageFee:   50,   // 0.5%
		SlasherPercentageReward: 500,  // 5%
		LockerPercentageFee:     100,  // 1%
		PriceWithDiscountRatio:  9500, // 95%
		CollateralRatio:         15000,
		LiquidationRatio:        13000,
		MinRequiredTNTLockedAmount: big.NewInt(1),
		EpochLength:                1,
		MaxMintLimit:               new(big.Int),
		ChannelSize:                64,
	}
}

// LoadFromViper reads Owner, BitcoinFeeOracle, the five component
// addresses, TransferDeadline, the three fee/reward percentages,
// CollateralRatio, LiquidationRatio and EpochLength from environment
// variables / a config file already loaded into viper; every other field
// (NativeTokenAddress, StartingBlockNumber, PriceWithDiscountRatio,
// MinRequiredTNTLockedAmount, BitcoinFee, MaxMintLimit, ChannelSize) keeps
// its DefaultConfig value. This follows the way
// cmd/server_cmd.initializeViper + PrepareBridgeServerConfig does in the
// teacher repo.
func LoadFromViper() *Config {
	viper.AutomaticEnv()

	cfg := DefaultConfig()
	cfg.Owner = ethcommon.HexToAddress(viper.GetString("BRIDGE_OWNER"))
	cfg.BitcoinFeeOracle = ethcommon.HexToAddress(viper.GetString("BITCOIN_FEE_ORACLE"))
	cfg.RelayAddress = ethcommon.HexToAddress(viper.GetString("RELAY_ADDRESS"))
	cfg.OracleAddress = ethcommon.HexToAddress(viper.GetString("ORACLE_ADDRESS"))
	cfg.LockersAddress = ethcommon.HexToAddress(viper.GetString("LOCKERS_ADDRESS"))
	cfg.CoreBTCAddress = ethcommon.HexToAddress(viper.GetString("CORE_BTC_ADDRESS"))
	cfg.TreasuryAddress = ethcommon.HexToAddress(viper.GetString("TREASURY_ADDRESS"))

	if v := viper.GetUint64("TRANSFER_DEADLINE"); v != 0 {
		cfg.TransferDeadline = v
	}
	if v := viper.GetUint64("PROTOCOL_PERCENTAGE_FEE"); v != 0 {
		cfg.ProtocolPercentageFee = v
	}
	if v := viper.GetUint64("SLASHER_PERCENTAGE_REWARD"); v != 0 {
		cfg.SlasherPercentageReward = v
	}
	if v := viper.GetUint64("LOCKER_PERCENTAGE_FEE"); v != 0 {
		cfg.LockerPercentageFee = v
	}
	if v := viper.GetUint64("COLLATERAL_RATIO"); v != 0 {
		cfg.CollateralRatio = v
	}
	if v := viper.GetUint64("LIQUIDATION_RATIO"); v != 0 {
		cfg.LiquidationRatio = v
	}
	if v := viper.GetUint64("EPOCH_LENGTH"); v != 0 {
		cfg.EpochLength = v
	}

	return cfg
}

// Admin gates every owner-only mutation named in spec.md §6. It holds no
// state of its own beyond the Config pointer it validates against, mirroring
// the teacher's pattern of plain structs wrapping a *Config (etherman.Config).
type Admin struct {
	cfg *Config
}

func NewAdmin(cfg *Config) *Admin {
	return &Admin{cfg: cfg}
}

func (a *Admin) requireOwner(caller ethcommon.Address) error {
	if caller != a.cfg.Owner {
		return ErrNotOwner
	}
	return nil
}

func requireNonZero(addr ethcommon.Address) error {
	if addr == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	return nil
}

func (a *Admin) SetRelay(caller, addr ethcommon.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := requireNonZero(addr); err != nil {
		return err
	}
	a.cfg.RelayAddress = addr
	return nil
}

func (a *Admin) SetOracle(caller, addr ethcommon.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := requireNonZero(addr); err != nil {
		return err
	}
	a.cfg.OracleAddress = addr
	return nil
}

func (a *Admin) SetLockers(caller, addr ethcommon.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := requireNonZero(addr); err != nil {
		return err
	}
	a.cfg.LockersAddress = addr
	return nil
}

func (a *Admin) SetCoreBTC(caller, addr ethcommon.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := requireNonZero(addr); err != nil {
		return err
	}
	a.cfg.CoreBTCAddress = addr
	return nil
}

func (a *Admin) SetTreasury(caller, addr ethcommon.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := requireNonZero(addr); err != nil {
		return err
	}
	a.cfg.TreasuryAddress = addr
	return nil
}

// SetTransferDeadline preserves the bootstrapping quirk documented as an
// Open Question in spec.md §9: a caller other than the owner is permitted
// while the *stored* transferDeadline is still below the relay's
// finalization parameter (i.e. the bridge hasn't left its bootstrap window
// yet). Once the stored transferDeadline is at or above
// finalizationParameter, only the owner may change it. The new value itself
// is not checked against finalizationParameter. See DESIGN.md for why this
// is preserved rather than tightened.
func (a *Admin) SetTransferDeadline(caller ethcommon.Address, deadline, finalizationParameter uint64) error {
	if a.cfg.TransferDeadline >= finalizationParameter {
		if err := a.requireOwner(caller); err != nil {
			return err
		}
	}
	a.cfg.TransferDeadline = deadline
	return nil
}

func (a *Admin) SetProtocolPercentageFee(caller ethcommon.Address, fee uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if fee > MaxBasisPoints {
		return ErrRatioOutOfRange
	}
	a.cfg.ProtocolPercentageFee = fee
	return nil
}

func (a *Admin) SetSlasherPercentageReward(caller ethcommon.Address, reward uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if reward > MaxBasisPoints {
		return ErrRatioOutOfRange
	}
	a.cfg.SlasherPercentageReward = reward
	return nil
}

func (a *Admin) SetLockerPercentageFee(caller ethcommon.Address, fee uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if fee > MaxBasisPoints {
		return ErrRatioOutOfRange
	}
	a.cfg.LockerPercentageFee = fee
	return nil
}

func (a *Admin) SetPriceWithDiscountRatio(caller ethcommon.Address, ratio uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if ratio > MaxBasisPoints {
		return ErrRatioOutOfRange
	}
	a.cfg.PriceWithDiscountRatio = ratio
	return nil
}

// SetCollateralRatio and SetLiquidationRatio each independently re-check
// invariant I6 (collateralRatio > liquidationRatio) against whichever field
// is already stored, since the two setters are independent owner calls.
func (a *Admin) SetCollateralRatio(caller ethcommon.Address, ratio uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if ratio <= a.cfg.LiquidationRatio {
		return ErrCollateralRatio
	}
	a.cfg.CollateralRatio = ratio
	return nil
}

func (a *Admin) SetLiquidationRatio(caller ethcommon.Address, ratio uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if ratio >= a.cfg.CollateralRatio {
		return ErrCollateralRatio
	}
	a.cfg.LiquidationRatio = ratio
	return nil
}

func (a *Admin) SetMinRequiredTNTLockedAmount(caller ethcommon.Address, amount *big.Int) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroValue
	}
	a.cfg.MinRequiredTNTLockedAmount = amount
	return nil
}

func (a *Admin) SetStartingBlockNumber(caller ethcommon.Address, blockNumber uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if blockNumber <= a.cfg.StartingBlockNumber {
		return ErrNotIncreasing
	}
	a.cfg.StartingBlockNumber = blockNumber
	return nil
}

func (a *Admin) SetEpochLength(caller ethcommon.Address, length uint64) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if length == 0 {
		return ErrZeroValue
	}
	a.cfg.EpochLength = length
	return nil
}

func (a *Admin) SetMaxMintLimit(caller ethcommon.Address, limit *big.Int) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if limit == nil || limit.Sign() < 0 {
		return ErrZeroValue
	}
	a.cfg.MaxMintLimit = limit
	return nil
}

// SetBitcoinFee is gated on the distinct BitcoinFeeOracle principal, not the
// owner (spec.md §6: "The bitcoinFeeOracle principal (distinct from owner)
// sets bitcoinFee").
func (a *Admin) SetBitcoinFee(caller ethcommon.Address, fee uint64) error {
	if caller != a.cfg.BitcoinFeeOracle {
		return ErrNotBitcoinOracle
	}
	a.cfg.BitcoinFee = fee
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{owner=%s relay=%s oracle=%s lockers=%s coreBTC=%s treasury=%s protocolFee=%d lockerFee=%d slasherReward=%d collateralRatio=%d liquidationRatio=%d}",
		c.Owner, c.RelayAddress, c.OracleAddress, c.LockersAddress, c.CoreBTCAddress, c.TreasuryAddress,
		c.ProtocolPercentageFee, c.LockerPercentageFee, c.SlasherPercentageReward, c.CollateralRatio, c.LiquidationRatio,
	)
}
