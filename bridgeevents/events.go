// Package bridgeevents defines the observable event log named in spec.md
// §6 and a small in-process bus to carry it, adapted from the teacher's
// agreement.StateChannel channel-per-event-type idiom: each event type gets
// its own buffered channel rather than one interface{} channel, so
// subscribers never need a type switch.
package bridgeevents

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type CCBurnEvent struct {
	Sender       ethcommon.Address
	UserScript   []byte
	Amount       *big.Int
	BurntAmount  *big.Int
	LockerTarget ethcommon.Address
	RequestIdOfLocker uint64
}

func (ev *CCBurnEvent) String() string { return fmt.Sprintf("%+v", *ev) }

type PaidCCBurnEvent struct {
	LockerTarget ethcommon.Address
	RequestIdOfLocker uint64
	BitcoinTxId  [32]byte
}

func (ev *PaidCCBurnEvent) String() string { return fmt.Sprintf("%+v", *ev) }

type BurnDisputeEvent struct {
	LockerTarget ethcommon.Address
	RequestIdOfLocker uint64
	Slasher      ethcommon.Address
}

type LockerDisputeEvent struct {
	LockerTarget ethcommon.Address
	Slasher      ethcommon.Address
	InputTxId    [32]byte
}

type LockerAddedEvent struct {
	LockerTarget ethcommon.Address
	LockingScript []byte
}

type RequestAddLockerEvent struct {
	Candidate ethcommon.Address
	LockingScript []byte
	NativeAmount *big.Int
}

type RevokeAddLockerRequestEvent struct {
	Candidate ethcommon.Address
}

type RequestInactivateLockerEvent struct {
	LockerTarget ethcommon.Address
	InactivationTimestamp int64
}

type ActivateLockerEvent struct {
	LockerTarget ethcommon.Address
}

type LockerRemovedEvent struct {
	LockerTarget ethcommon.Address
}

type LockerSlashedKind string

const (
	SlashedIdle  LockerSlashedKind = "idle"
	SlashedThief LockerSlashedKind = "thief"
)

type LockerSlashedEvent struct {
	Kind         LockerSlashedKind
	LockerTarget ethcommon.Address
	RewardAmount *big.Int
	Recipient    ethcommon.Address
	BtcAmount    *big.Int
}

type LockerLiquidatedEvent struct {
	LockerTarget ethcommon.Address
	Buyer        ethcommon.Address
	CollateralAmount *big.Int
}

type LockerSlashedCollateralSoldEvent struct {
	LockerTarget ethcommon.Address
	Buyer        ethcommon.Address
	CollateralAmount *big.Int
	CoreBTCAmount *big.Int
}

type CollateralAddedEvent struct {
	LockerTarget ethcommon.Address
	Adder        ethcommon.Address
	Amount       *big.Int
}

type CollateralRemovedEvent struct {
	LockerTarget ethcommon.Address
	Amount       *big.Int
}

type MintEvent struct {
	LockerTarget ethcommon.Address
	Receiver     ethcommon.Address
	BtcTxId      [32]byte
	Amount       *big.Int
}

type BurnEvent struct {
	LockerTarget ethcommon.Address
	Burner       ethcommon.Address
	Amount       *big.Int
}

type BlacklistedEvent struct {
	Account ethcommon.Address
}

type UnBlacklistedEvent struct {
	Account ethcommon.Address
}

// Bus fans every event type out to independently-buffered channels. A
// nil-backend component (e.g. in unit tests that never call Subscribe*) can
// call the Emit* methods freely: Emit uses a non-blocking send, so an event
// is buffered while its channel has room and dropped once the channel is
// full (or at once, for a Bus made with a zero buffer size), never a block.
type Bus struct {
	ccBurn             chan *CCBurnEvent
	paidCCBurn         chan *PaidCCBurnEvent
	burnDispute        chan *BurnDisputeEvent
	lockerDispute      chan *LockerDisputeEvent
	lockerAdded        chan *LockerAddedEvent
	requestAddLocker   chan *RequestAddLockerEvent
	revokeAddLocker    chan *RevokeAddLockerRequestEvent
	requestInactivate  chan *RequestInactivateLockerEvent
	activateLocker     chan *ActivateLockerEvent
	lockerRemoved      chan *LockerRemovedEvent
	lockerSlashed      chan *LockerSlashedEvent
	lockerLiquidated   chan *LockerLiquidatedEvent
	slashedSold        chan *LockerSlashedCollateralSoldEvent
	collateralAdded    chan *CollateralAddedEvent
	collateralRemoved  chan *CollateralRemovedEvent
	mint               chan *MintEvent
	burn               chan *BurnEvent
	blacklisted        chan *BlacklistedEvent
	unBlacklisted      chan *UnBlacklistedEvent
}

// NewBus creates a Bus with every channel sized to bufSize. The teacher
// sizes its event channels off Config.ChannelSize (see
// state/eth2btcstate.Config); this mirrors that.
func NewBus(bufSize int) *Bus {
	return &Bus{
		ccBurn:            make(chan *CCBurnEvent, bufSize),
		paidCCBurn:        make(chan *PaidCCBurnEvent, bufSize),
		burnDispute:       make(chan *BurnDisputeEvent, bufSize),
		lockerDispute:     make(chan *LockerDisputeEvent, bufSize),
		lockerAdded:       make(chan *LockerAddedEvent, bufSize),
		requestAddLocker:  make(chan *RequestAddLockerEvent, bufSize),
		revokeAddLocker:   make(chan *RevokeAddLockerRequestEvent, bufSize),
		requestInactivate: make(chan *RequestInactivateLockerEvent, bufSize),
		activateLocker:    make(chan *ActivateLockerEvent, bufSize),
		lockerRemoved:     make(chan *LockerRemovedEvent, bufSize),
		lockerSlashed:     make(chan *LockerSlashedEvent, bufSize),
		lockerLiquidated:  make(chan *LockerLiquidatedEvent, bufSize),
		slashedSold:       make(chan *LockerSlashedCollateralSoldEvent, bufSize),
		collateralAdded:   make(chan *CollateralAddedEvent, bufSize),
		collateralRemoved: make(chan *CollateralRemovedEvent, bufSize),
		mint:              make(chan *MintEvent, bufSize),
		burn:              make(chan *BurnEvent, bufSize),
		blacklisted:       make(chan *BlacklistedEvent, bufSize),
		unBlacklisted:     make(chan *UnBlacklistedEvent, bufSize),
	}
}

func (b *Bus) SubscribeCCBurn() <-chan *CCBurnEvent                               { return b.ccBurn }
func (b *Bus) SubscribePaidCCBurn() <-chan *PaidCCBurnEvent                       { return b.paidCCBurn }
func (b *Bus) SubscribeBurnDispute() <-chan *BurnDisputeEvent                     { return b.burnDispute }
func (b *Bus) SubscribeLockerDispute() <-chan *LockerDisputeEvent                 { return b.lockerDispute }
func (b *Bus) SubscribeLockerAdded() <-chan *LockerAddedEvent                     { return b.lockerAdded }
func (b *Bus) SubscribeRequestAddLocker() <-chan *RequestAddLockerEvent          { return b.requestAddLocker }
func (b *Bus) SubscribeRevokeAddLockerRequest() <-chan *RevokeAddLockerRequestEvent {
	return b.revokeAddLocker
}
func (b *Bus) SubscribeRequestInactivateLocker() <-chan *RequestInactivateLockerEvent {
	return b.requestInactivate
}
func (b *Bus) SubscribeActivateLocker() <-chan *ActivateLockerEvent { return b.activateLocker }
func (b *Bus) SubscribeLockerRemoved() <-chan *LockerRemovedEvent  { return b.lockerRemoved }
func (b *Bus) SubscribeLockerSlashed() <-chan *LockerSlashedEvent  { return b.lockerSlashed }
func (b *Bus) SubscribeLockerLiquidated() <-chan *LockerLiquidatedEvent {
	return b.lockerLiquidated
}
func (b *Bus) SubscribeLockerSlashedCollateralSold() <-chan *LockerSlashedCollateralSoldEvent {
	return b.slashedSold
}
func (b *Bus) SubscribeCollateralAdded() <-chan *CollateralAddedEvent     { return b.collateralAdded }
func (b *Bus) SubscribeCollateralRemoved() <-chan *CollateralRemovedEvent { return b.collateralRemoved }
func (b *Bus) SubscribeMint() <-chan *MintEvent                           { return b.mint }
func (b *Bus) SubscribeBurn() <-chan *BurnEvent                           { return b.burn }
func (b *Bus) SubscribeBlacklisted() <-chan *BlacklistedEvent             { return b.blacklisted }
func (b *Bus) SubscribeUnBlacklisted() <-chan *UnBlacklistedEvent         { return b.unBlacklisted }

func (b *Bus) EmitCCBurn(ev *CCBurnEvent) {
	select {
	case b.ccBurn <- ev:
	default:
	}
}

func (b *Bus) EmitPaidCCBurn(ev *PaidCCBurnEvent) {
	select {
	case b.paidCCBurn <- ev:
	default:
	}
}

func (b *Bus) EmitBurnDispute(ev *BurnDisputeEvent) {
	select {
	case b.burnDispute <- ev:
	default:
	}
}

func (b *Bus) EmitLockerDispute(ev *LockerDisputeEvent) {
	select {
	case b.lockerDispute <- ev:
	default:
	}
}

func (b *Bus) EmitLockerAdded(ev *LockerAddedEvent) {
	select {
	case b.lockerAdded <- ev:
	default:
	}
}

func (b *Bus) EmitRequestAddLocker(ev *RequestAddLockerEvent) {
	select {
	case b.requestAddLocker <- ev:
	default:
	}
}

func (b *Bus) EmitRevokeAddLockerRequest(ev *RevokeAddLockerRequestEvent) {
	select {
	case b.revokeAddLocker <- ev:
	default:
	}
}

func (b *Bus) EmitRequestInactivateLocker(ev *RequestInactivateLockerEvent) {
	select {
	case b.requestInactivate <- ev:
	default:
	}
}

func (b *Bus) EmitActivateLocker(ev *ActivateLockerEvent) {
	select {
	case b.activateLocker <- ev:
	default:
	}
}

func (b *Bus) EmitLockerRemoved(ev *LockerRemovedEvent) {
	select {
	case b.lockerRemoved <- ev:
	default:
	}
}

func (b *Bus) EmitLockerSlashed(ev *LockerSlashedEvent) {
	select {
	case b.lockerSlashed <- ev:
	default:
	}
}

func (b *Bus) EmitLockerLiquidated(ev *LockerLiquidatedEvent) {
	select {
	case b.lockerLiquidated <- ev:
	default:
	}
}

func (b *Bus) EmitLockerSlashedCollateralSold(ev *LockerSlashedCollateralSoldEvent) {
	select {
	case b.slashedSold <- ev:
	default:
	}
}

func (b *Bus) EmitCollateralAdded(ev *CollateralAddedEvent) {
	select {
	case b.collateralAdded <- ev:
	default:
	}
}

func (b *Bus) EmitCollateralRemoved(ev *CollateralRemovedEvent) {
	select {
	case b.collateralRemoved <- ev:
	default:
	}
}

func (b *Bus) EmitMint(ev *MintEvent) {
	select {
	case b.mint <- ev:
	default:
	}
}

func (b *Bus) EmitBurn(ev *BurnEvent) {
	select {
	case b.burn <- ev:
	default:
	}
}

func (b *Bus) EmitBlacklisted(ev *BlacklistedEvent) {
	select {
	case b.blacklisted <- ev:
	default:
	}
}

func (b *Bus) EmitUnBlacklisted(ev *UnBlacklistedEvent) {
	select {
	case b.unBlacklisted <- ev:
	default:
	}
}
