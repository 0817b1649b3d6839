// Package burnrouter implements the BurnRouter of spec.md §4.3: it accepts
// user burn requests, tracks deadlines, verifies Bitcoin-side proofs via
// the Relay, and delegates slashing to the Registry. It is the root of the
// dependency order of spec.md §2 (Ledger ← LockerRegistry ← BurnRouter) —
// nothing else calls into it.
package burnrouter

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/btcpeg/peg-core/bridgecfg"
	"github.com/btcpeg/peg-core/bridgeevents"
	"github.com/btcpeg/peg-core/btcspv"
	"github.com/btcpeg/peg-core/common"
	"github.com/btcpeg/peg-core/ledger"
	"github.com/btcpeg/peg-core/logconfig"
	"github.com/btcpeg/peg-core/registry"
	"github.com/btcpeg/peg-core/relay"
)

// Router is guarded by a single mutex, the reentrancy-guard model of
// spec.md §5. It calls into registry.Registry and ledger.Ledger while
// holding mu; neither ever calls back into Router, so the call graph stays
// a DAG and no deadlock is reachable from that direction.
type Router struct {
	mu sync.Mutex

	address ethcommon.Address
	owner   ethcommon.Address

	cfg      *bridgecfg.Config
	ledger   *ledger.Ledger
	registry *registry.Registry
	relay    relay.Relay

	requestsByLocker map[lockerKey]*perLocker
	isUsedAsBurnProof map[chainhashKey]bool

	db  *StateDB
	bus *bridgeevents.Bus
	log *logrus.Entry
}

func New(
	address, owner ethcommon.Address,
	cfg *bridgecfg.Config,
	ledg *ledger.Ledger,
	reg *registry.Registry,
	rel relay.Relay,
	db *StateDB,
	bus *bridgeevents.Bus,
) (*Router, error) {
	if address == (ethcommon.Address{}) || owner == (ethcommon.Address{}) {
		return nil, ErrZeroAddress
	}

	r := &Router{
		address:           address,
		owner:             owner,
		cfg:               cfg,
		ledger:            ledg,
		registry:          reg,
		relay:             rel,
		requestsByLocker:  make(map[lockerKey]*perLocker),
		isUsedAsBurnProof: make(map[chainhashKey]bool),
		db:                db,
		bus:               bus,
		log:               logconfig.Component("burnrouter"),
	}

	if db != nil {
		if err := db.loadInto(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Router) requireOwner(caller ethcommon.Address) error {
	if caller != r.owner {
		return ErrNotOwner
	}
	return nil
}

func (r *Router) perLockerFor(script []byte) *perLocker {
	key := keyForScript(script)
	pl, ok := r.requestsByLocker[key]
	if !ok {
		pl = &perLocker{}
		r.requestsByLocker[key] = pl
	}
	return pl
}

// CcBurn implements spec.md §4.3's ccBurn. The dust-floor check (I7) runs
// before any balance is pulled, so a request that would fail never mutates
// state — honoring the all-or-nothing execution model of spec.md §5 even
// though this host has no native transaction rollback to fall back on.
func (r *Router) CcBurn(caller ethcommon.Address, amount *big.Int, userScript []byte, scriptType btcspv.ScriptType, lockerScript []byte) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrBelowDustFloor
	}
	if err := btcspv.ValidateUserScriptLength(scriptType, userScript); err != nil {
		return nil, ErrInvalidScriptLength
	}
	target, ok := r.registry.TargetForScript(lockerScript)
	if !ok {
		return nil, ErrNoSuchLocker
	}

	protocolFee, err := common.MulDiv(amount, new(big.Int).SetUint64(r.cfg.ProtocolPercentageFee), big.NewInt(bridgecfg.MaxBasisPoints))
	if err != nil {
		return nil, err
	}
	dustFloor, err := common.CheckedAdd(protocolFee, big.NewInt(int64(2*r.cfg.BitcoinFee)))
	if err != nil {
		return nil, err
	}
	if amount.Cmp(dustFloor) <= 0 {
		return nil, ErrBelowDustFloor
	}

	if err := r.ledger.TransferFrom(r.address, caller, r.address, amount); err != nil {
		return nil, err
	}
	if protocolFee.Sign() > 0 {
		if err := r.ledger.Transfer(r.address, r.cfg.TreasuryAddress, protocolFee); err != nil {
			return nil, err
		}
	}

	remaining, err := common.CheckedSub(amount, protocolFee)
	if err != nil {
		return nil, err
	}

	afterLockerFee, err := r.registry.Burn(r.address, lockerScript, remaining)
	if err != nil {
		return nil, err
	}

	bitcoinFee := new(big.Int).SetUint64(r.cfg.BitcoinFee)
	netOfMinerFee, err := common.CheckedSub(remaining, bitcoinFee)
	if err != nil {
		return nil, err
	}
	burntAmount, err := common.MulDiv(afterLockerFee, netOfMinerFee, remaining)
	if err != nil {
		return nil, err
	}

	lastHeight, err := r.relay.LastSubmittedHeight()
	if err != nil {
		return nil, err
	}

	pl := r.perLockerFor(lockerScript)
	requestIdOfLocker := uint64(len(pl.requests))
	req := &burnRequest{
		amount:            new(big.Int).Set(amount),
		burntAmount:       burntAmount,
		sender:            caller,
		userScript:        append([]byte(nil), userScript...),
		scriptType:        scriptType,
		deadline:          lastHeight + r.cfg.TransferDeadline,
		requestIdOfLocker: requestIdOfLocker,
	}
	pl.requests = append(pl.requests, req)

	if r.bus != nil {
		r.bus.EmitCCBurn(&bridgeevents.CCBurnEvent{
			Sender: caller, UserScript: req.userScript, Amount: new(big.Int).Set(amount),
			BurntAmount: new(big.Int).Set(burntAmount), LockerTarget: target, RequestIdOfLocker: requestIdOfLocker,
		})
	}
	return burntAmount, r.persist(lockerScript, int(requestIdOfLocker))
}

// BurnProof implements spec.md §4.3's burnProof.
func (r *Router) BurnProof(
	rawTx []byte,
	blockNumber uint64,
	merkleProof []chainhash.Hash,
	txIndex uint64,
	lockerScript []byte,
	burnReqIndexes []int,
	voutIndexes []int,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if blockNumber < r.cfg.StartingBlockNumber {
		return ErrBelowStartingBlock
	}
	if len(burnReqIndexes) != len(voutIndexes) {
		return ErrIndexLengthMismatch
	}
	for i := 1; i < len(voutIndexes); i++ {
		if voutIndexes[i] <= voutIndexes[i-1] {
			return ErrVoutIndexesUnsorted
		}
	}

	tx, err := btcspv.ExtractTx(rawTx)
	if err != nil {
		return err
	}
	if err := btcspv.RequireZeroLocktime(tx); err != nil {
		return err
	}

	txId := btcspv.CalculateTxId(tx)
	ok, err := r.relay.CheckTxProof(txId, blockNumber, merkleProof, txIndex)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTxNotFinalized
	}

	pl, ok := r.requestsByLocker[keyForScript(lockerScript)]
	if !ok {
		return ErrNoSuchLocker
	}

	paidOutputCounter := 0
	for i, reqIdx := range burnReqIndexes {
		if reqIdx < 0 || reqIdx >= len(pl.requests) {
			return ErrNoSuchBurnRequest
		}
		req := pl.requests[reqIdx]
		if req.isTransferred || blockNumber > req.deadline {
			continue
		}

		value, matched, err := btcspv.ParseValueFromSpecificOutputHavingScript(tx, voutIndexes[i], req.userScript, req.scriptType)
		if err != nil {
			return err
		}
		if matched && big.NewInt(value).Cmp(req.burntAmount) == 0 {
			req.isTransferred = true
			paidOutputCounter++

			if r.bus != nil {
				var btcTxId [32]byte
				copy(btcTxId[:], txId[:])
				target, _ := r.registry.TargetForScript(lockerScript)
				r.bus.EmitPaidCCBurn(&bridgeevents.PaidCCBurnEvent{
					LockerTarget: target, RequestIdOfLocker: req.requestIdOfLocker, BitcoinTxId: btcTxId,
				})
			}
		}
	}

	if paidOutputCounter >= len(tx.TxOut)-1 {
		r.isUsedAsBurnProof[txId] = true
	}

	return r.persist(lockerScript, -1)
}

// DisputeBurn implements spec.md §4.3's disputeBurn: owner-gated slashing
// of lockers that let a request's deadline elapse on the Bitcoin side.
func (r *Router) DisputeBurn(caller ethcommon.Address, lockerScript []byte, indexes []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(caller); err != nil {
		return err
	}

	target, ok := r.registry.TargetForScript(lockerScript)
	if !ok {
		return ErrNoSuchLocker
	}
	pl, ok := r.requestsByLocker[keyForScript(lockerScript)]
	if !ok {
		return ErrNoSuchLocker
	}

	lastHeight, err := r.relay.LastSubmittedHeight()
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		if idx < 0 || idx >= len(pl.requests) {
			return ErrNoSuchBurnRequest
		}
		req := pl.requests[idx]

		if req.deadline < r.cfg.StartingBlockNumber {
			return ErrBelowStartingBlock
		}
		if req.isTransferred {
			return ErrAlreadyTransferred
		}
		if req.deadline >= lastHeight {
			return ErrDeadlineNotElapsed
		}

		reward, err := common.MulDiv(req.amount, new(big.Int).SetUint64(r.cfg.SlasherPercentageReward), big.NewInt(bridgecfg.MaxBasisPoints))
		if err != nil {
			return err
		}
		if err := r.registry.SlashIdleLocker(r.address, target, reward, caller, req.amount, req.sender); err != nil {
			return err
		}
		req.isTransferred = true

		if r.bus != nil {
			r.bus.EmitBurnDispute(&bridgeevents.BurnDisputeEvent{LockerTarget: target, RequestIdOfLocker: req.requestIdOfLocker, Slasher: caller})
		}
	}

	return r.persist(lockerScript, -1)
}

// DisputeLocker implements spec.md §4.3's disputeLocker: owner-gated proof
// that a locker spent a UTXO that wasn't a burn payment.
func (r *Router) DisputeLocker(
	caller ethcommon.Address,
	lockerScript []byte,
	inputTxRaw, outputTxRaw []byte,
	inputMerkleProof []chainhash.Hash,
	inputIndex int,
	inputTxIndex uint64,
	inputBlockNumber uint64,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if inputBlockNumber < r.cfg.StartingBlockNumber {
		return ErrBelowStartingBlock
	}

	inputTx, err := btcspv.ExtractTx(inputTxRaw)
	if err != nil {
		return err
	}
	inputTxId := btcspv.CalculateTxId(inputTx)

	ok, err := r.relay.CheckTxProof(inputTxId, inputBlockNumber, inputMerkleProof, inputTxIndex)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTxNotFinalized
	}
	if r.isUsedAsBurnProof[inputTxId] {
		return ErrAlreadyUsedAsProof
	}

	lastHeight, err := r.relay.LastSubmittedHeight()
	if err != nil {
		return err
	}
	if inputBlockNumber+r.cfg.TransferDeadline >= lastHeight {
		return ErrSpendNotStale
	}

	outpoint, err := btcspv.ExtractOutpoint(inputTx, inputIndex)
	if err != nil {
		return err
	}

	outputTx, err := btcspv.ExtractTx(outputTxRaw)
	if err != nil {
		return err
	}
	outputTxId := btcspv.CalculateTxId(outputTx)
	if outpoint.TxId != outputTxId {
		return ErrOutpointMismatch
	}

	outScript, err := btcspv.GetLockingScript(outputTx, int(outpoint.Index))
	if err != nil {
		return err
	}
	if !bytes.Equal(outScript, lockerScript) {
		return ErrScriptMismatch
	}

	totalValue, err := btcspv.ParseOutputsTotalValue(inputTx)
	if err != nil {
		return err
	}
	totalValueBig := big.NewInt(totalValue)

	target, ok := r.registry.TargetForScript(lockerScript)
	if !ok {
		return ErrNoSuchLocker
	}

	reward, err := common.MulDiv(totalValueBig, new(big.Int).SetUint64(r.cfg.SlasherPercentageReward), big.NewInt(bridgecfg.MaxBasisPoints))
	if err != nil {
		return err
	}
	if err := r.registry.SlashThiefLocker(r.address, target, reward, caller, totalValueBig); err != nil {
		return err
	}

	if r.bus != nil {
		var inTxIdBytes [32]byte
		copy(inTxIdBytes[:], inputTxId[:])
		r.bus.EmitLockerDispute(&bridgeevents.LockerDisputeEvent{LockerTarget: target, Slasher: caller, InputTxId: inTxIdBytes})
	}

	return nil
}

// --- queries ---

func (r *Router) BurnRequest(lockerScript []byte, index int) (*BurnRequestSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pl, ok := r.requestsByLocker[keyForScript(lockerScript)]
	if !ok || index < 0 || index >= len(pl.requests) {
		return nil, ErrNoSuchBurnRequest
	}
	return pl.requests[index].snapshot(), nil
}

func (r *Router) IsUsedAsBurnProof(txId chainhash.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isUsedAsBurnProof[txId]
}

func (r *Router) persist(lockerScript []byte, requestIndex int) error {
	if r.db == nil {
		return nil
	}
	return r.db.save(r, lockerScript, requestIndex)
}
