// Package relay defines the Bitcoin light-client relay the BurnRouter
// consumes (spec.md §6 "Relay contract (consumed)"). The relay's own
// header-chain sync and Merkle-verification logic is an external
// collaborator out of this module's scope; only the interface and a
// Simulated test/demo implementation live here.
package relay

import (
	"errors"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var ErrBlockNotFound = errors.New("relay: block not finalized at given height")

// Relay is the BurnRouter's view of the external light-client relay.
type Relay interface {
	// LastSubmittedHeight is the highest Bitcoin block height the relay has
	// a finalized header for.
	LastSubmittedHeight() (uint64, error)

	// FinalizationParameter is the number of confirmations the relay
	// requires before treating a header as final.
	FinalizationParameter() (uint64, error)

	// CheckTxProof verifies that txId is included, at txIndex, in the
	// block at blockNumber, by reconstructing merkleProof against that
	// block's stored merkle root.
	CheckTxProof(txId chainhash.Hash, blockNumber uint64, merkleProof []chainhash.Hash, txIndex uint64) (bool, error)
}

// Simulated is an in-memory Relay used by tests and cmd/bridgecore,
// mirroring the teacher's etherman.SimulatedChain real/simulated split. It
// stores one Merkle root per block height, but CheckTxProof does not verify
// merkleProof or txIndex against that root: it reports only whether
// (blockNumber, txId) was recorded via MarkIncluded.
type Simulated struct {
	mu                     sync.Mutex
	lastSubmittedHeight    uint64
	finalizationParameter  uint64
	merkleRootsByHeight    map[uint64]chainhash.Hash
	inclusionsByHeightTxId map[uint64]map[chainhash.Hash]bool
}

func NewSimulated(finalizationParameter uint64) *Simulated {
	return &Simulated{
		finalizationParameter:  finalizationParameter,
		merkleRootsByHeight:    make(map[uint64]chainhash.Hash),
		inclusionsByHeightTxId: make(map[uint64]map[chainhash.Hash]bool),
	}
}

// SubmitBlock records that block height carries merkleRoot and advances
// LastSubmittedHeight if height is larger than what's stored.
func (s *Simulated) SubmitBlock(height uint64, merkleRoot chainhash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.merkleRootsByHeight[height] = merkleRoot
	if height > s.lastSubmittedHeight {
		s.lastSubmittedHeight = height
	}
}

// MarkIncluded is the Simulated-only shortcut a test uses instead of
// constructing a real Merkle branch: it records that txId is included at
// height so CheckTxProof(txId, height, _, _) returns true.
func (s *Simulated) MarkIncluded(height uint64, txId chainhash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.inclusionsByHeightTxId[height]
	if !ok {
		set = make(map[chainhash.Hash]bool)
		s.inclusionsByHeightTxId[height] = set
	}
	set[txId] = true
}

func (s *Simulated) LastSubmittedHeight() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSubmittedHeight, nil
}

func (s *Simulated) FinalizationParameter() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizationParameter, nil
}

func (s *Simulated) CheckTxProof(txId chainhash.Hash, blockNumber uint64, merkleProof []chainhash.Hash, txIndex uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if blockNumber > s.lastSubmittedHeight {
		return false, ErrBlockNotFound
	}

	set, ok := s.inclusionsByHeightTxId[blockNumber]
	if !ok {
		return false, nil
	}
	return set[txId], nil
}
