// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"time"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/wire"
)

// MempoolEntry is a descriptor about a transaction in the pending
// transaction pool along with the metadata the selector needs (spec §3).
type MempoolEntry struct {
	// Tx is the transaction associated with the entry.
	Tx *wire.Tx

	// Added is the time when the entry was added to the source pool.
	Added time.Time

	// Fee is the total fee the transaction pays in base units.
	Fee uint64

	// ShieldedValueIn is the transaction's shielded value-in, added into
	// the priority input-value sum (spec §4.4 "Priority score").
	ShieldedValueIn uint64

	// PriorityDelta is an admin-applied adjustment added to the computed
	// priority score.
	PriorityDelta float64

	// FeeDelta is an admin-applied adjustment added to the computed fee.
	FeeDelta int64
}

// TxSource represents a source of transactions to consider for inclusion
// in new blocks.  It is the narrow contract the selector consumes instead
// of a concrete mempool implementation (spec §1 "Deliberately excluded").
//
// The interface contract requires that all of these methods are safe for
// concurrent access with respect to the source.
type TxSource interface {
	// Lock and Unlock guard a selection pass the way the node's pool
	// mutex does (spec §5); acquired jointly with the chain mutex only
	// during standard-mode selection.
	Lock()
	Unlock()

	// LastUpdated returns the last time a transaction was added to or
	// removed from the source pool.
	LastUpdated() time.Time

	// MiningDescs returns a descriptor for every transaction in the
	// source pool eligible for consideration.
	MiningDescs() []*MempoolEntry

	// HaveTransaction returns whether or not the passed transaction
	// hash exists in the source pool.
	HaveTransaction(txID chainhash.Hash) bool

	// FetchInputUtxos returns a view populated with the unspent outputs
	// referenced by tx's inputs that are already confirmed on-chain.
	// It intentionally does not resolve inputs still sitting in the
	// pool -- those are handled by the dependency graph instead (spec
	// §4.4 "Dependency handling").
	FetchInputUtxos(tx *wire.Tx) (*UtxoViewpoint, error)
}

// MedianTimeSource provides a single method that is used to query the
// adjusted time relative to the local clock (spec §6.4).
type MedianTimeSource interface {
	AdjustedTime() time.Time
}

// ChainTip describes the chain state a template is bound to.
type ChainTip struct {
	Height         uint64
	Hash           chainhash.Hash
	MedianTimePast time.Time
}

// ScriptVerifier performs the contextual input checks under
// MANDATORY_SCRIPT_VERIFY_FLAGS (spec §4.4).  Script verification itself
// is a deliberately excluded external collaborator (spec §1); this
// interface is the narrow seam the selector calls through.
type ScriptVerifier interface {
	VerifyInputs(tx *wire.Tx, utxos *UtxoViewpoint) error
}

// ChainView is the narrow contract the template builders consume from the
// node's chain state (spec §6.3).  Chain-state storage and tip tracking
// themselves are deliberately excluded (spec §1); only this interface is
// in scope here.
type ChainView interface {
	// Lock and Unlock guard the coarse chain mutex described in spec §5.
	// Template builders acquire it to snapshot the tip, release it for
	// heavy work, and reacquire it for finalization and submit.
	Lock()
	Unlock()

	// Tip returns the currently active chain tip.  Must be called while
	// holding the lock.
	Tip() ChainTip

	// GetNextWorkRequired computes the required difficulty bits for a
	// block building on prevHash with the given candidate time.
	GetNextWorkRequired(prevHash chainhash.Hash, candidateTime time.Time) uint32

	// ComputeBlockVersion returns the next block's version based on the
	// state of any active rule-change deployments.
	ComputeBlockVersion() int32

	// GetBlockSubsidy returns the block subsidy payable at height.
	GetBlockSubsidy(height uint64) uint64

	// TestBlockValidity runs a preflight check of block against the
	// chain consensus rules without requiring proof-of-work or a full
	// merkle/tx check, returning a non-nil error on rejection; the
	// template builders report that error wrapped in ErrTemplateInvalid.
	TestBlockValidity(block *wire.MsgBlock, tipHash chainhash.Hash) error

	// ProcessNewBlock is the submission sink a solved block is handed
	// to (spec §6.3).
	ProcessNewBlock(block *wire.MsgBlock) error
}
