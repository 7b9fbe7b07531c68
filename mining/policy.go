// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

// MaxBlockSize is the consensus-level maximum serialized block size this
// core will ever assemble a template against (spec §6.6 boundary values).
const MaxBlockSize = 2_000_000

// MaxBlockSigOps is the consensus-level maximum number of signature
// operations permitted in a block.
const MaxBlockSigOps = 20000

// coinUnits is the number of smallest units per coin, used purely to
// scale the high-priority threshold into the same units calcPriority
// works in.
const coinUnits = 1e8

// MinHighPriority is the dimensionless priority score at and above which
// a transaction is considered "high priority" for logging and for the
// free-transaction relay policy, following the lineage's mempool
// convention of COIN * 144 / 250.
const MinHighPriority = coinUnits * 144.0 / 250

// Policy describes the configurable block-template generation policy
// (spec §6.6).  All three size fields are clamped at construction so the
// rest of the core can rely on BlockMinSize <= BlockMaxSize,
// BlockPrioritySize <= BlockMaxSize, and BlockMaxSize <= MaxBlockSize-1000.
// BlockMinSize and BlockPrioritySize are not clamped against each other.
type Policy struct {
	// BlockMinSize is the minimum block size, in bytes, free and
	// low-fee transactions are allowed to fill before the one-way
	// switch to fee-rate-ordered selection with a minimum fee floor
	// takes effect.
	BlockMinSize uint32

	// BlockMaxSize is the maximum block size, in bytes, a generated
	// template is allowed to reach.
	BlockMaxSize uint32

	// BlockPrioritySize is the size, in bytes, reserved within
	// BlockMaxSize for high-priority transactions regardless of fee
	// rate.
	BlockPrioritySize uint32

	// TxMinFreeFee is the minimum fee rate, in base units per byte, a
	// transaction must meet once the priority-reserved portion of the
	// block has been filled.
	TxMinFreeFee uint64
}

// NewPolicy builds a Policy from raw configuration values, clamping them
// to the documented boundary behavior (spec §6.6):
//
//	blockMaxSize      clamped to [1000, MaxBlockSize-1000]
//	blockPrioritySize clamped to [0, blockMaxSize]
//	blockMinSize      clamped to [0, blockMaxSize]
func NewPolicy(blockMaxSize, blockPrioritySize, blockMinSize uint32, txMinFreeFee uint64) Policy {
	if blockMaxSize < 1000 {
		blockMaxSize = 1000
	} else if blockMaxSize > MaxBlockSize-1000 {
		blockMaxSize = MaxBlockSize - 1000
	}
	if blockPrioritySize > blockMaxSize {
		blockPrioritySize = blockMaxSize
	}
	if blockMinSize > blockMaxSize {
		blockMinSize = blockMaxSize
	}
	return Policy{
		BlockMinSize:      blockMinSize,
		BlockMaxSize:      blockMaxSize,
		BlockPrioritySize: blockPrioritySize,
		TxMinFreeFee:      txMinFreeFee,
	}
}
