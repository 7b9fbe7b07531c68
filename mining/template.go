// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"time"

	"github.com/forkchain/forkd/wire"
)

// BlockTemplate houses a block that has not yet been solved along with
// additional details about the fees and the number of signature
// operations for each transaction in the block (spec §3, invariants
// I1-I5).
type BlockTemplate struct {
	// Block is the block template itself: a header with a merkle root
	// that already commits to Transactions, plus the ordered
	// transaction list with the coinbase first.
	Block *wire.MsgBlock

	// Fees contains the amount of fees each transaction in the
	// generated template pays in base units, in the same order
	// Block.Transactions lists them.  The coinbase's entry is always
	// the negative of the sum of the rest (the fees it collects; the
	// subsidy is not included).
	Fees []int64

	// SigOpCounts contains the number of signature operations each
	// transaction in the generated template has, in the same order
	// Block.Transactions lists them.
	SigOpCounts []int64

	// Height is the height the template was built to extend to.
	Height uint64

	// ValidPayAddress indicates whether or not the template coinbase
	// pays to an address supplied by the caller rather than a
	// synthesized one.
	ValidPayAddress bool
}

// MedianAdjustedTime returns the timestamp a new block should advertise:
// the greater of the adjusted time from the median time source and one
// second past the chain tip's median time past (spec §6.4), matching
// this lineage's "new block minimum timestamp" rule. A nil timeSource
// is treated as reporting the current minimum, which is what the fork
// builder wants: it has no wall-clock collaborator of its own and only
// needs the chain-derived floor.
func MedianAdjustedTime(tip ChainTip, timeSource MedianTimeSource) time.Time {
	minTimestamp := tip.MedianTimePast.Add(time.Second)
	if timeSource == nil {
		return minTimestamp
	}
	newTimestamp := timeSource.AdjustedTime()
	if newTimestamp.Before(minTimestamp) {
		newTimestamp = minTimestamp
	}
	return newTimestamp
}
