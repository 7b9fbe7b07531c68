// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/forkchain/forkd/chainhash"

// MsgBlock describes a block message -- a header plus the ordered list of
// transactions it carries.  Element 0 of Transactions is always the
// coinbase (spec invariant I1).
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// BuildMerkleRoot computes the merkle root over the block's transactions.
// A straightforward bottom-up tree matching the lineage's BuildMerkleTreeStore,
// duplicating the final node on an odd-sized level.
func BuildMerkleRoot(txs []*MsgTx) chainhash.Hash {
	if len(txs) == 0 {
		return chainhash.ZeroHash
	}

	level := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [2 * chainhash.HashSize]byte
			copy(buf[:chainhash.HashSize], level[2*i][:])
			copy(buf[chainhash.HashSize:], level[2*i+1][:])
			next[i] = chainhash.DoubleHashH(buf[:])
		}
		level = next
	}
	return level[0]
}
