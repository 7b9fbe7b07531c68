// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/forkchain/forkd/wire"

// UtxoEntry is a minimal unspent-output record: just enough for fee,
// priority, and double-spend accounting during selection (spec §4.4).
type UtxoEntry struct {
	Amount      uint64
	PkScript    []byte
	BlockHeight uint64
	IsCoinbase  bool
	Spent       bool
}

// UtxoViewpoint is an in-memory view of the unspent outputs referenced by
// a set of transactions, built up incrementally as candidates are
// selected.  It plays the role the lineage's blockchain.UtxoViewpoint
// plays for mempool.go's block-template selection, scoped down to the
// read-only lookups and additions this core needs.
type UtxoViewpoint struct {
	entries map[wire.OutPoint]*UtxoEntry
}

// NewUtxoViewpoint returns a new, empty unspent transaction output view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{entries: make(map[wire.OutPoint]*UtxoEntry)}
}

// LookupEntry returns information about a given transaction output
// according to the current state of the view, or nil if it is not
// present in the view.
func (v *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	return v.entries[outpoint]
}

// AddEntry directly inserts an entry for the given outpoint, overwriting
// any existing entry.
func (v *UtxoViewpoint) AddEntry(outpoint wire.OutPoint, entry *UtxoEntry) {
	v.entries[outpoint] = entry
}

// AddTxOuts adds all outputs of the passed transaction to the view as
// available unspent outputs, the way selecting the transaction into a
// template makes its own outputs spendable by later candidates in the
// same pass.
func (v *UtxoViewpoint) AddTxOuts(tx *wire.Tx, blockHeight uint64) {
	msgTx := tx.MsgTx()
	isCoinbase := msgTx.IsCoinBase()
	txHash := *tx.Hash()
	for i, txOut := range msgTx.TxOut {
		v.entries[wire.OutPoint{Hash: txHash, Index: uint32(i)}] = &UtxoEntry{
			Amount:      txOut.Value,
			PkScript:    txOut.PkScript,
			BlockHeight: blockHeight,
			IsCoinbase:  isCoinbase,
		}
	}
}

// SpendEntry marks the output referenced by outpoint as spent in the
// view, mirroring how a selected transaction's inputs retire the
// corresponding entries.
func (v *UtxoViewpoint) SpendEntry(outpoint wire.OutPoint) {
	if entry, ok := v.entries[outpoint]; ok {
		entry.Spent = true
	}
}

// merge copies every entry of other into v that v does not already have,
// the way fetched on-chain inputs and in-pass selected outputs are
// combined into a single lookup surface for calcPriority and fee
// accounting.
func (v *UtxoViewpoint) merge(other *UtxoViewpoint) {
	if other == nil {
		return
	}
	for outpoint, entry := range other.entries {
		if _, exists := v.entries[outpoint]; !exists {
			v.entries[outpoint] = entry
		}
	}
}
