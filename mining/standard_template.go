// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/txscript"
	"github.com/forkchain/forkd/wire"
)

// lastBlockTx and lastBlockSize are the process-wide telemetry counters
// spec §6.6 calls for: "updated at the end of each standard build and
// exposed as read-only telemetry." Package-level rather than
// per-Generator since the teacher's own nLastBlockTx/nLastBlockSize are
// themselves process globals, not per-instance fields.
var (
	lastBlockTx   atomic.Uint64
	lastBlockSize atomic.Uint32
)

// LastBlockTx returns the transaction count (including the coinbase) of
// the most recently built standard-mode template.
func LastBlockTx() uint64 { return lastBlockTx.Load() }

// LastBlockSize returns the size, in bytes, of the most recently built
// standard-mode template: the selector's running blockSize (spec §4.4,
// including the fixed reserve) plus the serialized size of the coinbase.
func LastBlockSize() uint32 { return lastBlockSize.Load() }

// Generator builds block templates.  It is the composition root the
// mining loop talks to: it owns neither the chain state nor the
// transaction pool, only the narrow interfaces (ChainView, TxSource) spec
// §1 leaves as the node's responsibility.
type Generator struct {
	Policy         Policy
	ChainView      ChainView
	TxSource       TxSource
	TimeSource     MedianTimeSource
	ScriptVerifier ScriptVerifier
	PrintPriority  bool
}

// NewGenerator returns a Generator ready to build standard templates.
func NewGenerator(policy Policy, chainView ChainView, txSource TxSource, timeSource MedianTimeSource) *Generator {
	return &Generator{
		Policy:     policy,
		ChainView:  chainView,
		TxSource:   txSource,
		TimeSource: timeSource,
	}
}

// NewBlockTemplate builds a new block template for a miner to solve using
// the transactions from the source pool and paying the subsidy plus
// collected fees to payToScript (spec component C5 "Standard Template
// Builder", §4.4).
//
// Locking follows spec §5: the chain and pool mutexes are acquired
// jointly for the duration of the build, since selection and fee/priority
// accounting are local CPU work rather than the snapshot I/O the fork
// builder has to release the chain lock around.
func (g *Generator) NewBlockTemplate(payToScript []byte) (*BlockTemplate, error) {
	if len(payToScript) == 0 {
		return nil, ErrNoPayoutAddress
	}

	g.ChainView.Lock()
	defer g.ChainView.Unlock()
	g.TxSource.Lock()
	defer g.TxSource.Unlock()

	tip := g.ChainView.Tip()
	nextHeight := tip.Height + 1
	blockTime := MedianAdjustedTime(tip, g.TimeSource)

	chainUtxos, err := g.fetchChainUtxos()
	if err != nil {
		return nil, err
	}

	selected, err := SelectTransactions(
		g.Policy, g.TxSource, chainUtxos, g.ScriptVerifier, nextHeight, blockTime,
	)
	if err != nil {
		return nil, err
	}

	if g.PrintPriority {
		g.dumpPriorities(selected)
	}

	var totalFees int64
	for _, fee := range selected.Fees {
		totalFees += fee
	}

	subsidy := g.ChainView.GetBlockSubsidy(nextHeight)
	coinbaseTx, err := createCoinbaseTx(nextHeight, subsidy, totalFees, payToScript)
	if err != nil {
		return nil, err
	}
	coinbaseSigOps := int64(1)

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    g.ChainView.ComputeBlockVersion(),
			PrevHash:   tip.Hash,
			Time:       uint32(blockTime.Unix()),
			Bits:       g.ChainView.GetNextWorkRequired(tip.Hash, blockTime),
			ReservedHash: chainhash.ZeroHash,
		},
	}
	block.AddTransaction(coinbaseTx.MsgTx())
	for _, tx := range selected.Txs {
		block.AddTransaction(tx.MsgTx())
	}
	block.Header.MerkleRoot = wire.BuildMerkleRoot(block.Transactions)

	fees := append([]int64{-totalFees}, selected.Fees...)
	sigOps := append([]int64{coinbaseSigOps}, selected.SigOpCounts...)

	if err := g.ChainView.TestBlockValidity(block, tip.Hash); err != nil {
		return nil, errors.Wrap(ErrTemplateInvalid, err.Error())
	}

	lastBlockTx.Store(uint64(len(block.Transactions)))
	lastBlockSize.Store(selected.BlockSize + uint32(coinbaseTx.MsgTx().SerializeSize()))

	return &BlockTemplate{
		Block:           block,
		Fees:            fees,
		SigOpCounts:     sigOps,
		Height:          nextHeight,
		ValidPayAddress: true,
	}, nil
}

// prioLogEntry is the per-transaction summary dumped under -printpriority
// (spec §6.6), grounded on the priority/fee-rate pair the lineage's own
// "done priority" debug line logs.
type prioLogEntry struct {
	Hash     chainhash.Hash
	Fee      int64
	SigOps   int64
	Priority float64
}

// dumpPriorities logs a go-spew dump of every selected transaction's
// priority and fee, matching the -printpriority option named in spec
// §6.6 but left unspecified by spec §4.4.
func (g *Generator) dumpPriorities(selected *SelectionResult) {
	entries := make([]prioLogEntry, len(selected.Txs))
	for i, tx := range selected.Txs {
		entries[i] = prioLogEntry{
			Hash:     *tx.Hash(),
			Fee:      selected.Fees[i],
			SigOps:   selected.SigOpCounts[i],
			Priority: selected.Priorities[i],
		}
	}
	log.Debugf("selected %d transactions:\n%s", len(entries), spew.Sdump(entries))
}

// fetchChainUtxos asks the transaction source for the confirmed inputs of
// every candidate transaction up front isn't possible in general (the
// source only resolves inputs per-transaction), so this starts with an
// empty view and relies on SelectTransactions to pull each candidate's
// inputs as it visits them. Kept as a seam so a future chain-view-backed
// bulk fetch can slot in without changing NewBlockTemplate's shape.
func (g *Generator) fetchChainUtxos() (*UtxoViewpoint, error) {
	return NewUtxoViewpoint(), nil
}

// createCoinbaseTx returns a coinbase transaction paying an appropriate
// subsidy plus fees to the provided payout script, using the standard
// height-in-scriptSig form (BIP34-style) rather than the fork mode's
// synthetic doubling scheme.
func createCoinbaseTx(nextHeight uint64, subsidy uint64, fees int64, payToScript []byte) (*wire.Tx, error) {
	scriptBuilder := txscript.NewScriptBuilder().
		AddInt64(int64(nextHeight)).
		AddOp(txscript.OP_0)
	sigScript, err := scriptBuilder.Script()
	if err != nil {
		return nil, err
	}
	if len(sigScript) > 100 {
		return nil, ErrOversizedScriptSig
	}

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    subsidy + uint64(fees),
		PkScript: payToScript,
	})
	return wire.NewTx(tx), nil
}
