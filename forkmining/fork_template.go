// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package forkmining

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"

	"github.com/forkchain/forkd/forksnapshot"
	"github.com/forkchain/forkd/mining"
	"github.com/forkchain/forkd/wire"
)

// Config bundles the knobs the fork template builder needs beyond its
// ChainView collaborator (spec §6.6).
type Config struct {
	SnapshotDir           string
	ForkCBPerBlock        int
	ZUtxoMiningStartBlock uint64
}

// Builder drives the fork-mode template assembly described in spec
// §4.3. It holds no chain state of its own: every build starts from a
// freshly observed tip via ChainView.
type Builder struct {
	Config    Config
	ChainView mining.ChainView
}

// NewBuilder returns a fork template Builder bound to chainView.
func NewBuilder(cfg Config, chainView mining.ChainView) *Builder {
	return &Builder{Config: cfg, ChainView: chainView}
}

// NewBlockTemplate produces a complete fork-mode BlockTemplate bound to
// the chain's current tip, retrying if the tip advances between the
// initial snapshot and finalization (spec §4.3 steps 1, 5).
func (b *Builder) NewBlockTemplate() (*mining.BlockTemplate, error) {
	for {
		b.ChainView.Lock()
		snapped := b.ChainView.Tip()
		b.ChainView.Unlock()

		target := snapped.Height + 1

		block, fees, sigOps, err := b.buildInner(target)
		if err != nil {
			return nil, err
		}

		block.Header.ReservedHash = wire.ReservedHashForkSentinel
		block.Header.Solution = nil
		if err := randomizeNonce(&block.Header); err != nil {
			return nil, err
		}

		b.ChainView.Lock()
		tip := b.ChainView.Tip()
		if tip.Height != snapped.Height {
			b.ChainView.Unlock()
			continue
		}

		blockTime := mining.MedianAdjustedTime(tip, nil)
		block.Header.PrevHash = tip.Hash
		block.Header.Time = uint32(blockTime.Unix())
		block.Header.Bits = b.ChainView.GetNextWorkRequired(tip.Hash, blockTime)
		block.Header.Version = b.ChainView.ComputeBlockVersion()
		block.Header.MerkleRoot = wire.BuildMerkleRoot(block.Transactions)

		validateErr := b.ChainView.TestBlockValidity(block, tip.Hash)
		b.ChainView.Unlock()

		if validateErr != nil {
			return nil, errors.Wrap(mining.ErrTemplateInvalid, validateErr.Error())
		}

		return &mining.BlockTemplate{
			Block:       block,
			Fees:        fees,
			SigOpCounts: sigOps,
			Height:      target,
		}, nil
	}
}

// buildInner opens the snapshot for target, builds a dummy placeholder
// coinbase, and replays records through the coinbase builder, respecting
// the I3/I4 caps (spec §4.3 step 3). A SnapshotMissing error propagates
// unwrapped as the soft "not ready" signal; a SnapshotCorrupt error (or a
// clean end-of-file) simply stops appending -- the partial template,
// which always contains at least the dummy coinbase, is still returned
// (spec §9 open question).
func (b *Builder) buildInner(target uint64) (*wire.MsgBlock, []int64, []int64, error) {
	reader, err := forksnapshot.Open(b.Config.SnapshotDir, target, b.Config.ZUtxoMiningStartBlock, b.Config.ForkCBPerBlock)
	if err != nil {
		return nil, nil, nil, err
	}
	defer reader.Close()

	block := &wire.MsgBlock{}
	block.AddTransaction(placeholderCoinbase())

	fees := []int64{0}
	sigOps := []int64{1}

	blockSize := uint32(1000)
	blockSigOps := int64(100)

	var index uint64
	for {
		record, err := reader.Next()
		if errors.Is(err, forksnapshot.ErrSnapshotCorrupt) {
			log.Warnf("fork template for height %d: stopping after %d record(s): %v", target, index, err)
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		payout := SnapshotPayout{Amount: record.Amount, Script: record.Script, PreSerializedTx: record.TxBytes}
		coinbaseTx, err := BuildCoinbase(target, index, payout)
		if err != nil {
			// OversizedScriptSig: skip this record, keep going
			// (spec §4.2 "transaction skipped").
			log.Warnf("fork template for height %d: skipping record %d: %v", target, index, err)
			index++
			continue
		}

		txSize := uint32(coinbaseTx.MsgTx().SerializeSize())
		txSigOps := int64(1)
		if blockSize+txSize >= mining.MaxBlockSize || blockSigOps+txSigOps >= mining.MaxBlockSigOps {
			break
		}

		block.AddTransaction(coinbaseTx.MsgTx())
		fees = append(fees, 0)
		sigOps = append(sigOps, txSigOps)
		blockSize += txSize
		blockSigOps += txSigOps
		index++
	}

	return block, fees, sigOps, nil
}

// placeholderCoinbase returns the dummy element-0 coinbase installed
// before the record replay begins (spec §4.3 step 3). It stays element 0
// of the final template; snapshot records are appended after it, and the
// first appended record (element 1) carries the hashPid-bearing
// script_sig that invariant I7 requires.
func placeholderCoinbase() *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	return tx
}

// randomizeNonce picks a random nonce with its top 16 bits and bottom 16
// bits cleared, reserving them for solver-local thread flags and
// counters (spec §4.3 step 4).
func randomizeNonce(header *wire.BlockHeader) error {
	if _, err := rand.Read(header.Nonce[:]); err != nil {
		return err
	}
	header.Nonce[0] = 0
	header.Nonce[1] = 0
	header.Nonce[len(header.Nonce)-2] = 0
	header.Nonce[len(header.Nonce)-1] = 0
	return nil
}
