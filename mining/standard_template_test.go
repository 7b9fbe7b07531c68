// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"

	"github.com/forkchain/forkd/chainhash"
)

// TestStandardEmptyPoolTemplate covers spec §8 scenario 1: an empty
// mempool at height 100 should still produce a single-transaction
// template (the coinbase alone) paying the full subsidy with zero fees,
// and an all-zero reserved hash (standard mode, not the fork sentinel).
func TestStandardEmptyPoolTemplate(t *testing.T) {
	chainView := &fakeChainView{
		tip:     ChainTip{Height: 100, Hash: chainhash.Hash{0x01}, MedianTimePast: time.Unix(1000, 0)},
		subsidy: 5000000000,
		version: 4,
		bits:    0x1d00ffff,
	}
	txSource := newFakeTxSource()
	timeSource := fakeTimeSource{now: time.Unix(1100, 0)}

	gen := NewGenerator(NewPolicy(750000, 50000, 0, 0), chainView, txSource, timeSource)

	payToScript := make([]byte, 25)
	template, err := gen.NewBlockTemplate(payToScript)
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}

	if len(template.Block.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(template.Block.Transactions))
	}
	if len(template.Fees) != 1 || template.Fees[0] != 0 {
		t.Errorf("fees = %v, want [0]", template.Fees)
	}
	coinbaseOut := template.Block.Transactions[0].TxOut[0]
	if coinbaseOut.Value != chainView.subsidy {
		t.Errorf("coinbase output = %d, want subsidy %d", coinbaseOut.Value, chainView.subsidy)
	}
	if template.Block.Header.ReservedHash != chainhash.ZeroHash {
		t.Errorf("reserved hash = %v, want zero", template.Block.Header.ReservedHash)
	}
	if template.Height != 101 {
		t.Errorf("height = %d, want 101", template.Height)
	}
	if !template.ValidPayAddress {
		t.Errorf("ValidPayAddress = false, want true")
	}
}

// TestStandardTemplateRejectsEmptyPayoutScript covers the ErrNoPayoutAddress
// guard: a miner with no configured payout address cannot build a
// standard template at all.
func TestStandardTemplateRejectsEmptyPayoutScript(t *testing.T) {
	chainView := &fakeChainView{tip: ChainTip{Height: 100, MedianTimePast: time.Unix(1000, 0)}, subsidy: 1}
	gen := NewGenerator(NewPolicy(750000, 50000, 0, 0), chainView, newFakeTxSource(), fakeTimeSource{now: time.Unix(1100, 0)})

	if _, err := gen.NewBlockTemplate(nil); err != ErrNoPayoutAddress {
		t.Fatalf("err = %v, want ErrNoPayoutAddress", err)
	}
}

// TestStandardTemplateUpdatesTelemetryCounters covers spec §6.6's
// "process-wide counters nLastBlockTx and nLastBlockSize are updated at
// the end of each standard build."
func TestStandardTemplateUpdatesTelemetryCounters(t *testing.T) {
	chainView := &fakeChainView{
		tip:     ChainTip{Height: 100, Hash: chainhash.Hash{0x01}, MedianTimePast: time.Unix(1000, 0)},
		subsidy: 5000000000,
		version: 4,
		bits:    0x1d00ffff,
	}
	gen := NewGenerator(NewPolicy(750000, 50000, 0, 0), chainView, newFakeTxSource(), fakeTimeSource{now: time.Unix(1100, 0)})

	if _, err := gen.NewBlockTemplate(make([]byte, 25)); err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}

	if got := LastBlockTx(); got != 1 {
		t.Errorf("LastBlockTx() = %d, want 1", got)
	}
	if got := LastBlockSize(); got == 0 {
		t.Errorf("LastBlockSize() = %d, want nonzero", got)
	}
}

// TestStandardTemplatePrintPriorityDoesNotAlterResult covers spec §6.6's
// -printpriority option: enabling the debug dump must not change the
// template it builds.
func TestStandardTemplatePrintPriorityDoesNotAlterResult(t *testing.T) {
	chainView := &fakeChainView{
		tip:     ChainTip{Height: 100, Hash: chainhash.Hash{0x01}, MedianTimePast: time.Unix(1000, 0)},
		subsidy: 5000000000,
		version: 4,
		bits:    0x1d00ffff,
	}
	source := newFakeTxSource()
	txA := buildTx(chainhash.Hash{0xAA}, 0, 1000, 10)
	source.confirm(txA.MsgTx().TxIn[0].PreviousOutPoint, &UtxoEntry{Amount: 5000, BlockHeight: 50})
	source.add(txA, 100)

	gen := NewGenerator(NewPolicy(750000, 50000, 0, 0), chainView, source, fakeTimeSource{now: time.Unix(1100, 0)})
	gen.PrintPriority = true

	template, err := gen.NewBlockTemplate(make([]byte, 25))
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}
	if len(template.Block.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(template.Block.Transactions))
	}
}
