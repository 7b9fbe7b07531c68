// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package forkmining

import (
	"encoding/binary"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/forksnapshot"
	"github.com/forkchain/forkd/mining"
	"github.com/forkchain/forkd/wire"
)

// fakeChainView is a minimal mining.ChainView for exercising the fork
// template builder without a real chain. tipSequence lets a test script a
// sequence of Tip() results across calls to simulate the tip advancing
// mid-build (spec §8 scenario 5).
type fakeChainView struct {
	mu          sync.Mutex
	tipSequence []mining.ChainTip
	calls       int
	subsidy     uint64
	bits        uint32
	version     int32
}

func (c *fakeChainView) Lock()   { c.mu.Lock() }
func (c *fakeChainView) Unlock() { c.mu.Unlock() }

func (c *fakeChainView) Tip() mining.ChainTip {
	idx := c.calls
	if idx >= len(c.tipSequence) {
		idx = len(c.tipSequence) - 1
	}
	c.calls++
	return c.tipSequence[idx]
}

func (c *fakeChainView) GetNextWorkRequired(prevHash chainhash.Hash, candidateTime time.Time) uint32 {
	return c.bits
}

func (c *fakeChainView) ComputeBlockVersion() int32 { return c.version }

func (c *fakeChainView) GetBlockSubsidy(height uint64) uint64 { return c.subsidy }

func (c *fakeChainView) TestBlockValidity(block *wire.MsgBlock, tipHash chainhash.Hash) error {
	return nil
}

func (c *fakeChainView) ProcessNewBlock(block *wire.MsgBlock) error { return nil }

func writeTransparentSnapshot(t *testing.T, dir string, height uint64, amounts []uint64) {
	t.Helper()
	path := forksnapshot.GetUTXOFileName(dir, height, 0)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
	defer f.Close()

	for _, amount := range amounts {
		var amtBuf [8]byte
		binary.LittleEndian.PutUint64(amtBuf[:], amount)
		f.Write(amtBuf[:])

		script := []byte{0x51}
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(script)))
		f.Write(lenBuf[:])
		f.Write(script)
		f.Write([]byte{0x0A})
	}
}

// TestForkTemplateTransparentSnapshot covers spec §8 scenario 4: a
// transparent snapshot file for height 200 with records {0, 100, 250}
// produces a body of 4 transactions (placeholder coinbase + 3 synthetic
// coinbases) with doubled non-zero amounts, a fork-sentinel reserved
// hash, and a hashPid-bearing first synthetic coinbase.
func TestForkTemplateTransparentSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeTransparentSnapshot(t, dir, 200, []uint64{0, 100, 250})

	tip := mining.ChainTip{Height: 199, Hash: chainhash.Hash{0x01}, MedianTimePast: time.Unix(1000, 0)}
	chainView := &fakeChainView{tipSequence: []mining.ChainTip{tip, tip}, subsidy: 0, bits: 0x1d00ffff, version: 4}

	builder := NewBuilder(Config{SnapshotDir: dir, ForkCBPerBlock: 10, ZUtxoMiningStartBlock: 0}, chainView)

	template, err := builder.NewBlockTemplate()
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}

	if len(template.Block.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4", len(template.Block.Transactions))
	}

	wantValues := []uint64{0, 200, 500}
	for i, want := range wantValues {
		got := template.Block.Transactions[i+1].TxOut[0].Value
		if got != want {
			t.Errorf("tx %d value = %d, want %d", i+1, got, want)
		}
	}

	if template.Block.Header.ReservedHash != wire.ReservedHashForkSentinel {
		t.Errorf("reserved hash = %v, want the fork sentinel", template.Block.Header.ReservedHash)
	}

	firstSynthetic := template.Block.Transactions[1]
	found := false
	sigScript := firstSynthetic.TxIn[0].SignatureScript
	for i := 0; i+len(ProcessIdentityHash) <= len(sigScript); i++ {
		if string(sigScript[i:i+len(ProcessIdentityHash)]) == string(ProcessIdentityHash) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("first synthetic coinbase script_sig does not contain the process identity hash")
	}
}

// TestForkTemplateRetriesOnTipRace covers spec §8 scenario 5: the tip
// advances between the initial snapshot and the finalization recheck, so
// the builder must retry and bind the final template to the new tip.
func TestForkTemplateRetriesOnTipRace(t *testing.T) {
	dir := t.TempDir()
	writeTransparentSnapshot(t, dir, 200, []uint64{10})
	writeTransparentSnapshot(t, dir, 201, []uint64{20})

	staleTip := mining.ChainTip{Height: 199, Hash: chainhash.Hash{0x01}, MedianTimePast: time.Unix(1000, 0)}
	newTip := mining.ChainTip{Height: 200, Hash: chainhash.Hash{0x02}, MedianTimePast: time.Unix(1010, 0)}

	// First NewBlockTemplate call: (1) initial Tip() snapshot is stale,
	// (2) finalization Tip() recheck observes the advanced tip and
	// triggers a retry, (3) the retry's initial Tip() snapshot and
	// (4) its finalization recheck both observe the new tip and
	// succeed.
	chainView := &fakeChainView{
		tipSequence: []mining.ChainTip{staleTip, newTip, newTip, newTip},
		bits:        0x1d00ffff,
		version:     4,
	}

	builder := NewBuilder(Config{SnapshotDir: dir, ForkCBPerBlock: 10, ZUtxoMiningStartBlock: 0}, chainView)

	template, err := builder.NewBlockTemplate()
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}

	if template.Height != newTip.Height+1 {
		t.Errorf("height = %d, want %d", template.Height, newTip.Height+1)
	}
	if template.Block.Header.PrevHash != newTip.Hash {
		t.Errorf("prev_hash = %v, want the new tip's hash", template.Block.Header.PrevHash)
	}
}

// TestForkTemplateMissingSnapshotIsSoftError covers spec §8 scenario 6:
// when the snapshot file for the target height doesn't exist yet,
// NewBlockTemplate surfaces the soft ErrSnapshotMissing error rather than
// a hard failure, so the mining loop can sleep and retry indefinitely.
func TestForkTemplateMissingSnapshotIsSoftError(t *testing.T) {
	dir := t.TempDir()
	tip := mining.ChainTip{Height: 199, MedianTimePast: time.Unix(1000, 0)}
	chainView := &fakeChainView{tipSequence: []mining.ChainTip{tip, tip}}

	builder := NewBuilder(Config{SnapshotDir: dir, ForkCBPerBlock: 10}, chainView)

	_, err := builder.NewBlockTemplate()
	if err != forksnapshot.ErrSnapshotMissing {
		t.Fatalf("err = %v, want ErrSnapshotMissing", err)
	}
}
