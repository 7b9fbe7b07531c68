// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"sync"
	"time"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/wire"
)

// fakeTxSource is a minimal in-memory TxSource for exercising the
// selector without a real mempool.
type fakeTxSource struct {
	mu          sync.Mutex
	descs       []*MempoolEntry
	lastUpdated time.Time
	confirmed   map[wire.OutPoint]*UtxoEntry
	have        map[chainhash.Hash]bool
}

func newFakeTxSource() *fakeTxSource {
	return &fakeTxSource{
		confirmed: make(map[wire.OutPoint]*UtxoEntry),
		have:      make(map[chainhash.Hash]bool),
		lastUpdated: time.Now(),
	}
}

func (s *fakeTxSource) Lock()   {}
func (s *fakeTxSource) Unlock() {}

func (s *fakeTxSource) LastUpdated() time.Time { return s.lastUpdated }

func (s *fakeTxSource) MiningDescs() []*MempoolEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*MempoolEntry, len(s.descs))
	copy(out, s.descs)
	return out
}

func (s *fakeTxSource) HaveTransaction(txID chainhash.Hash) bool {
	return s.have[txID]
}

func (s *fakeTxSource) FetchInputUtxos(tx *wire.Tx) (*UtxoViewpoint, error) {
	view := NewUtxoViewpoint()
	for _, txIn := range tx.MsgTx().TxIn {
		if entry, ok := s.confirmed[txIn.PreviousOutPoint]; ok {
			view.AddEntry(txIn.PreviousOutPoint, entry)
		}
	}
	return view, nil
}

func (s *fakeTxSource) add(tx *wire.Tx, fee uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descs = append(s.descs, &MempoolEntry{Tx: tx, Added: time.Now(), Fee: fee})
	s.have[*tx.Hash()] = true
}

func (s *fakeTxSource) confirm(outpoint wire.OutPoint, entry *UtxoEntry) {
	s.confirmed[outpoint] = entry
}

// fakeTimeSource always reports a fixed adjusted time.
type fakeTimeSource struct{ now time.Time }

func (f fakeTimeSource) AdjustedTime() time.Time { return f.now }

// fakeChainView is a minimal ChainView for exercising the template
// builders without a real chain.
type fakeChainView struct {
	mu      sync.Mutex
	tip     ChainTip
	subsidy uint64
	version int32
	bits    uint32
}

func (c *fakeChainView) Lock()   { c.mu.Lock() }
func (c *fakeChainView) Unlock() { c.mu.Unlock() }

func (c *fakeChainView) Tip() ChainTip { return c.tip }

func (c *fakeChainView) GetNextWorkRequired(prevHash chainhash.Hash, candidateTime time.Time) uint32 {
	return c.bits
}

func (c *fakeChainView) ComputeBlockVersion() int32 { return c.version }

func (c *fakeChainView) GetBlockSubsidy(height uint64) uint64 { return c.subsidy }

func (c *fakeChainView) TestBlockValidity(block *wire.MsgBlock, tipHash chainhash.Hash) error {
	return nil
}

func (c *fakeChainView) ProcessNewBlock(block *wire.MsgBlock) error { return nil }

// buildTx is a small helper for constructing test transactions with a
// single input and output.
func buildTx(prevHash chainhash.Hash, prevIndex uint32, outValue uint64, pkScriptLen int) *wire.Tx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevHash, Index: prevIndex},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: outValue, PkScript: make([]byte, pkScriptLen)})
	return wire.NewTx(tx)
}
