// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cpuminer drives the per-worker mining loop and the supervisor
// that spawns and tears it down (spec components C6 "Mining Loop" and C7
// "Miner Supervisor").
package cpuminer

import (
	"math/big"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/equihash"
	"github.com/forkchain/forkd/forkmining"
	"github.com/forkchain/forkd/forksnapshot"
	"github.com/forkchain/forkd/logger"
	"github.com/forkchain/forkd/mining"
)

var log, _ = logger.Get(logger.SubsystemTags.CPUM)

// PeerGate reports the node's peer and sync state so the mining loop can
// honor the peer gate (spec §4.6 "Peer gate").
type PeerGate interface {
	HasPeers() bool
	InitialBlockDownloadComplete() bool
}

// KeyProvider hands a worker an independent reserved payout script for a
// fresh standard-mode coinbase (spec §4.7 "independent reserved-key
// handle").
type KeyProvider interface {
	ReservePayoutScript() ([]byte, error)
}

// TipNotifier lets the miner register for tip-change notifications that
// fan out to every worker's cancel flag (spec §5).
type TipNotifier interface {
	NotifyBlockTip(func(newTipHash chainhash.Hash))
}

// Config configures the supervisor and every worker it spawns (spec
// §4.7, §6.6).
type Config struct {
	Enabled     bool
	ThreadCount int

	ForkMine         bool
	ForkStartHeight  uint64
	ForkHeightRange  uint64
	MineOnDemand     bool
	PeersRequired    bool
	EquihashSolver   string
	PrintPriority    bool
	Policy           mining.Policy
	ForkSnapshot     forkmining.Config
}

// Miner is the C7 Miner Supervisor: it owns the worker pool and is safe
// for concurrent Reconfigure/Stop calls.
type Miner struct {
	mu      sync.Mutex
	cfg     Config
	workers []*worker
	wg      sync.WaitGroup

	chainView  mining.ChainView
	txSource   mining.TxSource
	timeSource mining.MedianTimeSource
	peerGate   PeerGate
	keys       KeyProvider
}

// New returns a Miner ready to be configured and started.
func New(cfg Config, chainView mining.ChainView, txSource mining.TxSource, timeSource mining.MedianTimeSource, peerGate PeerGate, keys KeyProvider) *Miner {
	return &Miner{cfg: cfg, chainView: chainView, txSource: txSource, timeSource: timeSource, peerGate: peerGate, keys: keys}
}

// isForkBlock reports whether height falls inside the fork window (spec
// §4.6 "Mode choice", GLOSSARY "Fork window").
func (m *Miner) isForkBlock(height uint64) bool {
	if m.cfg.ForkHeightRange == 0 {
		return false
	}
	return height >= m.cfg.ForkStartHeight && height < m.cfg.ForkStartHeight+m.cfg.ForkHeightRange
}

// Reconfigure applies cfg, interrupting and joining any existing workers
// first (spec §4.7). If cfg.Enabled is false or ThreadCount is 0, the
// miner stays stopped after teardown.
func (m *Miner) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.cfg = cfg

	if !cfg.Enabled || cfg.ThreadCount == 0 {
		return
	}

	threadCount := cfg.ThreadCount
	if threadCount < 0 {
		threadCount = runtime.NumCPU()
	}

	m.workers = make([]*worker, threadCount)
	for i := 0; i < threadCount; i++ {
		w := &worker{id: i, miner: m, interruptCh: make(chan struct{})}
		m.workers[i] = w
		m.wg.Add(1)
		go w.run(&m.wg)
	}
}

// Stop interrupts and joins all running workers.
func (m *Miner) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Miner) stopLocked() {
	for _, w := range m.workers {
		w.interrupt()
	}
	m.wg.Wait()
	m.workers = nil
}

// NotifyTipChanged fans a tip-change notification out to every worker's
// cancel flag (spec §5).
func (m *Miner) NotifyTipChanged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		w.setCancel()
	}
}

// worker is one C6 Mining Loop state machine instance.
type worker struct {
	id    int
	miner *Miner

	cancelMu sync.Mutex
	cancel   bool

	interruptOnce sync.Once
	interruptCh   chan struct{}

	extraNonce uint64
}

func (w *worker) setCancel() {
	w.cancelMu.Lock()
	w.cancel = true
	w.cancelMu.Unlock()
}

func (w *worker) clearCancel() {
	w.cancelMu.Lock()
	w.cancel = false
	w.cancelMu.Unlock()
}

func (w *worker) cancelled() bool {
	w.cancelMu.Lock()
	defer w.cancelMu.Unlock()
	return w.cancel
}

func (w *worker) interrupt() {
	w.interruptOnce.Do(func() {
		if w.interruptCh != nil {
			close(w.interruptCh)
		}
	})
}

func (w *worker) interrupted() bool {
	select {
	case <-w.interruptCh:
		return true
	default:
		return false
	}
}

// run is the worker's top-level loop: peer gate, mode choice, build,
// solve, submit, repeat (spec §4.6 state machine).
func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	cfg := w.miner.cfg
	payoutScript, err := w.miner.keys.ReservePayoutScript()
	if err != nil {
		log.Errorf("miner worker %d: %v", w.id, mining.ErrKeypoolExhausted)
		return
	}

	for {
		if w.interrupted() {
			return
		}

		if !w.waitForPeers() {
			return
		}

		w.clearCancel()

		tip := w.snapshotTip()
		nextHeight := tip.Height + 1

		var template *mining.BlockTemplate
		var buildErr error
		if w.miner.isForkBlock(nextHeight) {
			builder := forkmining.NewBuilder(cfg.ForkSnapshot, w.miner.chainView)
			template, buildErr = builder.NewBlockTemplate()
			if buildErr != nil {
				if errors.Is(buildErr, forksnapshot.ErrSnapshotMissing) {
					time.Sleep(time.Second)
					continue
				}
				log.Errorf("miner worker %d: fork build failed, exiting: %v", w.id, buildErr)
				return
			}
		} else {
			generator := mining.NewGenerator(cfg.Policy, w.miner.chainView, w.miner.txSource, w.miner.timeSource)
			generator.PrintPriority = cfg.PrintPriority
			template, buildErr = generator.NewBlockTemplate(payoutScript)
			if buildErr != nil {
				log.Errorf("miner worker %d: standard build failed: %v", w.id, buildErr)
				continue
			}
		}

		if w.solveAndSubmit(template) {
			if cfg.MineOnDemand && !w.miner.isForkBlock(nextHeight) {
				w.interrupt()
				return
			}
		}
	}
}

func (w *worker) snapshotTip() mining.ChainTip {
	w.miner.chainView.Lock()
	defer w.miner.chainView.Unlock()
	return w.miner.chainView.Tip()
}

func (w *worker) waitForPeers() bool {
	cfg := w.miner.cfg
	if !cfg.PeersRequired {
		return true
	}
	for {
		if w.interrupted() {
			return false
		}
		gate := w.miner.peerGate
		if gate.HasPeers() && (gate.InitialBlockDownloadComplete() || cfg.ForkMine) {
			return true
		}
		time.Sleep(time.Second)
	}
}

// solveAndSubmit runs the Equihash search against template until a
// solution is found and submitted, or an exit condition fires (spec
// §4.6 "Solve", "Exit conditions").
func (w *worker) solveAndSubmit(template *mining.BlockTemplate) bool {
	cfg := w.miner.cfg
	solver, err := equihash.Select(cfg.EquihashSolver)
	if err != nil {
		log.Errorf("miner worker %d: %v", w.id, err)
		return false
	}

	header := &template.Block.Header
	iterationStart := time.Now()
	lastTxUpdate := w.miner.txSource.LastUpdated()

	// The top 16 bits of the nonce were cleared by the template builder
	// (spec §4.3 step 4, "reserving them as solver-local thread flags and
	// counters"). Stamp this worker's extra-nonce into them so
	// concurrently running workers explore disjoint nonce spaces without
	// needing to touch the selected transactions (GLOSSARY "Extra-nonce").
	header.Nonce[0] = byte(w.extraNonce >> 8)
	header.Nonce[1] = byte(w.extraNonce)
	w.extraNonce++

	for {
		if w.interrupted() {
			return false
		}
		if cfg.PeersRequired && !w.miner.peerGate.HasPeers() {
			return false
		}
		if header.Nonce[len(header.Nonce)-2] == 0xFF && header.Nonce[len(header.Nonce)-1] == 0xFF {
			return false
		}
		if time.Since(iterationStart) >= 60*time.Second && w.miner.txSource.LastUpdated() != lastTxUpdate {
			return false
		}
		if w.tipChanged(header.PrevHash) {
			return false
		}

		var prefixBuf prefixWriter
		if err := header.SerializePrefix(&prefixBuf); err != nil {
			log.Errorf("miner worker %d: %v", w.id, err)
			return false
		}
		state, err := equihash.NewHashState(prefixBuf.buf)
		if err != nil {
			log.Errorf("miner worker %d: %v", w.id, err)
			return false
		}

		digest, err := state.Extend(header.Nonce[:])
		if err != nil {
			log.Errorf("miner worker %d: %v", w.id, err)
			return false
		}

		solved := false
		hashTarget := compactToTarget(header.Bits)
		callbacks := equihash.Callbacks{
			ValidBlock: func(solution []byte) bool {
				header.Solution = solution
				blockHash := header.BlockHash()
				if !hashBelowTarget(blockHash, hashTarget) {
					return false
				}
				if w.submit(template) {
					solved = true
				}
				return true
			},
			Cancelled: w.cancelled,
		}

		if err := solver.Solve(digest, callbacks); err != nil {
			log.Errorf("miner worker %d: solver error: %v", w.id, err)
			return false
		}
		if solved {
			return true
		}

		advanceNonce(&header.Nonce)
		header.Time = updateBlockTime(header.Time)
	}
}

// tipChanged reports whether the chain tip no longer matches prevHash.
func (w *worker) tipChanged(prevHash chainhash.Hash) bool {
	w.miner.chainView.Lock()
	defer w.miner.chainView.Unlock()
	return w.miner.chainView.Tip().Hash != prevHash
}

// submit hands a solved block to the chain's processing entry, dropping
// it as stale if the tip moved since the template was built (spec §4.6
// "Submit").
func (w *worker) submit(template *mining.BlockTemplate) bool {
	w.miner.chainView.Lock()
	defer w.miner.chainView.Unlock()

	tip := w.miner.chainView.Tip()
	if tip.Hash != template.Block.Header.PrevHash {
		log.Warnf("miner worker %d: %v", w.id, mining.ErrStaleBlock)
		return false
	}

	if err := w.miner.chainView.ProcessNewBlock(template.Block); err != nil {
		log.Errorf("miner worker %d: block rejected: %v", w.id, err)
		return false
	}
	return true
}

// compactToTarget expands a compact difficulty representation into the
// full 256-bit target, the standard Bitcoin-lineage "nBits" encoding:
// the high byte is an exponent and the remaining three bytes are the
// mantissa.
func compactToTarget(bits uint32) *big.Int {
	mantissa := int64(bits & 0x007fffff)
	exponent := uint(bits >> 24)

	target := big.NewInt(mantissa)
	if exponent <= 3 {
		target.Rsh(target, 8*(3-exponent))
	} else {
		target.Lsh(target, 8*(exponent-3))
	}
	return target
}

// hashBelowTarget reports whether hash, read as a big-endian integer
// over its reversed (little-endian display) byte order, is at or below
// target.
func hashBelowTarget(hash chainhash.Hash, target *big.Int) bool {
	reversed := make([]byte, chainhash.HashSize)
	for i, b := range hash {
		reversed[chainhash.HashSize-1-i] = b
	}
	hashInt := new(big.Int).SetBytes(reversed)
	return hashInt.Cmp(target) <= 0
}

// updateBlockTime recomputes the header timestamp mid-search the way
// spec §4.6 "Nonce advance" calls for, without rewinding it.
func updateBlockTime(current uint32) uint32 {
	now := uint32(time.Now().Unix())
	if now > current {
		return now
	}
	return current
}

func advanceNonce(nonce *[32]byte) {
	for i := len(nonce) - 1; i >= 0; i-- {
		nonce[i]++
		if nonce[i] != 0 {
			return
		}
	}
}

// prefixWriter is a minimal io.Writer over a growing byte slice, used so
// SerializePrefix doesn't need a bytes.Buffer import here.
type prefixWriter struct {
	buf []byte
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
