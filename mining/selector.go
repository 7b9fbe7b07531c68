// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"container/heap"
	"time"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/wire"
)

// lockTimeThreshold is the number below which a transaction's lock time
// is interpreted as a block height rather than a unix timestamp,
// matching the classic Bitcoin consensus rule.
const lockTimeThreshold = 500000000

// txPrioItem houses a transaction along with extra information that
// allows the transaction to be prioritized and track dependencies on
// other transactions which have not been mined into a block yet.  It
// also plays the role of spec §3's OrphanEntry: while dependsOn is
// non-empty the item sits in the orphans table instead of the queue, and
// the very same pointer moves from one to the other as dependencies
// resolve -- it is never copied, so the queue and the dependency graph
// can never disagree about a transaction's state (spec §9 open
// question).
type txPrioItem struct {
	tx       *wire.Tx
	entry    *MempoolEntry
	txSize   uint32
	sigOps   int64
	fee      int64
	feeRate  float64
	priority float64

	// dependsOn tracks any transactions that must be included in the
	// block before this one because they are referenced by an input.
	dependsOn map[chainhash.Hash]struct{}
}

// txPriorityQueueLessFunc describes a function that can be used as a
// compare function for a priority queue.
type txPriorityQueueLessFunc func(pq *txPriorityQueue, i, j int) bool

// txPriorityQueue implements heap.Interface and is used to hold
// transactions as they are considered for inclusion in a new block and
// solve the issue of sorting by multiple keys.  It keeps the original
// size of the underlying slice when applying SetLessFunc so it can be
// re-heapified in place, matching the lineage's switchover from
// priority order to fee order partway through a fill pass (spec §4.4
// "Two-phase fill policy").
type txPriorityQueue struct {
	lessFunc txPriorityQueueLessFunc
	items    []*txPrioItem
}

func (pq *txPriorityQueue) Len() int { return len(pq.items) }

func (pq *txPriorityQueue) Less(i, j int) bool { return pq.lessFunc(pq, i, j) }

func (pq *txPriorityQueue) Swap(i, j int) { pq.items[i], pq.items[j] = pq.items[j], pq.items[i] }

func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*txPrioItem))
}

func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

// SetLessFunc sets the compare function for the priority queue to the
// provided function and re-heapifies the queue in place.  This is used
// to implement the one-way switch from priority ordering to fee-rate
// ordering during a single fill pass.
func (pq *txPriorityQueue) SetLessFunc(lessFunc txPriorityQueueLessFunc) {
	pq.lessFunc = lessFunc
	heap.Init(pq)
}

// txPQByPriority sorts a priority queue by the transaction's computed
// priority, breaking ties by fee rate (spec §4.4 Phase A).
func txPQByPriority(pq *txPriorityQueue, i, j int) bool {
	if pq.items[i].priority == pq.items[j].priority {
		return pq.items[i].feeRate > pq.items[j].feeRate
	}
	return pq.items[i].priority > pq.items[j].priority
}

// txPQByFee sorts a priority queue by the transaction's computed fee
// rate, breaking ties by priority (spec §4.4 Phase B).
func txPQByFee(pq *txPriorityQueue, i, j int) bool {
	if pq.items[i].feeRate == pq.items[j].feeRate {
		return pq.items[i].priority > pq.items[j].priority
	}
	return pq.items[i].feeRate > pq.items[j].feeRate
}

func newTxPriorityQueue(capacity int, lessFunc txPriorityQueueLessFunc) *txPriorityQueue {
	pq := &txPriorityQueue{
		items:    make([]*txPrioItem, 0, capacity),
		lessFunc: lessFunc,
	}
	heap.Init(pq)
	return pq
}

// modifiedTxSize returns the transaction size used for the priority
// denominator, discounting up to 110 bytes of each input's signature
// script so that priority isn't penalized by a transaction's signature
// size (a standard discount across this lineage's priority formula).
func modifiedTxSize(tx *wire.MsgTx) int {
	size := tx.SerializeSize()
	for _, txIn := range tx.TxIn {
		reduce := len(txIn.SignatureScript)
		if reduce > 110 {
			reduce = 110
		}
		size -= reduce
	}
	if size < 0 {
		size = 0
	}
	return size
}

// calcPriority computes a transaction's priority score: the sum of each
// input's (value * age) divided by the modified transaction size, plus
// any admin priority delta and shielded value-in contribution (spec
// §4.4 "Priority score"). Inputs not found in utxos (i.e. they depend on
// another pool transaction) simply don't contribute to the sum; the
// caller resolves that dependency separately.
func calcPriority(entry *MempoolEntry, utxos *UtxoViewpoint, nextHeight uint64) float64 {
	msgTx := entry.Tx.MsgTx()
	if msgTx.IsCoinBase() {
		return 0
	}

	var valueAge float64
	for _, txIn := range msgTx.TxIn {
		utxoEntry := utxos.LookupEntry(txIn.PreviousOutPoint)
		if utxoEntry == nil {
			continue
		}
		var inputAge float64
		if nextHeight > utxoEntry.BlockHeight {
			inputAge = float64(nextHeight - utxoEntry.BlockHeight)
		}
		valueAge += float64(utxoEntry.Amount) * inputAge
	}
	valueAge += float64(entry.ShieldedValueIn) * float64(nextHeight)

	size := float64(modifiedTxSize(msgTx))
	if size == 0 {
		return entry.PriorityDelta
	}
	return valueAge/size + entry.PriorityDelta
}

// isFinalizedTransaction determines whether a transaction is finalized
// for inclusion in a block at the given height and time, using the
// classic Bitcoin consensus rule for LockTime/Sequence.
func isFinalizedTransaction(tx *wire.MsgTx, nextHeight uint64, blockTime time.Time) bool {
	if tx.LockTime == 0 {
		return true
	}

	blockTimeOrHeight := int64(nextHeight)
	if tx.LockTime >= lockTimeThreshold {
		blockTimeOrHeight = blockTime.Unix()
	}
	if int64(tx.LockTime) < blockTimeOrHeight {
		return true
	}

	for _, txIn := range tx.TxIn {
		if txIn.Sequence != wire.MaxTxInSequenceNum {
			return false
		}
	}
	return true
}

// SelectionResult holds the outcome of filling a block body from a
// transaction source (spec §4.4, component "Mempool Selector").
type SelectionResult struct {
	Txs         []*wire.Tx
	Fees        []int64
	SigOpCounts []int64
	Priorities  []float64
	BlockSize   uint32
	BlockSigOps int64
}

// SelectTransactions runs the two-phase priority/fee selection pass
// described in spec §4.4 over every transaction txSource currently
// offers, starting the size/sigops accounting from the fixed reserves
// I3/I4 assign to the header and coinbase. It does not itself add the
// coinbase to the returned set -- the caller splices it in (spec
// component C5 "Standard Template Builder"). The fork template builder
// does not use this routine.
func SelectTransactions(
	policy Policy,
	txSource TxSource,
	chainUtxos *UtxoViewpoint,
	verifier ScriptVerifier,
	nextHeight uint64,
	blockTime time.Time,
) (*SelectionResult, error) {
	sourceTxns := txSource.MiningDescs()

	// blockUtxos accumulates both the chain-confirmed lookups fetched
	// per-candidate and the outputs of transactions already selected
	// into this pass, so later candidates can reference earlier ones.
	blockUtxos := NewUtxoViewpoint()
	if chainUtxos != nil {
		blockUtxos.merge(chainUtxos)
	}

	priorityQueue := newTxPriorityQueue(len(sourceTxns), txPQByPriority)

	// dependers maps a not-yet-selected transaction hash to the set of
	// txPrioItems that depend on it; when that transaction is selected,
	// dependents have their dependsOn set shrunk, and once empty are
	// pushed into the priority queue -- this is the orphan resolution
	// table of spec §4.4 "Dependency handling".
	dependers := make(map[chainhash.Hash]map[chainhash.Hash]*txPrioItem)

	for _, txDesc := range sourceTxns {
		msgTx := txDesc.Tx.MsgTx()
		if !isFinalizedTransaction(msgTx, nextHeight, blockTime) {
			continue
		}

		prioItem := &txPrioItem{tx: txDesc.Tx, entry: txDesc}

		fetchedUtxos, err := txSource.FetchInputUtxos(txDesc.Tx)
		if err != nil {
			continue
		}

		for _, txIn := range msgTx.TxIn {
			if blockUtxos.LookupEntry(txIn.PreviousOutPoint) != nil {
				continue
			}
			if fetchedUtxos != nil && fetchedUtxos.LookupEntry(txIn.PreviousOutPoint) != nil {
				continue
			}

			if !txSource.HaveTransaction(txIn.PreviousOutPoint.Hash) {
				// Input isn't available anywhere: neither
				// confirmed nor pending. Skip the transaction
				// entirely, including any dependency links
				// already recorded for its earlier inputs.
				for depHash := range prioItem.dependsOn {
					delete(dependers[depHash], *txDesc.Tx.Hash())
				}
				prioItem = nil
				break
			}

			if prioItem.dependsOn == nil {
				prioItem.dependsOn = make(map[chainhash.Hash]struct{})
			}
			prioItem.dependsOn[txIn.PreviousOutPoint.Hash] = struct{}{}

			deps, exists := dependers[txIn.PreviousOutPoint.Hash]
			if !exists {
				deps = make(map[chainhash.Hash]*txPrioItem)
				dependers[txIn.PreviousOutPoint.Hash] = deps
			}
			deps[*txDesc.Tx.Hash()] = prioItem
		}
		if prioItem == nil {
			continue
		}

		if fetchedUtxos != nil {
			blockUtxos.merge(fetchedUtxos)
		}

		prioItem.txSize = uint32(msgTx.SerializeSize())
		prioItem.sigOps = int64(countSigOps(msgTx))
		prioItem.fee = int64(txDesc.Fee) + txDesc.FeeDelta
		if prioItem.txSize > 0 {
			prioItem.feeRate = float64(prioItem.fee) / float64(prioItem.txSize)
		}
		prioItem.priority = calcPriority(txDesc, blockUtxos, nextHeight)

		if len(prioItem.dependsOn) == 0 {
			heap.Push(priorityQueue, prioItem)
		}
	}

	blockSize := uint32(1000)
	blockSigOps := int64(100)

	result := &SelectionResult{
		Txs:         make([]*wire.Tx, 0, len(sourceTxns)),
		Fees:        make([]int64, 0, len(sourceTxns)),
		SigOpCounts: make([]int64, 0, len(sourceTxns)),
		Priorities:  make([]float64, 0, len(sourceTxns)),
	}

	blockPlusMinSize := policy.BlockMaxSize - policy.BlockMinSize
	switchedToFeeRate := false

	for priorityQueue.Len() > 0 {
		prioItem := heap.Pop(priorityQueue).(*txPrioItem)
		msgTx := prioItem.tx.MsgTx()

		blockPlusTxSize := blockSize + prioItem.txSize
		if !switchedToFeeRate &&
			(blockPlusTxSize >= policy.BlockPrioritySize || prioItem.priority <= MinHighPriority) {
			switchedToFeeRate = true
			priorityQueue.SetLessFunc(txPQByFee)
		}

		if switchedToFeeRate &&
			blockSize >= policy.BlockMinSize &&
			float64(prioItem.fee)/float64(max32(prioItem.txSize, 1)) < float64(policy.TxMinFreeFee) &&
			blockSize >= blockPlusMinSize {
			continue
		}

		newBlockSize := blockSize + prioItem.txSize
		newBlockSigOps := blockSigOps + prioItem.sigOps
		if newBlockSize >= policy.BlockMaxSize || newBlockSigOps >= MaxBlockSigOps {
			continue
		}

		if verifier != nil {
			if err := verifier.VerifyInputs(prioItem.tx, blockUtxos); err != nil {
				continue
			}
		}

		blockUtxos.AddTxOuts(prioItem.tx, nextHeight)
		for _, txIn := range msgTx.TxIn {
			blockUtxos.SpendEntry(txIn.PreviousOutPoint)
		}

		blockSize = newBlockSize
		blockSigOps = newBlockSigOps

		result.Txs = append(result.Txs, prioItem.tx)
		result.Fees = append(result.Fees, prioItem.fee)
		result.SigOpCounts = append(result.SigOpCounts, prioItem.sigOps)
		result.Priorities = append(result.Priorities, prioItem.priority)

		if deps, exists := dependers[*prioItem.tx.Hash()]; exists {
			for _, depItem := range deps {
				delete(depItem.dependsOn, *prioItem.tx.Hash())
				if len(depItem.dependsOn) == 0 {
					depItem.priority = calcPriority(depItem.entry, blockUtxos, nextHeight)
					heap.Push(priorityQueue, depItem)
				}
			}
		}
	}

	result.BlockSize = blockSize
	result.BlockSigOps = blockSigOps
	return result, nil
}

func max32(a uint32, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// countSigOps returns a conservative signature-operation count for tx.
// Accurate per-opcode counting belongs to the script engine, which is a
// deliberately excluded external collaborator (spec §1); this core
// charges a fixed per-input/output estimate sufficient to enforce the
// MaxBlockSigOps cap without linking a script interpreter.
func countSigOps(tx *wire.MsgTx) int {
	return len(tx.TxIn) + len(tx.TxOut)
}
