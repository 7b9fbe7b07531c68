// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package forkmining builds the synthetic coinbases and the deterministic
// template that fork mode replays a pre-computed UTXO snapshot through
// (spec components C2 "Coinbase Builder" and C3 "Fork Template
// Builder").
package forkmining

import (
	"fmt"
	"os"
	"time"

	"github.com/forkchain/forkd/chainhash"
	"github.com/forkchain/forkd/mining"
	"github.com/forkchain/forkd/txscript"
	"github.com/forkchain/forkd/wire"
)

// ScriptSigMaxSize is the consensus limit on a coinbase's signature
// script (spec §4.2).
const ScriptSigMaxSize = 100

// ProcessIdentityHash is the fixed process-identity hash embedded in the
// first synthetic coinbase of every fork template this process builds
// (spec invariant I7, GLOSSARY "hashPid"). It's derived once at process
// start from the host name, pid, and start time -- stable for the life
// of the process, distinct across runs.
var ProcessIdentityHash = computeProcessIdentityHash()

func computeProcessIdentityHash() []byte {
	host, _ := os.Hostname()
	seed := fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
	full := chainhash.HashB([]byte(seed))
	return full[:8]
}

// SnapshotPayout describes what a snapshot record contributes to a
// synthetic coinbase: either a transparent (amount, script) pair or a
// pre-serialized shielded transaction.
type SnapshotPayout struct {
	Amount          uint64
	Script          []byte
	PreSerializedTx []byte
}

// BuildCoinbase produces a coinbase transaction for the given height and
// per-transaction index from a snapshot payout, applying the doubling
// rule to any non-zero transparent amount (spec §4.2, §9 "double only
// non-zero amounts").
//
// When payout carries a pre-serialized shielded transaction, that
// transaction is decoded, its inputs and outputs are rewritten to
// coinbase form, and its shielded descriptor bytes are preserved
// byte-identically (spec §9 "preserve bit-identically, not to fix").
func BuildCoinbase(height uint64, index uint64, payout SnapshotPayout) (*wire.Tx, error) {
	sigScript, err := buildScriptSig(height, index)
	if err != nil {
		return nil, err
	}

	if payout.PreSerializedTx != nil {
		return buildShieldedCoinbase(sigScript, payout.PreSerializedTx)
	}
	return buildTransparentCoinbase(sigScript, payout.Amount, payout.Script)
}

// buildScriptSig assembles push(height) || push(index) [|| push(hashPid)]
// || OP_0, failing with mining.ErrOversizedScriptSig if the result
// exceeds the consensus limit.
func buildScriptSig(height uint64, index uint64) ([]byte, error) {
	builder := txscript.NewScriptBuilder().
		AddInt64(int64(height)).
		AddInt64(int64(index))
	if index == 0 {
		builder = builder.AddData(ProcessIdentityHash)
	}
	builder = builder.AddOp(txscript.OP_0)

	sigScript, err := builder.Script()
	if err != nil {
		return nil, err
	}
	if len(sigScript) > ScriptSigMaxSize {
		return nil, mining.ErrOversizedScriptSig
	}
	return sigScript, nil
}

func coinbaseTxIn(sigScript []byte) *wire.TxIn {
	return &wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	}
}

func buildTransparentCoinbase(sigScript []byte, amount uint64, script []byte) (*wire.Tx, error) {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(coinbaseTxIn(sigScript))
	tx.AddTxOut(&wire.TxOut{Value: doubleIfNonZero(amount), PkScript: script})
	return wire.NewTx(tx), nil
}

func buildShieldedCoinbase(sigScript []byte, preSerialized []byte) (*wire.Tx, error) {
	decoded, err := wire.DeserializeMsgTx(preSerialized)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(decoded.Version)
	tx.AddTxIn(coinbaseTxIn(sigScript))
	for _, out := range decoded.TxOut {
		tx.AddTxOut(&wire.TxOut{Value: doubleIfNonZero(out.Value), PkScript: out.PkScript})
	}
	tx.LockTime = decoded.LockTime
	tx.ShieldedPayload = decoded.ShieldedPayload

	return wire.NewTx(tx), nil
}

// doubleIfNonZero implements the doubling rule: any non-zero amount is
// multiplied by two; zero is preserved at zero.
func doubleIfNonZero(amount uint64) uint64 {
	if amount == 0 {
		return 0
	}
	return amount * 2
}
