// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package forkmining

import (
	"bytes"
	"testing"

	"github.com/forkchain/forkd/wire"
)

func TestBuildCoinbaseDoublesNonZeroAmount(t *testing.T) {
	tx, err := BuildCoinbase(200, 1, SnapshotPayout{Amount: 100, Script: []byte{0x51}})
	if err != nil {
		t.Fatalf("BuildCoinbase: %v", err)
	}
	if got := tx.MsgTx().TxOut[0].Value; got != 200 {
		t.Errorf("output value = %d, want 200 (doubled)", got)
	}
}

func TestBuildCoinbasePreservesZeroAmount(t *testing.T) {
	tx, err := BuildCoinbase(200, 1, SnapshotPayout{Amount: 0, Script: []byte{0x51}})
	if err != nil {
		t.Fatalf("BuildCoinbase: %v", err)
	}
	if got := tx.MsgTx().TxOut[0].Value; got != 0 {
		t.Errorf("output value = %d, want 0 (preserved)", got)
	}
}

func TestBuildCoinbaseEmbedsHashPidOnlyAtIndexZero(t *testing.T) {
	first, err := BuildCoinbase(200, 0, SnapshotPayout{Amount: 10, Script: []byte{0x51}})
	if err != nil {
		t.Fatalf("BuildCoinbase index 0: %v", err)
	}
	sigScript := first.MsgTx().TxIn[0].SignatureScript
	if !bytes.Contains(sigScript, ProcessIdentityHash) {
		t.Errorf("index-0 script_sig does not contain the process identity hash")
	}

	second, err := BuildCoinbase(200, 1, SnapshotPayout{Amount: 10, Script: []byte{0x51}})
	if err != nil {
		t.Fatalf("BuildCoinbase index 1: %v", err)
	}
	if bytes.Contains(second.MsgTx().TxIn[0].SignatureScript, ProcessIdentityHash) {
		t.Errorf("index-1 script_sig unexpectedly contains the process identity hash")
	}
}

func TestBuildScriptSigStaysWithinConsensusLimit(t *testing.T) {
	sigScript, err := buildScriptSig(999999999, 0)
	if err != nil {
		t.Fatalf("buildScriptSig: %v", err)
	}
	if len(sigScript) > ScriptSigMaxSize {
		t.Errorf("script_sig length = %d, want <= %d", len(sigScript), ScriptSigMaxSize)
	}
}

// encodeRawTx hand-assembles the standard fields DeserializeMsgTx expects
// (version, inputs, outputs, locktime), followed by an opaque trailing
// shieldedPayload, mirroring the on-disk shielded snapshot format.
func encodeRawTx(t *testing.T, outs []*wire.TxOut, shieldedPayload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	var verBuf [4]byte
	verBuf[0] = 1
	buf.Write(verBuf[:])

	if err := wire.WriteVarInt(&buf, 1); err != nil {
		t.Fatalf("WriteVarInt txIn count: %v", err)
	}
	buf.Write(make([]byte, 32)) // previous hash
	buf.Write([]byte{0, 0, 0, 0})
	if err := wire.WriteVarBytes(&buf, nil); err != nil {
		t.Fatalf("WriteVarBytes sigScript: %v", err)
	}
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff}) // sequence

	if err := wire.WriteVarInt(&buf, uint64(len(outs))); err != nil {
		t.Fatalf("WriteVarInt txOut count: %v", err)
	}
	for _, out := range outs {
		var valBuf [8]byte
		for i := 0; i < 8; i++ {
			valBuf[i] = byte(out.Value >> (8 * uint(i)))
		}
		buf.Write(valBuf[:])
		if err := wire.WriteVarBytes(&buf, out.PkScript); err != nil {
			t.Fatalf("WriteVarBytes pkScript: %v", err)
		}
	}

	buf.Write([]byte{0, 0, 0, 0}) // locktime
	buf.Write(shieldedPayload)

	return buf.Bytes()
}

func TestBuildCoinbaseShieldedRoundTrip(t *testing.T) {
	shieldedPayload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	raw := encodeRawTx(t, []*wire.TxOut{
		{Value: 50, PkScript: []byte{0x51}},
		{Value: 0, PkScript: []byte{0x52}},
	}, shieldedPayload)

	tx, err := BuildCoinbase(300, 2, SnapshotPayout{PreSerializedTx: raw})
	if err != nil {
		t.Fatalf("BuildCoinbase: %v", err)
	}

	out := tx.MsgTx().TxOut
	if len(out) != 2 {
		t.Fatalf("got %d outputs, want 2", len(out))
	}
	if out[0].Value != 100 {
		t.Errorf("output 0 = %d, want 100 (doubled)", out[0].Value)
	}
	if out[1].Value != 0 {
		t.Errorf("output 1 = %d, want 0 (preserved)", out[1].Value)
	}
	if !bytes.Equal(tx.MsgTx().ShieldedPayload, shieldedPayload) {
		t.Errorf("shielded payload not preserved bit-identically")
	}
	if len(tx.MsgTx().TxIn) != 1 || tx.MsgTx().TxIn[0].PreviousOutPoint.Index != wire.MaxPrevOutIndex {
		t.Errorf("expected a single synthesized coinbase input")
	}
}
