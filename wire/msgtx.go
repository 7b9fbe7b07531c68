// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/forkchain/forkd/chainhash"
)

// MaxPrevOutIndex is the index used in the null previous outpoint of a
// coinbase input's OutPoint.
const MaxPrevOutIndex uint32 = 0xffffffff

// MaxTxInSequenceNum is the default, final sequence number for a TxIn.
const MaxTxInSequenceNum uint32 = 0xffffffff

// OutPoint defines a data type that is used to track previous transaction
// outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new transaction outpoint point with the provided
// hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// IsNull returns whether the outpoint is the designated coinbase null
// value (spec §3: "a coinbase transaction has exactly one input whose
// prev_outpoint is the designated null value").
func (o OutPoint) IsNull() bool {
	return o.Index == MaxPrevOutIndex && o.Hash == chainhash.ZeroHash
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// SerializeSize returns the number of bytes it would take to serialize the
// input.
func (t *TxIn) SerializeSize() int {
	return chainhash.HashSize + 4 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript) + 4
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    uint64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// output.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// MsgTx describes a transaction.  Shielded transfer descriptors are opaque
// to the core (spec §3) and carried through as an undifferentiated byte
// string appended verbatim to the serialized form.
type MsgTx struct {
	Version         int32
	TxIn            []*TxIn
	TxOut           []*TxOut
	LockTime        uint32
	ShieldedPayload []byte
}

// NewMsgTx returns a new transaction with the given version, ready to have
// inputs and outputs appended.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// IsCoinBase determines whether the transaction is a coinbase transaction
// (spec invariant I1/I7): exactly one input whose previous outpoint is the
// null value.
func (msg *MsgTx) IsCoinBase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].PreviousOutPoint.IsNull()
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	n := 4 + 4 // Version + LockTime
	n += VarIntSerializeSize(uint64(len(msg.TxIn)))
	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	n += VarIntSerializeSize(uint64(len(msg.TxOut)))
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}
	n += len(msg.ShieldedPayload)
	return n
}

// Hash computes the transaction identifier.  Only the non-shielded fields
// participate, matching the txid-excludes-witness convention of this
// lineage; shielded descriptors are bound in via their own independent
// digest upstream of this core and are out of scope here.
func (msg *MsgTx) Hash() chainhash.Hash {
	buf := new(bytes.Buffer)
	buf.Grow(msg.SerializeSize())
	_ = serializeMsgTxNoWitness(buf, msg)
	return chainhash.DoubleHashH(buf.Bytes())
}

func serializeMsgTxNoWitness(buf *bytes.Buffer, msg *MsgTx) error {
	var b [4]byte
	putU32 := func(v uint32) {
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
		b[3] = byte(v >> 24)
		buf.Write(b[:])
	}
	putU32(uint32(msg.Version))
	_ = WriteVarInt(buf, uint64(len(msg.TxIn)))
	for _, in := range msg.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		putU32(in.PreviousOutPoint.Index)
		_ = WriteVarBytes(buf, in.SignatureScript)
		putU32(in.Sequence)
	}
	_ = WriteVarInt(buf, uint64(len(msg.TxOut)))
	for _, out := range msg.TxOut {
		var v [8]byte
		for i := 0; i < 8; i++ {
			v[i] = byte(out.Value >> (8 * uint(i)))
		}
		buf.Write(v[:])
		_ = WriteVarBytes(buf, out.PkScript)
	}
	putU32(msg.LockTime)
	return nil
}

// DeserializeMsgTx parses the standard version/inputs/outputs/locktime
// fields out of raw and keeps any bytes left over as ShieldedPayload.
// Shielded transfer descriptors are opaque to this core (spec §3): this
// is the only place that needs to know where the ordinary fields end,
// so the decoded transaction can be reshaped into coinbase form while
// its trailing descriptor bytes ride along untouched (spec §4.2).
func DeserializeMsgTx(raw []byte) (*MsgTx, error) {
	r := bytes.NewReader(raw)

	var verBuf [4]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return nil, err
	}
	msg := &MsgTx{Version: int32(binary.LittleEndian.Uint32(verBuf[:]))}

	txInCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < txInCount; i++ {
		var hash chainhash.Hash
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return nil, err
		}
		var idxBuf [4]byte
		if _, err := io.ReadFull(r, idxBuf[:]); err != nil {
			return nil, err
		}
		sigScript, err := ReadVarBytes(r)
		if err != nil {
			return nil, err
		}
		var seqBuf [4]byte
		if _, err := io.ReadFull(r, seqBuf[:]); err != nil {
			return nil, err
		}
		msg.AddTxIn(&TxIn{
			PreviousOutPoint: OutPoint{Hash: hash, Index: binary.LittleEndian.Uint32(idxBuf[:])},
			SignatureScript:  sigScript,
			Sequence:         binary.LittleEndian.Uint32(seqBuf[:]),
		})
	}

	txOutCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < txOutCount; i++ {
		var valBuf [8]byte
		if _, err := io.ReadFull(r, valBuf[:]); err != nil {
			return nil, err
		}
		pkScript, err := ReadVarBytes(r)
		if err != nil {
			return nil, err
		}
		msg.AddTxOut(&TxOut{Value: binary.LittleEndian.Uint64(valBuf[:]), PkScript: pkScript})
	}

	var lockBuf [4]byte
	if _, err := io.ReadFull(r, lockBuf[:]); err != nil {
		return nil, err
	}
	msg.LockTime = binary.LittleEndian.Uint32(lockBuf[:])

	remainder, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	msg.ShieldedPayload = remainder

	return msg, nil
}

// Tx wraps a MsgTx with its cached ID, the way the lineage wraps raw
// messages in a *util.Tx for repeated-hash avoidance.
type Tx struct {
	msgTx  *MsgTx
	txHash *chainhash.Hash
}

// NewTx returns a new instance of a transaction given an underlying
// MsgTx.
func NewTx(msgTx *MsgTx) *Tx {
	return &Tx{msgTx: msgTx}
}

// MsgTx returns the underlying MsgTx for the transaction.
func (t *Tx) MsgTx() *MsgTx {
	return t.msgTx
}

// Hash returns the hash of the transaction, computing and caching it if
// not already done so.
func (t *Tx) Hash() *chainhash.Hash {
	if t.txHash != nil {
		return t.txHash
	}
	hash := t.msgTx.Hash()
	t.txHash = &hash
	return t.txHash
}

// IsCoinBase determines whether the transaction is a coinbase.
func (t *Tx) IsCoinBase() bool {
	return t.msgTx.IsCoinBase()
}
