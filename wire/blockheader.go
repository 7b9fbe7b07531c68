// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire defines the block and transaction shapes the mining core
// assembles into a BlockTemplate, plus the minimal binary encoding needed
// to size them and to feed the Equihash solver a header prefix.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/forkchain/forkd/chainhash"
)

// NonceSize is the width in bytes of a block header's Equihash nonce.
const NonceSize = 32

// BaseBlockHeaderPayload is the number of bytes a block header occupies
// not counting the variable-length Equihash solution:
// Version(4) + PrevHash(32) + MerkleRoot(32) + ReservedHash(32) +
// Time(4) + Bits(4) + Nonce(32).
const BaseBlockHeaderPayload = 4 + 3*chainhash.HashSize + 4 + 4 + NonceSize

// MaxBlockHeaderPayload is the maximum number of bytes a block header can
// be, including a generously bounded solution.
const MaxBlockHeaderPayload = BaseBlockHeaderPayload + MaxVarIntPayload + 1344

// MaxVarIntPayload is the maximum number of bytes a variable length integer
// can be.
const MaxVarIntPayload = 9

// ReservedHashForkSentinel is the distinguished value placed in a fork-mode
// header's ReservedHash field (spec §3, §6.6, GLOSSARY "Fork sentinel").
var ReservedHashForkSentinel = chainhash.Hash{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// BlockHeader defines the fields solved by Equihash proof-of-work and
// bound to a chain tip by the template builders.
type BlockHeader struct {
	// Version of the block.  Not the same as the protocol version.
	Version int32

	// PrevHash is the hash of the previous block in the chain.
	PrevHash chainhash.Hash

	// MerkleRoot is the merkle tree reference to the hash of all
	// transactions for the block.
	MerkleRoot chainhash.Hash

	// ReservedHash carries the fork sentinel in fork-mode blocks and the
	// zero hash otherwise (spec invariant I6).
	ReservedHash chainhash.Hash

	// Time the block was created, in seconds since the Unix epoch.
	Time uint32

	// Bits is the compact representation of the difficulty target.
	Bits uint32

	// Nonce is the search space explored by the solver.
	Nonce [NonceSize]byte

	// Solution is the variable-length Equihash solution set once the
	// solver succeeds.  Empty on an unsolved template.
	Solution []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// block header.
func (h *BlockHeader) SerializeSize() int {
	return BaseBlockHeaderPayload + VarIntSerializeSize(uint64(len(h.Solution))) + len(h.Solution)
}

// SerializePrefix writes everything but the Nonce and Solution fields --
// the portion that the Equihash hash state is initialized over (spec §4.6
// Solve step).
func (h *BlockHeader) SerializePrefix(w io.Writer) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(h.Version))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevHash[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.ReservedHash[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf, h.Time)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf, h.Bits)
	_, err := w.Write(buf)
	return err
}

// Serialize writes the full, encoded header -- prefix, nonce, and solution.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := h.SerializePrefix(w); err != nil {
		return err
	}
	if _, err := w.Write(h.Nonce[:]); err != nil {
		return err
	}
	return WriteVarBytes(w, h.Solution)
}

// BlockHash computes the block identifier hash for the header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, h.SerializeSize()))
	_ = h.Serialize(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}
