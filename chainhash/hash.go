// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte double-SHA256 hash type used
// throughout the block-template core to identify blocks and transactions.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// Hash is a 32-byte double-SHA256 hash, stored internally in the byte
// order the hash function produces it (the little-endian wire order);
// String reverses it for the lineage's big-endian display convention.
type Hash [HashSize]byte

// ZeroHash is the all-zero Hash value, used as the coinbase's designated
// null previous-outpoint hash and as the standard-mode reservedHash value.
var ZeroHash Hash

// IsEqual returns whether h and target are the same hash.
func (h Hash) IsEqual(target Hash) bool {
	return h == target
}

// String returns the hash as a hex string in the conventional
// big-endian display order.
func (h Hash) String() string {
	for i := 0; i < HashSize/2; i++ {
		h[i], h[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(h[:])
}

// CloneBytes returns a copy of the hash as a byte slice.
func (h Hash) CloneBytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// NewHash returns a new Hash from a byte slice. An error is returned if
// the slice is not exactly HashSize bytes.
func NewHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length of %d, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// DoubleHashH computes double SHA256 of the data and returns it as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// HashB calculates the double SHA256 hash of the passed byte slice.
func HashB(b []byte) []byte {
	h := DoubleHashH(b)
	return h[:]
}
