// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package forksnapshot streams typed records from the per-height UTXO
// snapshot files the fork template builder replays into synthetic
// coinbases (spec component C1 "Snapshot Reader", §4.1, §6.1-6.2).
package forksnapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// ErrSnapshotMissing is a soft error: the file for the requested height
// cannot be opened (typically it does not exist yet). Callers (the fork mining loop) read this as "not
// ready, sleep and retry", never as fatal (spec §4.1, §7).
var ErrSnapshotMissing = errors.New("utxo snapshot file for this height does not exist")

// ErrSnapshotCorrupt is a hard error for the current file: the reader
// cannot make sense of what follows the current position. The caller
// stops appending and keeps whatever records it has already obtained
// (spec §4.1, §9 design notes).
var ErrSnapshotCorrupt = errors.New("utxo snapshot file is truncated or malformed")

// separator terminates each transparent-format record.
const separatorByte = 0x0A

// shieldedSizeFieldLen is the width of the ASCII-decimal transaction-size
// field that precedes each shielded-format record.
const shieldedSizeFieldLen = 32

// Record is a single decoded entry from a snapshot file. Exactly one of
// the transparent or shielded fields is populated, matching which format
// the height the file belongs to uses (spec §3 "SnapshotRecord").
type Record struct {
	// Amount and Script are populated for a transparent-format record.
	Amount uint64
	Script []byte

	// TxBytes is populated for a shielded-format record: the raw,
	// pre-serialized transaction bytes read verbatim from the file.
	TxBytes []byte
}

// IsShielded reports whether r was decoded from the shielded framing.
func (r *Record) IsShielded() bool { return r.TxBytes != nil }

// GetUTXOFileName returns the deterministic path for the snapshot file
// covering the given height, under the configured snapshot directory
// (spec §6.1). Shielded-format files (only ever the single height
// shieldedHeight) get a distinct suffix so the two framing formats never
// collide on disk.
func GetUTXOFileName(snapshotDir string, height uint64, shieldedHeight uint64) string {
	if height == shieldedHeight {
		return filepath.Join(snapshotDir, fmt.Sprintf("utxo-%d.shielded.dat", height))
	}
	return filepath.Join(snapshotDir, fmt.Sprintf("utxo-%d.dat", height))
}

// Reader streams Records from a single snapshot file. It is a lazy,
// forward-only sequence: the only way to restart is to open a fresh
// Reader (spec §4.1 "restartable only by reopening").
type Reader struct {
	f        *os.File
	br       *bufio.Reader
	shielded bool
	cap      int
	seen     int
}

// Open opens the snapshot file for height, selecting the shielded or
// transparent framing according to whether height equals shieldedHeight,
// and limiting the sequence to recordCap records (the configured
// forkCBPerBlock).
//
// Returns ErrSnapshotMissing if the file cannot be opened.
func Open(snapshotDir string, height uint64, shieldedHeight uint64, recordCap int) (*Reader, error) {
	path := GetUTXOFileName(snapshotDir, height, shieldedHeight)
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrSnapshotMissing
	}
	return &Reader{
		f:        f,
		br:       bufio.NewReader(f),
		shielded: height == shieldedHeight,
		cap:      recordCap,
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Next returns the next record in the file, io.EOF on a clean end, or
// ErrSnapshotCorrupt if the file ends (or contains invalid data)
// partway through a record before the cap is reached.
func (r *Reader) Next() (*Record, error) {
	if r.seen >= r.cap {
		return nil, io.EOF
	}
	if r.shielded {
		return r.nextShielded()
	}
	return r.nextTransparent()
}

func (r *Reader) nextTransparent() (*Record, error) {
	var amountBuf [8]byte
	if _, err := io.ReadFull(r.br, amountBuf[:]); err != nil {
		return nil, r.classifyTruncation(err)
	}
	amount := binary.LittleEndian.Uint64(amountBuf[:])

	var lenBuf [8]byte
	if _, err := io.ReadFull(r.br, lenBuf[:]); err != nil {
		return nil, ErrSnapshotCorrupt
	}
	scriptLen := binary.LittleEndian.Uint64(lenBuf[:])

	script := make([]byte, scriptLen)
	if _, err := io.ReadFull(r.br, script); err != nil {
		return nil, ErrSnapshotCorrupt
	}

	sep, err := r.br.ReadByte()
	if err != nil || sep != separatorByte {
		return nil, ErrSnapshotCorrupt
	}

	r.seen++
	return &Record{Amount: amount, Script: script}, nil
}

func (r *Reader) nextShielded() (*Record, error) {
	var sizeBuf [shieldedSizeFieldLen]byte
	if _, err := io.ReadFull(r.br, sizeBuf[:]); err != nil {
		return nil, r.classifyTruncation(err)
	}

	size, err := strconv.ParseUint(string(sizeBuf[:]), 10, 64)
	if err != nil {
		return nil, ErrSnapshotCorrupt
	}

	txBytes := make([]byte, size)
	if _, err := io.ReadFull(r.br, txBytes); err != nil {
		return nil, ErrSnapshotCorrupt
	}

	r.seen++
	return &Record{TxBytes: txBytes}, nil
}

// classifyTruncation distinguishes a clean end from a truncation
// mid-record: reading the very first byte of a would-be next record hits
// io.EOF (clean end) rather than io.ErrUnexpectedEOF (corrupt). A clean
// end is accepted whatever the number of records read so far; the reader
// does not know the fork window, so it does not check that a file holding
// fewer records than the cap belongs to the window's last height.
func (r *Reader) classifyTruncation(err error) error {
	if err == io.EOF {
		return io.EOF
	}
	log.Warnf("snapshot file truncated after %d record(s): %v", r.seen, err)
	return ErrSnapshotCorrupt
}
