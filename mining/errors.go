// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/pkg/errors"

// Sentinel errors returned by the template builders and the mining loop
// (spec §7).  Callers should compare with errors.Is/errors.Cause rather
// than string-matching.
var (
	// ErrCapExceeded is returned when a caller-supplied size or sigops
	// budget cannot accommodate even the reserved header/coinbase cost.
	ErrCapExceeded = errors.New("requested cap leaves no room for the reserved header and coinbase overhead")

	// ErrTemplateInvalid is returned when a freshly assembled block
	// fails the chain's validity probe.
	ErrTemplateInvalid = errors.New("assembled block template failed validation")

	// ErrStaleBlock is returned when a solved block no longer builds on
	// the current chain tip at submit time.
	ErrStaleBlock = errors.New("solved block is stale: chain tip advanced during mining")

	// ErrKeypoolExhausted is returned when a worker cannot obtain a
	// fresh payout key handle for a new coinbase.
	ErrKeypoolExhausted = errors.New("no reserved payout key available for coinbase")

	// ErrWorkerInterrupted is returned from a solve attempt that exited
	// because its cancellation flag was raised rather than because it
	// ran out of nonce space.
	ErrWorkerInterrupted = errors.New("mining worker interrupted before finding a solution")

	// ErrOversizedScriptSig is returned when a synthesized coinbase
	// signature script would exceed the consensus limit.
	ErrOversizedScriptSig = errors.New("synthesized coinbase signature script exceeds the maximum allowed size")

	// ErrNoPayoutAddress is returned when a standard template build is
	// requested with no miner payout address configured.
	ErrNoPayoutAddress = errors.New("no miner payout address configured")
)
