// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package equihash wraps the Equihash proof-of-work search behind the
// narrow contract the mining loop drives it through (spec component
// "Mining Loop" §4.6, interface §6.5): an initialized hash state, a
// validBlock callback invoked per candidate solution, and a cancelled
// predicate polled cooperatively by the solver.
package equihash

import (
	"unsafe"

	cequihash "github.com/EXCCoin/exccd/cequihash"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// N and K are this chain's Equihash parameters. They are fixed at
// compile time the way the lineage's chaincfg.Params pins them per
// network; a single core instance mines one network.
const (
	N = 200
	K = 9
)

// solutionDigestSize is the blake2b output width the Zcash-lineage
// Equihash personalization calls for: 2 * ceil((N/(K+1)+1)/8) bytes.
func solutionDigestSize() int {
	return 2 * ((N/(K+1) + 1 + 7) / 8)
}

// personalization builds the 16-byte Zcash-lineage personalization block
// ("ZcashPoW" + N + K) used to separate Equihash hash states across
// parameter sets. Extend hashes it as the leading bytes of its input; it
// is not passed to blake2b as a parameter.
func personalization() []byte {
	p := make([]byte, 16)
	copy(p, "ZcashPoW")
	p[8] = byte(N)
	p[9] = byte(N >> 8)
	p[10] = byte(N >> 16)
	p[11] = byte(N >> 24)
	p[12] = byte(K)
	return p
}

// State is a cloneable digest of a block header prefix, ready to be
// extended with a candidate nonce and handed to a Solver.
type State struct {
	prefix []byte
}

// NewHashState captures the header prefix the Equihash hash state is
// initialized over (everything but the nonce and solution fields, spec
// §4.6 "Solve" step). No hashing happens here: Extend hashes the
// personalization block, the whole prefix and the nonce afresh on every
// call.
func NewHashState(headerPrefix []byte) (*State, error) {
	cp := make([]byte, len(headerPrefix))
	copy(cp, headerPrefix)
	return &State{prefix: cp}, nil
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	cp := make([]byte, len(s.prefix))
	copy(cp, s.prefix)
	return &State{prefix: cp}
}

// Extend combines the captured prefix with a candidate nonce into the
// digest the solver operates on.
func (s *State) Extend(nonce []byte) ([]byte, error) {
	h, err := blake2b.New(solutionDigestSize(), nil)
	if err != nil {
		return nil, err
	}
	if _, err := h.Write(personalization()); err != nil {
		return nil, err
	}
	if _, err := h.Write(s.prefix); err != nil {
		return nil, err
	}
	if _, err := h.Write(nonce); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Callbacks bundles the per-attempt hooks the solver invokes (spec
// §4.6): validBlock examines a candidate solution and reports whether
// the caller should stop (it already submitted, or cancellation fired);
// cancelled is polled between internal solver steps.
type Callbacks struct {
	ValidBlock func(solution []byte) bool
	Cancelled  func() bool
}

// Solver is the common contract both the tromp and default Equihash
// implementations satisfy (spec §6.5 "selector string tromp | default").
type Solver interface {
	Solve(digest []byte, callbacks Callbacks) error
}

// ErrUnknownSolver is returned by Select for any name other than "tromp",
// "default", or the empty string (which selects the default solver).
var ErrUnknownSolver = errors.New("unknown equihash solver selector")

// Select returns the Solver implementation named by selector ("tromp" or
// "default"), per the configuration surface's equihashsolver option
// (spec §6.6).
func Select(selector string) (Solver, error) {
	switch selector {
	case "tromp":
		return trompSolver{}, nil
	case "default", "":
		return defaultSolver{}, nil
	default:
		return nil, ErrUnknownSolver
	}
}

// defaultSolver and trompSolver both delegate to the real cequihash
// implementation; they exist as distinct types only so Select can return
// either identity without the caller needing to know which was chosen.
// The underlying library exposes a single SolveEquihash entry point
// rather than two compiled strategies, so both selector names currently
// resolve to the same call (documented in DESIGN.md).
type defaultSolver struct{}
type trompSolver struct{}

func (defaultSolver) Solve(digest []byte, callbacks Callbacks) error {
	return runCequihash(digest, callbacks)
}

func (trompSolver) Solve(digest []byte, callbacks Callbacks) error {
	return runCequihash(digest, callbacks)
}

func runCequihash(digest []byte, callbacks Callbacks) error {
	validator := &solutionValidator{callbacks: callbacks}
	cequihash.SolveEquihash(N, K, digest, 0, validator)
	return validator.err
}

// solutionValidator adapts this package's Callbacks to cequihash's
// Validate(solution unsafe.Pointer) int contract, grounded on the
// retrieved ExchangeCoin cpuminer's solutionValidatorData: a nil pointer
// is a liveness poll, any other value is a candidate solution to
// extract and forward to ValidBlock.
type solutionValidator struct {
	callbacks Callbacks
	err       error
}

func (v *solutionValidator) Validate(solution unsafe.Pointer) int {
	if solution == nil {
		if v.callbacks.Cancelled != nil && v.callbacks.Cancelled() {
			return 1
		}
		return 0
	}

	bytes := cequihash.ExtractSolution(N, K, solution)
	if v.callbacks.ValidBlock != nil && v.callbacks.ValidBlock(bytes) {
		return 1
	}
	return 0
}
