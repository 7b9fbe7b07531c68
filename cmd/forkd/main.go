// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command forkd assembles the block-template and mining core: config
// parsing, logging, and the worker supervisor. It owns neither chain
// state nor a mempool (spec §1 non-goal "full node"); a hosting node
// binary registers NewChainBackend to supply those before this core can
// run.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/forkchain/forkd/config"
	"github.com/forkchain/forkd/cpuminer"
	"github.com/forkchain/forkd/logger"
	"github.com/forkchain/forkd/mining"
)

// NewChainBackend is the seam a hosting node fills in at link time (an
// init() in another file compiled into the same binary assigns it): the
// concrete chain view, mempool, median time source, peer gate, and
// payout key provider this core drives. Left nil, forkd can parse its
// configuration and stand up logging but has nothing to mine against.
var NewChainBackend func(cfg *config.Config) (mining.ChainView, mining.TxSource, mining.MedianTimeSource, cpuminer.PeerGate, cpuminer.KeyProvider, error)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.InitLogRotator(cfg.LogFile)
	if err := logger.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if NewChainBackend == nil {
		fmt.Fprintln(os.Stderr, "forkd: no chain backend registered -- this binary only assembles the mining core; "+
			"a hosting node must register NewChainBackend before it can mine")
		os.Exit(1)
	}

	chainView, txSource, timeSource, peerGate, keys, err := NewChainBackend(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	miner := cpuminer.New(cfg.CPUMinerConfig(), chainView, txSource, timeSource, peerGate, keys)
	miner.Reconfigure(cfg.CPUMinerConfig())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	miner.Stop()
}
