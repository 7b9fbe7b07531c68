// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the process-wide configuration surface (spec
// §6.6) and translates it into the narrower configuration types each
// mining package actually consumes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/forkchain/forkd/cpuminer"
	"github.com/forkchain/forkd/forkmining"
	"github.com/forkchain/forkd/mining"
)

const (
	defaultHomeDirName    = "forkd"
	defaultLogFilename    = "forkd.log"
	defaultErrLogFilename = "forkd_err.log"
	defaultSnapshotDirName = "snapshots"

	defaultBlockMaxSize      = 750000
	defaultBlockPrioritySize = 50000
	defaultBlockMinSize      = 0
	defaultEquihashSolver    = "default"
	defaultForkCBPerBlock    = 1000
)

var (
	defaultHomeDir     = defaultAppDataDir(defaultHomeDirName)
	defaultLogFile     = filepath.Join(defaultHomeDir, defaultLogFilename)
	defaultErrLogFile  = filepath.Join(defaultHomeDir, defaultErrLogFilename)
	defaultSnapshotDir = filepath.Join(defaultHomeDir, defaultSnapshotDirName)
)

// defaultAppDataDir mirrors the lineage's per-OS application data
// directory convention without pulling in a whole util package for one
// helper: $HOME/.<name> outside Windows, %LOCALAPPDATA%\<name> on it.
func defaultAppDataDir(name string) string {
	if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
		return filepath.Join(appData, name)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + name
	}
	return filepath.Join(home, "."+name)
}

// Config is the full configuration surface (spec §6.6), parsed from
// command-line flags in the teacher's jessevdk/go-flags style.
type Config struct {
	HomeDir    string `long:"appdata" description:"Directory to store data"`
	LogFile    string `long:"logfile" description:"Path to the log file"`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}" default:"info"`

	BlockMaxSize      uint32 `long:"blockmaxsize" description:"Maximum block size in bytes to be used when creating a block"`
	BlockPrioritySize uint32 `long:"blockprioritysize" description:"Size in bytes for high-priority/low-fee transactions when creating a block"`
	BlockMinSize      uint32 `long:"blockminsize" description:"Minimum block size in bytes to be used when creating a block"`
	BlockVersion      int32  `long:"blockversion" description:"Block version number to use (regtest only override, 0 means use the default)"`
	TxMinFreeFee      uint64 `long:"minrelaytxfee" description:"Minimum fee rate, in base units per byte, for a transaction to be considered for a block once the priority reservation is full"`

	MinerAddress   string `long:"mineraddress" description:"Destination address for the standard-mode mining subsidy"`
	EquihashSolver string `long:"equihashsolver" description:"Equihash solver implementation to use {tromp, default}" default:"default"`
	PrintPriority  bool   `long:"printpriority" description:"Logs per-transaction priority and fee when generating a block template"`
	GenerateThreads int   `long:"generatethreads" description:"Number of mining worker threads to run, -1 to use all available CPUs, 0 to disable mining"`

	ForkMine              bool   `long:"fork-mine" description:"Permit fork-mode mining during initial block download"`
	ForkStartHeight       uint64 `long:"forkstartheight" description:"First height of the fork window"`
	ForkHeightRange       uint64 `long:"forkheightrange" description:"Number of heights in the fork window, 0 disables fork mining"`
	ForkCBPerBlock        int    `long:"forkCBPerBlock" description:"Maximum synthetic coinbases per fork-mode block"`
	ZUtxoMiningStartBlock uint64 `long:"ZUtxoMiningStartBlock" description:"Single fork-window height using the shielded snapshot format"`
	SnapshotDir           string `long:"snapshotdir" description:"Directory containing the per-height UTXO snapshot files"`

	PeersRequired bool `long:"peersrequired" description:"Require at least one peer and a completed initial block download before mining"`
}

// Load parses os.Args, applies defaults, validates the result, and
// returns the fully resolved Config.
func Load() (*Config, error) {
	cfg := &Config{
		HomeDir:           defaultHomeDir,
		LogFile:           defaultLogFile,
		BlockMaxSize:      defaultBlockMaxSize,
		BlockPrioritySize: defaultBlockPrioritySize,
		BlockMinSize:      defaultBlockMinSize,
		EquihashSolver:    defaultEquihashSolver,
		ForkCBPerBlock:    defaultForkCBPerBlock,
		SnapshotDir:       defaultSnapshotDir,
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.HomeDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.EquihashSolver != "tromp" && cfg.EquihashSolver != "default" {
		return fmt.Errorf("equihashsolver must be tromp or default, got %q", cfg.EquihashSolver)
	}
	if cfg.GenerateThreads != 0 && cfg.MinerAddress == "" {
		return errors.New("mineraddress is required when generatethreads is non-zero")
	}
	if cfg.ForkHeightRange > 0 && cfg.SnapshotDir == "" {
		return errors.New("snapshotdir is required when forkheightrange is non-zero")
	}
	return nil
}

// MiningPolicy builds the standard-mode mining.Policy the configuration
// describes, with the documented boundary clamps applied (spec §6.6).
func (cfg *Config) MiningPolicy() mining.Policy {
	return mining.NewPolicy(cfg.BlockMaxSize, cfg.BlockPrioritySize, cfg.BlockMinSize, cfg.TxMinFreeFee)
}

// ForkSnapshotConfig builds the forkmining.Config the configuration
// describes.
func (cfg *Config) ForkSnapshotConfig() forkmining.Config {
	return forkmining.Config{
		SnapshotDir:           cfg.SnapshotDir,
		ForkCBPerBlock:        cfg.ForkCBPerBlock,
		ZUtxoMiningStartBlock: cfg.ZUtxoMiningStartBlock,
	}
}

// CPUMinerConfig builds the cpuminer.Config the configuration describes.
func (cfg *Config) CPUMinerConfig() cpuminer.Config {
	return cpuminer.Config{
		Enabled:         cfg.GenerateThreads != 0,
		ThreadCount:     cfg.GenerateThreads,
		ForkMine:        cfg.ForkMine,
		ForkStartHeight: cfg.ForkStartHeight,
		ForkHeightRange: cfg.ForkHeightRange,
		MineOnDemand:    false,
		PeersRequired:   cfg.PeersRequired,
		EquihashSolver:  cfg.EquihashSolver,
		PrintPriority:   cfg.PrintPriority,
		Policy:          cfg.MiningPolicy(),
		ForkSnapshot:    cfg.ForkSnapshotConfig(),
	}
}
