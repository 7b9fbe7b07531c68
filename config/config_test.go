// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import "testing"

func TestValidateRejectsUnknownSolver(t *testing.T) {
	cfg := &Config{EquihashSolver: "bogus"}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected an error for an unknown equihash solver")
	}
}

func TestValidateRequiresMinerAddressWhenGenerating(t *testing.T) {
	cfg := &Config{EquihashSolver: "default", GenerateThreads: 1}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected an error when generating without a miner address")
	}
}

func TestValidateRequiresSnapshotDirForForkMining(t *testing.T) {
	cfg := &Config{EquihashSolver: "default", ForkHeightRange: 10}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected an error when fork mining without a snapshot directory")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		EquihashSolver:  "tromp",
		GenerateThreads: 2,
		MinerAddress:    "some-address",
		ForkHeightRange: 10,
		SnapshotDir:     "/tmp/snapshots",
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestMiningPolicyAppliesBoundaryClamps(t *testing.T) {
	cfg := &Config{BlockMaxSize: 500, BlockPrioritySize: 10000, BlockMinSize: 0}
	policy := cfg.MiningPolicy()
	if policy.BlockMaxSize != 1000 {
		t.Errorf("BlockMaxSize = %d, want 1000 (clamped)", policy.BlockMaxSize)
	}
	if policy.BlockPrioritySize != 1000 {
		t.Errorf("BlockPrioritySize = %d, want 1000 (clamped to max)", policy.BlockPrioritySize)
	}
}
