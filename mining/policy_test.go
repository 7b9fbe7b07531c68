// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "testing"

// TestNewPolicyClampsBlockMaxSize covers spec §8 boundary behavior: values
// below 1000 or above MaxBlockSize-1000 are clamped to those bounds.
func TestNewPolicyClampsBlockMaxSize(t *testing.T) {
	cases := []struct {
		name  string
		in    uint32
		want  uint32
	}{
		{"below minimum", 500, 1000},
		{"at minimum", 1000, 1000},
		{"above maximum", MaxBlockSize, MaxBlockSize - 1000},
		{"at maximum", MaxBlockSize - 1000, MaxBlockSize - 1000},
		{"ordinary value", 750000, 750000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := NewPolicy(tc.in, 0, 0, 0)
			if policy.BlockMaxSize != tc.want {
				t.Errorf("BlockMaxSize = %d, want %d", policy.BlockMaxSize, tc.want)
			}
		})
	}
}

// TestNewPolicyClampsPrioritySizeAndMinSize covers the dependent clamps:
// blockprioritysize and blockminsize are both capped at the (already
// clamped) blockmaxsize.
func TestNewPolicyClampsPrioritySizeAndMinSize(t *testing.T) {
	policy := NewPolicy(10000, 50000, 60000, 0)
	if policy.BlockMaxSize != 10000 {
		t.Fatalf("BlockMaxSize = %d, want 10000", policy.BlockMaxSize)
	}
	if policy.BlockPrioritySize != 10000 {
		t.Errorf("BlockPrioritySize = %d, want 10000 (clamped to max)", policy.BlockPrioritySize)
	}
	if policy.BlockMinSize != 10000 {
		t.Errorf("BlockMinSize = %d, want 10000 (clamped to max)", policy.BlockMinSize)
	}
}

// TestNewPolicyLeavesOrdinaryValuesUntouched ensures the clamps are
// boundary-only and don't disturb values already within range.
func TestNewPolicyLeavesOrdinaryValuesUntouched(t *testing.T) {
	policy := NewPolicy(750000, 50000, 0, 1000)
	if policy.BlockMaxSize != 750000 || policy.BlockPrioritySize != 50000 || policy.BlockMinSize != 0 || policy.TxMinFreeFee != 1000 {
		t.Errorf("policy = %+v, unexpected mutation of in-range values", policy)
	}
}
