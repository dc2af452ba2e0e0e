package lrc

import (
	"math"
	"testing"
)

func TestWeightForElapsed(t *testing.T) {
	const window = int64(12 * 3600)

	cases := []struct {
		name    string
		elapsed int64
		want    uint64
	}{
		{"first quarter", 2 * 3600, WeightTier1},
		{"boundary into second", 3 * 3600, WeightTier2},
		{"second quarter", 4 * 3600, WeightTier2},
		{"third quarter", 7 * 3600, WeightTier3},
		{"fourth quarter", 10 * 3600, WeightTier4},
		{"at window end", window, WeightTier4},
		{"past window", window + 1, WeightTier4},
		{"clock skew before open", -30, WeightTier1},
	}
	for _, tc := range cases {
		if got := WeightForElapsed(tc.elapsed, window); got != tc.want {
			t.Errorf("%s: WeightForElapsed(%d, %d) = %d, want %d", tc.name, tc.elapsed, window, got, tc.want)
		}
	}

	if got := WeightForElapsed(100, 0); got != WeightTier4 {
		t.Errorf("zero window: got %d, want %d", got, WeightTier4)
	}
}

func TestDetermineWinningSide(t *testing.T) {
	if got := DetermineWinningSide(250_000_000, 249_999_999); got != SideShort {
		t.Errorf("price down: got %v, want SHORT", got)
	}
	if got := DetermineWinningSide(250_000_000, 250_000_001); got != SideLong {
		t.Errorf("price up: got %v, want LONG", got)
	}
	// Flat close counts as up.
	if got := DetermineWinningSide(250_000_000, 250_000_000); got != SideLong {
		t.Errorf("flat close: got %v, want LONG", got)
	}
}

func TestComputePayout(t *testing.T) {
	raw := Pools{Short: 1_000_000_000, Long: 4_000_000_000}
	weighted := Pools{Short: 1_150_000_000, Long: 6_000_000_000}

	// Early long bettor: 1 SOL at 1.5x against a 6 SOL weighted long pool
	// sharing a 1 SOL short pool. 1 + 1.5/6 = 1.25 SOL.
	got, err := ComputePayout(1_000_000_000, WeightTier1, SideLong, SideLong, raw, weighted)
	if err != nil {
		t.Fatalf("ComputePayout: %v", err)
	}
	if got != 1_250_000_000 {
		t.Fatalf("winner payout = %d, want 1250000000", got)
	}

	// Loser gets nothing.
	got, err = ComputePayout(1_000_000_000, WeightTier1, SideShort, SideLong, raw, weighted)
	if err != nil {
		t.Fatalf("ComputePayout: %v", err)
	}
	if got != 0 {
		t.Fatalf("loser payout = %d, want 0", got)
	}
}

func TestComputePayoutOneSidedRound(t *testing.T) {
	raw := Pools{Short: 0, Long: 3_000_000_000}
	weighted := Pools{Short: 0, Long: 4_000_000_000}

	got, err := ComputePayout(1_000_000_000, WeightTier2, SideLong, SideLong, raw, weighted)
	if err != nil {
		t.Fatalf("ComputePayout: %v", err)
	}
	if got != 1_000_000_000 {
		t.Fatalf("empty losing pool: payout = %d, want stake back", got)
	}
}

func TestComputePayoutWinnerNeverBelowStake(t *testing.T) {
	cases := []struct {
		stake, weight uint64
		raw, weighted Pools
	}{
		{1, WeightTier4, Pools{Short: 1, Long: math.MaxUint64 / 2}, Pools{Short: 1, Long: math.MaxUint64 / 2}},
		{500_000, WeightTier3, Pools{Short: 7, Long: 900_000_000}, Pools{Short: 7, Long: 1_000_000_000}},
		{2_000_000_000, WeightTier1, Pools{Short: 3_000_000_000, Long: 2_000_000_000}, Pools{Short: 3_450_000_000, Long: 3_000_000_000}},
	}
	for i, tc := range cases {
		got, err := ComputePayout(tc.stake, tc.weight, SideLong, SideLong, tc.raw, tc.weighted)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got < tc.stake {
			t.Errorf("case %d: payout %d below stake %d", i, got, tc.stake)
		}
	}
}

func TestComputePayoutConservation(t *testing.T) {
	// Two long winners with different weights split the short pool; the sum
	// of bonuses must never exceed the losing pool.
	raw := Pools{Short: 1_000_000_001, Long: 3_000_000_000}
	weighted := Pools{Short: 1_000_000_001, Long: 4_300_000_000}

	bets := []struct{ stake, weight uint64 }{
		{1_000_000_000, WeightTier1},
		{2_000_000_000, WeightTier2},
	}
	var total uint64
	for _, b := range bets {
		got, err := ComputePayout(b.stake, b.weight, SideLong, SideLong, raw, weighted)
		if err != nil {
			t.Fatalf("ComputePayout: %v", err)
		}
		total += got - b.stake
	}
	if total > raw.Short {
		t.Fatalf("bonuses %d exceed losing pool %d", total, raw.Short)
	}
}

func TestWeightedAmount(t *testing.T) {
	if got := WeightedAmount(1_000_000_000, WeightTier1); got != 1_500_000_000 {
		t.Fatalf("WeightedAmount = %d, want 1500000000", got)
	}
	if got := WeightedAmount(math.MaxUint64, WeightTier4); got != math.MaxUint64 {
		t.Fatalf("weight 100 must be identity, got %d", got)
	}
}
