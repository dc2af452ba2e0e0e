package lrc

import (
	"fmt"
	"math/big"
)

const (
	// PriceScale is the fixed-point denominator for prices (8 implied decimals).
	PriceScale = int64(100_000_000)

	bpsDenom = uint64(10_000)

	// weightScale is the denominator for bet weight multipliers (150 = 1.5x).
	weightScale = uint64(100)
)

// Early-bird weight tiers, scaled by 100. Assigned once at placement and
// never changed.
const (
	WeightTier1 = uint64(150)
	WeightTier2 = uint64(130)
	WeightTier3 = uint64(115)
	WeightTier4 = uint64(100)
)

// WeightForElapsed returns the weight multiplier for a bet placed
// elapsedSec after round start, for a betting window of windowSec. The
// window is split into four equal bands with decreasing multipliers.
func WeightForElapsed(elapsedSec, windowSec int64) uint64 {
	if windowSec <= 0 || elapsedSec >= windowSec {
		return WeightTier4
	}
	if elapsedSec < 0 {
		elapsedSec = 0
	}
	quarter := windowSec / 4
	switch {
	case elapsedSec < quarter:
		return WeightTier1
	case elapsedSec < 2*quarter:
		return WeightTier2
	case elapsedSec < 3*quarter:
		return WeightTier3
	default:
		return WeightTier4
	}
}

// DetermineWinningSide applies the program's settlement rule: SHORT wins
// only when the end price closes strictly below the start price.
func DetermineWinningSide(startPrice, endPrice int64) Side {
	if endPrice < startPrice {
		return SideShort
	}
	return SideLong
}

// Pools holds the per-side totals of a round, either raw or weighted.
type Pools struct {
	Short uint64
	Long  uint64
}

func (p Pools) ForSide(side Side) uint64 {
	if side == SideShort {
		return p.Short
	}
	return p.Long
}

// WeightedAmount returns amount * weight / 100 without intermediate overflow.
func WeightedAmount(amount, weight uint64) uint64 {
	out := new(big.Int).SetUint64(amount)
	out.Mul(out, new(big.Int).SetUint64(weight))
	out.Div(out, new(big.Int).SetUint64(weightScale))
	if !out.IsUint64() {
		return 0
	}
	return out.Uint64()
}

// ComputePayout returns the lamports owed to a bet at settlement.
//
// Losing bets pay nothing; their stake was absorbed into the pool. A winner
// gets their pool contribution back plus a share of the losing pool
// proportional to their weighted stake:
//
//	payout = stake + floor(stake*weight/100 * losingPool / winningWeightedPool)
//
// Pools are already net of placement fees; no fee is applied here.
func ComputePayout(stake, weight uint64, side, winning Side, raw, weighted Pools) (uint64, error) {
	if side != winning {
		return 0, nil
	}

	winningWeighted := weighted.ForSide(winning)
	losingPool := raw.ForSide(winning.Opposite())
	if losingPool == 0 || winningWeighted == 0 {
		return stake, nil
	}

	bonus, err := mulDivFloor(WeightedAmount(stake, weight), losingPool, winningWeighted)
	if err != nil {
		return 0, fmt.Errorf("payout bonus: %w", err)
	}

	payout := stake + bonus
	if payout < stake {
		return 0, fmt.Errorf("payout overflow for stake %d", stake)
	}
	return payout, nil
}

func mulDivFloor(a, b, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	out := new(big.Int).SetUint64(a)
	out.Mul(out, new(big.Int).SetUint64(b))
	out.Div(out, new(big.Int).SetUint64(denominator))
	if !out.IsUint64() {
		return 0, fmt.Errorf("mulDiv overflow")
	}
	return out.Uint64(), nil
}

func mulDivFloorSaturating(a, b, denominator uint64) uint64 {
	out, err := mulDivFloor(a, b, denominator)
	if err != nil {
		return 0
	}
	return out
}
