package htlc

import (
	"math"
	"math/big"
)

// The statistics aggregator is a set of pure update functions invoked inside
// the same atomic unit as the terminal transition they report. Each function
// mutates the supplied record in place; callers persist afterwards.

// AppendSwapID appends id to a tracked swap-id list, honouring the cap. The
// second return value reports whether the append was applied; a full list
// leaves the record untouched and the triggering swap still proceeds.
func AppendSwapID(list []uint64, id uint64) ([]uint64, bool) {
	if len(list) >= trackedSwapCap {
		return list, false
	}
	return append(list, id), true
}

// ApplyUserSuccess credits a successful claim to a user: volume accrues and
// the success counter advances.
func ApplyUserSuccess(stats *UserStats, volume *big.Int) {
	if stats.TotalVolume == nil {
		stats.TotalVolume = big.NewInt(0)
	}
	if volume != nil {
		stats.TotalVolume = new(big.Int).Add(stats.TotalVolume, volume)
	}
	stats.SuccessfulSwaps++
}

// ApplyRouteSuccess records a successful swap on a route.
//
// The success-rate recurrence is inherited verbatim from the deployed
// contract: given prior rate r over n swaps, r' = ((r+100)*100)/(n+1). It
// does not converge to a true percentage and grows without bound on a
// success streak, so the intermediate product is computed wide and the
// stored value saturates at the uint64 ceiling instead of wrapping.
func ApplyRouteSuccess(stats *RouteStats, volume *big.Int) {
	n := stats.Swaps
	next := new(big.Int).SetUint64(stats.SuccessRate)
	next.Add(next, big.NewInt(100))
	next.Mul(next, big.NewInt(100))
	next.Div(next, new(big.Int).SetUint64(n+1))
	stats.SuccessRate = clampRate(next)
	stats.Swaps = n + 1
	if stats.Volume == nil {
		stats.Volume = big.NewInt(0)
	}
	if volume != nil {
		stats.Volume = new(big.Int).Add(stats.Volume, volume)
	}
}

// ApplyRouteFailure records a failed (refunded) swap on a route. Failures
// carry no volume; the rate recurrence is r' = (r*100)/(n+1).
func ApplyRouteFailure(stats *RouteStats) {
	n := stats.Swaps
	next := new(big.Int).SetUint64(stats.SuccessRate)
	next.Mul(next, big.NewInt(100))
	next.Div(next, new(big.Int).SetUint64(n+1))
	stats.SuccessRate = clampRate(next)
	stats.Swaps = n + 1
	if stats.Volume == nil {
		stats.Volume = big.NewInt(0)
	}
}

func clampRate(v *big.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
