// Copyright (c) 2025 Neomantra Corp

package pricer

import (
	"github.com/neomantra/itch-blackscholes/book"

	itch "github.com/neomantra/itch-blackscholes"
)

// SpotTicks derives the representative book price in ticks: the integer
// midpoint when both sides are present, the lone present side when only one
// is, and zero when the book is empty on both sides.
//
// The reference implementation's two-sided formula was `(bid+ask) << 1`, a
// left shift where a division belongs; this is the corrected midpoint.
func SpotTicks(tob book.TopOfBook) itch.Price {
	switch {
	case tob.BestBid == nil && tob.BestAsk == nil:
		return 0
	case tob.BestBid == nil:
		return *tob.BestAsk
	case tob.BestAsk == nil:
		return *tob.BestBid
	default:
		return itch.Price((uint64(*tob.BestBid) + uint64(*tob.BestAsk)) / 2)
	}
}

// Spot converts a tick-denominated top-of-book into the floating-point spot
// price consumed by the Black-Scholes formula.
func Spot(tob book.TopOfBook) float64 {
	return itch.TicksToFloat64(SpotTicks(tob))
}
