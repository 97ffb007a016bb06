// Copyright (c) 2025 Neomantra Corp

package itch

// TicksToFloat64 converts a tick-denominated Price into the quoted
// currency unit (1 tick = 1/10000 of a unit).
func TicksToFloat64(p Price) float64 {
	return float64(p) / TicksPerUnit
}
