// Copyright (c) 2025 Neomantra Corp

package book

import itch "github.com/neomantra/itch-blackscholes"

// order is a single resting order, owned exclusively by the Book. It is
// never exposed outside the package by pointer to keep the index and level
// aggregates from drifting out of sync with external mutation.
type order struct {
	ref       itch.OrderRef
	side      itch.Side
	price     itch.Price
	remaining itch.Shares
}
