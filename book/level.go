// Copyright (c) 2025 Neomantra Corp

package book

import itch "github.com/neomantra/itch-blackscholes"

// level aggregates all live orders sharing a (side, price). A level exists
// in its side's tree iff it has at least one member iff totalVolume > 0.
type level struct {
	price       itch.Price
	side        itch.Side
	totalVolume itch.Shares
	members     map[itch.OrderRef]struct{}
}

func newLevel(side itch.Side, price itch.Price) *level {
	return &level{
		price:   price,
		side:    side,
		members: make(map[itch.OrderRef]struct{}),
	}
}

func (l *level) add(ref itch.OrderRef, shares itch.Shares) {
	l.members[ref] = struct{}{}
	l.totalVolume += shares
}

// remove decrements totalVolume by shares and drops ref's membership.
// Returns true if the level is now empty and should be destroyed.
func (l *level) remove(ref itch.OrderRef, shares itch.Shares) bool {
	delete(l.members, ref)
	l.totalVolume -= shares
	return len(l.members) == 0
}
