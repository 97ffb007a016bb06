// Copyright (c) 2025 Neomantra Corp
//
// The order book engine: per-order index, per-price-level aggregation, and
// the mutation algebra for add/execute/cancel/delete/replace. Mutations are
// synchronous, total, and never fault — degenerate inputs (unknown refs,
// zero shares, duplicate refs) are absorbed as no-ops, since venues
// routinely replay streams that reference state the book no longer holds.

package book

import (
	"github.com/tidwall/btree"

	itch "github.com/neomantra/itch-blackscholes"
)

// TopOfBook is the book's observable state after a mutation. BestBid and
// BestAsk are nil when their side is empty.
type TopOfBook struct {
	BestBid    *itch.Price
	BestAsk    *itch.Price
	OrderCount uint32

	// BidVolume and AskVolume are the sum of total_volume across all live
	// levels on their side: a zero-cost byproduct of level accounting, used
	// by the CLI's JSON output mode only.
	BidVolume itch.Shares
	AskVolume itch.Shares
}

// Book is the single mutable state of the order book stage. The zero value
// is not usable; construct with New.
type Book struct {
	orders map[itch.OrderRef]*order
	bids   *btree.BTreeG[*level] // ordered ascending by price; best bid is Max
	asks   *btree.BTreeG[*level] // ordered ascending by price; best ask is Min

	bidVolume itch.Shares
	askVolume itch.Shares
}

func byPrice(a, b *level) bool { return a.price < b.price }

// New returns an empty order book.
func New() *Book {
	return &Book{
		orders: make(map[itch.OrderRef]*order),
		bids:   btree.NewBTreeG(byPrice),
		asks:   btree.NewBTreeG(byPrice),
	}
}

// Apply consumes one normalized message and returns the top-of-book after
// applying it. Ignored messages leave state unchanged but still return the
// current top-of-book.
func (b *Book) Apply(msg itch.Message) TopOfBook {
	switch msg.Kind {
	case itch.KindAdd:
		b.add(msg.Ref, msg.Side, msg.Shares, msg.Price)
	case itch.KindExecute:
		b.reduce(msg.Ref, msg.DeltaShares)
	case itch.KindCancel:
		b.reduce(msg.Ref, msg.DeltaShares)
	case itch.KindDelete:
		b.delete(msg.Ref)
	case itch.KindReplace:
		b.replace(msg.OldRef, msg.NewRef, msg.NewShares, msg.NewPrice)
	case itch.KindIgnored:
		// no-op
	}
	return b.topOfBook()
}

func (b *Book) treeFor(side itch.Side) *btree.BTreeG[*level] {
	if side == itch.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) addVolume(side itch.Side, delta itch.Shares) {
	if side == itch.SideBuy {
		b.bidVolume += delta
	} else {
		b.askVolume += delta
	}
}

func (b *Book) subVolume(side itch.Side, delta itch.Shares) {
	if side == itch.SideBuy {
		b.bidVolume -= delta
	} else {
		b.askVolume -= delta
	}
}

func (b *Book) add(ref itch.OrderRef, side itch.Side, shares itch.Shares, price itch.Price) {
	if shares == 0 {
		return
	}
	if _, live := b.orders[ref]; live {
		return
	}
	tree := b.treeFor(side)
	probe := &level{price: price}
	lvl, found := tree.Get(probe)
	if !found {
		lvl = newLevel(side, price)
		tree.Set(lvl)
	}
	lvl.add(ref, shares)
	b.addVolume(side, shares)
	b.orders[ref] = &order{ref: ref, side: side, price: price, remaining: shares}
}

// reduce implements both Execute and Cancel: the book effect of a partial
// or full fill is indistinguishable from a cancellation of the same size.
func (b *Book) reduce(ref itch.OrderRef, amount itch.Shares) {
	o, live := b.orders[ref]
	if !live {
		return
	}
	delta := amount
	if delta > o.remaining {
		delta = o.remaining
	}
	o.remaining -= delta
	b.subVolume(o.side, delta)

	tree := b.treeFor(o.side)
	probe := &level{price: o.price}
	lvl, found := tree.Get(probe)
	if !found {
		return
	}
	if o.remaining == 0 {
		delete(b.orders, ref)
		if lvl.remove(ref, delta) {
			tree.Delete(probe)
		}
	} else {
		lvl.totalVolume -= delta
	}
}

func (b *Book) delete(ref itch.OrderRef) {
	o, live := b.orders[ref]
	if !live {
		return
	}
	tree := b.treeFor(o.side)
	probe := &level{price: o.price}
	lvl, found := tree.Get(probe)
	delete(b.orders, ref)
	b.subVolume(o.side, o.remaining)
	if found && lvl.remove(ref, o.remaining) {
		tree.Delete(probe)
	}
}

func (b *Book) replace(oldRef, newRef itch.OrderRef, shares itch.Shares, price itch.Price) {
	o, live := b.orders[oldRef]
	if !live {
		return
	}
	if _, dup := b.orders[newRef]; dup {
		return
	}
	side := o.side
	b.delete(oldRef)
	b.add(newRef, side, shares, price)
}

func (b *Book) topOfBook() TopOfBook {
	tob := TopOfBook{
		OrderCount: uint32(len(b.orders)),
		BidVolume:  b.bidVolume,
		AskVolume:  b.askVolume,
	}
	if best, ok := b.bids.Max(); ok {
		p := best.price
		tob.BestBid = &p
	}
	if best, ok := b.asks.Min(); ok {
		p := best.price
		tob.BestAsk = &p
	}
	return tob
}
