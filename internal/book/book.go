// Package book implements the per-instrument, two-sided, price-time
// priority order book and matching engine described in spec.md §4.2.
// Price levels are kept in a github.com/tidwall/btree.BTreeG, the same
// structure the teacher (saiputravu-Exchange/internal/engine/orderbook.go)
// uses for its own price levels.
package book

import (
	"errors"
	"fmt"

	"benthic/internal/decimal"
	"benthic/internal/ids"

	"github.com/tidwall/btree"
)

var (
	// ErrOrderNotFound is returned by Cancel when the order is unknown or
	// already terminal.
	ErrOrderNotFound = errors.New("book: order not found")
)

// Book is the two-sided order book for a single instrument.
type Book struct {
	instrument ids.Instrument
	bids       *btree.BTreeG[*priceLevel] // descending by price
	asks       *btree.BTreeG[*priceLevel] // ascending by price
	index      map[ids.OrderID]*node
}

// New returns an empty book for instrument.
func New(instrument ids.Instrument) *Book {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.GreaterThan(b.price) // highest bid first
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.LessThan(b.price) // lowest ask first
	})
	return &Book{
		instrument: instrument,
		bids:       bids,
		asks:       asks,
		index:      make(map[ids.OrderID]*node),
	}
}

func (b *Book) sideTree(s Side) *btree.BTreeG[*priceLevel] {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest-priced non-empty bid level, if any.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	lvl, ok := b.bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// BestAsk returns the lowest-priced non-empty ask level, if any.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := b.asks.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// crosses reports whether an aggressing order on side with the given
// limit (a zero-value, ignored limit is meaningless here — callers pass
// a sentinel "no bound" via hasLimit=false for Market orders) can trade
// against level's price.
func crosses(side Side, limit decimal.Decimal, hasLimit bool, levelPrice decimal.Decimal) bool {
	if !hasLimit {
		return true // Market: no price bound, any level crosses
	}
	if side == Buy {
		return levelPrice.LessOrEqual(limit)
	}
	return levelPrice.GreaterOrEqual(limit)
}

// Place matches the incoming order against the opposite side of the
// book in strict price-time priority, mutating resting orders'
// remaining quantities (and removing them once filled) as it goes. It
// never mutates incoming's Status — the caller (the execution policy)
// decides what happens to any residual per the order's Kind. Returns
// the fills produced, in the order they occurred.
//
// incoming.RemainingQuantity is read and written in place; on return it
// holds whatever quantity is left unmatched.
func (b *Book) Place(incoming *Order) []Fill {
	opposite := b.sideTree(incoming.Side.Opposite())
	hasLimit := incoming.Kind != Market

	var fills []Fill
	for incoming.RemainingQuantity.GreaterThan(decimal.Zero) {
		lvl, ok := opposite.Min()
		if !ok || !crosses(incoming.Side, incoming.LimitPrice, hasLimit, lvl.price) {
			break
		}

		// Drain this level in strict arrival order before moving to the
		// next price — spec.md §4.2's "no interleaving across levels".
		for incoming.RemainingQuantity.GreaterThan(decimal.Zero) {
			n := lvl.front()
			if n == nil {
				break
			}
			matchQty := minDecimal(incoming.RemainingQuantity, n.order.RemainingQuantity)

			incoming.RemainingQuantity, _ = incoming.RemainingQuantity.Sub(matchQty)
			lvl.reduce(n, matchQty)

			fills = append(fills, Fill{
				AggressorOrder: incoming.ID,
				AggressorSide:  incoming.Side,
				RestingOrder:   n.order.ID,
				Quantity:       matchQty,
				Price:          lvl.price, // maker price, per §4.2
			})

			if n.order.RemainingQuantity.IsZero() {
				n.order.Status = Filled
				lvl.remove(n)
				delete(b.index, n.order.ID)
			}
		}

		if lvl.empty() {
			opposite.Delete(lvl)
		}
	}
	return fills
}

// Rest inserts order onto its own side of the book as Working. Callers
// must only call this for orders with remaining quantity > 0 that the
// execution policy has decided should rest (i.e. Limit orders with
// residual after Place).
func (b *Book) Rest(order *Order) {
	order.Status = Working
	tree := b.sideTree(order.Side)
	key := newPriceLevel(order.LimitPrice)
	lvl, ok := tree.Get(key)
	if !ok {
		lvl = key
		tree.Set(lvl)
	}
	n := lvl.pushBack(order)
	b.index[order.ID] = n
}

// Cancel removes a working order from the book, returning its residual
// (remaining) quantity. O(1) average to find the order via the book's
// index, plus O(log levels) to drop the price level from the btree if
// cancelling empties it — at least as good as spec.md §4.2's required
// O(log levels) + O(1).
func (b *Book) Cancel(id ids.OrderID) (decimal.Decimal, error) {
	n, ok := b.index[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	residual := n.order.RemainingQuantity
	lvl := n.level
	lvl.remove(n)
	delete(b.index, id)

	if lvl.empty() {
		tree := b.sideTree(n.order.Side)
		tree.Delete(lvl)
	}
	n.order.Status = Cancelled
	n.order.RemainingQuantity = decimal.Zero
	return residual, nil
}

// DepthLevel is one aggregated row of a depth snapshot.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth returns up to levels aggregated rows per side, best price first.
func (b *Book) Depth(levels int) (bids, asks []DepthLevel) {
	collect := func(tree *btree.BTreeG[*priceLevel]) []DepthLevel {
		out := make([]DepthLevel, 0, levels)
		tree.Scan(func(lvl *priceLevel) bool {
			if len(out) >= levels {
				return false
			}
			out = append(out, DepthLevel{Price: lvl.price, Quantity: lvl.aggregate})
			return true
		})
		return out
	}
	return collect(b.bids), collect(b.asks)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessOrEqual(b) {
		return a
	}
	return b
}
