package book

import (
	"benthic/internal/decimal"
)

// node is one working order resting at a price level, linked in arrival
// (time-priority) order. Using an intrusive doubly linked list rather
// than a plain slice (as the teacher's internal/engine/orderbook.go
// does) gives cancel O(1) unlink once the node is found, instead of an
// O(n) slice splice — see spec.md §4.2's cancel complexity requirement.
type node struct {
	order      *Order
	level      *priceLevel
	prev, next *node
}

// priceLevel is a single price's FIFO queue of working orders, plus the
// aggregate remaining quantity resting at that price, maintained
// incrementally on every push/pop/partial-fill (spec.md §3).
type priceLevel struct {
	price     decimal.Decimal
	head      *node
	tail      *node
	count     int
	aggregate decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{price: price}
}

func (l *priceLevel) empty() bool { return l.count == 0 }

// pushBack appends a new resting order at the end of this level's queue
// (arrival order / time priority).
func (l *priceLevel) pushBack(o *Order) *node {
	n := &node{order: o, level: l}
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.count++
	l.aggregate, _ = l.aggregate.Add(o.RemainingQuantity)
	return n
}

// remove unlinks n from its level in O(1) and adjusts the aggregate by
// the order's current remaining quantity at the time of removal.
func (l *priceLevel) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.count--
	l.aggregate, _ = l.aggregate.Sub(n.order.RemainingQuantity)
}

// reduce lowers n's order's remaining quantity by qty and keeps the
// level aggregate in sync, matching against the front of the queue as
// the match loop consumes it.
func (l *priceLevel) reduce(n *node, qty decimal.Decimal) {
	n.order.RemainingQuantity, _ = n.order.RemainingQuantity.Sub(qty)
	l.aggregate, _ = l.aggregate.Sub(qty)
}

// front returns the oldest resting order at this level, or nil.
func (l *priceLevel) front() *node { return l.head }
