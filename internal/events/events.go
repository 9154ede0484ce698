// Package events defines the exchange's event sink: the five callbacks
// spec.md §4.5 requires every order-affecting operation to notify, and
// the payload each one carries.
package events

import (
	"fmt"
	"time"

	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/ids"
)

// Promise is emitted once an order has been accepted and its margin
// reserved — before any attempt to match it against the book.
type Promise struct {
	Order      ids.OrderID
	Trader     ids.TraderID
	Instrument ids.Instrument
	Side       book.Side
	Kind       book.Kind
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
	At         time.Time
}

func (p Promise) String() string {
	return fmt.Sprintf("promise order=%s trader=%d %s %s %s@%s",
		p.Order, p.Trader, p.Instrument, p.Side, p.Quantity, p.LimitPrice)
}

// Execute is emitted once per order per fill: the aggressor and the
// resting order each get their own Execute describing their own role.
type Execute struct {
	Order      ids.OrderID
	Trader     ids.TraderID
	Instrument ids.Instrument
	Side       book.Side
	Aggressor  bool
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	At         time.Time
}

func (e Execute) String() string {
	role := "maker"
	if e.Aggressor {
		role = "taker"
	}
	return fmt.Sprintf("execute order=%s trader=%d %s %s %s@%s role=%s",
		e.Order, e.Trader, e.Instrument, e.Side, e.Quantity, e.Price, role)
}

// CancelReason enumerates why a Cancel event was emitted.
type CancelReason int

const (
	// UserRequested: an explicit CancelOrder call.
	UserRequested CancelReason = iota
	// NotEnoughQuantity: an IOC or Market order's residual was released
	// after matching, whether or not that residual was zero.
	NotEnoughQuantity
)

func (r CancelReason) String() string {
	if r == UserRequested {
		return "user_requested"
	}
	return "not_enough_quantity"
}

// Cancel is emitted when an order leaves the book without having fully
// filled: explicit cancellation, or an IOC/Market order's residual being
// released (informational even when that residual is zero).
type Cancel struct {
	Order            ids.OrderID
	Trader           ids.TraderID
	Instrument       ids.Instrument
	Reason           CancelReason
	ResidualQuantity decimal.Decimal
	At               time.Time
}

func (c Cancel) String() string {
	return fmt.Sprintf("cancel order=%s trader=%d residual=%s reason=%s",
		c.Order, c.Trader, c.ResidualQuantity, c.Reason)
}

// Depth is emitted whenever a book-affecting operation changes the
// aggregated quantity resting at a price level.
type Depth struct {
	Instrument ids.Instrument
	Bids       []book.DepthLevel
	Asks       []book.DepthLevel
	At         time.Time
}

func (d Depth) String() string {
	return fmt.Sprintf("depth %s bids=%d asks=%d", d.Instrument, len(d.Bids), len(d.Asks))
}

// Trade is the single market-wide event per match, carrying both
// parties' order ids so external observers can correlate it against
// the pair of Execute events it caused.
type Trade struct {
	Instrument     ids.Instrument
	AggressorOrder ids.OrderID
	RestingOrder   ids.OrderID
	AggressorSide  book.Side
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	At             time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf("trade %s %s@%s aggressor=%s resting=%s",
		t.Instrument, t.Quantity, t.Price, t.AggressorOrder, t.RestingOrder)
}

// Sink is the exchange's notification boundary. Every method must
// return quickly: spec.md §5 treats event delivery as an external,
// best-effort concern once emitted synchronously from the single
// cooperative execution thread — see internal/asyncsink for a
// decorator that moves slow sinks off that thread.
type Sink interface {
	OnPromise(Promise)
	OnExecute(Execute)
	OnCancel(Cancel)
	OnDepth(Depth)
	OnTrade(Trade)
}

// Multi fans every call out to all of its sinks, in order. Used to wire
// together e.g. a console sink and a metrics sink without either
// knowing about the other.
type Multi []Sink

func (m Multi) OnPromise(e Promise) {
	for _, s := range m {
		s.OnPromise(e)
	}
}

func (m Multi) OnExecute(e Execute) {
	for _, s := range m {
		s.OnExecute(e)
	}
}

func (m Multi) OnCancel(e Cancel) {
	for _, s := range m {
		s.OnCancel(e)
	}
}

func (m Multi) OnDepth(e Depth) {
	for _, s := range m {
		s.OnDepth(e)
	}
}

func (m Multi) OnTrade(e Trade) {
	for _, s := range m {
		s.OnTrade(e)
	}
}

// Discard is a Sink that drops every event; useful as a default when a
// caller hasn't wired up anything else.
var Discard Sink = discard{}

type discard struct{}

func (discard) OnPromise(Promise) {}
func (discard) OnExecute(Execute) {}
func (discard) OnCancel(Cancel)   {}
func (discard) OnDepth(Depth)     {}
func (discard) OnTrade(Trade)     {}
