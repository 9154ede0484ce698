// Package policy implements the execution policy of spec.md §4.4: the
// single place that orchestrates the order book and the margin ledger
// as one atomic operation per incoming order (reserve, match, realize,
// settle residual, notify) or per cancel.
package policy

import (
	"time"

	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/events"
	"benthic/internal/ids"
	"benthic/internal/ledger"
)

// unboundedDepth is passed to book.Depth when a full snapshot is wanted
// rather than a capped top-of-book view.
const unboundedDepth = 1 << 20

// Policy ties a Ledger and an event Sink to however many instrument
// books the exchange carries; one Policy serves every instrument.
type Policy struct {
	Ledger *ledger.Ledger
	Sink   events.Sink
	Clock  func() time.Time
}

// New returns a Policy. clock defaults to time.Now if nil.
func New(l *ledger.Ledger, sink events.Sink, clock func() time.Time) *Policy {
	if clock == nil {
		clock = time.Now
	}
	return &Policy{Ledger: l, Sink: sink, Clock: clock}
}

// Execute runs the full order lifecycle of spec.md §4.4 against b for a
// single incoming order: pre-reserve margin, emit Promise, match, realize
// each fill into both traders' ledgers and then emit its paired
// Execute/Trade events, then settle whatever residual remains per the
// order's Kind. An error here
// means the order was rejected outright — no events are emitted and the
// order never touches the book (spec.md §4.4 step 1).
func (p *Policy) Execute(b *book.Book, order *book.Order) error {
	deliverQty, err := p.reserveAmount(b, order)
	if err != nil {
		return err
	}
	if err := p.Ledger.Reserve(order.ID, order.Trader, order.Instrument, order.Side, deliverQty); err != nil {
		return err
	}

	now := p.Clock()
	p.Sink.OnPromise(events.Promise{
		Order: order.ID, Trader: order.Trader, Instrument: order.Instrument,
		Side: order.Side, Kind: order.Kind, Quantity: order.RemainingQuantity,
		LimitPrice: order.LimitPrice, At: now,
	})

	fills := b.Place(order)
	for _, f := range fills {
		restSide := order.Side.Opposite()
		restTrader := f.RestingOrder.Trader

		if err := p.Ledger.Realize(order.ID, order.Trader, order.Instrument, order.Side, f.Quantity, f.Price); err != nil {
			return err
		}
		if err := p.Ledger.Realize(f.RestingOrder, restTrader, order.Instrument, restSide, f.Quantity, f.Price); err != nil {
			return err
		}

		p.Sink.OnExecute(events.Execute{
			Order: order.ID, Trader: order.Trader, Instrument: order.Instrument,
			Side: order.Side, Aggressor: true, Quantity: f.Quantity, Price: f.Price, At: now,
		})
		p.Sink.OnExecute(events.Execute{
			Order: f.RestingOrder, Trader: restTrader, Instrument: order.Instrument,
			Side: restSide, Aggressor: false, Quantity: f.Quantity, Price: f.Price, At: now,
		})
		p.Sink.OnTrade(events.Trade{
			Instrument: order.Instrument, AggressorOrder: order.ID, RestingOrder: f.RestingOrder,
			AggressorSide: order.Side, Quantity: f.Quantity, Price: f.Price, At: now,
		})
	}

	rested := p.settleResidual(b, order, now)

	if len(fills) > 0 || rested {
		bids, asks := b.Depth(unboundedDepth)
		p.Sink.OnDepth(events.Depth{Instrument: order.Instrument, Bids: bids, Asks: asks, At: now})
	}
	return nil
}

// settleResidual implements spec.md §4.4 step 4 and reports whether the
// order now rests on the book.
func (p *Policy) settleResidual(b *book.Book, order *book.Order, now time.Time) bool {
	if order.Kind == book.Limit {
		if order.RemainingQuantity.GreaterThan(decimal.Zero) {
			b.Rest(order)
			return true
		}
		order.Status = book.Filled
		return false
	}

	// IOC or Market: whatever is left (possibly zero) is released and an
	// informational Cancel is always emitted, per spec.md §4.4 step 4.
	residual := order.RemainingQuantity
	p.Ledger.Release(order.ID, order.Trader)
	order.Status = book.Cancelled
	order.RemainingQuantity = decimal.Zero
	p.Sink.OnCancel(events.Cancel{
		Order: order.ID, Trader: order.Trader, Instrument: order.Instrument,
		Reason: events.NotEnoughQuantity, ResidualQuantity: residual, At: now,
	})
	return false
}

// CancelOrder removes a working order from b and releases its residual
// reservation, notifying the sink. id's trader must match the order's
// original trader — callers (internal/exchange) are expected to have
// already checked that.
func (p *Policy) CancelOrder(b *book.Book, instrument ids.Instrument, id ids.OrderID, trader ids.TraderID) error {
	residual, err := b.Cancel(id)
	if err != nil {
		return err
	}
	if err := p.Ledger.Release(id, trader); err != nil {
		return err
	}

	now := p.Clock()
	p.Sink.OnCancel(events.Cancel{
		Order: id, Trader: trader, Instrument: instrument,
		Reason: events.UserRequested, ResidualQuantity: residual, At: now,
	})
	bids, asks := b.Depth(unboundedDepth)
	p.Sink.OnDepth(events.Depth{Instrument: instrument, Bids: bids, Asks: asks, At: now})
	return nil
}

// reserveAmount computes how much of the delivered asset order commits
// to, in the asset's own units: for a Sell, simply its quantity; for a
// Buy at a known price (Limit, IOC), quantity*price; for a Market Buy,
// a conservative sweep estimate over the book's current ask depth (see
// SPEC_FULL.md §14 and DESIGN.md's policy entry for the reasoning).
func (p *Policy) reserveAmount(b *book.Book, order *book.Order) (decimal.Decimal, error) {
	if order.Side == book.Sell {
		return order.RemainingQuantity, nil
	}
	if order.Kind != book.Market {
		return order.RemainingQuantity.Mul(order.LimitPrice)
	}
	return conservativeSweepEstimate(b, order.RemainingQuantity)
}

// conservativeSweepEstimate walks the ask side of b, summing
// quantity*price level by level, up to qty units of base. If the book
// cannot fully cover qty, the shortfall is priced at the worst (last)
// visible ask so the estimate never under-reserves relative to what a
// real sweep to that depth would cost. If there is no ask liquidity at
// all, the reservation is zero: the order still proceeds through
// Execute, matches nothing, and settles as an informational
// NotEnoughQuantity cancel rather than being rejected outright.
func conservativeSweepEstimate(b *book.Book, qty decimal.Decimal) (decimal.Decimal, error) {
	_, asks := b.Depth(unboundedDepth)
	if len(asks) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	remaining := qty
	for _, lvl := range asks {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		used := remaining
		if lvl.Quantity.LessThan(used) {
			used = lvl.Quantity
		}
		amt, err := used.Mul(lvl.Price)
		if err != nil {
			return decimal.Zero, err
		}
		total, err = total.Add(amt)
		if err != nil {
			return decimal.Zero, err
		}
		remaining, _ = remaining.Sub(used)
	}

	if remaining.GreaterThan(decimal.Zero) {
		worst := asks[len(asks)-1].Price
		shortfall, err := remaining.Mul(worst)
		if err != nil {
			return decimal.Zero, err
		}
		total, err = total.Add(shortfall)
		if err != nil {
			return decimal.Zero, err
		}
	}
	return total, nil
}
