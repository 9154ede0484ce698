package ledger

import (
	"errors"
	"fmt"

	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/ids"
)

var (
	// ErrUnknownTrader is returned by any ledger operation on a trader
	// that has never deposited — accounts are opened implicitly by the
	// first Deposit, not pre-registered.
	ErrUnknownTrader = errors.New("ledger: unknown trader")

	// ErrInsufficientFunds is returned by Reserve. Per spec.md §3/§4.3,
	// this ledger has no cross-instrument risk engine (no liquidation,
	// no portfolio margin — explicitly out of scope), so a trader may
	// always reserve beyond their held balance by opening or deepening a
	// short position: the only way Reserve actually fails is when doing
	// so would overflow the underlying fixed-point representation. See
	// DESIGN.md's ledger entry for the reasoning behind this choice.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
)

// reservation records how a single order's delivery commitment was
// split across the Long and Short open_quantity of the asset it
// delivers, so Release and Realize can unwind it precisely instead of
// re-deriving the split from scratch against since-changed balances.
type reservation struct {
	asset ids.Asset
	long  decimal.Decimal
	short decimal.Decimal
}

// Ledger is the exchange's margin ledger: one MarginAccount per trader,
// keyed directly by trader id (spec.md §9's subaccount open question is
// resolved as "no subaccounts" — see SPEC_FULL.md §14).
type Ledger struct {
	accounts     map[ids.TraderID]*MarginAccount
	reservations map[ids.OrderID]*reservation
	lotSeq       map[ids.OrderID]uint64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts:     make(map[ids.TraderID]*MarginAccount),
		reservations: make(map[ids.OrderID]*reservation),
		lotSeq:       make(map[ids.OrderID]uint64),
	}
}

func (l *Ledger) getAccount(trader ids.TraderID) (*MarginAccount, error) {
	acc, ok := l.accounts[trader]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTrader, trader)
	}
	return acc, nil
}

func (l *Ledger) nextLotID(origin ids.OrderID) ids.LotID {
	l.lotSeq[origin]++
	return ids.LotID{Origin: origin, Seq: l.lotSeq[origin]}
}

// Deposit credits trader's account with qty of asset at a reference
// price without going through matching — spec.md §4.3 models deposits as
// synthetic orders. Like a Long fill, it first closes any Short lots of
// asset FIFO and opens a new Long lot for the remainder. Seq 0 is
// reserved for deposit-origin order ids; the real per-trader Generator
// (internal/ids) never issues seq 0, so deposit lots are always
// distinguishable from trading lots in a trader's lot history.
func (l *Ledger) Deposit(trader ids.TraderID, asset ids.Asset, qty, referencePrice decimal.Decimal) error {
	acc, ok := l.accounts[trader]
	if !ok {
		acc = newMarginAccount(trader)
		l.accounts[trader] = acc
	}
	if qty.IsZero() {
		return nil
	}
	origin := ids.OrderID{Trader: trader, Seq: 0}
	if err := l.realizeAsset(acc, asset, Long, qty, referencePrice, origin); err != nil {
		return fmt.Errorf("ledger: deposit: %w", err)
	}
	return nil
}

// Reserve commits order to delivering deliverQty of whichever asset
// side delivers (quote for a Buy, base for a Sell), per spec.md §4.3.
// Up to the trader's available long balance is reserved against the
// Long side; any excess spills onto the Short side uncapped, since
// permitting a reservation to push a position short is an ordinary,
// expected outcome here (see spec.md's "go short" scenario), not a
// failure.
func (l *Ledger) Reserve(order ids.OrderID, trader ids.TraderID, instrument ids.Instrument, side book.Side, deliverQty decimal.Decimal) error {
	acc, err := l.getAccount(trader)
	if err != nil {
		return err
	}
	asset := deliveredAsset(instrument, side)
	aa := acc.assetAccount(asset)

	avail := aa.Long.Available()
	var longPart, shortPart decimal.Decimal
	if avail.GreaterOrEqual(deliverQty) {
		longPart = deliverQty
	} else {
		longPart = avail
		shortPart, err = deliverQty.Sub(longPart)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
	}

	if !longPart.IsZero() {
		v, err := aa.Long.OpenQuantity.Add(longPart)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		aa.Long.OpenQuantity = v
	}
	if !shortPart.IsZero() {
		v, err := aa.Short.OpenQuantity.Add(shortPart)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		aa.Short.OpenQuantity = v
	}

	l.reservations[order] = &reservation{asset: asset, long: longPart, short: shortPart}
	return nil
}

// Release unwinds whatever remains of order's reservation (its full
// amount if never partially realized, or the residual left after
// partial fills have drained it via Realize). A no-op if order never
// had — or has already fully consumed — a reservation.
func (l *Ledger) Release(order ids.OrderID, trader ids.TraderID) error {
	res, ok := l.reservations[order]
	if !ok {
		return nil
	}
	acc, err := l.getAccount(trader)
	if err != nil {
		return err
	}
	aa := acc.assetAccount(res.asset)
	if !res.long.IsZero() {
		aa.Long.OpenQuantity, _ = aa.Long.OpenQuantity.Sub(res.long)
	}
	if !res.short.IsZero() {
		aa.Short.OpenQuantity, _ = aa.Short.OpenQuantity.Sub(res.short)
	}
	delete(l.reservations, order)
	return nil
}

// Realize applies one fill (qty of base changing hands at price) to
// trader's position on side, per spec.md §4.3: for each of the two
// assets a trade moves, FIFO-close existing lots on the opposite ledger
// side up to the amount entering, then open a new lot for any
// remainder. It also drains order's stored reservation by the amount of
// the asset it delivered in this fill.
func (l *Ledger) Realize(order ids.OrderID, trader ids.TraderID, instrument ids.Instrument, side book.Side, qty, price decimal.Decimal) error {
	acc, err := l.getAccount(trader)
	if err != nil {
		return err
	}
	quoteAmt, err := qty.Mul(price)
	if err != nil {
		return fmt.Errorf("ledger: realize overflow: %w", err)
	}

	var deliveredAssetSym ids.Asset
	var deliveredAmt decimal.Decimal
	if side == book.Buy {
		if err := l.realizeAsset(acc, instrument.Quote, Short, quoteAmt, price, order); err != nil {
			return err
		}
		if err := l.realizeAsset(acc, instrument.Base, Long, qty, price, order); err != nil {
			return err
		}
		deliveredAssetSym, deliveredAmt = instrument.Quote, quoteAmt
	} else {
		if err := l.realizeAsset(acc, instrument.Base, Short, qty, price, order); err != nil {
			return err
		}
		if err := l.realizeAsset(acc, instrument.Quote, Long, quoteAmt, price, order); err != nil {
			return err
		}
		deliveredAssetSym, deliveredAmt = instrument.Base, qty
	}

	l.drainReservation(order, deliveredAssetSym, deliveredAmt)
	return nil
}

// realizeAsset closes opp := entering.opposite() lots FIFO up to qty,
// then opens a new lot on entering for whatever qty is left over.
func (l *Ledger) realizeAsset(acc *MarginAccount, asset ids.Asset, entering Side, qty, price decimal.Decimal, origin ids.OrderID) error {
	aa := acc.assetAccount(asset)
	opp := aa.side(entering.opposite())

	remaining := qty
	for remaining.GreaterThan(decimal.Zero) {
		lot := opp.lots.front()
		if lot == nil {
			break
		}
		closeQty := minDecimal(remaining, lot.Quantity)

		lot.Quantity, _ = lot.Quantity.Sub(closeQty)
		newClosed, err := opp.ClosedQuantity.Sub(closeQty)
		if err != nil {
			// closeQty is bounded by lot.Quantity, and ClosedQuantity is
			// the sum of its side's lot quantities, so this can only fire
			// if that sum has drifted from the lots themselves — spec.md
			// §7's named example of a fatal internal invariant violation
			// ("a lot list draining below zero"), not a recoverable error.
			panic(fmt.Sprintf("ledger: closed quantity drained below its lot sum: %v", err))
		}
		opp.ClosedQuantity = newClosed
		remaining, _ = remaining.Sub(closeQty)

		if lot.Quantity.IsZero() {
			opp.lots.popFront()
		}
	}

	if remaining.GreaterThan(decimal.Zero) {
		own := aa.side(entering)
		newClosed, err := own.ClosedQuantity.Add(remaining)
		if err != nil {
			return fmt.Errorf("ledger: realize overflow: %w", err)
		}
		own.ClosedQuantity = newClosed
		own.lots.pushBack(Lot{
			ID:       l.nextLotID(origin),
			Asset:    asset,
			Side:     entering,
			Quantity: remaining,
			Price:    price,
			Origin:   origin,
		})
	}
	return nil
}

// drainReservation reduces order's stored reservation (long first, then
// short) by amt, keeping the asset account's open_quantity in sync.
func (l *Ledger) drainReservation(order ids.OrderID, asset ids.Asset, amt decimal.Decimal) {
	res, ok := l.reservations[order]
	if !ok || res.asset != asset {
		return
	}
	acc := l.accounts[order.Trader]
	aa := acc.assetAccount(asset)

	fromLong := minDecimal(amt, res.long)
	res.long, _ = res.long.Sub(fromLong)
	aa.Long.OpenQuantity, _ = aa.Long.OpenQuantity.Sub(fromLong)
	amt, _ = amt.Sub(fromLong)

	fromShort := minDecimal(amt, res.short)
	res.short, _ = res.short.Sub(fromShort)
	aa.Short.OpenQuantity, _ = aa.Short.OpenQuantity.Sub(fromShort)

	if res.long.IsZero() && res.short.IsZero() {
		delete(l.reservations, order)
	}
}

// Account returns trader's margin account snapshot, if any.
func (l *Ledger) Account(trader ids.TraderID) (*MarginAccount, bool) {
	acc, ok := l.accounts[trader]
	return acc, ok
}

func deliveredAsset(instrument ids.Instrument, side book.Side) ids.Asset {
	if side == book.Buy {
		return instrument.Quote
	}
	return instrument.Base
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessOrEqual(b) {
		return a
	}
	return b
}
