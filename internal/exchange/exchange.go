// Package exchange is the public entry point: the order manager that
// validates and routes incoming requests, one Book per instrument, a
// single shared Ledger, and the Policy that ties them together for
// every operation. Grounded on the teacher's internal/engine/engine.go
// "Engine{Books map[AssetType]OrderBook}" registry shape, generalized
// from a hardcoded asset-type enum to the spec's open instrument set.
package exchange

import (
	"errors"
	"fmt"

	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/events"
	"benthic/internal/ids"
	"benthic/internal/ledger"
	"benthic/internal/policy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownInstrument is returned for operations against an
	// instrument that was not passed to New.
	ErrUnknownInstrument = errors.New("exchange: unknown instrument")
	// ErrUnknownAsset is returned by Deposit for an asset that was not
	// passed to New.
	ErrUnknownAsset = errors.New("exchange: unknown asset")
	// ErrInvalidQuantity is returned for a non-positive order quantity.
	ErrInvalidQuantity = errors.New("exchange: invalid quantity")
	// ErrInvalidPrice is returned when a Limit or IOC order carries a
	// non-positive limit price, or a Market order carries a non-zero one.
	ErrInvalidPrice = errors.New("exchange: invalid price")
	// ErrNotOrderOwner is returned when a cancel is requested by a
	// trader other than the order's original trader.
	ErrNotOrderOwner = errors.New("exchange: trader does not own order")
)

// Exchange is the top-level handle an embedder drives: one per running
// instance of the matching core.
type Exchange struct {
	id          uuid.UUID
	assets      map[ids.Asset]struct{}
	instruments map[ids.Instrument]struct{}
	books       map[ids.Instrument]*book.Book
	ledger      *ledger.Ledger
	policy      *policy.Policy
	orders      *ids.Generator
	owners      map[ids.OrderID]ownerRecord
	log         zerolog.Logger
}

type ownerRecord struct {
	trader     ids.TraderID
	instrument ids.Instrument
}

// New returns a ready Exchange, per spec.md §6's
// "new_exchange(assets, instruments, event_sink)" surface: assets and
// instruments are the closed universe PlaceOrder/Deposit validate
// against — the order manager's "instrument known" check (spec.md §7)
// has nothing to check against otherwise. sink receives every Promise/
// Execute/Cancel/Depth/Trade event the policy emits; pass
// events.Discard if the caller doesn't need them, or an
// internal/asyncsink decorator to move slow sinks off the calling
// goroutine.
func New(assets []ids.Asset, instruments []ids.Instrument, sink events.Sink) *Exchange {
	id := uuid.New()
	l := ledger.New()

	assetSet := make(map[ids.Asset]struct{}, len(assets))
	for _, a := range assets {
		assetSet[a] = struct{}{}
	}
	instrumentSet := make(map[ids.Instrument]struct{}, len(instruments))
	for _, i := range instruments {
		instrumentSet[i] = struct{}{}
	}

	return &Exchange{
		id:          id,
		assets:      assetSet,
		instruments: instrumentSet,
		books:       make(map[ids.Instrument]*book.Book),
		ledger:      l,
		policy:      policy.New(l, sink, nil),
		orders:      ids.NewGenerator(),
		owners:      make(map[ids.OrderID]ownerRecord),
		log:         log.With().Str("exchange", id.String()).Logger(),
	}
}

func (e *Exchange) bookFor(instrument ids.Instrument) *book.Book {
	b, ok := e.books[instrument]
	if !ok {
		b = book.New(instrument)
		e.books[instrument] = b
	}
	return b
}

// Deposit credits trader with qty of asset, opening a Long lot at
// referencePrice. Implicitly opens the trader's margin account if this
// is their first deposit.
func (e *Exchange) Deposit(trader ids.TraderID, asset ids.Asset, qty, referencePrice decimal.Decimal) error {
	if _, ok := e.assets[asset]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	if err := e.ledger.Deposit(trader, asset, qty, referencePrice); err != nil {
		e.log.Error().Err(err).Uint64("trader", uint64(trader)).Str("asset", string(asset)).Msg("deposit failed")
		return err
	}
	e.log.Info().Uint64("trader", uint64(trader)).Str("asset", string(asset)).Str("qty", qty.String()).Msg("deposit")
	return nil
}

// PlaceOrder validates and submits a new order, returning its assigned
// id. A returned error means the order was rejected outright: no book
// or ledger state changed and no events were emitted, per spec.md
// §4.4 step 1.
func (e *Exchange) PlaceOrder(trader ids.TraderID, instrument ids.Instrument, side book.Side, kind book.Kind, qty, limitPrice decimal.Decimal) (ids.OrderID, error) {
	if _, ok := e.instruments[instrument]; !ok {
		return ids.OrderID{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrument)
	}
	if !qty.GreaterThan(decimal.Zero) {
		return ids.OrderID{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, qty)
	}
	if kind == book.Market {
		if !limitPrice.IsZero() {
			return ids.OrderID{}, fmt.Errorf("%w: market order must not carry a limit price", ErrInvalidPrice)
		}
	} else if !limitPrice.GreaterThan(decimal.Zero) {
		return ids.OrderID{}, fmt.Errorf("%w: %s", ErrInvalidPrice, limitPrice)
	}

	id := e.orders.Next(trader)
	order := &book.Order{
		ID: id, Trader: trader, Instrument: instrument, Side: side, Kind: kind,
		LimitPrice: limitPrice, OriginalQuantity: qty, RemainingQuantity: qty, Status: book.Working,
	}

	b := e.bookFor(instrument)
	if err := e.policy.Execute(b, order); err != nil {
		e.log.Warn().Err(err).Stringer("order", id).Msg("order rejected")
		return ids.OrderID{}, err
	}

	if order.Status == book.Working {
		e.owners[id] = ownerRecord{trader: trader, instrument: instrument}
	}
	e.log.Info().Stringer("order", id).Str("status", order.Status.String()).Msg("order accepted")
	return id, nil
}

// CancelOrder cancels a still-working order. trader must match the
// order's original trader.
func (e *Exchange) CancelOrder(trader ids.TraderID, id ids.OrderID) error {
	owner, ok := e.owners[id]
	if !ok {
		return fmt.Errorf("%w: %s", book.ErrOrderNotFound, id)
	}
	if owner.trader != trader {
		return fmt.Errorf("%w: %s", ErrNotOrderOwner, id)
	}
	b := e.bookFor(owner.instrument)
	if err := e.policy.CancelOrder(b, owner.instrument, id, trader); err != nil {
		return err
	}
	delete(e.owners, id)
	e.log.Info().Stringer("order", id).Msg("order cancelled")
	return nil
}

// SnapshotDepth returns up to levels aggregated rows per side for
// instrument. ok is false if the instrument has never been touched.
func (e *Exchange) SnapshotDepth(instrument ids.Instrument, levels int) (DepthView, bool) {
	b, exists := e.books[instrument]
	if !exists {
		return DepthView{}, false
	}
	bids, asks := b.Depth(levels)
	return DepthView{Instrument: instrument, Bids: bids, Asks: asks}, true
}

// SnapshotAccount returns a read-only view of trader's margin account.
func (e *Exchange) SnapshotAccount(trader ids.TraderID) (AccountView, bool) {
	acc, ok := e.ledger.Account(trader)
	if !ok {
		return AccountView{}, false
	}
	return newAccountView(acc), true
}
