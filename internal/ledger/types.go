// Package ledger implements the margin ledger of spec.md §4.3: per-trader
// accounts, one MarginAssetAccount per asset the trader has touched, each
// holding a Long and a Short MarginSide with FIFO lots.
package ledger

import (
	"benthic/internal/decimal"
	"benthic/internal/ids"
)

// Side is the ledger's notion of position direction — Long or Short —
// distinct from the book's Buy/Sell order side (internal/book.Side).
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Long {
		return "long"
	}
	return "short"
}

func (s Side) opposite() Side {
	if s == Long {
		return Short
	}
	return Long
}

// Lot is a single FIFO contribution to a position: spec.md §3 requires
// the (quantity, price) pair be preserved intact, never averaged, so
// realized P&L can later be computed accurately from it.
type Lot struct {
	ID       ids.LotID
	Asset    ids.Asset
	Side     Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Origin   ids.OrderID
}

// MarginSide is one side (Long or Short) of a trader's position in one
// asset: a realized size (ClosedQuantity), a sum of in-flight working
// reservations (OpenQuantity), and the FIFO lots making up ClosedQuantity.
type MarginSide struct {
	ClosedQuantity decimal.Decimal
	OpenQuantity   decimal.Decimal
	lots           *lotRing
}

func newMarginSide() *MarginSide {
	return &MarginSide{lots: newLotRing()}
}

// Available returns how much of this side's closed (realized) quantity
// is not already promised to another working order — the headroom a new
// reservation can draw on before it must spill into the opposite side.
func (s *MarginSide) Available() decimal.Decimal {
	avail, err := s.ClosedQuantity.Sub(s.OpenQuantity)
	if err != nil {
		return decimal.Zero
	}
	return avail
}

// Lots returns a snapshot of the side's open lots, oldest first.
func (s *MarginSide) Lots() []Lot { return s.lots.items() }

// MarginAssetAccount is one asset's Long/Short pair for one trader.
// Invariant (spec.md §3): at any instant at most one of
// {Long.ClosedQuantity, Short.ClosedQuantity} is non-zero.
type MarginAssetAccount struct {
	Long  *MarginSide
	Short *MarginSide
}

func newMarginAssetAccount() *MarginAssetAccount {
	return &MarginAssetAccount{Long: newMarginSide(), Short: newMarginSide()}
}

// side returns the account's given ledger side.
func (a *MarginAssetAccount) side(s Side) *MarginSide {
	if s == Long {
		return a.Long
	}
	return a.Short
}

// MarginAccount is a single trader's margin account: one
// MarginAssetAccount per asset touched so far.
type MarginAccount struct {
	Trader ids.TraderID
	Assets map[ids.Asset]*MarginAssetAccount
}

func newMarginAccount(trader ids.TraderID) *MarginAccount {
	return &MarginAccount{Trader: trader, Assets: make(map[ids.Asset]*MarginAssetAccount)}
}

func (a *MarginAccount) assetAccount(asset ids.Asset) *MarginAssetAccount {
	aa, ok := a.Assets[asset]
	if !ok {
		aa = newMarginAssetAccount()
		a.Assets[asset] = aa
	}
	return aa
}
