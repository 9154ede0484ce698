// Package ids defines the identifier types shared across the exchange
// core: traders, orders, instruments, and lots. Identifiers are plain
// integers (or integer pairs), never pointers, so that owners can hold
// each other's identities without holding each other's memory — see
// DESIGN.md's note on breaking the order/trader/lot reference cycle.
package ids

import "fmt"

// TraderID uniquely identifies a trader (and, since benthic treats each
// trader as owning exactly one account, their margin account too).
type TraderID uint64

// AccountID is the margin ledger's key into its account table. Per
// spec.md §9's subaccount open question, benthic resolves an account by
// trader_id directly; AccountID is kept as a distinct name at the ledger
// boundary so a future subaccount scheme only has to change this alias.
type AccountID = TraderID

// Asset identifies a tradable unit of value (a currency/coin symbol).
type Asset string

// Instrument is an ordered pair of assets: Base is quoted in units of
// Quote. Prices on the book for this instrument are Quote-per-Base.
type Instrument struct {
	Base  Asset
	Quote Asset
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s/%s", i.Base, i.Quote)
}

// OrderID is globally unique and scoped per trader: (trader_id, seq).
// seq is monotonically increasing per trader, assigned by the order
// manager (see internal/exchange).
type OrderID struct {
	Trader TraderID
	Seq    uint64
}

func (o OrderID) String() string {
	return fmt.Sprintf("%d-%d", o.Trader, o.Seq)
}

// LotID is derived from the order that produced the lot: a lot opened by
// order O's realization carries O's id plus a per-order sequence number,
// since a single fill can, on the remainder side of a FIFO drain, open at
// most one lot, but a single order's lifetime (multiple partial fills)
// may open several.
type LotID struct {
	Origin OrderID
	Seq    uint64
}

func (l LotID) String() string {
	return fmt.Sprintf("%s/%d", l.Origin, l.Seq)
}

// Generator mints monotonically increasing per-trader order sequence
// numbers. Not safe for concurrent use — the engine is single-threaded
// cooperative per spec.md §5, so no locking is needed here.
type Generator struct {
	next map[TraderID]uint64
}

// NewGenerator returns a ready-to-use Generator.
func NewGenerator() *Generator {
	return &Generator{next: make(map[TraderID]uint64)}
}

// Next returns the next OrderID for trader, starting at 1.
func (g *Generator) Next(trader TraderID) OrderID {
	g.next[trader]++
	return OrderID{Trader: trader, Seq: g.next[trader]}
}
