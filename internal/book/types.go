package book

import (
	"benthic/internal/decimal"
	"benthic/internal/ids"
)

// Side is the aggressor/resting side of an order on the book: Buy or
// Sell. (Distinct from the ledger's Long/Short — see internal/ledger.)
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind distinguishes the three order kinds the book understands. Stop
// and OCO kinds are acknowledged future work (spec.md §1 Non-goals) and
// have no member here.
type Kind int

const (
	Limit Kind = iota
	Market
	IOC
)

func (k Kind) String() string {
	switch k {
	case Limit:
		return "limit"
	case Market:
		return "market"
	case IOC:
		return "ioc"
	default:
		return "unknown"
	}
}

// Status is an order's position in its state machine: Working ->
// Filled | Cancelled. Terminal states are final.
type Status int

const (
	Working Status = iota
	Filled
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Working:
		return "working"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Order is the book's view of a single order. LimitPrice is present for
// Limit and IOC kinds; Market orders carry a zero LimitPrice and are
// matched without a price bound.
type Order struct {
	ID                ids.OrderID
	Trader            ids.TraderID
	Instrument        ids.Instrument
	Side              Side
	Kind              Kind
	LimitPrice        decimal.Decimal
	OriginalQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	Status            Status
}

// Fill describes one match produced while placing an order: qty units
// change hands at price (the resting/maker order's price, per price-time
// priority — spec.md §4.2).
type Fill struct {
	AggressorOrder ids.OrderID
	AggressorSide  Side
	RestingOrder   ids.OrderID
	Quantity       decimal.Decimal
	Price          decimal.Decimal
}
