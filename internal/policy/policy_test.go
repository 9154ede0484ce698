package policy

import (
	"testing"
	"time"

	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/events"
	"benthic/internal/ids"
	"benthic/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every event for assertions, in arrival order.
type recordingSink struct {
	promises []events.Promise
	executes []events.Execute
	cancels  []events.Cancel
	depths   []events.Depth
	trades   []events.Trade
}

func (r *recordingSink) OnPromise(e events.Promise) { r.promises = append(r.promises, e) }
func (r *recordingSink) OnExecute(e events.Execute) { r.executes = append(r.executes, e) }
func (r *recordingSink) OnCancel(e events.Cancel)   { r.cancels = append(r.cancels, e) }
func (r *recordingSink) OnDepth(e events.Depth)     { r.depths = append(r.depths, e) }
func (r *recordingSink) OnTrade(e events.Trade)     { r.trades = append(r.trades, e) }

func fixedClock() time.Time { return time.Unix(0, 0) }

func TestExecuteRestingLimitOrderEmitsPromiseAndDepth(t *testing.T) {
	inst := ids.Instrument{Base: "BTC", Quote: "ETH"}
	l := ledger.New()
	require.NoError(t, l.Deposit(1001, "BTC", decimal.FromUnits(2), decimal.Zero))
	sink := &recordingSink{}
	p := New(l, sink, fixedClock)
	b := book.New(inst)

	gen := ids.NewGenerator()
	sell := &book.Order{
		ID: gen.Next(1001), Trader: 1001, Instrument: inst, Side: book.Sell, Kind: book.Limit,
		LimitPrice: decimal.FromScaled(125 * decimal.Scale / 10), OriginalQuantity: decimal.FromUnits(1), RemainingQuantity: decimal.FromUnits(1),
	}
	require.NoError(t, p.Execute(b, sell))

	assert.Len(t, sink.promises, 1)
	assert.Len(t, sink.depths, 1)
	assert.Empty(t, sink.executes)
	assert.Empty(t, sink.trades)
	assert.Equal(t, book.Working, sell.Status)
}

func TestExecuteCrossingOrderProducesPairedExecutesAndTrade(t *testing.T) {
	inst := ids.Instrument{Base: "BTC", Quote: "ETH"}
	l := ledger.New()
	require.NoError(t, l.Deposit(1001, "BTC", decimal.FromUnits(2), decimal.Zero))
	require.NoError(t, l.Deposit(1002, "ETH", decimal.FromUnits(20), decimal.Zero))
	sink := &recordingSink{}
	p := New(l, sink, fixedClock)
	b := book.New(inst)
	gen := ids.NewGenerator()

	price := decimal.FromScaled(125 * decimal.Scale / 10) // 12.5
	sell := &book.Order{
		ID: gen.Next(1001), Trader: 1001, Instrument: inst, Side: book.Sell, Kind: book.Limit,
		LimitPrice: price, OriginalQuantity: decimal.FromUnits(1), RemainingQuantity: decimal.FromUnits(1),
	}
	require.NoError(t, p.Execute(b, sell))

	buy := &book.Order{
		ID: gen.Next(1002), Trader: 1002, Instrument: inst, Side: book.Buy, Kind: book.Limit,
		LimitPrice: price, OriginalQuantity: decimal.FromScaled(5 * decimal.Scale / 10), RemainingQuantity: decimal.FromScaled(5 * decimal.Scale / 10),
	}
	require.NoError(t, p.Execute(b, buy))

	require.Len(t, sink.trades, 1)
	assert.True(t, sink.trades[0].Quantity.Equal(decimal.FromScaled(5*decimal.Scale/10)))
	assert.True(t, sink.trades[0].Price.Equal(price), "trade prices at the maker's limit")
	require.Len(t, sink.executes, 2)
	assert.True(t, sink.executes[0].Aggressor)
	assert.False(t, sink.executes[1].Aggressor)

	assert.Equal(t, book.Filled, buy.Status)
	assert.True(t, buy.RemainingQuantity.IsZero())
	assert.Equal(t, book.Working, sell.Status)
	assert.True(t, sell.RemainingQuantity.Equal(decimal.FromScaled(5*decimal.Scale/10)))

	buyerAcc, _ := l.Account(1002)
	assert.True(t, buyerAcc.Assets["BTC"].Long.ClosedQuantity.Equal(decimal.FromScaled(5*decimal.Scale/10)))
}

func TestExecuteIOCResidualReleasedAndCancelled(t *testing.T) {
	inst := ids.Instrument{Base: "BTC", Quote: "ETH"}
	l := ledger.New()
	require.NoError(t, l.Deposit(1002, "ETH", decimal.FromUnits(20), decimal.Zero))
	sink := &recordingSink{}
	p := New(l, sink, fixedClock)
	b := book.New(inst)
	gen := ids.NewGenerator()

	ioc := &book.Order{
		ID: gen.Next(1002), Trader: 1002, Instrument: inst, Side: book.Buy, Kind: book.IOC,
		LimitPrice: decimal.FromUnits(12), OriginalQuantity: decimal.FromUnits(1), RemainingQuantity: decimal.FromUnits(1),
	}
	require.NoError(t, p.Execute(b, ioc))

	require.Len(t, sink.cancels, 1)
	assert.Equal(t, events.NotEnoughQuantity, sink.cancels[0].Reason)
	assert.True(t, sink.cancels[0].ResidualQuantity.Equal(decimal.FromUnits(1)))
	assert.Equal(t, book.Cancelled, ioc.Status)

	acc, _ := l.Account(1002)
	assert.True(t, acc.Assets["ETH"].Long.OpenQuantity.IsZero(), "residual reservation released")
}

func TestReserveRejectsBeforeAnyBookObservationOnUnknownTrader(t *testing.T) {
	inst := ids.Instrument{Base: "BTC", Quote: "ETH"}
	l := ledger.New()
	sink := &recordingSink{}
	p := New(l, sink, fixedClock)
	b := book.New(inst)

	order := &book.Order{
		ID: ids.OrderID{Trader: 9999, Seq: 1}, Trader: 9999, Instrument: inst, Side: book.Sell, Kind: book.Limit,
		LimitPrice: decimal.FromUnits(1), OriginalQuantity: decimal.FromUnits(1), RemainingQuantity: decimal.FromUnits(1),
	}
	err := p.Execute(b, order)
	assert.ErrorIs(t, err, ledger.ErrUnknownTrader)
	assert.Empty(t, sink.promises)
	assert.Empty(t, sink.depths)
}

func TestCancelOrderReleasesAndNotifies(t *testing.T) {
	inst := ids.Instrument{Base: "BTC", Quote: "ETH"}
	l := ledger.New()
	require.NoError(t, l.Deposit(1001, "BTC", decimal.FromUnits(2), decimal.Zero))
	sink := &recordingSink{}
	p := New(l, sink, fixedClock)
	b := book.New(inst)
	gen := ids.NewGenerator()

	sell := &book.Order{
		ID: gen.Next(1001), Trader: 1001, Instrument: inst, Side: book.Sell, Kind: book.Limit,
		LimitPrice: decimal.FromUnits(12), OriginalQuantity: decimal.FromUnits(1), RemainingQuantity: decimal.FromUnits(1),
	}
	require.NoError(t, p.Execute(b, sell))

	require.NoError(t, p.CancelOrder(b, inst, sell.ID, 1001))
	require.Len(t, sink.cancels, 1)
	assert.Equal(t, events.UserRequested, sink.cancels[0].Reason)

	acc, _ := l.Account(1001)
	assert.True(t, acc.Assets["BTC"].Long.OpenQuantity.IsZero())
}

func TestConservativeSweepEstimateNoLiquidityCancelsInsteadOfRejecting(t *testing.T) {
	inst := ids.Instrument{Base: "BTC", Quote: "ETH"}
	l := ledger.New()
	require.NoError(t, l.Deposit(1002, "ETH", decimal.FromUnits(20), decimal.Zero))
	sink := &recordingSink{}
	p := New(l, sink, fixedClock)
	b := book.New(inst)

	order := &book.Order{
		ID: ids.OrderID{Trader: 1002, Seq: 1}, Trader: 1002, Instrument: inst, Side: book.Buy, Kind: book.Market,
		OriginalQuantity: decimal.FromUnits(1), RemainingQuantity: decimal.FromUnits(1),
	}
	require.NoError(t, p.Execute(b, order))

	require.Len(t, sink.cancels, 1)
	assert.Equal(t, events.NotEnoughQuantity, sink.cancels[0].Reason)
	assert.True(t, sink.cancels[0].ResidualQuantity.Equal(decimal.FromUnits(1)))
	assert.Equal(t, book.Cancelled, order.Status)
}
