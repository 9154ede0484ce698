// Command orderexecution is the example driver spec.md §8 describes: it
// deposits starting balances for two traders and walks through the
// canonical scenarios, printing every event as it happens. Flag parsing
// follows the teacher's cmd/client/client.go style.
package main

import (
	"flag"
	"fmt"
	"os"

	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/events"
	"benthic/internal/exchange"
	"benthic/internal/ids"
)

// console is an events.Sink that prints every event to stdout, in the
// shape a human following along the scenario narrative would expect.
type console struct{}

func (console) OnPromise(e events.Promise) { fmt.Println(e) }
func (console) OnExecute(e events.Execute) { fmt.Println(e) }
func (console) OnCancel(e events.Cancel)   { fmt.Println(e) }
func (console) OnDepth(e events.Depth)     { fmt.Println(e) }
func (console) OnTrade(e events.Trade)     { fmt.Println(e) }

const (
	trader1001 ids.TraderID = 1001
	trader1002 ids.TraderID = 1002
)

var (
	btcUsdt = ids.Instrument{Base: "BTC", Quote: "USDT"}
	btcEth  = ids.Instrument{Base: "BTC", Quote: "ETH"}
)

func main() {
	scenario := flag.String("scenario", "s1", "scenario to run: s1, s2, s3, or s4")
	flag.Parse()

	e := exchange.New(
		[]ids.Asset{"BTC", "USDT", "ETH"},
		[]ids.Instrument{btcUsdt, btcEth},
		console{},
	)
	mustDeposit(e, trader1001, "BTC", decimal.FromUnits(2))
	mustDeposit(e, trader1002, "ETH", decimal.FromUnits(20))

	switch *scenario {
	case "s1":
		runS1(e)
	case "s2":
		runS2(e)
	case "s3":
		runS3(e)
	case "s4":
		runS4(e)
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenario)
		os.Exit(1)
	}
}

func mustDeposit(e *exchange.Exchange, trader ids.TraderID, asset ids.Asset, qty decimal.Decimal) {
	if err := e.Deposit(trader, asset, qty, decimal.Zero); err != nil {
		fmt.Fprintf(os.Stderr, "deposit failed: %v\n", err)
		os.Exit(1)
	}
}

func mustPlace(e *exchange.Exchange, trader ids.TraderID, inst ids.Instrument, side book.Side, kind book.Kind, qty, price decimal.Decimal) ids.OrderID {
	id, err := e.PlaceOrder(trader, inst, side, kind, qty, price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "order rejected: %v\n", err)
		os.Exit(1)
	}
	return id
}

// runS1 (partial fill): 1001 rests an unrelated BTC/USDT bid (scene-
// setting, going short on USDT since none was deposited), then rests a
// BTC/ETH sell that 1002 partially fills.
func runS1(e *exchange.Exchange) {
	mustPlace(e, trader1001, btcUsdt, book.Buy, book.Limit, decimal.FromUnits(1), decimal.FromUnits(50000))
	mustPlace(e, trader1001, btcEth, book.Sell, book.Limit, decimal.FromUnits(1), decimal.FromScaled(125*decimal.Scale/10))
	mustPlace(e, trader1002, btcEth, book.Buy, book.Limit, decimal.FromScaled(5*decimal.Scale/10), decimal.FromScaled(125*decimal.Scale/10))
}

// runS2 (non-crossing limit rests): 1002's bid is below the best ask
// and simply joins the book.
func runS2(e *exchange.Exchange) {
	mustPlace(e, trader1001, btcEth, book.Sell, book.Limit, decimal.FromUnits(1), decimal.FromScaled(125*decimal.Scale/10))
	mustPlace(e, trader1002, btcEth, book.Buy, book.Limit, decimal.FromUnits(1), decimal.FromUnits(12))
}

// runS3 (full fill at the maker's price): 1002 crosses the resting
// 1001 sell in full.
func runS3(e *exchange.Exchange) {
	mustPlace(e, trader1001, btcEth, book.Sell, book.Limit, decimal.FromUnits(1), decimal.FromScaled(125*decimal.Scale/10))
	mustPlace(e, trader1002, btcEth, book.Buy, book.Limit, decimal.FromUnits(1), decimal.FromUnits(14))
}

// runS4 (go short): 1001 sells more BTC/ETH than they hold; the
// shortfall becomes a short lot once the order fills.
func runS4(e *exchange.Exchange) {
	mustPlace(e, trader1001, btcEth, book.Sell, book.Limit, decimal.FromScaled(25*decimal.Scale/10), decimal.FromScaled(125*decimal.Scale/10))
	mustPlace(e, trader1002, btcEth, book.Buy, book.Limit, decimal.FromScaled(25*decimal.Scale/10), decimal.FromUnits(15))
}
