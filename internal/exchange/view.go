package exchange

import (
	"benthic/internal/book"
	"benthic/internal/decimal"
	"benthic/internal/ids"
	"benthic/internal/ledger"
)

// DepthView is a read-only snapshot of one instrument's aggregated book
// depth — spec.md §6's snapshot_depth(instrument, levels) -> DepthView
// surface — up to the requested number of price levels per side,
// best price first. It exposes no individual resting orders, only the
// aggregated quantity per level, per SPEC_FULL.md §12.
type DepthView struct {
	Instrument ids.Instrument
	Bids       []book.DepthLevel
	Asks       []book.DepthLevel
}

// PositionView is a read-only snapshot of one MarginSide.
type PositionView struct {
	ClosedQuantity decimal.Decimal
	OpenQuantity   decimal.Decimal
	Lots           []ledger.Lot
}

// AssetView is a read-only snapshot of one asset's Long/Short pair.
type AssetView struct {
	Long  PositionView
	Short PositionView
}

// AccountView is a read-only snapshot of a trader's margin account,
// copied out of the ledger so callers can't mutate live state through
// it (the ledger's own MarginAccount exposes pointers internally for
// Realize/Reserve's own use).
type AccountView struct {
	Trader ids.TraderID
	Assets map[ids.Asset]AssetView
}

func newAccountView(acc *ledger.MarginAccount) AccountView {
	assets := make(map[ids.Asset]AssetView, len(acc.Assets))
	for asset, aa := range acc.Assets {
		assets[asset] = AssetView{
			Long:  PositionView{ClosedQuantity: aa.Long.ClosedQuantity, OpenQuantity: aa.Long.OpenQuantity, Lots: aa.Long.Lots()},
			Short: PositionView{ClosedQuantity: aa.Short.ClosedQuantity, OpenQuantity: aa.Short.OpenQuantity, Lots: aa.Short.Lots()},
		}
	}
	return AccountView{Trader: acc.Trader, Assets: assets}
}
