package observability

import (
	"nftmarket/core/events"
	"nftmarket/crypto"
	"nftmarket/native/market"
)

// Emit implements events.Emitter so the registry can subscribe to committed
// ledger events.
func (m *MarketMetrics) Emit(evt events.Event) {
	if m == nil {
		return
	}
	switch e := evt.(type) {
	case market.ListingCreated:
		m.listings.WithLabelValues(crypto.FormatAddress(e.TradeState.Marketplace)).Inc()
	case market.SaleExecuted:
		marketplace := crypto.FormatAddress(e.TradeState.Marketplace)
		m.sales.WithLabelValues(marketplace).Inc()
		m.volume.WithLabelValues(crypto.FormatAddress(e.TradeState.Currency)).Add(float64(e.TradeState.Price))
		m.fees.WithLabelValues(marketplace).Add(float64(e.Fee))
	case market.FeesWithdrawn:
		m.withdrawals.WithLabelValues(crypto.FormatAddress(e.Marketplace)).Add(float64(e.Amount))
	}
}
