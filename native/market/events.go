package market

import (
	"strconv"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

const (
	EventTypeMarketplaceInitialized = "market.initialized"
	EventTypeListingCreated         = "market.listing.created"
	EventTypeSaleExecuted           = "market.sale.executed"
	EventTypeFeesWithdrawn          = "market.fees.withdrawn"
)

// MarketplaceInitialized is emitted once per marketplace.
type MarketplaceInitialized struct {
	Marketplace Marketplace
}

func (MarketplaceInitialized) EventType() string { return EventTypeMarketplaceInitialized }

func (e MarketplaceInitialized) Event() *types.Event {
	m := e.Marketplace
	return &types.Event{Type: EventTypeMarketplaceInitialized, Attributes: map[string]string{
		"marketplace": crypto.FormatAddress(m.Address),
		"owner":       crypto.FormatAddress(m.Owner),
		"currency":    crypto.FormatAddress(m.Currency),
		"feeAccount":  crypto.FormatAddress(m.FeeAccount),
		"feeBps":      strconv.FormatUint(uint64(m.FeeBps), 10),
	}}
}

// ListingCreated is emitted when a trade state is created.
type ListingCreated struct {
	TradeState TradeState
}

func (ListingCreated) EventType() string { return EventTypeListingCreated }

func (e ListingCreated) Event() *types.Event {
	attrs := tradeStateAttributes(e.TradeState)
	return &types.Event{Type: EventTypeListingCreated, Attributes: attrs}
}

// SaleExecuted is emitted when a listing is consumed by a sale.
type SaleExecuted struct {
	TradeState        TradeState
	Buyer             [20]byte
	BuyerAssetAccount [20]byte
	Fee               uint64
	Net               uint64
}

func (SaleExecuted) EventType() string { return EventTypeSaleExecuted }

func (e SaleExecuted) Event() *types.Event {
	attrs := tradeStateAttributes(e.TradeState)
	attrs["buyer"] = crypto.FormatAddress(e.Buyer)
	attrs["buyerAssetAccount"] = crypto.FormatAddress(e.BuyerAssetAccount)
	attrs["fee"] = strconv.FormatUint(e.Fee, 10)
	attrs["net"] = strconv.FormatUint(e.Net, 10)
	return &types.Event{Type: EventTypeSaleExecuted, Attributes: attrs}
}

// FeesWithdrawn is emitted when the owner moves collected fees.
type FeesWithdrawn struct {
	Marketplace [20]byte
	Owner       [20]byte
	Destination [20]byte
	Amount      uint64
}

func (FeesWithdrawn) EventType() string { return EventTypeFeesWithdrawn }

func (e FeesWithdrawn) Event() *types.Event {
	return &types.Event{Type: EventTypeFeesWithdrawn, Attributes: map[string]string{
		"marketplace": crypto.FormatAddress(e.Marketplace),
		"owner":       crypto.FormatAddress(e.Owner),
		"destination": crypto.FormatAddress(e.Destination),
		"amount":      strconv.FormatUint(e.Amount, 10),
	}}
}

func tradeStateAttributes(t TradeState) map[string]string {
	return map[string]string{
		"tradeState":   crypto.FormatAddress(t.Address),
		"seller":       crypto.FormatAddress(t.Seller),
		"price":        strconv.FormatUint(t.Price, 10),
		"asset":        crypto.FormatAddress(t.Asset),
		"marketplace":  crypto.FormatAddress(t.Marketplace),
		"assetAccount": crypto.FormatAddress(t.AssetAccount),
		"currency":     crypto.FormatAddress(t.Currency),
	}
}
