package market

// Marketplace is the configuration of one marketplace instance. It is
// immutable after creation.
type Marketplace struct {
	Address    [20]byte
	Currency   [20]byte
	FeeAccount [20]byte
	FeeBps     uint16
	Owner      [20]byte
	Bump       uint8
	FeeBump    uint8
}

// Clone returns a copy of the marketplace so callers work on a snapshot.
func (m *Marketplace) Clone() *Marketplace {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// TradeState is the on-ledger record of an open listing. Its presence is the
// sole authorization for a matching sale.
type TradeState struct {
	Address      [20]byte
	Seller       [20]byte
	Bump         uint8
	Price        uint64
	Asset        [20]byte
	Marketplace  [20]byte
	AssetAccount [20]byte
	Currency     [20]byte
}

// Clone returns a copy of the trade state.
func (t *TradeState) Clone() *TradeState {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Key returns the listing tuple the record was derived from.
func (t *TradeState) Key() ListingKey {
	return ListingKey{
		Seller:       t.Seller,
		Price:        t.Price,
		Asset:        t.Asset,
		Marketplace:  t.Marketplace,
		AssetAccount: t.AssetAccount,
		Currency:     t.Currency,
	}
}

// InitParams describes a new marketplace.
type InitParams struct {
	Owner    [20]byte
	Currency [20]byte
	FeeBps   uint16
}

// ListParams describes a listing request. The seller must co-sign.
type ListParams struct {
	Seller       [20]byte
	Asset        [20]byte
	Marketplace  [20]byte
	AssetAccount [20]byte
	Currency     [20]byte
	Price        uint64
}

func (p ListParams) key() ListingKey {
	return ListingKey{
		Seller:       p.Seller,
		Price:        p.Price,
		Asset:        p.Asset,
		Marketplace:  p.Marketplace,
		AssetAccount: p.AssetAccount,
		Currency:     p.Currency,
	}
}

// SaleParams describes a purchase. Every reference is caller-supplied and is
// checked against the stored trade state before any value moves. The buyer
// must co-sign.
type SaleParams struct {
	Buyer                 [20]byte
	TradeState            [20]byte
	Seller                [20]byte
	BuyerAssetAccount     [20]byte
	BuyerCurrencyAccount  [20]byte
	SellerCurrencyAccount [20]byte
	Asset                 [20]byte
	Marketplace           [20]byte
	AssetAccount          [20]byte
	Currency              [20]byte
	FeeAccount            [20]byte
	Amount                uint64
}

// WithdrawParams describes a fee withdrawal. The marketplace owner must
// co-sign.
type WithdrawParams struct {
	Owner       [20]byte
	Marketplace [20]byte
	Destination [20]byte
	Amount      uint64
}
