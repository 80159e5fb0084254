package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nftmarket/core/events"
	"nftmarket/crypto"
	"nftmarket/native/market"
)

func addr(fill byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = fill
	}
	return out
}

func setupIndexer(t *testing.T) *Indexer {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	idx := New(db, nil)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.nowFn = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return idx
}

func tradeState(fill byte, seller [20]byte, price uint64) market.TradeState {
	return market.TradeState{
		Address:      addr(fill),
		Seller:       seller,
		Price:        price,
		Asset:        addr(fill + 1),
		Marketplace:  addr(0xAA),
		AssetAccount: addr(fill + 2),
		Currency:     addr(0xCC),
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("  ")
	require.ErrorIs(t, err, ErrDSNRequired)
}

func TestListingLifecycle(t *testing.T) {
	idx := setupIndexer(t)
	ctx := context.Background()
	seller := addr(0x01)
	ts := tradeState(0x10, seller, 1000)

	idx.Emit(market.ListingCreated{TradeState: ts})
	rows, err := idx.Listings(ctx, Filter{Seller: crypto.FormatAddress(seller)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, StatusOpen, rows[0].Status)
	require.Equal(t, uint64(1000), rows[0].Price)

	buyer := addr(0x02)
	idx.Emit(market.SaleExecuted{TradeState: ts, Buyer: buyer, Fee: 25, Net: 975})
	rows, err = idx.Listings(ctx, Filter{Status: StatusSold})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, crypto.FormatAddress(buyer), rows[0].Buyer)
	require.Equal(t, uint64(25), rows[0].Fee)
	require.NotNil(t, rows[0].SoldAt)

	open, err := idx.Listings(ctx, Filter{Status: "open"})
	require.NoError(t, err)
	require.Empty(t, open)

	sales, err := idx.Sales(ctx, crypto.FormatAddress(ts.Address))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, uint64(975), sales[0].Net)
}

func TestRelistReopensRow(t *testing.T) {
	idx := setupIndexer(t)
	ctx := context.Background()
	ts := tradeState(0x10, addr(0x01), 500)

	idx.Emit(market.ListingCreated{TradeState: ts})
	idx.Emit(market.SaleExecuted{TradeState: ts, Buyer: addr(0x02), Fee: 0, Net: 500})
	idx.Emit(market.ListingCreated{TradeState: ts})

	rows, err := idx.Listings(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, StatusOpen, rows[0].Status)

	sales, err := idx.Sales(ctx, crypto.FormatAddress(ts.Address))
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestSaleWithoutListingCreatesRow(t *testing.T) {
	idx := setupIndexer(t)
	ts := tradeState(0x30, addr(0x01), 42)
	idx.Emit(market.SaleExecuted{TradeState: ts, Buyer: addr(0x03), Net: 42})

	rows, err := idx.Listings(context.Background(), Filter{Marketplace: crypto.FormatAddress(addr(0xAA))})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, StatusSold, rows[0].Status)
}

func TestFilterAndIgnoredEvents(t *testing.T) {
	idx := setupIndexer(t)
	ctx := context.Background()
	alice, bob := addr(0x01), addr(0x02)
	idx.Emit(market.ListingCreated{TradeState: tradeState(0x10, alice, 1)})
	idx.Emit(market.ListingCreated{TradeState: tradeState(0x20, alice, 2)})
	idx.Emit(market.ListingCreated{TradeState: tradeState(0x30, bob, 3)})
	idx.Emit(events.Transfer{Amount: 9})

	rows, err := idx.Listings(ctx, Filter{Seller: crypto.FormatAddress(alice)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, uint64(2), rows[0].Price, "newest listing first")

	limited, err := idx.Listings(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
