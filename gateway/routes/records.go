package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"nftmarket/core/state"
	"nftmarket/crypto"
	"nftmarket/indexer"
	"nftmarket/native/market"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

type marketplaceView struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	Currency   string `json:"currency"`
	FeeAccount string `json:"feeAccount"`
	FeeBps     uint16 `json:"feeBps"`
	Bump       uint8  `json:"bump"`
}

type listingView struct {
	Address      string `json:"address"`
	Seller       string `json:"seller"`
	Price        uint64 `json:"price"`
	Asset        string `json:"asset"`
	Marketplace  string `json:"marketplace"`
	AssetAccount string `json:"assetAccount"`
	Currency     string `json:"currency"`
	Bump         uint8  `json:"bump"`
}

type accountView struct {
	Address         string `json:"address"`
	Mint            string `json:"mint"`
	Owner           string `json:"owner"`
	Amount          uint64 `json:"amount"`
	Delegate        string `json:"delegate,omitempty"`
	DelegatedAmount uint64 `json:"delegatedAmount,omitempty"`
}

type mintView struct {
	Address       string `json:"address"`
	Decimals      uint8  `json:"decimals"`
	Supply        uint64 `json:"supply"`
	MintAuthority string `json:"mintAuthority"`
}

type creatorView struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Share    uint8  `json:"share"`
}

type metadataView struct {
	Address              string        `json:"address"`
	Mint                 string        `json:"mint"`
	UpdateAuthority      string        `json:"updateAuthority"`
	Name                 string        `json:"name"`
	Symbol               string        `json:"symbol"`
	URI                  string        `json:"uri"`
	SellerFeeBasisPoints uint16        `json:"sellerFeeBasisPoints"`
	Creators             []creatorView `json:"creators"`
	ContentHash          string        `json:"contentHash"`
	PrimarySaleHappened  bool          `json:"primarySaleHappened"`
	IsMutable            bool          `json:"isMutable"`
}

type derivedView struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

func pathAddress(w http.ResponseWriter, r *http.Request, param string) ([20]byte, bool) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, param))
	if err != nil {
		writeBadRequest(w, r, fmt.Errorf("%s: %w", param, err))
		return addr, false
	}
	return addr, true
}

// read runs fn under the ledger's read lock so it never observes the journal
// of an in-flight transaction.
func (a *api) read(w http.ResponseWriter, r *http.Request, fn func() (interface{}, error)) {
	var out interface{}
	err := a.cfg.Ledger.View(func(*state.Manager) error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		status, code := classify(err)
		if status == http.StatusUnprocessableEntity {
			writeInternalError(w, r, err)
			return
		}
		writeError(w, r, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getMarketplace(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	a.read(w, r, func() (interface{}, error) {
		m, err := a.cfg.Market.Marketplace(addr)
		if err != nil {
			return nil, err
		}
		return marketplaceView{
			Address:    crypto.FormatAddress(m.Address),
			Owner:      crypto.FormatAddress(m.Owner),
			Currency:   crypto.FormatAddress(m.Currency),
			FeeAccount: crypto.FormatAddress(m.FeeAccount),
			FeeBps:     m.FeeBps,
			Bump:       m.Bump,
		}, nil
	})
}

func newListingView(ts *market.TradeState) listingView {
	return listingView{
		Address:      crypto.FormatAddress(ts.Address),
		Seller:       crypto.FormatAddress(ts.Seller),
		Price:        ts.Price,
		Asset:        crypto.FormatAddress(ts.Asset),
		Marketplace:  crypto.FormatAddress(ts.Marketplace),
		AssetAccount: crypto.FormatAddress(ts.AssetAccount),
		Currency:     crypto.FormatAddress(ts.Currency),
		Bump:         ts.Bump,
	}
}

func (a *api) getListing(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	a.read(w, r, func() (interface{}, error) {
		ts, err := a.cfg.Market.TradeState(addr)
		if err != nil {
			return nil, err
		}
		return newListingView(ts), nil
	})
}

func (a *api) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	a.read(w, r, func() (interface{}, error) {
		acct, err := a.cfg.Tokens.Account(addr)
		if err != nil {
			return nil, err
		}
		view := accountView{
			Address: crypto.FormatAddress(acct.Address),
			Mint:    crypto.FormatAddress(acct.Mint),
			Owner:   crypto.FormatAddress(acct.Owner),
			Amount:  acct.Amount,
		}
		if acct.HasDelegate() {
			view.Delegate = crypto.FormatAddress(acct.Delegate)
			view.DelegatedAmount = acct.DelegatedAmount
		}
		return view, nil
	})
}

func (a *api) getMint(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	a.read(w, r, func() (interface{}, error) {
		mint, err := a.cfg.Tokens.Mint(addr)
		if err != nil {
			return nil, err
		}
		return mintView{
			Address:       crypto.FormatAddress(mint.Address),
			Decimals:      mint.Decimals,
			Supply:        mint.Supply,
			MintAuthority: crypto.FormatAddress(mint.MintAuthority),
		}, nil
	})
}

func (a *api) getMetadata(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Metadata == nil {
		writeError(w, r, http.StatusServiceUnavailable, "MetadataUnavailable", nil)
		return
	}
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	a.read(w, r, func() (interface{}, error) {
		md, err := a.cfg.Metadata.Get(mint)
		if err != nil {
			return nil, err
		}
		view := metadataView{
			Address:              crypto.FormatAddress(md.Address),
			Mint:                 crypto.FormatAddress(md.Mint),
			UpdateAuthority:      crypto.FormatAddress(md.UpdateAuthority),
			Name:                 md.Data.Name,
			Symbol:               md.Data.Symbol,
			URI:                  md.Data.URI,
			SellerFeeBasisPoints: md.Data.SellerFeeBasisPoints,
			Creators:             make([]creatorView, 0, len(md.Data.Creators)),
			ContentHash:          fmt.Sprintf("0x%x", md.ContentHash),
			PrimarySaleHappened:  md.PrimarySaleHappened,
			IsMutable:            md.IsMutable,
		}
		for _, c := range md.Data.Creators {
			view.Creators = append(view.Creators, creatorView{Address: crypto.FormatAddress(c.Address), Verified: c.Verified, Share: c.Share})
		}
		return view, nil
	})
}

func (a *api) queryListings(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Index == nil {
		writeError(w, r, http.StatusServiceUnavailable, "IndexUnavailable", errors.New("listing index is not configured"))
		return
	}
	q := r.URL.Query()
	filter := indexer.Filter{Status: indexer.ListingStatus(strings.ToUpper(q.Get("status")))}
	for param, dst := range map[string]*string{"seller": &filter.Seller, "marketplace": &filter.Marketplace} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			writeBadRequest(w, r, fmt.Errorf("%s: %w", param, err))
			return
		}
		*dst = crypto.FormatAddress(addr)
	}
	switch filter.Status {
	case "", indexer.StatusOpen, indexer.StatusSold:
	default:
		writeBadRequest(w, r, fmt.Errorf("status must be open or sold"))
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeBadRequest(w, r, fmt.Errorf("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}
	rows, err := a.cfg.Index.Listings(r.Context(), filter)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": rows})
}

// derive computes protocol addresses from query parameters without touching
// state.
func (a *api) derive(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	q := r.URL.Query()
	addrs := map[string][20]byte{}
	need := func(names ...string) bool {
		for _, name := range names {
			addr, err := crypto.ParseAddress(q.Get(name))
			if err != nil {
				writeBadRequest(w, r, fmt.Errorf("%s: %w", name, err))
				return false
			}
			addrs[name] = addr
		}
		return true
	}

	var (
		addr [20]byte
		bump uint8
		err  error
	)
	switch kind {
	case "custodian":
		addr, bump, err = market.CustodianAddress()
	case "marketplace":
		if !need("owner", "currency") {
			return
		}
		addr, bump, err = market.MarketplaceAddress(addrs["owner"], addrs["currency"])
	case "fee":
		if !need("owner", "currency") {
			return
		}
		addr, bump, err = market.FeeAccountAddress(addrs["owner"], addrs["currency"])
	case "listing":
		if !need("seller", "asset", "marketplace", "assetAccount", "currency") {
			return
		}
		price, perr := strconv.ParseUint(q.Get("price"), 10, 64)
		if perr != nil {
			writeBadRequest(w, r, fmt.Errorf("price: %w", perr))
			return
		}
		addr, bump, err = market.TradeStateAddress(market.ListingKey{
			Seller:       addrs["seller"],
			Price:        price,
			Asset:        addrs["asset"],
			Marketplace:  addrs["marketplace"],
			AssetAccount: addrs["assetAccount"],
			Currency:     addrs["currency"],
		})
	case "associated":
		if !need("owner", "mint") {
			return
		}
		addr, err = token.AssociatedAddress(addrs["owner"], addrs["mint"])
	case "metadata":
		if !need("mint") {
			return
		}
		addr, bump, err = metadata.MetadataAddress(addrs["mint"])
	default:
		writeError(w, r, http.StatusNotFound, "UnknownKind", fmt.Errorf("unknown derivation %q", kind))
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, derivedView{Kind: kind, Address: crypto.FormatAddress(addr), Bump: bump})
}
