package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"nftmarket/crypto"
	"nftmarket/native/market"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

type listingDTO struct {
	Address      string `json:"address"`
	Seller       string `json:"seller"`
	Price        uint64 `json:"price"`
	Asset        string `json:"asset"`
	Marketplace  string `json:"marketplace"`
	AssetAccount string `json:"assetAccount"`
	Currency     string `json:"currency"`
	Bump         uint8  `json:"bump"`
}

type marketplaceDTO struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	Currency   string `json:"currency"`
	FeeAccount string `json:"feeAccount"`
	FeeBps     uint16 `json:"feeBps"`
}

func runListing(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("listing", stderr)
	server := fs.String("server", "", "marketd base URL")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		return printError(stderr, "expected one trade state address")
	}
	addr, err := crypto.ParseAddress(fs.Arg(0))
	if err != nil {
		return printError(stderr, "%v", err)
	}
	var ts listingDTO
	if err := newClient(*server).get("/v1/listings/"+crypto.FormatAddress(addr), &ts); err != nil {
		return printError(stderr, "%v", err)
	}
	if err := printJSON(stdout, ts); err != nil {
		return printError(stderr, "%v", err)
	}
	return 0
}

func runListings(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("listings", stderr)
	server := fs.String("server", "", "marketd base URL")
	var seller, marketAddr addressFlag
	fs.Var(&seller, "seller", "filter by seller")
	fs.Var(&marketAddr, "marketplace", "filter by marketplace")
	status := fs.String("status", "", "open or sold")
	limit := fs.Int("limit", 0, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	query := url.Values{}
	if seller.set {
		query.Set("seller", seller.String())
	}
	if marketAddr.set {
		query.Set("marketplace", marketAddr.String())
	}
	if *status != "" {
		query.Set("status", *status)
	}
	if *limit > 0 {
		query.Set("limit", strconv.Itoa(*limit))
	}
	var out map[string]interface{}
	if err := newClient(*server).get("/v1/listings?"+query.Encode(), &out); err != nil {
		return printError(stderr, "%v", err)
	}
	if err := printJSON(stdout, out); err != nil {
		return printError(stderr, "%v", err)
	}
	return 0
}

// runDerive computes protocol addresses locally.
func runDerive(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return printError(stderr, "derive requires a kind: custodian, marketplace, fee, listing, associated or metadata")
	}
	kind := args[0]
	fs := newFlagSet("derive "+kind, stderr)
	var owner, currency, seller, asset, marketAddr, assetAcc, mint addressFlag
	fs.Var(&owner, "owner", "owner address")
	fs.Var(&currency, "currency", "currency mint")
	fs.Var(&seller, "seller", "seller address")
	fs.Var(&asset, "asset", "asset mint")
	fs.Var(&marketAddr, "marketplace", "marketplace address")
	fs.Var(&assetAcc, "asset-account", "asset account")
	fs.Var(&mint, "mint", "mint address")
	price := fs.Uint64("price", 0, "listing price")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	var (
		addr [20]byte
		bump uint8
		err  error
	)
	switch kind {
	case "custodian":
		addr, bump, err = market.CustodianAddress()
	case "marketplace", "fee":
		if err := requireAddresses(map[string]*addressFlag{"owner": &owner, "currency": &currency}); err != nil {
			return printError(stderr, "%v", err)
		}
		if kind == "marketplace" {
			addr, bump, err = market.MarketplaceAddress(owner.value, currency.value)
		} else {
			addr, bump, err = market.FeeAccountAddress(owner.value, currency.value)
		}
	case "listing":
		if err := requireAddresses(map[string]*addressFlag{"seller": &seller, "asset": &asset, "marketplace": &marketAddr, "asset-account": &assetAcc, "currency": &currency}); err != nil {
			return printError(stderr, "%v", err)
		}
		addr, bump, err = market.TradeStateAddress(market.ListingKey{
			Seller:       seller.value,
			Price:        *price,
			Asset:        asset.value,
			Marketplace:  marketAddr.value,
			AssetAccount: assetAcc.value,
			Currency:     currency.value,
		})
	case "associated":
		if err := requireAddresses(map[string]*addressFlag{"owner": &owner, "mint": &mint}); err != nil {
			return printError(stderr, "%v", err)
		}
		addr, err = token.AssociatedAddress(owner.value, mint.value)
	case "metadata":
		if err := requireAddresses(map[string]*addressFlag{"mint": &mint}); err != nil {
			return printError(stderr, "%v", err)
		}
		addr, bump, err = metadata.MetadataAddress(mint.value)
	default:
		return printError(stderr, "unknown derivation %q", kind)
	}
	if err != nil {
		return printError(stderr, "%v", err)
	}
	fmt.Fprintf(stdout, "%s bump=%d\n", crypto.FormatAddress(addr), bump)
	return 0
}
