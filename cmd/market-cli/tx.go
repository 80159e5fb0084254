package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/market"
	"nftmarket/native/token"
)

var cliNow = time.Now

// txFlags are shared by every signing command.
type txFlags struct {
	key    string
	server string
	nonce  uint64
}

func (f *txFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.key, "key", defaultKeystore, "keystore file of the signer")
	fs.StringVar(&f.server, "server", "", "marketd base URL")
	fs.Uint64Var(&f.nonce, "nonce", 0, "transaction nonce (defaults to the current time)")
}

// addressFlag parses a bech32 or 0x address.
type addressFlag struct {
	set   bool
	value [20]byte
}

func (a *addressFlag) String() string {
	if !a.set {
		return ""
	}
	return crypto.FormatAddress(a.value)
}

func (a *addressFlag) Set(raw string) error {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return err
	}
	a.value, a.set = addr, true
	return nil
}

func requireAddresses(flags map[string]*addressFlag) error {
	for name, f := range flags {
		if !f.set {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}

// send signs and submits one transaction and prints the receipt.
func (f *txFlags) send(stdout, stderr io.Writer, key *crypto.PrivateKey, txType types.TxType, payload interface{}) int {
	encoded, err := types.EncodePayload(payload)
	if err != nil {
		return printError(stderr, "encode payload: %v", err)
	}
	nonce := f.nonce
	if nonce == 0 {
		nonce = uint64(cliNow().UnixNano())
	}
	tx := &types.Transaction{Type: txType, Nonce: nonce, Payload: encoded}
	if err := tx.Sign(key); err != nil {
		return printError(stderr, "sign: %v", err)
	}
	receipt, err := newClient(f.server).submit(tx)
	if err != nil {
		return printError(stderr, "%s rejected: %v", txType, err)
	}
	if err := printJSON(stdout, receipt); err != nil {
		return printError(stderr, "%v", err)
	}
	return 0
}

func runInitMarket(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("init-market", stderr)
	var (
		common   txFlags
		currency addressFlag
	)
	common.register(fs)
	fs.Var(&currency, "currency", "currency mint address")
	feeBps := fs.Uint("fee-bps", 0, "marketplace fee in basis points")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireAddresses(map[string]*addressFlag{"currency": &currency}); err != nil {
		return printError(stderr, "%v", err)
	}
	if *feeBps > 10_000 {
		return printError(stderr, "--fee-bps must be <= 10000")
	}
	key, err := loadKey(common.key)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	params := market.InitParams{
		Owner:    key.PubKey().Address().Array(),
		Currency: currency.value,
		FeeBps:   uint16(*feeBps),
	}
	return common.send(stdout, stderr, key, types.TxTypeInitMarketplace, params)
}

func runList(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("list", stderr)
	var (
		common                                txFlags
		asset, currency, marketAddr, assetAcc addressFlag
	)
	common.register(fs)
	fs.Var(&asset, "asset", "asset mint address")
	fs.Var(&currency, "currency", "currency mint address")
	fs.Var(&marketAddr, "marketplace", "marketplace address")
	fs.Var(&assetAcc, "asset-account", "account holding the asset (defaults to the associated account)")
	price := fs.Uint64("price", 0, "asking price in currency base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireAddresses(map[string]*addressFlag{"asset": &asset, "currency": &currency, "marketplace": &marketAddr}); err != nil {
		return printError(stderr, "%v", err)
	}
	if *price == 0 {
		return printError(stderr, "--price must be positive")
	}
	key, err := loadKey(common.key)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	seller := key.PubKey().Address().Array()
	if !assetAcc.set {
		if assetAcc.value, err = token.AssociatedAddress(seller, asset.value); err != nil {
			return printError(stderr, "derive asset account: %v", err)
		}
	}
	params := market.ListParams{
		Seller:       seller,
		Asset:        asset.value,
		Marketplace:  marketAddr.value,
		AssetAccount: assetAcc.value,
		Currency:     currency.value,
		Price:        *price,
	}
	tradeState, _, err := market.TradeStateAddress(market.ListingKey{
		Seller:       params.Seller,
		Price:        params.Price,
		Asset:        params.Asset,
		Marketplace:  params.Marketplace,
		AssetAccount: params.AssetAccount,
		Currency:     params.Currency,
	})
	if err != nil {
		return printError(stderr, "derive listing: %v", err)
	}
	fmt.Fprintf(stderr, "listing %s\n", crypto.FormatAddress(tradeState))
	return common.send(stdout, stderr, key, types.TxTypeList, params)
}

func runBuy(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("buy", stderr)
	var (
		common                              txFlags
		listing, assetAcc, cashAcc, proceed addressFlag
	)
	common.register(fs)
	fs.Var(&listing, "listing", "trade state address of the listing")
	fs.Var(&assetAcc, "asset-account", "account receiving the asset (defaults to the associated account)")
	fs.Var(&cashAcc, "currency-account", "account paying the price (defaults to the associated account)")
	fs.Var(&proceed, "seller-account", "seller proceeds account (defaults to the seller's associated account)")
	amount := fs.Uint64("amount", 0, "price to pay (defaults to the listed price)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireAddresses(map[string]*addressFlag{"listing": &listing}); err != nil {
		return printError(stderr, "%v", err)
	}
	key, err := loadKey(common.key)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	client := newClient(common.server)
	var ts listingDTO
	if err := client.get("/v1/listings/"+crypto.FormatAddress(listing.value), &ts); err != nil {
		return printError(stderr, "load listing: %v", err)
	}
	var mp marketplaceDTO
	if err := client.get("/v1/marketplaces/"+ts.Marketplace, &mp); err != nil {
		return printError(stderr, "load marketplace: %v", err)
	}
	params, err := buildSale(key.PubKey().Address().Array(), listing.value, ts, mp)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	if *amount != 0 {
		params.Amount = *amount
	}
	if assetAcc.set {
		params.BuyerAssetAccount = assetAcc.value
	}
	if cashAcc.set {
		params.BuyerCurrencyAccount = cashAcc.value
	}
	if proceed.set {
		params.SellerCurrencyAccount = proceed.value
	}
	return common.send(stdout, stderr, key, types.TxTypeExecuteSale, params)
}

// buildSale fills a purchase from the published listing. Buyer and seller
// accounts default to the associated accounts.
func buildSale(buyer, tradeState [20]byte, ts listingDTO, mp marketplaceDTO) (market.SaleParams, error) {
	parsed := map[string][20]byte{}
	for name, raw := range map[string]string{
		"seller":       ts.Seller,
		"asset":        ts.Asset,
		"marketplace":  ts.Marketplace,
		"assetAccount": ts.AssetAccount,
		"currency":     ts.Currency,
		"feeAccount":   mp.FeeAccount,
	} {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return market.SaleParams{}, fmt.Errorf("listing %s: %w", name, err)
		}
		parsed[name] = addr
	}
	buyerAsset, err := token.AssociatedAddress(buyer, parsed["asset"])
	if err != nil {
		return market.SaleParams{}, err
	}
	buyerCash, err := token.AssociatedAddress(buyer, parsed["currency"])
	if err != nil {
		return market.SaleParams{}, err
	}
	sellerCash, err := token.AssociatedAddress(parsed["seller"], parsed["currency"])
	if err != nil {
		return market.SaleParams{}, err
	}
	return market.SaleParams{
		Buyer:                 buyer,
		TradeState:            tradeState,
		Seller:                parsed["seller"],
		BuyerAssetAccount:     buyerAsset,
		BuyerCurrencyAccount:  buyerCash,
		SellerCurrencyAccount: sellerCash,
		Asset:                 parsed["asset"],
		Marketplace:           parsed["marketplace"],
		AssetAccount:          parsed["assetAccount"],
		Currency:              parsed["currency"],
		FeeAccount:            parsed["feeAccount"],
		Amount:                ts.Price,
	}, nil
}

func runWithdraw(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("withdraw", stderr)
	var (
		common                txFlags
		currency, destination addressFlag
	)
	common.register(fs)
	fs.Var(&currency, "currency", "currency mint of the marketplace")
	fs.Var(&destination, "destination", "currency account receiving the fees")
	amount := fs.Uint64("amount", 0, "amount to withdraw")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireAddresses(map[string]*addressFlag{"currency": &currency, "destination": &destination}); err != nil {
		return printError(stderr, "%v", err)
	}
	if *amount == 0 {
		return printError(stderr, "--amount must be positive")
	}
	key, err := loadKey(common.key)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	owner := key.PubKey().Address().Array()
	marketAddr, _, err := market.MarketplaceAddress(owner, currency.value)
	if err != nil {
		return printError(stderr, "derive marketplace: %v", err)
	}
	params := market.WithdrawParams{
		Owner:       owner,
		Marketplace: marketAddr,
		Destination: destination.value,
		Amount:      *amount,
	}
	return common.send(stdout, stderr, key, types.TxTypeWithdrawFees, params)
}
