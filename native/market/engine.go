package market

import (
	"errors"
	"fmt"

	"nftmarket/core/ledger"
	"nftmarket/crypto"
	"nftmarket/native/fees"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

var (
	errNilState  = errors.New("market engine: state not configured")
	errNilTokens = errors.New("market engine: token service not configured")
)

var (
	marketplacePrefix = []byte("market/marketplace/")
	tradeStatePrefix  = []byte("market/listing/")
)

func marketplaceKey(addr [20]byte) []byte {
	return append(append([]byte(nil), marketplacePrefix...), addr[:]...)
}

func tradeStateKey(addr [20]byte) []byte {
	return append(append([]byte(nil), tradeStatePrefix...), addr[:]...)
}

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// tokenService is the transfer and delegation service the marketplace relies
// on. It enforces ownership, delegation limits and authority proofs.
type tokenService interface {
	Mint(addr [20]byte) (*token.Mint, error)
	Account(addr [20]byte) (*token.Account, error)
	InitializeAccount(inv ledger.Invocation, addr, mint, owner [20]byte) (*token.Account, error)
	Approve(inv ledger.Invocation, account, delegate [20]byte, amount uint64) error
	Transfer(inv ledger.Invocation, p token.TransferParams, proofs ...crypto.DerivedSigner) error
}

// metadataService is the registry the marketplace forwards metadata
// instructions to.
type metadataService interface {
	Create(inv ledger.Invocation, p metadata.CreateParams) (*metadata.Metadata, error)
	CreateMasterEdition(inv ledger.Invocation, mint [20]byte, hasMax bool, maxSupply uint64) (*metadata.MasterEdition, error)
	Update(inv ledger.Invocation, p metadata.UpdateParams) (*metadata.Metadata, error)
}

// Engine implements marketplace initialization, listing, sale execution and
// fee withdrawal. It holds no locks: every call runs inside one ledger
// transaction, and the ledger serializes transactions and commits or
// discards their writes as a unit.
type Engine struct {
	state         engineState
	tokens        tokenService
	metadata      metadataService
	custodian     [20]byte
	custodianBump uint8
}

// NewEngine creates a market engine bound to the token service and metadata
// registry. Callers bind state via SetState.
func NewEngine(tokens tokenService, registry metadataService) (*Engine, error) {
	if tokens == nil {
		return nil, errNilTokens
	}
	custodian, bump, err := CustodianAddress()
	if err != nil {
		return nil, fmt.Errorf("market engine: derive custodian: %w", err)
	}
	return &Engine{tokens: tokens, metadata: registry, custodian: custodian, custodianBump: bump}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// Custodian returns the protocol authority that listed assets are delegated
// to.
func (e *Engine) Custodian() [20]byte { return e.custodian }

// Marketplace loads a marketplace snapshot.
func (e *Engine) Marketplace(addr [20]byte) (*Marketplace, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var m Marketplace
	ok, err := e.state.KVGet(marketplaceKey(addr), &m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMarketplaceNotFound
	}
	return &m, nil
}

// TradeState loads an open listing.
func (e *Engine) TradeState(addr [20]byte) (*TradeState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var t TradeState
	ok, err := e.state.KVGet(tradeStateKey(addr), &t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingNotFound
	}
	return &t, nil
}

// InitMarketplace creates the marketplace record for (owner, currency) and
// its fee account. The owner must co-sign.
func (e *Engine) InitMarketplace(inv ledger.Invocation, p InitParams) (*Marketplace, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !inv.IsSigner(p.Owner) {
		return nil, ErrUnauthorized
	}
	if err := fees.ValidateBps(p.FeeBps); err != nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFeeRate, p.FeeBps)
	}
	if _, err := e.tokens.Mint(p.Currency); err != nil {
		return nil, fmt.Errorf("market: currency: %w", err)
	}
	addr, bump, err := MarketplaceAddress(p.Owner, p.Currency)
	if err != nil {
		return nil, err
	}
	exists, err := e.state.KVGet(marketplaceKey(addr), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMarketplaceExists
	}
	feeAccount, feeBump, err := FeeAccountAddress(p.Owner, p.Currency)
	if err != nil {
		return nil, err
	}
	if _, err := e.tokens.InitializeAccount(inv, feeAccount, p.Currency, p.Owner); err != nil {
		return nil, fmt.Errorf("market: fee account: %w", err)
	}
	m := &Marketplace{
		Address:    addr,
		Currency:   p.Currency,
		FeeAccount: feeAccount,
		FeeBps:     p.FeeBps,
		Owner:      p.Owner,
		Bump:       bump,
		FeeBump:    feeBump,
	}
	if err := e.state.KVPut(marketplaceKey(addr), m); err != nil {
		return nil, err
	}
	inv.Emit(MarketplaceInitialized{Marketplace: *m})
	return m.Clone(), nil
}

// List creates the trade state for the listing tuple and delegates exactly
// one unit of the asset account to the custodian. No value moves.
func (e *Engine) List(inv ledger.Invocation, p ListParams) (*TradeState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !inv.IsSigner(p.Seller) {
		return nil, ErrUnauthorized
	}
	if p.Price == 0 {
		return nil, ErrInvalidPrice
	}
	market, err := e.Marketplace(p.Marketplace)
	if err != nil {
		return nil, err
	}
	if market.Currency != p.Currency {
		return nil, ErrCurrencyMismatch
	}
	asset, err := e.tokens.Mint(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("market: asset: %w", err)
	}
	if !asset.Unique() {
		return nil, ErrAssetNotUnique
	}
	custody, err := e.tokens.Account(p.AssetAccount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetAccountMismatch, err)
	}
	if custody.Mint != p.Asset {
		return nil, ErrAssetAccountMismatch
	}
	if custody.Owner != p.Seller {
		return nil, fmt.Errorf("%w: asset account not owned by seller", ErrTransferFailure)
	}
	if custody.Amount < 1 {
		return nil, fmt.Errorf("%w: asset account holds no units", ErrTransferFailure)
	}

	addr, bump, err := TradeStateAddress(p.key())
	if err != nil {
		return nil, err
	}
	exists, err := e.state.KVGet(tradeStateKey(addr), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateListing
	}
	ts := &TradeState{
		Address:      addr,
		Seller:       p.Seller,
		Bump:         bump,
		Price:        p.Price,
		Asset:        p.Asset,
		Marketplace:  p.Marketplace,
		AssetAccount: p.AssetAccount,
		Currency:     p.Currency,
	}
	if err := e.state.KVPut(tradeStateKey(addr), ts); err != nil {
		return nil, err
	}
	if err := e.tokens.Approve(inv, p.AssetAccount, e.custodian, 1); err != nil {
		return nil, fmt.Errorf("market: delegate asset: %w", err)
	}
	inv.Emit(ListingCreated{TradeState: *ts})
	return ts.Clone(), nil
}

// validateSale checks every caller-supplied reference against the stored
// trade state, in a fixed order, before any value moves.
func validateSale(ts *TradeState, p SaleParams) error {
	switch {
	case p.Amount != ts.Price:
		return ErrPriceMismatch
	case p.Seller != ts.Seller:
		return ErrSellerMismatch
	case p.Asset != ts.Asset:
		return ErrAssetMismatch
	case p.Marketplace != ts.Marketplace:
		return ErrMarketMismatch
	case p.AssetAccount != ts.AssetAccount:
		return ErrAssetAccountMismatch
	case p.Currency != ts.Currency:
		return ErrCurrencyMismatch
	}
	return nil
}

// ExecuteSale consumes a listing: it validates the supplied references,
// splits the price into fee and net, and performs the asset, net and fee
// transfers. Any failure aborts the whole transaction.
func (e *Engine) ExecuteSale(inv ledger.Invocation, p SaleParams) (*SaleExecuted, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !inv.IsSigner(p.Buyer) {
		return nil, ErrUnauthorized
	}
	ts, err := e.TradeState(p.TradeState)
	if err != nil {
		return nil, err
	}
	if err := validateSale(ts, p); err != nil {
		return nil, err
	}
	market, err := e.Marketplace(ts.Marketplace)
	if err != nil {
		return nil, err
	}
	if p.FeeAccount != market.FeeAccount {
		return nil, ErrUnauthorizedFeeAccount
	}
	proceeds, err := e.tokens.Account(p.SellerCurrencyAccount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProceedsAccountMismatch, err)
	}
	if proceeds.Owner != ts.Seller || proceeds.Mint != ts.Currency {
		return nil, ErrProceedsAccountMismatch
	}
	fee, net, err := fees.Split(p.Amount, market.FeeBps)
	if err != nil {
		return nil, err
	}

	// Consumed listings are removed so a second sale finds nothing.
	if err := e.state.KVDelete(tradeStateKey(ts.Address)); err != nil {
		return nil, err
	}

	if err := e.tokens.Transfer(inv, token.TransferParams{
		Source:      ts.AssetAccount,
		Destination: p.BuyerAssetAccount,
		Authority:   e.custodian,
		Amount:      1,
	}, custodianProof(e.custodianBump)); err != nil {
		return nil, fmt.Errorf("%w: asset leg: %w", ErrTransferFailure, err)
	}
	if net > 0 {
		if err := e.tokens.Transfer(inv, token.TransferParams{
			Source:      p.BuyerCurrencyAccount,
			Destination: p.SellerCurrencyAccount,
			Authority:   p.Buyer,
			Amount:      net,
		}); err != nil {
			return nil, fmt.Errorf("%w: payment leg: %w", ErrTransferFailure, err)
		}
	}
	if fee > 0 {
		if err := e.tokens.Transfer(inv, token.TransferParams{
			Source:      p.BuyerCurrencyAccount,
			Destination: market.FeeAccount,
			Authority:   p.Buyer,
			Amount:      fee,
		}); err != nil {
			return nil, fmt.Errorf("%w: fee leg: %w", ErrTransferFailure, err)
		}
	}

	sale := &SaleExecuted{
		TradeState:        *ts,
		Buyer:             p.Buyer,
		BuyerAssetAccount: p.BuyerAssetAccount,
		Fee:               fee,
		Net:               net,
	}
	inv.Emit(*sale)
	return sale, nil
}

// WithdrawFees moves amount out of the marketplace fee account. Only the
// marketplace owner may withdraw.
func (e *Engine) WithdrawFees(inv ledger.Invocation, p WithdrawParams) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !inv.IsSigner(p.Owner) {
		return ErrUnauthorized
	}
	market, err := e.Marketplace(p.Marketplace)
	if err != nil {
		return err
	}
	if market.Owner != p.Owner {
		return ErrUnauthorized
	}
	if err := e.tokens.Transfer(inv, token.TransferParams{
		Source:      market.FeeAccount,
		Destination: p.Destination,
		Authority:   p.Owner,
		Amount:      p.Amount,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailure, err)
	}
	inv.Emit(FeesWithdrawn{Marketplace: market.Address, Owner: p.Owner, Destination: p.Destination, Amount: p.Amount})
	return nil
}
