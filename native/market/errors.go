package market

import "errors"

var (
	ErrDuplicateListing       = errors.New("market: duplicate listing")
	ErrPriceMismatch          = errors.New("market: price mismatch")
	ErrSellerMismatch         = errors.New("market: seller mismatch")
	ErrAssetMismatch          = errors.New("market: asset mismatch")
	ErrMarketMismatch         = errors.New("market: marketplace mismatch")
	ErrAssetAccountMismatch   = errors.New("market: asset account mismatch")
	ErrCurrencyMismatch       = errors.New("market: currency mismatch")
	ErrUnauthorizedFeeAccount = errors.New("market: unauthorized fee account")
	ErrTransferFailure        = errors.New("market: transfer failure")

	ErrListingNotFound         = errors.New("market: listing not found")
	ErrMarketplaceExists       = errors.New("market: marketplace already initialized")
	ErrMarketplaceNotFound     = errors.New("market: marketplace not found")
	ErrAssetNotUnique          = errors.New("market: asset is not a unique token")
	ErrProceedsAccountMismatch = errors.New("market: proceeds account is not the seller's currency account")
	ErrInvalidPrice            = errors.New("market: price must be positive")
	ErrInvalidFeeRate          = errors.New("market: fee rate exceeds 10000 basis points")
	ErrUnauthorized            = errors.New("market: required signer missing")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrDuplicateListing, "DuplicateListing"},
	{ErrPriceMismatch, "PriceMismatch"},
	{ErrSellerMismatch, "SellerMismatch"},
	{ErrAssetMismatch, "AssetMismatch"},
	{ErrMarketMismatch, "MarketMismatch"},
	{ErrAssetAccountMismatch, "AssetAccountMismatch"},
	{ErrCurrencyMismatch, "CurrencyMismatch"},
	{ErrUnauthorizedFeeAccount, "UnauthorizedFeeAccount"},
	{ErrTransferFailure, "TransferFailure"},
	{ErrListingNotFound, "ListingNotFound"},
	{ErrMarketplaceExists, "MarketplaceExists"},
	{ErrMarketplaceNotFound, "MarketplaceNotFound"},
	{ErrAssetNotUnique, "AssetNotUnique"},
	{ErrProceedsAccountMismatch, "ProceedsAccountMismatch"},
	{ErrInvalidPrice, "InvalidPrice"},
	{ErrInvalidFeeRate, "InvalidFeeRate"},
	{ErrUnauthorized, "Unauthorized"},
}

// ErrorCode returns the stable name of a marketplace error, or "" when err is
// not one.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ""
}
