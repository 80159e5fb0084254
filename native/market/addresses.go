package market

import "nftmarket/crypto"

// ProgramID identifies the marketplace program. Every marketplace-owned
// address is derived under it.
var ProgramID = crypto.SystemAddress(3)

var (
	SeedMarketplace = []byte("MARKETPLACE")
	SeedFee         = []byte("FEE")
	SeedListing     = []byte("MARKETPLACE_LISTING")
	SeedSigner      = []byte("MARKETPLACE_SIGNER")
)

// MarketplaceAddress derives the marketplace record address for (owner,
// currency).
func MarketplaceAddress(owner, currency [20]byte) ([20]byte, uint8, error) {
	return crypto.FindProgramAddress([][]byte{SeedMarketplace, owner[:], currency[:]}, ProgramID)
}

// FeeAccountAddress derives the fee token account address for (owner,
// currency).
func FeeAccountAddress(owner, currency [20]byte) ([20]byte, uint8, error) {
	return crypto.FindProgramAddress([][]byte{SeedFee, owner[:], currency[:]}, ProgramID)
}

// ListingKey is the tuple that identifies one listing.
type ListingKey struct {
	Seller       [20]byte
	Price        uint64
	Asset        [20]byte
	Marketplace  [20]byte
	AssetAccount [20]byte
	Currency     [20]byte
}

// TradeStateAddress derives the trade-state address for the listing tuple.
// The price is encoded as 8 big-endian bytes so listings that differ only in
// price never collide.
func TradeStateAddress(k ListingKey) ([20]byte, uint8, error) {
	return crypto.FindProgramAddress([][]byte{
		SeedListing,
		k.Seller[:],
		crypto.Uint64Seed(k.Price),
		k.Asset[:],
		k.Marketplace[:],
		k.AssetAccount[:],
		k.Currency[:],
	}, ProgramID)
}

// CustodianAddress derives the protocol-owned authority that sellers delegate
// their listed asset to.
func CustodianAddress() ([20]byte, uint8, error) {
	return crypto.FindProgramAddress(custodianSeeds(), ProgramID)
}

func custodianSeeds() [][]byte {
	return [][]byte{SeedMarketplace, SeedSigner}
}

// custodianProof reconstructs the custodian's authority from its derivation
// inputs. Only this package presents it.
func custodianProof(bump uint8) crypto.DerivedSigner {
	return crypto.DerivedSigner{Program: ProgramID, Seeds: custodianSeeds(), Bump: bump}
}
