package metadata

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"nftmarket/crypto"
)

// ProgramID identifies the metadata registry.
var ProgramID = crypto.SystemAddress(2)

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreators     = 5
)

var (
	ErrMetadataExists    = errors.New("metadata: record already exists")
	ErrMetadataNotFound  = errors.New("metadata: record not found")
	ErrEditionExists     = errors.New("metadata: master edition already exists")
	ErrUnauthorized      = errors.New("metadata: required authority did not sign")
	ErrAuthorityMismatch = errors.New("metadata: authority mismatch")
	ErrImmutable         = errors.New("metadata: record is immutable")
	ErrInvalidData       = errors.New("metadata: invalid data")
	ErrCreatorNotSigned  = errors.New("metadata: verified creator did not sign")
	ErrNotUniqueAsset    = errors.New("metadata: master edition requires a zero-decimal single-supply mint")
)

// Creator is one royalty recipient.
type Creator struct {
	Address  [20]byte
	Verified bool
	Share    uint8
}

// Data is the descriptive part of a metadata record.
type Data struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
}

// Validate checks field lengths and royalty shares.
func (d Data) Validate() error {
	if utf8.RuneCountInString(d.Name) > MaxNameLength {
		return fmt.Errorf("%w: name longer than %d", ErrInvalidData, MaxNameLength)
	}
	if utf8.RuneCountInString(d.Symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: symbol longer than %d", ErrInvalidData, MaxSymbolLength)
	}
	if len(d.URI) > MaxURILength {
		return fmt.Errorf("%w: uri longer than %d", ErrInvalidData, MaxURILength)
	}
	if d.SellerFeeBasisPoints > 10_000 {
		return fmt.Errorf("%w: seller fee above 10000 bps", ErrInvalidData)
	}
	if len(d.Creators) == 0 {
		return nil
	}
	if len(d.Creators) > MaxCreators {
		return fmt.Errorf("%w: more than %d creators", ErrInvalidData, MaxCreators)
	}
	seen := make(map[[20]byte]struct{}, len(d.Creators))
	total := 0
	for _, creator := range d.Creators {
		if _, dup := seen[creator.Address]; dup {
			return fmt.Errorf("%w: duplicate creator", ErrInvalidData)
		}
		seen[creator.Address] = struct{}{}
		total += int(creator.Share)
	}
	if total != 100 {
		return fmt.Errorf("%w: creator shares sum to %d", ErrInvalidData, total)
	}
	return nil
}

// Hash returns the blake3 digest of the RLP-encoded data.
func (d Data) Hash() ([32]byte, error) {
	encoded, err := rlp.EncodeToBytes(d)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(encoded), nil
}

func (d Data) clone() Data {
	out := d
	out.Creators = append([]Creator(nil), d.Creators...)
	return out
}

// Metadata describes one mint.
type Metadata struct {
	Address             [20]byte
	Mint                [20]byte
	UpdateAuthority     [20]byte
	Data                Data
	ContentHash         [32]byte
	PrimarySaleHappened bool
	IsMutable           bool
	HasCollection       bool
	Collection          [20]byte
	CollectionVerified  bool
}

// Clone returns a deep copy of the record.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Data = m.Data.clone()
	return &clone
}

// MasterEdition marks a mint as the original of a print series.
type MasterEdition struct {
	Address      [20]byte
	Mint         [20]byte
	Supply       uint64
	HasMaxSupply bool
	MaxSupply    uint64
}

// MetadataAddress derives the record address for mint.
func MetadataAddress(mint [20]byte) ([20]byte, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte("metadata"), ProgramID[:], mint[:]}, ProgramID)
}

// EditionAddress derives the master edition address for mint.
func EditionAddress(mint [20]byte) ([20]byte, uint8, error) {
	return crypto.FindProgramAddress([][]byte{[]byte("metadata"), ProgramID[:], mint[:], []byte("edition")}, ProgramID)
}
