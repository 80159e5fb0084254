package metadata

import (
	"errors"

	"nftmarket/core/ledger"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/token"
)

var errNilState = errors.New("metadata registry: state not configured")

const (
	EventTypeCreated       = "metadata.created"
	EventTypeEditionCreate = "metadata.edition.created"
	EventTypeUpdated       = "metadata.updated"
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type mintSource interface {
	Mint(addr [20]byte) (*token.Mint, error)
}

type metadataEvent struct {
	evt *types.Event
}

func (e metadataEvent) EventType() string { return e.evt.Type }
func (e metadataEvent) Event() *types.Event { return e.evt }

func newEvent(eventType string, md *Metadata) metadataEvent {
	return metadataEvent{evt: &types.Event{Type: eventType, Attributes: map[string]string{
		"address":         crypto.FormatAddress(md.Address),
		"mint":            crypto.FormatAddress(md.Mint),
		"updateAuthority": crypto.FormatAddress(md.UpdateAuthority),
		"name":            md.Data.Name,
		"uri":             md.Data.URI,
	}}}
}

func recordKey(addr [20]byte) []byte {
	return append([]byte("metadata/record/"), addr[:]...)
}

func editionKey(addr [20]byte) []byte {
	return append([]byte("metadata/edition/"), addr[:]...)
}

// CreateParams describes a new metadata record.
type CreateParams struct {
	Mint            [20]byte
	MintAuthority   [20]byte
	UpdateAuthority [20]byte
	Data            Data
	IsMutable       bool
	HasCollection   bool
	Collection      [20]byte
}

// UpdateParams carries optional changes; each Has flag enables one change.
type UpdateParams struct {
	Mint                [20]byte
	HasData             bool
	Data                Data
	HasUpdateAuthority  bool
	NewUpdateAuthority  [20]byte
	PrimarySaleHappened bool
	// MakeImmutable freezes the record. A frozen record never becomes
	// mutable again.
	MakeImmutable       bool
}

// Registry stores metadata records and master editions.
type Registry struct {
	state registryState
	mints mintSource
}

// NewRegistry creates a registry that resolves mints through mints.
func NewRegistry(mints mintSource) *Registry {
	return &Registry{mints: mints}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// Get loads the metadata record for mint.
func (r *Registry) Get(mint [20]byte) (*Metadata, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	addr, _, err := MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	var md Metadata
	ok, err := r.state.KVGet(recordKey(addr), &md)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetadataNotFound
	}
	return &md, nil
}

// Create registers metadata for a mint. The mint authority must co-sign and
// every creator flagged as verified must co-sign.
func (r *Registry) Create(inv ledger.Invocation, p CreateParams) (*Metadata, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	mint, err := r.mints.Mint(p.Mint)
	if err != nil {
		return nil, err
	}
	if mint.MintAuthority != p.MintAuthority {
		return nil, ErrAuthorityMismatch
	}
	if !inv.IsSigner(p.MintAuthority) {
		return nil, ErrUnauthorized
	}
	if err := p.Data.Validate(); err != nil {
		return nil, err
	}
	for _, creator := range p.Data.Creators {
		if creator.Verified && !inv.IsSigner(creator.Address) {
			return nil, ErrCreatorNotSigned
		}
	}
	addr, _, err := MetadataAddress(p.Mint)
	if err != nil {
		return nil, err
	}
	exists, err := r.state.KVGet(recordKey(addr), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMetadataExists
	}
	hash, err := p.Data.Hash()
	if err != nil {
		return nil, err
	}
	md := &Metadata{
		Address:         addr,
		Mint:            p.Mint,
		UpdateAuthority: p.UpdateAuthority,
		Data:            p.Data.clone(),
		ContentHash:     hash,
		IsMutable:       p.IsMutable,
		HasCollection:   p.HasCollection,
		Collection:      p.Collection,
	}
	if err := r.state.KVPut(recordKey(addr), md); err != nil {
		return nil, err
	}
	inv.Emit(newEvent(EventTypeCreated, md))
	return md.Clone(), nil
}

// CreateMasterEdition marks a unique mint as a master edition. Both the
// update authority and the mint authority must co-sign.
func (r *Registry) CreateMasterEdition(inv ledger.Invocation, mintAddr [20]byte, hasMax bool, maxSupply uint64) (*MasterEdition, error) {
	md, err := r.Get(mintAddr)
	if err != nil {
		return nil, err
	}
	mint, err := r.mints.Mint(mintAddr)
	if err != nil {
		return nil, err
	}
	if !inv.IsSigner(md.UpdateAuthority) || !inv.IsSigner(mint.MintAuthority) {
		return nil, ErrUnauthorized
	}
	if !mint.Unique() {
		return nil, ErrNotUniqueAsset
	}
	addr, _, err := EditionAddress(mintAddr)
	if err != nil {
		return nil, err
	}
	exists, err := r.state.KVGet(editionKey(addr), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEditionExists
	}
	edition := &MasterEdition{Address: addr, Mint: mintAddr, HasMaxSupply: hasMax, MaxSupply: maxSupply}
	if err := r.state.KVPut(editionKey(addr), edition); err != nil {
		return nil, err
	}
	inv.Emit(newEvent(EventTypeEditionCreate, md))
	return edition, nil
}

// Update applies the requested changes. The current update authority must
// co-sign; data changes require a mutable record.
func (r *Registry) Update(inv ledger.Invocation, p UpdateParams) (*Metadata, error) {
	md, err := r.Get(p.Mint)
	if err != nil {
		return nil, err
	}
	if !inv.IsSigner(md.UpdateAuthority) {
		return nil, ErrUnauthorized
	}
	if p.HasData {
		if !md.IsMutable {
			return nil, ErrImmutable
		}
		if err := p.Data.Validate(); err != nil {
			return nil, err
		}
		for _, creator := range p.Data.Creators {
			if creator.Verified && !inv.IsSigner(creator.Address) && !wasVerified(md.Data, creator.Address) {
				return nil, ErrCreatorNotSigned
			}
		}
		hash, err := p.Data.Hash()
		if err != nil {
			return nil, err
		}
		md.Data = p.Data.clone()
		md.ContentHash = hash
	}
	if p.HasUpdateAuthority {
		md.UpdateAuthority = p.NewUpdateAuthority
	}
	// The primary sale flag only ever goes from false to true.
	md.PrimarySaleHappened = md.PrimarySaleHappened || p.PrimarySaleHappened
	if p.MakeImmutable {
		md.IsMutable = false
	}
	if err := r.state.KVPut(recordKey(md.Address), md); err != nil {
		return nil, err
	}
	inv.Emit(newEvent(EventTypeUpdated, md))
	return md.Clone(), nil
}

func wasVerified(data Data, addr [20]byte) bool {
	for _, creator := range data.Creators {
		if creator.Address == addr && creator.Verified {
			return true
		}
	}
	return false
}
