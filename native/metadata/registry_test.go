package metadata

import (
	"errors"
	"strings"
	"testing"

	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/native/token"
	"nftmarket/storage"
)

type testInvocation struct {
	signers map[[20]byte]bool
	events  []events.Event
}

func invokedBy(signers ...[20]byte) *testInvocation {
	inv := &testInvocation{signers: make(map[[20]byte]bool)}
	for _, s := range signers {
		inv.signers[s] = true
	}
	return inv
}

func (i *testInvocation) IsSigner(addr [20]byte) bool { return i.signers[addr] }
func (i *testInvocation) Emit(evt events.Event)      { i.events = append(i.events, evt) }

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type fixture struct {
	tokens    *token.Engine
	registry  *Registry
	authority [20]byte
	mint      [20]byte
}

func newFixture(t *testing.T, supply uint64) *fixture {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	tokens := token.NewEngine()
	tokens.SetState(st)
	registry := NewRegistry(tokens)
	registry.SetState(st)

	f := &fixture{tokens: tokens, registry: registry, authority: newTestAddress(0xA1), mint: newTestAddress(0xC1)}
	if err := tokens.PutMint(&token.Mint{Address: f.mint, Decimals: 0, Supply: supply, MintAuthority: f.authority}); err != nil {
		t.Fatalf("PutMint: %v", err)
	}
	return f
}

func sampleData(creator [20]byte) Data {
	return Data{
		Name:                 "Genesis #1",
		Symbol:               "GEN",
		URI:                  "https://example.invalid/1.json",
		SellerFeeBasisPoints: 500,
		Creators:             []Creator{{Address: creator, Verified: true, Share: 100}},
	}
}

func TestCreateMetadata(t *testing.T) {
	f := newFixture(t, 1)
	inv := invokedBy(f.authority)
	md, err := f.registry.Create(inv, CreateParams{
		Mint:            f.mint,
		MintAuthority:   f.authority,
		UpdateAuthority: f.authority,
		Data:            sampleData(f.authority),
		IsMutable:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want, _ := sampleData(f.authority).Hash()
	if md.ContentHash != want {
		t.Fatalf("unexpected content hash")
	}
	addr, _, _ := MetadataAddress(f.mint)
	if md.Address != addr {
		t.Fatalf("record not stored at derived address")
	}
	if len(inv.events) != 1 || inv.events[0].EventType() != EventTypeCreated {
		t.Fatalf("expected created event, got %v", inv.events)
	}

	if _, err := f.registry.Create(inv, CreateParams{Mint: f.mint, MintAuthority: f.authority, Data: sampleData(f.authority)}); !errors.Is(err, ErrMetadataExists) {
		t.Fatalf("expected ErrMetadataExists, got %v", err)
	}
}

func TestCreateMetadataAuthorization(t *testing.T) {
	f := newFixture(t, 1)
	params := CreateParams{Mint: f.mint, MintAuthority: f.authority, UpdateAuthority: f.authority, Data: sampleData(f.authority)}
	if _, err := f.registry.Create(invokedBy(), params); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	params.MintAuthority = newTestAddress(0x01)
	if _, err := f.registry.Create(invokedBy(params.MintAuthority), params); !errors.Is(err, ErrAuthorityMismatch) {
		t.Fatalf("expected ErrAuthorityMismatch, got %v", err)
	}
	params.MintAuthority = f.authority
	params.Data = sampleData(newTestAddress(0x02))
	if _, err := f.registry.Create(invokedBy(f.authority), params); !errors.Is(err, ErrCreatorNotSigned) {
		t.Fatalf("expected ErrCreatorNotSigned, got %v", err)
	}
}

func TestDataValidation(t *testing.T) {
	cases := map[string]Data{
		"long name":   {Name: strings.Repeat("n", MaxNameLength+1)},
		"long symbol": {Symbol: strings.Repeat("s", MaxSymbolLength+1)},
		"long uri":    {URI: strings.Repeat("u", MaxURILength+1)},
		"fee":         {SellerFeeBasisPoints: 10_001},
		"shares":      {Creators: []Creator{{Address: newTestAddress(1), Share: 60}}},
		"duplicate":   {Creators: []Creator{{Address: newTestAddress(1), Share: 50}, {Address: newTestAddress(1), Share: 50}}},
	}
	for name, data := range cases {
		if err := data.Validate(); !errors.Is(err, ErrInvalidData) {
			t.Fatalf("%s: expected ErrInvalidData, got %v", name, err)
		}
	}
}

func TestMasterEditionRequiresUniqueMint(t *testing.T) {
	f := newFixture(t, 2)
	inv := invokedBy(f.authority)
	if _, err := f.registry.Create(inv, CreateParams{Mint: f.mint, MintAuthority: f.authority, UpdateAuthority: f.authority, Data: sampleData(f.authority)}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.registry.CreateMasterEdition(inv, f.mint, true, 0); !errors.Is(err, ErrNotUniqueAsset) {
		t.Fatalf("expected ErrNotUniqueAsset, got %v", err)
	}

	unique := newFixture(t, 1)
	inv = invokedBy(unique.authority)
	if _, err := unique.registry.Create(inv, CreateParams{Mint: unique.mint, MintAuthority: unique.authority, UpdateAuthority: unique.authority, Data: sampleData(unique.authority)}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	edition, err := unique.registry.CreateMasterEdition(inv, unique.mint, true, 0)
	if err != nil {
		t.Fatalf("CreateMasterEdition: %v", err)
	}
	if !edition.HasMaxSupply || edition.MaxSupply != 0 {
		t.Fatalf("unexpected edition %+v", edition)
	}
	if _, err := unique.registry.CreateMasterEdition(inv, unique.mint, false, 0); !errors.Is(err, ErrEditionExists) {
		t.Fatalf("expected ErrEditionExists, got %v", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	f := newFixture(t, 1)
	inv := invokedBy(f.authority)
	if _, err := f.registry.Create(inv, CreateParams{Mint: f.mint, MintAuthority: f.authority, UpdateAuthority: f.authority, Data: sampleData(f.authority), IsMutable: false}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.registry.Update(invokedBy(), UpdateParams{Mint: f.mint, PrimarySaleHappened: true}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.registry.Update(inv, UpdateParams{Mint: f.mint, HasData: true, Data: sampleData(f.authority)}); !errors.Is(err, ErrImmutable) {
		t.Fatalf("expected ErrImmutable, got %v", err)
	}

	next := newTestAddress(0xA2)
	md, err := f.registry.Update(inv, UpdateParams{Mint: f.mint, PrimarySaleHappened: true, HasUpdateAuthority: true, NewUpdateAuthority: next})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if md.UpdateAuthority != next || !md.PrimarySaleHappened {
		t.Fatalf("unexpected record %+v", md)
	}
	md, err = f.registry.Update(invokedBy(next), UpdateParams{Mint: f.mint})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !md.PrimarySaleHappened {
		t.Fatalf("primary sale flag must stay set")
	}
}
