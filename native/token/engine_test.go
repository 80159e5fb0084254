package token

import (
	"errors"
	"testing"

	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/crypto"
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

func newTestEngine() *Engine {
	engine := NewEngine()
	engine.SetState(state.NewManager(storage.NewMemDB()))
	return engine
}

type fixture struct {
	engine    *Engine
	authority [20]byte
	owner     [20]byte
	mint      [20]byte
	source    [20]byte
	dest      [20]byte
}

func newFixture(t *testing.T, balance uint64) *fixture {
	t.Helper()
	f := &fixture{
		engine:    newTestEngine(),
		authority: newTestAddress(0xA1),
		owner:     newTestAddress(0xB1),
		mint:      newTestAddress(0xC1),
		source:    newTestAddress(0xD1),
		dest:      newTestAddress(0xD2),
	}
	inv := invokedBy(f.authority, f.owner)
	if _, err := f.engine.InitializeMint(inv, f.mint, 6, f.authority); err != nil {
		t.Fatalf("InitializeMint: %v", err)
	}
	if _, err := f.engine.InitializeAccount(inv, f.source, f.mint, f.owner); err != nil {
		t.Fatalf("InitializeAccount source: %v", err)
	}
	if _, err := f.engine.InitializeAccount(invokedBy(newTestAddress(0xB2)), f.dest, f.mint, newTestAddress(0xB2)); err != nil {
		t.Fatalf("InitializeAccount dest: %v", err)
	}
	if balance > 0 {
		if err := f.engine.MintTo(inv, f.mint, f.source, balance); err != nil {
			t.Fatalf("MintTo: %v", err)
		}
	}
	return f
}

func (f *fixture) balance(t *testing.T, addr [20]byte) uint64 {
	t.Helper()
	account, err := f.engine.Account(addr)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	return account.Amount
}

func TestInitializeMintRequiresAuthority(t *testing.T) {
	engine := newTestEngine()
	if _, err := engine.InitializeMint(invokedBy(), newTestAddress(1), 0, newTestAddress(2)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	inv := invokedBy(newTestAddress(2))
	if _, err := engine.InitializeMint(inv, newTestAddress(1), 0, newTestAddress(2)); err != nil {
		t.Fatalf("InitializeMint: %v", err)
	}
	if _, err := engine.InitializeMint(inv, newTestAddress(1), 0, newTestAddress(2)); !errors.Is(err, ErrMintExists) {
		t.Fatalf("expected ErrMintExists, got %v", err)
	}
	if _, err := engine.InitializeMint(inv, crypto.SystemAddress(9), 0, newTestAddress(2)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress for reserved mint, got %v", err)
	}
}

func TestInitializeAssociatedAccountWithoutOwnerSignature(t *testing.T) {
	f := newFixture(t, 0)
	owner := newTestAddress(0xE1)
	associated, err := AssociatedAddress(owner, f.mint)
	if err != nil {
		t.Fatalf("AssociatedAddress: %v", err)
	}
	if _, err := f.engine.InitializeAccount(invokedBy(), associated, f.mint, owner); err != nil {
		t.Fatalf("InitializeAccount associated: %v", err)
	}
	if _, err := f.engine.InitializeAccount(invokedBy(), newTestAddress(0xE2), f.mint, owner); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for arbitrary address, got %v", err)
	}
	if _, err := f.engine.InitializeAccount(invokedBy(owner), associated, f.mint, owner); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestMintToTracksSupply(t *testing.T) {
	f := newFixture(t, 500)
	mint, err := f.engine.Mint(f.mint)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if mint.Supply != 500 || f.balance(t, f.source) != 500 {
		t.Fatalf("unexpected supply %d balance %d", mint.Supply, f.balance(t, f.source))
	}
	if err := f.engine.MintTo(invokedBy(f.owner), f.mint, f.source, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.MintTo(invokedBy(f.authority), f.mint, f.source, ^uint64(0)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestTransferByOwner(t *testing.T) {
	f := newFixture(t, 1000)
	inv := invokedBy(f.owner)
	if err := f.engine.Transfer(inv, TransferParams{Source: f.source, Destination: f.dest, Authority: f.owner, Amount: 975}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if f.balance(t, f.source) != 25 || f.balance(t, f.dest) != 975 {
		t.Fatalf("unexpected balances %d/%d", f.balance(t, f.source), f.balance(t, f.dest))
	}
	if len(inv.events) != 1 || inv.events[0].EventType() != events.TypeTransfer {
		t.Fatalf("expected one transfer event, got %v", inv.events)
	}

	err := f.engine.Transfer(inv, TransferParams{Source: f.source, Destination: f.dest, Authority: f.owner, Amount: 26})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestTransferRequiresProvenAuthority(t *testing.T) {
	f := newFixture(t, 10)
	err := f.engine.Transfer(invokedBy(), TransferParams{Source: f.source, Destination: f.dest, Authority: f.owner, Amount: 1})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	stranger := newTestAddress(0xEE)
	err = f.engine.Transfer(invokedBy(stranger), TransferParams{Source: f.source, Destination: f.dest, Authority: stranger, Amount: 1})
	if !errors.Is(err, ErrOwnerMismatch) {
		t.Fatalf("expected ErrOwnerMismatch, got %v", err)
	}
}

func TestDelegatedTransferWithDerivedSigner(t *testing.T) {
	f := newFixture(t, 1)
	program := newTestAddress(0x77)
	seeds := [][]byte{[]byte("MARKETPLACE"), []byte("MARKETPLACE_SIGNER")}
	custodian, bump, err := crypto.FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if err := f.engine.Approve(invokedBy(f.owner), f.source, custodian, 1); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	params := TransferParams{Source: f.source, Destination: f.dest, Authority: custodian, Amount: 1}
	if err := f.engine.Transfer(invokedBy(), params); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without proof, got %v", err)
	}
	wrong := crypto.DerivedSigner{Program: program, Seeds: seeds, Bump: bump - 1}
	if err := f.engine.Transfer(invokedBy(), params, wrong); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with wrong bump, got %v", err)
	}

	proof := crypto.DerivedSigner{Program: program, Seeds: seeds, Bump: bump}
	inv := invokedBy()
	if err := f.engine.Transfer(inv, params, proof); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	source, err := f.engine.Account(f.source)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if source.Amount != 0 || source.HasDelegate() {
		t.Fatalf("expected drained account with cleared delegate, got %+v", source)
	}
	transfer, ok := inv.events[0].(events.Transfer)
	if !ok || !transfer.Delegated {
		t.Fatalf("expected delegated transfer event, got %#v", inv.events[0])
	}
}

func TestDelegateCannotExceedAllowance(t *testing.T) {
	f := newFixture(t, 10)
	delegate := newTestAddress(0x99)
	if err := f.engine.Approve(invokedBy(f.owner), f.source, delegate, 3); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	err := f.engine.Transfer(invokedBy(delegate), TransferParams{Source: f.source, Destination: f.dest, Authority: delegate, Amount: 4})
	if !errors.Is(err, ErrInsufficientDelegation) {
		t.Fatalf("expected ErrInsufficientDelegation, got %v", err)
	}
	if err := f.engine.Transfer(invokedBy(delegate), TransferParams{Source: f.source, Destination: f.dest, Authority: delegate, Amount: 2}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	source, _ := f.engine.Account(f.source)
	if source.DelegatedAmount != 1 || source.Delegate != delegate {
		t.Fatalf("expected remaining allowance 1, got %+v", source)
	}

	if err := f.engine.Revoke(invokedBy(f.owner), f.source); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	err = f.engine.Transfer(invokedBy(delegate), TransferParams{Source: f.source, Destination: f.dest, Authority: delegate, Amount: 1})
	if !errors.Is(err, ErrOwnerMismatch) {
		t.Fatalf("expected ErrOwnerMismatch after revoke, got %v", err)
	}
}

func TestTransferRejectsMintMismatch(t *testing.T) {
	f := newFixture(t, 10)
	otherMint := newTestAddress(0xC2)
	inv := invokedBy(f.authority, f.owner)
	if _, err := f.engine.InitializeMint(inv, otherMint, 0, f.authority); err != nil {
		t.Fatalf("InitializeMint: %v", err)
	}
	other := newTestAddress(0xD3)
	if _, err := f.engine.InitializeAccount(inv, other, otherMint, f.owner); err != nil {
		t.Fatalf("InitializeAccount: %v", err)
	}
	err := f.engine.Transfer(inv, TransferParams{Source: f.source, Destination: other, Authority: f.owner, Amount: 1})
	if !errors.Is(err, ErrMintMismatch) {
		t.Fatalf("expected ErrMintMismatch, got %v", err)
	}
}
