package token

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"nftmarket/core/events"
	"nftmarket/core/ledger"
	"nftmarket/crypto"
)

var errNilState = errors.New("token engine: state not configured")

var (
	mintPrefix    = []byte("token/mint/")
	accountPrefix = []byte("token/account/")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

func mintKey(addr [20]byte) []byte    { return append(append([]byte(nil), mintPrefix...), addr[:]...) }
func accountKey(addr [20]byte) []byte { return append(append([]byte(nil), accountPrefix...), addr[:]...) }

// Engine implements mints, token accounts, delegation and transfers.
type Engine struct {
	state engineState
}

// NewEngine creates a token engine. Callers bind state via SetState.
func NewEngine() *Engine { return &Engine{} }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// AssociatedAddress returns the canonical token account address for owner and
// mint.
func AssociatedAddress(owner, mint [20]byte) ([20]byte, error) {
	addr, _, err := crypto.FindProgramAddress([][]byte{owner[:], mint[:]}, ProgramID)
	return addr, err
}

func validAddress(addr [20]byte) bool {
	return !crypto.IsReservedAddress(addr)
}

// Mint loads a mint.
func (e *Engine) Mint(addr [20]byte) (*Mint, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var mint Mint
	ok, err := e.state.KVGet(mintKey(addr), &mint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintNotFound
	}
	return &mint, nil
}

// Account loads a token account.
func (e *Engine) Account(addr [20]byte) (*Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var account Account
	ok, err := e.state.KVGet(accountKey(addr), &account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

// PutMint stores a mint without authority checks. Genesis only.
func (e *Engine) PutMint(mint *Mint) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if mint == nil || !validAddress(mint.Address) {
		return ErrInvalidAddress
	}
	return e.state.KVPut(mintKey(mint.Address), mint)
}

// PutAccount stores a token account without authority checks. Genesis only.
func (e *Engine) PutAccount(account *Account) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if account == nil || !validAddress(account.Address) {
		return ErrInvalidAddress
	}
	return e.state.KVPut(accountKey(account.Address), account)
}

func (e *Engine) exists(key []byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.KVGet(key, nil)
}

// InitializeMint creates a mint controlled by authority. The authority must
// co-sign.
func (e *Engine) InitializeMint(inv ledger.Invocation, addr [20]byte, decimals uint8, authority [20]byte) (*Mint, error) {
	if !validAddress(addr) || !validAddress(authority) {
		return nil, ErrInvalidAddress
	}
	if !inv.IsSigner(authority) {
		return nil, ErrUnauthorized
	}
	exists, err := e.exists(mintKey(addr))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMintExists
	}
	mint := &Mint{Address: addr, Decimals: decimals, MintAuthority: authority}
	if err := e.state.KVPut(mintKey(addr), mint); err != nil {
		return nil, err
	}
	return mint.Clone(), nil
}

// InitializeAccount creates an empty token account for owner holding mint.
// Anyone may create the owner's associated account; any other address
// requires the owner's co-signature.
func (e *Engine) InitializeAccount(inv ledger.Invocation, addr, mint, owner [20]byte) (*Account, error) {
	if !validAddress(addr) || !validAddress(owner) {
		return nil, ErrInvalidAddress
	}
	associated, err := AssociatedAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	if addr != associated && !inv.IsSigner(owner) {
		return nil, ErrUnauthorized
	}
	if _, err := e.Mint(mint); err != nil {
		return nil, err
	}
	exists, err := e.exists(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}
	account := &Account{Address: addr, Mint: mint, Owner: owner}
	if err := e.state.KVPut(accountKey(addr), account); err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// MintTo creates amount new units in destination. The mint authority must
// co-sign.
func (e *Engine) MintTo(inv ledger.Invocation, mintAddr, destination [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	mint, err := e.Mint(mintAddr)
	if err != nil {
		return err
	}
	if !inv.IsSigner(mint.MintAuthority) {
		return ErrUnauthorized
	}
	account, err := e.Account(destination)
	if err != nil {
		return err
	}
	if account.Mint != mintAddr {
		return ErrMintMismatch
	}
	supply, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(mint.Supply), uint256.NewInt(amount))
	if overflow || !supply.IsUint64() {
		return ErrOverflow
	}
	balance, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(account.Amount), uint256.NewInt(amount))
	if overflow || !balance.IsUint64() {
		return ErrOverflow
	}
	mint.Supply = supply.Uint64()
	account.Amount = balance.Uint64()
	if err := e.state.KVPut(mintKey(mintAddr), mint); err != nil {
		return err
	}
	if err := e.state.KVPut(accountKey(destination), account); err != nil {
		return err
	}
	inv.Emit(events.Mint{Mint: mintAddr, Destination: destination, Amount: amount, Supply: mint.Supply})
	return nil
}

// Approve grants delegate the right to move up to amount units out of the
// account, replacing any existing delegation. The owner must co-sign.
func (e *Engine) Approve(inv ledger.Invocation, accountAddr, delegate [20]byte, amount uint64) error {
	if !validAddress(delegate) {
		return ErrInvalidAddress
	}
	account, err := e.Account(accountAddr)
	if err != nil {
		return err
	}
	if !inv.IsSigner(account.Owner) {
		return ErrUnauthorized
	}
	account.Delegate = delegate
	account.DelegatedAmount = amount
	if err := e.state.KVPut(accountKey(accountAddr), account); err != nil {
		return err
	}
	inv.Emit(events.Approval{Account: accountAddr, Owner: account.Owner, Delegate: delegate, Amount: amount})
	return nil
}

// Revoke clears the account's delegation. The owner must co-sign.
func (e *Engine) Revoke(inv ledger.Invocation, accountAddr [20]byte) error {
	account, err := e.Account(accountAddr)
	if err != nil {
		return err
	}
	if !inv.IsSigner(account.Owner) {
		return ErrUnauthorized
	}
	account.clearDelegate()
	if err := e.state.KVPut(accountKey(accountAddr), account); err != nil {
		return err
	}
	inv.Emit(events.Revoke{Account: accountAddr, Owner: account.Owner})
	return nil
}

// proven reports whether the authority co-signed the invocation or one of the
// derivation proofs re-derives it. Proofs are supplied only by in-process
// programs; user-submitted transfers never carry any.
func proven(inv ledger.Invocation, authority [20]byte, proofs []crypto.DerivedSigner) bool {
	if inv.IsSigner(authority) {
		return true
	}
	for _, proof := range proofs {
		if proof.Proves(authority) {
			return true
		}
	}
	return false
}

// Transfer moves p.Amount units from p.Source to p.Destination. The authority
// must be the source owner, or its delegate acting within the delegated
// allowance, and must be proven by co-signature or derivation proof.
func (e *Engine) Transfer(inv ledger.Invocation, p TransferParams, proofs ...crypto.DerivedSigner) error {
	if p.Amount == 0 {
		return ErrInvalidAmount
	}
	source, err := e.Account(p.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	destination, err := e.Account(p.Destination)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if source.Mint != destination.Mint {
		return ErrMintMismatch
	}
	if !proven(inv, p.Authority, proofs) {
		return ErrUnauthorized
	}

	delegated := false
	switch {
	case p.Authority == source.Owner:
	case source.HasDelegate() && p.Authority == source.Delegate:
		if p.Amount > source.DelegatedAmount {
			return ErrInsufficientDelegation
		}
		delegated = true
	default:
		return ErrOwnerMismatch
	}
	if source.Amount < p.Amount {
		return ErrInsufficientFunds
	}

	if delegated {
		source.DelegatedAmount -= p.Amount
		if source.DelegatedAmount == 0 {
			source.clearDelegate()
		}
	}
	if p.Source == p.Destination {
		if err := e.state.KVPut(accountKey(p.Source), source); err != nil {
			return err
		}
	} else {
		balance, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(destination.Amount), uint256.NewInt(p.Amount))
		if overflow || !balance.IsUint64() {
			return ErrOverflow
		}
		source.Amount -= p.Amount
		destination.Amount = balance.Uint64()
		if err := e.state.KVPut(accountKey(p.Source), source); err != nil {
			return err
		}
		if err := e.state.KVPut(accountKey(p.Destination), destination); err != nil {
			return err
		}
	}
	inv.Emit(events.Transfer{
		Mint:        source.Mint,
		Source:      p.Source,
		Destination: p.Destination,
		Authority:   p.Authority,
		Amount:      p.Amount,
		Delegated:   delegated,
	})
	return nil
}
