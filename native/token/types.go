package token

import (
	"errors"

	"nftmarket/crypto"
)

// ProgramID identifies the token program. Derived addresses owned by the
// token program (associated accounts) are computed under it.
var ProgramID = crypto.SystemAddress(1)

var (
	ErrMintExists             = errors.New("token: mint already exists")
	ErrMintNotFound           = errors.New("token: mint not found")
	ErrAccountExists          = errors.New("token: account already exists")
	ErrAccountNotFound        = errors.New("token: account not found")
	ErrMintMismatch           = errors.New("token: account mint mismatch")
	ErrInsufficientFunds      = errors.New("token: insufficient funds")
	ErrInsufficientDelegation = errors.New("token: amount exceeds delegated allowance")
	ErrUnauthorized           = errors.New("token: authority did not sign")
	ErrOwnerMismatch          = errors.New("token: authority is neither owner nor delegate")
	ErrOverflow               = errors.New("token: amount overflow")
	ErrInvalidAmount          = errors.New("token: amount must be positive")
	ErrInvalidAddress         = errors.New("token: address is zero or reserved")
)

// Mint describes a fungible or unique token type.
type Mint struct {
	Address       [20]byte
	Decimals      uint8
	Supply        uint64
	MintAuthority [20]byte
}

// Clone returns a copy of the mint.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Unique reports whether the mint describes a single indivisible asset.
func (m *Mint) Unique() bool {
	return m != nil && m.Decimals == 0 && m.Supply == 1
}

// Account holds a balance of one mint for one owner, plus at most one
// delegation.
type Account struct {
	Address         [20]byte
	Mint            [20]byte
	Owner           [20]byte
	Amount          uint64
	Delegate        [20]byte
	DelegatedAmount uint64
}

// Clone returns a copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// HasDelegate reports whether a delegation is active.
func (a *Account) HasDelegate() bool {
	return a != nil && a.Delegate != ([20]byte{})
}

func (a *Account) clearDelegate() {
	a.Delegate = [20]byte{}
	a.DelegatedAmount = 0
}

// TransferParams describes one token movement.
type TransferParams struct {
	Source      [20]byte
	Destination [20]byte
	Authority   [20]byte
	Amount      uint64
}
