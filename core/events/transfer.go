package events

import "nftmarket/core/types"

const (
	// TypeTransfer is emitted for every token movement between accounts.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an owner delegates an amount.
	TypeApproval = "token.approval"
	// TypeRevoke is emitted when a delegation is cleared.
	TypeRevoke = "token.revoke"
	// TypeMint is emitted when new supply is minted into an account.
	TypeMint = "token.mint"
)

type Transfer struct {
	Mint        [20]byte
	Source      [20]byte
	Destination [20]byte
	Authority   [20]byte
	Amount      uint64
	// Delegated is set when the authority acted under a delegation.
	Delegated bool
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"mint":        formatAddress(e.Mint),
		"source":      formatAddress(e.Source),
		"destination": formatAddress(e.Destination),
		"authority":   formatAddress(e.Authority),
		"amount":      formatAmount(e.Amount),
	}
	if e.Delegated {
		attrs["delegated"] = "true"
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Approval struct {
	Account  [20]byte
	Owner    [20]byte
	Delegate [20]byte
	Amount   uint64
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"account":  formatAddress(e.Account),
		"owner":    formatAddress(e.Owner),
		"delegate": formatAddress(e.Delegate),
		"amount":   formatAmount(e.Amount),
	}}
}

type Revoke struct {
	Account [20]byte
	Owner   [20]byte
}

func (Revoke) EventType() string { return TypeRevoke }

func (e Revoke) Event() *types.Event {
	return &types.Event{Type: TypeRevoke, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"owner":   formatAddress(e.Owner),
	}}
}

type Mint struct {
	Mint        [20]byte
	Destination [20]byte
	Amount      uint64
	Supply      uint64
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: map[string]string{
		"mint":        formatAddress(e.Mint),
		"destination": formatAddress(e.Destination),
		"amount":      formatAmount(e.Amount),
		"supply":      formatAmount(e.Supply),
	}}
}
