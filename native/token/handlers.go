package token

import (
	"fmt"

	"nftmarket/core/ledger"
	"nftmarket/core/types"
)

// InitializeMintPayload is the RLP payload of TxTypeInitializeMint.
type InitializeMintPayload struct {
	Mint      [20]byte
	Decimals  uint8
	Authority [20]byte
}

// InitializeAccountPayload is the RLP payload of TxTypeInitializeAccount.
type InitializeAccountPayload struct {
	Account [20]byte
	Mint    [20]byte
	Owner   [20]byte
}

// MintToPayload is the RLP payload of TxTypeMintTo.
type MintToPayload struct {
	Mint        [20]byte
	Destination [20]byte
	Amount      uint64
}

// ApprovePayload is the RLP payload of TxTypeApprove.
type ApprovePayload struct {
	Account  [20]byte
	Delegate [20]byte
	Amount   uint64
}

// RevokePayload is the RLP payload of TxTypeRevoke.
type RevokePayload struct {
	Account [20]byte
}

// TransferPayload is the RLP payload of TxTypeTransfer.
type TransferPayload = TransferParams

// RegisterHandlers binds the token transaction types to engine.
func RegisterHandlers(l *ledger.Ledger, engine *Engine) error {
	handlers := map[types.TxType]ledger.Handler{
		types.TxTypeInitializeMint: func(c *ledger.Context, payload []byte) error {
			var p InitializeMintPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.InitializeMint(c, p.Mint, p.Decimals, p.Authority)
			return err
		},
		types.TxTypeInitializeAccount: func(c *ledger.Context, payload []byte) error {
			var p InitializeAccountPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.InitializeAccount(c, p.Account, p.Mint, p.Owner)
			return err
		},
		types.TxTypeMintTo: func(c *ledger.Context, payload []byte) error {
			var p MintToPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			return engine.MintTo(c, p.Mint, p.Destination, p.Amount)
		},
		types.TxTypeApprove: func(c *ledger.Context, payload []byte) error {
			var p ApprovePayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			return engine.Approve(c, p.Account, p.Delegate, p.Amount)
		},
		types.TxTypeRevoke: func(c *ledger.Context, payload []byte) error {
			var p RevokePayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			return engine.Revoke(c, p.Account)
		},
		types.TxTypeTransfer: func(c *ledger.Context, payload []byte) error {
			var p TransferPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			return engine.Transfer(c, p)
		},
	}
	for txType, handler := range handlers {
		if err := l.Register(txType, handler); err != nil {
			return err
		}
	}
	return nil
}

func decode(payload []byte, out interface{}) error {
	if err := types.DecodePayload(payload, out); err != nil {
		return fmt.Errorf("token: decode payload: %w", err)
	}
	return nil
}
