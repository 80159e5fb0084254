package market

import (
	"fmt"

	"nftmarket/core/ledger"
	"nftmarket/core/types"
	"nftmarket/native/metadata"
)

// MasterEditionPayload is the RLP payload of TxTypeCreateMasterEdition.
type MasterEditionPayload struct {
	Mint         [20]byte
	HasMaxSupply bool
	MaxSupply    uint64
}

// RegisterHandlers binds the marketplace and metadata transaction types to
// engine. Payloads are RLP encodings of InitParams, ListParams, SaleParams,
// WithdrawParams, metadata.CreateParams, MasterEditionPayload and
// metadata.UpdateParams.
func RegisterHandlers(l *ledger.Ledger, engine *Engine) error {
	handlers := map[types.TxType]ledger.Handler{
		types.TxTypeInitMarketplace: func(c *ledger.Context, payload []byte) error {
			var p InitParams
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.InitMarketplace(c, p)
			return err
		},
		types.TxTypeList: func(c *ledger.Context, payload []byte) error {
			var p ListParams
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.List(c, p)
			return err
		},
		types.TxTypeExecuteSale: func(c *ledger.Context, payload []byte) error {
			var p SaleParams
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.ExecuteSale(c, p)
			return err
		},
		types.TxTypeWithdrawFees: func(c *ledger.Context, payload []byte) error {
			var p WithdrawParams
			if err := decode(payload, &p); err != nil {
				return err
			}
			return engine.WithdrawFees(c, p)
		},
		types.TxTypeCreateMetadata: func(c *ledger.Context, payload []byte) error {
			var p metadata.CreateParams
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.CreateMetadata(c, p)
			return err
		},
		types.TxTypeCreateMasterEdition: func(c *ledger.Context, payload []byte) error {
			var p MasterEditionPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.CreateMasterEdition(c, p.Mint, p.HasMaxSupply, p.MaxSupply)
			return err
		},
		types.TxTypeUpdateMetadata: func(c *ledger.Context, payload []byte) error {
			var p metadata.UpdateParams
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := engine.UpdateMetadata(c, p)
			return err
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
		return fmt.Errorf("market: decode payload: %w", err)
	}
	return nil
}
