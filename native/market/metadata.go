package market

import (
	"errors"

	"nftmarket/core/ledger"
	"nftmarket/native/metadata"
)

var errNilMetadata = errors.New("market engine: metadata registry not configured")

// CreateMetadata forwards to the metadata registry.
func (e *Engine) CreateMetadata(inv ledger.Invocation, p metadata.CreateParams) (*metadata.Metadata, error) {
	if e == nil || e.metadata == nil {
		return nil, errNilMetadata
	}
	return e.metadata.Create(inv, p)
}

// CreateMasterEdition forwards to the metadata registry.
func (e *Engine) CreateMasterEdition(inv ledger.Invocation, mint [20]byte, hasMax bool, maxSupply uint64) (*metadata.MasterEdition, error) {
	if e == nil || e.metadata == nil {
		return nil, errNilMetadata
	}
	return e.metadata.CreateMasterEdition(inv, mint, hasMax, maxSupply)
}

// UpdateMetadata forwards to the metadata registry.
func (e *Engine) UpdateMetadata(inv ledger.Invocation, p metadata.UpdateParams) (*metadata.Metadata, error) {
	if e == nil || e.metadata == nil {
		return nil, errNilMetadata
	}
	return e.metadata.Update(inv, p)
}
