package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeInitializeMint    TxType = 0x10 // Create a token mint
	TxTypeInitializeAccount TxType = 0x11 // Create a token account
	TxTypeMintTo            TxType = 0x12 // Mint supply into an account
	TxTypeApprove           TxType = 0x13 // Delegate an amount to another authority
	TxTypeRevoke            TxType = 0x14 // Clear a delegation
	TxTypeTransfer          TxType = 0x15 // Move tokens between accounts

	TxTypeInitMarketplace TxType = 0x20 // Create a marketplace and its fee account
	TxTypeList            TxType = 0x21 // List an asset for sale
	TxTypeExecuteSale     TxType = 0x22 // Buy a listed asset
	TxTypeWithdrawFees    TxType = 0x23 // Move collected fees out of the fee account

	TxTypeCreateMetadata      TxType = 0x24 // Metadata registry pass-through
	TxTypeCreateMasterEdition TxType = 0x25 // Metadata registry pass-through
	TxTypeUpdateMetadata      TxType = 0x26 // Metadata registry pass-through
)

var txTypeNames = map[TxType]string{
	TxTypeInitializeMint:      "initialize_mint",
	TxTypeInitializeAccount:   "initialize_account",
	TxTypeMintTo:              "mint_to",
	TxTypeApprove:             "approve",
	TxTypeRevoke:              "revoke",
	TxTypeTransfer:            "transfer",
	TxTypeInitMarketplace:     "init_marketplace",
	TxTypeList:                "list",
	TxTypeExecuteSale:         "execute_sale",
	TxTypeWithdrawFees:        "withdraw_fees",
	TxTypeCreateMetadata:      "create_metadata",
	TxTypeCreateMasterEdition: "create_master_edition",
	TxTypeUpdateMetadata:      "update_metadata",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// ParseTxType resolves a transaction type from its name.
func ParseTxType(name string) (TxType, bool) {
	for t, n := range txTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// MarshalText renders the type by name so JSON carries "execute_sale"
// rather than a byte.
func (t TxType) MarshalText() ([]byte, error) {
	name, ok := txTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("transaction: unknown type 0x%02x", byte(t))
	}
	return []byte(name), nil
}

// UnmarshalText accepts a type name.
func (t *TxType) UnmarshalText(text []byte) error {
	parsed, ok := ParseTxType(string(text))
	if !ok {
		return fmt.Errorf("transaction: unknown type %q", text)
	}
	*t = parsed
	return nil
}

var errNoSignatures = errors.New("transaction: no signatures")

// Transaction carries an operation payload and the co-signatures that
// authorize it. Every signature covers the same hash; the set of recovered
// addresses is the set of co-signers visible to handlers.
type Transaction struct {
	Type       TxType          `json:"type"`
	Nonce      uint64          `json:"nonce"`
	Payload    hexutil.Bytes   `json:"payload"`
	Signatures []hexutil.Bytes `json:"signatures"`
}

// Hash is keccak256 over the RLP encoding of the unsigned fields.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(struct {
		Type    TxType
		Nonce   uint64
		Payload []byte
	}{tx.Type, tx.Nonce, tx.Payload})
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(encoded), nil
}

// Sign appends the key's signature over the transaction hash.
func (tx *Transaction) Sign(key *crypto.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := key.Sign(hash)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

// Signers recovers the co-signer addresses in signature order. Repeated
// signers are reported once. Any unrecoverable signature fails the whole set.
func (tx *Transaction) Signers() ([][crypto.AddressLength]byte, error) {
	if len(tx.Signatures) == 0 {
		return nil, errNoSignatures
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	seen := make(map[[crypto.AddressLength]byte]struct{}, len(tx.Signatures))
	signers := make([][crypto.AddressLength]byte, 0, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		addr, err := crypto.RecoverAddress(hash, sig)
		if err != nil {
			return nil, fmt.Errorf("transaction: signature %d: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		signers = append(signers, addr)
	}
	return signers, nil
}

// EncodePayload RLP-encodes an operation payload.
func EncodePayload(v interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

// DecodePayload decodes an RLP payload into out.
func DecodePayload(payload []byte, out interface{}) error {
	if len(payload) == 0 {
		return errors.New("transaction: empty payload")
	}
	return rlp.DecodeBytes(payload, out)
}
