package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nftmarket/crypto"
	"nftmarket/native/token"
)

var (
	ErrEmptySpec        = errors.New("genesis: no mints defined")
	ErrDuplicateMint    = errors.New("genesis: duplicate mint")
	ErrUnknownMint      = errors.New("genesis: account references unknown mint")
	ErrDuplicateAccount = errors.New("genesis: duplicate account")
)

// Spec is the YAML development genesis: mints and funded token accounts.
type Spec struct {
	Mints    []MintSpec    `yaml:"mints"`
	Accounts []AccountSpec `yaml:"accounts"`
}

// MintSpec declares a mint. Address defaults to an address derived from Name.
// Unique assets use decimals 0 and a single unit held by one account.
type MintSpec struct {
	Name          string `yaml:"name"`
	Address       string `yaml:"address,omitempty"`
	Decimals      uint8  `yaml:"decimals"`
	MintAuthority string `yaml:"mintAuthority,omitempty"`
}

// AccountSpec declares a token account. Address defaults to the associated
// account of owner and mint.
type AccountSpec struct {
	Owner   string `yaml:"owner"`
	Mint    string `yaml:"mint"`
	Amount  uint64 `yaml:"amount"`
	Address string `yaml:"address,omitempty"`
}

// Load reads and validates a YAML genesis file.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML genesis document. Unknown fields are rejected.
func Parse(raw []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("genesis: decode: %w", err)
	}
	if _, err := spec.Resolve(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// MintAddress returns the address a mint named name receives when the spec
// does not pin one.
func MintAddress(name string) ([20]byte, error) {
	addr, _, err := crypto.FindProgramAddress([][]byte{[]byte("genesis-mint"), []byte(name)}, token.ProgramID)
	return addr, err
}

// Resolved is the spec with every name and default address resolved.
type Resolved struct {
	Mints    []*token.Mint
	Accounts []*token.Account
	// MintsByName maps spec names to mint addresses.
	MintsByName map[string][20]byte
}

// Resolve validates the spec and computes addresses and supplies. Mint supply
// is the sum of the amounts allocated to it.
func (s *Spec) Resolve() (*Resolved, error) {
	if s == nil || len(s.Mints) == 0 {
		return nil, ErrEmptySpec
	}
	out := &Resolved{MintsByName: make(map[string][20]byte, len(s.Mints))}
	mints := make(map[[20]byte]*token.Mint, len(s.Mints))
	for i, spec := range s.Mints {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("genesis: mint %d: name required", i)
		}
		if _, dup := out.MintsByName[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMint, name)
		}
		addr, err := resolveAddress(spec.Address, func() ([20]byte, error) { return MintAddress(name) })
		if err != nil {
			return nil, fmt.Errorf("genesis: mint %s: %w", name, err)
		}
		if _, dup := mints[addr]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMint, crypto.FormatAddress(addr))
		}
		mint := &token.Mint{Address: addr, Decimals: spec.Decimals}
		if strings.TrimSpace(spec.MintAuthority) != "" {
			if mint.MintAuthority, err = crypto.ParseAddress(spec.MintAuthority); err != nil {
				return nil, fmt.Errorf("genesis: mint %s authority: %w", name, err)
			}
		}
		out.MintsByName[name] = addr
		mints[addr] = mint
		out.Mints = append(out.Mints, mint)
	}

	seen := make(map[[20]byte]struct{}, len(s.Accounts))
	for i, spec := range s.Accounts {
		mintAddr, ok := out.MintsByName[strings.TrimSpace(spec.Mint)]
		if !ok {
			return nil, fmt.Errorf("%w: account %d mint %q", ErrUnknownMint, i, spec.Mint)
		}
		owner, err := crypto.ParseAddress(spec.Owner)
		if err != nil {
			return nil, fmt.Errorf("genesis: account %d owner: %w", i, err)
		}
		addr, err := resolveAddress(spec.Address, func() ([20]byte, error) { return token.AssociatedAddress(owner, mintAddr) })
		if err != nil {
			return nil, fmt.Errorf("genesis: account %d: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, crypto.FormatAddress(addr))
		}
		seen[addr] = struct{}{}
		mint := mints[mintAddr]
		supply, overflow := addSupply(mint.Supply, spec.Amount)
		if overflow {
			return nil, fmt.Errorf("genesis: mint %s: %w", spec.Mint, token.ErrOverflow)
		}
		mint.Supply = supply
		out.Accounts = append(out.Accounts, &token.Account{
			Address: addr,
			Mint:    mintAddr,
			Owner:   owner,
			Amount:  spec.Amount,
		})
	}
	return out, nil
}

func resolveAddress(raw string, derive func() ([20]byte, error)) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return derive()
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return addr, err
	}
	if crypto.IsReservedAddress(addr) {
		return addr, token.ErrInvalidAddress
	}
	return addr, nil
}
