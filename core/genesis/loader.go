package genesis

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"nftmarket/core/events"
	"nftmarket/core/ledger"
	"nftmarket/native/token"
)

// tokenWriter is the genesis-only seeding surface of the token engine.
type tokenWriter interface {
	PutMint(mint *token.Mint) error
	PutAccount(account *token.Account) error
}

// Apply seeds the mints and accounts of spec into l in one atomic genesis
// transaction. tokens must be bound to l's state. A ledger that already
// carries a genesis returns ledger.ErrGenesisApplied.
func Apply(ctx context.Context, l *ledger.Ledger, tokens tokenWriter, spec *Spec) (*Resolved, error) {
	resolved, err := spec.Resolve()
	if err != nil {
		return nil, err
	}
	err = l.ApplyGenesis(ctx, func(c *ledger.Context) error {
		for _, mint := range resolved.Mints {
			if err := tokens.PutMint(mint); err != nil {
				return fmt.Errorf("mint %x: %w", mint.Address, err)
			}
		}
		for _, account := range resolved.Accounts {
			if err := tokens.PutAccount(account); err != nil {
				return fmt.Errorf("account %x: %w", account.Address, err)
			}
			if account.Amount > 0 {
				c.Emit(events.Mint{Mint: account.Mint, Destination: account.Address, Amount: account.Amount})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func addSupply(supply, amount uint64) (uint64, bool) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(supply), uint256.NewInt(amount))
	if overflow || !sum.IsUint64() {
		return 0, true
	}
	return sum.Uint64(), false
}
