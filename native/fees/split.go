package fees

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// BasisPointsDenominator is the number of basis points in one whole.
const BasisPointsDenominator = 10_000

// ErrInvalidRate is returned for rates above BasisPointsDenominator.
var ErrInvalidRate = errors.New("fees: rate exceeds 10000 basis points")

// ValidateBps checks that bps expresses a rate between 0% and 100%.
func ValidateBps(bps uint16) error {
	if bps > BasisPointsDenominator {
		return fmt.Errorf("%w: %d", ErrInvalidRate, bps)
	}
	return nil
}

// Split divides amount into the fee owed at bps and the remainder. The fee is
// floor(amount*bps/10000) computed without intermediate overflow, so
// fee+net == amount and fee <= amount for every input.
func Split(amount uint64, bps uint16) (fee, net uint64, err error) {
	if err := ValidateBps(bps); err != nil {
		return 0, 0, err
	}
	product := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(bps)))
	product.Div(product, uint256.NewInt(BasisPointsDenominator))
	// bps <= 10000 keeps the quotient within amount.
	fee = product.Uint64()
	return fee, amount - fee, nil
}
