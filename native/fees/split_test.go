package fees

import (
	"errors"
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestSplitScenarios(t *testing.T) {
	const maxFee = math.MaxUint64/10_000*9999 + (math.MaxUint64%10_000)*9999/10_000
	cases := []struct {
		name   string
		amount uint64
		bps    uint16
		fee    uint64
		net    uint64
	}{
		{name: "standard", amount: 1000, bps: 250, fee: 25, net: 975},
		{name: "rounds down to zero", amount: 1, bps: 9999, fee: 0, net: 1},
		{name: "free", amount: 1000, bps: 0, fee: 0, net: 1000},
		{name: "full", amount: 1000, bps: 10_000, fee: 1000, net: 0},
		{name: "max amount", amount: math.MaxUint64, bps: 9999, fee: maxFee, net: math.MaxUint64 - maxFee},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, net, err := Split(tc.amount, tc.bps)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if fee != tc.fee || net != tc.net {
				t.Fatalf("Split(%d, %d) = %d/%d, want %d/%d", tc.amount, tc.bps, fee, net, tc.fee, tc.net)
			}
		})
	}
}

func TestSplitRejectsRateAboveWhole(t *testing.T) {
	if _, _, err := Split(100, 10_001); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestProperty_SplitConservesAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Uint64().Draw(t, "amount")
		bps := rapid.Uint16Range(0, BasisPointsDenominator).Draw(t, "bps")

		fee, net, err := Split(amount, bps)
		if err != nil {
			t.Fatalf("Split(%d, %d): %v", amount, bps, err)
		}
		if fee+net != amount {
			t.Fatalf("fee %d + net %d != amount %d", fee, net, amount)
		}
		if fee > amount {
			t.Fatalf("fee %d exceeds amount %d", fee, amount)
		}
	})
}

func TestProperty_ZeroRateChargesNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Uint64().Draw(t, "amount")
		fee, net, err := Split(amount, 0)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		if fee != 0 || net != amount {
			t.Fatalf("zero rate charged %d on %d", fee, amount)
		}
	})
}
