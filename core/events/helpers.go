package events

import (
	"strconv"

	"nftmarket/crypto"
)

func formatAddress(addr [20]byte) string {
	return crypto.FormatAddress(addr)
}

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}
