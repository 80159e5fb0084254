package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	defaultServer   = "http://127.0.0.1:8080"
	passphraseEnv   = "MARKET_KEYSTORE_PASSPHRASE"
	serverEnv       = "MARKET_URL"
	defaultKeystore = "./market.key"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "derive":
		return runDerive(args[1:], stdout, stderr)
	case "init-market":
		return runInitMarket(args[1:], stdout, stderr)
	case "list":
		return runList(args[1:], stdout, stderr)
	case "buy":
		return runBuy(args[1:], stdout, stderr)
	case "withdraw":
		return runWithdraw(args[1:], stdout, stderr)
	case "listing":
		return runListing(args[1:], stdout, stderr)
	case "listings":
		return runListings(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.Join([]string{
		"Usage: market-cli <command> [flags]",
		"",
		"Keys:",
		"  keygen      --out <file> [--light]",
		"  address     --key <file>",
		"",
		"Transactions (signed with --key, sent to --server):",
		"  init-market --currency <addr> --fee-bps <n>",
		"  list        --asset <addr> --currency <addr> --marketplace <addr> --price <n> [--asset-account <addr>]",
		"  buy         --listing <addr> [--asset-account <addr>] [--currency-account <addr>]",
		"  withdraw    --currency <addr> --destination <addr> --amount <n>",
		"",
		"Queries:",
		"  derive      <custodian|marketplace|fee|listing|associated|metadata> [flags]",
		"  listing     <trade state address>",
		"  listings    [--seller <addr>] [--marketplace <addr>] [--status open|sold] [--limit n]",
		"",
		"The keystore passphrase is read from " + passphraseEnv + " or prompted.",
		"The server defaults to " + serverEnv + " or " + defaultServer + ".",
	}, "\n")
}

func printError(stderr io.Writer, format string, args ...interface{}) int {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
	return 1
}
