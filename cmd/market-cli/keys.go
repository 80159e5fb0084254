package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"nftmarket/cmd/internal/passphrase"
	"nftmarket/crypto"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	out := fs.String("out", defaultKeystore, "keystore file to create")
	light := fs.Bool("light", false, "use light scrypt parameters (development only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		return printError(stderr, "%s already exists", *out)
	}
	pass, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		return printError(stderr, "%v", err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, "generate key: %v", err)
	}
	strength := crypto.KeystoreStandard
	if *light {
		strength = crypto.KeystoreLight
	}
	if err := crypto.SaveToKeystore(*out, key, pass, strength); err != nil {
		return printError(stderr, "save keystore: %v", err)
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	keyPath := fs.String("key", defaultKeystore, "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--key is required")
	}
	pass, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}
