package passphrase

import (
	"bytes"
	"errors"
	"testing"
)

func testSource(env map[string]string, terminal bool, secret string) *Source {
	return &Source{
		envVar: "MARKET_PASSPHRASE",
		prompt: &bytes.Buffer{},
		lookupEnv: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		isTerminal: func() bool { return terminal },
		readSecret: func() ([]byte, error) { return []byte(secret), nil },
	}
}

func TestEnvironmentWins(t *testing.T) {
	src := testSource(map[string]string{"MARKET_PASSPHRASE": "hunter2"}, true, "prompted")
	got, err := src.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("expected env passphrase, got %q, %v", got, err)
	}
}

func TestEmptyEnvironmentRejected(t *testing.T) {
	src := testSource(map[string]string{"MARKET_PASSPHRASE": "  "}, true, "prompted")
	if _, err := src.Get(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestPromptIsCached(t *testing.T) {
	src := testSource(nil, true, "prompted")
	calls := 0
	src.readSecret = func() ([]byte, error) {
		calls++
		return []byte("prompted"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := src.Get()
		if err != nil || got != "prompted" {
			t.Fatalf("expected prompted passphrase, got %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}
}

func TestNoTerminal(t *testing.T) {
	if _, err := testSource(nil, false, "").Get(); err == nil {
		t.Fatalf("expected error without env or terminal")
	}
	if _, err := testSource(nil, true, " ").Get(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for blank prompt, got %v", err)
	}
}
