package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrEmpty is returned for whitespace-only passphrases.
var ErrEmpty = errors.New("passphrase: keystore passphrase cannot be empty")

// Source resolves a keystore passphrase once, from an environment variable or
// an interactive prompt, and caches the result.
type Source struct {
	envVar string
	prompt io.Writer

	lookupEnv  func(string) (string, bool)
	isTerminal func() bool
	readSecret func() ([]byte, error)

	once  sync.Once
	value string
	err   error
}

// NewSource checks envVar before prompting on stderr.
func NewSource(envVar string) *Source {
	stdin := int(os.Stdin.Fd())
	return &Source{
		envVar:     strings.TrimSpace(envVar),
		prompt:     os.Stderr,
		lookupEnv:  os.LookupEnv,
		isTerminal: func() bool { return term.IsTerminal(stdin) },
		readSecret: func() ([]byte, error) { return term.ReadPassword(stdin) },
	}
}

// Get returns the cached passphrase, resolving it on first use.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := s.lookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%w: %s is set but empty", ErrEmpty, s.envVar)
			}
			return value, nil
		}
	}
	if !s.isTerminal() {
		if s.envVar != "" {
			return "", fmt.Errorf("passphrase: keystore passphrase required; set %s or run interactively", s.envVar)
		}
		return "", errors.New("passphrase: keystore passphrase required and no terminal available")
	}

	fmt.Fprint(s.prompt, "Enter keystore passphrase: ")
	secret, err := s.readSecret()
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("passphrase: read: %w", err)
	}
	if strings.TrimSpace(string(secret)) == "" {
		return "", ErrEmpty
	}
	return string(secret), nil
}
