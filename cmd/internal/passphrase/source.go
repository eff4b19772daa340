// Package passphrase resolves the secret protecting the operator key file
// used by the commune binaries. Deployments export it through an environment
// variable; on a workstation the operator is prompted instead.
package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a keystore passphrase at most once. Both the value and any
// resolution error are cached, so every caller in the process sees the same
// outcome.
type Source struct {
	envVar string

	once  sync.Once
	value string
	err   error
}

// NewSource returns a Source that consults envVar first and falls back to a
// terminal prompt.
func NewSource(envVar string) *Source {
	return &Source{envVar: strings.TrimSpace(envVar)}
}

// Get returns the passphrase, resolving it on first use. Blank passphrases
// are rejected in both paths so a keystore is never written unprotected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}
	return s.prompt()
}

func (s *Source) prompt() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if s.envVar != "" {
			return "", fmt.Errorf("operator key passphrase required; set %s or run interactively", s.envVar)
		}
		return "", errors.New("operator key passphrase required and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Operator key passphrase: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", errors.New("passphrase must not be empty")
	}
	return string(raw), nil
}
