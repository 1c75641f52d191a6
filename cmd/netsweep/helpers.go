package main

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/netsweep/netsweep/pkg/config"
	"github.com/netsweep/netsweep/pkg/util"
)

// promptingCreds wraps the environment credential source with an interactive
// fallback: a key that is not in the environment is asked for once on the
// terminal and cached for the rest of the run.
func promptingCreds() config.CredentialSource {
	var mu sync.Mutex
	cache := map[string]string{}

	return func(key string) (string, error) {
		val, err := config.Resolve(key)
		if err == nil {
			return val, nil
		}
		var credErr *util.CredentialError
		if !errors.As(err, &credErr) {
			return "", err
		}

		mu.Lock()
		defer mu.Unlock()
		if v, ok := cache[key]; ok {
			return v, nil
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", err
		}

		fmt.Fprintf(os.Stderr, "Value for %s: ", key)
		raw, rerr := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if rerr != nil {
			return "", fmt.Errorf("reading %s: %w", key, rerr)
		}
		if len(raw) == 0 {
			return "", err
		}
		cache[key] = string(raw)
		return cache[key], nil
	}
}
