package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/netsweep/netsweep/pkg/util"
)

// LoadEnvFile reads a KEY=VALUE file into the process environment without
// overriding keys already set. Lines starting with # and blank lines are
// skipped; values may be quoted. Returns the keys it set.
func LoadEnvFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var loaded []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = normalizeEnvKey(key)
		if key == "" {
			continue
		}
		value = util.StripQuotes(strings.TrimSpace(value))

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return loaded, err
		}
		loaded = append(loaded, key)
	}
	return loaded, scanner.Err()
}

// CredentialSource resolves an environment key named by the inventory to a
// secret. The CLI wraps Resolve with an interactive prompt fallback.
type CredentialSource func(key string) (string, error)

// Resolve looks a credential up in the environment. Keys are normalized the
// way inventory env columns are written by hand: stray whitespace removed,
// upper-cased.
func Resolve(key string) (string, error) {
	k := normalizeEnvKey(key)
	if k == "" {
		return "", &util.CredentialError{Key: key, Details: "empty key"}
	}
	val := os.Getenv(k)
	if val == "" {
		return "", &util.CredentialError{Key: k, Details: "environment variable not set"}
	}
	return val, nil
}

// normalizeEnvKey strips all whitespace and upper-cases, matching how keys
// like "user1 " end up in hand-edited inventory files.
func normalizeEnvKey(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case ' ', '\t', '\r', '\n', '\ufeff':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
