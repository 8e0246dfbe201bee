// Package secrets resolves credentials that may live inline in the config or
// in a mounted file.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a required secret has neither a file nor a value.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes where a secret such as a database DSN, a Redis password
// or an API key comes from.
type Source struct {
	// Name is used in error messages, e.g. "database dsn".
	Name string
	// Value is the inline value from the config file or environment.
	Value string
	// File points to a file holding the value. It wins over Value.
	File string
	// Optional makes an unset secret resolve to "" instead of an error.
	Optional bool
}

func (s Source) name() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return "secret"
}

// Load returns the trimmed secret. An empty file is always an error, even
// for optional secrets, since pointing at a file signals intent.
func Load(src Source) (string, error) {
	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", src.name(), file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", src.name(), file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" && !src.Optional {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, src.name())
	}
	return secret, nil
}
