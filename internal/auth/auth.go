// Package auth supplies the opaque bearer token attached to the connection
// URL. The token is carried as a query parameter; an empty token means the
// parameter is omitted entirely.
package auth

import (
	"fmt"
	"os"
	"strings"
)

// TokenSource yields the current bearer token. Implementations may be
// re-read on every reconnect, so rotating credentials are picked up
// without restarting the client.
type TokenSource interface {
	Token() (string, error)
}

// Static is a fixed token.
type Static string

// Token returns the static value.
func (s Static) Token() (string, error) {
	return string(s), nil
}

// FromEnv returns a source that reads the token from the named environment
// variable on each call. An unset variable yields an empty token, not an
// error.
func FromEnv(key string) TokenSource {
	return envSource(key)
}

type envSource string

func (e envSource) Token() (string, error) {
	return os.Getenv(string(e)), nil
}

// FromFile returns a source that reads a token file on each call. The file
// contents are trimmed of surrounding whitespace.
func FromFile(path string) TokenSource {
	return fileSource(path)
}

type fileSource string

func (f fileSource) Token() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
