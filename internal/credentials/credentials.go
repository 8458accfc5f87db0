// Package credentials resolves the API key used for outbound LLM calls.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNotFound is returned when a provider has no key to offer.
var ErrNotFound = errors.New("credential not found")

// Provider supplies an API key at call time.
type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

// Static returns a fixed key.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotFound
	}
	return string(s), nil
}

// Env reads the key from an environment variable on every call.
type Env string

func (e Env) APIKey(context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	if v == "" {
		return "", fmt.Errorf("%w: $%s is not set", ErrNotFound, string(e))
	}
	return v, nil
}

// DotenvFile reads Key from a local, unversioned dotenv file.
type DotenvFile struct {
	Path string
	Key  string
}

func (d DotenvFile) APIKey(context.Context) (string, error) {
	values, err := godotenv.Read(d.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNotFound, d.Path)
		}
		return "", fmt.Errorf("read %s: %w", d.Path, err)
	}
	v := strings.TrimSpace(values[d.Key])
	if v == "" {
		return "", fmt.Errorf("%w: %s has no %s", ErrNotFound, d.Path, d.Key)
	}
	return v, nil
}

// Chain tries providers in order and returns the first key found. Errors other
// than ErrNotFound stop the chain.
type Chain []Provider

func (c Chain) APIKey(ctx context.Context) (string, error) {
	for _, p := range c {
		key, err := p.APIKey(ctx)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// None supplies an empty key. Use it when a proxy in front of the model
// endpoint injects credentials itself.
type None struct{}

func (None) APIKey(context.Context) (string, error) { return "", nil }
