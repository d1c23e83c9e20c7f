// Package keyring keeps the secret that signs local API tokens in the OS keychain.
package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "promptpulse"
	accountName = "api-signing-secret"

	envSecret = "PROMPTPULSE_API_SECRET"
)

// ErrUnavailable is returned when the keychain cannot be used.
var ErrUnavailable = errors.New("keychain unavailable")

// Get retrieves the signing secret from the OS keychain.
func Get() (string, error) {
	secret, err := zkr.Get(serviceName, accountName)
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return secret, nil
}

// Set stores the signing secret in the OS keychain.
func Set(secret string) error {
	return zkr.Set(serviceName, accountName, secret)
}

// Delete removes the signing secret from the OS keychain.
func Delete() error {
	return zkr.Delete(serviceName, accountName)
}

// Ensure returns the stored secret, generating and storing one on first use.
func Ensure() (string, error) {
	if !Available() {
		return "", ErrUnavailable
	}
	secret, err := zkr.Get(serviceName, accountName)
	if err == nil && secret != "" {
		return secret, nil
	}
	if err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return Rotate()
}

// Resolve returns PROMPTPULSE_API_SECRET when set, otherwise the keychain
// secret from Ensure.
func Resolve() (string, error) {
	if v := os.Getenv(envSecret); v != "" {
		return v, nil
	}
	return Ensure()
}

// Rotate replaces the stored secret, invalidating every issued token.
func Rotate() (string, error) {
	secret, err := NewSecret()
	if err != nil {
		return "", err
	}
	if err := Set(secret); err != nil {
		return "", fmt.Errorf("keychain set: %w", err)
	}
	return secret, nil
}

// NewSecret returns 32 random bytes, hex encoded.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Available returns true if the OS keychain is functional.
// Returns false if PROMPTPULSE_KEYRING_DISABLED=1 is set (opt-in for headless/CI/Docker).
// Otherwise probes the keychain with a test write/read/delete cycle.
func Available() bool {
	if os.Getenv("PROMPTPULSE_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "promptpulse-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}
