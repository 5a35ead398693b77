// Package secrets resolves the Brave Search credential from configuration or
// the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FranksOps/leadfinder/internal/config"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups leadfinder secrets in the OS keychain.
	KeyringService = "leadfinder"
	// BraveAccount holds the Brave Search subscription token.
	BraveAccount = "brave"
)

// ErrNoBraveKey means neither the environment nor the keychain has a key.
var ErrNoBraveKey = errors.New("brave api key not found (set LEADFINDER_BRAVE_API_KEY or run `leadfinder secret set`)")

// BraveAPIKey returns the configured key, falling back to the keychain. Every
// failure to find a key wraps ErrNoBraveKey.
func BraveAPIKey(cfg *config.Config) (string, error) {
	if cfg != nil {
		if key := strings.TrimSpace(cfg.Brave.APIKey); key != "" {
			return key, nil
		}
	}

	key, err := keyring.Get(KeyringService, BraveAccount)
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), nil
	}
	// An unreachable keychain (no Secret Service on a headless box) counts as
	// no key.
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: keyring: %v", ErrNoBraveKey, err)
	}
	return "", ErrNoBraveKey
}

// SetBraveAPIKey stores key in the keychain.
func SetBraveAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("secrets: api key is empty")
	}
	if err := keyring.Set(KeyringService, BraveAccount, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("secrets: keyring: %w", err)
	}
	return nil
}

// DeleteBraveAPIKey removes the stored key. Deleting a missing key is not an
// error.
func DeleteBraveAPIKey() error {
	if err := keyring.Delete(KeyringService, BraveAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("secrets: keyring: %w", err)
	}
	return nil
}
