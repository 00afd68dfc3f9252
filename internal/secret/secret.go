// Package secret stores connection passwords in the operating system keyring.
package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name every entry is filed under.
const Service = "dbprobe"

// ErrNotFound is returned when the keyring has no entry for an account.
var ErrNotFound = errors.New("secret not found")

// Get returns the password stored for account.
func Get(account string) (string, error) {
	pw, err := keyring.Get(Service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return pw, nil
}

// Set stores password for account, replacing any previous value.
func Set(account, password string) error {
	if err := keyring.Set(Service, account, password); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// Delete removes the entry for account. Deleting a missing entry is not an error.
func Delete(account string) error {
	if err := keyring.Delete(Service, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
