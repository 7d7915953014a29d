package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvLiAt       = "PROFILESCOUT_LI_AT"
	EnvJSessionID = "PROFILESCOUT_JSESSIONID"
	EnvUserAgent  = "PROFILESCOUT_USER_AGENT"
)

// EnvironmentStore is a read-only CredentialStore over environment variables,
// meant for containers and CI where no keychain exists
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from the environment. The name is only a label.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	liAt := os.Getenv(EnvLiAt)
	if liAt == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "env"
	}

	return &Account{
		Name:         name,
		LiAt:         liAt,
		JSessionID:   os.Getenv(EnvJSessionID),
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the environment carries a session
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv(EnvLiAt) != ""
}
