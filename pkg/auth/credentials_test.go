package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/browserutils/kooky"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testAccount(name string) *Account {
	return &Account{
		Name:       name,
		LiAt:       "AQEDAR_test_li_at_token_0123456789",
		JSessionID: "ajax:1234567890123456789",
		UserAgent:  "TestAgent/1.0",
	}
}

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := testAccount("work")
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.LiAt != account.LiAt {
		t.Errorf("LiAt mismatch: got %s, want %s", retrieved.LiAt, account.LiAt)
	}
	if retrieved.JSessionID != account.JSessionID {
		t.Errorf("JSessionID mismatch: got %s, want %s", retrieved.JSessionID, account.JSessionID)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account, got %d", len(accounts))
	}

	if err := manager.Delete("work"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(&Account{LiAt: "x"}), "name is required")
	assert.Error(t, manager.Store(&Account{Name: "work"}), "li_at is required")
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(testAccount("work")))
	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())

	working.StoreError = errors.New("disk full")
	err := manager.Store(testAccount("other"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	manager := NewManagerWithStores(older, newer)

	stale := testAccount("work")
	stale.LiAt = "stale"
	stale.LastModified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := testAccount("work")
	fresh.LiAt = "fresh"
	fresh.LastModified = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	side := testAccount("side")
	side.LastModified = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, older.Store(stale))
	require.NoError(t, older.Store(side))
	require.NoError(t, newer.Store(fresh))

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "work", accounts[0].Name)
	assert.Equal(t, "fresh", accounts[0].LiAt)
	assert.Equal(t, "side", accounts[1].Name)

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "fresh", def.LiAt)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvLiAt, "env_token")
	stored := NewMockStore()
	require.NoError(t, stored.Store(testAccount("work")))
	manager := NewManagerWithStores(stored, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "env_token", account.LiAt)
}

func TestRetrieveDefaultEmpty(t *testing.T) {
	t.Setenv(EnvLiAt, "")
	manager, _ := NewMockManager()

	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("work")
	sanitized := SanitizeAccount(account)

	assert.Equal(t, "AQED...6789", sanitized.LiAt)
	assert.Equal(t, "ajax...6789", sanitized.JSessionID)
	assert.Equal(t, "work", sanitized.Name)
	assert.Equal(t, "AQEDAR_test_li_at_token_0123456789", account.LiAt, "original untouched")
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestAccountCookies(t *testing.T) {
	account := testAccount("work")
	assert.Equal(t, []Cookie{
		{Name: "li_at", Value: account.LiAt, Domain: ".linkedin.com"},
		{Name: "JSESSIONID", Value: account.JSessionID, Domain: ".linkedin.com"},
	}, account.Cookies())

	account.JSessionID = ""
	assert.Len(t, account.Cookies(), 1)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if _, err := store.Retrieve("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound on empty store, got %v", err)
	}

	require.NoError(t, store.Store(testAccount("work")))
	require.NoError(t, store.Store(testAccount("alt")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "AQEDAR_test_li_at_token", "token must not be stored in clear")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	account, err := reopened.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "ajax:1234567890123456789", account.JSessionID)

	accounts, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alt", accounts[0].Name)

	require.NoError(t, reopened.Delete("work"))
	assert.False(t, reopened.Exists("work"))
	require.NoError(t, reopened.Delete("alt"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed with the last account")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("work")))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("work")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("work")))

	passphrase, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, passphrase)

	again, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.True(t, again.Exists("work"))
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvLiAt, "")
	store := NewEnvironmentStore()

	if store.Exists("") {
		t.Error("Expected no environment credentials")
	}
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	t.Setenv(EnvLiAt, "env_li_at")
	t.Setenv(EnvJSessionID, "ajax:1")
	t.Setenv(EnvUserAgent, "EnvAgent/2.0")

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env", account.Name)
	assert.Equal(t, "env_li_at", account.LiAt)
	assert.Equal(t, "ajax:1", account.JSessionID)
	assert.Equal(t, "EnvAgent/2.0", account.UserAgent)

	assert.ErrorIs(t, store.Store(account), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("env"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount("work")))
	require.NoError(t, store.Store(testAccount("side")))
	require.NoError(t, store.Store(testAccount("work")))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "side", accounts[0].Name)
	assert.Equal(t, "work", accounts[1].Name)

	assert.True(t, store.Exists("work"))
	require.NoError(t, store.Delete("work"))
	assert.False(t, store.Exists("work"))
	assert.ErrorIs(t, store.Delete("work"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func cookie(name, value string, expires time.Time) *kooky.Cookie {
	return &kooky.Cookie{Cookie: http.Cookie{Name: name, Value: value, Expires: expires}}
}

func TestBrowserCookieSource(t *testing.T) {
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	source := NewBrowserCookieSourceWith(func(context.Context, ...kooky.Filter) ([]*kooky.Cookie, error) {
		return []*kooky.Cookie{
			cookie("bcookie", "ignored", base),
			cookie("li_at", "older", base),
			cookie("li_at", "newer", base.Add(24*time.Hour)),
			cookie("JSESSIONID", "ajax:42", base),
		}, nil
	})

	account, err := source.Account(context.Background(), "browser")
	require.NoError(t, err)
	assert.Equal(t, "browser", account.Name)
	assert.Equal(t, "newer", account.LiAt)
	assert.Equal(t, "ajax:42", account.JSessionID)
}

func TestBrowserCookieSourceWithoutSession(t *testing.T) {
	empty := NewBrowserCookieSourceWith(func(context.Context, ...kooky.Filter) ([]*kooky.Cookie, error) {
		return []*kooky.Cookie{cookie("bcookie", "x", time.Time{})}, nil
	})
	_, err := empty.Account(context.Background(), "browser")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	failing := NewBrowserCookieSourceWith(func(context.Context, ...kooky.Filter) ([]*kooky.Cookie, error) {
		return nil, errors.New("profile locked")
	})
	_, err = failing.Account(context.Background(), "browser")
	assert.ErrorContains(t, err, "profile locked")
}

func TestWriteCookieGuide(t *testing.T) {
	var buf bytes.Buffer
	WriteCookieGuide(&buf)

	assert.Contains(t, buf.String(), "li_at")
	assert.Contains(t, buf.String(), EnvLiAt)
}
