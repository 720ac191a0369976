package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"

	"github.com/nhle/bidboard/internal/model"
)

const serviceName = "bidboard"

// Keys under which the session tokens are stored.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refresh_token"
)

// ErrNoCredentials is returned when no access token has been stored.
var ErrNoCredentials = errors.New("no stored credentials, run 'bidboard login'")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(model.ConfigDir(), "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("bidboard-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Store keeps the session tokens in a keyring. It satisfies
// api.TokenStore.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the system keyring.
func Open() (*Store, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an existing keyring, such as keyring.NewArrayKeyring in
// tests.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// get returns "" for a missing key.
func (s *Store) get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Tokens returns the stored access and refresh tokens. Missing tokens are
// returned as empty strings.
func (s *Store) Tokens() (string, string, error) {
	access, err := s.get(KeyAccessToken)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.get(KeyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// AccessToken returns the stored access token or ErrNoCredentials.
func (s *Store) AccessToken() (string, error) {
	access, err := s.get(KeyAccessToken)
	if err != nil {
		return "", err
	}
	if access == "" {
		return "", ErrNoCredentials
	}
	return access, nil
}

// SaveAccessToken replaces the access token after a refresh.
func (s *Store) SaveAccessToken(token string) error {
	return s.set(KeyAccessToken, token)
}

// SaveLogin stores both tokens from a successful login. An empty refresh
// token removes any previously stored one.
func (s *Store) SaveLogin(access, refresh string) error {
	if err := s.set(KeyAccessToken, access); err != nil {
		return err
	}
	if refresh == "" {
		return s.remove(KeyRefreshToken)
	}
	return s.set(KeyRefreshToken, refresh)
}

// Clear removes both tokens.
func (s *Store) Clear() error {
	return errors.Join(s.remove(KeyAccessToken), s.remove(KeyRefreshToken))
}

func (s *Store) remove(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
