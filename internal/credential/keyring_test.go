package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/credential"
)

func TestStoreRoundTrip(t *testing.T) {
	store := credential.NewStore(keyring.NewArrayKeyring(nil))

	_, err := store.AccessToken()
	require.ErrorIs(t, err, credential.ErrNoCredentials)

	access, refresh, err := store.Tokens()
	require.NoError(t, err)
	require.Empty(t, access)
	require.Empty(t, refresh)

	require.NoError(t, store.SaveLogin("a1", "r1"))
	access, refresh, err = store.Tokens()
	require.NoError(t, err)
	require.Equal(t, "a1", access)
	require.Equal(t, "r1", refresh)

	require.NoError(t, store.SaveAccessToken("a2"))
	access, err = store.AccessToken()
	require.NoError(t, err)
	require.Equal(t, "a2", access)
}

func TestSaveLoginWithoutRefreshDropsOldOne(t *testing.T) {
	store := credential.NewStore(keyring.NewArrayKeyring(nil))

	require.NoError(t, store.SaveLogin("a1", "r1"))
	require.NoError(t, store.SaveLogin("a2", ""))

	_, refresh, err := store.Tokens()
	require.NoError(t, err)
	require.Empty(t, refresh)
}

func TestClear(t *testing.T) {
	store := credential.NewStore(keyring.NewArrayKeyring(nil))

	require.NoError(t, store.Clear())
	require.NoError(t, store.SaveLogin("a1", "r1"))
	require.NoError(t, store.Clear())

	_, err := store.AccessToken()
	require.ErrorIs(t, err, credential.ErrNoCredentials)
}
