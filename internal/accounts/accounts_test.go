package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkAndshark/mapflow/internal/accounts"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
)

func newTestAccounts(t *testing.T) *accounts.Accounts {
	t.Helper()
	cfg := config.Load()
	cfg.DBPath = t.TempDir() + "/test.duckdb"
	store, err := spatialstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return accounts.New(store)
}

func TestBootstrapThenLogin(t *testing.T) {
	a := newTestAccounts(t)
	ctx := context.Background()

	init, err := a.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, init)

	require.NoError(t, a.Bootstrap(ctx, "admin", "Sup3r$ecret"))

	init, err = a.IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, init)

	sess, err := a.Login(ctx, "admin", "Sup3r$ecret")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)

	got, err := a.Check(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestBootstrapTwiceFails(t *testing.T) {
	a := newTestAccounts(t)
	ctx := context.Background()

	require.NoError(t, a.Bootstrap(ctx, "admin", "Sup3r$ecret"))
	err := a.Bootstrap(ctx, "someone-else", "An0ther$ecret")
	assert.Error(t, err)
}

func TestBootstrapRejectsWeakPassword(t *testing.T) {
	a := newTestAccounts(t)
	ctx := context.Background()

	err := a.Bootstrap(ctx, "admin", "short")
	assert.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	a := newTestAccounts(t)
	ctx := context.Background()

	require.NoError(t, a.Bootstrap(ctx, "admin", "Sup3r$ecret"))
	_, err := a.Login(ctx, "admin", "wrong-password")
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	a := newTestAccounts(t)
	ctx := context.Background()

	require.NoError(t, a.Bootstrap(ctx, "admin", "Sup3r$ecret"))
	sess, err := a.Login(ctx, "admin", "Sup3r$ecret")
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx, sess.ID))
	_, err = a.Check(ctx, sess.ID)
	assert.Error(t, err)
}
