// ABOUTME: Tests for local sessions
// ABOUTME: Covers credential checks, demo login, role gating and token decoding
package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() (*Manager, *kv.MemoryStore) {
	mem := kv.NewMemoryStore()
	m := NewManager(mem)
	m.now = func() time.Time { return time.UnixMilli(1768000000000) }
	return m, mem
}

func TestLoginAdmin(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	sess, err := m.Login(ctx, "admin@kioncrm.com", "Admin123!")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, sess.Role)
	assert.Equal(t, "Admin User", sess.Name)
	assert.Equal(t, "admin-1", sess.ID)
	assert.NotEmpty(t, sess.SessionID)
	assert.True(t, sess.CanWrite())

	current, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, current)

	subject, at, err := DecodeToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@kioncrm.com", subject)
	assert.Equal(t, int64(1768000000000), at.UnixMilli())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	_, err := m.Login(ctx, "admin@kioncrm.com", "admin123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Login(ctx, "someone@else.com", "demo")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestDemoSessionIsReadOnly(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	sess, err := m.LoginAsDemo(ctx)
	require.NoError(t, err)
	assert.Equal(t, RoleDemo, sess.Role)
	assert.Equal(t, "demo-1", sess.ID)

	subject, _, err := DecodeToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "demo", subject)

	_, err = m.RequireSession(ctx)
	assert.NoError(t, err)
	_, err = m.RequireWriter(ctx)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	_, err := m.Login(ctx, "demo@kioncrm.com", "demo")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Logout(ctx))

	_, err = m.RequireSession(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = m.RequireWriter(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestUnreadableSessionCountsAsSignedOut(t *testing.T) {
	ctx := context.Background()
	m, mem := newTestManager()
	require.NoError(t, mem.Set(ctx, SessionKey, []byte("garbage")))

	sess, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestDecodeTokenErrors(t *testing.T) {
	_, _, err := DecodeToken("%%%")
	assert.Error(t, err)
	_, _, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("no-timestamp")))
	assert.Error(t, err)
	_, _, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("a@b.com:soon")))
	assert.Error(t, err)
}
