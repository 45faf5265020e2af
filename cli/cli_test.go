// ABOUTME: Tests for the CLI commands
// ABOUTME: Commands run against a seeded in-memory repository with captured output
package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/config"
	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func setupTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	now := time.Date(2026, 1, 22, 9, 0, 0, 0, time.UTC)
	repo := db.NewRepository(kv.NewMemoryStore(), db.WithClock(func() time.Time { return now }))
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	sessions := auth.NewManager(kv.NewMemoryStore())

	_, err := Authorize(ctx, sessions, "list-clients")
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	_, err = sessions.LoginAsDemo(ctx)
	require.NoError(t, err)
	_, err = Authorize(ctx, sessions, "list-deals")
	assert.NoError(t, err)
	_, err = Authorize(ctx, sessions, "move-deal")
	assert.ErrorIs(t, err, auth.ErrReadOnly)

	_, err = sessions.Login(ctx, "admin@kioncrm.com", "Admin123!")
	require.NoError(t, err)
	sess, err := Authorize(ctx, sessions, "move-deal")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, sess.Role)
}

func TestAddAndListClients(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	out := captureOutput(t)

	err := AddClientCommand(ctx, repo, []string{"--name", "Acme", "--email", "a@acme.com", "--company", "AcmeCo", "--status", "prospect"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ Client added: Acme")

	out.Reset()
	require.NoError(t, ListClientsCommand(ctx, repo, []string{"--status", "prospect"}))
	assert.Contains(t, out.String(), "AcmeCo")
	assert.NotContains(t, out.String(), "Initech")

	err = AddClientCommand(ctx, repo, []string{"--name", "Bad", "--email", "nope", "--company", "X"})
	assert.ErrorContains(t, err, "invalid email")
}

func TestUpdateClientOnlySetFlags(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	captureOutput(t)

	require.NoError(t, UpdateClientCommand(ctx, repo, []string{"--phone", "555-0100", "Initech"}))

	c, err := repo.GetClient(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "555-0100", c.Phone)
	assert.Equal(t, "Initech", c.Name)
	assert.NotEmpty(t, c.Email)

	assert.Error(t, UpdateClientCommand(ctx, repo, []string{"Initech"}))
}

func TestDeleteClientCommand(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	captureOutput(t)

	assert.ErrorIs(t, DeleteClientCommand(ctx, repo, []string{"Acme SA"}), db.ErrClientInUse)
	require.NoError(t, DeleteClientCommand(ctx, repo, []string{"9"}))

	c, err := repo.GetClient(ctx, "9")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestAddDealByClientName(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	out := captureOutput(t)

	err := AddDealCommand(ctx, repo, []string{
		"--title", "Cloud migration", "--client", "globex corp", "--value", "5000", "--close", "2026-05-01",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Client: Globex Corp")
	assert.Contains(t, out.String(), "Stage: Lead")

	deals, err := repo.DealsForClient(ctx, "3")
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	err = AddDealCommand(ctx, repo, []string{"--title", "x", "--client", "Globx Corp", "--value", "1", "--close", "2026-05-01"})
	assert.ErrorContains(t, err, "did you mean Globex Corp")
}

func TestMoveAndShowDeal(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	out := captureOutput(t)

	require.NoError(t, MoveDealCommand(ctx, repo, []string{"5", "Closed"}))
	assert.Contains(t, out.String(), "to Closed")

	out.Reset()
	require.NoError(t, UpdateDealCommand(ctx, repo, []string{"--notes", "**Signed** on call", "5"}))
	out.Reset()
	require.NoError(t, ShowDealCommand(ctx, repo, false, []string{"--raw", "5"}))
	assert.Contains(t, out.String(), "Stage:       Closed")
	assert.Contains(t, out.String(), "**Signed** on call")

	assert.Error(t, MoveDealCommand(ctx, repo, []string{"missing", "lead"}))
	assert.Error(t, MoveDealCommand(ctx, repo, []string{"5", "won"}))
}

func TestListAndDeleteDeals(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	out := captureOutput(t)

	require.NoError(t, ListDealsCommand(ctx, repo, []string{"--stage", "qualified"}))
	assert.Contains(t, out.String(), "2 deal(s)")

	require.NoError(t, DeleteDealCommand(ctx, repo, []string{"1"}))
	assert.Error(t, DeleteDealCommand(ctx, repo, []string{"1"}))
}

func TestDashboardCommand(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, DashboardCommand(context.Background(), setupTestRepo(t), "KionCRM", nil))
	assert.Contains(t, out.String(), "KIONCRM DASHBOARD")
	assert.Contains(t, out.String(), "$125,000")
	assert.Contains(t, out.String(), "17%")
}

func TestInitAndReset(t *testing.T) {
	ctx := context.Background()
	repo := db.NewRepository(kv.NewMemoryStore())
	out := captureOutput(t)

	require.NoError(t, InitCommand(ctx, repo, nil))
	assert.Contains(t, out.String(), "Sample data loaded")
	out.Reset()
	require.NoError(t, InitCommand(ctx, repo, nil))
	assert.Contains(t, out.String(), "Already initialized")

	_, err := repo.RemoveDeal(ctx, "1")
	require.NoError(t, err)

	require.NoError(t, ResetCommand(ctx, repo, nil))
	deals, _ := repo.ListDeals(ctx)
	assert.Len(t, deals, 5)

	require.NoError(t, ResetCommand(ctx, repo, []string{"--confirm"}))
	deals, _ = repo.ListDeals(ctx)
	assert.Len(t, deals, 6)
}

func TestStorageCommands(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	out := captureOutput(t)
	info := StorageInfo{Backend: kv.BackendMemory}

	require.NoError(t, StorageStatusCommand(ctx, repo, info, nil))
	assert.Contains(t, out.String(), "kioncrm_clients")
	assert.Contains(t, out.String(), "Seeded:    true")

	assert.ErrorContains(t, StorageSyncCommand(ctx, repo, info, nil), "does not sync")

	require.NoError(t, StorageWipeCommand(ctx, repo, []string{"--confirm"}))
	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoginCommand(t *testing.T) {
	ctx := context.Background()
	sessions := auth.NewManager(kv.NewMemoryStore())
	out := captureOutput(t)

	prev := readPassword
	readPassword = func(string) (string, error) { return "Admin123!", nil }
	t.Cleanup(func() { readPassword = prev })

	require.NoError(t, LoginCommand(ctx, sessions, []string{"--email", "admin@kioncrm.com"}))
	assert.Contains(t, out.String(), "Admin User (admin)")

	out.Reset()
	require.NoError(t, WhoamiCommand(ctx, sessions, nil))
	assert.Contains(t, out.String(), "admin@kioncrm.com")

	err := LoginCommand(ctx, sessions, []string{"--email", "admin@kioncrm.com", "--password", "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, LogoutCommand(ctx, sessions, nil))
	out.Reset()
	require.NoError(t, WhoamiCommand(ctx, sessions, nil))
	assert.Contains(t, out.String(), "Not signed in")
}

func TestThemeCommand(t *testing.T) {
	ctx := context.Background()
	themes := theme.NewManager(kv.NewMemoryStore()).WithDetector(func() bool { return false })
	out := captureOutput(t)

	require.NoError(t, ThemeCommand(ctx, themes, nil))
	assert.Contains(t, out.String(), "Theme: light")

	require.NoError(t, ThemeCommand(ctx, themes, []string{"toggle"}))
	cur, err := themes.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, theme.Dark, cur)

	assert.Error(t, ThemeCommand(ctx, themes, []string{"sepia"}))
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	out := captureOutput(t)

	require.NoError(t, ConfigSetCommand(path, []string{"web.addr", "127.0.0.1:9999"}))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Web.Addr)

	out.Reset()
	require.NoError(t, ConfigShowCommand(cfg, path, nil))
	assert.Contains(t, out.String(), "127.0.0.1:9999")

	assert.Error(t, ConfigSetCommand(path, []string{"nope.key", "x"}))
}
