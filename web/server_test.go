// ABOUTME: Tests for the web dashboard
// ABOUTME: Exercises HTML pages, JSON endpoints and metrics through httptest
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/metrics"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	reg := metrics.NewRegistry()
	repo := db.NewRepository(kv.NewMemoryStore(), db.WithMetrics(reg))
	require.NoError(t, repo.Initialize(context.Background()))

	srv, err := NewServer(repo, WithMetrics(reg), WithAppName("KionCRM"))
	require.NoError(t, err)
	return srv.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDashboardPage(t *testing.T) {
	rec := get(t, setupServer(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "$125,000")
	assert.Contains(t, body, "17%")
	assert.Contains(t, body, "Closed Won")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestClientPages(t *testing.T) {
	h := setupServer(t)

	rec := get(t, h, "/clients?q=wayne")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wayne Enterprises")
	assert.NotContains(t, rec.Body.String(), "Initech")

	rec = get(t, h, "/clients/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme SA")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/clients/missing").Code)
}

func TestDealPages(t *testing.T) {
	h := setupServer(t)

	rec := get(t, h, "/deals?stage=qualified")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Qualified")

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/deals?stage=bogus").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/deals/6").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/deals/404").Code)
}

func TestGraphPage(t *testing.T) {
	h := setupServer(t)

	rec := get(t, h, "/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/graph?client=nope").Code)
}

func TestAPIEndpoints(t *testing.T) {
	h := setupServer(t)

	var clients []models.Client
	rec := get(t, h, "/api/clients?status=active")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clients))
	for _, c := range clients {
		assert.Equal(t, models.StatusActive, c.Status)
	}

	var deals []models.Deal
	rec = get(t, h, "/api/deals?stage=lead")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deals))
	assert.Len(t, deals, 2)

	var stats viz.DashboardStats
	rec = get(t, h, "/api/stats")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(125000), stats.TotalRevenue)
	assert.Equal(t, 5, stats.ActiveDeals)
	assert.Equal(t, 6, stats.ActiveClients)
	assert.Equal(t, 17, stats.WinRate)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupServer(t)
	get(t, h, "/api/deals")

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kion_repository_operations_total")
}

// listen serves srv over a real listener and opens a websocket on /events.
func listen(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return srv.changes.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readChange(t *testing.T, conn *websocket.Conn) ChangeMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ChangeMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEventsPushLocalWrites(t *testing.T) {
	ctx := context.Background()
	repo := db.NewRepository(kv.NewMemoryStore())
	require.NoError(t, repo.Initialize(ctx))
	srv, err := NewServer(repo)
	require.NoError(t, err)
	conn := listen(t, srv)

	_, err = repo.MoveDeal(ctx, "1", models.StageQualified)
	require.NoError(t, err)

	msg := readChange(t, conn)
	assert.Equal(t, "updated", msg.Kind)
	assert.Equal(t, db.CollectionDeals, msg.Collection)
	assert.Equal(t, "1", msg.ID)
}

func TestEventsPushWritesFromAnotherStore(t *testing.T) {
	dir := t.TempDir()
	ours, err := kv.NewFileStore(dir, nil)
	require.NoError(t, err)
	theirs, err := kv.NewFileStore(dir, nil)
	require.NoError(t, err)

	repo := db.NewRepository(ours)
	other := db.NewRepository(theirs)
	require.NoError(t, other.Initialize(context.Background()))

	srv, err := NewServer(repo, WithWatch(true))
	require.NoError(t, err)
	conn := listen(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.WatchExternal(ctx) }()
	t.Cleanup(func() {
		cancel()
		err := <-done
		assert.True(t, err == nil || errors.Is(err, context.Canceled))
	})

	// Give the watcher time to register before the other process writes.
	time.Sleep(100 * time.Millisecond)
	_, err = other.AddClient(context.Background(), models.ClientInput{Name: "From another tab"})
	require.NoError(t, err)

	msg := readChange(t, conn)
	assert.Equal(t, "external", msg.Kind)
	assert.Equal(t, db.CollectionClients, msg.Collection)

	// The page then refetches the stats, which already include the new client.
	var stats viz.DashboardStats
	rec := get(t, srv.Handler(), "/api/stats")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 10, stats.TotalClients)
}
