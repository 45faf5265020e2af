// ABOUTME: Web UI server with embedded templates
// ABOUTME: Read-only dashboard, JSON API and metrics endpoint over the repository
package web

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/metrics"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	repo      *db.Repository
	appName   string
	templates *template.Template
	generator *viz.GraphGenerator
	metrics   *metrics.Registry
	logger    *zap.Logger
	watch     bool

	changes     *changeHub
	unsubscribe func()
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics serves reg at /metrics.
func WithMetrics(reg *metrics.Registry) Option { return func(s *Server) { s.metrics = reg } }

func WithAppName(name string) Option { return func(s *Server) { s.appName = name } }

// WithWatch follows writes from other processes while the server runs and
// forwards them to pages listening on /events.
func WithWatch(watch bool) Option { return func(s *Server) { s.watch = watch } }

type stageRow struct {
	Stage models.Stage
	Label string
	Count int
	Value int64
	// Share of the total pipeline value, in percent
	Share int64
}

func NewServer(repo *db.Repository, opts ...Option) (*Server, error) {
	// Helper functions for templates
	funcMap := template.FuncMap{
		"money":      viz.FormatMoney,
		"stageLabel": func(s models.Stage) string { return s.Label() },
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		repo:      repo,
		appName:   "KionCRM",
		templates: tmpl,
		generator: viz.NewGraphGenerator(repo),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.changes = newChangeHub(s.logger)
	s.unsubscribe = repo.Subscribe(func(ev db.Event) {
		s.changes.broadcast(changeFor(ev))
	})
	return s, nil
}

// Close stops forwarding repository events and disconnects listeners.
func (s *Server) Close() {
	s.unsubscribe()
	s.changes.close()
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /clients", s.handleClients)
	mux.HandleFunc("GET /clients/{id}", s.handleClientDetail)
	mux.HandleFunc("GET /deals", s.handleDeals)
	mux.HandleFunc("GET /deals/{id}", s.handleDealDetail)
	mux.HandleFunc("GET /graph", s.handleGraph)

	mux.HandleFunc("GET /api/clients", s.handleAPIClients)
	mux.HandleFunc("GET /api/deals", s.handleAPIDeals)
	mux.HandleFunc("GET /api/stats", s.handleAPIStats)
	mux.HandleFunc("GET /events", s.changes.serve)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.withRequestLog(mux)
}

// Start serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	defer s.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting web server", zap.String("url", "http://"+addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Shutdown does not touch hijacked websocket connections.
		s.changes.close()
		return srv.Shutdown(shutdownCtx)
	})
	if s.watch {
		g.Go(func() error {
			err := s.repo.WatchExternal(ctx)
			if errors.Is(err, db.ErrUnsupported) {
				s.logger.Warn("storage backend cannot be watched", zap.Error(err))
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets /events upgrade through the request logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer cannot be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Debug("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, data map[string]any) {
	data["AppName"] = s.appName
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.fail(w, r, fmt.Errorf("render %v: %w", data["ContentTemplate"], err))
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := viz.GenerateDashboardStats(r.Context(), s.repo)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var total int64
	for _, ps := range stats.PipelineByStage {
		total += ps.Value
	}
	var rows []stageRow
	for _, st := range models.Stages {
		ps := stats.PipelineByStage[st]
		row := stageRow{Stage: st, Label: st.Label(), Count: ps.Count, Value: ps.Value}
		if total > 0 {
			row.Share = ps.Value * 100 / total
		}
		rows = append(rows, row)
	}

	s.renderTemplate(w, r, map[string]any{
		"Title":           "Dashboard",
		"ContentTemplate": "dashboard-content",
		"Stats":           stats,
		"Pipeline":        rows,
	})
}

func (s *Server) clientNames(ctx context.Context) (map[string]string, error) {
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}

func filterClients(clients []models.Client, query string, status models.ClientStatus) []models.Client {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []models.Client{}
	for _, c := range clients {
		if status != "" && c.Status != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), query) &&
			!strings.Contains(strings.ToLower(c.Company), query) &&
			!strings.Contains(strings.ToLower(c.Email), query) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.repo.ListClients(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	query := r.URL.Query().Get("q")
	status := models.ClientStatus(r.URL.Query().Get("status"))

	s.renderTemplate(w, r, map[string]any{
		"Title":           "Clients",
		"ContentTemplate": "clients-content",
		"Clients":         filterClients(clients, query, status),
		"Query":           query,
		"Status":          string(status),
		"Statuses":        models.ClientStatuses,
	})
}

func (s *Server) handleClientDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client, err := s.repo.GetClient(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if client == nil {
		http.NotFound(w, r)
		return
	}
	deals, err := s.repo.DealsForClient(ctx, client.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.renderTemplate(w, r, map[string]any{
		"Title":           client.Name,
		"ContentTemplate": "client-detail-content",
		"Client":          client,
		"Deals":           deals,
	})
}

type dealView struct {
	models.Deal
	ClientName string
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		deals []models.Deal
		err   error
	)
	stage := r.URL.Query().Get("stage")
	if stage != "" {
		st, perr := models.ParseStage(stage)
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		deals, err = s.repo.DealsByStage(ctx, st)
	} else {
		deals, err = s.repo.ListDeals(ctx)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	names, err := s.clientNames(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	views := make([]dealView, 0, len(deals))
	for _, d := range deals {
		views = append(views, dealView{Deal: d, ClientName: names[d.ClientID]})
	}

	s.renderTemplate(w, r, map[string]any{
		"Title":           "Deals",
		"ContentTemplate": "deals-content",
		"Deals":           views,
		"Stage":           stage,
		"Stages":          models.Stages,
	})
}

func (s *Server) handleDealDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deal, err := s.repo.GetDeal(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if deal == nil {
		http.NotFound(w, r)
		return
	}
	names, err := s.clientNames(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.renderTemplate(w, r, map[string]any{
		"Title":           deal.Title,
		"ContentTemplate": "deal-detail-content",
		"Deal":            dealView{Deal: *deal, ClientName: names[deal.ClientID]},
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	dot, err := s.generator.GeneratePipelineGraph(r.Context(), clientID)
	if err != nil {
		if clientID != "" && strings.Contains(err.Error(), "client not found") {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.fail(w, r, err)
		return
	}

	s.renderTemplate(w, r, map[string]any{
		"Title":           "Pipeline Graph",
		"ContentTemplate": "graph-content",
		"DOT":             dot,
		"ClientID":        clientID,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Error("encode response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (s *Server) handleAPIClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.repo.ListClients(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	s.writeJSON(w, r, filterClients(clients, q.Get("q"), models.ClientStatus(q.Get("status"))))
}

func (s *Server) handleAPIDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.repo.ListDeals(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if stage := r.URL.Query().Get("stage"); stage != "" {
		st, err := models.ParseStage(stage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var filtered []models.Deal
		for _, d := range deals {
			if d.Stage == st {
				filtered = append(filtered, d)
			}
		}
		deals = filtered
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	s.writeJSON(w, r, deals)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := viz.GenerateDashboardStats(r.Context(), s.repo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, stats)
}
