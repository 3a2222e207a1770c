package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"moni/internal/cache"
	"moni/internal/core"
	"moni/internal/dashboard"
	"moni/internal/log"
	"moni/internal/middleware/ratelimit"
	"moni/internal/middleware/security"
	"moni/internal/middleware/trace"
	"moni/internal/patterns"
	"moni/internal/report"
	"moni/internal/storage"
)

type TransactionService interface {
	Create(ctx context.Context, t *core.Transaction) error
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, f storage.Filter) ([]core.Transaction, error)
}

type AccountsService interface {
	CreateCategory(ctx context.Context, c *core.Category) error
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	CreateAsset(ctx context.Context, a *core.Asset) error
	CreateLiability(ctx context.Context, l *core.Liability) error
	UpsertBudget(ctx context.Context, b *core.Budget) error
}

type InsightsService interface {
	Patterns(ctx context.Context, userID string) (patterns.Result, error)
	Snapshot(ctx context.Context, userID string) (storage.PatternSnapshot, error)
}

type ReportService interface {
	Generate(ctx context.Context, req report.Request) (*report.Document, error)
}

type DashboardService interface {
	MonthlySummary(ctx context.Context, userID string, year, month int) (dashboard.MonthlySummary, error)
	History(ctx context.Context, userID string, months int) ([]dashboard.HistoryPoint, error)
	NetWorth(ctx context.Context, userID string) (dashboard.NetWorth, error)
	BudgetProgress(ctx context.Context, userID string, year, month int) ([]dashboard.BudgetStatus, error)
}

// Pinger reports whether a dependency is reachable; used by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the API. Nil services answer 503.
type Deps struct {
	Transactions TransactionService
	Accounts     AccountsService
	Insights     InsightsService
	Reports      ReportService
	Dashboard    DashboardService
	Database     Pinger
	Cache        *cache.Store
}

type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps    Deps
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	started time.Time
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		deps:    deps,
		logger:  logger,
		limiter: ratelimit.NewLimiter(limitCfg),
		tracer:  trace.NewMiddleware(logger, security.ClientIP),
		started: time.Now(),
		now:     time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/assets", s.handleCreateAsset)
	mux.HandleFunc("/api/liabilities", s.handleCreateLiability)
	mux.HandleFunc("/api/budgets", s.handleBudgets)

	mux.HandleFunc("/api/insights/patterns", s.handlePatterns)
	mux.HandleFunc("/api/insights/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/reports", s.handleReport)

	mux.HandleFunc("/api/dashboard/summary", s.handleSummary)
	mux.HandleFunc("/api/dashboard/history", s.handleHistory)
	mux.HandleFunc("/api/dashboard/net-worth", s.handleNetWorth)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			trace.HeaderRequestID,
		},
		ExposedHeaders:   []string{trace.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	limited := s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
			Warn("Rate limit exceeded", log.FieldClientIP, security.ClientIP(r), log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	var handler http.Handler = mux
	handler = limited(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = c.Handler(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
