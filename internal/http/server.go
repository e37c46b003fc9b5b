package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/middleware/ratelimit"
	"finflow/internal/middleware/security"
	"finflow/internal/middleware/trace"
	"finflow/internal/services"
)

// Deps are the collaborators the API serves. Logger and Metrics may be nil;
// a zero RateLimitPerMinute disables the write limiter.
type Deps struct {
	Expenses    *services.ExpenseService
	Obligations *services.ObligationService
	Splits      *services.SplitService
	Logger      *log.Logger
	Metrics     *metrics.Metrics

	RateLimitPerMinute int
	TrustedProxies     []string
}

const apiPrefix = "/api"

type Server struct {
	http.Server

	expenses    *services.ExpenseService
	obligations *services.ObligationService
	splits      *services.SplitService
	metrics     *metrics.Metrics
	limiter     *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	proxies := deps.TrustedProxies
	if proxies == nil {
		proxies = security.DefaultTrustedProxies
	}
	resolver, err := security.NewIPResolver(proxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		expenses:    deps.Expenses,
		obligations: deps.Obligations,
		splits:      deps.Splits,
		metrics:     deps.Metrics,
	}

	router := mux.NewRouter()
	if deps.Logger != nil {
		router.Use(log.Middleware(deps.Logger))
	}
	router.Use(trace.NewMiddleware(resolver.ClientIP, deps.Metrics).Middleware)
	router.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if deps.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute})
		router.Use(s.limiter.Middleware(resolver.ClientIP, deps.Metrics))
	}
	s.routes(router)
	s.Handler = router
	return s, nil
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// API routes live on the root router: a subrouter with its own
	// NotFoundHandler answers 404 before mux can report a method mismatch.
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	api := func(path string) string { return apiPrefix + path }
	r.HandleFunc(api("/categories"), s.handleCategories).Methods(http.MethodGet)
	r.HandleFunc(api("/upcoming"), s.handleUpcoming).Methods(http.MethodGet)

	r.HandleFunc(api("/expenses"), s.handleListExpenses).Methods(http.MethodGet)
	r.HandleFunc(api("/expenses"), s.handleCreateExpense).Methods(http.MethodPost)
	r.HandleFunc(api("/expenses/stats/summary"), s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc(api("/expenses/{id}"), s.handleUpdateExpense).Methods(http.MethodPut)
	r.HandleFunc(api("/expenses/{id}"), s.handleDeleteExpense).Methods(http.MethodDelete)

	r.HandleFunc(api("/recurring"), s.handleListRecurring).Methods(http.MethodGet)
	r.HandleFunc(api("/recurring"), s.handleCreateRecurring).Methods(http.MethodPost)
	r.HandleFunc(api("/recurring/{id}"), s.handleDeleteRecurring).Methods(http.MethodDelete)
	r.HandleFunc(api("/recurring/{id}/toggle"), s.handleToggleRecurring).Methods(http.MethodPatch)
	r.HandleFunc(api("/recurring/{id}/fulfill"), s.handleFulfillRecurring).Methods(http.MethodPost)

	r.HandleFunc(api("/bills"), s.handleListBills).Methods(http.MethodGet)
	r.HandleFunc(api("/bills"), s.handleCreateBill).Methods(http.MethodPost)
	r.HandleFunc(api("/bills/{id}"), s.handleDeleteBill).Methods(http.MethodDelete)
	r.HandleFunc(api("/bills/{id}/pay"), s.handlePayBill).Methods(http.MethodPatch)
	r.HandleFunc(api("/bills/{id}/unpay"), s.handleUnpayBill).Methods(http.MethodPatch)
	r.HandleFunc(api("/bills/{id}/snooze"), s.handleSnoozeBill).Methods(http.MethodPatch)

	r.HandleFunc(api("/split"), s.handleListSplits).Methods(http.MethodGet)
	r.HandleFunc(api("/split"), s.handleCreateSplit).Methods(http.MethodPost)
	r.HandleFunc(api("/split/preview"), s.handlePreviewSplit).Methods(http.MethodPost)
	r.HandleFunc(api("/split/outstanding"), s.handleOutstanding).Methods(http.MethodGet)
	r.HandleFunc(api("/split/{id}"), s.handleUpdateSplit).Methods(http.MethodPut)
	r.HandleFunc(api("/split/{id}"), s.handleDeleteSplit).Methods(http.MethodDelete)
	r.HandleFunc(api("/split/{id}/member/{index}/pay"), s.handlePayMember).Methods(http.MethodPatch)
	r.HandleFunc(api("/split/{id}/member/{index}/unpay"), s.handleUnpayMember).Methods(http.MethodPatch)
	r.HandleFunc(api("/split/{id}/settle"), s.handleSettleSplit).Methods(http.MethodPatch)
	r.HandleFunc(api("/split/{id}/unsettle"), s.handleUnsettleSplit).Methods(http.MethodPatch)
}

// Shutdown stops the limiter cleanup and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
