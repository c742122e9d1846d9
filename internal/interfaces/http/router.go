package http

import (
	"io/fs"
	"net/http"

	"github.com/dreschagin/bench-history/internal/infrastructure/observability/promexport"
	"github.com/dreschagin/bench-history/internal/interfaces/http/handler"
	"github.com/dreschagin/bench-history/internal/interfaces/http/middleware"
	"github.com/dreschagin/bench-history/pkg/config"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux                *http.ServeMux
	runsAPIHandler     *handler.RunsAPIHandler
	trendsAPIHandler   *handler.TrendsAPIHandler
	dataFileAPIHandler *handler.DataFileAPIHandler
	websocketHandler   *handler.WebSocketHandler
	authAPIHandler     *handler.AuthAPIHandler
	metrics            *promexport.Metrics
	ingestLimiter      *middleware.IPRateLimiter
	security           config.SecurityConfig
	logger             *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	runsAPIHandler *handler.RunsAPIHandler,
	trendsAPIHandler *handler.TrendsAPIHandler,
	dataFileAPIHandler *handler.DataFileAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	authAPIHandler *handler.AuthAPIHandler,
	metrics *promexport.Metrics,
	ingestLimiter *middleware.IPRateLimiter,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		runsAPIHandler:     runsAPIHandler,
		trendsAPIHandler:   trendsAPIHandler,
		dataFileAPIHandler: dataFileAPIHandler,
		websocketHandler:   websocketHandler,
		authAPIHandler:     authAPIHandler,
		metrics:            metrics,
		ingestLimiter:      ingestLimiter,
		security:           security,
		logger:             logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Static assets are embedded into the binary.
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("failed to initialize embedded static assets: " + err.Error())
	}
	rt.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Prometheus scrape endpoint
	rt.mux.Handle("/metrics", rt.metrics.Handler())

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.metrics.AuthFailures, rt.logger)

	// Index page
	rt.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		body, err := fs.ReadFile(staticFiles, "static/index.html")
		if err != nil {
			http.Error(w, "Failed to load page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	})

	// Data file для дашборда, сжатие выгодно на больших историях
	rt.mux.Handle("/data.js", middleware.Compression(http.HandlerFunc(rt.dataFileAPIHandler.ServeDataFile)))

	// WebSocket
	rt.mux.Handle("/ws", authMiddleware(http.HandlerFunc(rt.websocketHandler.HandleConnection)))

	// API endpoints
	rt.mux.HandleFunc("/api/v1/auth/login", rt.authAPIHandler.Login)
	rt.mux.HandleFunc("/api/v1/auth/logout", rt.authAPIHandler.Logout)
	rt.mux.HandleFunc("/api/v1/auth/status", rt.authAPIHandler.Status)

	runsHandler := authMiddleware(http.HandlerFunc(rt.runsAPIHandler.HandleRuns))
	if rt.ingestLimiter != nil {
		runsHandler = authMiddleware(middleware.RateLimit(rt.ingestLimiter, rt.metrics.RateLimitDropped)(http.HandlerFunc(rt.runsAPIHandler.HandleRuns)))
	}
	rt.mux.Handle("/api/v1/runs", runsHandler)
	rt.mux.Handle("/api/v1/runs/history", authMiddleware(http.HandlerFunc(rt.runsAPIHandler.GetHistory)))
	rt.mux.Handle("/api/v1/runs/suites", authMiddleware(http.HandlerFunc(rt.runsAPIHandler.GetSuites)))

	rt.mux.Handle("/api/v1/trends", authMiddleware(http.HandlerFunc(rt.trendsAPIHandler.GetTrend)))

	rt.mux.Handle("/api/v1/datafile/export", authMiddleware(http.HandlerFunc(rt.dataFileAPIHandler.Export)))
	rt.mux.Handle("/api/v1/datafile/import", authMiddleware(http.HandlerFunc(rt.dataFileAPIHandler.Import)))
	rt.mux.Handle("/api/v1/datafile/snapshots", authMiddleware(http.HandlerFunc(rt.dataFileAPIHandler.ListSnapshots)))

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = rt.metrics.Middleware(handler)
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}
