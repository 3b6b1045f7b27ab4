package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// maxBodyBytes caps inbound webhook bodies.
const maxBodyBytes = 64 << 10

// Deps are the collaborators the router serves.
type Deps struct {
	Bot         *service.Bot
	Exporter    *service.Exporter
	Store       port.LedgerStore
	Dedup       port.Cache[string]
	WeChatToken string
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Store, d.Logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- WeChat webhook ---
	r.Route("/api/wechat", func(r chi.Router) {
		r.Use(WeChatSignatureMiddleware(d.WeChatToken, d.Logger))
		r.Get("/", wechatVerifyHandler())
		r.Post("/", wechatMessageHandler(d.Bot, d.Dedup, d.Metrics, d.Logger))
	})

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/export", exportHandler(d.Exporter, d.Logger))
		r.Get("/metrics/ledger", ledgerMetricsHandler(d.Metrics))
	})

	return r
}

// healthzHandler reports the process and, when configured, the store.
func healthzHandler(store port.LedgerStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "ledger-bot", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			_, err := store.ListRecords(r.Context(), domain.RecordFilter{Limit: 1})
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("healthz: store check failed", observability.Diagnostic(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}
