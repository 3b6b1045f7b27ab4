package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/category"
	"github.com/boddenberg/ledger-bot-go/internal/command"
	"github.com/boddenberg/ledger-bot-go/internal/config"
	"github.com/boddenberg/ledger-bot-go/internal/handler"
	"github.com/boddenberg/ledger-bot-go/internal/infra/cache"
	"github.com/boddenberg/ledger-bot-go/internal/infra/client"
	"github.com/boddenberg/ledger-bot-go/internal/infra/memstore"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-bot-go/internal/infra/supabase"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/service"

	"go.uber.org/zap"
)

// accessTokenTTL stays under the 7200s lifetime WeChat grants a token.
const accessTokenTTL = 7000 * time.Second

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("dedup_ttl", cfg.DedupTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("retention_days", cfg.RetentionDays),
	)

	if cfg.WeChatToken == "" {
		logger.Warn("WECHAT_TOKEN is empty: every webhook request will be rejected")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "ledger-bot")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	dedup := cache.New[string](cfg.DedupTTL)
	tokens := cache.New[string](accessTokenTTL)
	nicknames := cache.New[string](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var store port.LedgerStore
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as ledger store",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			bulkhead,
			logger,
		)
	} else {
		logger.Warn("Supabase not configured: using in-memory store, data is lost on restart")
		store = memstore.New()
	}

	var names port.NicknameResolver
	if cfg.WeChatAppID != "" && cfg.WeChatAppSecret != "" {
		names = client.NewWeChatClient(
			httpClient,
			cfg.WeChatAPIURL,
			cfg.WeChatAppID,
			cfg.WeChatAppSecret,
			tokens,
			nicknames,
			resilience.NewCircuitBreaker("wechat"),
			resilienceCfg,
			metrics,
			logger,
		)
		logger.Info("wechat nickname lookup enabled")
	} else {
		logger.Warn("WECHAT_APPID/WECHAT_APPSECRET not set: display names fall back to openid prefixes")
	}

	exportSecret := cfg.ExportSecret
	if exportSecret == "" {
		exportSecret = randomSecret()
		logger.Warn("EXPORT_SECRET is empty: generated a random one, export links will not survive a restart")
	}

	// --- Services ---
	periods := period.NewResolver(cfg.Location(), time.Now)
	categories := category.NewResolver(category.DefaultTable())

	archiver := service.NewArchiver(store, periods, service.ArchiveConfig{
		RetentionDays: cfg.RetentionDays,
		BatchSize:     cfg.ArchiveBatchSize,
	}, metrics, logger)
	ledger := service.NewLedger(store, archiver, periods, categories, logger)
	debts := service.NewDebtLedger(store, periods, logger)
	exporter := service.NewExporter(store, periods,
		service.NewExportSigner(exportSecret, cfg.ExportLinkTTL, time.Now), logger)
	bot := service.NewBot(command.New(categories), ledger, debts, exporter, names,
		cfg.PublicBaseURL, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Bot:         bot,
		Exporter:    exporter,
		Store:       store,
		Dedup:       dedup,
		WeChatToken: cfg.WeChatToken,
		Metrics:     metrics,
		Logger:      logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
