package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valuta-service/internal/adapter/cache"
	httpRouter "valuta-service/internal/adapter/http"
	"valuta-service/internal/adapter/provider"
	"valuta-service/internal/config"
	"valuta-service/internal/domain/model"
	"valuta-service/internal/metrics"
	"valuta-service/internal/resilience"
	"valuta-service/internal/service"
	"valuta-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

func main() {
	bootLog := logger.NewLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig(bootLog)
	if err != nil {
		bootLog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info("Starting currency service")

	decimal.MarshalJSONWithoutQuotes = true

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	registry := provider.NewRegistry(provider.RegistryConfig{
		FrankfurterURL: cfg.Provider.FrankfurterURL,
		Timeout:        cfg.Provider.Timeout,
		Resilience: resilience.Config{
			MaxRetries:       cfg.Resilience.MaxRetries,
			BaseDelay:        cfg.Resilience.BaseDelay,
			FailureThreshold: cfg.Resilience.FailureThreshold,
			BreakDuration:    cfg.Resilience.BreakDuration,
			OnStateChange: func(name string, _, to gobreaker.State) {
				appMetrics.SetCircuitState(name, to)
			},
		},
	}, log)

	selector, err := provider.NewSelector(cfg.Provider.Default, registry)
	if err != nil {
		log.Error("Failed to build provider selector", "error", err)
		os.Exit(1)
	}
	for _, name := range selector.ListProviders() {
		appMetrics.SetCircuitState(name, gobreaker.StateClosed)
	}

	rateCache := cache.NewMemoryCache(log)
	restricted := model.NewRestrictedSet(cfg.Currency.Restricted...)

	currencyService := service.NewCurrencyService(selector, rateCache, restricted, log,
		service.WithProvider(cfg.Provider.Default),
		service.WithTTLs(cfg.Cache.LatestTTL, cfg.Cache.ConversionTTL, cfg.Cache.HistoricalTTL),
		service.WithDefaultPageSize(cfg.Currency.DefaultPageSize),
		service.WithMetrics(appMetrics),
	)

	if len(cfg.Auth.Users) == 0 {
		log.Warn("No users configured, every login will be rejected")
	}
	auth := httpRouter.NewAuthenticator(cfg.Auth, log)

	var limiter *httpRouter.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httpRouter.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, log, appMetrics)
	}

	handler := httpRouter.NewHandler(currencyService, log, appMetrics)
	router := httpRouter.NewRouter(handler, auth, limiter, log, appMetrics, prometheus.DefaultGatherer)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancelJanitor := context.WithCancel(context.Background())
	go runJanitor(ctx, rateCache, limiter, cfg.Cache.CleanupInterval, cfg.RateLimit.Window, log)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port, "provider", cfg.Provider.Default)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	cancelJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

// runJanitor evicts expired cache entries and idle rate limiters.
func runJanitor(ctx context.Context, rateCache *cache.MemoryCache, limiter *httpRouter.RateLimiter, interval, limiterIdle time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := rateCache.ClearExpired(ctx); err != nil {
				log.Error("Failed to clear expired cache entries", "error", err)
			}
			if limiter != nil {
				if removed := limiter.Sweep(limiterIdle); removed > 0 {
					log.Debug("Removed idle rate limiters", "count", removed)
				}
			}
		case <-ctx.Done():
			log.Info("Stopping cache janitor")
			return
		}
	}
}
