package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expenses/internal/backend"
	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	"expenses/internal/log"
	"expenses/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("info", "text"))
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	cancelStart()
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpStartup).WithErrorType(log.ErrorTypeDatabase).WithError(err)
		fields["backend"] = cfg.DataBackend
		logger.Error("Failed to initialize backend", fields.ToSlice()...)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		CORSOrigin:         cfg.CORSOrigin,
		ImportMaxBytes:     cfg.ImportMaxBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      cfg.SecureCookies,
		TrustedProxies:     cfg.TrustedProxies,
	}, apphttp.Dependencies{
		Expenses: services.NewExpenseService(res.Store, res.Cache, res.Publisher, logger, cfg.CacheTTL),
		Auth:     services.NewAuthService(res.Store, cfg.JWTSecret, cfg.TokenTTL, logger),
		Activity: services.NewActivityService(res.Store),
		Health:   res.Store,
		Logger:   logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting expenses server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"cache", cfg.CacheBackend,
		"events_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
