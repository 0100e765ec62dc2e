// Command subledgerd serves a subscription ledger over HTTP.
//
// Usage:
//
//	subledgerd            run the server
//	subledgerd token ID   print a bearer token for identity ID
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/api"
	assetmem "github.com/xraph/subledger/asset/memory"
	audithook "github.com/xraph/subledger/audit_hook"
	"github.com/xraph/subledger/authz"
	"github.com/xraph/subledger/internal/config"
	"github.com/xraph/subledger/observability"
	"github.com/xraph/subledger/registry"
	redisreg "github.com/xraph/subledger/registry/redis"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/types"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	auth, err := api.NewAuthenticator([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("jwt", "error", err)
		os.Exit(2)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(auth, os.Args[2:]); err != nil {
			logger.Error("token", "error", err)
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, auth, logger); err != nil {
		logger.Error("subledgerd stopped", "error", err)
		os.Exit(1)
	}
}

func printToken(auth *api.Authenticator, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: subledgerd token <identity>")
	}
	tok, err := auth.Issue(types.Address(args[0]))
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func run(ctx context.Context, cfg config.AppConfig, auth *api.Authenticator, logger *slog.Logger) error {
	opts, cleanup, err := ledgerOptions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(promReg))
	audit := audithook.New(auditRecorder(logger), audithook.WithLogger(logger))
	opts = append(opts, subledger.WithPlugin(metrics), subledger.WithPlugin(audit))

	usd := assetmem.New()
	l := subledger.New(memory.New(), usd, opts...)
	if err := l.Start(ctx); err != nil {
		return fmt.Errorf("start ledger: %w", err)
	}
	defer func() {
		if err := l.Stop(); err != nil {
			logger.Warn("stop ledger", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger))

	h := api.NewHandler(l, logger)
	h.Routes(r, auth)
	if cfg.Sandbox {
		logger.Warn("sandbox faucet enabled")
		h.SandboxRoutes(r, auth, usd)
	}
	r.GET(cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{Registry: promReg})))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("subledgerd listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// ledgerOptions translates the configuration into ledger options. cleanup
// releases any connections opened along the way.
func ledgerOptions(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) ([]subledger.Option, func(), error) {
	cleanup := func() {}

	custody, err := types.ParseAddress(cfg.Custody)
	if err != nil {
		return nil, cleanup, fmt.Errorf("custody: %w", err)
	}
	treasury, err := types.ParseAddress(cfg.Treasury)
	if err != nil {
		return nil, cleanup, fmt.Errorf("treasury: %w", err)
	}

	policy := authz.NewPolicy()
	for _, raw := range cfg.Operators {
		op, err := types.ParseAddress(raw)
		if err != nil {
			return nil, cleanup, fmt.Errorf("operator %q: %w", raw, err)
		}
		policy.Grant(op, authz.PermOperator)
	}

	opts := []subledger.Option{
		subledger.WithLogger(logger),
		subledger.WithPolicy(policy),
		subledger.WithCustody(custody),
		subledger.WithTreasury(treasury),
		subledger.WithPlatformFee(cfg.PlatformFeeBps),
	}

	reg, closeReg, err := providerRegistry(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if reg != nil {
		logger.Info("provider registry on redis", "addr", cfg.RedisAddr)
		opts = append(opts, subledger.WithRegistry(reg))
		cleanup = closeReg
	}

	return opts, cleanup, nil
}

func providerRegistry(ctx context.Context, cfg config.AppConfig) (registry.Registry, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	reg := redisreg.New(client, redisreg.WithPrefix(cfg.RedisPrefix))
	if err := reg.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, func() {}, fmt.Errorf("redis: %w", err)
	}

	return reg, func() { _ = client.Close() }, nil
}

// auditRecorder writes audit events to the structured log.
func auditRecorder(logger *slog.Logger) audithook.RecorderFunc {
	return func(ctx context.Context, ev *audithook.AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"outcome", ev.Outcome,
			"severity", ev.Severity,
			"reason", ev.Reason,
			"metadata", ev.Metadata,
		)
		return nil
	}
}
