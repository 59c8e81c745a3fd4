package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/delordemm1/matrimony-api/internal/cache"
	"github.com/delordemm1/matrimony-api/internal/config"
	"github.com/delordemm1/matrimony-api/internal/database"
	"github.com/delordemm1/matrimony-api/internal/modules/account"
	"github.com/delordemm1/matrimony-api/internal/modules/profile"
	"github.com/delordemm1/matrimony-api/internal/notification"
	"github.com/delordemm1/matrimony-api/internal/notification/templates"
	"github.com/delordemm1/matrimony-api/internal/ratelimit"
	"github.com/delordemm1/matrimony-api/internal/server"
	"github.com/delordemm1/matrimony-api/internal/session"
	"github.com/delordemm1/matrimony-api/internal/token"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// Options for the CLI.
type Options struct {
	Port          int           `help:"Port to listen on (overrides SERVER_PORT)" short:"p"`
	TemplatesDir  string        `help:"Load email templates from this directory instead of the embedded set"`
	PurgeInterval time.Duration `help:"How often expired tokens and sessions are purged (0 disables)" default:"1h"`
}

// app is everything main wires together.
type app struct {
	logger   *slog.Logger
	cfg      *config.Config
	pool     *pgxpool.Pool
	redis    *redis.Client
	limiter  ratelimit.Limiter
	accounts account.Service
	profiles profile.Service
	tokens   *token.Service
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Server.Env == "development" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func build(ctx context.Context, options *Options) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &app{cfg: cfg, logger: newLogger(cfg)}
	a.logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

	// --- Database & Cache ---
	a.pool = database.NewPostgresPool(cfg.Database.URL)
	a.logger.Info("successfully connected to postgres database")

	switch cfg.RateLimit.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.limiter = ratelimit.NewRedisLimiter(client, a.logger, nil)
		a.logger.Info("successfully connected to redis")
	default:
		a.limiter = ratelimit.NewMemoryLimiter(nil)
		a.logger.Warn("using in-process rate limiter; budgets are not shared between instances")
	}

	// --- Token Service ---
	tokens, err := token.NewService(token.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Issuer:        cfg.Auth.Issuer,
	}, session.NewPostgresStore(a.pool), a.logger)
	if err != nil {
		return nil, err
	}
	a.tokens = tokens

	// --- Notifications ---
	var sender notification.Sender = notification.LogSender{Log: a.logger}
	if cfg.SMTP.Host != "" {
		sender = notification.NewSMTPEmailSender(cfg.SMTP, a.logger)
	} else {
		a.logger.Warn("SMTP_HOST not set; emails are logged instead of sent")
	}
	engine := templates.NewEngine(templates.Config{
		Dir:    options.TemplatesDir,
		Reload: options.TemplatesDir != "" && cfg.Server.Env == "development",
	}, a.logger)
	notifier := notification.NewService(a.logger, engine, sender)

	// --- Module Initialization (Bottom-Up) ---

	// Profile Module
	a.profiles = profile.NewService(profile.NewRepository(a.pool), a.limiter, cfg, a.logger)

	// Account Module
	a.accounts, err = account.NewService(&account.Config{
		Repo:     account.NewRepository(a.pool),
		Tokens:   tokens,
		Notifier: notifier,
		Profiles: a.profiles,
		Logger:   a.logger,
		Config:   cfg,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) ready(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// purge removes expired tokens and sessions, and idle in-process counters.
func (a *app) purge(ctx context.Context) error {
	if _, err := a.accounts.PurgeExpiredTokens(ctx); err != nil {
		return err
	}
	if m, ok := a.limiter.(*ratelimit.MemoryLimiter); ok {
		a.logger.DebugContext(ctx, "rate limit counters swept", "count", m.Sweep())
	}
	return nil
}

func (a *app) runJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.purge(ctx); err != nil {
				a.logger.ErrorContext(ctx, "periodic purge failed", "error", err)
			}
		}
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		ctx, cancel := context.WithCancel(context.Background())

		a, err := build(ctx, options)
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}

		port := cfgPort(a.cfg, options)
		router := server.New(a.cfg, a.logger, server.Deps{
			Accounts: a.accounts,
			Profiles: a.profiles,
			Tokens:   a.tokens,
			Ready:    a.ready,
		})
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			go a.runJanitor(ctx, options.PurgeInterval)
			a.logger.Info(fmt.Sprintf("Starting server on port %s...", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Server failed to start", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			cancel()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("graceful shutdown failed", "error", err)
			}
			a.close()
		})
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired single-use tokens, OAuth states and sessions, then exit",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *Options) {
			a, err := build(cmd.Context(), options)
			if err != nil {
				slog.Error("failed to start", "error", err)
				os.Exit(1)
			}
			defer a.close()
			if err := a.purge(cmd.Context()); err != nil {
				a.logger.Error("purge failed", "error", err)
				os.Exit(1)
			}
		}),
	})

	cli.Run()
}

func cfgPort(cfg *config.Config, options *Options) string {
	if options.Port > 0 {
		return fmt.Sprint(options.Port)
	}
	return cfg.Server.Port
}
