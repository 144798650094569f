package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/config"
	"github.com/tumioparbe/web/internal/guard"
	webhttp "github.com/tumioparbe/web/internal/http"
	"github.com/tumioparbe/web/internal/http/handlers"
	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/middleware"
	"github.com/tumioparbe/web/internal/registration"
	"github.com/tumioparbe/web/internal/storage"
	"github.com/tumioparbe/web/internal/storage/memory"
	"github.com/tumioparbe/web/internal/storage/postgres"
	"github.com/tumioparbe/web/internal/storage/redisstore"
	"github.com/tumioparbe/web/internal/tokens"
	"github.com/tumioparbe/web/internal/view"
)

func main() {
	// env vars already set win over .env
	_ = godotenv.Load(".env")

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting web", slog.String("env", cfg.Env))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	backend, err := openStorage(rootCtx, cfg.Storage, log)
	if err != nil {
		log.Error("storage_init_failed", slog.String("driver", cfg.Storage.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			log.Warn("storage_close_failed", slog.String("err", cerr.Error()))
		}
	}()
	log.Info("storage_ready", slog.String("driver", cfg.Storage.Driver))

	views, err := view.New()
	if err != nil {
		log.Error("templates_parse_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	m := metrics.New()
	client := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Metrics: m,
	})

	formLimiter := middleware.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.FormPosts)
	defer formLimiter.Stop()
	otpLimiter := middleware.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.OTPPerPhone)
	defer otpLimiter.Stop()

	h := handlers.New(handlers.Options{
		Views:      views,
		Guard:      guard.New(client, m),
		Metrics:    m,
		OTPLimiter: otpLimiter,
		Registration: registration.Config{
			ResendCooldown: cfg.Registration.ResendCooldown,
			DefaultOTPTTL:  cfg.Registration.OTPTTL,
		},
	})

	router := webhttp.NewRouter(webhttp.Deps{
		Logger:   log,
		Metrics:  m,
		Handlers: h,
		Storage:  backend,
		API:      client,
		Browser: browser.Config{
			Cookies: tokens.CookieConfig{
				AccessTTL:  cfg.Cookies.AccessTTL,
				RefreshTTL: cfg.Cookies.RefreshTTL,
				Secure:     cfg.Cookies.Secure,
			},
			IDTTL: cfg.Storage.TTL,
		},
		GuardPrefixes: cfg.Guard.Prefixes,
		FormLimiter:   formLimiter,
		TrustProxy:    cfg.HTTP.TrustProxy,
	})

	// No WriteTimeout: the registration countdown is a long-lived stream.
	httpAddr := cfg.HTTP.Addr()
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	srv.RegisterOnShutdown(h.Close)

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage builds the client storage backend named by the driver.
func openStorage(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (storage.Backend, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "redis":
		return redisstore.Open(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.TTL)
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		go pruneLoop(ctx, pg, cfg.TTL, cfg.PruneEvery, log)
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// pruneLoop deletes client storage rows untouched for longer than ttl.
func pruneLoop(ctx context.Context, pg *postgres.Backend, ttl, every time.Duration, log *slog.Logger) {
	if every <= 0 || ttl <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := pg.Prune(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Warn("storage_prune_failed", slog.String("err", err.Error()))
				continue
			}
			if n > 0 {
				log.Info("storage_pruned", slog.Int64("rows", n))
			}
		}
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
