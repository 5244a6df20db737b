package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foruapp/foru/internal/api"
	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/catalog"
	"github.com/foruapp/foru/internal/config"
	"github.com/foruapp/foru/internal/db"
	"github.com/foruapp/foru/internal/drafts"
	"github.com/foruapp/foru/internal/email"
	"github.com/foruapp/foru/internal/imagegen"
	"github.com/foruapp/foru/internal/ratelimit"
	"github.com/foruapp/foru/internal/store"
	"github.com/foruapp/foru/internal/web"
)

// cleanupInterval is how often expired refresh sessions and revoked token
// entries are purged.
const cleanupInterval = time.Hour

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("foru", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.MasterEmail, "master", cfg.MasterEmail, "")
	fs.StringVar(&cfg.MasterEmail, "m", cfg.MasterEmail, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: foru [flags]

Flags:
  -d, -db <path>          SQLite database path (default: foru.sqlite3, env FORU_DB)
  -a, -addr <host:port>   listen address (default: :8080, env FORU_ADDR)
  -m, -master <email>     account that is always owner (env FORU_MASTER_EMAIL)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Other settings are read from the environment; see internal/config.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// The JWT secret is generated on first run and kept in the database.
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	var draftStore drafts.Store
	if cfg.RedisURL != "" {
		rs, err := drafts.NewRedisStore(cfg.RedisURL, cfg.DraftTTL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rs.Close()
		draftStore = rs
		slog.Info("drafts stored in redis")
	} else {
		draftStore = drafts.NewMemoryStore(cfg.DraftTTL)
		slog.Info("drafts stored in memory")
	}

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, nil)
	if !mailer.IsConfigured() {
		slog.Warn("SMTP is not configured, share notifications will fail")
	}

	var google *auth.Google
	if cfg.GoogleEnabled() {
		google = auth.NewGoogle(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL(),
		})
	} else {
		slog.Warn("Google sign-in is not configured")
	}

	authSvc := &auth.Service{
		DB:          database,
		Secret:      jwtSecret,
		MasterEmail: cfg.MasterEmail,
		AccessTTL:   cfg.AccessTTL,
		RefreshTTL:  cfg.RefreshTTL,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
	flowers := catalog.Default()

	apiRouter := api.NewRouter(api.Deps{
		DB:            database,
		Auth:          authSvc,
		Catalog:       flowers,
		Drafts:        &drafts.Service{Store: draftStore, Flowers: flowers, MaxItems: cfg.MaxItems},
		Email:         mailer,
		Images:        imagegen.New(cfg.ImageAPIURL),
		Limiter:       limiter,
		BaseURL:       cfg.BaseURL,
		MaxItems:      cfg.MaxItems,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.SecureCookies(),
	})
	webRouter, err := web.NewRouter(web.Deps{
		DB:            database,
		Auth:          authSvc,
		Google:        google,
		Catalog:       flowers,
		MaxItems:      cfg.MaxItems,
		SecureCookies: cfg.SecureCookies(),
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /healthz", api.Health(database))
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, database)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Addr, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// cleanupLoop purges expired session state until ctx is cancelled.
func cleanupLoop(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		purgeExpired(ctx, database)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func purgeExpired(ctx context.Context, database *sql.DB) {
	n, err := store.DeleteExpiredRefreshSessions(ctx, database)
	if err != nil {
		slog.Error("failed to delete expired refresh sessions", "error", err)
	} else if n > 0 {
		slog.Info("expired refresh sessions deleted", "count", n)
	}
	if err := store.PurgeRevokedTokens(ctx, database); err != nil {
		slog.Error("failed to purge revoked tokens", "error", err)
	}
}
