// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/handler"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/notify"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/Shivanand-hulikatti/campus-events/internal/sweeper"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "campus-events",
		Short:        "Campus event proposals, approvals and registrations",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), sweepCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the completion sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), serve)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening the store applies pending migrations.
			return withApp(cmd.Context(), func(_ context.Context, a *app) error {
				a.log.Info().Str("driver", a.cfg.DB.Driver).Msg("migrations applied")
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete every approved event that has started, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				_, err := sweeper.New(a.events, a.cfg.SweepInterval, a.log).RunOnce(ctx)
				return err
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// app holds the wired service graph.
type app struct {
	cfg      config.Config
	log      *zerolog.Logger
	metrics  *metrics.Metrics
	tokens   *auth.Tokens
	events   *service.EventService
	register *service.RegistrationCoordinator
	clubs    *service.ClubService
	users    *service.UserService
}

// withApp loads configuration, connects to storage and the broker, runs fn
// and releases everything afterwards.
func withApp(parent context.Context, fn func(context.Context, *app) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stdout)

	// ── 1. Connect to storage ─────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Notifications ──────────────────────────────────────────────────
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.AMQP.URL != "" {
		pub, err := notify.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer pub.Close()
		notifier = pub
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("publishing notifications to amqp")
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	m := metrics.New()
	tokens := auth.NewTokens(cfg.Auth, time.Now)
	a := &app{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		tokens:   tokens,
		events:   service.NewEventService(store, notifier, m, log, cfg.Policy, time.Now),
		register: service.NewRegistrationCoordinator(store, notifier, m, log, cfg.Policy, time.Now),
		clubs:    service.NewClubService(store, log, time.Now),
		users:    service.NewUserService(store, tokens, cfg.Auth.AdminEmails, log, time.Now),
	}
	return fn(ctx, a)
}

func openStore(ctx context.Context, cfg config.Config, log *zerolog.Logger) (repository.Store, func(), error) {
	switch strings.ToLower(cfg.DB.Driver) {
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		log.Info().Str("path", cfg.DB.SQLitePath).Msg("opened sqlite store")
		return s, func() { _ = s.Close() }, nil
	default:
		pool, err := database.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		s := repository.NewPostgres(pool, log)
		return s, func() { _ = s.Close() }, nil
	}
}

func newLogger(cfg config.Config, w io.Writer) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log := zerolog.New(w).Level(level).With().Timestamp().Str("service", "campus-events").Logger()
	return &log
}

func serve(ctx context.Context, a *app) error {
	router := handler.NewRouter(handler.Deps{
		Events:         a.events,
		Registrations:  a.register,
		Clubs:          a.clubs,
		Users:          a.users,
		Tokens:         a.tokens,
		Metrics:        a.metrics,
		Log:            a.log,
		AllowedOrigins: a.cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	sw := sweeper.New(a.events, a.cfg.SweepInterval, a.log)
	sw.Start(ctx)
	defer sw.Stop()

	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Block until SIGINT, SIGTERM or a sibling failure.
		<-ctx.Done()
		sw.Stop()
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		a.log.Info().Msg("server stopped")
		return nil
	})
	return g.Wait()
}
