package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opdemr/opdemr/internal/config"
	"github.com/opdemr/opdemr/internal/domain/admin"
	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/billing"
	"github.com/opdemr/opdemr/internal/domain/clinical"
	"github.com/opdemr/opdemr/internal/domain/diagnostics"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/domain/pharmacy"
	"github.com/opdemr/opdemr/internal/domain/reference"
	"github.com/opdemr/opdemr/internal/domain/scheduling"
	"github.com/opdemr/opdemr/internal/platform/auth"
	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/internal/platform/logging"
	"github.com/opdemr/opdemr/internal/platform/middleware"
	"github.com/opdemr/opdemr/migrations"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "opd-server",
		Short:         "OPD/EMR API server and maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(maintCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is what every command needs: config, logger and an open database.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	db     *db.DB
	closer io.Closer
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.closer.Close()
}

// setup loads config, builds the logger, opens the database and applies
// pending migrations.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, closer := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: cfg.IsDev(),
		File:    cfg.LogFile,
	})
	a := &app{cfg: cfg, log: logger, closer: closer}

	d, err := db.Open(ctx, db.Options{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = d
	logger.Info().Str("engine", d.Dialect().Name()).Msg("connected to database")

	if _, err := migrate(ctx, d, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func migrate(ctx context.Context, d *db.DB, logger zerolog.Logger) (int, error) {
	files, err := migrations.For(d.Dialect().Name())
	if err != nil {
		return 0, err
	}
	n, err := db.NewMigrator(d, files).Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration failed: %w", err)
	}
	if n > 0 {
		logger.Info().Int("applied", n).Msg("migrations applied")
	}
	return n, nil
}

// services holds every domain service, wired to one database.
type services struct {
	tokens      *auth.TokenIssuer
	audit       *audit.Service
	admin       *admin.Service
	identity    *identity.Service
	scheduling  *scheduling.Service
	clinical    *clinical.Service
	diagnostics *diagnostics.Service
	pharmacy    *pharmacy.Service
	billing     *billing.Service
	reference   *reference.Service
	loader      *reference.Loader
}

func newServices(d *db.DB, cfg *config.Config) *services {
	rec := audit.NewService(audit.NewRepoSQL(d))
	tokens := auth.NewTokenIssuer(cfg.SigningKey(), cfg.JWTTTL)
	ids := identity.NewService(d, identity.NewPatientRepoSQL(d), identity.NewDoctorRepoSQL(d), rec)
	appts := scheduling.NewService(d, scheduling.NewRepoSQL(d), ids, rec)
	cs := clinical.NewService(d, clinical.NewPrescriptionRepoSQL(d), clinical.NewNoteRepoSQL(d), ids, appts, rec)

	labTests := diagnostics.NewTestRepoSQL(d)
	templates := diagnostics.NewTemplateRepoSQL(d)
	lab := diagnostics.NewService(d, labTests, templates, diagnostics.NewOrderRepoSQL(d), cs, rec)

	items := pharmacy.NewItemRepoSQL(d)
	suppliers := pharmacy.NewSupplierRepoSQL(d)
	ph := pharmacy.NewService(d, items, pharmacy.NewBatchRepoSQL(d), suppliers, pharmacy.NewPurchaseRepoSQL(d),
		pharmacy.NewOrderRepoSQL(d), cs, rec)

	doses := reference.NewDosePatternRepoSQL(d)
	return &services{
		tokens:      tokens,
		audit:       rec,
		admin:       admin.NewService(d, admin.NewUserRepoSQL(d), tokens, cfg.BcryptCost, rec),
		identity:    ids,
		scheduling:  appts,
		clinical:    cs,
		diagnostics: lab,
		pharmacy:    ph,
		billing:     billing.NewService(d, billing.NewRepoSQL(d), ids, cs, lab, rec),
		reference:   reference.NewService(d, doses, rec),
		loader:      reference.NewLoader(d, doses, labTests, templates, suppliers, items, rec),
	}
}

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// newServer builds the echo instance: middleware chain, infrastructure
// endpoints and every domain's routes under /api.
func newServer(cfg *config.Config, logger zerolog.Logger, d *db.DB, svc *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(middleware.HeaderPolicy{HSTS: !cfg.IsDev(), NoStorePrefix: "/api"}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	if cfg.MetricsEnabled {
		m := middleware.NewMetrics()
		e.Use(m.Middleware())
		e.GET("/metrics", m.Handler())
	}

	// Auth middleware
	jwtCfg := auth.JWTConfig{Tokens: svc.tokens, Skipper: auth.AuthSkipper, Accounts: svc.admin}
	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(d))

	api := e.Group("/api")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	for _, h := range []routeRegistrar{
		admin.NewHandler(svc.admin),
		audit.NewHandler(svc.audit),
		identity.NewHandler(svc.identity),
		scheduling.NewHandler(svc.scheduling),
		clinical.NewHandler(svc.clinical),
		diagnostics.NewHandler(svc.diagnostics),
		pharmacy.NewHandler(svc.pharmacy),
		billing.NewHandler(svc.billing),
		reference.NewHandler(svc.reference, svc.loader),
	} {
		h.RegisterRoutes(api)
	}
	return e
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	a, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.log

	if a.cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth is active; requests without a token run as admin")
	}

	e := newServer(a.cfg, logger, a.db, newServices(a.db, a.cfg))

	go func() {
		addr := ":" + a.cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetInt("to")
			ctx := context.Background()
			cfg, d, closeFn, err := openRaw(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			files, err := migrations.For(d.Dialect().Name())
			if err != nil {
				return err
			}
			migrator := db.NewMigrator(d, files)
			var count int
			if to > 0 {
				count, err = migrator.UpTo(ctx, to)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) to %s.\n", count, redactURL(cfg.DatabaseURL))
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this migration version (0 applies all)")
	cmd.AddCommand(upCmd)

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, d, closeFn, err := openRaw(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			files, err := migrations.For(d.Dialect().Name())
			if err != nil {
				return err
			}
			statuses, err := db.NewMigrator(d, files).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})
	return cmd
}

// openRaw opens the database without applying migrations.
func openRaw(ctx context.Context) (*config.Config, *db.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := db.Open(ctx, db.Options{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, d, func() { d.Close() }, nil
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// redactURL hides the password in a postgres:// URL.
func redactURL(raw string) string {
	if !db.IsPostgresURL(raw) {
		return raw
	}
	if u, err := url.Parse(raw); err == nil {
		return u.Redacted()
	}
	return "postgres://..."
}
