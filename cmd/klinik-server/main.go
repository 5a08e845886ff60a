package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/klinik/klinik/internal/config"
	"github.com/klinik/klinik/internal/domain/anthropometry"
	"github.com/klinik/klinik/internal/domain/finance"
	"github.com/klinik/klinik/internal/domain/inventory"
	"github.com/klinik/klinik/internal/domain/masterdata"
	"github.com/klinik/klinik/internal/domain/medicalrecord"
	"github.com/klinik/klinik/internal/domain/patient"
	"github.com/klinik/klinik/internal/domain/queue"
	"github.com/klinik/klinik/internal/domain/vitals"
	"github.com/klinik/klinik/internal/platform/auth"
	"github.com/klinik/klinik/internal/platform/db"
	"github.com/klinik/klinik/internal/platform/metrics"
	"github.com/klinik/klinik/internal/platform/middleware"
	"github.com/klinik/klinik/internal/platform/realtime"
	"github.com/klinik/klinik/internal/platform/reporting"
	"github.com/klinik/klinik/internal/platform/sequence"
	"github.com/klinik/klinik/migrations"
)

const (
	version        = "0.1.0"
	redisKeyPrefix = "klinik:seq:"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "klinik-server",
		Short:        "Clinic management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(mrnCmd())
	rootCmd.AddCommand(vitalsCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
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
			dir, _ := cmd.Flags().GetString("dir")
			ctx := cmd.Context()
			migrator, closePool, err := openMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := cmd.Context()
			migrator, closePool, err := openMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func openMigrator(ctx context.Context, dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	if dir != "" {
		return db.NewMigrator(pool, os.DirFS(dir)), pool.Close, nil
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func printMigrationStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token with JWT_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, _ := cmd.Flags().GetString("sub")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, err := auth.IssueToken([]byte(cfg.JWTSigningKey), cfg.AuthIssuer, sub, roles, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issueCmd.Flags().String("sub", "", "Subject (user id) of the token")
	issueCmd.Flags().StringSlice("role", nil, "Role to grant; repeat or comma-separate")
	issueCmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	_ = issueCmd.MarkFlagRequired("sub")
	cmd.AddCommand(issueCmd)

	return cmd
}

func mrnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mrn",
		Short: "Medical record number helpers",
	}

	formatCmd := &cobra.Command{
		Use:   "format",
		Short: "Print the medical record number for a category and sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			seq, _ := cmd.Flags().GetInt("seq")
			year, _ := cmd.Flags().GetInt("year")

			cat := patient.TreatmentCategory(category)
			if !cat.Valid() {
				return fmt.Errorf("unknown category %q (want %s or %s)", category, patient.CategoryUmum, patient.CategorySirkumsisi)
			}
			if seq < 1 {
				return fmt.Errorf("seq must be at least 1, got %d", seq)
			}
			if year == 0 {
				year = time.Now().Year()
			}
			fmt.Fprintln(cmd.OutOrStdout(), patient.FormatMedicalRecordNumber(cat, seq, year))
			return nil
		},
	}
	formatCmd.Flags().String("category", string(patient.CategoryUmum), "Treatment category: umum or sirkumsisi")
	formatCmd.Flags().Int("seq", 0, "Sequence number within the category")
	formatCmd.Flags().Int("year", 0, "Registration year (default current year)")
	_ = formatCmd.MarkFlagRequired("seq")
	cmd.AddCommand(formatCmd)

	return cmd
}

func vitalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vitals",
		Short: "Vital sign helpers",
	}

	interpretCmd := &cobra.Command{
		Use:   "interpret",
		Short: "Classify a set of vital signs and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var vs vitals.VitalSigns
			vs.BloodPressureSystolic, _ = cmd.Flags().GetInt("sys")
			vs.BloodPressureDiastolic, _ = cmd.Flags().GetInt("dia")
			vs.Pulse, _ = cmd.Flags().GetInt("pulse")
			vs.SpO2, _ = cmd.Flags().GetFloat64("spo2")
			vs.Temperature, _ = cmd.Flags().GetFloat64("temp")
			if err := vitals.Validate(vs); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(vitals.Interpret(vs))
		},
	}
	interpretCmd.Flags().Int("sys", 0, "Systolic blood pressure (mmHg)")
	interpretCmd.Flags().Int("dia", 0, "Diastolic blood pressure (mmHg)")
	interpretCmd.Flags().Int("pulse", 0, "Pulse (beats per minute)")
	interpretCmd.Flags().Float64("spo2", 0, "Oxygen saturation (%)")
	interpretCmd.Flags().Float64("temp", 0, "Body temperature (°C)")
	for _, f := range []string{"sys", "dia", "pulse", "spo2", "temp"} {
		_ = interpretCmd.MarkFlagRequired(f)
	}
	cmd.AddCommand(interpretCmd)

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.NewLogger(os.Stdout)

	ctx := context.Background()
	srv, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Str("sequence", cfg.SequenceDriver).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// app is a fully wired server. Close releases the pool, the redis client
// and the MQTT connection, whichever were opened.
type app struct {
	echo    *echo.Echo
	hub     *realtime.Hub
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repositories struct {
	patients patient.Repository
	queue    queue.Repository
	records  medicalrecord.Repository
	finance  finance.Repository
	stock    inventory.Repository
	master   masterdata.Repository
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	if cfg.StoreDriver == config.DriverPostgres {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info().Msg("connected to database")
	}

	repos := newRepositories(pool)

	seq, err := newSequenceStore(cfg, pool, a)
	if err != nil {
		return fail(err)
	}

	// Realtime: websocket hub, mirrored to MQTT when a broker is configured.
	a.hub = realtime.NewHub(logger)
	var notifier queue.Notifier = a.hub
	if cfg.MQTTBroker != "" {
		pub, err := realtime.NewMQTTPublisher(realtime.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTPrefix,
		}, logger)
		if err != nil {
			// Displays fall back to the websocket feed.
			logger.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("mqtt unavailable, publishing to websocket clients only")
		} else {
			a.closers = append(a.closers, pub.Close)
			notifier = realtime.Fanout{a.hub, pub}
		}
	}

	// Services
	patientSvc := patient.NewService(repos.patients, seq, loc, logger)
	queueSvc := queue.NewService(repos.queue, seq, patientSvc, notifier, loc, logger)
	recordSvc := medicalrecord.NewService(repos.records, patientSvc, queueSvc, logger)
	financeSvc := finance.NewService(repos.finance, loc, logger)
	inventorySvc := inventory.NewService(repos.stock, cfg.StrictStock, logger)
	masterSvc := masterdata.NewService(repos.master, inventorySvc, loc, logger)
	queueSvc.SetDoctors(masterSvc)
	patientSvc.SetDiagnosisCatalog(masterSvc)
	reportSvc := reporting.NewService(queueSvc, recordSvc, financeSvc, patientSvc, loc)

	if err := patientSvc.SeedSequences(ctx); err != nil {
		return fail(fmt.Errorf("seed medical record numbers: %w", err))
	}
	if err := queueSvc.SeedSequence(ctx); err != nil {
		return fail(fmt.Errorf("seed queue numbers: %w", err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	a.echo = e

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	// Auth middleware
	authCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.JWTSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(authCfg))
	} else {
		e.Use(auth.JWTMiddleware(authCfg))
	}

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.StoreDriver,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}
	e.GET("/metrics", metrics.Handler())

	// API
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	queue.NewHandler(queueSvc).RegisterRoutes(apiV1)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(apiV1)
	finance.NewHandler(financeSvc).RegisterRoutes(apiV1)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)
	masterdata.NewHandler(masterSvc).RegisterRoutes(apiV1)
	vitals.NewHandler().RegisterRoutes(apiV1)
	anthropometry.NewHandler().RegisterRoutes(apiV1)
	reporting.NewHandler(reportSvc).RegisterRoutes(apiV1)
	realtime.NewHandler(a.hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return a, nil
}

func newRepositories(pool *pgxpool.Pool) repositories {
	if pool == nil {
		return repositories{
			patients: patient.NewMemoryRepo(),
			queue:    queue.NewMemoryRepo(),
			records:  medicalrecord.NewMemoryRepo(),
			finance:  finance.NewMemoryRepo(),
			stock:    inventory.NewMemoryRepo(),
			master:   masterdata.NewMemoryRepo(),
		}
	}
	return repositories{
		patients: patient.NewRepoPG(pool),
		queue:    queue.NewRepoPG(pool),
		records:  medicalrecord.NewRepoPG(pool),
		finance:  finance.NewRepoPG(pool),
		stock:    inventory.NewRepoPG(pool),
		master:   masterdata.NewRepoPG(pool),
	}
}

func newSequenceStore(cfg *config.Config, pool *pgxpool.Pool, a *app) (sequence.Store, error) {
	switch cfg.SequenceDriver {
	case config.DriverPostgres:
		if pool == nil {
			return nil, errors.New("postgres sequence store needs STORE_DRIVER=postgres")
		}
		return sequence.NewPostgresStore(pool), nil
	case config.DriverRedis:
		client, err := sequence.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return sequence.NewRedisStore(client, redisKeyPrefix), nil
	default:
		return sequence.NewMemoryStore(), nil
	}
}
