package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/salescope/internal/alerting"
	"github.com/good-yellow-bee/salescope/internal/analytics"
	"github.com/good-yellow-bee/salescope/internal/api"
	"github.com/good-yellow-bee/salescope/internal/metrics"
	"github.com/good-yellow-bee/salescope/internal/notifier"
	"github.com/good-yellow-bee/salescope/internal/scheduler"
	"github.com/good-yellow-bee/salescope/internal/storage"
	"github.com/good-yellow-bee/salescope/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "salescope-server",
	Short: "Salescope Server - scheduled sales analytics pipeline",
	Long: `Salescope Server runs the per-tenant analytics pipeline: daily sales
forecasts, periodic statistical anomaly detection, and alert delivery.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("salescope-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	logger := log.Default()

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Metadata store
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	// Metric store
	metricStore := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
		Addresses:     cfg.ClickHouse.Addresses,
		Database:      cfg.ClickHouse.Database,
		Username:      cfg.ClickHouse.Username,
		Password:      cfg.ClickHouse.Password,
		Compression:   cfg.ClickHouse.Compression,
		RetentionDays: cfg.ClickHouse.RetentionDays,
	})
	if err := metricStore.Open(); err != nil {
		return fmt.Errorf("open metric store: %w", err)
	}
	defer metricStore.Close()

	if err := metricStore.Migrate(); err != nil {
		return fmt.Errorf("migrate metric store: %w", err)
	}
	log.Printf("metric store connected at %v", cfg.ClickHouse.Addresses)

	// Outbound mail
	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		return err
	}
	defer mailer.Close()

	templates, err := notifier.LoadTemplates()
	if err != nil {
		return fmt.Errorf("load notification templates: %w", err)
	}

	// Alerting
	resolver := alerting.NewResolver(store.Preferences(), store.Users(), logger, cfg.Verbose)
	dispatcher := alerting.NewDispatcher(store.Anomalies(), store.Tenants(), resolver,
		mailer, templates, cfg.Dispatch.RatePerMinute, logger)

	queue := scheduler.NewDispatchQueue(dispatcher.Dispatch, scheduler.QueueOptions{
		Workers:        cfg.Dispatch.Workers,
		Size:           cfg.Dispatch.QueueSize,
		MaxAttempts:    cfg.Dispatch.MaxAttempts,
		RetryDelay:     cfg.Dispatch.RetryDelay,
		AttemptTimeout: cfg.Dispatch.AttemptTimeout,
	}, logger)

	// Analytics
	baselines := analytics.NewBaselineCalculator(metricStore.Metrics(),
		cfg.Analytics.BaselineWindow, cfg.Analytics.MinSamples)

	detector := analytics.NewDetector(metricStore.Metrics(), store.Anomalies(),
		store.Tenants(), baselines, queue, analytics.DetectorOptions{
			Thresholds: analytics.Thresholds{
				WarningZ:  cfg.Analytics.WarningZ,
				CriticalZ: cfg.Analytics.CriticalZ,
			},
			Verbose: cfg.Verbose,
		}, logger)

	generator := analytics.NewForecastGenerator(metricStore.Metrics(),
		store.Forecasts(), store.Tenants(), analytics.ForecastOptions{
			HorizonDays: cfg.Analytics.HorizonDays,
			HistoryDays: cfg.Analytics.HistoryDays,
		}, logger)

	// Scheduler
	location, err := time.LoadLocation(cfg.Analytics.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	forecastJob := func(ctx context.Context) error {
		asOf := time.Now()
		report, err := generator.GenerateAll(ctx, asOf)
		if err != nil {
			return err
		}
		log.Printf("forecast run: %s", report.Summary())

		// Forecasts past their target date are no longer useful.
		pruned, err := store.Forecasts().DeleteBefore(ctx, asOf)
		if err != nil {
			log.Printf("forecast prune failed: %v", err)
		} else if pruned > 0 {
			log.Printf("forecast prune: removed %d stale rows", pruned)
		}

		if !report.Ok() {
			return fmt.Errorf("forecast failed for tenants: %v", report.FailedTenantIDs())
		}
		return nil
	}

	detectJob := func(ctx context.Context) error {
		report, err := detector.DetectAll(ctx)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			log.Printf("detect run: %s", report.Summary())
		}
		if !report.Ok() {
			return fmt.Errorf("detection failed for tenants: %v", report.FailedTenantIDs())
		}
		return nil
	}

	sched, err := scheduler.New(forecastJob, detectJob, scheduler.Options{
		ForecastAt:     cfg.Analytics.ForecastAt,
		Location:       location,
		DetectInterval: cfg.Analytics.DetectInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	sched.Start(ctx)

	// Hot-reload detector thresholds on config file changes
	if configFile != "" {
		stopWatch, err := watchConfig(configFile, detector, logger)
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		} else {
			defer stopWatch()
		}
	}

	// Metrics server
	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress)
	go func() {
		if err := metricsServer.Start(); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	// Operational API
	apiServer := api.NewServer(&api.Config{
		Address: cfg.Server.HTTPAddress,
		Verbose: cfg.Verbose,
	}, store.Anomalies(), store.Forecasts(), &statusSource{sched: sched, queue: queue},
		map[string]api.Pinger{
			"sqlite":     sqlitePinger{store},
			"clickhouse": metricStore,
		}, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()

	log.Printf("salescope-server %s started", config.Version)
	<-ctx.Done()
	log.Printf("shutting down")

	sched.Stop()
	queue.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics shutdown: %v", err)
	}

	return nil
}

// buildMailer returns the SMTP mailer when configured, otherwise a mailer
// that only logs, so local runs work without an SMTP server.
func buildMailer(cfg *Config, logger *log.Logger) (notifier.Mailer, error) {
	if cfg.SMTP.Host == "" {
		log.Printf("smtp not configured, alert delivery will be logged only")
		return &logMailer{logger: logger}, nil
	}
	mailer, err := notifier.NewSMTPMailer(notifier.EmailConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: os.Getenv("SALESCOPE_SMTP_PASSWORD"),
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return nil, fmt.Errorf("configure mailer: %w", err)
	}
	return mailer, nil
}

// logMailer writes messages to the log instead of delivering them.
type logMailer struct {
	logger *log.Logger
}

func (m *logMailer) Send(ctx context.Context, to string, msg *notifier.Message) error {
	m.logger.Printf("mail (dry-run): to=%s subject=%q", to, msg.Subject)
	return nil
}

func (m *logMailer) Close() error { return nil }

// statusSource adapts the scheduler and queue for the API status endpoint.
type statusSource struct {
	sched *scheduler.Scheduler
	queue *scheduler.DispatchQueue
}

func (s *statusSource) Statuses() []scheduler.Status { return s.sched.Statuses() }
func (s *statusSource) QueueDepth() int              { return s.queue.Depth() }

// sqlitePinger adapts the metadata store for readiness checks.
type sqlitePinger struct {
	store *storage.SQLiteStorage
}

func (p sqlitePinger) Ping(ctx context.Context) error {
	return p.store.DB().PingContext(ctx)
}
