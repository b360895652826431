package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nazar/internal/config"
	"nazar/internal/controllers"
	"nazar/internal/logging"
	"nazar/internal/metrics"
	"nazar/internal/middleware"
	"nazar/internal/models"
	"nazar/internal/routes"
	"nazar/internal/services"
	"nazar/internal/store"
)

var (
	version        = "0.3.0"
	configFlag     string
	tokenNameFlag  string
	snapshotWindow time.Duration

	rootCmd = &cobra.Command{
		Use:     "nazar",
		Short:   "Nazar - local system telemetry and health monitor",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cfg, logger)
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a token for websocket clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !middleware.NewInputValidator().ValidateClientName(tokenNameFlag) {
				return fmt.Errorf("invalid client name %q", tokenNameFlag)
			}
			auth, err := services.NewAuthService(cfg.Auth.SecretKeyFile, cfg.Auth.TokenExpiry, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize auth: %w", err)
			}
			token, expiry, err := auth.GenerateToken(tokenNameFlag)
			if err != nil {
				return err
			}

			fmt.Printf("Token:   %s\n", token)
			fmt.Printf("Expires: %s\n", expiry.Format(time.RFC3339))
			fmt.Printf("URL:     ws://%s/ws?token=%s\n", cfg.Server.Address, token)
			return nil
		},
	}

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Collect one snapshot, evaluate it and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			mcfg := monitorConfig(cfg)
			if snapshotWindow > 0 {
				mcfg.Collector.SampleWindow = snapshotWindow
			}
			monitor := services.NewMonitor(services.NewSystemSource(cfg.Collector.DiskPaths, logger), cfg.Thresholds, mcfg, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			out, err := json.MarshalIndent(monitor.Refresh(ctx), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to configuration file")
	tokenCmd.Flags().StringVarP(&tokenNameFlag, "name", "n", "nazar-client", "Client name embedded in the token")
	snapshotCmd.Flags().DurationVar(&snapshotWindow, "window", 0, "Rate sampling window (default from config)")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

// monitorConfig converts the sustain durations into tick counts for the
// configured interval.
func monitorConfig(cfg *config.Config) services.MonitorConfig {
	return services.MonitorConfig{
		Interval: cfg.Collector.Interval,
		Collector: services.CollectorConfig{
			HistorySize:  cfg.Collector.HistorySize,
			SampleWindow: cfg.Collector.SampleWindow,
		},
		Alerts: services.AlertConfig{
			Capacity:        cfg.Alerts.Capacity,
			DedupWindow:     cfg.Alerts.DedupWindow,
			CPUSustainTicks: services.SustainTicks(cfg.Alerts.CPUSustain, cfg.Collector.Interval),
			RAMSustainTicks: services.SustainTicks(cfg.Alerts.RAMSustain, cfg.Collector.Interval),
		},
		CacheTTL: cfg.Collector.CacheTTL,
	}
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting nazar", zap.String("version", version), zap.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := services.NewMonitor(
		services.NewSystemSource(cfg.Collector.DiskPaths, logger.Named("source")),
		cfg.Thresholds,
		monitorConfig(cfg),
		logger,
		services.WithCollectorOptions(services.WithCollectionObserver(metrics.ObserveCollection)),
	)
	monitor.SubscribeEvaluations(func(e services.Evaluation) {
		metrics.ObserveEvaluation(e.Snapshot, e.Report)
	})
	monitor.SubscribeAlerts(metrics.ObserveAlert)

	alertLog, db, err := openAlertLog(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		monitor.SubscribeAlerts(func(a models.Alert) {
			if err := alertLog.Create(a); err != nil {
				logger.Warn("failed to persist alert", zap.String("id", a.ID), zap.Error(err))
			}
		})
	}

	hub := services.NewHub(logger.Named("websocket"))
	go hub.Run(ctx)
	monitor.SubscribeEvaluations(hub.PublishEvaluation)
	monitor.SubscribeAlerts(hub.PublishAlert)

	processes := services.NewProcessCollector(nil, logger.Named("processes"))
	processes.Start(cfg.Collector.ProcessInterval)
	defer processes.Stop()

	monitor.Start()
	defer monitor.Stop()

	security := middleware.NewSecurityLogger(logger)
	handlers := routes.Handlers{
		Metrics:    controllers.NewMetricsController(monitor),
		History:    controllers.NewHistoryController(monitor),
		Alerts:     controllers.NewAlertsController(monitor, alertLogOrNil(alertLog), logger),
		Thresholds: controllers.NewThresholdsController(monitor.Thresholds()),
		Processes:  controllers.NewProcessesController(processes),
		Security:   security,
	}
	if auth, err := services.NewAuthService(cfg.Auth.SecretKeyFile, cfg.Auth.TokenExpiry, logger); err != nil {
		logger.Warn("websocket disabled", zap.Error(err))
	} else {
		handlers.WebSocket = controllers.NewWebSocketController(hub, auth, monitor, security, logger)
	}

	router := routes.NewRouter(routes.RouterConfig{
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedIPs:     cfg.Server.AllowedIPs,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	}, handlers, promhttp.Handler(), logger)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", zap.Error(err))
	}

	logger.Info("nazar stopped")
	return nil
}

// openAlertLog opens the sqlite alert log and prunes old entries. It
// returns nils when the store is disabled.
func openAlertLog(cfg *config.Config, logger *zap.Logger) (*store.AlertLogRepository, *sql.DB, error) {
	if !cfg.Store.Enabled {
		return nil, nil, nil
	}
	db, err := store.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open alert log: %w", err)
	}
	repo := store.NewAlertLogRepository(db)
	if cfg.Store.RetentionDays > 0 {
		n, err := repo.DeleteOlderThan(cfg.Store.RetentionDays)
		if err != nil {
			logger.Warn("failed to prune alert log", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned alert log", zap.Int64("deleted", n))
		}
	}
	return repo, db, nil
}

// alertLogOrNil avoids handing controllers a typed nil interface
func alertLogOrNil(repo *store.AlertLogRepository) controllers.AlertLog {
	if repo == nil {
		return nil
	}
	return repo
}
