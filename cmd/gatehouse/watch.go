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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/telemetry/metrics"
)

var (
	watchMetricsAddr    string
	watchRotateSchedule string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in long-lived mode: watch the configuration, rotate logs, serve metrics",
	Long: `Watch keeps a gatehouse process resident: it revalidates the project
configuration whenever it changes on disk, rotates the audit log on a cron
schedule and serves Prometheus metrics. One-shot hook processing does not
need it; it exists for operators who want continuous feedback on rule
edits.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", ":9310",
		"listen address for the Prometheus /metrics endpoint")
	watchCmd.Flags().StringVar(&watchRotateSchedule, "rotate-schedule", "@hourly",
		"cron schedule for audit log rotation checks")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := slog.Default().With("component", "watch")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	configPath := config.ProjectPath(cwd)

	// Validate once up front so a broken config is reported immediately.
	if cfg, err := config.Load(cwd); err != nil {
		log.Error("configuration invalid at startup", "error", err)
	} else {
		log.Info("configuration valid", "rules", len(cfg.Rules))
	}

	auditLog, err := audit.Default()
	if err != nil {
		return err
	}

	scheduler := audit.NewScheduler(auditLog, watchRotateSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	registry := prometheus.NewRegistry()
	pm := metrics.NewPolicyMetrics(registry)

	// Hook decisions happen in one-shot processes; the resident process
	// follows the audit log to surface them on the scrape endpoint.
	follower := audit.NewFollower(auditLog.Path())
	go follower.Run(ctx, 15*time.Second, func(entry audit.Entry) {
		pm.RecordEvent(string(entry.Outcome), string(entry.Decision),
			time.Duration(entry.Timing.ProcessingMS)*time.Millisecond)
		for _, name := range entry.RulesMatched {
			pm.RecordRuleHit(name)
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: watchMetricsAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics endpoint listening", "addr", watchMetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	watcher := config.NewWatcher(configPath,
		func(cfg *config.Config) {
			fmt.Printf("✓ %s reloaded: %d rules, %d enabled\n",
				configPath, len(cfg.Rules), len(cfg.EnabledRules()))
		},
		func(err error) {
			fmt.Printf("✗ %s invalid: %v\n", configPath, err)
		},
	)

	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	log.Info("watch mode running", "config", configPath)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		shutdownServer(server)
		return err
	}

	shutdownServer(server)
	log.Info("watch mode stopped")
	return nil
}

func shutdownServer(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
