// Package main is the entry point for the debt rebalancer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/debt-rebalancer/business/market"
	"github.com/fd1az/debt-rebalancer/business/rebalancing"
	"github.com/fd1az/debt-rebalancer/internal/apm"
	"github.com/fd1az/debt-rebalancer/internal/config"
	"github.com/fd1az/debt-rebalancer/internal/logger"
	"github.com/fd1az/debt-rebalancer/internal/metrics"
	"github.com/fd1az/debt-rebalancer/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "rebalancer",
	Short: "Debt rebalancing optimizer for lending markets",
	Long: `Finds lending markets for a collateral/borrow pair, allocates debt across
them and backtests a rebalancing strategy against a single-market benchmark.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")

	rootCmd.AddCommand(runCmd, serveCmd, resultsCmd, snapshotCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rebalancer %s (commit: %s, built: %s)\n", version, commit, buildDate)
	},
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// session is the loaded configuration and shared infrastructure of one command.
type session struct {
	cfg *config.Config
	log *logger.Logger

	traceProvider apm.TraceProvider
	meterProvider metrics.MetricProvider
}

func loadSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, traceID)
	return &session{cfg: cfg, log: log}, nil
}

// startTelemetry installs tracing and metrics when enabled and serves
// Prometheus scrapes until ctx ends.
func (s *session) startTelemetry(ctx context.Context) error {
	tc := s.cfg.Telemetry
	if !tc.Enabled {
		return nil
	}

	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: tc.ServiceName,
		Provider:    apm.ParseProvider(tc.TraceProvider),
		Endpoint:    tc.OTLPEndpoint,
		SampleRate:  tc.SampleRate,
	}, s.log)
	if err != nil {
		return err
	}
	s.traceProvider = tp

	mcfg := metrics.Config{ServiceName: tc.ServiceName, Insecure: tc.Insecure}
	if apm.ParseProvider(tc.TraceProvider) == apm.OTLPGRPCProvider {
		mcfg.OTLPEndpoint = tc.OTLPEndpoint
	}
	mp, err := metrics.NewMetricProvider(ctx, mcfg)
	if err != nil {
		return err
	}
	s.meterProvider = mp

	if tc.PrometheusPort > 0 {
		go metrics.Serve(ctx, tc.PrometheusPort, s.log)
	}
	return nil
}

func (s *session) close() {
	if s.traceProvider != nil {
		if err := s.traceProvider.Stop(); err != nil {
			s.log.Warn(context.Background(), "trace provider shutdown failed", "error", err)
		}
	}
	if s.meterProvider != nil {
		_ = s.meterProvider.Shutdown(context.Background())
	}
	_ = s.log.Sync()
}

// startApp registers and starts the market and rebalancing modules.
func (s *session) startApp(ctx context.Context) (*monolith.App, error) {
	mono := monolith.New(s.cfg, s.log)

	// Define modules in dependency order
	modules := []monolith.Module{
		&market.Module{},
		&rebalancing.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		_ = mono.Close()
		return nil, fmt.Errorf("failed to start modules: %w", err)
	}
	return mono, nil
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
