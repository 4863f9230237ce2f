package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	rebalancingDI "github.com/fd1az/debt-rebalancer/business/rebalancing/di"
	"github.com/fd1az/debt-rebalancer/internal/health"
	"github.com/fd1az/debt-rebalancer/internal/metrics"
	"github.com/fd1az/debt-rebalancer/internal/scheduler"
)

var serveFlags struct {
	schedule  string
	runOnBoot bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the optimizer on a schedule and serve results over HTTP",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.schedule, "schedule", "", "override server.schedule")
	serveCmd.Flags().BoolVar(&serveFlags.runOnBoot, "run-on-boot", true, "run once before the first scheduled tick")
}

func serve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer s.close()

	if serveFlags.schedule != "" {
		s.cfg.Server.Schedule = serveFlags.schedule
	}

	if err := s.startTelemetry(ctx); err != nil {
		return err
	}

	mono, err := s.startApp(ctx)
	if err != nil {
		return err
	}
	defer mono.Close()

	s.log.Info(ctx, "starting debt rebalancer",
		"version", version,
		"environment", s.cfg.App.Environment,
		"schedule", s.cfg.Server.Schedule,
	)

	job := rebalancingDI.GetOptimizeJob(mono.Services())

	server := health.NewServer(s.cfg.Server.Port, version, s.log)
	server.RegisterCheck("last_run", func(ctx context.Context) (bool, string) {
		latest := job.Latest()
		if latest == nil {
			return true, "no run yet"
		}
		if !latest.Success {
			return false, latest.ErrorMessage
		}
		return true, latest.CreatedAt.Format(time.RFC3339)
	})
	if store := rebalancingDI.GetResultStore(mono.Services()); store != nil {
		server.RegisterCheck("storage", func(ctx context.Context) (bool, string) {
			if p, ok := store.(interface{ Ping(context.Context) error }); ok {
				if err := p.Ping(ctx); err != nil {
					return false, err.Error()
				}
			}
			return true, ""
		})
	}
	handler := rebalancingDI.GetResultsHandler(mono.Services())
	server.Route("/results", func(r chi.Router) { handler.Routes(r) })
	if s.cfg.Telemetry.Enabled {
		server.Handle("/metrics", metrics.Handler())
	}

	if err := server.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Stop(stopCtx)
	}()

	sched := scheduler.New(s.log)
	if err := sched.AddJob(s.cfg.Server.Schedule, job); err != nil {
		return err
	}
	if serveFlags.runOnBoot {
		go func() { _ = sched.RunNow(job) }()
	}
	sched.Start()
	defer sched.Stop()

	<-ctx.Done()
	s.log.Info(context.Background(), "shutting down")
	return nil
}
