package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	rebalancingDI "github.com/fd1az/debt-rebalancer/business/rebalancing/di"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra"
	"github.com/fd1az/debt-rebalancer/internal/config"
)

var runFlags struct {
	collateral string
	borrow     string
	amount     float64
	leverage   float64
	mode       string
	days       int
	snapshot   string
	noStore    bool
	jsonOut    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one optimization and print the result",
	RunE:  runOnce,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.collateral, "collateral", "", "collateral asset symbol or address")
	f.StringVar(&runFlags.borrow, "borrow", "", "borrow asset symbol or address")
	f.Float64Var(&runFlags.amount, "amount", 0, "collateral amount")
	f.Float64Var(&runFlags.leverage, "leverage", 0, "target leverage")
	f.StringVar(&runFlags.mode, "mode", "", "static_threshold | dynamic_rate | predictive | opportunity_cost")
	f.IntVar(&runFlags.days, "days", 0, "simulation days")
	f.StringVar(&runFlags.snapshot, "snapshot", "", "read markets from this snapshot file")
	f.BoolVar(&runFlags.noStore, "no-store", false, "do not persist the result")
	f.BoolVar(&runFlags.jsonOut, "json", false, "print the full result as JSON")
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer s.close()
	applyRunFlags(cmd, s)

	if err := s.startTelemetry(ctx); err != nil {
		return err
	}

	mono, err := s.startApp(ctx)
	if err != nil {
		return err
	}
	defer mono.Close()

	optimizer := rebalancingDI.GetOptimizer(mono.Services())
	result, err := optimizer.Optimize(ctx, rebalancingDI.GetRunConfig(mono.Services()))
	if err != nil {
		return err
	}

	if runFlags.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if err := infra.NewConsoleReporterTo(cmd.OutOrStdout()).Report(ctx, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("optimization failed: %s", result.ErrorMessage)
	}
	return nil
}

func applyRunFlags(cmd *cobra.Command, s *session) {
	f := cmd.Flags()
	rc := &s.cfg.Rebalancing
	if f.Changed("collateral") {
		rc.CollateralAsset = runFlags.collateral
	}
	if f.Changed("borrow") {
		rc.BorrowAsset = runFlags.borrow
	}
	if f.Changed("amount") {
		rc.CollateralAmount = runFlags.amount
	}
	if f.Changed("leverage") {
		rc.TargetLeverage = runFlags.leverage
		rc.InitialLTV = 0
	}
	if f.Changed("mode") {
		rc.Mode = runFlags.mode
	}
	if f.Changed("days") {
		rc.SimulationDays = runFlags.days
	}
	if f.Changed("snapshot") {
		s.cfg.Provider.Kind = config.ProviderSnapshot
		s.cfg.Provider.SnapshotPath = runFlags.snapshot
	}
	if runFlags.noStore {
		s.cfg.Storage.Enabled = false
	}
}
