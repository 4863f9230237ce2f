// Package infra contains infrastructure adapters for the rebalancing context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

const (
	rule     = "================================================================================"
	thinRule = "--------------------------------------------------------------------------------"
	maxRows  = 5
)

var hundred = decimal.NewFromInt(100)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func pct(v decimal.Decimal) string {
	return v.Mul(hundred).StringFixed(2) + "%"
}

// Report outputs a rebalancing result to the console.
func (r *ConsoleReporter) Report(ctx context.Context, res *domain.RebalancingResult) error {
	cfg := res.Config

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "DEBT REBALANCING RESULT")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "ID:             %s\n", res.ID)
	fmt.Fprintf(r.out, "Created:        %s\n", res.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:           %s\n", cfg.Pair())
	fmt.Fprintf(r.out, "Mode:           %s\n", cfg.Mode.String())
	fmt.Fprintf(r.out, "Collateral:     %s %s at %s LTV\n", cfg.CollateralAmount.StringFixed(4), cfg.CollateralAsset, pct(cfg.InitialLTV))

	if !res.Success {
		fmt.Fprintln(r.out, thinRule)
		fmt.Fprintf(r.out, "FAILED:         %s\n", res.ErrorMessage)
		fmt.Fprintln(r.out, rule)
		return nil
	}

	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintf(r.out, "MARKETS (%d usable, best first)\n", len(res.AvailableMarkets))
	for i, m := range res.AvailableMarkets {
		if i == maxRows {
			fmt.Fprintf(r.out, "  ... %d more\n", len(res.AvailableMarkets)-maxRows)
			break
		}
		fmt.Fprintf(r.out, "  %-34s borrow %8s  util %8s  score %s\n",
			truncate(m.MarketName, 34), pct(m.BorrowAPY), pct(m.Utilization), m.Score.StringFixed(3))
	}

	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "ALLOCATION")
	for _, p := range res.OptimalPositions {
		fmt.Fprintf(r.out, "  %-34s %12s %s (%s)  HF %s\n",
			truncate(p.MarketName, 34), p.BorrowAmount.StringFixed(4), cfg.BorrowAsset, pct(p.AllocationWeight), p.HealthFactor.StringFixed(3))
	}

	if len(res.Opportunities) > 0 {
		fmt.Fprintln(r.out, thinRule)
		fmt.Fprintln(r.out, "OPPORTUNITIES")
		for i, o := range res.Opportunities {
			if i == maxRows {
				break
			}
			fmt.Fprintf(r.out, "  %s -> %s  %s bps  breakeven %s days  30d net $%s\n",
				truncate(o.FromMarketName, 24), truncate(o.ToMarketName, 24),
				o.RateDiffBps.StringFixed(1), o.BreakevenDays.StringFixed(1), o.NetBenefit30d.StringFixed(2))
		}
	}

	m := res.Metrics
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintf(r.out, "SIMULATION (%d points over %.1f days)\n", m.DataPoints, res.DurationDays())
	fmt.Fprintf(r.out, "  Interest:       %s (benchmark %s)\n", m.TotalInterestPaid.StringFixed(6), m.BenchmarkInterestPaid.StringFixed(6))
	fmt.Fprintf(r.out, "  Savings:        %s (%s%%)\n", m.InterestSavings.StringFixed(6), m.InterestSavingsPct.StringFixed(2))
	fmt.Fprintf(r.out, "  Avg APY:        %s (benchmark %s, range %s - %s)\n",
		pct(m.AvgBorrowAPY), pct(m.BenchmarkAvgBorrowAPY), pct(m.MinBorrowAPY), pct(m.MaxBorrowAPY))
	fmt.Fprintf(r.out, "  Rebalances:     %d costing $%s (avg trigger %s bps)\n",
		m.RebalanceCount, m.TotalRebalanceCost.StringFixed(2), m.AvgRateDiffTriggerBps.StringFixed(1))
	fmt.Fprintf(r.out, "  Net:            %s (annualized %s)\n", m.NetSavings.StringFixed(6), m.AnnualizedNetSavings.StringFixed(6))
	fmt.Fprintf(r.out, "  Margin calls:   %d (benchmark %d)\n", m.MarginCallCount, m.BenchmarkMarginCallCount)

	if s := res.PositionSummary; s != nil {
		fmt.Fprintln(r.out, thinRule)
		fmt.Fprintln(r.out, "RISK")
		fmt.Fprintf(r.out, "  Health factor:  %s\n", s.HealthFactor.StringFixed(3))
		fmt.Fprintf(r.out, "  Price:          %s (liquidation %s, margin call %s)\n",
			s.CollateralPrice.StringFixed(6), s.LiquidationPrice.StringFixed(6), s.MarginCallPrice.StringFixed(6))
		fmt.Fprintf(r.out, "  Distance:       %s%%\n", s.DistanceToLiquidationPct.StringFixed(2))
		fmt.Fprintf(r.out, "  Interest/day:   %s %s\n", s.EstimatedDailyInterest.StringFixed(6), cfg.BorrowAsset)

		var scen []string
		for _, sc := range s.Scenarios {
			mark := ""
			if sc.IsLiquidated {
				mark = "!"
			} else if sc.IsMarginCall {
				mark = "*"
			}
			scen = append(scen, fmt.Sprintf("%s%%:%s%s", sc.PriceChangePct.String(), sc.HealthFactor.StringFixed(2), mark))
		}
		fmt.Fprintf(r.out, "  Scenarios:      %s\n", strings.Join(scen, "  "))

		for _, a := range s.Alerts {
			fmt.Fprintf(r.out, "  ALERT: %s\n", a)
		}
	}

	fmt.Fprintln(r.out, rule)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
