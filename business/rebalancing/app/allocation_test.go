package app

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

func TestAllocate_TwoMarkets(t *testing.T) {
	p := NewAllocationPlanner(logger.NewNop())
	cfg := testConfig(domain.ModeStaticThreshold)

	alloc, err := p.Allocate(context.Background(), []domain.MarketDebtInfo{
		debtInfo("dear", "0.05", "0.86", "500", "3.35"),
		debtInfo("cheap", "0.03", "0.86", "500", "2.15"),
	}, cfg)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	// 10 wstETH * 1.1 * 0.5 LTV = 5.5 WETH, capped at 80% per market
	if !alloc.TotalBorrow.Equal(d("5.5")) {
		t.Errorf("TotalBorrow = %s, want 5.5", alloc.TotalBorrow)
	}
	if len(alloc.Positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(alloc.Positions))
	}

	first, second := alloc.Positions[0], alloc.Positions[1]
	if first.MarketID != "cheap" || !first.BorrowAmount.Equal(d("4.4")) || !first.AllocationWeight.Equal(d("0.8")) {
		t.Errorf("first position = %s %s (%s), want cheap 4.4 (0.8)", first.MarketID, first.BorrowAmount, first.AllocationWeight)
	}
	if second.MarketID != "dear" || !second.BorrowAmount.Equal(d("1.1")) {
		t.Errorf("second position = %s %s, want dear 1.1", second.MarketID, second.BorrowAmount)
	}
	if !first.CollateralAmount.Equal(d("8")) || !second.CollateralAmount.Equal(d("2")) {
		t.Errorf("collateral = %s + %s, want 8 + 2", first.CollateralAmount, second.CollateralAmount)
	}
	if !first.HealthFactor.Equal(d("1.72")) {
		t.Errorf("HealthFactor = %s, want 1.72", first.HealthFactor)
	}
	if !alloc.Amounts["cheap"].Equal(d("4.4")) {
		t.Errorf("Amounts[cheap] = %s, want 4.4", alloc.Amounts["cheap"])
	}
}

func TestAllocate_ConservesTotal(t *testing.T) {
	tests := []struct {
		name    string
		markets []domain.MarketDebtInfo
		want    map[string]string
	}{
		{
			name:    "single market takes everything",
			markets: []domain.MarketDebtInfo{debtInfo("a", "0.03", "0.86", "500", "1")},
			want:    map[string]string{"a": "5.5"},
		},
		{
			name: "liquidity caps and min share",
			markets: []domain.MarketDebtInfo{
				debtInfo("a", "0.03", "0.86", "3", "1"),
				debtInfo("b", "0.04", "0.86", "1000", "2"),
				debtInfo("c", "0.02", "0.86", "0.1", "3"),
			},
			want: map[string]string{"a": "2.4", "b": "3.1"},
		},
		{
			name: "undistributed remainder spread proportionally",
			markets: []domain.MarketDebtInfo{
				debtInfo("a", "0.03", "0.86", "3", "1"),
				debtInfo("b", "0.04", "0.86", "2", "2"),
			},
			want: map[string]string{"a": "3.3", "b": "2.2"},
		},
		{
			name: "no eligible market falls back to all",
			markets: []domain.MarketDebtInfo{
				debtInfo("a", "0.03", "0.5", "500", "1"),
				debtInfo("b", "0.04", "0.5", "500", "2"),
			},
			want: map[string]string{"a": "4.4", "b": "1.1"},
		},
	}

	p := NewAllocationPlanner(logger.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc, err := p.Allocate(context.Background(), tt.markets, testConfig(domain.ModeStaticThreshold))
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			if len(alloc.Amounts) != len(tt.want) {
				t.Fatalf("got %d allocations, want %d", len(alloc.Amounts), len(tt.want))
			}
			for id, want := range tt.want {
				if got := alloc.Amounts[id]; !got.Equal(d(want)) {
					t.Errorf("Amounts[%s] = %s, want %s", id, got, want)
				}
			}
			if got := domain.TotalDebt(alloc.Positions); !got.Equal(alloc.TotalBorrow) {
				t.Errorf("sum of positions = %s, want %s", got, alloc.TotalBorrow)
			}
			if got := domain.TotalCollateral(alloc.Positions); !got.Equal(d("10")) {
				t.Errorf("total collateral = %s, want 10", got)
			}
		})
	}
}

func TestAllocate_Errors(t *testing.T) {
	p := NewAllocationPlanner(logger.NewNop())
	cfg := testConfig(domain.ModeStaticThreshold)

	if _, err := p.Allocate(context.Background(), nil, cfg); !errors.Is(err, domain.ErrNoMarketsFound) {
		t.Errorf("Allocate(nil) error = %v, want no markets", err)
	}

	unpriced := debtInfo("a", "0.03", "0.86", "500", "1")
	unpriced.LoanPriceUSD = d("0")
	if _, err := p.Allocate(context.Background(), []domain.MarketDebtInfo{unpriced}, cfg); !errors.Is(err, domain.ErrNoPriceData) {
		t.Errorf("Allocate(unpriced) error = %v, want no price data", err)
	}
}

func TestRedistribute_ConservesTotals(t *testing.T) {
	current := []domain.DebtPosition{
		{MarketID: "a", BorrowAmount: d("3.123456789"), CollateralAmount: d("5.5")},
		{MarketID: "b", BorrowAmount: d("4.000000001"), CollateralAmount: d("6.8456")},
	}
	target := &Allocation{Positions: []domain.DebtPosition{
		{MarketID: "x", AllocationWeight: d("0.3333333333333333")},
		{MarketID: "y", AllocationWeight: d("0.3333333333333333")},
		{MarketID: "z", AllocationWeight: d("0.3333333333333334")},
	}}

	got := Redistribute(current, target)
	if len(got) != 3 {
		t.Fatalf("got %d positions, want 3", len(got))
	}
	if !domain.TotalDebt(got).Equal(domain.TotalDebt(current)) {
		t.Errorf("debt %s, want %s", domain.TotalDebt(got), domain.TotalDebt(current))
	}
	if !domain.TotalCollateral(got).Equal(domain.TotalCollateral(current)) {
		t.Errorf("collateral %s, want %s", domain.TotalCollateral(got), domain.TotalCollateral(current))
	}
	if got[0].MarketID != "x" || got[2].MarketID != "z" {
		t.Errorf("positions not in target order")
	}
}
