package app

import (
	"strings"
	"testing"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

func TestPositionSummarizer_Summarize(t *testing.T) {
	cfg := testConfig(domain.ModeStaticThreshold)
	positions := []domain.DebtPosition{{
		MarketID:         "m1",
		MarketName:       "wstETH/WETH (86%)",
		CollateralAmount: d("10"),
		BorrowAmount:     d("5.5"),
		BorrowAPY:        d("0.03"),
		LLTV:             d("0.86"),
		AllocationWeight: d("1"),
	}}
	busy := debtInfo("m1", "0.03", "0.86", "500", "1")
	busy.Utilization = d("0.95")

	sum := NewPositionSummarizer().Summarize(positions, []domain.MarketDebtInfo{busy}, d("1.1"), cfg)

	if !sum.HealthFactor.Equal(d("1.72")) {
		t.Errorf("HealthFactor = %s, want 1.72", sum.HealthFactor)
	}
	if !sum.CollateralValue.Equal(d("11")) {
		t.Errorf("CollateralValue = %s, want 11", sum.CollateralValue)
	}
	if !sum.CurrentLTV.Equal(d("0.5")) {
		t.Errorf("CurrentLTV = %s, want 0.5", sum.CurrentLTV)
	}
	if !sum.EstimatedAnnualInterest.Equal(d("0.165")) {
		t.Errorf("EstimatedAnnualInterest = %s, want 0.165", sum.EstimatedAnnualInterest)
	}
	if !sum.MarginCallPrice.Equal(sum.LiquidationPrice.Mul(d("1.15"))) {
		t.Errorf("MarginCallPrice = %s, want liquidation price * 1.15", sum.MarginCallPrice)
	}

	if len(sum.Scenarios) != len(ScenarioPriceChanges) {
		t.Fatalf("got %d scenarios, want %d", len(sum.Scenarios), len(ScenarioPriceChanges))
	}
	if !sum.Scenarios[0].HealthFactor.Equal(d("1.376")) {
		t.Errorf("HF at -20%% = %s, want 1.376", sum.Scenarios[0].HealthFactor)
	}
	for i := 1; i < len(sum.Scenarios); i++ {
		if !sum.Scenarios[i].HealthFactor.GreaterThan(sum.Scenarios[i-1].HealthFactor) {
			t.Errorf("HF not increasing with price at scenario %d", i)
		}
	}

	// utilization and concentration
	if len(sum.Alerts) != 2 {
		t.Errorf("Alerts = %q, want 2 alerts", sum.Alerts)
	}
}

func TestPositionSummarizer_StressedPosition(t *testing.T) {
	cfg := testConfig(domain.ModeStaticThreshold)
	positions := []domain.DebtPosition{
		{MarketID: "a", MarketName: "a", CollateralAmount: d("5"), BorrowAmount: d("4.5"), BorrowAPY: d("0.03"), LLTV: d("0.86"), AllocationWeight: d("0.5")},
		{MarketID: "b", MarketName: "b", CollateralAmount: d("5"), BorrowAmount: d("4.5"), BorrowAPY: d("0.05"), LLTV: d("0.86"), AllocationWeight: d("0.5")},
	}
	markets := []domain.MarketDebtInfo{
		debtInfo("a", "0.03", "0.86", "500", "1"),
		debtInfo("b", "0.05", "0.86", "500", "2"),
	}

	sum := NewPositionSummarizer().Summarize(positions, markets, d("1.1"), cfg)

	// HF 9.46 / 9 is below both thresholds and liquidates within the scenarios
	if len(sum.Alerts) != 3 {
		t.Fatalf("Alerts = %q, want 3 alerts", sum.Alerts)
	}
	if !strings.Contains(sum.Alerts[2], "liquidated") {
		t.Errorf("Alerts[2] = %q, want liquidation alert", sum.Alerts[2])
	}
	if !sum.Scenarios[3].IsLiquidated || sum.Scenarios[4].IsLiquidated {
		t.Errorf("liquidation should start between 0%% and -5%%")
	}
	if !sum.WeightedBorrowAPY.Equal(d("0.04")) {
		t.Errorf("WeightedBorrowAPY = %s, want 0.04", sum.WeightedBorrowAPY)
	}
}
