package app

import (
	"testing"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

func TestEvaluateMove(t *testing.T) {
	cfg := testConfig(domain.ModeOpportunityCost)

	e := EvaluateMove(d("100"), d("0.02"), cfg)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"gas", e.GasCost.String(), "5"},
		{"slippage", e.SlippageCost.String(), "0.05"},
		{"total cost", e.TotalCost.String(), "5.05"},
		{"annual", e.AnnualSavings.String(), "2"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}
	if e.BreakevenDays.LessThan(d("921.62")) || e.BreakevenDays.GreaterThan(d("921.63")) {
		t.Errorf("BreakevenDays = %s, want ~921.625", e.BreakevenDays)
	}
	if !e.NetBenefit30d.IsNegative() {
		t.Errorf("NetBenefit30d = %s, want negative", e.NetBenefit30d)
	}

	if got := EvaluateMove(d("100"), d("0"), cfg).BreakevenDays; !got.Equal(d("999")) {
		t.Errorf("BreakevenDays without savings = %s, want 999", got)
	}
}

func TestOpportunityDetector_Detect(t *testing.T) {
	cfg := testConfig(domain.ModeOpportunityCost)
	positions := []domain.DebtPosition{
		{MarketID: "dear", MarketName: "dear", BorrowAmount: d("100"), CollateralAmount: d("200"), BorrowAPY: d("0.05")},
	}
	markets := []domain.MarketDebtInfo{
		debtInfo("cheap", "0.03", "0.86", "500", "1"),
		debtInfo("dear", "0.05", "0.86", "500", "2"),
		debtInfo("close", "0.0495", "0.86", "500", "3"),
		debtInfo("shallow", "0.02", "0.86", "50", "4"),
		debtInfo("cheaper", "0.01", "0.86", "500", "5"),
	}

	got := NewOpportunityDetector().Detect(markets, positions, cfg)
	if len(got) != 2 {
		t.Fatalf("Detect() returned %d opportunities, want 2", len(got))
	}
	if got[0].ToMarketID != "cheaper" || got[1].ToMarketID != "cheap" {
		t.Errorf("Detect() order = [%s %s], want [cheaper cheap]", got[0].ToMarketID, got[1].ToMarketID)
	}
	if !got[1].RateDiffBps.Equal(d("200")) {
		t.Errorf("RateDiffBps = %s, want 200", got[1].RateDiffBps)
	}
	if got[0].Trigger != domain.TriggerRateDiff || got[0].FromMarketID != "dear" {
		t.Errorf("opportunity = %+v", got[0])
	}
	if !positions[0].BorrowAmount.Equal(d("100")) {
		t.Errorf("positions modified")
	}
}
