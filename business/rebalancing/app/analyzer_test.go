package app

import (
	"context"
	"errors"
	"testing"
	"time"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

func TestAnalyzeMarket_InsufficientHistory(t *testing.T) {
	a := NewMarketAnalyzer(logger.NewNop())
	_, err := a.AnalyzeMarket(testMarket("m1", "0.03", "0.86"), flatSeries(1, "0.03", "0.5"), testConfig(domain.ModeStaticThreshold))
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Errorf("AnalyzeMarket() error = %v, want insufficient history", err)
	}
}

func TestAnalyzeMarket_Scores(t *testing.T) {
	a := NewMarketAnalyzer(logger.NewNop())
	cfg := testConfig(domain.ModeStaticThreshold)

	info, err := a.AnalyzeMarket(testMarket("m1", "0.03", "0.86"), flatSeries(48, "0.03", "0.5"), cfg)
	if err != nil {
		t.Fatalf("AnalyzeMarket() error = %v", err)
	}

	// rate 3, risk (1-0.86)*10 = 1.4, liquidity 0 with 500 WETH available
	checks := []struct {
		name string
		got  string
		want string
	}{
		{"rate score", info.RateScore.String(), "3"},
		{"risk score", info.RiskScore.String(), "1.4"},
		{"liquidity score", info.LiquidityScore.String(), "0"},
		{"score", info.Score.String(), "2.15"},
		{"utilization", info.Utilization.String(), "0.5"},
		{"available", info.AvailableLiquidity.String(), "500"},
		{"volatility", info.RateVolatility.String(), "0"},
		{"trend", info.RateTrend.String(), "0"},
		{"predicted 1d", info.PredictedRate1d.String(), "0.03"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if !approx(info.EffectiveMaxLeverage, d("7.142857142857143")) {
		t.Errorf("EffectiveMaxLeverage = %s", info.EffectiveMaxLeverage)
	}
}

func TestRateTrend(t *testing.T) {
	history := flatSeries(48, "0.04", "0.5")
	for i := 24; i < 48; i++ {
		history[i].BorrowAPY = d("0.05")
	}
	// last 24h (strictly after cutoff) averages 0.05, earlier 0.04
	got := rateTrend(history, 48)
	if !approx(got, d("0.25")) {
		t.Errorf("rateTrend() = %s, want 0.25", got)
	}

	if got := rateTrend(flatSeries(10, "0.04", "0.5"), 48); !got.IsZero() {
		t.Errorf("rateTrend() within one day = %s, want 0", got)
	}
}

func TestRateTrend_IgnoresHistoryBeforeLookback(t *testing.T) {
	// 150h at 10% then 50h at 5%; the last 48 points are all 5%
	history := flatSeries(200, "0.10", "0.5")
	for i := 150; i < 200; i++ {
		history[i].BorrowAPY = d("0.05")
	}

	if got := rateTrend(history, 48); !got.IsZero() {
		t.Errorf("rateTrend() over a flat window = %s, want 0", got)
	}
	if got := rateTrend(history, 0); !got.IsNegative() {
		t.Errorf("rateTrend() over full history = %s, want negative", got)
	}
}

func TestPredictRates(t *testing.T) {
	tests := []struct {
		name        string
		utilization string
		trend       string
		want1d      string
		want7d      string
	}{
		{"calm", "0.5", "0", "0.1", "0.1"},
		{"high util", "0.85", "0", "0.102", "0.105"},
		{"critical util", "0.95", "0", "0.105", "0.115"},
		{"rising", "0.5", "0.1", "0.101", "0.103"},
		{"falling critical", "0.95", "-0.1", "0.10395", "0.11155"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got1, got7 := predictRates(d("0.1"), d(tt.utilization), d(tt.trend))
			if !got1.Equal(d(tt.want1d)) || !got7.Equal(d(tt.want7d)) {
				t.Errorf("predictRates() = %s, %s, want %s, %s", got1, got7, tt.want1d, tt.want7d)
			}
		})
	}
}

func TestAnalyze_SkipsAndSorts(t *testing.T) {
	a := NewMarketAnalyzer(logger.NewNop())
	markets := []marketDomain.Market{
		testMarket("dear", "0.05", "0.86"),
		testMarket("cheap", "0.03", "0.86"),
		testMarket("empty", "0.01", "0.86"),
	}
	history := map[string][]marketDomain.TimeseriesPoint{
		"dear":  flatSeries(4, "0.05", "0.5"),
		"cheap": flatSeries(4, "0.03", "0.5"),
	}

	got := a.Analyze(context.Background(), markets, history, testConfig(domain.ModeStaticThreshold))
	if len(got) != 2 {
		t.Fatalf("Analyze() returned %d markets, want 2", len(got))
	}
	if got[0].MarketID != "cheap" || got[1].MarketID != "dear" {
		t.Errorf("Analyze() order = [%s %s], want [cheap dear]", got[0].MarketID, got[1].MarketID)
	}
}

func TestAnalyzeMarket_UtilizationFromHistoryWithoutState(t *testing.T) {
	m := testMarket("m1", "0.03", "0.86")
	m.State = nil
	history := flatSeries(3, "0.03", "0.5")
	history[2].Utilization = d("0.93")
	history[2].Timestamp = t0.Add(2 * time.Hour)

	info, err := NewMarketAnalyzer(logger.NewNop()).AnalyzeMarket(m, history, testConfig(domain.ModeStaticThreshold))
	if err != nil {
		t.Fatalf("AnalyzeMarket() error = %v", err)
	}
	if !info.Utilization.Equal(d("0.93")) {
		t.Errorf("Utilization = %s, want 0.93", info.Utilization)
	}
	// 0.6*3 + 0.25*(1.4 + 0.13*20) + 0.15*10
	if !info.Score.Equal(d("4.3")) {
		t.Errorf("Score = %s, want 4.3", info.Score)
	}
}
