package rebalancing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/debt-rebalancer/business/market"
	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/market/infra/snapshot"
	"github.com/fd1az/debt-rebalancer/business/rebalancing"
	rebalancingDI "github.com/fd1az/debt-rebalancer/business/rebalancing/di"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/asset"
	"github.com/fd1az/debt-rebalancer/internal/config"
	"github.com/fd1az/debt-rebalancer/internal/logger"
	"github.com/fd1az/debt-rebalancer/internal/monolith"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshotMarket(id, apy string) marketDomain.Market {
	return marketDomain.Market{
		ID:                 id,
		LoanAsset:          marketDomain.AssetInfo{Address: asset.AddrWETH.Hex(), Symbol: "WETH", Decimals: 18},
		CollateralAsset:    marketDomain.AssetInfo{Address: asset.AddrWstETH.Hex(), Symbol: "wstETH", Decimals: 18},
		LLTV:               d("0.86"),
		BorrowAPY:          d(apy),
		CollateralPriceUSD: d("3300"),
		LoanPriceUSD:       d("3000"),
		State: &marketDomain.MarketState{
			SupplyAssets: decimal.New(1000, 18),
			BorrowAssets: decimal.New(500, 18),
		},
	}
}

func series(hours int, apy string) []marketDomain.TimeseriesPoint {
	out := make([]marketDomain.TimeseriesPoint, hours)
	for i := range out {
		out[i] = marketDomain.TimeseriesPoint{
			Timestamp:   t0.Add(time.Duration(i) * time.Hour),
			BorrowAPY:   d(apy),
			Utilization: d("0.5"),
		}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	doc := snapshot.Document{
		Protocol: "morpho",
		Markets:  []marketDomain.Market{snapshotMarket("dear", "0.05"), snapshotMarket("cheap", "0.03")},
		Timeseries: map[string][]marketDomain.TimeseriesPoint{
			"dear":  series(48, "0.05"),
			"cheap": series(48, "0.03"),
		},
	}
	snapPath := filepath.Join(dir, "snapshot.json")
	require.NoError(t, snapshot.Save(snapPath, doc))

	return &config.Config{
		Provider: config.ProviderConfig{
			Kind:             config.ProviderSnapshot,
			SnapshotPath:     snapPath,
			FetchConcurrency: 2,
			MarketLimit:      100,
		},
		Rebalancing: config.RebalancingConfig{
			CollateralAsset:           "wstETH",
			BorrowAsset:               "WETH",
			CollateralAmount:          10,
			TargetLeverage:            2,
			Protocol:                  "morpho",
			Mode:                      "static_threshold",
			RateThresholdBps:          10,
			MinAllocationPct:          0.05,
			MaxAllocationPct:          0.8,
			UtilizationAlertThreshold: 0.9,
			MinSavingsToRebalance:     10,
			LookbackPeriods:           24,
			MinHealthFactor:           1.2,
			MarginCallThreshold:       1.15,
			GasCostUSD:                5,
			SlippageBps:               5,
			SimulationDays:            30,
			SimulationInterval:        "hour",
		},
		Storage: config.StorageConfig{Enabled: true, Path: filepath.Join(dir, "results.db")},
	}
}

func TestRunConfig(t *testing.T) {
	cfg := testConfig(t).Rebalancing

	runCfg, err := rebalancing.RunConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeStaticThreshold, runCfg.Mode)
	assert.Equal(t, marketDomain.IntervalHour, runCfg.SimulationInterval)
	assert.True(t, runCfg.MaxAllocationPct.Equal(d("0.8")))
	assert.True(t, runCfg.CollateralAmount.Equal(d("10")))

	bad := cfg
	bad.Mode = "yolo"
	_, err = rebalancing.RunConfig(bad)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	bad = cfg
	bad.SimulationInterval = "minute"
	_, err = rebalancing.RunConfig(bad)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	bad = cfg
	bad.LookbackPeriods = 0
	_, err = rebalancing.RunConfig(bad)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestModules_OptimizeAndServeLatest(t *testing.T) {
	ctx := context.Background()
	app := monolith.New(testConfig(t), logger.NewNop())
	defer app.Close()

	modules := []monolith.Module{&market.Module{}, &rebalancing.Module{}}
	require.NoError(t, app.RegisterModules(modules...))
	require.NoError(t, app.StartModules(ctx, modules...))

	job := rebalancingDI.GetOptimizeJob(app.Services())
	require.NoError(t, job.Run(ctx))
	latest := job.Latest()
	require.NotNil(t, latest)
	require.True(t, latest.Success, latest.ErrorMessage)
	assert.Equal(t, "cheap", latest.AvailableMarkets[0].MarketID)

	stored, err := rebalancingDI.GetResultStore(app.Services()).List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, latest.ID, stored[0].ID)

	r := chi.NewRouter()
	r.Route("/results", rebalancingDI.GetResultsHandler(app.Services()).Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/latest", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), latest.ID)
}

func TestModules_StorageDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Enabled = false

	app := monolith.New(cfg, logger.NewNop())
	modules := []monolith.Module{&market.Module{}, &rebalancing.Module{}}
	require.NoError(t, app.RegisterModules(modules...))
	require.NoError(t, app.StartModules(context.Background(), modules...))

	assert.Nil(t, rebalancingDI.GetResultStore(app.Services()))
}

func TestModules_StartupRejectsMissingSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.SnapshotPath = filepath.Join(t.TempDir(), "missing.json")

	app := monolith.New(cfg, logger.NewNop())
	modules := []monolith.Module{&market.Module{}, &rebalancing.Module{}}
	require.NoError(t, app.RegisterModules(modules...))
	assert.Error(t, app.StartModules(context.Background(), modules...))
}
