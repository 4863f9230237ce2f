package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func hourly(n int, apy string) []domain.TimeseriesPoint {
	out := make([]domain.TimeseriesPoint, n)
	for i := range out {
		out[i] = domain.TimeseriesPoint{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			BorrowAPY: decimal.RequireFromString(apy),
		}
	}
	return out
}

func testDocument() Document {
	return Document{
		Protocol: "morpho",
		Markets: []domain.Market{
			{ID: "m1", LLTV: decimal.RequireFromString("0.945")},
			{ID: "m2", LLTV: decimal.RequireFromString("0.86")},
			{ID: "m3", LLTV: decimal.RequireFromString("0.77")},
		},
		Timeseries: map[string][]domain.TimeseriesPoint{
			"m1": hourly(72, "0.03"),
		},
		Prices: map[string][]domain.PricePoint{
			"m1": {
				{Timestamp: t0.Add(47 * time.Hour), Price: decimal.RequireFromString("1.1")},
				{Timestamp: t0, Price: decimal.RequireFromString("1.09")},
			},
		},
	}
}

func TestProvider_GetMarkets(t *testing.T) {
	p := New(testDocument())
	ctx := context.Background()

	all, err := p.GetMarkets(ctx, "morpho", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := p.GetMarkets(ctx, "MORPHO", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := p.GetMarkets(ctx, "aave", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestProvider_GetMarket(t *testing.T) {
	p := New(testDocument())

	m, err := p.GetMarket(context.Background(), "morpho", "m2")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "m2", m.ID)

	missing, err := p.GetMarket(context.Background(), "morpho", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProvider_GetMarketTimeseries(t *testing.T) {
	p := New(testDocument())
	ctx := context.Background()

	tests := []struct {
		name     string
		interval domain.Interval
		days     int
		want     int
	}{
		{"all hourly", domain.IntervalHour, 0, 72},
		{"last day hourly", domain.IntervalHour, 1, 25},
		{"daily buckets", domain.IntervalDay, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.GetMarketTimeseries(ctx, "morpho", "m1", tt.interval, tt.days)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestProvider_PricesSorted(t *testing.T) {
	p := New(testDocument())

	prices, err := p.GetPriceHistory(context.Background(), "morpho", "m1", domain.IntervalHour, 0)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.True(t, prices[0].Timestamp.Equal(t0))
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, Save(path, testDocument()))

	p, err := Load(path)
	require.NoError(t, err)

	markets, err := p.GetMarkets(context.Background(), "morpho", 0)
	require.NoError(t, err)
	assert.Len(t, markets, 3)
	assert.True(t, markets[0].LLTV.Equal(decimal.RequireFromString("0.945")))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, apperror.CodeMarketDataFetchFailed, apperror.GetCode(err))
}
