package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(id string, created time.Time, net string) *domain.RebalancingResult {
	cfg := domain.DefaultRebalancingConfig()
	cfg.CollateralAsset = "wstETH"
	cfg.BorrowAsset = "WETH"
	cfg.CollateralAmount = decimal.NewFromInt(10)

	return &domain.RebalancingResult{
		ID:        id,
		CreatedAt: created,
		Config:    cfg,
		Success:   true,
		OptimalAllocation: map[string]decimal.Decimal{
			"0xabc": decimal.RequireFromString("4.4"),
		},
		Snapshots: []domain.RebalancingSnapshot{{
			Timestamp:       created,
			TotalDebt:       decimal.RequireFromString("5.5"),
			HealthFactor:    decimal.RequireFromString("1.72"),
			Rebalanced:      true,
			Trigger:         domain.TriggerRateDiff,
			CollateralPrice: decimal.RequireFromString("1.1"),
		}},
		Metrics: domain.RebalancingMetrics{
			RebalanceCount:       3,
			NetSavings:           decimal.RequireFromString(net),
			AnnualizedNetSavings: decimal.RequireFromString(net).Mul(decimal.NewFromInt(12)),
		},
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	in := result("r1", created, "12.5")
	require.NoError(t, s.Save(ctx, in))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, "wstETH/WETH", got.Config.Pair())
	assert.True(t, got.OptimalAllocation["0xabc"].Equal(decimal.RequireFromString("4.4")))
	require.Len(t, got.Snapshots, 1)
	assert.Equal(t, domain.TriggerRateDiff, got.Snapshots[0].Trigger)
	assert.True(t, got.Metrics.NetSavings.Equal(decimal.RequireFromString("12.5")))
}

func TestStore_AssignsID(t *testing.T) {
	s := openMemory(t)
	in := result("", time.Time{}, "1")

	require.NoError(t, s.Save(context.Background(), in))
	assert.Len(t, in.ID, 36)
	assert.False(t, in.CreatedAt.IsZero())
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		require.NoError(t, s.Save(ctx, result(id, base.Add(offset), fmt.Sprint(i))))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 3, all[0].RebalanceCount)
	assert.Equal(t, domain.ModeDynamicRate, all[0].Mode)
	assert.True(t, all[0].NetSavings.Equal(decimal.NewFromInt(1)))

	top, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "new", top[0].ID)
}

func TestStore_NotFound(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.Equal(t, apperror.CodeResultNotFound, apperror.GetCode(err))

	require.NoError(t, s.Save(ctx, result("r1", time.Now().UTC(), "1")))
	require.NoError(t, s.Delete(ctx, "r1"))

	err = s.Delete(ctx, "r1")
	assert.True(t, errors.Is(err, apperror.New(apperror.CodeResultNotFound)))
}

func TestStore_ReplaceOnSave(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	created := time.Now().UTC()

	require.NoError(t, s.Save(ctx, result("r1", created, "1")))
	require.NoError(t, s.Save(ctx, result("r1", created, "2")))

	all, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].NetSavings.Equal(decimal.NewFromInt(2)))
}
