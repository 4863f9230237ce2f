package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/markets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "morpho", r.URL.Query().Get("protocol"))
		assert.Equal(t, "2", r.URL.Query().Get("first"))
		w.Write([]byte(`{"markets":[
			{"id":"0xaa","lltv":"0.945","borrow_apy":"0.031",
			 "loan_asset":{"symbol":"WETH","decimals":18},
			 "collateral_asset":{"symbol":"wstETH","decimals":18},
			 "state":{"supply_assets":"1000000000000000000000","borrow_assets":"850000000000000000000"}},
			{"id":"0xbb","lltv":"0.86","borrow_apy":0.045}
		]}`))
	})
	r.Get("/markets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "0xaa" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"id":"0xaa","lltv":"0.945"}`))
	})
	r.Get("/markets/{id}/timeseries", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "HOUR", r.URL.Query().Get("interval"))
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		w.Write([]byte(`{"points":[
			{"timestamp":"2024-01-01T00:00:00Z","borrow_apy":"0.03","utilization":"0.85"},
			{"timestamp":"2024-01-01T01:00:00Z","borrow_apy":"0.032","utilization":"0.86"}
		]}`))
	})
	r.Get("/markets/{id}/prices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`try later`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	srv := newTestServer(t)
	p, err := NewProvider(Config{BaseURL: srv.URL}, logger.NewNop())
	require.NoError(t, err)
	return p
}

func TestProvider_GetMarkets(t *testing.T) {
	p := newTestProvider(t)

	markets, err := p.GetMarkets(context.Background(), "morpho", 2)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	assert.Equal(t, "0xaa", markets[0].ID)
	assert.True(t, markets[0].LLTV.Equal(decimal.RequireFromString("0.945")))
	assert.True(t, markets[0].Utilization().Equal(decimal.RequireFromString("0.85")))
	assert.True(t, markets[1].BorrowAPY.Equal(decimal.RequireFromString("0.045")))
}

func TestProvider_GetMarket(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	m, err := p.GetMarket(ctx, "morpho", "0xaa")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "0xaa", m.ID)

	missing, err := p.GetMarket(ctx, "morpho", "0xcc")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProvider_GetMarketTimeseries(t *testing.T) {
	p := newTestProvider(t)

	points, err := p.GetMarketTimeseries(context.Background(), "morpho", "0xaa", domain.IntervalHour, 7)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[1].BorrowAPY.Equal(decimal.RequireFromString("0.032")))
	assert.True(t, points[0].Timestamp.Before(points[1].Timestamp))
}

func TestProvider_StatusError(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.GetPriceHistory(context.Background(), "morpho", "0xaa", domain.IntervalHour, 7)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeMarketDataFetchFailed, apperror.GetCode(err))
}

func TestNewProvider_RequiresBaseURL(t *testing.T) {
	_, err := NewProvider(Config{}, logger.NewNop())
	assert.Equal(t, apperror.CodeConfigurationError, apperror.GetCode(err))
}

func TestProvider_SendsAPIKey(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"markets":[]}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(Config{BaseURL: srv.URL, APIKey: "secret"}, logger.NewNop())
	require.NoError(t, err)

	_, err = p.GetMarkets(context.Background(), "morpho", 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
}
