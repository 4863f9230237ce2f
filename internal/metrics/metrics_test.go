package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewMetricProvider_ExportsToPrometheus(t *testing.T) {
	mp, err := NewMetricProvider(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("rebalancing_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rebalancing_test")
}
