// internal/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOrdersRegisteredCounter(t *testing.T) {
	require.Equal(t, float64(0), testutil.ToFloat64(OrdersRegistered.WithLabelValues("api", "success")))

	OrdersRegistered.WithLabelValues("api", "success").Inc()

	require.Equal(t, float64(1), testutil.ToFloat64(OrdersRegistered.WithLabelValues("api", "success")))
}

func TestCandidatePlanningTimeHistogram(t *testing.T) {
	require.Equal(t, 0, testutil.CollectAndCount(CandidatePlanningTime))

	CandidatePlanningTime.WithLabelValues("rank").Observe(0.123)

	require.Equal(t, 1, testutil.CollectAndCount(CandidatePlanningTime))
}

func TestPlaceLookupsCounter(t *testing.T) {
	require.Equal(t, float64(0), testutil.ToFloat64(PlaceLookups.WithLabelValues("hit")))

	PlaceLookups.WithLabelValues("hit").Inc()
	PlaceLookups.WithLabelValues("hit").Inc()

	require.Equal(t, float64(2), testutil.ToFloat64(PlaceLookups.WithLabelValues("hit")))
}

func TestGeocodeRequestsCounter(t *testing.T) {
	require.Equal(t, float64(0), testutil.ToFloat64(GeocodeRequests.WithLabelValues("error")))
	GeocodeRequests.WithLabelValues("error").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(GeocodeRequests.WithLabelValues("error")))
}

func TestDBOperationsCounter(t *testing.T) {
	require.Equal(t, float64(0), testutil.ToFloat64(DBOperations.WithLabelValues("save", "success")))
	DBOperations.WithLabelValues("save", "success").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(DBOperations.WithLabelValues("save", "success")))
}

func TestHTTPRequestsCounter(t *testing.T) {
	require.Equal(t, float64(0), testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/test", "200")))
	HTTPRequests.WithLabelValues("GET", "/api/test", "200").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/test", "200")))
}

func TestHTTPResponseTimeHistogram(t *testing.T) {
	require.Equal(t, 0, testutil.CollectAndCount(HTTPResponseTime))

	HTTPResponseTime.WithLabelValues("POST", "/api/test").Observe(0.456)

	require.Equal(t, 1, testutil.CollectAndCount(HTTPResponseTime))
}
