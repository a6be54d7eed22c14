package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Exposition(t *testing.T) {
	m := New(false)

	m.ObserveRecompute("percentage-sum", true, 2*time.Millisecond)
	m.ObserveRecompute("percentage-sum", true, time.Millisecond)
	m.ObserveRecompute("direct-ratio", false, time.Millisecond)
	m.LotAlert("critical")
	m.CoercionDiagnostic("warehouse_stock")
	m.ObserveScan(3, time.Second)

	out := scrape(t, m)
	assert.Contains(t, out, `supply_coverage_recomputes_total{scoped="true",strategy="percentage-sum"} 2`)
	assert.Contains(t, out, `supply_coverage_recomputes_total{scoped="false",strategy="direct-ratio"} 1`)
	assert.Contains(t, out, `supply_lot_alerts_total{state="critical"} 1`)
	assert.Contains(t, out, `supply_coercion_diagnostics_total{field="warehouse_stock"} 1`)
	assert.Contains(t, out, `supply_alert_scan_tenants_total 3`)
	assert.Contains(t, out, `supply_coverage_recompute_seconds_count{strategy="percentage-sum"} 2`)
}

func TestMetrics_RuntimeCollectors(t *testing.T) {
	out := scrape(t, New(true))
	assert.Contains(t, out, "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecompute("percentage-sum", false, time.Millisecond)
		m.LotAlert("expired")
		m.CoercionDiagnostic("unit_price")
		m.ObserveScan(1, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
