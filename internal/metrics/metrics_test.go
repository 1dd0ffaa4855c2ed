package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveCache(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCache("latest", true)
	m.ObserveCache("latest", false)
	m.ObserveCache("latest", false)
	m.ObserveCache("convert", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("latest", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("latest", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("convert", "hit")))
}

func TestMetrics_SetCircuitState(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	tests := []struct {
		state gobreaker.State
		want  float64
	}{
		{gobreaker.StateOpen, 2},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateClosed, 0},
	}

	for _, tt := range tests {
		m.SetCircuitState("frankfurter", tt.state)
		assert.Equal(t, tt.want, testutil.ToFloat64(m.CircuitState.WithLabelValues("frankfurter")), tt.state.String())
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCache("latest", true)
		m.SetCircuitState("frankfurter", gobreaker.StateOpen)
	})
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RateRequestsTotal.Inc()

	count, err := testutil.GatherAndCount(reg, "rate_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
