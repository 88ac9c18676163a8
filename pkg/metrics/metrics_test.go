package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "healthpoint")

	m.Bookings.WithLabelValues(OutcomeBooked).Inc()
	m.Bookings.WithLabelValues(OutcomeBooked).Inc()
	m.LedgerConflict.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Bookings.WithLabelValues(OutcomeBooked)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LedgerConflict))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetricsTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry(), "healthpoint")
		NewMetrics(prometheus.NewRegistry(), "healthpoint")
	})
}
