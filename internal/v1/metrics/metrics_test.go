package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestActiveConnections_IncDec(t *testing.T) {
	ActiveConnections.Set(0)
	ActiveConnections.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(ActiveConnections))
	ActiveConnections.Dec()
	assert.Equal(t, float64(0), testutil.ToFloat64(ActiveConnections))
}

func TestCallsEndedTotal_LabeledByReason(t *testing.T) {
	CallsEndedTotal.WithLabelValues("hangup").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(CallsEndedTotal.WithLabelValues("hangup")))
}
