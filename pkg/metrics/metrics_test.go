package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counts(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)

	m.ObserveProbe(false)
	m.ObserveProbe(true)
	m.ObserveProbe(true)
	m.ObserveInstall(true)
	m.ObserveChannel("ready")
	m.ObserveOperation("write-item", true)
	m.ObserveOperation("write-item", false)
	m.SetActiveOverrides(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.probes.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.installs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.channel.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("write-item", OutcomeFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.overrides))
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(Config{Namespace: "test", Registry: reg})
	require.NoError(t, err)

	// Registering the same names twice fails.
	_, err = New(Config{Namespace: "test", Registry: reg})
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveProbe(true)
		m.ObserveInstall(false)
		m.ObserveChannel("unreachable")
		m.ObserveOperation("set-cookie", true)
		m.SetActiveOverrides(1)
	})
}
