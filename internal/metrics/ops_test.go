package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopMetrics methods must be callable without panicking regardless of
// global registry state, since they're what callers get when metrics
// are disabled.
func TestNoopMetricsDoesNothing(t *testing.T) {
	var m OpMetrics = noopMetrics{}
	m.RecordRequest("GETATTR", time.Millisecond, "ok")
	m.RecordBytesTransferred("READ", "in", 128)
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.SetActiveConnections(3)
}

func TestNewOpMetricsBacksOntoRegistryWhenEnabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry = reg // direct assignment keeps this test independent of registryOnce.

	m := NewOpMetrics()
	_, ok := m.(*opMetrics)
	require.True(t, ok, "expected Prometheus-backed implementation once a registry is set")

	m.RecordRequest("WRITE", 2*time.Millisecond, "ok")
	m.RecordBytesTransferred("WRITE", "out", 64)
	m.RecordConnectionAccepted()
	m.SetActiveConnections(1)
	m.RecordConnectionClosed()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	registry = nil
}

func TestNewOpMetricsReturnsNoopWhenDisabled(t *testing.T) {
	registry = nil
	m := NewOpMetrics()
	_, ok := m.(noopMetrics)
	assert.True(t, ok)
}
