package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	SyncRequests.WithLabelValues("push", "ok").Inc()
	n, err := testutil.GatherAndCount(reg, "vocasync_sync_requests_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestRegister_Extra(t *testing.T) {
	reg := prometheus.NewRegistry()
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_total"})
	require.NoError(t, Register(reg, extra))

	extra.Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(extra))
}
