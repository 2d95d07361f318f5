package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordTicker("gkyz", "ok")
	r.RecordTicker("gkyz", "ok")
	r.RecordSkip("implied_vol", "no_data")
	r.RecordError("sink_kafka")
	r.RecordLatency("run", 0.4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tickersTotal.WithLabelValues("gkyz", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipsTotal.WithLabelValues("implied_vol", "no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("sink_kafka")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}
