package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountsChainRuns(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.ChainFinished("start", OutcomeCompleted)
	rec.ChainFinished("start", OutcomeCompleted)
	rec.ChainFinished("start", OutcomeTerminated)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.chainRuns.WithLabelValues("start", OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.chainRuns.WithLabelValues("start", OutcomeTerminated)))
}

func TestRecorder_PoolGaugeTracksInFlight(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.PoolUnitStarted("high")
	rec.PoolUnitStarted("high")
	rec.PoolUnitFinished("high")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.poolInFlight.WithLabelValues("high")))
}

func TestRecorder_MetadataReadResults(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.MetadataRead(SourceReader, true)
	rec.MetadataRead(SourceReader, false)
	rec.MetadataRead(SourceCache, true)
	rec.RegistrySize(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metadataReads.WithLabelValues(SourceReader, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metadataReads.WithLabelValues(SourceReader, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metadataReads.WithLabelValues(SourceCache, "ok")))
	assert.Equal(t, 42.0, testutil.ToFloat64(rec.registryEntries))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder

	assert.NotPanics(t, func() {
		rec.ChainFinished("start", OutcomeCompleted)
		rec.ActionObserved("start", "halt", time.Millisecond)
		rec.MetadataRead(SourceCache, true)
		rec.RegistrySize(1)
		rec.PoolUnitStarted("low")
		rec.PoolUnitFinished("low")
		rec.BatchObserved("queue", time.Millisecond)
		rec.EventPublished("track.changed")
	})
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)
	rec.ChainFinished("stop", OutcomeCompleted)

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gotune_playback_chain_runs_total"])
}
