package profiler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfiler_Record(t *testing.T) {
	p := New(Options{MaxSamples: 2})

	p.Record(StagePredict, 10*time.Millisecond)
	p.Record(StagePredict, 30*time.Millisecond)
	p.Record(StagePredict, 50*time.Millisecond)

	s, ok := p.Summary(StagePredict)
	require.True(t, ok)
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, 40*time.Millisecond, s.Average, "average over the rolling window")
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 50*time.Millisecond, s.Max)

	_, ok = p.Summary(StageRender)
	assert.False(t, ok)
}

func TestProfiler_StartOperation(t *testing.T) {
	p := New(Options{})
	done := p.StartOperation(StageProcess)
	done()

	s, ok := p.Summary(StageProcess)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.Count)
}

func TestProfiler_Counters(t *testing.T) {
	p := New(Options{})
	p.Increment("dropped")
	p.Increment("dropped")
	assert.Equal(t, int64(2), p.Counter("dropped"))
	assert.Zero(t, p.Counter("failed"))
}

func TestProfiler_Report(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(Options{Logger: zap.New(core).Sugar()})
	p.Record(StageFrame, time.Millisecond)
	p.Increment("dropped")

	p.Report()

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "profiler status", logs.All()[0].Message)
	assert.Equal(t, int64(1), logs.All()[0].ContextMap()["dropped"])
	assert.Equal(t, StageFrame, logs.All()[1].ContextMap()["stage"])
}

func TestProfiler_StartStop(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(Options{ReportInterval: 5 * time.Millisecond, Logger: zap.New(core).Sugar()})

	p.Start(context.Background())
	p.Start(context.Background())
	assert.Eventually(t, func() bool { return logs.Len() > 0 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()
}
