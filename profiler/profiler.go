// Package profiler - Rolling stage timings with periodic structured reports.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage names recorded by the frame pipeline.
const (
	StagePredict = "predict"
	StageProcess = "process"
	StageRender  = "render"
	StageFrame   = "frame"
)

// TimeTracker keeps a rolling window of durations for one stage.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Summary is a snapshot of one TimeTracker.
type Summary struct {
	Count   int64
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
}

// Options configures the profiler.
type Options struct {
	// ReportInterval specifies how often to emit status reports (default: 5s).
	ReportInterval time.Duration
	// MaxSamples bounds the rolling window per stage (default: 300).
	MaxSamples int
	// Logger receives the reports. Nil disables reporting.
	Logger *zap.SugaredLogger
}

// Profiler records stage durations and logs a summary periodically.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int
	logger         *zap.SugaredLogger

	mu        sync.RWMutex
	startTime time.Time
	stages    map[string]*TimeTracker
	counters  map[string]int64

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
}

// New creates a profiler with the specified options.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 5 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 300
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		startTime:      time.Now(),
		stages:         make(map[string]*TimeTracker),
		counters:       make(map[string]int64),
	}
}

// Start begins periodic reporting until ctx ends or Stop is called. Calling
// Start on a running profiler does nothing.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.startTime = time.Now()

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Report()
			}
		}
	}()
}

// Stop ends reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// StartOperation begins timing a stage.
//
// Returns:
//   - func(): Call it when the stage completes.
//
// Example:
//
// ```go
//
//	done := p.StartOperation(profiler.StagePredict)
//	raw, err := engine.Predict(ctx, img, t)
//	done()
//
// ```
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration to a stage.
func (p *Profiler) Record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.stages[name]
	if !ok {
		t = &TimeTracker{minTime: d, maxTime: d}
		p.stages[name] = t
	}

	t.durations = append(t.durations, d)
	t.totalTime += d
	if len(t.durations) > p.maxSamples {
		t.totalTime -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
	if d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
}

// Increment bumps a named counter, e.g. dropped frames.
func (p *Profiler) Increment(name string) {
	p.mu.Lock()
	p.counters[name]++
	p.mu.Unlock()
}

// Summary returns the rolling statistics of a stage.
func (p *Profiler) Summary(name string) (Summary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.stages[name]
	if !ok || len(t.durations) == 0 {
		return Summary{}, false
	}
	return Summary{
		Count:   t.count,
		Average: t.totalTime / time.Duration(len(t.durations)),
		Min:     t.minTime,
		Max:     t.maxTime,
	}, true
}

// Counter returns the value of a named counter.
func (p *Profiler) Counter(name string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counters[name]
}

// Report logs one line per stage plus the counters.
func (p *Profiler) Report() {
	p.mu.RLock()
	names := make([]string, 0, len(p.stages))
	for name := range p.stages {
		names = append(names, name)
	}
	counters := make([]interface{}, 0, 2*len(p.counters))
	for name, v := range p.counters {
		counters = append(counters, name, v)
	}
	uptime := time.Since(p.startTime)
	p.mu.RUnlock()

	sort.Strings(names)
	p.logger.Infow("profiler status",
		append([]interface{}{
			"uptime", uptime.Truncate(time.Millisecond),
			"goroutines", runtime.NumGoroutine(),
		}, counters...)...,
	)
	for _, name := range names {
		s, ok := p.Summary(name)
		if !ok {
			continue
		}
		p.logger.Infow("stage timing",
			"stage", name,
			"avg", s.Average.Truncate(time.Microsecond),
			"min", s.Min.Truncate(time.Microsecond),
			"max", s.Max.Truncate(time.Microsecond),
			"count", s.Count,
		)
	}
}
