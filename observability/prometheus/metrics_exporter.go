// Package prometheus exports runtime metrics to Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hostgpu/go-stream-runtime/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	TaskDurationBuckets  []float64
	DrainDurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds  *prom.HistogramVec
	taskPanicTotal       *prom.CounterVec
	drainTotal           prom.Counter
	drainDurationSeconds prom.Histogram
	drainStreams         prom.Histogram
	backoffSpinsTotal    prom.Counter
	liveStreams          prom.Gauge
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "streamrt"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	taskBuckets := opts.TaskDurationBuckets
	if len(taskBuckets) == 0 {
		taskBuckets = prom.DefBuckets
	}
	drainBuckets := opts.DrainDurationBuckets
	if len(drainBuckets) == 0 {
		drainBuckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   taskBuckets,
	}, []string{"stream_class"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"stream_class"})
	drainTotal := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "drain_generations_total",
		Help:      "Total number of full drain generations.",
	})
	drainDuration := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "drain_duration_seconds",
		Help:      "Full drain generation duration in seconds.",
		Buckets:   drainBuckets,
	})
	drainStreams := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "drain_streams",
		Help:      "Streams drained per full drain generation.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})
	backoffSpins := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "backoff_spins_total",
		Help:      "Total yield cycles spent in idle backoff.",
	})
	liveStreams := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "live_streams",
		Help:      "Current number of live user streams.",
	})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if drainTotal, err = registerCollector(reg, drainTotal); err != nil {
		return nil, err
	}
	if drainDuration, err = registerCollector(reg, drainDuration); err != nil {
		return nil, err
	}
	if drainStreams, err = registerCollector(reg, drainStreams); err != nil {
		return nil, err
	}
	if backoffSpins, err = registerCollector(reg, backoffSpins); err != nil {
		return nil, err
	}
	if liveStreams, err = registerCollector(reg, liveStreams); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds:  durationVec,
		taskPanicTotal:       panicVec,
		drainTotal:           drainTotal,
		drainDurationSeconds: drainDuration,
		drainStreams:         drainStreams,
		backoffSpinsTotal:    backoffSpins,
		liveStreams:          liveStreams,
	}, nil
}

// RecordTaskExecuted records one task invocation.
func (m *MetricsExporter) RecordTaskExecuted(class core.StreamClass, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(classLabel(class)).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(class core.StreamClass, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(classLabel(class)).Inc()
}

// RecordDrain records one full drain generation.
func (m *MetricsExporter) RecordDrain(streams int, duration time.Duration) {
	if m == nil {
		return
	}
	m.drainTotal.Inc()
	m.drainDurationSeconds.Observe(duration.Seconds())
	m.drainStreams.Observe(float64(streams))
}

// RecordBackoff records one idle backoff episode.
func (m *MetricsExporter) RecordBackoff(spins int) {
	if m == nil {
		return
	}
	m.backoffSpinsTotal.Add(float64(spins))
}

// RecordStreamCount records the live user stream count.
func (m *MetricsExporter) RecordStreamCount(n int) {
	if m == nil {
		return
	}
	m.liveStreams.Set(float64(n))
}

func classLabel(class core.StreamClass) string {
	if class == "" {
		return "unknown"
	}
	return string(class)
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
