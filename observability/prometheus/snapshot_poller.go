package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hostgpu/go-stream-runtime/core"
)

// SnapshotProvider provides current runtime stats snapshots.
// *core.Runtime satisfies it.
type SnapshotProvider interface {
	Stats() core.RuntimeStats
}

// SnapshotPoller periodically exports Runtime Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	runtimesMu sync.RWMutex
	runtimes   map[string]SnapshotProvider

	controlPending *prom.GaugeVec
	nullPending    *prom.GaugeVec
	userStreams    *prom.GaugeVec
	userPending    *prom.GaugeVec
	tasksExecuted  *prom.GaugeVec
	drains         *prom.GaugeVec
	closed         *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	controlPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "control_pending",
		Help:      "Queued control tasks per runtime.",
	}, []string{"runtime"})
	nullPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "null_pending",
		Help:      "Tasks queued on the null stream per runtime.",
	}, []string{"runtime"})
	userStreams := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "user_streams",
		Help:      "Live user streams per runtime.",
	}, []string{"runtime"})
	userPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "user_pending",
		Help:      "Tasks queued across user streams per runtime.",
	}, []string{"runtime"})
	tasksExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "tasks_executed",
		Help:      "Total tasks executed snapshot per runtime.",
	}, []string{"runtime"})
	drains := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "drain_generations",
		Help:      "Full drain generation count snapshot per runtime.",
	}, []string{"runtime"})
	closed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "streamrt",
		Name:      "closed",
		Help:      "Runtime closed state (1=closed, 0=open).",
	}, []string{"runtime"})

	var err error
	if controlPending, err = registerCollector(reg, controlPending); err != nil {
		return nil, err
	}
	if nullPending, err = registerCollector(reg, nullPending); err != nil {
		return nil, err
	}
	if userStreams, err = registerCollector(reg, userStreams); err != nil {
		return nil, err
	}
	if userPending, err = registerCollector(reg, userPending); err != nil {
		return nil, err
	}
	if tasksExecuted, err = registerCollector(reg, tasksExecuted); err != nil {
		return nil, err
	}
	if drains, err = registerCollector(reg, drains); err != nil {
		return nil, err
	}
	if closed, err = registerCollector(reg, closed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:       interval,
		runtimes:       make(map[string]SnapshotProvider),
		controlPending: controlPending,
		nullPending:    nullPending,
		userStreams:    userStreams,
		userPending:    userPending,
		tasksExecuted:  tasksExecuted,
		drains:         drains,
		closed:         closed,
	}, nil
}

// AddRuntime adds or replaces a runtime snapshot provider by name.
func (p *SnapshotPoller) AddRuntime(name string, provider SnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	if name == "" {
		name = "runtime"
	}
	p.runtimesMu.Lock()
	p.runtimes[name] = provider
	p.runtimesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.runtimesMu.RLock()
	defer p.runtimesMu.RUnlock()

	for name, provider := range p.runtimes {
		stats := provider.Stats()
		p.controlPending.WithLabelValues(name).Set(float64(stats.ControlPending))
		p.nullPending.WithLabelValues(name).Set(float64(stats.NullPending))
		p.userStreams.WithLabelValues(name).Set(float64(stats.UserStreams))
		p.userPending.WithLabelValues(name).Set(float64(stats.UserPending))
		p.tasksExecuted.WithLabelValues(name).Set(float64(stats.TasksExecuted))
		p.drains.WithLabelValues(name).Set(float64(stats.Drains))
		if stats.Closed {
			p.closed.WithLabelValues(name).Set(1)
		} else {
			p.closed.WithLabelValues(name).Set(0)
		}
	}
}
