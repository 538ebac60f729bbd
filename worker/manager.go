package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// stopTimeout bounds how long Stop waits for in-flight jobs.
const stopTimeout = 30 * time.Second

// Job is a unit of scheduled work. Run executes one cycle and must absorb
// its own failures; the manager only guards against panics.
type Job interface {
	Name() string
	Run(ctx context.Context)
}

// JobConfig describes one registered job.
type JobConfig struct {
	Name        string
	Schedule    string // cron spec with seconds, or "@every 15s"
	Job         Job
	Enabled     bool
	Description string
}

// Manager schedules all fixed-cadence pollers on a single cron runner with
// second resolution. Jobs run on the cron's goroutines; a panicking job is
// recovered and logged rather than taking the process down.
type Manager struct {
	cron   *cron.Cron
	jobs   map[string]*JobConfig
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool

	log *zap.Logger
}

// NewManager builds an empty manager. Jobs are registered before Start.
func NewManager(log *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cron:   cron.New(cron.WithSeconds()),
		jobs:   make(map[string]*JobConfig),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With(zap.String("component", "worker")),
	}
}

// Register adds a job to the schedule. Disabled jobs are recorded but never
// run, which is how a feature like the miner poller is switched off when
// nothing is configured.
func (m *Manager) Register(cfg *JobConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[cfg.Name]; exists {
		return fmt.Errorf("job %s already registered", cfg.Name)
	}

	if !cfg.Enabled {
		m.jobs[cfg.Name] = cfg
		m.log.Info("job registered but disabled", zap.String("job", cfg.Name))
		return nil
	}

	wrapper := func() {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("job panicked", zap.String("job", cfg.Name), zap.Any("panic", r))
			}
		}()

		cfg.Job.Run(m.ctx)
		m.log.Debug("job cycle complete",
			zap.String("job", cfg.Name), zap.Duration("took", time.Since(start)))
	}

	if _, err := m.cron.AddFunc(cfg.Schedule, wrapper); err != nil {
		return fmt.Errorf("scheduling job %s (%q): %w", cfg.Name, cfg.Schedule, err)
	}

	m.jobs[cfg.Name] = cfg
	m.log.Info("job registered",
		zap.String("job", cfg.Name), zap.String("schedule", cfg.Schedule))
	return nil
}

// Start begins executing enabled jobs on their schedules.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	enabled := 0
	for _, cfg := range m.jobs {
		if cfg.Enabled {
			enabled++
		}
	}
	m.cron.Start()
	m.log.Info("worker manager started", zap.Int("jobs", enabled))
}

// Stop cancels the job context and waits, bounded, for in-flight cycles to
// finish. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.cancel()

	ctx := m.cron.Stop()
	select {
	case <-ctx.Done():
		m.log.Info("worker manager stopped")
	case <-time.After(stopTimeout):
		m.log.Warn("worker manager stop timed out")
	}
}

// Status reports each registered job's enabled flag.
func (m *Manager) Status() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := make(map[string]bool, len(m.jobs))
	for name, cfg := range m.jobs {
		status[name] = cfg.Enabled
	}
	return status
}
