package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/vme-thermal/internal/infrastructure/config"
	"github.com/nerrad567/vme-thermal/internal/report"
	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// DefaultInterval is the report window when none is configured.
const DefaultInterval = time.Minute

// Logger defines the logging interface used by the Monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the collaborators and schedule of a Monitor.
type Config struct {
	// Registry must already have its sink attached.
	Registry *thermal.Registry

	// Publisher receives every batch written to the sink. Optional.
	Publisher report.Publisher

	// Interval is the report window. Default: one minute.
	Interval time.Duration

	// MaxCycles stops Run after that many cycles. 0 runs until cancelled.
	MaxCycles int
}

// Monitor owns a Registry and runs its report cycle.
//
// All public methods are thread-safe.
type Monitor struct {
	mu        sync.Mutex
	reg       *thermal.Registry
	last      *thermal.Batch
	cycles    int
	failures  int
	publisher report.Publisher
	interval  time.Duration
	maxCycles int
	logger    Logger
}

// New creates a Monitor. Call Run to start the loop.
func New(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		reg:       cfg.Registry,
		publisher: cfg.Publisher,
		interval:  interval,
		maxCycles: cfg.MaxCycles,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// AddSensor registers a sensor, replacing any at the same address.
func (m *Monitor) AddSensor(address uint16, kind thermal.Kind, opts ...thermal.Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reg.AddSensor(address, kind, opts...); err != nil {
		return err
	}
	m.logger.Info("sensor added", "address", address, "kind", kind.Code())
	return nil
}

// RemoveSensor unregisters the sensor at address.
func (m *Monitor) RemoveSensor(address uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reg.RemoveSensor(address); err != nil {
		return err
	}
	m.logger.Info("sensor removed", "address", address)
	return nil
}

// SetCalibration recalibrates the sensor at address.
func (m *Monitor) SetCalibration(address uint16, scalingFactor, offset float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reg.SetCalibration(address, scalingFactor, offset); err != nil {
		return err
	}
	m.logger.Info("sensor recalibrated", "address", address,
		"scaling_factor", scalingFactor, "offset", offset)
	return nil
}

// Sensor returns a snapshot of the sensor at address.
func (m *Monitor) Sensor(address uint16) (thermal.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.Sensor(address)
}

// Sensors returns snapshots of every sensor, ordered by address.
func (m *Monitor) Sensors() []thermal.Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.Sensors()
}

// LastBatch returns the most recent successful batch, if any.
func (m *Monitor) LastBatch() (thermal.Batch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return thermal.Batch{}, false
	}
	return *m.last, true
}

// Stats returns the number of completed and failed cycles.
func (m *Monitor) Stats() (cycles, failures int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles, m.failures
}

// LoadSensors registers the sensors listed in configuration.
func (m *Monitor) LoadSensors(sensors []config.SensorConfig) error {
	for _, sc := range sensors {
		kind, err := thermal.ParseKind(sc.Kind)
		if err != nil {
			return fmt.Errorf("sensor %d: %w", sc.Address, err)
		}

		scalingFactor := thermal.DefaultScalingFactor
		if sc.ScalingFactor != nil {
			scalingFactor = *sc.ScalingFactor
		}

		if err := m.AddSensor(sc.Address, kind,
			thermal.WithCalibration(scalingFactor, sc.Offset),
			thermal.WithName(sc.Name),
		); err != nil {
			return fmt.Errorf("sensor %d: %w", sc.Address, err)
		}
	}
	return nil
}

// Cycle measures every sensor, writes one report and publishes the batch.
//
// A measurement or sink failure is returned as is and nothing is
// published. A publish failure is wrapped in ErrPublish; the batch is still
// returned because the report was written.
func (m *Monitor) Cycle(ctx context.Context) (thermal.Batch, error) {
	m.mu.Lock()
	batch, err := m.reg.MeasureAllAndReport()
	if err != nil {
		m.failures++
		m.mu.Unlock()
		m.logger.Error("measure cycle failed", "error", err)
		return thermal.Batch{}, err
	}
	m.cycles++
	m.last = &batch
	m.mu.Unlock()

	m.logger.Debug("report written", "timestamp", batch.FormatTimestamp(), "sensors", len(batch.Records))

	if m.publisher == nil {
		return batch, nil
	}
	if err := m.publisher.Publish(ctx, batch); err != nil {
		m.logger.Warn("report publish failed", "error", err)
		return batch, fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return batch, nil
}

// Run cycles once per interval until ctx is cancelled or MaxCycles cycles
// have run. Cycle errors are logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started", "interval", m.interval.String(), "max_cycles", m.maxCycles)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		if _, err := m.Cycle(ctx); err != nil && errors.Is(err, context.Canceled) {
			return nil
		}
		if m.maxCycles > 0 && n >= m.maxCycles {
			m.logger.Info("monitor finished", "cycles", n)
			return nil
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}
