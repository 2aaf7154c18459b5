package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/vme-thermal/internal/adc"
	"github.com/nerrad567/vme-thermal/internal/infrastructure/config"
	"github.com/nerrad567/vme-thermal/internal/report"
	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// syncBuffer is a bytes.Buffer safe for the monitor goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches []thermal.Batch
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, batch thermal.Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, batch)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func newTestMonitor(t *testing.T, raw int, pub report.Publisher) (*Monitor, *adc.Simulator, *syncBuffer) {
	t.Helper()

	sim := adc.NewSimulator(adc.Config{Fixed: true, FixedValue: raw})
	reg := thermal.NewRegistry(sim)
	sink := &syncBuffer{}
	reg.SetSink(sink)

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	})

	return New(Config{Registry: reg, Publisher: pub, Interval: 5 * time.Millisecond}), sim, sink
}

func TestMonitor_CycleWritesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	mon, _, sink := newTestMonitor(t, 20, pub)

	if err := mon.AddSensor(2, thermal.KindVoltage0to10V, thermal.WithName("coolant")); err != nil {
		t.Fatalf("AddSensor() error = %v", err)
	}

	batch, err := mon.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Temperature != 20 {
		t.Errorf("batch = %+v", batch)
	}
	if !strings.Contains(sink.String(), "2-coolant:") {
		t.Errorf("sink = %q, want report entry", sink.String())
	}
	if pub.count() != 1 {
		t.Errorf("published %d batches, want 1", pub.count())
	}

	last, ok := mon.LastBatch()
	if !ok || !last.Timestamp.Equal(batch.Timestamp) {
		t.Errorf("LastBatch() = %v, %v", last, ok)
	}
	if cycles, failures := mon.Stats(); cycles != 1 || failures != 0 {
		t.Errorf("Stats() = %d, %d; want 1, 0", cycles, failures)
	}
}

func TestMonitor_CycleReadErrorPublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	mon, sim, sink := newTestMonitor(t, 20, pub)

	if err := mon.AddSensor(1, thermal.KindVoltage0to10V); err != nil {
		t.Fatal(err)
	}
	sim.Pin(thermal.InvalidReading)

	if _, err := mon.Cycle(context.Background()); !errors.Is(err, thermal.ErrReadError) {
		t.Fatalf("Cycle() error = %v, want ErrReadError", err)
	}
	if sink.String() != "" {
		t.Errorf("sink = %q, want nothing written", sink.String())
	}
	if pub.count() != 0 {
		t.Errorf("published %d batches, want 0", pub.count())
	}
	if _, ok := mon.LastBatch(); ok {
		t.Error("LastBatch() should be empty after a failed cycle")
	}
	if _, failures := mon.Stats(); failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestMonitor_CyclePublishError(t *testing.T) {
	errDown := errors.New("broker down")
	mon, _, sink := newTestMonitor(t, 20, &recordingPublisher{err: errDown})

	batch, err := mon.Cycle(context.Background())
	if !errors.Is(err, ErrPublish) || !errors.Is(err, errDown) {
		t.Fatalf("Cycle() error = %v, want ErrPublish wrapping broker error", err)
	}
	if batch.Timestamp.IsZero() {
		t.Error("Cycle() should return the written batch on publish failure")
	}
	if sink.String() == "" {
		t.Error("report should be written before publishing")
	}
}

func TestMonitor_RunStopsAfterMaxCycles(t *testing.T) {
	pub := &recordingPublisher{}
	mon, _, _ := newTestMonitor(t, 4, pub)
	mon.maxCycles = 3

	if err := mon.AddSensor(0, thermal.KindCurrent4to20mA); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := mon.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pub.count() != 3 {
		t.Errorf("published %d batches, want 3", pub.count())
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	mon, _, _ := newTestMonitor(t, 4, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for pub.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("monitor did not cycle")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestMonitor_RunContinuesAfterFailedCycle(t *testing.T) {
	pub := &recordingPublisher{}
	mon, sim, _ := newTestMonitor(t, 4, pub)
	mon.maxCycles = 2

	if err := mon.AddSensor(0, thermal.KindVoltage0to10V); err != nil {
		t.Fatal(err)
	}
	sim.Pin(thermal.MaxRaw + 1)

	if err := mon.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cycles, failures := mon.Stats(); cycles != 0 || failures != 2 {
		t.Errorf("Stats() = %d, %d; want 0, 2", cycles, failures)
	}
}

func TestMonitor_SensorOperations(t *testing.T) {
	mon, _, _ := newTestMonitor(t, 10, nil)

	if err := mon.AddSensor(thermal.MaxAddresses, thermal.KindVoltage0to10V); !errors.Is(err, thermal.ErrInvalidAddress) {
		t.Errorf("AddSensor(14) error = %v, want ErrInvalidAddress", err)
	}
	if err := mon.AddSensor(5, thermal.KindVoltage0to10V); err != nil {
		t.Fatal(err)
	}
	if err := mon.AddSensor(3, thermal.KindCurrent4to20mA); err != nil {
		t.Fatal(err)
	}

	sensors := mon.Sensors()
	if len(sensors) != 2 || sensors[0].Address() != 3 || sensors[1].Address() != 5 {
		t.Errorf("Sensors() not ordered by address")
	}

	if err := mon.SetCalibration(5, 2, 1); err != nil {
		t.Fatalf("SetCalibration() error = %v", err)
	}
	s, err := mon.Sensor(5)
	if err != nil {
		t.Fatalf("Sensor() error = %v", err)
	}
	if s.ScalingFactor() != 2 || s.Offset() != 1 {
		t.Errorf("calibration = %v, %v; want 2, 1", s.ScalingFactor(), s.Offset())
	}

	if err := mon.RemoveSensor(5); err != nil {
		t.Fatalf("RemoveSensor() error = %v", err)
	}
	if err := mon.RemoveSensor(5); !errors.Is(err, thermal.ErrUnknownAddress) {
		t.Errorf("second RemoveSensor() error = %v, want ErrUnknownAddress", err)
	}
	if err := mon.SetCalibration(9, 1, 0); !errors.Is(err, thermal.ErrUnknownAddress) {
		t.Errorf("SetCalibration(9) error = %v, want ErrUnknownAddress", err)
	}
}

func TestMonitor_LoadSensors(t *testing.T) {
	mon, _, _ := newTestMonitor(t, 10, nil)
	half := 0.5

	err := mon.LoadSensors([]config.SensorConfig{
		{Address: 1, Kind: "voltage_0_10v", Name: "inlet", ScalingFactor: &half, Offset: 5},
		{Address: 2, Kind: "current_4_20ma"},
	})
	if err != nil {
		t.Fatalf("LoadSensors() error = %v", err)
	}

	inlet, err := mon.Sensor(1)
	if err != nil {
		t.Fatal(err)
	}
	if inlet.Name() != "inlet" || inlet.ScalingFactor() != 0.5 || inlet.Offset() != 5 {
		t.Errorf("inlet = %s", inlet.String())
	}

	plain, err := mon.Sensor(2)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Name() != thermal.DefaultName || plain.ScalingFactor() != thermal.DefaultScalingFactor {
		t.Errorf("defaults not applied: %s", plain.String())
	}

	if err := mon.LoadSensors([]config.SensorConfig{{Address: 3, Kind: "pt100"}}); err == nil {
		t.Error("LoadSensors() expected error for unknown kind")
	}
}
