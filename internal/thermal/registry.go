package thermal

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"
)

// Registry holds the sensors of a crate keyed by hardware address and
// produces batch reports.
//
// The registry does not own its sink: it never opens, flushes or closes it.
// Reports iterate sensors in ascending address order.
type Registry struct {
	source  RawChannelSource
	sensors map[uint16]*Sensor
	sink    io.Writer
	now     func() time.Time
}

// NewRegistry creates an empty registry whose sensors read from source.
func NewRegistry(source RawChannelSource) *Registry {
	return &Registry{
		source:  source,
		sensors: make(map[uint16]*Sensor),
		now:     time.Now,
	}
}

// SetSink sets the writer that receives reports. Passing nil detaches it.
// A previously attached writer is left untouched.
func (r *Registry) SetSink(sink io.Writer) {
	r.sink = sink
}

// SetClock replaces the clock used to timestamp batches.
func (r *Registry) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.now = now
}

// AddSensor registers a sensor, replacing any sensor at the same address.
// Returns ErrInvalidAddress if the address is out of range.
func (r *Registry) AddSensor(address uint16, kind Kind, opts ...Option) error {
	sensor, err := NewSensor(address, kind, r.source, opts...)
	if err != nil {
		return err
	}
	r.sensors[address] = sensor
	return nil
}

// RemoveSensor unregisters the sensor at address.
// Returns ErrUnknownAddress if none is registered.
func (r *Registry) RemoveSensor(address uint16) error {
	if _, ok := r.sensors[address]; !ok {
		return unknown(address)
	}
	delete(r.sensors, address)
	return nil
}

// SetCalibration sets the scaling factor and offset of the sensor at address.
// Returns ErrUnknownAddress if none is registered.
func (r *Registry) SetCalibration(address uint16, scalingFactor, offset float64) error {
	sensor, ok := r.sensors[address]
	if !ok {
		return unknown(address)
	}
	sensor.SetScalingFactor(scalingFactor)
	sensor.SetOffset(offset)
	return nil
}

// Sensor returns a copy of the sensor at address.
func (r *Registry) Sensor(address uint16) (Sensor, error) {
	sensor, ok := r.sensors[address]
	if !ok {
		return Sensor{}, unknown(address)
	}
	return *sensor, nil
}

// Sensors returns copies of all registered sensors ordered by address.
func (r *Registry) Sensors() []Sensor {
	out := make([]Sensor, 0, len(r.sensors))
	for _, address := range r.addresses() {
		out = append(out, *r.sensors[address])
	}
	return out
}

// Len returns the number of registered sensors.
func (r *Registry) Len() int {
	return len(r.sensors)
}

// MeasureAllAndReport measures every sensor in ascending address order and
// writes one YAML report to the sink.
//
// A read error on any sensor aborts the batch: nothing is written and the
// error is returned. Sensors measured before the failure keep their new
// readings.
//
// Returns ErrNoSink if no sink is attached and ErrSinkWrite if writing fails.
func (r *Registry) MeasureAllAndReport() (Batch, error) {
	if r.sink == nil {
		return Batch{}, ErrNoSink
	}

	batch := Batch{
		Timestamp: r.now(),
		Records:   make([]Record, 0, len(r.sensors)),
	}

	for _, address := range r.addresses() {
		sensor := r.sensors[address]
		if _, err := sensor.Measure(); err != nil {
			return Batch{}, fmt.Errorf("measuring sensor %d: %w", address, err)
		}
		batch.Records = append(batch.Records, recordOf(sensor))
	}

	if _, err := batch.WriteTo(r.sink); err != nil {
		return Batch{}, fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}

	return batch, nil
}

func (r *Registry) addresses() []uint16 {
	return slices.Sorted(maps.Keys(r.sensors))
}

// recordOf captures a measured sensor. The sensor must have been sampled.
func recordOf(s *Sensor) Record {
	return Record{
		Address:        s.address,
		Name:           s.name,
		Kind:           s.kind,
		ScalingFactor:  s.scalingFactor,
		Offset:         s.offset,
		RawValue:       s.rawValue,
		Temperature:    s.temperature,
		MinTemperature: s.minTemperature,
		MaxTemperature: s.maxTemperature,
	}
}

func unknown(address uint16) error {
	return fmt.Errorf("%w: %d", ErrUnknownAddress, address)
}
