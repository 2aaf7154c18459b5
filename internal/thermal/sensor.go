package thermal

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sensor is a temperature sensor wired to one ADC channel.
//
// Derived temperatures are recomputed from the stored raw values whenever the
// sensor is sampled or its calibration changes, so they always reflect the
// current scaling factor and offset.
//
// A Sensor value may be copied; copies share the RawChannelSource but not the
// measurement state.
type Sensor struct {
	address uint16
	name    string
	kind    Kind
	source  RawChannelSource

	scalingFactor float64
	offset        float64

	sampled  bool
	rawValue int
	minRaw   int
	maxRaw   int

	temperature    float64
	minTemperature float64
	maxTemperature float64
}

// Option configures a Sensor at construction.
type Option func(*Sensor)

// WithCalibration sets the initial scaling factor and offset.
func WithCalibration(scalingFactor, offset float64) Option {
	return func(s *Sensor) {
		s.scalingFactor = scalingFactor
		s.offset = offset
	}
}

// WithName sets the display name. An empty name keeps DefaultName.
func WithName(name string) Option {
	return func(s *Sensor) {
		if name != "" {
			s.name = name
		}
	}
}

// NewSensor creates a sensor on the given ADC channel.
// Returns ErrInvalidAddress if address is not below MaxAddresses.
func NewSensor(address uint16, kind Kind, source RawChannelSource, opts ...Option) (*Sensor, error) {
	if address >= MaxAddresses {
		return nil, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidAddress, address, MaxAddresses-1)
	}

	s := &Sensor{
		address:       address,
		name:          DefaultName,
		kind:          kind,
		source:        source,
		scalingFactor: DefaultScalingFactor,
		offset:        DefaultOffset,
		rawValue:      InvalidReading,
		minRaw:        math.MaxInt16,
		maxRaw:        InvalidReading,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Address returns the hardware address.
func (s *Sensor) Address() uint16 { return s.address }

// Name returns the display name.
func (s *Sensor) Name() string { return s.name }

// Kind returns the signal type.
func (s *Sensor) Kind() Kind { return s.kind }

// ScalingFactor returns the current scaling factor.
func (s *Sensor) ScalingFactor() float64 { return s.scalingFactor }

// Offset returns the current offset.
func (s *Sensor) Offset() float64 { return s.offset }

// Sampled reports whether at least one ADC reading has been taken.
func (s *Sensor) Sampled() bool { return s.sampled }

// Sample reads one raw value from the ADC and refreshes the derived
// temperatures.
//
// Returns ErrReadError if the channel cannot be read or the value is outside
// [0, MaxRaw]. A failed sample leaves the sensor unchanged.
func (s *Sensor) Sample() error {
	if s.address >= MaxAddresses {
		return fmt.Errorf("%w: sensor address %d should be below %d", ErrReadError, s.address, MaxAddresses)
	}
	if s.source == nil {
		return fmt.Errorf("%w: sensor %d has no adc source", ErrReadError, s.address)
	}

	raw, err := s.source.ReadRaw(s.address)
	if err != nil {
		return fmt.Errorf("%w: sensor %d: %w", ErrReadError, s.address, err)
	}
	if raw < 0 || raw > MaxRaw {
		return fmt.Errorf("%w: sensor %d value %d outside 0..%d", ErrReadError, s.address, raw, MaxRaw)
	}

	s.rawValue = raw
	s.minRaw = min(raw, s.minRaw)
	s.maxRaw = max(raw, s.maxRaw)
	s.sampled = true

	return s.Convert()
}

// Convert recomputes temperature, minimum and maximum from the stored raw
// values and the current calibration.
// Returns ErrNotSampledYet if the sensor has never been sampled.
func (s *Sensor) Convert() error {
	if !s.sampled {
		return s.notSampled()
	}

	s.temperature = s.toTemperature(s.rawValue)
	s.minTemperature = s.toTemperature(s.minRaw)
	s.maxTemperature = s.toTemperature(s.maxRaw)
	return nil
}

// Measure samples the ADC and returns the converted temperature.
func (s *Sensor) Measure() (float64, error) {
	if err := s.Sample(); err != nil {
		return 0, err
	}
	if err := s.Convert(); err != nil {
		return 0, err
	}
	return s.temperature, nil
}

// SetScalingFactor updates the scaling factor. Derived temperatures are
// recomputed if the value changed and the sensor has been sampled.
func (s *Sensor) SetScalingFactor(scalingFactor float64) {
	if s.scalingFactor == scalingFactor {
		return
	}
	s.scalingFactor = scalingFactor
	s.recalibrate()
}

// SetOffset updates the offset. Derived temperatures are recomputed if the
// value changed and the sensor has been sampled.
func (s *Sensor) SetOffset(offset float64) {
	if s.offset == offset {
		return
	}
	s.offset = offset
	s.recalibrate()
}

// recalibrate converts again after a calibration change.
// Calibrating before the first reading is allowed and has nothing to convert.
func (s *Sensor) recalibrate() {
	if !s.sampled {
		return
	}
	//nolint:errcheck // Convert only fails on unsampled sensors, excluded above
	s.Convert()
}

// Temperature returns the last converted temperature.
func (s *Sensor) Temperature() (float64, error) {
	if !s.sampled {
		return 0, s.notSampled()
	}
	return s.temperature, nil
}

// MinTemperature returns the lowest temperature seen, under the current
// calibration.
func (s *Sensor) MinTemperature() (float64, error) {
	if !s.sampled {
		return 0, s.notSampled()
	}
	return s.minTemperature, nil
}

// MaxTemperature returns the highest temperature seen, under the current
// calibration.
func (s *Sensor) MaxTemperature() (float64, error) {
	if !s.sampled {
		return 0, s.notSampled()
	}
	return s.maxTemperature, nil
}

// RawValue returns the last raw ADC value.
func (s *Sensor) RawValue() (int, error) {
	if !s.sampled {
		return 0, s.notSampled()
	}
	return s.rawValue, nil
}

// MinRawValue returns the lowest raw ADC value seen.
func (s *Sensor) MinRawValue() (int, error) {
	if !s.sampled {
		return 0, s.notSampled()
	}
	return s.minRaw, nil
}

// MaxRawValue returns the highest raw ADC value seen.
func (s *Sensor) MaxRawValue() (int, error) {
	if !s.sampled {
		return 0, s.notSampled()
	}
	return s.maxRaw, nil
}

// Equal reports whether two sensors have the same name, address and
// calibration. Measurement state is not compared.
func (s *Sensor) Equal(other *Sensor) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.name == other.name &&
		s.address == other.address &&
		s.scalingFactor == other.scalingFactor &&
		s.offset == other.offset
}

// String renders the sensor identity and calibration as a YAML flow mapping,
// e.g. {name: Unnamed, Hardware Id: 1, Scaling factor: 1, Offset: 0}.
func (s *Sensor) String() string {
	node := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	appendPair(node, "name", s.name)
	appendPair(node, "Hardware Id", s.address)
	appendPair(node, "Scaling factor", s.scalingFactor)
	appendPair(node, "Offset", s.offset)

	out, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Sprintf("{name: %s, Hardware Id: %d}", s.name, s.address)
	}
	return strings.TrimSpace(string(out))
}

func (s *Sensor) toTemperature(raw int) float64 {
	return s.scalingFactor*float64(raw) + s.offset
}

func (s *Sensor) notSampled() error {
	return fmt.Errorf("%w: sensor %d", ErrNotSampledYet, s.address)
}
