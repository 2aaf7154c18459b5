package thermal

import (
	"errors"
	"math"
	"testing"
)

// defaultADCValue is what the fixed test source returns.
const defaultADCValue = 4

// fixedSource returns the same raw value for every address.
func fixedSource(value int) RawChannelSource {
	return RawChannelFunc(func(uint16) (int, error) {
		return value, nil
	})
}

// sequenceSource returns the given values in order, then repeats the last one.
func sequenceSource(values ...int) RawChannelSource {
	i := 0
	return RawChannelFunc(func(uint16) (int, error) {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	})
}

func newTestSensor(t *testing.T, src RawChannelSource, opts ...Option) *Sensor {
	t.Helper()
	s, err := NewSensor(1, KindVoltage0to10V, src, opts...)
	if err != nil {
		t.Fatalf("NewSensor() error = %v", err)
	}
	return s
}

func TestNewSensor_Defaults(t *testing.T) {
	s := newTestSensor(t, fixedSource(defaultADCValue))

	if s.Address() != 1 {
		t.Errorf("Address() = %d, want 1", s.Address())
	}
	if s.Kind() != KindVoltage0to10V {
		t.Errorf("Kind() = %v, want %v", s.Kind(), KindVoltage0to10V)
	}
	if s.ScalingFactor() != DefaultScalingFactor {
		t.Errorf("ScalingFactor() = %v, want %v", s.ScalingFactor(), DefaultScalingFactor)
	}
	if s.Offset() != DefaultOffset {
		t.Errorf("Offset() = %v, want %v", s.Offset(), DefaultOffset)
	}
	if s.Name() != DefaultName {
		t.Errorf("Name() = %q, want %q", s.Name(), DefaultName)
	}
	if s.Sampled() {
		t.Error("new sensor should not be sampled")
	}
}

func TestNewSensor_Options(t *testing.T) {
	s := newTestSensor(t, fixedSource(defaultADCValue),
		WithCalibration(0.4, 2),
		WithName("Coolant Temperature"),
	)

	if s.ScalingFactor() != 0.4 {
		t.Errorf("ScalingFactor() = %v, want 0.4", s.ScalingFactor())
	}
	if s.Offset() != 2 {
		t.Errorf("Offset() = %v, want 2", s.Offset())
	}
	if s.Name() != "Coolant Temperature" {
		t.Errorf("Name() = %q, want Coolant Temperature", s.Name())
	}

	unnamed := newTestSensor(t, nil, WithName(""))
	if unnamed.Name() != DefaultName {
		t.Errorf("empty WithName gave %q, want %q", unnamed.Name(), DefaultName)
	}
}

func TestNewSensor_InvalidAddress(t *testing.T) {
	addresses := []uint16{MaxAddresses, MaxAddresses + 1, 100, math.MaxUint16}
	for _, address := range addresses {
		_, err := NewSensor(address, KindVoltage0to10V, fixedSource(defaultADCValue))
		if !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("NewSensor(%d) error = %v, want ErrInvalidAddress", address, err)
		}
	}

	if _, err := NewSensor(MaxAddresses-1, KindCurrent4to20mA, nil); err != nil {
		t.Errorf("NewSensor(%d) error = %v, want nil", MaxAddresses-1, err)
	}
}

func TestSensor_NotSampledYet(t *testing.T) {
	s := newTestSensor(t, fixedSource(defaultADCValue))

	accessors := map[string]func() error{
		"Temperature":    func() error { _, err := s.Temperature(); return err },
		"MinTemperature": func() error { _, err := s.MinTemperature(); return err },
		"MaxTemperature": func() error { _, err := s.MaxTemperature(); return err },
		"RawValue":       func() error { _, err := s.RawValue(); return err },
		"MinRawValue":    func() error { _, err := s.MinRawValue(); return err },
		"MaxRawValue":    func() error { _, err := s.MaxRawValue(); return err },
		"Convert":        s.Convert,
	}

	for name, call := range accessors {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNotSampledYet) {
				t.Errorf("%s() error = %v, want ErrNotSampledYet", name, err)
			}
		})
	}
}

func TestSensor_CalibrateBeforeFirstReading(t *testing.T) {
	s := newTestSensor(t, fixedSource(defaultADCValue))

	s.SetScalingFactor(2)
	s.SetOffset(-5)

	if s.ScalingFactor() != 2 {
		t.Errorf("ScalingFactor() = %v, want 2", s.ScalingFactor())
	}
	if s.Offset() != -5 {
		t.Errorf("Offset() = %v, want -5", s.Offset())
	}
	if _, err := s.Temperature(); !errors.Is(err, ErrNotSampledYet) {
		t.Errorf("Temperature() error = %v, want ErrNotSampledYet", err)
	}

	// Unchanged values are no-ops.
	s.SetScalingFactor(2)
	s.SetOffset(-5)

	got, err := s.Measure()
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if want := 2*float64(defaultADCValue) - 5; got != want {
		t.Errorf("Measure() = %v, want %v", got, want)
	}
}

func TestSensor_SingleSample(t *testing.T) {
	tests := []struct {
		name   string
		raw    int
		scale  float64
		offset float64
	}{
		{name: "default calibration", raw: defaultADCValue, scale: 1, offset: 0},
		{name: "coolant", raw: 1000, scale: 0.25, offset: 2},
		{name: "zero raw", raw: 0, scale: 3, offset: -2},
		{name: "full scale", raw: MaxRaw, scale: 0.125, offset: -40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSensor(t, fixedSource(tt.raw), WithCalibration(tt.scale, tt.offset))

			got, err := s.Measure()
			if err != nil {
				t.Fatalf("Measure() error = %v", err)
			}

			want := tt.scale*float64(tt.raw) + tt.offset
			if got != want {
				t.Errorf("Measure() = %v, want %v", got, want)
			}
			assertTemperatures(t, s, want, want, want)

			raw, err := s.RawValue()
			if err != nil {
				t.Fatalf("RawValue() error = %v", err)
			}
			if raw != tt.raw {
				t.Errorf("RawValue() = %d, want %d", raw, tt.raw)
			}
		})
	}
}

func TestSensor_MeasureThenRecalibrate(t *testing.T) {
	s := newTestSensor(t, fixedSource(defaultADCValue))

	got, err := s.Measure()
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if got != 4.0 {
		t.Errorf("Measure() = %v, want 4.0", got)
	}

	s.SetScalingFactor(0)
	s.SetOffset(-5)

	assertTemperatures(t, s, -5, -5, -5)
}

func TestSensor_TwoSamplesTrackExtrema(t *testing.T) {
	s := newTestSensor(t, sequenceSource(100, 40), WithCalibration(0.5, 1))

	if _, err := s.Measure(); err != nil {
		t.Fatalf("first Measure() error = %v", err)
	}
	if _, err := s.Measure(); err != nil {
		t.Fatalf("second Measure() error = %v", err)
	}

	assertTemperatures(t, s, 0.5*40+1, 0.5*40+1, 0.5*100+1)

	minRaw, _ := s.MinRawValue()
	maxRaw, _ := s.MaxRawValue()
	if minRaw != 40 || maxRaw != 100 {
		t.Errorf("raw extrema = (%d, %d), want (40, 100)", minRaw, maxRaw)
	}

	// Extrema follow the current calibration, not the historical temperatures.
	s.SetScalingFactor(-2)
	assertTemperatures(t, s, -2*40+1, -2*40+1, -2*100+1)
}

func TestSensor_CalibrationChangeBetweenSamples(t *testing.T) {
	s := newTestSensor(t, sequenceSource(10, 30))

	if _, err := s.Measure(); err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	s.SetScalingFactor(2)
	s.SetOffset(3)
	if _, err := s.Measure(); err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	assertTemperatures(t, s, 2*30+3, 2*10+3, 2*30+3)
}

func TestSensor_SampleReadErrors(t *testing.T) {
	sourceErr := errors.New("bus timeout")

	tests := []struct {
		name   string
		source RawChannelSource
		cause  error
	}{
		{name: "above full scale", source: fixedSource(MaxRaw + 1)},
		{name: "invalid reading sentinel", source: fixedSource(InvalidReading)},
		{name: "negative", source: fixedSource(-20)},
		{
			name: "source error",
			source: RawChannelFunc(func(uint16) (int, error) {
				return 0, sourceErr
			}),
			cause: sourceErr,
		},
		{name: "no source", source: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSensor(t, tt.source)

			err := s.Sample()
			if !errors.Is(err, ErrReadError) {
				t.Fatalf("Sample() error = %v, want ErrReadError", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("Sample() error = %v, want wrapped %v", err, tt.cause)
			}
			if s.Sampled() {
				t.Error("failed sample marked the sensor as sampled")
			}

			if _, err := s.Measure(); !errors.Is(err, ErrReadError) {
				t.Errorf("Measure() error = %v, want ErrReadError", err)
			}
		})
	}
}

func TestSensor_FailedSampleKeepsState(t *testing.T) {
	s := newTestSensor(t, sequenceSource(10, MaxRaw+500, 20))

	if _, err := s.Measure(); err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if _, err := s.Measure(); !errors.Is(err, ErrReadError) {
		t.Fatalf("Measure() error = %v, want ErrReadError", err)
	}

	assertTemperatures(t, s, 10, 10, 10)
	maxRaw, _ := s.MaxRawValue()
	if maxRaw != 10 {
		t.Errorf("MaxRawValue() = %d, want 10 after rejected reading", maxRaw)
	}
}

func TestSensor_Equal(t *testing.T) {
	a := newTestSensor(t, sequenceSource(1, 2, 3), WithCalibration(2, 1), WithName("PT1000"))
	b := newTestSensor(t, fixedSource(9000), WithCalibration(2, 1), WithName("PT1000"))

	if _, err := a.Measure(); err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if _, err := a.Measure(); err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if _, err := b.Measure(); err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if !a.Equal(b) {
		t.Error("sensors with equal identity and calibration should be equal")
	}

	b.SetOffset(0)
	if a.Equal(b) {
		t.Error("sensors with different offsets should not be equal")
	}

	c := newTestSensor(t, nil, WithCalibration(2, 1), WithName("other"))
	if a.Equal(c) {
		t.Error("sensors with different names should not be equal")
	}
	if a.Equal(nil) {
		t.Error("sensor should not equal nil")
	}
}

func TestSensor_String(t *testing.T) {
	s := newTestSensor(t, nil, WithCalibration(0.5, 5))

	want := "{name: Unnamed, Hardware Id: 1, Scaling factor: 0.5, Offset: 5}"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKind(t *testing.T) {
	if KindVoltage0to10V.String() != "Voltage 0-10V" {
		t.Errorf("voltage label = %q", KindVoltage0to10V.String())
	}
	if KindCurrent4to20mA.String() != "Current 4-20mA" {
		t.Errorf("current label = %q", KindCurrent4to20mA.String())
	}

	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "voltage_0_10v", want: KindVoltage0to10V},
		{input: "Voltage 0-10V", want: KindVoltage0to10V},
		{input: "CURRENT", want: KindCurrent4to20mA},
		{input: "current_4_20ma", want: KindCurrent4to20mA},
		{input: "thermocouple", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var k Kind
			err := k.UnmarshalText([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && k != tt.want {
				t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, k, tt.want)
			}
		})
	}

	text, err := KindCurrent4to20mA.MarshalText()
	if err != nil || string(text) != "current_4_20ma" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
	if Kind(7).Valid() {
		t.Error("Kind(7) should not be valid")
	}
}

func assertTemperatures(t *testing.T, s *Sensor, wantTemp, wantMin, wantMax float64) {
	t.Helper()

	temp, err := s.Temperature()
	if err != nil {
		t.Fatalf("Temperature() error = %v", err)
	}
	minTemp, err := s.MinTemperature()
	if err != nil {
		t.Fatalf("MinTemperature() error = %v", err)
	}
	maxTemp, err := s.MaxTemperature()
	if err != nil {
		t.Fatalf("MaxTemperature() error = %v", err)
	}

	if temp != wantTemp {
		t.Errorf("Temperature() = %v, want %v", temp, wantTemp)
	}
	if minTemp != wantMin {
		t.Errorf("MinTemperature() = %v, want %v", minTemp, wantMin)
	}
	if maxTemp != wantMax {
		t.Errorf("MaxTemperature() = %v, want %v", maxTemp, wantMax)
	}
}
