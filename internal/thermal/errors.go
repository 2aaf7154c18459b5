package thermal

import "errors"

// Domain errors for the thermal package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, thermal.ErrUnknownAddress) {
//	    // no sensor at that address
//	}
var (
	// ErrInvalidAddress is returned when a hardware address is outside the
	// channel range supported by the crate.
	ErrInvalidAddress = errors.New("thermal: invalid hardware address")

	// ErrUnknownAddress is returned when no sensor is registered at an address.
	ErrUnknownAddress = errors.New("thermal: no sensor at address")

	// ErrReadError is returned when the ADC returns a value outside the
	// representable range, or cannot be read at all.
	ErrReadError = errors.New("thermal: adc read error")

	// ErrNotSampledYet is returned when a derived value is requested before
	// the sensor has been sampled.
	ErrNotSampledYet = errors.New("thermal: no adc reading yet")

	// ErrNoSink is returned when a report is requested with no sink attached.
	ErrNoSink = errors.New("thermal: no report sink")

	// ErrSinkWrite is returned when the report could not be written to the sink.
	ErrSinkWrite = errors.New("thermal: report write failed")
)
