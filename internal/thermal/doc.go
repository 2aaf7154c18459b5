// Package thermal provides the temperature sensors of a VME crate and the
// registry that measures them and produces batch reports.
//
// A Sensor is bound to one ADC channel (its hardware address). Sampling reads
// a raw value through a RawChannelSource; conversion applies the linear
// calibration
//
//	temperature = scalingFactor * raw + offset
//
// to the last raw value and to the running raw extrema, so minimum and maximum
// temperatures always reflect the calibration currently in effect.
//
// # Usage
//
//	reg := thermal.NewRegistry(adc.NewSimulator(adc.Config{}))
//	reg.SetSink(reportFile)
//
//	if err := reg.AddSensor(1, thermal.KindVoltage0to10V); err != nil {
//	    return err
//	}
//	if err := reg.SetCalibration(1, 0.5, 5); err != nil {
//	    return err
//	}
//
//	batch, err := reg.MeasureAllAndReport()
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. Callers that share a
// Registry between goroutines must serialise access themselves (see
// internal/monitor).
package thermal
