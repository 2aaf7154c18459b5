// Package monitor drives a crate's thermal registry.
//
// A Monitor serialises every access to the registry, runs the periodic
// measure-and-report cycle and hands each batch to a report.Publisher. The
// HTTP API and the MQTT calibration handler go through the Monitor rather
// than the registry, so they can run while the loop is measuring.
//
// Each cycle starts a fixed window; the next cycle begins when the window
// has elapsed, regardless of how long measuring took:
//
//	mon := monitor.New(monitor.Config{Registry: reg, Publisher: fanout, Interval: time.Minute})
//	mon.SetLogger(logger)
//	err := mon.Run(ctx)
package monitor
