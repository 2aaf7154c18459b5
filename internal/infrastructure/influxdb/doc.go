// Package influxdb stores sensor readings as InfluxDB time series.
//
// Each report record becomes one point of the sensor_temperature
// measurement, tagged by crate, address, name and kind, with the
// temperature, extrema, raw reading and calibration as fields. Writes are
// non-blocking and batched by the client library; write failures arrive
// asynchronously through SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Warn("influx write failed", "error", err) })
//
//	client.WriteTemperature("crate-07", record, batch.Timestamp)
package influxdb
