package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// MeasurementTemperature is the measurement every sensor point is written to.
const MeasurementTemperature = "sensor_temperature"

// WriteTemperature queues one point for a report record. It is a no-op on
// a closed client.
func (c *Client) WriteTemperature(crateID string, rec thermal.Record, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(temperaturePoint(crateID, rec, at))
}

func temperaturePoint(crateID string, rec thermal.Record, at time.Time) *write.Point {
	return write.NewPoint(MeasurementTemperature,
		map[string]string{
			"crate":   crateID,
			"address": strconv.Itoa(int(rec.Address)),
			"name":    rec.Name,
			"kind":    rec.Kind.Code(),
		},
		map[string]any{
			"temperature":     rec.Temperature,
			"min_temperature": rec.MinTemperature,
			"max_temperature": rec.MaxTemperature,
			"raw":             int64(rec.RawValue),
			"scaling_factor":  rec.ScalingFactor,
			"offset":          rec.Offset,
		},
		at)
}
