package report

import (
	"context"
	"time"

	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// TemperatureWriter is the part of influxdb.Client used for reports.
type TemperatureWriter interface {
	WriteTemperature(crateID string, rec thermal.Record, at time.Time)
}

// InfluxPublisher writes every record of a batch as a point stamped with
// the batch time.
type InfluxPublisher struct {
	writer  TemperatureWriter
	crateID string
}

// NewInfluxPublisher returns a publisher writing through w.
func NewInfluxPublisher(w TemperatureWriter, crateID string) *InfluxPublisher {
	return &InfluxPublisher{writer: w, crateID: crateID}
}

// Publish implements Publisher. Writes are buffered; delivery failures are
// reported through the client's error callback.
func (p *InfluxPublisher) Publish(ctx context.Context, batch thermal.Batch) error {
	for _, rec := range batch.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.writer.WriteTemperature(p.crateID, rec, batch.Timestamp)
	}
	return nil
}
