package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/vme-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// MessagePublisher is the part of mqtt.Client used for reports.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTPublisher sends each batch to the crate report topic and refreshes
// the retained state topic of every sensor in it.
type MQTTPublisher struct {
	client  MessagePublisher
	topics  mqtt.Topics
	crateID string
	qos     byte
}

// NewMQTTPublisher returns a publisher for crateID's topic tree.
func NewMQTTPublisher(client MessagePublisher, topics mqtt.Topics, crateID string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topics: topics, crateID: crateID, qos: qos}
}

// BatchMessage is the JSON payload on the report topic.
type BatchMessage struct {
	Crate string `json:"crate"`
	// Time is the batch timestamp in report layout, matching the YAML key.
	Time string `json:"time"`
	thermal.Batch
}

// SensorMessage is the retained JSON payload on a sensor topic.
type SensorMessage struct {
	Crate string `json:"crate"`
	Time  string `json:"time"`
	thermal.Record
}

// Publish implements Publisher. Per-sensor failures do not stop the
// remaining sensors from being published.
func (p *MQTTPublisher) Publish(ctx context.Context, batch thermal.Batch) error {
	stamp := batch.FormatTimestamp()

	payload, err := json.Marshal(BatchMessage{Crate: p.crateID, Time: stamp, Batch: batch})
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}
	if err := p.client.Publish(p.topics.Report(), payload, p.qos, false); err != nil {
		return fmt.Errorf("publishing batch: %w", err)
	}

	var errs []error
	for _, rec := range batch.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(SensorMessage{Crate: p.crateID, Time: stamp, Record: rec})
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding sensor %d: %w", rec.Address, err))
			continue
		}
		if err := p.client.Publish(p.topics.Sensor(rec.Address), payload, p.qos, true); err != nil {
			errs = append(errs, fmt.Errorf("publishing sensor %d: %w", rec.Address, err))
		}
	}
	return errors.Join(errs...)
}
