package monitor

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/vme-thermal/internal/infrastructure/mqtt"
)

// CalibrationCommand is the JSON body of an MQTT calibration command.
// Omitted fields keep the sensor's current value.
type CalibrationCommand struct {
	ScalingFactor *float64 `json:"scaling_factor"`
	Offset        *float64 `json:"offset"`
}

// HandleCalibrationCommand returns an MQTT handler applying calibration
// commands published under topics.
func (m *Monitor) HandleCalibrationCommand(topics mqtt.Topics) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		address, err := topics.ParseCalibrationCommand(topic)
		if err != nil {
			return err
		}

		var cmd CalibrationCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		if cmd.ScalingFactor == nil && cmd.Offset == nil {
			return fmt.Errorf("%w: neither scaling_factor nor offset given", ErrInvalidCommand)
		}

		return m.ApplyCalibration(address, cmd)
	}
}

// ApplyCalibration applies cmd to the sensor at address, atomically with
// respect to report cycles.
func (m *Monitor) ApplyCalibration(address uint16, cmd CalibrationCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sensor, err := m.reg.Sensor(address)
	if err != nil {
		return err
	}

	scalingFactor, offset := sensor.ScalingFactor(), sensor.Offset()
	if cmd.ScalingFactor != nil {
		scalingFactor = *cmd.ScalingFactor
	}
	if cmd.Offset != nil {
		offset = *cmd.Offset
	}

	if err := m.reg.SetCalibration(address, scalingFactor, offset); err != nil {
		return err
	}
	m.logger.Info("sensor recalibrated", "address", address,
		"scaling_factor", scalingFactor, "offset", offset)
	return nil
}
