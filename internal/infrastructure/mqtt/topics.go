package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is the root of every VME Thermal topic.
const DefaultTopicPrefix = "vmethermal"

// Topics builds the topic names of one crate.
//
//	topics := mqtt.NewTopics("vmethermal", "crate-07")
//	topics.Sensor(3) // "vmethermal/crate-07/sensor/3"
type Topics struct {
	root string
}

// NewTopics returns the topic builder for crateID under prefix. An empty
// prefix selects DefaultTopicPrefix.
func NewTopics(prefix, crateID string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{root: strings.TrimSuffix(prefix, "/") + "/" + crateID}
}

// Report is where complete report batches are published.
func (t Topics) Report() string {
	return t.root + "/report"
}

// Sensor is the retained per-sensor record topic.
func (t Topics) Sensor(address uint16) string {
	return fmt.Sprintf("%s/sensor/%d", t.root, address)
}

// Status carries the retained online/offline state and the last will.
func (t Topics) Status() string {
	return t.root + "/status"
}

// CalibrationCommand is the topic an operator publishes to in order to
// recalibrate the sensor at address.
func (t Topics) CalibrationCommand(address uint16) string {
	return fmt.Sprintf("%s/command/calibrate/%d", t.root, address)
}

// AllCalibrationCommands matches calibration commands for every address.
func (t Topics) AllCalibrationCommands() string {
	return t.root + "/command/calibrate/+"
}

// ParseCalibrationCommand extracts the sensor address from a topic
// produced by CalibrationCommand.
func (t Topics) ParseCalibrationCommand(topic string) (uint16, error) {
	rest, ok := strings.CutPrefix(topic, t.root+"/command/calibrate/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return 0, fmt.Errorf("%w: %q is not a calibration command", ErrInvalidTopic, topic)
	}
	address, err := strconv.ParseUint(rest, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no numeric address", ErrInvalidTopic, topic)
	}
	return uint16(address), nil
}
