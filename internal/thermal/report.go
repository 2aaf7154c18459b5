package thermal

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportTimeLayout formats batch timestamps, e.g. "2026-Oct-19 14:03:07.250000".
// Sub-second precision keeps reports produced within the same second distinct
// as top-level keys of the report file.
const ReportTimeLayout = "2006-Jan-02 15:04:05.000000"

// Report field names, in emission order.
const (
	FieldHardwareID     = "Hardware Id"
	FieldName           = "Name"
	FieldSensorType     = "Sensor type"
	FieldScalingFactor  = "Scaling factor"
	FieldOffset         = "Offset"
	FieldCurrentTime    = "Current time"
	FieldTemperature    = "Temperature"
	FieldMinTemperature = "Min temperature"
	FieldMaxTemperature = "Max temperature"
)

// Batch is one timestamped snapshot of every registered sensor.
type Batch struct {
	Timestamp time.Time `json:"timestamp"`
	Records   []Record  `json:"records"`
}

// Record is the report entry of a single sensor.
type Record struct {
	Address        uint16  `json:"address"`
	Name           string  `json:"name"`
	Kind           Kind    `json:"kind"`
	ScalingFactor  float64 `json:"scaling_factor"`
	Offset         float64 `json:"offset"`
	RawValue       int     `json:"raw_value"`
	Temperature    float64 `json:"temperature"`
	MinTemperature float64 `json:"min_temperature"`
	MaxTemperature float64 `json:"max_temperature"`
}

// Key returns the report key of the record, "<address>-<name>".
func (r Record) Key() string {
	return strconv.Itoa(int(r.Address)) + "-" + r.Name
}

// FormatTimestamp returns the batch timestamp as written in reports.
func (b Batch) FormatTimestamp() string {
	return b.Timestamp.Format(ReportTimeLayout)
}

// MarshalYAML renders the batch as a mapping of its timestamp to a mapping of
// record keys to report fields.
func (b Batch) MarshalYAML() (any, error) {
	return b.node(), nil
}

// WriteTo writes the batch as a single newline-terminated YAML document.
// The document is fully rendered before the single Write call.
func (b Batch) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b.node()); err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (b Batch) node() *yaml.Node {
	stamp := b.FormatTimestamp()

	records := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range b.Records {
		fields := &yaml.Node{Kind: yaml.MappingNode}
		appendPair(fields, FieldHardwareID, r.Address)
		appendPair(fields, FieldName, r.Name)
		appendPair(fields, FieldSensorType, r.Kind.String())
		appendPair(fields, FieldScalingFactor, r.ScalingFactor)
		appendPair(fields, FieldOffset, r.Offset)
		appendPair(fields, FieldCurrentTime, stamp)
		appendPair(fields, FieldTemperature, r.Temperature)
		appendPair(fields, FieldMinTemperature, r.MinTemperature)
		appendPair(fields, FieldMaxTemperature, r.MaxTemperature)

		records.Content = append(records.Content, strNode(r.Key()), fields)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, strNode(stamp), records)
	return root
}

// appendPair adds a key/value pair to a mapping node.
func appendPair(mapping *yaml.Node, key string, value any) {
	v := &yaml.Node{}
	if err := v.Encode(value); err != nil {
		v = strNode(fmt.Sprint(value))
	}
	mapping.Content = append(mapping.Content, strNode(key), v)
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
