package thermal

import (
	"fmt"
	"strings"
)

// Hardware limits of the crate's ADC board.
const (
	// MaxAddresses is the number of ADC channels. Valid addresses are
	// 0 to MaxAddresses-1.
	MaxAddresses = 14

	// MaxRaw is the ADC full-scale value (unipolar 14-bit).
	MaxRaw = 16383

	// InvalidReading is the sentinel an ADC returns for an unreadable channel.
	InvalidReading = -1
)

// Calibration defaults.
const (
	DefaultScalingFactor = 1.0
	DefaultOffset        = 0.0
	DefaultName          = "Unnamed"
)

// Kind is the electrical signal type of a sensor.
// It is informational only: conversion is linear for every kind.
type Kind int

const (
	// KindVoltage0to10V is a 0-10V voltage signal.
	KindVoltage0to10V Kind = iota

	// KindCurrent4to20mA is a 4-20mA current loop, measured as 2-10V across
	// a 500 ohm shunt.
	KindCurrent4to20mA
)

// Report labels for each kind.
const (
	labelVoltage = "Voltage 0-10V"
	labelCurrent = "Current 4-20mA"
)

// String returns the report label of the kind.
func (k Kind) String() string {
	switch k {
	case KindVoltage0to10V:
		return labelVoltage
	case KindCurrent4to20mA:
		return labelCurrent
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindVoltage0to10V || k == KindCurrent4to20mA
}

// ParseKind converts a configuration spelling or a report label to a Kind.
//
// Accepted values (case insensitive): "voltage_0_10v", "voltage",
// "Voltage 0-10V", "current_4_20ma", "current", "Current 4-20mA".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voltage_0_10v", "voltage", strings.ToLower(labelVoltage):
		return KindVoltage0to10V, nil
	case "current_4_20ma", "current", strings.ToLower(labelCurrent):
		return KindCurrent4to20mA, nil
	default:
		return 0, fmt.Errorf("thermal: unknown sensor kind %q", s)
	}
}

// Code returns the configuration spelling of the kind, or "" if unknown.
func (k Kind) Code() string {
	switch k {
	case KindVoltage0to10V:
		return "voltage_0_10v"
	case KindCurrent4to20mA:
		return "current_4_20ma"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	code := k.Code()
	if code == "" {
		return nil, fmt.Errorf("thermal: unknown sensor kind %d", int(k))
	}
	return []byte(code), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// RawChannelSource reads raw ADC values.
//
// Implementations return a value in [0, MaxRaw] for a readable channel.
// InvalidReading or an error signals that the channel cannot be read.
type RawChannelSource interface {
	ReadRaw(address uint16) (int, error)
}

// RawChannelFunc adapts a function to a RawChannelSource.
type RawChannelFunc func(address uint16) (int, error)

// ReadRaw implements RawChannelSource.
func (f RawChannelFunc) ReadRaw(address uint16) (int, error) {
	return f(address)
}
