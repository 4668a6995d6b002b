// Package model defines the telemetry samples, commands and dashboard views
// exchanged between the Hydrosync pipeline stages.
package model

import (
	"math"
	"time"
)

// Wire field names reported by the bench firmware.
const (
	FieldMotorCmdV = "motor_cmd_v"
	FieldVoltage   = "voltage"
	FieldCurrent   = "current"
	FieldPower     = "power"
	FieldUR        = "UR"
	FieldLR        = "LR"
	FieldCharge    = "charge"
	FieldFlow      = "flow"
)

// Kind tags which firmware schema a sample was decoded from.
type Kind int

const (
	// KindGeneric is a JSON object whose keys match no known firmware mode.
	KindGeneric Kind = iota
	// KindMotor is the motor-command firmware reporting motor_cmd_v only.
	KindMotor
	// KindPower is the generator firmware reporting voltage, current, UR, LR, power and charge.
	KindPower
	// KindFlow is the legacy bracket record [flow,current,power,voltage].
	KindFlow
)

func (k Kind) String() string {
	switch k {
	case KindMotor:
		return "motor"
	case KindPower:
		return "power"
	case KindFlow:
		return "flow"
	default:
		return "generic"
	}
}

// Sample is one decoded telemetry record. It is never mutated after decode.
type Sample struct {
	At     time.Time
	Fields map[string]float64
	Kind   Kind
}

// Value returns the named field, or 0 when the firmware did not report it.
func (s Sample) Value(key string) float64 {
	return s.Fields[key]
}

// Has reports whether the firmware reported the named field.
func (s Sample) Has(key string) bool {
	_, ok := s.Fields[key]
	return ok
}

// Action identifies an outbound command understood by the firmware.
type Action string

const (
	ActionStart  Action = "START"
	ActionStop   Action = "STOP"
	ActionAnalog Action = "SIMULINK_ANALOG"
)

// Valid reports whether the firmware understands the action.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionStop, ActionAnalog:
		return true
	default:
		return false
	}
}

// Command is the outbound packet {"action": ..., "value": ...}.
// A nil Value is sent as JSON null.
type Command struct {
	Action Action   `json:"action"`
	Value  *float64 `json:"value"`
}

// Float returns a pointer to v, for building commands inline.
func Float(v float64) *float64 {
	return &v
}

// Display channel names held in the rolling buffers.
const (
	ChannelVoltage = "voltage"
	ChannelCurrent = "current"
	ChannelPower   = "power"
	ChannelUR      = "UR"
	ChannelLR      = "LR"
	ChannelCharge  = "charge"
	ChannelFlow    = "flow"
)

// Gauge names published alongside the plot windows.
const (
	GaugeCharge = "charge"
	GaugeAnalog = "analog"
)

// View is the snapshot handed to the renderer after each consumer tick that
// applied at least one sample.
type View struct {
	At       time.Time            `json:"at"`
	Channels map[string][]float64 `json:"channels"`
	Latest   map[string]float64   `json:"latest"`
	Gauges   map[string]float64   `json:"gauges"`
	Units    map[string]string    `json:"units"`
	Kind     string               `json:"kind"`
	Seq      uint64               `json:"seq"`
	YMin     float64              `json:"y_min"`
	YMax     float64              `json:"y_max"`
	Applied  int                  `json:"applied"`
}

// Autoscale returns the plot range for the given min and max, padded by 10%
// of the span, or by 0.1 when the span is zero.
func Autoscale(lo, hi float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		return -0.1, 0.1
	}
	padding := (hi - lo) * 0.1
	if hi == lo {
		padding = 0.1
	}
	return lo - padding, hi + padding
}
