package core

import "Hydrosync/internal/model"

// Settings are the bench parameters the derived channels depend on.
type Settings struct {
	LoadOhms  float64
	AnalogMax float64
}

var (
	powerChannels = []string{
		model.ChannelVoltage, model.ChannelCurrent, model.ChannelPower,
		model.ChannelUR, model.ChannelLR, model.ChannelCharge,
	}
	flowChannels = []string{
		model.ChannelFlow, model.ChannelCurrent, model.ChannelPower, model.ChannelVoltage,
	}
)

// Derive maps a sample to display channel values. Motor samples report the
// commanded voltage only, so current (mA) and power (mW) are computed across
// the load resistor; a non-positive load yields zero current. Power and flow
// samples pass through with missing fields as 0. Generic samples derive
// nothing and Derive returns nil.
func Derive(s model.Sample, set Settings) map[string]float64 {
	switch s.Kind {
	case model.KindMotor:
		v := s.Value(model.FieldMotorCmdV)
		i := 0.0
		if set.LoadOhms > 0 {
			i = v / set.LoadOhms * 1000
		}
		return map[string]float64{
			model.ChannelVoltage: v,
			model.ChannelCurrent: i,
			model.ChannelPower:   v * i,
		}
	case model.KindPower:
		return passThrough(s, powerChannels)
	case model.KindFlow:
		return passThrough(s, flowChannels)
	default:
		return nil
	}
}

func passThrough(s model.Sample, channels []string) map[string]float64 {
	out := make(map[string]float64, len(channels))
	for _, ch := range channels {
		out[ch] = s.Value(ch)
	}
	return out
}

// Units returns the display unit of each channel for a sample kind.
func Units(kind model.Kind) map[string]string {
	switch kind {
	case model.KindMotor:
		return map[string]string{
			model.ChannelVoltage: "V",
			model.ChannelCurrent: "mA",
			model.ChannelPower:   "mW",
		}
	case model.KindPower:
		return map[string]string{
			model.ChannelVoltage: "V",
			model.ChannelCurrent: "A",
			model.ChannelPower:   "W",
			model.ChannelUR:      "V",
			model.ChannelLR:      "V",
			model.ChannelCharge:  "%",
		}
	case model.KindFlow:
		return map[string]string{
			model.ChannelFlow:    "L/s",
			model.ChannelCurrent: "A",
			model.ChannelPower:   "W",
			model.ChannelVoltage: "V",
		}
	default:
		return map[string]string{}
	}
}

// Percent returns v as a percentage of full, clamped to [0, 100].
func Percent(v, full float64) float64 {
	if full <= 0 {
		return 0
	}
	return clamp(v/full*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
