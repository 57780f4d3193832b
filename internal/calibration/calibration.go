// Package calibration maps ADS1115 raw samples to pressure using a
// two-point linear fit taken from a 4-20 mA transmitter.
package calibration

import (
	"math"

	"periph.io/x/conn/v3/physic"
)

const (
	DefaultMinRaw           = 2090.0  // reading at 4 mA, no pressure
	DefaultMaxRaw           = 10630.0 // reading at 20 mA, full scale
	DefaultLowPressure      = 0.0     // bar at 4 mA
	DefaultHighPressure     = 10.0    // bar at 20 mA
	DefaultReferenceVoltage = 6.144   // PGA full-scale range in volts
)

// Model is a linear raw-to-pressure mapping. The zero value maps every
// sample to 0.
type Model struct {
	Slope     float64
	Intercept float64
}

// New derives the mapping from two calibration points. maxRaw must differ
// from minRaw; callers validate that before getting here.
func New(minRaw, maxRaw, lowPressure, highPressure float64) Model {
	slope := (highPressure - lowPressure) / (maxRaw - minRaw)
	return Model{
		Slope:     slope,
		Intercept: slope * minRaw,
	}
}

// Pressure applies the mapping. Negative results are floored to zero.
func (m Model) Pressure(raw int16) float64 {
	return math.Max(0, m.Slope*float64(raw)-m.Intercept)
}

// VoltsPerStep is the input voltage represented by one count, used only
// for diagnostics.
func VoltsPerStep(referenceVoltage, maxRaw float64) float64 {
	return referenceVoltage / maxRaw
}

// Voltage converts raw counts to an input voltage for display.
func Voltage(raw int16, voltsPerStep float64) physic.ElectricPotential {
	return physic.ElectricPotential(math.Round(float64(raw) * voltsPerStep * float64(physic.Volt)))
}
