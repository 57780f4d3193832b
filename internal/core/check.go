package core

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"

	"check-pressure/internal/calibration"
	"check-pressure/internal/config"
	"check-pressure/internal/hardware"
	"check-pressure/internal/logger"
	"check-pressure/internal/types"
)

// Result is the outcome of one successful check.
type Result struct {
	Reading  hardware.Reading
	Pressure float64
	Voltage  physic.ElectricPotential
	Status   types.CheckStatus
	Bound    types.Bound
}

// Checker takes one reading and evaluates it against the configured
// thresholds.
type Checker struct {
	cfg     config.Config
	model   calibration.Model
	sampler Sampler
	supply  Supply
	logger  *logger.Logger
}

// NewChecker builds a Checker. supply may be nil when the loop is powered
// permanently.
func NewChecker(cfg config.Config, sampler Sampler, supply Supply, l *logger.Logger) *Checker {
	if l == nil {
		l = logger.NewLogger(nil, logger.LogLevelNone)
	}
	return &Checker{
		cfg:     cfg,
		model:   cfg.Calibration(),
		sampler: sampler,
		supply:  supply,
		logger:  l,
	}
}

// Run performs a single acquisition. A failed acquisition returns no
// result.
func (c *Checker) Run() (Result, error) {
	vps := calibration.VoltsPerStep(c.cfg.ReferenceVoltage, c.cfg.MaxRaw)

	c.logger.Debugf("Device %s, Address 0x%02x (%d), Input %d",
		c.cfg.Device, c.cfg.Address, c.cfg.Address, c.cfg.Channel)
	c.logger.Debugf("maxval %f, minval %f, slope %f, constant %f",
		c.cfg.MaxRaw, c.cfg.MinRaw, c.model.Slope, c.model.Intercept)

	reading, err := c.acquire()
	if err != nil {
		return Result{}, err
	}

	pressure := c.model.Pressure(reading.Value)
	voltage := calibration.Voltage(reading.Value, vps)
	c.logger.Debugf("ANC%d: HEX 0x%02x, DEC %d, voltage %s, pressure %4.3f bar",
		reading.Channel.AIN(), uint16(reading.Value), reading.Value, voltage, pressure)

	status, bound := types.Evaluate(pressure, c.cfg.MinPressure, c.cfg.MaxPressure)
	return Result{
		Reading:  reading,
		Pressure: pressure,
		Voltage:  voltage,
		Status:   status,
		Bound:    bound,
	}, nil
}

func (c *Checker) acquire() (hardware.Reading, error) {
	if c.supply == nil {
		return c.sampler.Read(c.cfg.Target())
	}

	if err := c.supply.On(); err != nil {
		err = fmt.Errorf("failed to power sensor loop: %w", err)
		return hardware.Reading{}, multierr.Append(err, c.supply.Close())
	}

	reading, err := c.sampler.Read(c.cfg.Target())
	if cerr := c.supply.Close(); cerr != nil {
		if err != nil {
			return hardware.Reading{}, multierr.Append(err, cerr)
		}
		c.logger.Warnf("Failed to release sensor loop supply: %v", cerr)
	}
	return reading, err
}
