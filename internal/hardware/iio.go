package hardware

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"check-pressure/internal/logger"
)

// fullScaleMillivoltsPerLSB is the ti-ads1015 driver scale for the
// 6.144 V range on an ADS1115, which the calibration defaults assume.
const fullScaleMillivoltsPerLSB = 0.1875

// IIOSampler reads single-ended samples through the kernel's ti-ads1015
// IIO driver when it has claimed the chip and /dev/i2c-N can't be used.
type IIOSampler struct {
	root   string
	device string
	logger *logger.Logger
}

func NewIIOSampler(root, device string, l *logger.Logger) *IIOSampler {
	if root == "" {
		root = IIODevicesDir
	}
	if l == nil {
		l = logger.NewLogger(nil, logger.LogLevelNone)
	}
	return &IIOSampler{
		root:   root,
		device: device,
		logger: l.WithTag("iio"),
	}
}

// Read returns the current raw value of t.Channel. Device and address in t
// are ignored; the kernel driver owns the bus.
func (s *IIOSampler) Read(t Target) (Reading, error) {
	if !t.Channel.Valid() {
		return Reading{}, fmt.Errorf("%w: got %d", ErrInvalidChannel, t.Channel)
	}

	dir := filepath.Join(s.root, s.device)
	path := filepath.Join(dir, fmt.Sprintf("in_voltage%d_raw", t.Channel.AIN()))
	if _, err := os.Stat(path); err != nil {
		return Reading{}, fmt.Errorf("%w %s: ADC sysfs not found: %w", ErrDeviceOpen, path, err)
	}

	s.checkScale(dir, t.Channel)

	value, err := readSysfsInt(path)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrRead, err)
	}

	if value < math.MinInt16 || value > math.MaxInt16 {
		s.logger.Debugf("Raw sample %d does not fit 16 bits, using 0", value)
		return Reading{Channel: t.Channel}, nil
	}

	raw := int16(value)
	r := Reading{
		Channel: t.Channel,
		Raw:     raw,
		Value:   Sanitize(raw),
	}
	if r.Clamped() {
		s.logger.Debugf("Raw sample %d out of single-ended range, using 0", raw)
	}
	return r, nil
}

func (s *IIOSampler) checkScale(dir string, ch Channel) {
	path := filepath.Join(dir, fmt.Sprintf("in_voltage%d_scale", ch.AIN()))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warnf("Failed reading %s: %v", path, err)
		return
	}
	scale, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		s.logger.Warnf("Failed parsing %s: %v", path, err)
		return
	}
	if math.Abs(scale-fullScaleMillivoltsPerLSB) > 1e-6 {
		s.logger.Warnf("AIN%d scale is %g mV/LSB, calibration assumes %g", ch.AIN(), scale, fullScaleMillivoltsPerLSB)
	}
}

func readSysfsInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed reading %s: %w", path, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed parsing ADC value in %s: %w", path, err)
	}
	return value, nil
}
