package config

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	wconfig "github.com/warthog618/config"
	"github.com/warthog618/config/dict"

	"check-pressure/internal/hardware"
	"check-pressure/internal/logger"
)

func loadArgs(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	flags, err := ParseFlags(args)
	if err != nil {
		return Config{}, err
	}
	src := wconfig.New(flags, wconfig.WithDefault(dict.New(dict.WithMap(Defaults()))))
	return FromSource(src)
}

func load(t *testing.T, overrides map[string]interface{}) (Config, error) {
	t.Helper()
	def := dict.New(dict.WithMap(Defaults()))
	src := wconfig.New(
		dict.New(dict.WithMap(overrides)),
		wconfig.WithDefault(def))
	return FromSource(src)
}

func TestFromSourceDefaults(t *testing.T) {
	c, err := load(t, map[string]interface{}{"min": 1.0, "max": 8.0})
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}

	if c.Device != "/dev/i2c-1" {
		t.Errorf("Expected default device, got %q", c.Device)
	}
	if c.Address != 0x48 {
		t.Errorf("Expected default address 0x48, got 0x%02x", c.Address)
	}
	if c.Channel != 1 {
		t.Errorf("Expected default input 1, got %d", c.Channel)
	}
	if c.MinRaw != 2090 || c.MaxRaw != 10630 {
		t.Errorf("Expected default calibration points, got %v/%v", c.MinRaw, c.MaxRaw)
	}
	if c.LowPressure != 0 || c.HighPressure != 10 {
		t.Errorf("Expected default pressure range, got %v/%v", c.LowPressure, c.HighPressure)
	}
	if c.MinPressure != 1 || c.MaxPressure != 8 {
		t.Errorf("Expected thresholds 1/8, got %v/%v", c.MinPressure, c.MaxPressure)
	}
	if c.PollLimit != 0 {
		t.Errorf("Expected unbounded polling by default, got %d", c.PollLimit)
	}
	if c.LogLevel != logger.LogLevelWarning {
		t.Errorf("Expected warning log level, got %v", c.LogLevel)
	}
	if c.Power != nil {
		t.Errorf("Expected no power line, got %+v", c.Power)
	}
}

func TestFromSourceOverrides(t *testing.T) {
	c, err := load(t, map[string]interface{}{
		"min":           "0.5",
		"max":           "6",
		"device":        "/dev/i2c-0",
		"address":       "0x4a",
		"input":         "3",
		"low":           "1",
		"high":          "16",
		"verbose":       true,
		"poll.limit":    "50",
		"poll.interval": "2ms",
		"power.gpio":    "gpiochip2:17",
		"power.settle":  "1s",
	})
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}

	if c.Address != 0x4a {
		t.Errorf("Expected address 0x4a, got 0x%02x", c.Address)
	}
	if c.Channel != 3 {
		t.Errorf("Expected input 3, got %d", c.Channel)
	}
	if c.LogLevel != logger.LogLevelDebug {
		t.Errorf("Expected verbose to select debug logging, got %v", c.LogLevel)
	}
	if c.PollLimit != 50 || c.PollInterval != 2*time.Millisecond {
		t.Errorf("Unexpected polling %d/%v", c.PollLimit, c.PollInterval)
	}
	if c.Power == nil || c.Power.Chip != "gpiochip2" || c.Power.Offset != 17 || c.Power.Settle != time.Second {
		t.Errorf("Unexpected power line %+v", c.Power)
	}

	want := hardware.Target{Device: "/dev/i2c-0", Address: 0x4a, Channel: 3}
	if c.Target() != want {
		t.Errorf("Expected target %+v, got %+v", want, c.Target())
	}
}

func TestAddressBases(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		want      uint8
	}{
		{"hex without prefix", map[string]interface{}{"address": "48"}, 0x48},
		{"hex with prefix", map[string]interface{}{"address": "0x49"}, 0x49},
		{"decimal", map[string]interface{}{"decimal.address": "74"}, 0x4a},
		{"decimal wins", map[string]interface{}{"address": "48", "decimal.address": "75"}, 0x4b},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.overrides["min"] = 0
			tt.overrides["max"] = 10
			c, err := load(t, tt.overrides)
			if err != nil {
				t.Fatalf("FromSource failed: %v", err)
			}
			if c.Address != tt.want {
				t.Errorf("Expected address 0x%02x, got 0x%02x", tt.want, c.Address)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		want      error
	}{
		{"input zero", map[string]interface{}{"min": 0, "max": 1, "input": 0}, ErrInputRange},
		{"input five", map[string]interface{}{"min": 0, "max": 1, "input": 5}, ErrInputRange},
		{"missing min", map[string]interface{}{"max": 1}, ErrThresholdsRequired},
		{"missing max", map[string]interface{}{"min": 1}, ErrThresholdsRequired},
		{"address too large", map[string]interface{}{"min": 0, "max": 1, "address": "80"}, ErrAddressRange},
		{"degenerate calibration", map[string]interface{}{"min": 0, "max": 1, "raw.zero": 5000, "raw.full": 5000}, ErrDegenerateCalibration},
		{"bad power line", map[string]interface{}{"min": 0, "max": 1, "power.gpio": "gpiochip0"}, ErrPowerLine},
		{"bad log level", map[string]interface{}{"min": 0, "max": 1, "log": 9}, ErrLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.overrides)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestInvalidAddress(t *testing.T) {
	_, err := load(t, map[string]interface{}{"min": 0, "max": 1, "address": "zz"})
	if err == nil {
		t.Fatal("Expected error for non-hex address")
	}
}

func TestCalibrationFromConfig(t *testing.T) {
	c, err := load(t, map[string]interface{}{"min": 0, "max": 10})
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}

	m := c.Calibration()
	if got := m.Pressure(6360); math.Abs(got-5) > 1e-9 {
		t.Errorf("Expected midpoint pressure 5, got %v", got)
	}
}

func TestParseLine(t *testing.T) {
	chip, offset, err := ParseLine("gpiochip0:23")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if chip != "gpiochip0" || offset != 23 {
		t.Errorf("Expected gpiochip0:23, got %s:%d", chip, offset)
	}

	for _, spec := range []string{"", ":4", "gpiochip0:", "gpiochip0:x", "gpiochip0:-1"} {
		if _, _, err := ParseLine(spec); !errors.Is(err, ErrPowerLine) {
			t.Errorf("ParseLine(%q): expected ErrPowerLine, got %v", spec, err)
		}
	}
}

// ===== Command Line Tests =====

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(c Config) bool
	}{
		{"thresholds", []string{"-m", "1", "-M", "8"},
			func(c Config) bool { return c.MinPressure == 1 && c.MaxPressure == 8 }},
		{"attached negative min", []string{"-m=-1", "-M", "8"},
			func(c Config) bool { return c.MinPressure == -1 && c.MaxPressure == 8 }},
		{"attached negative low", []string{"-l=-2", "-h", "10", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.LowPressure == -2 && c.HighPressure == 10 }},
		{"long negative", []string{"--min=-0.5", "--max", "8"},
			func(c Config) bool { return c.MinPressure == -0.5 }},
		{"high", []string{"-h", "16", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.HighPressure == 16 && c.LowPressure == 0 }},
		{"hex address", []string{"-a", "0x49", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.Address == 0x49 }},
		{"decimal address", []string{"-A", "72", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.Address == 0x48 }},
		{"decimal wins", []string{"-a", "4b", "-A", "74", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.Address == 0x4a }},
		{"device and input", []string{"-d", "/dev/i2c-0", "-i", "3", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.Device == "/dev/i2c-0" && c.Channel == 3 }},
		{"verbose", []string{"-v", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.Verbose && c.LogLevel == logger.LogLevelDebug }},
		{"verbose repeated", []string{"-vv", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.LogLevel == logger.LogLevelDebug }},
		{"verbose before value", []string{"-m", "0", "-v", "-M", "8"},
			func(c Config) bool { return c.Verbose && c.MaxPressure == 8 }},
		{"quiet", []string{"-m", "0", "-M", "8"},
			func(c Config) bool { return !c.Verbose && c.LogLevel == logger.LogLevelWarning }},
		{"long only", []string{"--raw-zero", "2000", "--poll-limit", "5", "-m", "0", "-M", "8"},
			func(c Config) bool { return c.MinRaw == 2000 && c.PollLimit == 5 }},
		{"terminator", []string{"-m", "0", "-M", "8", "--"},
			func(c Config) bool { return c.MaxPressure == 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := loadArgs(t, tt.args...)
			if err != nil {
				t.Fatalf("Parsing %q failed: %v", tt.args, err)
			}
			if !tt.check(c) {
				t.Errorf("Unexpected config for %q: %+v", tt.args, c)
			}
		})
	}
}

func TestCommandLineErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"detached negative min", []string{"-m", "-1", "-M", "8"}, ErrUsage},
		{"detached negative low", []string{"-l", "-2", "-h", "10", "-m", "0", "-M", "8"}, ErrUsage},
		{"address without value", []string{"-a", "-m", "0", "-M", "8"}, ErrUsage},
		{"trailing address", []string{"-m", "0", "-M", "8", "-a"}, ErrUsage},
		{"grouped values", []string{"-mM", "-m", "0"}, ErrUsage},
		{"long without value", []string{"-m", "0", "-M", "8", "--raw-zero"}, ErrUsage},
		{"list value", []string{"-m", "1,2", "-M", "8"}, ErrUsage},
		{"unknown short", []string{"-x", "-m", "0", "-M", "8"}, ErrUsage},
		{"unknown in group", []string{"-vx", "-m", "0", "-M", "8"}, ErrUsage},
		{"unknown long", []string{"-m", "0", "-M", "8", "--bogus"}, ErrUsage},
		{"malformed", []string{"-vm=1", "-M", "8"}, ErrUsage},
		{"stray argument", []string{"-m", "0", "-M", "8", "extra"}, ErrUsage},
		{"after terminator", []string{"-m", "0", "-M", "8", "--", "extra"}, ErrUsage},
		{"lone dash", []string{"-m", "0", "-M", "8", "-"}, ErrUsage},
		{"missing max", []string{"-m", "0"}, ErrThresholdsRequired},
		{"input range", []string{"-i", "7", "-m", "0", "-M", "8"}, ErrInputRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadArgs(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v for %q, got %v", tt.want, tt.args, err)
			}
			if tt.want != ErrUsage && errors.Is(err, ErrUsage) {
				t.Errorf("Expected a validation error, not a usage error, got %v", err)
			}
		})
	}
}

func TestMissingValueMentionsAttachedForm(t *testing.T) {
	_, err := ParseFlags([]string{"-m", "-1", "-M", "8"})
	if err == nil || !strings.Contains(err.Error(), "-m=-1") {
		t.Errorf("Expected hint about -m=-1, got %v", err)
	}
}
