// Package config assembles the immutable settings for one check run from
// command-line flags, CHECK_PRESSURE_* environment variables, an optional
// JSON file and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	wconfig "github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"

	"check-pressure/internal/calibration"
	"check-pressure/internal/hardware"
	"check-pressure/internal/logger"
)

var (
	ErrUsage                 = errors.New("invalid command line")
	ErrInputRange            = errors.New("input must be 1, 2, 3 or 4")
	ErrThresholdsRequired    = errors.New("both -m and -M options must be present")
	ErrAddressRange          = errors.New("i2c address must be between 0x00 and 0x7f")
	ErrDegenerateCalibration = errors.New("raw-zero and raw-full calibration points must differ")
	ErrPowerLine             = errors.New("power-gpio must be chip:line")
	ErrLogLevel              = errors.New("log level must be 0 to 4")
)

const EnvPrefix = "CHECK_PRESSURE_"

// Flags maps the classic check_ads1115 short options onto config keys.
// Hyphens in flag names become key separators, so --raw-zero is raw.zero.
// A value starting with '-' must be attached, as in -m=-1 or --low=-2.
var Flags = []pflag.Flag{
	{Short: 'c', Name: "config-file"},
	{Short: 'v', Name: "verbose", Options: pflag.IsBool},
	{Short: 'd', Name: "device"},
	{Short: 'a', Name: "address"},
	{Short: 'A', Name: "decimal-address"},
	{Short: 'i', Name: "input"},
	{Short: 'm', Name: "min"},
	{Short: 'M', Name: "max"},
	{Short: 'l', Name: "low"},
	{Short: 'h', Name: "high"},
}

// Defaults returns the values used when no source sets a key.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"verbose":           false,
		"log":               int(logger.LogLevelWarning),
		"device":            hardware.DefaultDevice,
		"address":           fmt.Sprintf("%x", hardware.DefaultAddress),
		"input":             int(hardware.DefaultChannel),
		"low":               calibration.DefaultLowPressure,
		"high":              calibration.DefaultHighPressure,
		"raw.zero":          calibration.DefaultMinRaw,
		"raw.full":          calibration.DefaultMaxRaw,
		"reference.voltage": calibration.DefaultReferenceVoltage,
		"poll.limit":        0,
		"poll.interval":     "0s",
		"iio.root":          hardware.IIODevicesDir,
		"iio.device":        "",
		"power.gpio":        "",
		"power.settle":      "500ms",
	}
}

// PowerLine is an optional GPIO output that powers the transmitter loop.
type PowerLine struct {
	Chip   string
	Offset int
	Settle time.Duration
}

// Config is the complete, validated setting for one run. It is built once
// and passed by value; nothing reads flags or the environment after Load.
type Config struct {
	Verbose  bool
	LogLevel logger.LogLevel

	Device  string
	Address uint8
	Channel hardware.Channel

	MinPressure float64
	MaxPressure float64

	LowPressure      float64
	HighPressure     float64
	MinRaw           float64
	MaxRaw           float64
	ReferenceVoltage float64

	PollLimit    int
	PollInterval time.Duration

	IIORoot   string
	IIODevice string

	Power *PowerLine
}

// Target returns the acquisition target described by c.
func (c Config) Target() hardware.Target {
	return hardware.Target{
		Device:  c.Device,
		Address: c.Address,
		Channel: c.Channel,
	}
}

// Calibration returns the raw-to-pressure model described by c.
func (c Config) Calibration() calibration.Model {
	return calibration.New(c.MinRaw, c.MaxRaw, c.LowPressure, c.HighPressure)
}

// Load reads configuration from the command line, environment, optional
// config file and defaults.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs is Load with an explicit command line, excluding the program name.
func LoadArgs(args []string) (Config, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return Config{}, err
	}
	def := dict.New(dict.WithMap(Defaults()))
	// highest priority sources first - flags override environment
	cfg := wconfig.New(
		flags,
		env.New(env.WithEnvPrefix(EnvPrefix)),
		wconfig.WithDefault(def))
	if v, err := cfg.Get("config.file"); err == nil && v.String() != "" {
		cfg.Append(
			blob.NewConfigFile(cfg, "config.file", v.String(), json.NewDecoder()))
	}
	return FromSource(cfg)
}

// ParseFlags parses args against Flags. Unknown options, stray arguments
// and value options left without a value are reported as ErrUsage.
func ParseFlags(args []string) (*pflag.Getter, error) {
	known := knownFlags()
	if err := scanArgs(args, known); err != nil {
		return nil, err
	}
	g := pflag.New(pflag.WithCommandLine(args), pflag.WithFlags(Flags))
	if g.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, g.Args()[0])
	}
	for key, f := range known.byKey {
		if f.Options&pflag.IsBool != 0 {
			continue
		}
		v, ok := g.Get(key)
		if !ok {
			continue
		}
		switch v.(type) {
		case string:
		case int:
			return nil, missingValue(f)
		default:
			return nil, fmt.Errorf("%w: option %s takes a single value", ErrUsage, flagName(f))
		}
	}
	return g, nil
}

type flagSet struct {
	short map[rune]pflag.Flag
	long  map[string]pflag.Flag
	byKey map[string]pflag.Flag
}

// knownFlags is Flags plus a long form for every defaulted key.
func knownFlags() flagSet {
	fs := flagSet{
		short: make(map[rune]pflag.Flag),
		long:  make(map[string]pflag.Flag),
		byKey: make(map[string]pflag.Flag),
	}
	add := func(f pflag.Flag) {
		if f.Short != 0 {
			fs.short[f.Short] = f
		}
		fs.long[f.Name] = f
		fs.byKey[strings.ReplaceAll(f.Name, "-", ".")] = f
	}
	for key, v := range Defaults() {
		f := pflag.Flag{Name: strings.ReplaceAll(key, ".", "-")}
		if _, ok := v.(bool); ok {
			f.Options = pflag.IsBool
		}
		add(f)
	}
	for _, f := range Flags {
		add(f)
	}
	return fs
}

func flagName(f pflag.Flag) string {
	if f.Short != 0 {
		return "-" + string(f.Short)
	}
	return "--" + f.Name
}

// scanArgs walks args the way pflag does, catching what pflag would
// silently drop or misread as a counter.
func scanArgs(args []string, known flagSet) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var (
			f  pflag.Flag
			ok bool
		)
		switch {
		case arg == "--":
			return nil
		case strings.HasPrefix(arg, "--"):
			name, _, hasValue := strings.Cut(arg[2:], "=")
			if f, ok = known.long[name]; !ok {
				return fmt.Errorf("%w: unknown option --%s", ErrUsage, name)
			}
			if hasValue {
				continue
			}
		case len(arg) > 1 && arg[0] == '-':
			shorts, _, hasValue := strings.Cut(arg[1:], "=")
			if hasValue && len(shorts) != 1 {
				return fmt.Errorf("%w: malformed option %q", ErrUsage, arg)
			}
			for _, ch := range shorts {
				if f, ok = known.short[ch]; !ok {
					return fmt.Errorf("%w: unknown option -%c", ErrUsage, ch)
				}
			}
			// grouped options never take a value
			if hasValue || len(shorts) > 1 {
				continue
			}
		default:
			return fmt.Errorf("%w: unexpected argument %q", ErrUsage, arg)
		}
		if f.Options&pflag.IsBool != 0 {
			continue
		}
		if i+1 == len(args) || strings.HasPrefix(args[i+1], "-") {
			return missingValue(f)
		}
		i++
	}
	return nil
}

func missingValue(f pflag.Flag) error {
	return fmt.Errorf("%w: option %s requires a value (use %s=-1 for negative numbers)",
		ErrUsage, flagName(f), flagName(f))
}

// FromSource extracts and validates a Config from an assembled source.
func FromSource(src *wconfig.Config) (Config, error) {
	r := reader{src: src}
	c := Config{
		Verbose:          r.bool("verbose"),
		LogLevel:         logger.LogLevel(r.int("log")),
		Device:           r.string("device"),
		Channel:          hardware.Channel(r.int("input")),
		LowPressure:      r.float("low"),
		HighPressure:     r.float("high"),
		MinRaw:           r.float("raw.zero"),
		MaxRaw:           r.float("raw.full"),
		ReferenceVoltage: r.float("reference.voltage"),
		PollLimit:        r.int("poll.limit"),
		PollInterval:     r.duration("poll.interval"),
		IIORoot:          r.string("iio.root"),
		IIODevice:        r.string("iio.device"),
	}
	if r.err != nil {
		return Config{}, r.err
	}

	addr, err := address(src)
	if err != nil {
		return Config{}, err
	}
	c.Address = addr

	if !c.Channel.Valid() {
		return Config{}, fmt.Errorf("%w, got %d", ErrInputRange, c.Channel)
	}

	minV, minErr := src.Get("min")
	maxV, maxErr := src.Get("max")
	if minErr != nil || maxErr != nil {
		return Config{}, ErrThresholdsRequired
	}
	c.MinPressure = minV.Float()
	c.MaxPressure = maxV.Float()

	if c.MaxRaw == c.MinRaw {
		return Config{}, fmt.Errorf("%w, both are %g", ErrDegenerateCalibration, c.MinRaw)
	}

	if c.Verbose {
		c.LogLevel = logger.LogLevelDebug
	}
	if c.LogLevel < logger.LogLevelNone || c.LogLevel > logger.LogLevelDebug {
		return Config{}, fmt.Errorf("%w, got %d", ErrLogLevel, c.LogLevel)
	}

	if spec := r.string("power.gpio"); spec != "" {
		chip, offset, err := ParseLine(spec)
		if err != nil {
			return Config{}, err
		}
		c.Power = &PowerLine{
			Chip:   chip,
			Offset: offset,
			Settle: r.duration("power.settle"),
		}
		if r.err != nil {
			return Config{}, r.err
		}
	}

	return c, nil
}

// address resolves -A (decimal) over -a (hexadecimal).
func address(src *wconfig.Config) (uint8, error) {
	var (
		s    string
		base int
	)
	if v, err := src.Get("decimal.address"); err == nil {
		s, base = v.String(), 10
	} else if v, err := src.Get("address"); err == nil {
		s, base = strings.TrimPrefix(strings.ToLower(v.String()), "0x"), 16
	} else {
		return 0, fmt.Errorf("reading address: %w", err)
	}

	n, err := strconv.ParseUint(strings.TrimSpace(s), base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid i2c address %q: %w", s, err)
	}
	if n > hardware.MaxAddress {
		return 0, fmt.Errorf("%w, got 0x%x", ErrAddressRange, n)
	}
	return uint8(n), nil
}

// ParseLine splits a "chip:line" GPIO spec such as "gpiochip0:17".
func ParseLine(spec string) (string, int, error) {
	chip, line, ok := strings.Cut(spec, ":")
	if !ok || chip == "" {
		return "", 0, fmt.Errorf("%w, got %q", ErrPowerLine, spec)
	}
	offset, err := strconv.Atoi(line)
	if err != nil || offset < 0 {
		return "", 0, fmt.Errorf("%w, got %q", ErrPowerLine, spec)
	}
	return chip, offset, nil
}

// reader collects the first lookup error so FromSource can read all keys
// in one pass.
type reader struct {
	src *wconfig.Config
	err error
}

func (r *reader) get(key string) (wconfig.Value, bool) {
	v, err := r.src.Get(key)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("reading %s: %w", key, err)
		}
		return v, false
	}
	return v, true
}

func (r *reader) string(key string) string {
	v, _ := r.get(key)
	return v.String()
}

func (r *reader) int(key string) int {
	v, _ := r.get(key)
	return v.Int()
}

func (r *reader) float(key string) float64 {
	v, _ := r.get(key)
	return v.Float()
}

func (r *reader) bool(key string) bool {
	v, _ := r.get(key)
	return v.Bool()
}

func (r *reader) duration(key string) time.Duration {
	v, _ := r.get(key)
	return v.Duration()
}
