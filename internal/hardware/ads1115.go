package hardware

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"

	"check-pressure/internal/logger"
)

var (
	ErrDeviceOpen        = errors.New("couldn't open device")
	ErrAddressBind       = errors.New("couldn't find device on address")
	ErrWrite             = errors.New("i2c write failed")
	ErrRead              = errors.New("i2c read failed")
	ErrConversionTimeout = errors.New("conversion did not complete")
	ErrInvalidChannel    = errors.New("input must be 1, 2, 3 or 4")
)

// Bus is a byte-oriented i2c transport bound to one slave at a time.
type Bus interface {
	io.ReadWriteCloser
	SetAddress(addr uint8) error
}

// Opener opens the bus named by path.
type Opener func(path string) (Bus, error)

// Channel is a single-ended input, numbered 1 to 4 as printed on most
// breakout boards (AIN0 to AIN3).
type Channel int

func (c Channel) Valid() bool {
	return c >= 1 && c <= 4
}

// MuxCode returns the 3-bit input multiplexer selection for c.
func (c Channel) MuxCode() uint8 {
	switch c {
	case 1:
		return muxAIN0
	case 2:
		return muxAIN1
	case 3:
		return muxAIN2
	default:
		return muxAIN3
	}
}

// AIN is the zero-based analog input name used in diagnostics.
func (c Channel) AIN() int {
	return int(c) - 1
}

// ConversionConfig holds the config register fields written to start a
// conversion.
type ConversionConfig struct {
	Start      bool
	Mux        uint8
	Gain       Gain
	SingleShot bool
	DataRate   DataRate
	Window     bool
	ActiveHigh bool
	Latching   bool
	Queue      ComparatorQueue
}

// NewConversionConfig returns the single-shot, 6.144 V, 128 SPS
// configuration for ch.
func NewConversionConfig(ch Channel) ConversionConfig {
	return ConversionConfig{
		Start:      true,
		Mux:        ch.MuxCode(),
		Gain:       Gain6V144,
		SingleShot: true,
		DataRate:   DataRate128,
		Latching:   true,
		Queue:      CompQueueTwo,
	}
}

func (c ConversionConfig) Word() uint16 {
	var w uint16
	if c.Start {
		w |= configOSStart
	}
	w |= uint16(c.Mux&0x7) << configMuxShift
	w |= uint16(c.Gain&0x7) << configPGAShift
	if c.SingleShot {
		w |= configModeOnce
	}
	w |= uint16(c.DataRate&0x7) << configDRShift
	if c.Window {
		w |= configCompMode
	}
	if c.ActiveHigh {
		w |= configCompPol
	}
	if c.Latching {
		w |= configCompLat
	}
	w |= uint16(c.Queue & 0x3)
	return w
}

// Bytes returns the register value MSB first, as it goes on the wire.
func (c ConversionConfig) Bytes() [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], c.Word())
	return b
}

// Target identifies one input on one chip.
type Target struct {
	Device  string
	Address uint8
	Channel Channel
}

// Reading is one acquired sample. Raw is what the chip returned, Value is
// the sanitized sample used for calibration.
type Reading struct {
	Channel Channel
	Raw     int16
	Value   int16
}

func (r Reading) Clamped() bool {
	return r.Raw != r.Value
}

// sampleCeiling is the largest raw value accepted as a valid
// single-ended reading.
const sampleCeiling = 32768

// Sanitize zeroes samples outside the single-ended range.
func Sanitize(raw int16) int16 {
	if v := int(raw); v < 0 || v > sampleCeiling {
		return 0
	}
	return raw
}

type Option func(*ADS1115)

// WithPollLimit fails a conversion after n busy polls. Zero polls forever.
func WithPollLimit(n int) Option {
	return func(a *ADS1115) {
		a.pollLimit = n
	}
}

// WithPollInterval sleeps between busy polls.
func WithPollInterval(d time.Duration) Option {
	return func(a *ADS1115) {
		a.pollInterval = d
	}
}

// ADS1115 takes single-shot readings from an ADS1115 over a Bus. Each Read
// owns the bus for its duration and releases it before returning.
type ADS1115 struct {
	open         Opener
	logger       *logger.Logger
	pollLimit    int
	pollInterval time.Duration
}

func NewADS1115(open Opener, l *logger.Logger, opts ...Option) *ADS1115 {
	if l == nil {
		l = logger.NewLogger(nil, logger.LogLevelNone)
	}
	a := &ADS1115{
		open:   open,
		logger: l.WithTag("ads1115"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Read performs one single-shot conversion on t.Channel.
func (a *ADS1115) Read(t Target) (r Reading, err error) {
	if !t.Channel.Valid() {
		return Reading{}, fmt.Errorf("%w: got %d", ErrInvalidChannel, t.Channel)
	}

	bus, err := a.open(t.Device)
	if err != nil {
		return Reading{}, fmt.Errorf("%w %s: %w", ErrDeviceOpen, t.Device, err)
	}
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close %s: %w", t.Device, cerr))
		}
	}()

	if err := bus.SetAddress(t.Address); err != nil {
		return Reading{}, fmt.Errorf("%w 0x%02x: %w", ErrAddressBind, t.Address, err)
	}

	cfg := NewConversionConfig(t.Channel).Bytes()
	a.logger.Debugf("Starting conversion on AIN%d, config 0x%02x%02x", t.Channel.AIN(), cfg[0], cfg[1])
	if err := writeFull(bus, []byte{RegConfig, cfg[0], cfg[1]}, "config register"); err != nil {
		return Reading{}, err
	}

	if err := a.waitReady(bus); err != nil {
		return Reading{}, err
	}

	if err := writeFull(bus, []byte{RegConversion}, "register select"); err != nil {
		return Reading{}, err
	}

	var buf [2]byte
	if err := readFull(bus, buf[:], "conversion register"); err != nil {
		return Reading{}, err
	}

	raw := int16(binary.BigEndian.Uint16(buf[:]))
	r = Reading{
		Channel: t.Channel,
		Raw:     raw,
		Value:   Sanitize(raw),
	}
	if r.Clamped() {
		a.logger.Debugf("Raw sample %d out of single-ended range, using 0", raw)
	}
	return r, nil
}

// waitReady polls the config register until the OS bit reports that no
// conversion is in progress.
func (a *ADS1115) waitReady(bus Bus) error {
	var buf [2]byte
	for polls := 1; ; polls++ {
		if err := readFull(bus, buf[:], "config register"); err != nil {
			return err
		}
		if buf[0]&configOSReady != 0 {
			a.logger.Debugf("Conversion ready after %d polls", polls)
			return nil
		}
		if a.pollLimit > 0 && polls >= a.pollLimit {
			return fmt.Errorf("%w after %d polls", ErrConversionTimeout, polls)
		}
		if a.pollInterval > 0 {
			time.Sleep(a.pollInterval)
		}
	}
}

func writeFull(bus Bus, p []byte, what string) error {
	n, err := bus.Write(p)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, what, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: %s: wrote %d of %d bytes", ErrWrite, what, n, len(p))
	}
	return nil
}

func readFull(bus Bus, p []byte, what string) error {
	n, err := bus.Read(p)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRead, what, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: %s: read %d of %d bytes", ErrRead, what, n, len(p))
	}
	return nil
}
