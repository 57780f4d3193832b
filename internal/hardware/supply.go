package hardware

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"

	"check-pressure/internal/logger"
)

// SupplyLine drives a GPIO output that powers the 4-20 mA current loop
// for the duration of one reading.
type SupplyLine struct {
	chip   string
	offset int
	settle time.Duration
	line   *gpiocdev.Line
	logger *logger.Logger
}

func NewSupplyLine(chip string, offset int, settle time.Duration, l *logger.Logger) *SupplyLine {
	if l == nil {
		l = logger.NewLogger(nil, logger.LogLevelNone)
	}
	return &SupplyLine{
		chip:   chip,
		offset: offset,
		settle: settle,
		logger: l.WithTag("supply"),
	}
}

// On requests the line as an output driven high and waits for the
// transmitter to settle.
func (s *SupplyLine) On() error {
	if s.line != nil {
		return nil
	}

	chip, err := gpiocdev.NewChip(s.chip)
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", s.chip, err)
	}
	line, err := chip.RequestLine(s.offset,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer(consumerName))
	if cerr := chip.Close(); cerr != nil {
		s.logger.Warnf("Failed to close GPIO chip %s: %v", s.chip, cerr)
	}
	if err != nil {
		return fmt.Errorf("failed to request GPIO line %s:%d: %w", s.chip, s.offset, err)
	}

	s.line = line
	s.logger.Debugf("Loop supply on %s:%d enabled, settling %v", s.chip, s.offset, s.settle)
	if s.settle > 0 {
		time.Sleep(s.settle)
	}
	return nil
}

// Close drives the line low and releases it. It is safe to call when On
// failed or was never called.
func (s *SupplyLine) Close() error {
	if s.line == nil {
		return nil
	}

	var err error
	if serr := s.line.SetValue(0); serr != nil {
		err = fmt.Errorf("failed to set GPIO line %s:%d low: %w", s.chip, s.offset, serr)
	}
	err = multierr.Append(err, s.line.Close())
	s.line = nil
	s.logger.Debugf("Loop supply on %s:%d released", s.chip, s.offset)
	return err
}
