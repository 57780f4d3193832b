package core

import (
	"fmt"

	"check-pressure/internal/config"
	"check-pressure/internal/types"
)

// FormatReport renders the single status line read by the monitoring
// system, including the performance data after the pipe.
func FormatReport(cfg config.Config, r Result) string {
	probe := fmt.Sprintf("%s:0x%02x", cfg.Device, cfg.Address)

	switch r.Bound {
	case types.BoundBelow:
		return fmt.Sprintf("%s: Pressure on probe '%s' is %4.3f which is below %4.3f | 'pressure'=%4.4f",
			r.Status, probe, r.Pressure, cfg.MinPressure, r.Pressure)
	case types.BoundOver:
		return fmt.Sprintf("%s: Pressure on probe '%s' is %4.3f which is over %4.3f | 'pressure'=%4.4f",
			r.Status, probe, r.Pressure, cfg.MaxPressure, r.Pressure)
	default:
		return fmt.Sprintf("%s: Pressure on probe '%s' is %4.3f | 'pressure'=%4.3f",
			r.Status, probe, r.Pressure, r.Pressure)
	}
}

// FormatError renders a failed run.
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}
