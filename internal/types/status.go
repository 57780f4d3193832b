package types

// CheckStatus is the monitoring plugin result. Its numeric value is the
// process exit code.
type CheckStatus int

const (
	StatusOK       CheckStatus = 0
	StatusCritical CheckStatus = 2
)

// ExitFailure is returned when no reading could be taken at all.
const ExitFailure = 1

func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Bound names which threshold a pressure crossed.
type Bound string

const (
	BoundNone  Bound = ""
	BoundBelow Bound = "below"
	BoundOver  Bound = "over"
)

// Evaluate compares a pressure against the inclusive [min, max] window.
func Evaluate(pressure, min, max float64) (CheckStatus, Bound) {
	if pressure < min {
		return StatusCritical, BoundBelow
	}
	if pressure > max {
		return StatusCritical, BoundOver
	}
	return StatusOK, BoundNone
}
