package core

import (
	"check-pressure/internal/hardware"
)

// Sampler defines the acquisition operation needed by Checker
type Sampler interface {
	Read(target hardware.Target) (hardware.Reading, error)
}

// Supply defines the optional transmitter loop power control needed by
// Checker. Close must be safe to call after a failed On.
type Supply interface {
	On() error
	Close() error
}
