package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"check-pressure/internal/config"
	"check-pressure/internal/core"
	"check-pressure/internal/hardware"
	"check-pressure/internal/logger"
	"check-pressure/internal/types"
)

const usage = `Usage: %s [ -v ] [ -d i2cdevice ] [ -a i2caddress ] [ -A i2caddress ] [ -i input ] [ -l lowval ] [ -h highval ] -m min -M max
Note:	-a is in Hexadecimal and -A is Decimal.
	 negative values must be attached, as in -m=-1
	 -l is pressure in bar at 4ma (lowest reading)
	 -h is pressure in bar at 20ma (highest reading)
`

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error. %v\n", err)
		if errors.Is(err, config.ErrUsage) {
			fmt.Printf(usage, os.Args[0])
		}
		return types.ExitFailure
	}

	// stdout carries the status line, diagnostics go to stderr
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stderr, "", 0)
	} else {
		stdLogger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}
	l := logger.NewLogger(stdLogger, cfg.LogLevel)

	var sampler core.Sampler
	if cfg.IIODevice != "" {
		sampler = hardware.NewIIOSampler(cfg.IIORoot, cfg.IIODevice, l)
	} else {
		sampler = hardware.NewADS1115(hardware.I2COpener, l,
			hardware.WithPollLimit(cfg.PollLimit),
			hardware.WithPollInterval(cfg.PollInterval))
	}

	var supply core.Supply
	if cfg.Power != nil {
		supply = hardware.NewSupplyLine(cfg.Power.Chip, cfg.Power.Offset, cfg.Power.Settle, l)
	}

	res, err := core.NewChecker(cfg, sampler, supply, l).Run()
	if err != nil {
		fmt.Println(core.FormatError(err))
		return types.ExitFailure
	}

	fmt.Println(core.FormatReport(cfg, res))
	return int(res.Status)
}
