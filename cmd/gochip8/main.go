// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/host"
	"github.com/lassandro/gochip8/pkg/machine"
)

var helpvar bool
var debugvar bool
var tracevar bool
var quietvar bool
var termvar bool
var novsyncvar bool
var statsvar bool
var quirksvar string
var wavvar string
var clockvar int
var scalevar int
var seedvar uint64

const usage = "gochip8 [flags] filename"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(&tracevar, "trace", false, "Logs every executed instruction")
	flag.BoolVar(&quietvar, "quiet", false, "Only logs errors")
	flag.BoolVar(&termvar, "term", false, "Renders to the terminal instead of a window")
	flag.BoolVar(
		&novsyncvar, "novsync", false,
		"Lets DRW run without waiting for the next frame",
	)
	flag.BoolVar(
		&statsvar, "statsview", false,
		"Serves runtime statistics on "+statsAddr,
	)
	flag.StringVar(
		&quirksvar, "quirks", "modern",
		"Selects the interpreter behaviour: modern or cosmac",
	)
	flag.StringVar(&wavvar, "wav", "", "Records the tone to a WAV file")
	flag.IntVar(&clockvar, "clock", host.DEFAULT_CLOCK, "Instructions per second")
	flag.IntVar(&scalevar, "scale", 16, "Window pixels per machine pixel")
	flag.Uint64Var(
		&seedvar, "seed", 0,
		"Seeds the random number generator, 0 picks one from the clock",
	)
	flag.Parse()
}

func newLogger() *log.Logger {
	cfg := log.DefaultConfig()

	if debugvar || tracevar {
		cfg.Level = log.DebugLevel
	} else if quietvar {
		cfg.Level = log.ErrorLevel
	}

	return log.NewWithConfig(cfg)
}

func gochip8() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	logger := newLogger()

	if debugvar && termvar {
		logger.Error("The debug CLI cannot share the terminal with -term")
		return 1
	}

	quirks, err := machine.QuirksByName(quirksvar)

	if err != nil {
		logger.Error("Invalid quirks", log.Err(err))
		return 1
	}

	if novsyncvar {
		quirks.VBlankWait = false
	}

	seed := seedvar

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	rom, err := os.ReadFile(args[0])

	if err != nil {
		logger.Error("Reading program failed", log.Err(err))
		return 1
	}

	mc := machine.New(machine.Config{
		Quirks: quirks,
		Seed:   seed,
		Logger: logger,
		Trace:  tracevar,
	})

	if err := mc.Load(rom); err != nil {
		logger.Error("Loading program failed", log.Err(err))
		return 1
	}

	logger.Debug("Machine ready",
		log.String("program", args[0]),
		log.String("quirks", quirksvar),
		log.String("seed", fmt.Sprintf("%#x", seed)),
	)

	if statsvar {
		startStatsView(logger)
	}

	driver := host.NewDriver(mc, clockvar, logger)

	var closers []io.Closer
	var run func() error

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if termvar {
		terminal, err := host.NewTerminal(os.Stdin, os.Stdout)

		if err != nil {
			logger.Error("Opening terminal failed", log.Err(err))
			return 1
		}

		closers = append(closers, terminal)
		driver.Display = terminal
		driver.Input = terminal
		driver.Audio = terminal

		run = func() error { return driver.Run(ctx) }
	} else {
		window := host.NewWindow(
			driver, "gochip8 - "+filepath.Base(args[0]), scalevar,
		)

		if audio, err := host.NewOtoAudio(); err == nil {
			closers = append(closers, audio)
			driver.Audio = audio
		} else {
			logger.Warn("Audio unavailable", log.Err(err))
		}

		run = window.Run
	}

	if wavvar != "" {
		file, err := os.Create(wavvar)

		if err != nil {
			logger.Error("Creating WAV file failed", log.Err(err))
			return 1
		}

		recorder := host.NewWavRecorder(file, driver.Audio)
		closers = append(closers, file, recorder)
		driver.Audio = recorder
	}

	if debugvar {
		attachDebugger(driver, args[0], rom, logger)
	}

	err = run()

	for i := len(closers) - 1; i >= 0; i-- {
		if closeErr := closers[i].Close(); closeErr != nil {
			logger.Error("Closing device failed", log.Err(closeErr))
		}
	}

	if err != nil && !errors.Is(err, host.ErrQuit) &&
		!errors.Is(err, context.Canceled) {
		logger.Error("Emulator stopped", log.Err(err))
		return 1
	}

	stats := driver.Stats()
	logger.Debug("Emulator exited",
		log.Uint64("frames", stats.Frames),
		log.Uint64("ticks", stats.Ticks),
	)

	return 0
}

func main() {
	os.Exit(gochip8())
}
