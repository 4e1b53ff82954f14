// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ds18b20 reads a DS18B20 temperature sensor wired to a GPIO pin.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/GermanBionicSystems/thermowire/ds18b20"
	"github.com/GermanBionicSystems/thermowire/gauge"
	"github.com/GermanBionicSystems/thermowire/onewirebb"
	"github.com/fogleman/gg"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func main() {
	app := cli.NewApp()
	app.Name = "ds18b20"
	app.Usage = "read a DS18B20 temperature sensor on a bit-banged 1-wire bus"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "pin, p",
			Usage: "GPIO pin of the data line",
		},
		cli.BoolFlag{
			Name:  "ignore-presence",
			Usage: "send commands even if no device answers the reset pulse",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored output",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logs",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "read",
			Usage:  "read the temperature once",
			Action: read,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "legacy",
					Usage: "print the firmware compatible value (register * 0.625)",
				},
			},
		},
		{
			Name:   "watch",
			Usage:  "read the temperature until interrupted",
			Action: watch,
		},
		{
			Name:   "snapshot",
			Usage:  "read the temperature once and render it to a PNG",
			Action: snapshot,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "ds18b20.png",
					Usage: "write the image to `FILE`",
				},
			},
		},
	}
	app.Action = read

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func read(c *cli.Context) error {
	s, err := open(c)
	if err != nil {
		return err
	}
	defer s.close()

	if c.Bool("legacy") {
		// GetTemperature returns the result of the previous conversion.
		if err := ds18b20.StartConversion(s.bus); err != nil {
			return errors.Wrap(err, "starting conversion")
		}
		time.Sleep(s.cfg.ConversionWait)
		v, err := ds18b20.GetTemperature(s.bus)
		if err != nil {
			return errors.Wrap(err, "reading temperature")
		}
		fmt.Fprintln(s.out, v)
		return nil
	}

	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return errors.Wrap(err, "reading temperature")
	}
	s.print(e.Temperature)
	return nil
}

func watch(c *cli.Context) error {
	s, err := open(c)
	if err != nil {
		return err
	}
	defer s.close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	// Sense runs on this goroutine, which is locked to its thread.
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	log.WithField("interval", s.cfg.Interval).Info("watching")
	for {
		select {
		case <-sig:
			return nil
		case <-t.C:
			var e physic.Env
			if err := s.dev.Sense(&e); err != nil {
				log.WithError(err).Warn("reading temperature")
				continue
			}
			s.print(e.Temperature)
		}
	}
}

func snapshot(c *cli.Context) error {
	s, err := open(c)
	if err != nil {
		return err
	}
	defer s.close()

	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return errors.Wrap(err, "reading temperature")
	}
	img, err := gauge.Render(e.Temperature, nil)
	if err != nil {
		return err
	}
	path := c.String("out")
	if err := gg.SavePNG(path, img); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	log.WithFields(log.Fields{"file": path, "temperature": e.Temperature}).Info("snapshot written")
	return nil
}

// session holds the bus and sensor for one command.
type session struct {
	cfg *config
	bus *onewirebb.Bus
	dev *ds18b20.Dev
	out io.Writer
}

func open(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	cfg.override(c)

	log.SetFormatter(&log.TextFormatter{DisableColors: !cfg.Color})
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing host")
	}
	p := gpioreg.ByName(cfg.Pin)
	if p == nil {
		return nil, errors.Errorf("no pin named %q", cfg.Pin)
	}
	l, err := onewirebb.NewPinLine(p)
	if err != nil {
		return nil, err
	}
	bus, err := onewirebb.New(l, onewirebb.BusyWait{}, cfg.busOpts())
	if err != nil {
		return nil, err
	}

	// The bus is timed by busy waits on this goroutine.
	runtime.LockOSThread()

	log.WithFields(log.Fields{"bus": bus, "ignore_presence": cfg.IgnorePresence}).Debug("probing")
	if err := bus.Init(); err != nil {
		if !cfg.IgnorePresence {
			runtime.UnlockOSThread()
			return nil, errors.Wrap(err, "probing bus")
		}
		log.WithError(err).Warn("no presence pulse, continuing")
	}
	dev, err := ds18b20.New(bus, cfg.sensorOpts())
	if err != nil {
		runtime.UnlockOSThread()
		return nil, errors.Wrap(err, "opening sensor")
	}
	log.WithField("dev", dev).Debug("sensor ready")

	var out io.Writer = os.Stdout
	if cfg.Color {
		out = colorable.NewColorableStdout()
	}
	return &session{cfg: cfg, bus: bus, dev: dev, out: out}, nil
}

func (s *session) print(t physic.Temperature) {
	if s.cfg.Color {
		fmt.Fprintf(s.out, "%s\033[0m %s\n", gauge.Block(t, nil), gauge.Format(t))
		return
	}
	fmt.Fprintln(s.out, gauge.Format(t))
}

func (s *session) close() {
	if err := s.dev.Halt(); err != nil {
		log.WithError(err).Warn("halting sensor")
	}
	if err := s.bus.Halt(); err != nil {
		log.WithError(err).Warn("releasing bus")
	}
	runtime.UnlockOSThread()
}
