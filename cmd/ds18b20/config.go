// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"strings"
	"time"

	"github.com/GermanBionicSystems/thermowire/ds18b20"
	"github.com/GermanBionicSystems/thermowire/onewirebb"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/urfave/cli"
)

type config struct {
	Debug          bool
	Pin            string
	Interval       time.Duration
	ConversionWait time.Duration
	IgnorePresence bool
	ResetLow       time.Duration
	Color          bool
}

// loadConfig reads the optional TOML file at path. Environment variables
// prefixed with DS18B20_ override it, e.g. DS18B20_SENSOR_PIN.
func loadConfig(path string) (*config, error) {
	v := viper.New()
	v.SetDefault("core.debug", false)
	v.SetDefault("sensor.pin", "GPIO4")
	v.SetDefault("sensor.interval", 2*time.Second)
	v.SetDefault("sensor.conversion_wait", ds18b20.DefaultOpts.ConversionWait)
	v.SetDefault("bus.ignore_presence", false)
	v.SetDefault("bus.reset_low", onewirebb.DefaultOpts.ResetLow)
	v.SetDefault("output.color", true)

	v.SetEnvPrefix("ds18b20")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	}

	cfg := &config{
		Debug:          v.GetBool("core.debug"),
		Pin:            v.GetString("sensor.pin"),
		Interval:       v.GetDuration("sensor.interval"),
		ConversionWait: v.GetDuration("sensor.conversion_wait"),
		IgnorePresence: v.GetBool("bus.ignore_presence"),
		ResetLow:       v.GetDuration("bus.reset_low"),
		Color:          v.GetBool("output.color"),
	}
	if cfg.Pin == "" {
		return nil, errors.New("sensor.pin is empty")
	}
	if cfg.Interval < cfg.ConversionWait {
		return nil, errors.Errorf("sensor.interval %s is shorter than sensor.conversion_wait %s", cfg.Interval, cfg.ConversionWait)
	}
	return cfg, nil
}

// override applies the global flags the user set explicitly.
func (cfg *config) override(c *cli.Context) {
	if c.GlobalIsSet("pin") {
		cfg.Pin = c.GlobalString("pin")
	}
	if c.GlobalIsSet("debug") {
		cfg.Debug = c.GlobalBool("debug")
	}
	if c.GlobalIsSet("ignore-presence") {
		cfg.IgnorePresence = c.GlobalBool("ignore-presence")
	}
	if c.GlobalIsSet("no-color") {
		cfg.Color = !c.GlobalBool("no-color")
	}
}

func (cfg *config) busOpts() *onewirebb.Opts {
	opts := onewirebb.DefaultOpts
	opts.ResetLow = cfg.ResetLow
	opts.IgnorePresence = cfg.IgnorePresence
	return &opts
}

func (cfg *config) sensorOpts() *ds18b20.Opts {
	return &ds18b20.Opts{ConversionWait: cfg.ConversionWait}
}
