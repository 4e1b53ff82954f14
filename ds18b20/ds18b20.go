// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18b20 controls a single Dallas Semi / Maxim DS18B20 temperature
// sensor on a 1-wire bus.
//
// The device is always selected with skip ROM, so it must be the only one on
// the bus.
//
// Datasheet
//
// https://datasheets.maximintegrated.com/en/ds/DS18B20.pdf
package ds18b20

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

const (
	cmdSkipROM        = 0xcc
	cmdConvert        = 0x44
	cmdReadScratchpad = 0xbe
)

// StartConversion starts a temperature conversion.
//
// It returns without waiting for the conversion to finish, which takes up to
// 750ms at the 12 bits power-on resolution. The bus is left in strong pull-up
// mode to power a parasitic device if it supports it.
func StartConversion(o onewire.Bus) error {
	return o.Tx([]byte{cmdSkipROM, cmdConvert}, nil, onewire.StrongPullup)
}

// GetTemperature starts a conversion, then reads the temperature register and
// returns it decoded with Decode.
//
// It does not wait for the conversion it starts, so the value returned is the
// result of the previous one.
func GetTemperature(o onewire.Bus) (int16, error) {
	if err := StartConversion(o); err != nil {
		return 0, err
	}
	lo, hi, err := readTemperature(o)
	if err != nil {
		return 0, err
	}
	return Decode(lo, hi), nil
}

// Decode converts the temperature register to tenths of °C the way existing
// firmware does.
//
// When hi is above 7 the value is negative: both bytes are inverted (one's
// complement, no +1) and the result negated. The magnitude is multiplied by
// 0.625 and truncated.
//
// 0.625 is ten times the datasheet resolution of 0.0625°C per LSB, so 0x0190
// (25°C) decodes to 250 and 0x07d0 (125°C) to 1250. The remainder below 0.1°C
// is truncated, and since the negative path skips the +1 of two's complement
// it is off by one LSB: 0xffff decodes to 0 and 0xfff8 (-0.5°C) to -4. Use
// Celsius for the datasheet conversion.
func Decode(lo, hi byte) int16 {
	negative := hi > 7
	if negative {
		lo, hi = ^lo, ^hi
	}
	raw := int16(uint16(hi)<<8 | uint16(lo))
	v := int16(float32(raw) * 0.625)
	if negative {
		return -v
	}
	return v
}

// Celsius converts the temperature register to a temperature.
//
// The register is two's complement with 4 fractional bits, datasheet p.4.
func Celsius(lo, hi byte) physic.Temperature {
	raw := int16(uint16(hi)<<8 | uint16(lo))
	return physic.Temperature(raw)*physic.Kelvin/16 + physic.ZeroCelsius
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// ConversionWait is how long Sense waits for a conversion. The device
	// needs 94ms at 9 bits up to 750ms at 12 bits.
	ConversionWait time.Duration
}

// DefaultOpts is the recommended default options, for the power-on 12 bits
// resolution.
var DefaultOpts = Opts{
	ConversionWait: 750 * time.Millisecond,
}

// New returns an object that communicates over 1-wire to the only DS18B20
// sensor on the bus.
//
// opts may be nil, in which case DefaultOpts is used.
func New(o onewire.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.ConversionWait <= 0 {
		return nil, errors.New("ds18b20: invalid ConversionWait")
	}
	d := &Dev{onewire: o, opts: *opts}

	// Reading the temperature register tells whether the device answers.
	if _, _, err := readTemperature(o); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is a handle to a DS18B20 temperature sensor selected with skip ROM.
type Dev struct {
	onewire onewire.Bus
	opts    Opts

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	return "DS18B20{" + d.onewire.String() + "}"
}

// Halt implements conn.Resource.
//
// It stops a SenseContinuous loop if one is running.
func (d *Dev) Halt() error {
	d.mu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// Sense implements physic.SenseEnv.
//
// It starts a conversion and waits ConversionWait for it to finish.
func (d *Dev) Sense(e *physic.Env) error {
	if err := StartConversion(d.onewire); err != nil {
		return err
	}
	sleep(d.opts.ConversionWait)
	t, err := d.LastTemp()
	if err != nil {
		return err
	}
	e.Temperature = t
	return nil
}

// SenseContinuous implements physic.SenseEnv.
//
// Readings that fail are skipped. Call Halt to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < d.opts.ConversionWait {
		return nil, errors.New("ds18b20: interval is shorter than a conversion")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("ds18b20: SenseContinuous already running")
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan physic.Env, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 16
}

// LastTemp reads the temperature resulting from the last conversion from the
// device.
func (d *Dev) LastTemp() (physic.Temperature, error) {
	lo, hi, err := readTemperature(d.onewire)
	if err != nil {
		return 0, err
	}
	c := Celsius(lo, hi)

	// The device powers up with a value of 85°C, so if we read that odds are
	// very high that either no conversion was performed or that the conversion
	// failed due to lack of power.
	if c == 85*physic.Celsius+physic.ZeroCelsius {
		return 0, busError("ds18b20: has not performed a temperature conversion (insufficient pull-up?)")
	}
	return c, nil
}

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

// readTemperature reads the first two bytes of the scratchpad.
func readTemperature(o onewire.Bus) (lo, hi byte, err error) {
	var spad [2]byte
	if err := o.Tx([]byte{cmdSkipROM, cmdReadScratchpad}, spad[:], onewire.WeakPullup); err != nil {
		return 0, 0, err
	}
	return spad[0], spad[1], nil
}

var sleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
var _ onewire.BusError = busError("")
