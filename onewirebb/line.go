// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebb

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Line is the data line of the bus.
//
// The line idles high through a pull-up resistor. Both master and device can
// only pull it low.
type Line interface {
	String() string
	// DriveLow pulls the line low.
	DriveLow() error
	// Release stops driving the line so it floats back high.
	Release() error
	// Sample returns true if the line is high.
	Sample() bool
}

// Powerer is implemented by a Line that can actively drive the line high, to
// supply a parasitic powered device while it converts.
type Powerer interface {
	DriveHigh() error
}

// Clock provides the delays between line transitions.
type Clock interface {
	// Delay blocks for d. It must not return early.
	Delay(d time.Duration)
}

// BusyWait is a Clock that spins on the monotonic clock.
//
// It never yields to the scheduler: time.Sleep overshoots microsecond delays
// by an order of magnitude.
type BusyWait struct{}

// Delay implements Clock.
func (BusyWait) Delay(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// PinLine is a Line on a GPIO pin.
//
// Release switches the pin to input instead of outputting high so a push-pull
// pin behaves as open drain.
type PinLine struct {
	P    gpio.PinIO
	Pull gpio.Pull // pull applied while released; gpio.Float with an external resistor
}

// NewPinLine returns a PinLine using the internal pull-up of p.
//
// The internal pull-up is weak; prefer a 4.7kΩ external resistor and set Pull
// to gpio.Float.
func NewPinLine(p gpio.PinIO) (*PinLine, error) {
	if p == nil {
		return nil, errors.New("onewirebb: pin is required")
	}
	return &PinLine{P: p, Pull: gpio.PullUp}, nil
}

func (p *PinLine) String() string {
	return p.P.String()
}

// DriveLow implements Line.
func (p *PinLine) DriveLow() error {
	if err := p.P.Out(gpio.Low); err != nil {
		return fmt.Errorf("%s: %w", p.P, err)
	}
	return nil
}

// Release implements Line.
func (p *PinLine) Release() error {
	if err := p.P.In(p.Pull, gpio.NoEdge); err != nil {
		return fmt.Errorf("%s: %w", p.P, err)
	}
	return nil
}

// Sample implements Line.
func (p *PinLine) Sample() bool {
	return p.P.Read() == gpio.High
}

// DriveHigh implements Powerer.
func (p *PinLine) DriveHigh() error {
	if err := p.P.Out(gpio.High); err != nil {
		return fmt.Errorf("%s: %w", p.P, err)
	}
	return nil
}

var _ Line = &PinLine{}
var _ Powerer = &PinLine{}
