// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package onewirebbtest is meant to be used to test the bit-banged 1-wire
// master and drivers on top of it without hardware.
//
// Sim is both the Line and the Clock of a onewirebb.Bus. Time only advances
// when the master delays, so every transition lands at an exact, repeatable
// point in virtual time.
package onewirebbtest

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	minReset    = 480 * time.Microsecond
	write1Max   = 15 * time.Microsecond
	holdReadBit = 30 * time.Microsecond
)

// Transition is a change of the level driven by the master.
type Transition struct {
	At    time.Duration
	Level gpio.Level
}

// Sim simulates a single DS18B20 on a 1-wire data line.
//
// The device decodes the master's write slots by the width of the low pulse,
// answers reset pulses with a presence pulse and answers skip ROM followed by
// convert T or read scratchpad.
//
// Use New to get a Sim with a device that answers like real hardware.
type Sim struct {
	// Present is false to simulate an empty bus.
	Present bool
	// PresenceDelay is the time between the end of the reset pulse and the
	// start of the presence pulse.
	PresenceDelay time.Duration
	// PresenceWidth is the duration of the presence pulse.
	PresenceWidth time.Duration
	// Loopback makes the device send back every byte it receives in the next
	// read slots instead of interpreting commands.
	Loopback bool
	// Scratchpad is sent in answer to read scratchpad.
	Scratchpad [9]byte

	// Transitions lists every level change driven by the master.
	Transitions []Transition
	// Resets counts the reset pulses.
	Resets int
	// Written lists the bytes decoded from the master's write slots, whether
	// or not a device is present. Read slots are never part of it.
	Written []byte
	// ReadSlots counts the read slots of the master.
	ReadSlots int
	// Conversions counts the convert T commands the device executed.
	Conversions int

	now          time.Duration
	low          bool
	fell         time.Duration
	presenceFrom time.Duration
	presenceTo   time.Duration
	holdUntil    time.Duration
	readSlot     bool
	pending      bool
	rxBits       int
	rx           byte
	tx           []byte
	selected     bool
	waitReset    bool
}

// New returns a Sim with a present device whose scratchpad holds raw.
func New(raw uint16) *Sim {
	s := &Sim{
		Present:       true,
		PresenceDelay: 30 * time.Microsecond,
		PresenceWidth: 120 * time.Microsecond,
	}
	// Power-on defaults of the other registers, 12 bit resolution.
	s.Scratchpad = [9]byte{byte(raw), byte(raw >> 8), 0x4b, 0x46, 0x7f, 0xff, 0x0c, 0x10, 0x00}
	return s
}

func (s *Sim) String() string {
	return "sim"
}

// Now returns the virtual time.
func (s *Sim) Now() time.Duration {
	return s.now
}

// Delay advances the virtual time.
func (s *Sim) Delay(d time.Duration) {
	s.now += d
	// The master samples a read slot within 15µs of the falling edge.
	if s.pending && s.now-s.fell >= write1Max {
		s.commit()
	}
}

// DriveLow is called by the master to pull the line low.
func (s *Sim) DriveLow() error {
	if s.low {
		return nil
	}
	s.commit()
	s.low = true
	s.fell = s.now
	s.Transitions = append(s.Transitions, Transition{At: s.now, Level: gpio.Low})
	s.readSlot = len(s.tx) != 0
	if s.readSlot {
		s.ReadSlots++
		bit := s.tx[0]
		s.tx = s.tx[1:]
		if bit == 0 {
			s.holdUntil = s.now + holdReadBit
		}
	}
	return nil
}

// Release is called by the master to let the line float high.
func (s *Sim) Release() error {
	if !s.low {
		return nil
	}
	s.low = false
	s.Transitions = append(s.Transitions, Transition{At: s.now, Level: gpio.High})
	switch w := s.now - s.fell; {
	case w >= minReset:
		s.reset()
	case s.readSlot:
	case w < write1Max:
		// A write 1 slot and a read slot look the same until the master
		// samples the line or the sampling window has passed.
		s.pending = true
	default:
		s.receive(false)
	}
	return nil
}

// Sample returns the level of the line.
func (s *Sim) Sample() bool {
	if s.pending && !s.low {
		s.pending = false
		s.ReadSlots++
	}
	switch {
	case s.low:
		return false
	case s.now >= s.presenceFrom && s.now < s.presenceTo:
		return false
	case s.now < s.holdUntil:
		return false
	}
	return true
}

// LowPulses returns the duration of every low pulse the master drove.
func (s *Sim) LowPulses() []time.Duration {
	var out []time.Duration
	for i := 0; i+1 < len(s.Transitions); i++ {
		if s.Transitions[i].Level == gpio.Low && s.Transitions[i+1].Level == gpio.High {
			out = append(out, s.Transitions[i+1].At-s.Transitions[i].At)
		}
	}
	return out
}

//

func (s *Sim) reset() {
	s.Resets++
	s.tx = nil
	s.rx = 0
	s.rxBits = 0
	s.holdUntil = 0
	s.pending = false
	s.selected = false
	s.waitReset = false
	s.presenceFrom, s.presenceTo = 0, 0
	if s.Present {
		s.presenceFrom = s.now + s.PresenceDelay
		s.presenceTo = s.presenceFrom + s.PresenceWidth
	}
}

func (s *Sim) commit() {
	if s.pending {
		s.pending = false
		s.receive(true)
	}
}

func (s *Sim) receive(one bool) {
	s.rx >>= 1
	if one {
		s.rx |= 0x80
	}
	if s.rxBits++; s.rxBits != 8 {
		return
	}
	b := s.rx
	s.rx, s.rxBits = 0, 0
	s.Written = append(s.Written, b)
	if !s.Present {
		return
	}
	if s.Loopback {
		s.send(b)
		return
	}
	s.command(b)
}

func (s *Sim) command(b byte) {
	if s.waitReset {
		return
	}
	if !s.selected {
		// Skip ROM; anything else leaves the device waiting for the next reset.
		s.selected = b == 0xcc
		s.waitReset = !s.selected
		return
	}
	switch b {
	case 0x44:
		s.Conversions++
	case 0xbe:
		for _, v := range s.Scratchpad {
			s.send(v)
		}
	}
	s.selected = false
	s.waitReset = true
}

func (s *Sim) send(b byte) {
	for i := 0; i < 8; i++ {
		s.tx = append(s.tx, (b>>uint(i))&1)
	}
}
