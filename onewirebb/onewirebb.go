// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package onewirebb implements a 1-wire bus master by bit-banging a single
// open-drain data line.
//
// Every operation is a sequence of line transitions whose correctness depends
// on the delays between them, so the calling goroutine must not be descheduled
// during a transaction. Lock it to its OS thread with runtime.LockOSThread and
// keep the bus away from other work while it is in use.
//
// Only a single device is supported. It is always selected with skip ROM and
// Search is not implemented.
//
// Datasheet
//
// https://www.analog.com/media/en/technical-documentation/tech-articles/guide-to-1wire-communication.pdf
package onewirebb

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
)

// Opts contains the protocol timings and options to pass to the constructor.
type Opts struct {
	ResetLow        time.Duration // reset pulse width, at least 480µs
	ResetRecovery   time.Duration // wait after releasing the reset pulse
	PresenceWait    time.Duration // max wait for the presence pulse to start
	PresenceRelease time.Duration // max wait for the presence pulse to end
	PollInterval    time.Duration // presence polling granularity

	ReadLow      time.Duration // low time that opens a read slot
	ReadSample   time.Duration // wait between release and sampling
	ReadRecovery time.Duration // remainder of the read slot

	Write1Low      time.Duration // low time of a 1 slot
	Write1Recovery time.Duration // high time of a 1 slot
	Write0Low      time.Duration // low time of a 0 slot
	Write0Recovery time.Duration // high time of a 0 slot

	// IgnorePresence makes Tx send its bytes even when no device answered the
	// reset pulse. The presence error is then discarded.
	IgnorePresence bool
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	ResetLow:        750 * time.Microsecond,
	ResetRecovery:   15 * time.Microsecond,
	PresenceWait:    200 * time.Microsecond,
	PresenceRelease: 240 * time.Microsecond,
	PollInterval:    time.Microsecond,
	ReadLow:         2 * time.Microsecond,
	ReadSample:      12 * time.Microsecond,
	ReadRecovery:    50 * time.Microsecond,
	Write1Low:       2 * time.Microsecond,
	Write1Recovery:  60 * time.Microsecond,
	Write0Low:       60 * time.Microsecond,
	Write0Recovery:  2 * time.Microsecond,
}

// New returns a 1-wire bus master driving l and timed by c.
//
// c may be nil, in which case BusyWait is used. opts may be nil, in which case
// DefaultOpts is used.
func New(l Line, c Clock, opts *Opts) (*Bus, error) {
	if l == nil {
		return nil, errors.New("onewirebb: line is required")
	}
	if c == nil {
		c = BusyWait{}
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Bus{line: l, clock: c, opts: *opts}, nil
}

// Bus is a bit-banged 1-wire master. It implements onewire.Bus.
//
// The bit and byte primitives are not synchronized; the caller owns the line
// for their duration. Tx holds the bus lock for a whole transaction.
type Bus struct {
	mu    sync.Mutex
	line  Line
	clock Clock
	opts  Opts
}

func (b *Bus) String() string {
	return "onewirebb{" + b.line.String() + "}"
}

// Halt implements conn.Resource.
//
// It releases the line.
func (b *Bus) Halt() error {
	return b.release()
}

// Init releases the line, then resets the bus and probes for a device.
//
// It returns nil when a device answered with a presence pulse.
func (b *Bus) Init() error {
	if err := b.release(); err != nil {
		return err
	}
	if err := b.Reset(); err != nil {
		return err
	}
	return b.CheckPresence()
}

// Reset sends the reset pulse: the line is held low for ResetLow, released and
// left alone for ResetRecovery.
func (b *Bus) Reset() error {
	if err := b.low(); err != nil {
		return err
	}
	b.clock.Delay(b.opts.ResetLow)
	if err := b.release(); err != nil {
		return err
	}
	b.clock.Delay(b.opts.ResetRecovery)
	return nil
}

// CheckPresence polls for the presence pulse following a reset.
//
// The line must go low within PresenceWait and return high within
// PresenceRelease after that. Otherwise a *PresenceError is returned.
func (b *Bus) CheckPresence() error {
	polls := int(b.opts.PresenceWait / b.opts.PollInterval)
	n := 0
	for b.line.Sample() && n < polls {
		n++
		b.clock.Delay(b.opts.PollInterval)
	}
	if n >= polls {
		return &PresenceError{Stage: NoPulse, Waited: time.Duration(n) * b.opts.PollInterval}
	}

	polls = int(b.opts.PresenceRelease / b.opts.PollInterval)
	n = 0
	for !b.line.Sample() && n < polls {
		n++
		b.clock.Delay(b.opts.PollInterval)
	}
	if n >= polls {
		return &PresenceError{Stage: StuckLow, Waited: time.Duration(n) * b.opts.PollInterval}
	}
	return nil
}

// ReadBit runs one read slot and returns the bit the device sent, 0 or 1.
func (b *Bus) ReadBit() (byte, error) {
	if err := b.low(); err != nil {
		return 0, err
	}
	b.clock.Delay(b.opts.ReadLow)
	if err := b.release(); err != nil {
		return 0, err
	}
	b.clock.Delay(b.opts.ReadSample)
	var bit byte
	if b.line.Sample() {
		bit = 1
	}
	b.clock.Delay(b.opts.ReadRecovery)
	return bit, nil
}

// ReadByte reads 8 bits, least significant bit first.
func (b *Bus) ReadByte() (byte, error) {
	var v byte
	for i := 0; i < 8; i++ {
		bit, err := b.ReadBit()
		if err != nil {
			return 0, err
		}
		v = bit<<7 | v>>1
	}
	return v, nil
}

// WriteBit writes the least significant bit of bit in one time slot.
//
// A 1 is a short low pulse followed by a long release, a 0 is a long low
// pulse followed by a short release.
func (b *Bus) WriteBit(bit byte) error {
	lowFor, highFor := b.opts.Write0Low, b.opts.Write0Recovery
	if bit&1 != 0 {
		lowFor, highFor = b.opts.Write1Low, b.opts.Write1Recovery
	}
	if err := b.low(); err != nil {
		return err
	}
	b.clock.Delay(lowFor)
	if err := b.release(); err != nil {
		return err
	}
	b.clock.Delay(highFor)
	return nil
}

// WriteByte writes v, least significant bit first.
func (b *Bus) WriteByte(v byte) error {
	for i := 0; i < 8; i++ {
		if err := b.WriteBit(v); err != nil {
			return err
		}
		v >>= 1
	}
	return nil
}

// Tx implements onewire.Bus.
//
// It resets the bus, checks for presence, writes w, then reads len(r) bytes.
// With onewire.StrongPullup the line is driven high at the end if it
// implements Powerer, to power a parasitic device during a conversion.
//
// Unless IgnorePresence is set, a missing presence pulse aborts the
// transaction before any byte is sent and the *PresenceError is returned.
func (b *Bus) Tx(w, r []byte, power onewire.Pullup) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.Reset(); err != nil {
		return err
	}
	if err := b.CheckPresence(); err != nil && !b.opts.IgnorePresence {
		return err
	}
	for _, v := range w {
		if err := b.WriteByte(v); err != nil {
			return err
		}
	}
	for i := range r {
		v, err := b.ReadByte()
		if err != nil {
			return err
		}
		r[i] = v
	}
	if power == onewire.StrongPullup {
		if p, ok := b.line.(Powerer); ok {
			if err := p.DriveHigh(); err != nil {
				return fmt.Errorf("onewirebb: strong pull-up: %w", err)
			}
		}
	}
	return nil
}

// Search implements onewire.Bus.
//
// It is not supported: the single device on the bus is addressed with skip
// ROM.
func (b *Bus) Search(alarmOnly bool) ([]onewire.Address, error) {
	return nil, errors.New("onewirebb: search is not supported")
}

//

func (b *Bus) low() error {
	if err := b.line.DriveLow(); err != nil {
		return fmt.Errorf("onewirebb: drive low: %w", err)
	}
	return nil
}

func (b *Bus) release() error {
	if err := b.line.Release(); err != nil {
		return fmt.Errorf("onewirebb: release: %w", err)
	}
	return nil
}

func (o *Opts) validate() error {
	for _, d := range []time.Duration{
		o.ResetLow, o.ResetRecovery, o.PresenceWait, o.PresenceRelease, o.PollInterval,
		o.ReadLow, o.ReadSample, o.ReadRecovery,
		o.Write1Low, o.Write1Recovery, o.Write0Low, o.Write0Recovery,
	} {
		if d <= 0 {
			return errors.New("onewirebb: timings must be positive")
		}
	}
	if o.ResetLow < 480*time.Microsecond {
		return errors.New("onewirebb: ResetLow must be at least 480µs")
	}
	if o.PollInterval > o.PresenceWait || o.PollInterval > o.PresenceRelease {
		return errors.New("onewirebb: PollInterval exceeds the presence timeouts")
	}
	// The device holds a 0 for at least 15µs after the falling edge.
	if o.ReadLow+o.ReadSample >= 15*time.Microsecond {
		return errors.New("onewirebb: read sample point is past the 15µs window")
	}
	return nil
}

var _ conn.Resource = &Bus{}
var _ onewire.Bus = &Bus{}
