// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebb

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/onewire"
)

func TestNewPinLine_fail(t *testing.T) {
	if l, err := NewPinLine(nil); l != nil || err == nil {
		t.Fatal("pin is required")
	}
}

func TestPinLine(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO4", Num: 4}
	l, err := NewPinLine(p)
	if err != nil {
		t.Fatal(err)
	}
	if l.String() != p.String() {
		t.Fatalf("expected %q, got %q", p.String(), l.String())
	}
	if err := l.DriveLow(); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.Low {
		t.Fatal("expected the pin to be driven low")
	}
	if l.Sample() {
		t.Fatal("expected to sample low")
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if p.P != gpio.PullUp {
		t.Fatalf("expected the pin to be an input with pull-up, got %s", p.P)
	}
	p.L = gpio.High
	if !l.Sample() {
		t.Fatal("expected to sample high")
	}
	if err := l.DriveHigh(); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.High {
		t.Fatal("expected the pin to be driven high")
	}
}

func TestPinLine_externalPullup(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO17", Num: 17}
	l := &PinLine{P: p, Pull: gpio.Float}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if p.P != gpio.Float {
		t.Fatalf("expected a floating input, got %s", p.P)
	}
}

func TestTx_strongPullup(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO4", Num: 4}
	l, err := NewPinLine(p)
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOpts
	opts.IgnorePresence = true
	b, err := New(l, nopClock{}, &opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Tx([]byte{0xcc, 0x44}, nil, onewire.StrongPullup); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.High {
		t.Fatal("expected the line to be driven high after the conversion command")
	}
}
