// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18b20_test

import (
	"fmt"
	"log"
	"runtime"

	"github.com/GermanBionicSystems/thermowire/ds18b20"
	"github.com/GermanBionicSystems/thermowire/onewirebb"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	p := gpioreg.ByName("GPIO4")
	if p == nil {
		log.Fatal("failed to find GPIO4")
	}
	l, err := onewirebb.NewPinLine(p)
	if err != nil {
		log.Fatal(err)
	}
	bus, err := onewirebb.New(l, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Halt()

	// Slot timings break if the goroutine migrates mid-transaction.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := bus.Init(); err != nil {
		log.Fatal(err)
	}
	dev, err := ds18b20.New(bus, nil)
	if err != nil {
		log.Fatal(err)
	}
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: %s\n", dev, e.Temperature)
}
