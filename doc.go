// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermowire reads a DS18B20 temperature sensor over a bit-banged
// 1-wire data line.
//
// The bus master lives in onewirebb, the device commands in ds18b20 and
// onewirebb/onewirebbtest simulates both ends of the line for tests.
package thermowire
