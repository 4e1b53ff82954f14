// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebb

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/onewire"
)

// ErrNoPresence matches every *PresenceError with errors.Is.
var ErrNoPresence = errors.New("onewirebb: no device present")

// PresenceStage tells which wait of the presence detection expired.
type PresenceStage int

const (
	// NoPulse means the line never went low after the reset pulse.
	NoPulse PresenceStage = iota
	// StuckLow means the line went low but did not come back high.
	StuckLow
)

func (s PresenceStage) String() string {
	switch s {
	case NoPulse:
		return "NoPulse"
	case StuckLow:
		return "StuckLow"
	default:
		return "unknown"
	}
}

// PresenceError is returned when no device answered a reset pulse.
//
// It implements onewire.BusError.
type PresenceError struct {
	Stage  PresenceStage
	Waited time.Duration
}

func (e *PresenceError) Error() string {
	if e.Stage == StuckLow {
		return fmt.Sprintf("onewirebb: no device present (line still low after %s)", e.Waited)
	}
	return fmt.Sprintf("onewirebb: no device present (no presence pulse within %s)", e.Waited)
}

// BusError implements onewire.BusError.
func (e *PresenceError) BusError() bool { return true }

// Is returns true for ErrNoPresence.
func (e *PresenceError) Is(target error) bool { return target == ErrNoPresence }

var _ onewire.BusError = &PresenceError{}
