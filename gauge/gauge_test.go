// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gauge

import (
	"image"
	"image/color"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestColor(t *testing.T) {
	var testData = []struct {
		t        physic.Temperature
		expected color.NRGBA
	}{
		{Min, color.NRGBA{B: 255, A: 255}},
		{Min - 10*physic.Celsius, color.NRGBA{B: 255, A: 255}},
		{35*physic.Celsius + physic.ZeroCelsius, color.NRGBA{R: 0, G: 255, A: 255}},
		{Max, color.NRGBA{R: 255, A: 255}},
		{Max + 10*physic.Celsius, color.NRGBA{R: 255, A: 255}},
	}
	for _, entry := range testData {
		t.Run(entry.t.String(), func(t *testing.T) {
			if c := Color(entry.t); c != entry.expected {
				t.Fatalf("expected %v, got %v", entry.expected, c)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if s := Format(25*physic.Celsius + physic.ZeroCelsius + physic.Kelvin/4); s != "25.25°C" {
		t.Fatal(s)
	}
	if s := Format(-55*physic.Celsius + physic.ZeroCelsius); s != "-55.00°C" {
		t.Fatal(s)
	}
}

func TestBlock(t *testing.T) {
	cold, hot := Block(Min, nil), Block(Max, nil)
	if cold == "" || hot == "" {
		t.Fatal("expected escaped blocks")
	}
	if cold == hot {
		t.Fatalf("expected different colors, got %q", cold)
	}
}

func TestRender(t *testing.T) {
	img, err := Render(Max, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b != image.Rect(0, 0, DefaultOpts.W, DefaultOpts.H) {
		t.Fatalf("unexpected bounds %v", b)
	}
	// The bar spans the whole width at the top of the range.
	r, g, b, _ := img.At(DefaultOpts.W-2, DefaultOpts.H-2).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Fatalf("expected a red bar, got %d,%d,%d", r>>8, g>>8, b>>8)
	}

	img, err = Render(Min, &Opts{W: 64, H: 32, FontSize: 12})
	if err != nil {
		t.Fatal(err)
	}
	// Empty bar at the bottom of the range.
	r, g, b, _ = img.At(1, 30).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("expected the background, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestRender_fail(t *testing.T) {
	if _, err := Render(Max, &Opts{W: 0, H: 10, FontSize: 10}); err == nil {
		t.Fatal("invalid size")
	}
}
