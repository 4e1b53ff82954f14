// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gauge presents a temperature reading on a terminal or a display.
//
// Render returns an image.Image that can be passed to any display.Drawer, for
// example an ssd1306 or a waveshare e-paper panel, or encoded as a PNG.
package gauge

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/maruel/ansi256"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/physic"
)

// Rated range of the DS18B20, the ends of the color scale.
const (
	Min = -55*physic.Celsius + physic.ZeroCelsius
	Max = 125*physic.Celsius + physic.ZeroCelsius
)

// Opts contains the options of Render.
type Opts struct {
	W, H     int
	FontSize float64 // points
}

// DefaultOpts fits a 2.13" e-paper panel in landscape.
var DefaultOpts = Opts{W: 250, H: 122, FontSize: 36}

// Format returns t in °C with two decimals.
func Format(t physic.Temperature) string {
	return fmt.Sprintf("%.2f°C", t.Celsius())
}

// Color maps t on a blue, green, red scale over the rated range.
func Color(t physic.Temperature) color.NRGBA {
	f := fraction(t)
	if f < 0.5 {
		g := uint8(f * 2 * 255)
		return color.NRGBA{G: g, B: 255 - g, A: 255}
	}
	r := uint8((f - 0.5) * 2 * 255)
	return color.NRGBA{R: r, G: 255 - r, A: 255}
}

// Block returns an ANSI escaped block colored by Color.
//
// p may be nil, in which case ansi256.Default is used.
func Block(t physic.Temperature, p *ansi256.Palette) string {
	if p == nil {
		p = ansi256.Default
	}
	return p.Block(Color(t))
}

// Render draws t as text over a bar filled in proportion to the rated range.
//
// opts may be nil, in which case DefaultOpts is used.
func Render(t physic.Temperature, opts *Opts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.W <= 0 || opts.H <= 0 || opts.FontSize <= 0 {
		return nil, errors.New("gauge: invalid options")
	}
	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	w, h := float64(opts.W), float64(opts.H)
	barH := h / 4

	dc := gg.NewContext(opts.W, opts.H)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	c := Color(t)
	dc.SetRGB255(int(c.R), int(c.G), int(c.B))
	dc.DrawRectangle(0, h-barH, fraction(t)*w, barH)
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: opts.FontSize}))
	dc.DrawStringAnchored(Format(t), w/2, (h-barH)/2, 0.5, 0.5)
	return dc.Image(), nil
}

//

var (
	fontOnce sync.Once
	fontGo   *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontGo, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontGo, fontErr
}

// fraction returns where t falls in the rated range, clamped to [0, 1].
func fraction(t physic.Temperature) float64 {
	switch {
	case t <= Min:
		return 0
	case t >= Max:
		return 1
	}
	return float64(t-Min) / float64(Max-Min)
}
