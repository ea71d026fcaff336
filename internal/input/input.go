/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package input defines the pointer and keyboard contract between UI
// toolkits and editing tools, and the dispatcher routing between them.
package input

import (
	"math"

	"mapedit/internal/geometry"
)

// Pixel is a screen-space position; y grows downwards.
type Pixel struct{ X, Y float64 }

func (p Pixel) Add(dx, dy float64) Pixel { return Pixel{p.X + dx, p.Y + dy} }

// Projection converts screen pixels into map coordinates.
type Projection func(Pixel) geometry.Pt

// Identity maps pixels 1:1 onto map units without flipping y.
func Identity(p Pixel) geometry.Pt { return geometry.Pt{X: p.X, Y: p.Y} }

// Tolerance converts a pixel tolerance into map units at px.
func Tolerance(proj Projection, px Pixel, pixels float64) float64 {
	if proj == nil {
		proj = Identity
	}
	return proj(px).Dist(proj(px.Add(pixels, 0)))
}

// Viewport is a north-up linear projection. Origin is the map coordinate
// under the top-left pixel and Resolution the map units per pixel.
type Viewport struct {
	Origin     geometry.Pt
	Resolution float64
	Width      int
	Height     int
}

// Fit returns a viewport showing r inside w x h pixels with margin pixels
// on each side.
func Fit(r geometry.Rect, w, h int, margin float64) Viewport {
	aw := math.Max(1, float64(w)-2*margin)
	ah := math.Max(1, float64(h)-2*margin)
	res := math.Max(r.W/aw, r.H/ah)
	if res <= 0 {
		res = 1
	}
	c := r.Center()
	return Viewport{
		Origin:     geometry.Pt{X: c.X - res*float64(w)/2, Y: c.Y + res*float64(h)/2},
		Resolution: res,
		Width:      w,
		Height:     h,
	}
}

func (v Viewport) ToMap(p Pixel) geometry.Pt {
	return geometry.Pt{X: v.Origin.X + p.X*v.Resolution, Y: v.Origin.Y - p.Y*v.Resolution}
}

func (v Viewport) ToPixel(p geometry.Pt) Pixel {
	if v.Resolution == 0 {
		return Pixel{}
	}
	return Pixel{X: (p.X - v.Origin.X) / v.Resolution, Y: (v.Origin.Y - p.Y) / v.Resolution}
}

// Projection returns ToMap as a Projection.
func (v Viewport) Projection() Projection { return v.ToMap }

// PointerHandler receives a drag gesture. Each method reports whether the
// event was consumed.
type PointerHandler interface {
	OnPointerDown(px Pixel) bool
	OnPointerMove(px Pixel) bool
	OnPointerUp(px Pixel) bool
}

// KeyHandler receives key-down events. Codes are DOM style key codes.
type KeyHandler interface {
	OnKeyDown(code int) bool
}

// Common key codes.
const (
	KeyBackspace = 8
	KeyEscape    = 27
	KeyDelete    = 46
	KeyD         = 68
	KeyY         = 89
	KeyZ         = 90
)
