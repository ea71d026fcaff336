/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package shapes builds predefined (parametric) shapes and keeps their
// parameters in step with edits made through the edit controller.
package shapes

import (
	"math"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

type Kind string

const (
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rectangle"
	KindPolygon   Kind = "polygon"
)

// DefaultSegments is the number of ring points used to draw a circle.
const DefaultSegments = 40

// Params describe a predefined shape. Angle is in degrees, counter
// clockwise.
type Params struct {
	Kind   Kind
	Center geometry.Pt
	// Radius for circles and regular polygons.
	Radius float64
	// Width and Height for rectangles.
	Width, Height float64
	// Sides for regular polygons, segments for circles.
	Sides int
	Angle float64
}

// Build returns the polygon described by p.
func Build(p Params) *geometry.Composite {
	var pts []geometry.Pt
	switch p.Kind {
	case KindRectangle:
		hw, hh := p.Width/2, p.Height/2
		pts = []geometry.Pt{
			{X: p.Center.X - hw, Y: p.Center.Y - hh},
			{X: p.Center.X + hw, Y: p.Center.Y - hh},
			{X: p.Center.X + hw, Y: p.Center.Y + hh},
			{X: p.Center.X - hw, Y: p.Center.Y + hh},
		}
	default:
		n := p.Sides
		if n < 3 {
			n = DefaultSegments
		}
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			pts = append(pts, geometry.Pt{X: p.Center.X + p.Radius*math.Cos(a), Y: p.Center.Y + p.Radius*math.Sin(a)})
		}
	}
	ring := geometry.NewLinearRing(pts...)
	if p.Angle != 0 {
		ring.Rotate(p.Angle, p.Center)
	}
	return geometry.NewPolygon(ring)
}

func newShape(p Params, attrs map[string]any) *feature.Feature {
	f := feature.New(Build(p), attrs)
	f.Shape = &p
	return f
}

// NewCircle approximates a circle with segments ring points (DefaultSegments
// when segments < 3).
func NewCircle(center geometry.Pt, radius float64, segments int, attrs map[string]any) *feature.Feature {
	return newShape(Params{Kind: KindCircle, Center: center, Radius: radius, Sides: segments}, attrs)
}

func NewRectangle(center geometry.Pt, width, height, angle float64, attrs map[string]any) *feature.Feature {
	return newShape(Params{Kind: KindRectangle, Center: center, Width: width, Height: height, Angle: angle}, attrs)
}

func NewRegularPolygon(center geometry.Pt, radius float64, sides int, angle float64, attrs map[string]any) *feature.Feature {
	if sides < 3 {
		sides = 3
	}
	return newShape(Params{Kind: KindPolygon, Center: center, Radius: radius, Sides: sides, Angle: angle}, attrs)
}

// ParamsOf returns the shape parameters of f.
func ParamsOf(f *feature.Feature) (*Params, bool) {
	if f == nil {
		return nil, false
	}
	p, ok := f.Shape.(*Params)
	return p, ok
}

// Area is the exact area of the ideal shape (not of its ring).
func (p Params) Area() float64 {
	switch p.Kind {
	case KindCircle:
		return math.Pi * p.Radius * p.Radius
	case KindRectangle:
		return p.Width * p.Height
	case KindPolygon:
		n := float64(p.Sides)
		return n * p.Radius * p.Radius * math.Sin(2*math.Pi/n) / 2
	}
	return 0
}
