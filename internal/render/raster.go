/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render draws feature layers to raster images and PDF.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
)

// Options controls rasterization. Zero values pick defaults.
type Options struct {
	Background Color
	Theme      Theme
	// LabelKey names the attribute drawn next to features; empty disables labels.
	LabelKey string
}

// Raster draws fs in order (last on top) through view.
func Raster(fs []*feature.Feature, view input.Viewport, opt Options) *image.RGBA {
	w, h := max(view.Width, 1), max(view.Height, 1)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := opt.Background
	if bg.IsZero() {
		bg = White
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg.NRGBA()}, image.Point{}, draw.Src)
	theme := opt.Theme
	if theme == nil {
		theme = DefaultTheme()
	}
	for _, f := range fs {
		if f == nil || f.Geometry == nil || f.Destroyed() {
			continue
		}
		drawGeometry(img, f.Geometry, view, theme.For(f))
		if opt.LabelKey != "" && !f.Sketch {
			if s, ok := f.Attributes[opt.LabelKey].(string); ok && s != "" {
				drawLabel(img, s, view.ToPixel(f.Geometry.Bounds().Center()))
			}
		}
	}
	return img
}

func drawGeometry(img *image.RGBA, g geometry.Geometry, view input.Viewport, st Style) {
	switch v := g.(type) {
	case *geometry.Point:
		drawMarker(img, view.ToPixel(v.Pt()), st)
	case *geometry.Composite:
		switch v.Kind() {
		case geometry.KindMultiPoint:
			for _, p := range geometry.Points(v) {
				drawMarker(img, view.ToPixel(p.Pt()), st)
			}
		case geometry.KindLineString, geometry.KindLinearRing:
			line := pixels(v, view)
			strokePath(img, line, v.Closed(), st.Stroke)
		case geometry.KindPolygon:
			var rings [][]input.Pixel
			for _, r := range v.Components() {
				rings = append(rings, pixels(r.(*geometry.Composite), view))
			}
			fillRings(img, rings, st.Fill)
			for _, r := range rings {
				strokePath(img, r, true, st.Stroke)
			}
		default:
			for _, ch := range v.Components() {
				drawGeometry(img, ch, view, st)
			}
		}
	}
}

func pixels(c *geometry.Composite, view input.Viewport) []input.Pixel {
	out := make([]input.Pixel, 0, c.Len())
	for _, p := range geometry.Points(c) {
		out = append(out, view.ToPixel(p.Pt()))
	}
	return out
}

func newRasterizer(img *image.RGBA) *vector.Rasterizer {
	b := img.Bounds()
	return vector.NewRasterizer(b.Dx(), b.Dy())
}

func paint(img *image.RGBA, r *vector.Rasterizer, c Color) {
	r.DrawOp = draw.Over
	r.Draw(img, img.Bounds(), image.NewUniform(c.NRGBA()), image.Point{})
}

// fillRings fills the first ring and cuts out the others. Coverage cancels
// where windings oppose, so holes are wound against the exterior.
func fillRings(img *image.RGBA, rings [][]input.Pixel, fill Fill) {
	if !fill.Enabled || len(rings) == 0 || len(rings[0]) < 3 {
		return
	}
	r := newRasterizer(img)
	outer := signedArea(rings[0]) > 0
	for i, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		ccw := signedArea(ring) > 0
		reverse := (i == 0) != (ccw == outer)
		addPath(r, ring, reverse)
	}
	paint(img, r, fill.Color)
}

func addPath(r *vector.Rasterizer, pts []input.Pixel, reverse bool) {
	n := len(pts)
	at := func(i int) input.Pixel {
		if reverse {
			return pts[n-1-i]
		}
		return pts[i]
	}
	p := at(0)
	r.MoveTo(float32(p.X), float32(p.Y))
	for i := 1; i < n; i++ {
		p = at(i)
		r.LineTo(float32(p.X), float32(p.Y))
	}
	r.ClosePath()
}

// strokePath fills one quad per edge; quads share a winding so overlaps
// saturate instead of cancelling.
func strokePath(img *image.RGBA, pts []input.Pixel, closed bool, st Stroke) {
	if !st.Enabled || len(pts) < 2 {
		return
	}
	hw := float64(max(st.Width, 1)) / 2
	r := newRasterizer(img)
	n := len(pts)
	last := n - 1
	if closed && n > 2 {
		last = n
	}
	for i := 0; i < last; i++ {
		a, b := pts[i], pts[(i+1)%n]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		addPath(r, []input.Pixel{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		}, false)
	}
	paint(img, r, st.Color)
}

func drawMarker(img *image.RGBA, c input.Pixel, st Style) {
	size := float64(st.PointSize)
	if size <= 0 {
		size = 6
	}
	var outline []input.Pixel
	if st.Square {
		h := size / 2
		outline = []input.Pixel{{X: c.X - h, Y: c.Y - h}, {X: c.X + h, Y: c.Y - h}, {X: c.X + h, Y: c.Y + h}, {X: c.X - h, Y: c.Y + h}}
	} else {
		const sides = 16
		for i := 0; i < sides; i++ {
			a := 2 * math.Pi * float64(i) / sides
			outline = append(outline, input.Pixel{X: c.X + size/2*math.Cos(a), Y: c.Y + size/2*math.Sin(a)})
		}
	}
	fillRings(img, [][]input.Pixel{outline}, st.Fill)
	strokePath(img, outline, true, st.Stroke)
}

func drawLabel(img *image.RGBA, s string, at input.Pixel) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	w := d.MeasureString(s)
	d.Dot = fixed.Point26_6{X: fixed.I(int(at.X)) - w/2, Y: fixed.I(int(at.Y) + 4)}
	d.DrawString(s)
}

func signedArea(pts []input.Pixel) float64 {
	var s float64
	n := len(pts)
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		s += p.X*q.Y - q.X*p.Y
	}
	return s / 2
}
