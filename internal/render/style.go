/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image/color"

	"mapedit/internal/feature"
)

// Styles and paint definitions.

// Color is non-premultiplied.
type Color struct{ R, G, B, A uint8 }

func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// RGBA returns the premultiplied form.
func (c Color) RGBA() color.RGBA { return color.RGBAModel.Convert(c.NRGBA()).(color.RGBA) }

// IsZero reports an unset color.
func (c Color) IsZero() bool { return c == Color{} }

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
)

type Fill struct {
	Color   Color
	Enabled bool
}

type Stroke struct {
	Color   Color
	Width   float32
	Enabled bool
}

// Style is the paint used for one feature. PointSize is the marker edge
// length in pixels for point geometry.
type Style struct {
	Fill      Fill
	Stroke    Stroke
	PointSize float32
	// Square draws point markers as squares instead of discs.
	Square bool
}

// Theme maps render intents to styles.
type Theme map[feature.Intent]Style

// DefaultTheme follows the usual editing look: blue features, an orange
// selection, square vertex markers and translucent virtual vertices.
func DefaultTheme() Theme {
	blue := Color{0, 102, 204, 255}
	orange := Color{255, 140, 0, 255}
	return Theme{
		feature.IntentDefault: {
			Fill:      Fill{Color: Color{0, 102, 204, 64}, Enabled: true},
			Stroke:    Stroke{Color: blue, Width: 2, Enabled: true},
			PointSize: 8,
		},
		feature.IntentSelect: {
			Fill:      Fill{Color: Color{255, 140, 0, 64}, Enabled: true},
			Stroke:    Stroke{Color: orange, Width: 3, Enabled: true},
			PointSize: 10,
		},
		feature.IntentVertex: {
			Fill:      Fill{Color: White, Enabled: true},
			Stroke:    Stroke{Color: orange, Width: 1, Enabled: true},
			PointSize: 8,
			Square:    true,
		},
		feature.IntentVirtual: {
			Fill:      Fill{Color: Color{255, 255, 255, 128}, Enabled: true},
			Stroke:    Stroke{Color: Color{255, 140, 0, 128}, Width: 1, Enabled: true},
			PointSize: 6,
			Square:    true,
		},
		feature.IntentHandle: {
			Fill:      Fill{Color: Color{220, 20, 60, 255}, Enabled: true},
			Stroke:    Stroke{Color: Black, Width: 1, Enabled: true},
			PointSize: 10,
		},
		feature.IntentDelete: {
			Stroke:    Stroke{Color: Color{220, 20, 60, 255}, Width: 2, Enabled: true},
			PointSize: 8,
		},
	}
}

// For returns the style of f, falling back to the default intent.
func (t Theme) For(f *feature.Feature) Style {
	if s, ok := t[f.Intent]; ok {
		return s
	}
	return t[feature.IntentDefault]
}
