/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mapedit/internal/feature"
)

// Theme files are YAML maps from intent name to style. Missing intents and
// missing keys keep the default theme's values; colours are "#rrggbb" or
// "#rrggbbaa", and "none" disables a fill or stroke.
//
//	select:
//	  fill: "#ff8c0040"
//	  stroke: "#ff8c00"
//	  width: 3

type styleEntry struct {
	Fill      *string  `yaml:"fill,omitempty"`
	Stroke    *string  `yaml:"stroke,omitempty"`
	Width     *float32 `yaml:"width,omitempty"`
	PointSize *float32 `yaml:"point_size,omitempty"`
	Square    *bool    `yaml:"square,omitempty"`
}

var knownIntents = []feature.Intent{
	feature.IntentDefault, feature.IntentSelect, feature.IntentVertex,
	feature.IntentVirtual, feature.IntentHandle, feature.IntentDelete,
}

// LoadTheme reads a theme file over DefaultTheme.
func LoadTheme(r io.Reader) (Theme, error) {
	raw := map[string]styleEntry{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("render: theme: %w", err)
	}
	t := DefaultTheme()
	for name, e := range raw {
		in := feature.Intent(name)
		if !slices.Contains(knownIntents, in) {
			return nil, fmt.Errorf("render: theme: unknown intent %q", name)
		}
		st := t[in]
		if e.Fill != nil {
			c, on, err := parseColor(*e.Fill)
			if err != nil {
				return nil, fmt.Errorf("render: theme %s fill: %w", name, err)
			}
			st.Fill = Fill{Color: c, Enabled: on}
		}
		if e.Stroke != nil {
			c, on, err := parseColor(*e.Stroke)
			if err != nil {
				return nil, fmt.Errorf("render: theme %s stroke: %w", name, err)
			}
			st.Stroke.Color, st.Stroke.Enabled = c, on
		}
		if e.Width != nil {
			st.Stroke.Width = *e.Width
		}
		if e.PointSize != nil {
			st.PointSize = *e.PointSize
		}
		if e.Square != nil {
			st.Square = *e.Square
		}
		t[in] = st
	}
	return t, nil
}

// LoadThemeFile reads a theme from path.
func LoadThemeFile(path string) (Theme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadTheme(f)
}

// SaveTheme writes every style of t, e.g. to start a custom theme from the
// defaults.
func SaveTheme(w io.Writer, t Theme) error {
	out := map[string]styleEntry{}
	for in, st := range t {
		fill, stroke := "none", "none"
		if st.Fill.Enabled {
			fill = formatColor(st.Fill.Color)
		}
		if st.Stroke.Enabled {
			stroke = formatColor(st.Stroke.Color)
		}
		width, size, square := st.Stroke.Width, st.PointSize, st.Square
		out[string(in)] = styleEntry{Fill: &fill, Stroke: &stroke, Width: &width, PointSize: &size, Square: &square}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func parseColor(s string) (Color, bool, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "none" || s == "" {
		return Color{}, false, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, false, fmt.Errorf("bad colour %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, false, fmt.Errorf("bad colour %q", s)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true, nil
}

func formatColor(c Color) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
