/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editing

import (
	"math"
	"testing"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
)

func newFixture(t *testing.T, opts Options) (*feature.Layer, *Controller) {
	t.Helper()
	l := feature.NewLayer("edit")
	l.SetLogger(applog.Discard())
	if opts.HitTolerance == 0 {
		opts.HitTolerance = 1
	}
	opts.Logger = applog.Discard()
	c, err := NewController(l, opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if !c.Activate() {
		t.Fatalf("Activate returned false")
	}
	return l, c
}

func squareRing() *geometry.Composite {
	return geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 10})
}

func addFeature(l *feature.Layer, g geometry.Geometry) *feature.Feature {
	f := feature.New(g, nil)
	l.AddFeatures(f)
	return f
}

func px(x, y float64) input.Pixel { return input.Pixel{X: x, Y: y} }

func drag(c *Controller, from input.Pixel, to ...input.Pixel) {
	c.OnPointerDown(from)
	for _, p := range to {
		c.OnPointerMove(p)
	}
	c.OnPointerUp(to[len(to)-1])
}

func click(c *Controller, p input.Pixel) {
	c.OnPointerDown(p)
	c.OnPointerUp(p)
}

// record collects event type names in delivery order.
func record(l *feature.Layer) *[]string {
	var out []string
	for _, t := range []feature.EventType{
		feature.EventBeforeSelect, feature.EventSelectionStarted, feature.EventVertexModified,
		feature.EventVertexRemoved, feature.EventFeatureModified, feature.EventAfterModified,
	} {
		l.On(t, func(ev *feature.Event) {
			name := string(ev.Type)
			if ev.Feature != nil && ev.Feature.Attributes["name"] != nil {
				name += ":" + ev.Feature.Attributes["name"].(string)
			}
			out = append(out, name)
		})
	}
	return &out
}

func pts(g geometry.Geometry) []geometry.Pt {
	var out []geometry.Pt
	for _, p := range geometry.Points(g) {
		out = append(out, p.Pt())
	}
	return out
}

func markerPts(vs []*Vertex) []geometry.Pt {
	var out []geometry.Pt
	for _, v := range vs {
		out = append(out, v.Point().Pt())
	}
	return out
}

func samePts(a, b []geometry.Pt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > 1e-9 || math.Abs(a[i].Y-b[i].Y) > 1e-9 {
			return false
		}
	}
	return true
}

func sameEvents(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
