/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package measure reports length and area of the feature being edited.
// Results go to a sink owned by the caller; every GUI passes its own.
package measure

import (
	"fmt"
	"io"
	"math"
	"sync"

	geom "github.com/twpayne/go-geom"

	"mapedit/internal/codec"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

// Result is one measurement. Units are map units.
type Result struct {
	FeatureID string
	Kind      geometry.Kind
	Length    float64
	Area      float64
	// Final is false for live updates while a vertex is dragged.
	Final bool
}

// String formats the result the way the results window shows it.
func (r Result) String() string {
	switch r.Kind {
	case geometry.KindPolygon, geometry.KindMultiPolygon, geometry.KindLinearRing:
		return fmt.Sprintf("area %s, perimeter %s", formatArea(r.Area), formatLength(r.Length))
	case geometry.KindPoint, geometry.KindMultiPoint:
		return "no length"
	}
	return "length " + formatLength(r.Length)
}

func formatLength(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%.3f km", m/1000)
	}
	return fmt.Sprintf("%.2f m", m)
}

func formatArea(m2 float64) string {
	if m2 >= 1e6 {
		return fmt.Sprintf("%.3f km²", m2/1e6)
	}
	return fmt.Sprintf("%.2f m²", m2)
}

// Of measures f.
func Of(f *feature.Feature) Result {
	r := Result{FeatureID: f.ID}
	if f.Geometry == nil {
		return r
	}
	r.Kind = f.Geometry.Kind()
	t, err := codec.ToGeom(f.Geometry)
	if err != nil {
		return r
	}
	r.Length, r.Area = metrics(t, r.Kind == geometry.KindLinearRing)
	return r
}

// metrics returns the edge length and planar area of t. ring marks a
// closed line string that stands for a standalone ring and so has an area.
func metrics(t geom.T, ring bool) (length, area float64) {
	switch v := t.(type) {
	case *geom.LineString:
		if ring {
			lr := geom.NewLinearRing(geom.XY).MustSetCoords(v.Coords())
			return v.Length(), math.Abs(lr.Area())
		}
		return v.Length(), 0
	case *geom.MultiLineString:
		return v.Length(), 0
	case *geom.Polygon:
		return v.Length(), polygonArea(v)
	case *geom.MultiPolygon:
		for i := 0; i < v.NumPolygons(); i++ {
			area += polygonArea(v.Polygon(i))
		}
		return v.Length(), area
	case *geom.GeometryCollection:
		for _, g := range v.Geoms() {
			l, a := metrics(g, false)
			length += l
			area += a
		}
	}
	return length, area
}

// polygonArea subtracts the holes from the shell. go-geom's ring areas are
// signed by winding and edited rings keep whatever winding the user drew.
func polygonArea(p *geom.Polygon) float64 {
	var a float64
	for i := 0; i < p.NumLinearRings(); i++ {
		r := math.Abs(p.LinearRing(i).Area())
		if i == 0 {
			a = r
		} else {
			a -= r
		}
	}
	return a
}

// ResultsSink displays measurements.
type ResultsSink interface {
	Show(r Result)
	Clear()
}

// Tool measures the selected feature of a layer and updates its sink on
// selection, on every vertex move and after each modification.
type Tool struct {
	sink    ResultsSink
	removes []func()
}

// NewTool binds to l and reports into sink until Close.
func NewTool(l *feature.Layer, sink ResultsSink) *Tool {
	t := &Tool{sink: sink}
	final := func(ev *feature.Event) {
		r := Of(ev.Feature)
		r.Final = true
		t.sink.Show(r)
	}
	t.removes = append(t.removes,
		l.On(feature.EventSelectionStarted, final),
		l.On(feature.EventFeatureModified, final),
		l.On(feature.EventVertexModified, func(ev *feature.Event) { t.sink.Show(Of(ev.Feature)) }),
		l.On(feature.EventAfterModified, func(*feature.Event) { t.sink.Clear() }),
	)
	return t
}

func (t *Tool) Close() {
	for _, r := range t.removes {
		r()
	}
	t.removes = nil
}

// MemorySink keeps the latest result.
type MemorySink struct {
	mu      sync.Mutex
	history []Result
	current *Result
}

func (s *MemorySink) Show(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, r)
	s.current = &r
}

func (s *MemorySink) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns the displayed result, if any.
func (s *MemorySink) Current() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

// History returns every result shown so far.
func (s *MemorySink) History() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.history...)
}

// WriterSink prints final results as lines.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Show(r Result) {
	if r.Final {
		fmt.Fprintln(s.W, r.String())
	}
}

func (s WriterSink) Clear() {}
