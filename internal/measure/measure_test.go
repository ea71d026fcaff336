/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package measure

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"mapedit/internal/editing"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
)

func square() *geometry.Composite {
	return geometry.NewPolygon(geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 10}))
}

func TestResultString(t *testing.T) {
	r := Of(feature.New(square(), nil))
	if r.String() != "area 100.00 m², perimeter 40.00 m" {
		t.Fatalf("got %q", r.String())
	}
	line := Of(feature.New(geometry.NewLineString(geometry.Pt{}, geometry.Pt{X: 3000, Y: 4000}), nil))
	if line.String() != "length 5.000 km" {
		t.Fatalf("got %q", line.String())
	}
}

func TestOfUsesGeometryKind(t *testing.T) {
	// clockwise shell with a counter-clockwise hole
	shell := geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 0, Y: 10}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 10, Y: 0})
	hole := geometry.NewLinearRing(geometry.Pt{X: 2, Y: 2}, geometry.Pt{X: 4, Y: 2}, geometry.Pt{X: 4, Y: 4}, geometry.Pt{X: 2, Y: 4})
	if r := Of(feature.New(geometry.NewPolygon(shell, hole), nil)); r.Area != 96 || r.Length != 48 {
		t.Fatalf("polygon with hole = %+v", r)
	}
	ring := geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 10})
	if r := Of(feature.New(ring, nil)); r.Area != 100 || r.Length != 40 {
		t.Fatalf("ring = %+v", r)
	}
	closed := geometry.NewLineString(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 0})
	if r := Of(feature.New(closed, nil)); r.Area != 0 || math.Abs(r.Length-(20+math.Sqrt(200))) > 1e-9 {
		t.Fatalf("closed line = %+v", r)
	}
	mp := geometry.NewMultiPolygon(square(), geometry.NewPolygon(geometry.NewLinearRing(geometry.Pt{X: 20, Y: 0}, geometry.Pt{X: 22, Y: 0}, geometry.Pt{X: 22, Y: 2})))
	if r := Of(feature.New(mp, nil)); r.Area != 102 {
		t.Fatalf("multipolygon = %+v", r)
	}
	if r := Of(feature.New(geometry.NewPoint(1, 1), nil)); r.Area != 0 || r.Length != 0 || r.String() != "no length" {
		t.Fatalf("point = %+v", r)
	}
}

func TestToolFollowsEditSession(t *testing.T) {
	l := feature.NewLayer("m")
	l.SetLogger(applog.Discard())
	c, err := editing.NewController(l, editing.Options{HitTolerance: 1, Logger: applog.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	c.Activate()
	sink := &MemorySink{}
	tool := NewTool(l, sink)
	defer tool.Close()

	f := feature.New(square(), nil)
	l.AddFeatures(f)
	c.SelectFeature(f)
	r, ok := sink.Current()
	if !ok || r.Area != 100 || !r.Final {
		t.Fatalf("selection result = %+v %v", r, ok)
	}
	c.OnPointerDown(input.Pixel{X: 10, Y: 10})
	c.OnPointerMove(input.Pixel{X: 20, Y: 10})
	if r, _ := sink.Current(); r.Final || r.Area != 150 {
		t.Fatalf("live result = %+v", r)
	}
	c.OnPointerUp(input.Pixel{X: 20, Y: 10})
	if r, _ := sink.Current(); !r.Final || r.Area != 150 {
		t.Fatalf("final result = %+v", r)
	}
	c.UnselectFeature(f)
	if _, ok := sink.Current(); ok {
		t.Fatalf("sink should be cleared after unselect")
	}
	if n := len(sink.History()); n != 3 {
		t.Fatalf("history = %d results", n)
	}
}

func TestSinksAreIndependent(t *testing.T) {
	l1, l2 := feature.NewLayer("a"), feature.NewLayer("b")
	s1, s2 := &MemorySink{}, &MemorySink{}
	NewTool(l1, s1)
	NewTool(l2, s2)
	l1.Notify(feature.Event{Type: feature.EventSelectionStarted, Feature: feature.New(square(), nil)})
	if _, ok := s2.Current(); ok {
		t.Fatalf("second tool received first tool's result")
	}
	if _, ok := s1.Current(); !ok {
		t.Fatalf("first tool missed its result")
	}
}

func TestWriterSinkPrintsFinalOnly(t *testing.T) {
	var buf bytes.Buffer
	s := WriterSink{W: &buf}
	s.Show(Result{Kind: geometry.KindLineString, Length: 2})
	s.Show(Result{Kind: geometry.KindLineString, Length: 3, Final: true})
	if strings.TrimSpace(buf.String()) != "length 3.00 m" {
		t.Fatalf("got %q", buf.String())
	}
}
