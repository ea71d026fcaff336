/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"

	"mapedit/internal/editing"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
)

func square() *geometry.Composite {
	return geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 10})
}

func corner(f *feature.Feature) geometry.Pt {
	return f.Geometry.(*geometry.Composite).Component(2).(*geometry.Point).Pt()
}

func TestHistoryRecordsModifications(t *testing.T) {
	l := feature.NewLayer("t")
	l.SetLogger(applog.Discard())
	h := NewHistory(l, NewManager(Config{}))
	defer h.Close()

	f := feature.New(square(), nil)
	l.AddFeatures(f)
	f.Geometry.(*geometry.Composite).Component(2).(*geometry.Point).SetPt(geometry.Pt{X: 20, Y: 20})
	l.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: f})

	if !h.Undo(f) {
		t.Fatalf("expected undo to restore")
	}
	if got := corner(f); got != (geometry.Pt{X: 10, Y: 10}) {
		t.Fatalf("corner after undo = %+v", got)
	}
	if f.State != feature.StateUpdate {
		t.Fatalf("state = %v", f.State)
	}
	if !h.Redo(f) || corner(f) != (geometry.Pt{X: 20, Y: 20}) {
		t.Fatalf("redo did not reapply the edit: %+v", corner(f))
	}
	if h.Redo(f) {
		t.Fatalf("nothing left to redo")
	}
}

func TestHistoryKeepsClosedLineString(t *testing.T) {
	l := feature.NewLayer("t")
	l.SetLogger(applog.Discard())
	h := NewHistory(l, NewManager(Config{}))
	defer h.Close()

	line := geometry.NewLineString(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 0})
	f := feature.New(line, nil)
	l.AddFeatures(f)
	line.Component(2).(*geometry.Point).SetPt(geometry.Pt{X: 20, Y: 20})
	l.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: f})

	if !h.Undo(f) {
		t.Fatalf("expected undo to restore")
	}
	got, ok := f.Geometry.(*geometry.Composite)
	if !ok || got.Kind() != geometry.KindLineString || got.Len() != 4 {
		t.Fatalf("after undo kind=%v", f.Geometry.Kind())
	}
	if corner(f) != (geometry.Pt{X: 10, Y: 10}) {
		t.Fatalf("corner after undo = %+v", corner(f))
	}
	if !h.Redo(f) || f.Geometry.Kind() != geometry.KindLineString || f.Geometry.(*geometry.Composite).Len() != 4 {
		t.Fatalf("redo changed the line")
	}
}

func TestHistoryIgnoresUnknownFeatures(t *testing.T) {
	l := feature.NewLayer("t")
	l.SetLogger(applog.Discard())
	h := NewHistory(l, NewManager(Config{}))
	defer h.Close()
	f := feature.New(square(), nil)
	// never added, so no baseline is known
	l.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: f})
	if h.Undo(f) || h.Undo(nil) {
		t.Fatalf("undo without a recorded edit must fail")
	}
}

func TestHistoryWithController(t *testing.T) {
	l := feature.NewLayer("t")
	l.SetLogger(applog.Discard())
	d := input.NewDispatcher()
	c, err := editing.NewController(l, editing.Options{HitTolerance: 1, Dispatcher: d, Priority: 10, Logger: applog.Discard()})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	c.Activate()
	h := NewHistory(l, NewManager(Config{}))
	defer h.Close()
	h.OnRestore = func(f *feature.Feature) {
		if c.Selected() == f {
			c.ResetVertices()
		}
	}
	d.Register(h, 0)

	f := feature.New(square(), nil)
	l.AddFeatures(f)
	if !c.SelectFeature(f) {
		t.Fatalf("select failed")
	}
	d.PointerDown(input.Pixel{X: 10, Y: 10})
	d.PointerMove(input.Pixel{X: 12, Y: 12})
	d.PointerUp(input.Pixel{X: 12, Y: 12})
	if corner(f) != (geometry.Pt{X: 12, Y: 12}) {
		t.Fatalf("drag did not move the corner: %+v", corner(f))
	}

	if !d.KeyDown(input.KeyZ) {
		t.Fatalf("undo key not handled")
	}
	if corner(f) != (geometry.Pt{X: 10, Y: 10}) {
		t.Fatalf("corner after undo = %+v", corner(f))
	}
	found := false
	for _, v := range c.Vertices() {
		found = found || v.Point().Pt() == (geometry.Pt{X: 10, Y: 10})
	}
	if !found {
		t.Fatalf("vertex markers not rebuilt after undo")
	}
	if !d.KeyDown(input.KeyY) || corner(f) != (geometry.Pt{X: 12, Y: 12}) {
		t.Fatalf("redo key did not reapply: %+v", corner(f))
	}
}
