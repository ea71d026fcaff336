/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"testing"

	"mapedit/internal/config"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
	"mapedit/internal/script"
)

var _ script.Driver = (*Workspace)(nil)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Dir = t.TempDir()
	cfg.Backend.Layer = "parcels"
	return cfg
}

// 1 map unit per pixel, map y up; pixel (x, y) is map (x, 100-y).
var testView = input.Viewport{Origin: geometry.Pt{X: 0, Y: 100}, Resolution: 1, Width: 100, Height: 100}

func parcel() *feature.Feature {
	ring := geometry.NewLinearRing(geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 50, Y: 10}, geometry.Pt{X: 50, Y: 50}, geometry.Pt{X: 10, Y: 50})
	return feature.New(geometry.NewPolygon(ring), map[string]any{"name": "lot 7"})
}

func hasVertex(g geometry.Geometry, p geometry.Pt) bool {
	for _, v := range geometry.Points(g) {
		if v.Pt() == p {
			return true
		}
	}
	return false
}

func TestWorkspaceDragUndoAndRestore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	w, err := Open(ctx, cfg, testView)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f := parcel()
	w.Import(f)
	if !w.Controller.SelectFeature(f) {
		t.Fatalf("select failed")
	}
	if r, ok := w.Measurements.Current(); !ok || r.FeatureID != f.ID || r.Area != 1600 {
		t.Fatalf("selection was not measured: %+v", r)
	}
	if w.Attributes.Current() != f {
		t.Fatalf("attribute editor does not follow the selection")
	}

	// (50,50) on the map is pixel (50,50)
	w.Dispatcher.PointerDown(input.Pixel{X: 50, Y: 50})
	w.Dispatcher.PointerMove(input.Pixel{X: 55, Y: 45})
	w.Dispatcher.PointerUp(input.Pixel{X: 55, Y: 45})
	if !hasVertex(f.Geometry, geometry.Pt{X: 55, Y: 55}) {
		t.Fatalf("drag did not move the corner")
	}
	edits, err := w.Journal.ListEdits(ctx, f.ID, 0)
	if err != nil || len(edits) == 0 {
		t.Fatalf("expected journaled edits, got %d (%v)", len(edits), err)
	}

	if !w.Dispatcher.KeyDown(input.KeyZ) {
		t.Fatalf("undo key not handled")
	}
	if !hasVertex(f.Geometry, geometry.Pt{X: 50, Y: 50}) {
		t.Fatalf("undo did not restore the corner")
	}
	if img := w.Canvas.Image(); img.Bounds().Dx() != 100 {
		t.Fatalf("unexpected canvas size %v", img.Bounds())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2, err := Open(ctx, cfg, testView)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = w2.Close() }()
	got := w2.Layer.Get(f.ID)
	if got == nil {
		t.Fatalf("feature not restored from journal")
	}
	if !hasVertex(got.Geometry, geometry.Pt{X: 50, Y: 50}) || got.Attributes["name"] != "lot 7" {
		t.Fatalf("restored feature does not match the undone state")
	}
}

func TestWorkspaceRejectsBadMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Editing.Mode = "spin"
	if _, err := Open(context.Background(), cfg, testView); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestWorkspaceCrashSession(t *testing.T) {
	var nilWS *Workspace
	if nilWS.Crash() != nil {
		t.Fatalf("nil workspace must yield nil session")
	}
	w, err := Open(context.Background(), testConfig(t), testView)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = w.Close() }()
	s := w.Crash()
	if s.Journal != w.Journal || s.Layer != w.Layer {
		t.Fatalf("crash session not wired to the workspace")
	}
}

func TestFitFeatures(t *testing.T) {
	v := FitFeatures([]*feature.Feature{parcel()}, 200, 200)
	c := v.ToMap(input.Pixel{X: 100, Y: 100})
	if c.X < 29 || c.X > 31 || c.Y < 29 || c.Y > 31 {
		t.Fatalf("viewport not centred on the features: %+v", c)
	}
	empty := FitFeatures(nil, 100, 50)
	if empty.Resolution <= 0 || empty.Width != 100 || empty.Height != 50 {
		t.Fatalf("unexpected empty fit: %+v", empty)
	}
}

func TestWorkspaceReplaysScript(t *testing.T) {
	w, err := Open(context.Background(), testConfig(t), testView)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = w.Close() }()
	f := parcel()
	w.Import(f)

	s, errs := script.Parse(`# move the whole parcel
select lot 7
mode drag
down 30 70
move 40 70
up 40 70
# and back
undo`)
	if len(errs) != 0 {
		t.Fatalf("parse: %+v", errs)
	}
	res, err := script.Play(s, w)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(res) != 6 {
		t.Fatalf("expected 6 results, got %d", len(res))
	}
	if !hasVertex(f.Geometry, geometry.Pt{X: 10, Y: 10}) {
		t.Fatalf("undo after drag did not restore the parcel")
	}
	if w.SetMode("spin") == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if !w.Unselect() || w.Unselect() {
		t.Fatalf("unselect should succeed once")
	}
}
