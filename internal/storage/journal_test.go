/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func square() *geometry.Composite {
	return geometry.NewPolygon(geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 10}))
}

func TestOpenJournalRequiresDir(t *testing.T) {
	if _, err := OpenJournal(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

func TestFreshJournalSchema(t *testing.T) {
	j := openTestJournal(t)
	v, err := j.SchemaVersion(context.Background())
	if err != nil || v != schemaVersion {
		t.Fatalf("schema = %d, err=%v", v, err)
	}
	if filepath.Base(j.Path()) != JournalFileName {
		t.Fatalf("unexpected path %s", j.Path())
	}
}

func TestLoadKeepsClosedLinesAndRings(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	line := feature.New(geometry.NewLineString(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 0}), nil)
	ring := feature.New(geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}), nil)
	for _, f := range []*feature.Feature{line, ring} {
		if err := j.SaveFeature(ctx, f); err != nil {
			t.Fatalf("SaveFeature: %v", err)
		}
	}
	got, err := j.LoadFeatures(ctx)
	if err != nil || len(got) != 2 {
		t.Fatalf("LoadFeatures: %d %v", len(got), err)
	}
	if got[0].Geometry.Kind() != geometry.KindLineString || !geometry.Equal(got[0].Geometry, line.Geometry) {
		t.Fatalf("closed line reloaded as %v", got[0].Geometry.Kind())
	}
	if got[1].Geometry.Kind() != geometry.KindLinearRing || !geometry.Equal(got[1].Geometry, ring.Geometry) {
		t.Fatalf("ring reloaded as %v", got[1].Geometry.Kind())
	}
}

func TestSaveAndLoadFeatures(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	a := feature.New(square(), map[string]any{"name": "lot"})
	a.State = feature.StateUpdate
	b := feature.New(geometry.NewPoint(3, 4), nil)
	marker := feature.NewSketch(geometry.NewPoint(0, 0), feature.IntentVertex)
	for _, f := range []*feature.Feature{a, b, marker} {
		if err := j.SaveFeature(ctx, f); err != nil {
			t.Fatalf("SaveFeature: %v", err)
		}
	}
	// second save updates in place and keeps the order
	a.Geometry.Move(1, 1)
	if err := j.SaveFeature(ctx, a); err != nil {
		t.Fatalf("SaveFeature: %v", err)
	}
	got, err := j.LoadFeatures(ctx)
	if err != nil {
		t.Fatalf("LoadFeatures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 features (sketch skipped), got %d", len(got))
	}
	if got[0].ID != a.ID || got[0].State != feature.StateUpdate || got[0].Attributes["name"] != "lot" {
		t.Fatalf("feature a = %+v", got[0])
	}
	if !geometry.Equal(got[0].Geometry, a.Geometry) || !geometry.Equal(got[1].Geometry, b.Geometry) {
		t.Fatalf("geometry differs after load")
	}
	if err := j.DeleteFeature(ctx, a.ID); err != nil {
		t.Fatalf("DeleteFeature: %v", err)
	}
	if got, _ := j.LoadFeatures(ctx); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("delete failed: %d left", len(got))
	}
}

func TestEditsListAndPrune(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	t0 := time.Now()
	for i := 0; i < 5; i++ {
		if err := j.AppendEdit(ctx, Edit{FeatureID: "f", Kind: "feature-modified", TS: t0.Add(time.Duration(i) * time.Second), Geometry: []byte{byte(i)}}); err != nil {
			t.Fatalf("AppendEdit: %v", err)
		}
	}
	_ = j.AppendEdit(ctx, Edit{FeatureID: "other", Kind: "vertex-removed"})
	list, err := j.ListEdits(ctx, "f", 3)
	if err != nil {
		t.Fatalf("ListEdits: %v", err)
	}
	if len(list) != 3 || list[0].Geometry[0] != 4 || list[2].Geometry[0] != 2 {
		t.Fatalf("unexpected list order: %+v", list)
	}
	n, err := j.PruneEdits(ctx, "f", 2)
	if err != nil || n != 3 {
		t.Fatalf("PruneEdits = %d, %v", n, err)
	}
	if list, _ := j.ListEdits(ctx, "f", 0); len(list) != 2 {
		t.Fatalf("expected 2 edits after prune, got %d", len(list))
	}
	if list, _ := j.ListEdits(ctx, "other", 0); len(list) != 1 || list[0].TS.IsZero() {
		t.Fatalf("other feature edits = %+v", list)
	}
}

func TestCorruptJournalIsRecreated(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(JournalPath(dir), []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	j, err := OpenJournal(context.Background(), dir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()
	if _, err := j.LoadFeatures(context.Background()); err != nil {
		t.Fatalf("recreated journal unusable: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "backups"))
	if len(entries) == 0 {
		t.Fatalf("expected a backup of the corrupt file")
	}
}
