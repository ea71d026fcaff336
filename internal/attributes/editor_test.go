/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package attributes

import (
	"errors"
	"testing"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

const roadSchema = `{
  "type": "object",
  "properties": {
    "name":  {"type": "string", "minLength": 1},
    "lanes": {"type": "integer", "minimum": 1}
  },
  "required": ["name"]
}`

func setup(t *testing.T) (*feature.Layer, *Editor, *feature.Feature) {
	t.Helper()
	l := feature.NewLayer("roads")
	e, err := NewEditor(l, []byte(roadSchema))
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	f := feature.New(geometry.NewLineString(geometry.Pt{}, geometry.Pt{X: 1, Y: 1}), map[string]any{"name": "Main"})
	l.AddFeatures(f)
	l.Notify(feature.Event{Type: feature.EventSelectionStarted, Feature: f})
	return l, e, f
}

func TestApplyValidChange(t *testing.T) {
	l, e, f := setup(t)
	var modified int
	l.On(feature.EventFeatureModified, func(*feature.Event) { modified++ })
	if err := e.Apply(map[string]any{"lanes": 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if f.Attributes["lanes"] != 2 || f.State != feature.StateUpdate || modified != 1 {
		t.Fatalf("attrs=%v state=%v modified=%d", f.Attributes, f.State, modified)
	}
	if f.Modified == nil || f.Modified.Attributes["lanes"] != nil || f.Modified.Attributes["name"] != "Main" {
		t.Fatalf("original attributes not kept: %+v", f.Modified)
	}
	fields := e.Fields()
	if len(fields) != 2 || fields[0].Name != "lanes" || fields[1].Name != "name" {
		t.Fatalf("fields = %+v", fields)
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	_, e, f := setup(t)
	err := e.Apply(map[string]any{"lanes": 0})
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Problems) == 0 {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := f.Attributes["lanes"]; ok || f.State != feature.StateUnknown {
		t.Fatalf("invalid change was applied")
	}
	if err := e.Apply(map[string]any{"name": nil}); err == nil {
		t.Fatalf("removing a required attribute must fail")
	}
}

func TestEditorFollowsSelection(t *testing.T) {
	l, e, f := setup(t)
	if e.Current() != f {
		t.Fatalf("editor did not pick up selection")
	}
	l.Notify(feature.Event{Type: feature.EventAfterModified, Feature: f})
	if e.Current() != nil {
		t.Fatalf("editor kept feature after unselect")
	}
	if err := e.Apply(map[string]any{"name": "x"}); !errors.Is(err, ErrNoFeature) {
		t.Fatalf("expected ErrNoFeature, got %v", err)
	}
}

func TestBadSchema(t *testing.T) {
	if _, err := NewEditor(feature.NewLayer("x"), []byte(`{"type": 12}`)); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestNoSchemaAcceptsAnything(t *testing.T) {
	e, err := NewEditor(feature.NewLayer("x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Validate(map[string]any{"anything": []int{1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
