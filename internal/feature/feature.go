/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package feature is the feature model shared by the edit controller, the
// layer and the persistence adapters.
package feature

import (
	"maps"

	"github.com/google/uuid"

	"mapedit/internal/geometry"
)

// State is the persistence state of a feature.
type State uint8

const (
	StateUnknown State = iota
	StateInsert
	StateUpdate
	StateDelete
	StateUnmodified
)

func (s State) String() string {
	switch s {
	case StateInsert:
		return "Insert"
	case StateUpdate:
		return "Update"
	case StateDelete:
		return "Delete"
	case StateUnmodified:
		return "Unmodified"
	}
	return "Unknown"
}

// ParseState is the inverse of String. Unrecognised names map to StateUnknown.
func ParseState(s string) State {
	for _, st := range []State{StateInsert, StateUpdate, StateDelete, StateUnmodified} {
		if st.String() == s {
			return st
		}
	}
	return StateUnknown
}

// Intent names the style variant a feature is drawn with.
type Intent string

const (
	IntentDefault Intent = "default"
	IntentSelect  Intent = "select"
	IntentVertex  Intent = "vertex"
	IntentVirtual Intent = "virtual"
	IntentHandle  Intent = "handle"
	IntentDelete  Intent = "delete"
)

// Snapshot keeps pre-edit values for change auditing.
type Snapshot struct {
	Geometry   geometry.Geometry
	Attributes map[string]any
}

// Feature is a geometry with attributes and an edit state.
type Feature struct {
	ID         string
	Geometry   geometry.Geometry
	Attributes map[string]any
	State      State
	// Modified holds the original values once the feature has been edited.
	Modified *Snapshot
	Intent   Intent
	// Sketch marks transient markers that are never persisted.
	Sketch bool
	// Shape carries parameters of a predefined shape (circle, rectangle...).
	// Predefined shapes are not reshaped vertex by vertex.
	Shape any

	destroyed bool
}

// New returns a feature with a fresh ID and unknown state.
func New(g geometry.Geometry, attrs map[string]any) *Feature {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &Feature{ID: uuid.NewString(), Geometry: g, Attributes: attrs, Intent: IntentDefault}
}

// NewSketch wraps a point into a transient marker feature.
func NewSketch(p *geometry.Point, intent Intent) *Feature {
	return &Feature{ID: uuid.NewString(), Geometry: p, Intent: intent, Sketch: true}
}

// Point returns the feature geometry as a point, or nil.
func (f *Feature) Point() *geometry.Point {
	p, _ := f.Geometry.(*geometry.Point)
	return p
}

// Destroyed reports whether the feature was destroyed by its layer.
func (f *Feature) Destroyed() bool { return f.destroyed }

// ToState applies a state transition. An inserted feature stays an insert
// when updated; deleting an insert is left to the caller (it should just be
// dropped).
func (f *Feature) ToState(s State) {
	switch s {
	case StateUpdate:
		switch f.State {
		case StateUnknown, StateDelete, StateUnmodified:
			f.State = s
		}
	case StateInsert:
		f.State = s
	case StateDelete:
		switch f.State {
		case StateUnknown, StateUpdate, StateUnmodified:
			f.State = s
		}
	case StateUnknown, StateUnmodified:
		f.State = s
	}
}

// RememberGeometry records g as the original geometry unless one is already
// recorded.
func (f *Feature) RememberGeometry(g geometry.Geometry) {
	if g == nil {
		return
	}
	if f.Modified == nil {
		f.Modified = &Snapshot{}
	}
	if f.Modified.Geometry == nil {
		f.Modified.Geometry = g
	}
}

// RememberAttributes records the current attributes as originals unless
// already recorded.
func (f *Feature) RememberAttributes() {
	if f.Modified == nil {
		f.Modified = &Snapshot{}
	}
	if f.Modified.Attributes == nil {
		f.Modified.Attributes = maps.Clone(f.Attributes)
		if f.Modified.Attributes == nil {
			f.Modified.Attributes = map[string]any{}
		}
	}
}

// Clone returns a deep copy of geometry and a shallow copy of attributes.
// The ID is kept.
func (f *Feature) Clone() *Feature {
	out := *f
	if f.Geometry != nil {
		out.Geometry = f.Geometry.Clone()
	}
	out.Attributes = maps.Clone(f.Attributes)
	if f.Modified != nil {
		m := *f.Modified
		out.Modified = &m
	}
	out.destroyed = false
	return &out
}
