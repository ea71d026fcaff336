/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editing

import (
	"strings"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

// Mode is a bitfield of the interactions offered on the selected feature.
type Mode uint8

const (
	// Reshape offers per-vertex editing (real and virtual vertices).
	Reshape Mode = 1 << iota
	// Resize offers the radius handle for scaling. It suppresses per-vertex
	// editing; together with Reshape the aspect ratio is not kept.
	Resize
	// Rotate offers the radius handle for rotation.
	Rotate
	// Drag offers the drag handle at the bounds centre.
	Drag
)

func (m Mode) Has(f Mode) bool { return m&f != 0 }

func (m Mode) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, x := range []struct {
		f Mode
		n string
	}{{Reshape, "reshape"}, {Resize, "resize"}, {Rotate, "rotate"}, {Drag, "drag"}} {
		if m.Has(x.f) {
			parts = append(parts, x.n)
		}
	}
	return strings.Join(parts, "|")
}

// ParseMode reads a "|" or "," separated list of mode names.
func ParseMode(s string) (Mode, bool) {
	var m Mode
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' || r == ' ' }) {
		switch strings.ToLower(p) {
		case "reshape":
			m |= Reshape
		case "resize":
			m |= Resize
		case "rotate":
			m |= Rotate
		case "drag":
			m |= Drag
		default:
			return 0, false
		}
	}
	return m, true
}

// State is the controller's position in its state machine.
type State uint8

const (
	StateInactive State = iota
	StateIdle
	StateSelected
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "active"
	case StateSelected:
		return "selected"
	case StateDragging:
		return "dragging"
	}
	return "inactive"
}

// ChangeKind classifies a geometry mutation.
type ChangeKind uint8

const (
	ChangeTranslate ChangeKind = iota
	ChangeRotate
	ChangeResize
	ChangeVertexMove
	ChangeVertexInsert
	ChangeVertexRemove
)

func (k ChangeKind) String() string {
	return [...]string{"translate", "rotate", "resize", "vertex-move", "vertex-insert", "vertex-remove"}[k]
}

// Change describes one geometry mutation made by the controller.
type Change struct {
	Feature *feature.Feature
	Kind    ChangeKind
	// Vertex is set for vertex changes.
	Vertex *geometry.Point
	DX, DY float64
	// Angle in degrees, counter-clockwise.
	Angle  float64
	Scale  float64
	Ratio  float64
	Origin geometry.Pt
}

// Vertex is a marker for an editable point. A virtual vertex sits on an
// edge midpoint and is not part of the geometry until it is dragged.
type Vertex struct {
	*feature.Feature
	// Parent, Index and Next are set for virtual vertices only. Index is
	// the position the point takes in Parent when promoted.
	Parent *geometry.Composite
	Index  int
	Next   *geometry.Point
}

// Virtual reports whether the marker is not yet part of the geometry.
func (v *Vertex) Virtual() bool { return v.Parent != nil }
