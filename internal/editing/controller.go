/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editing implements the interactive geometry edit controller: one
// selected feature at a time, vertex and handle markers, the drag
// lifecycle, keyboard vertex deletion and lifecycle notifications.
package editing

import (
	"errors"
	"log/slog"
	"slices"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
)

// ErrMissingSegmentIndex is returned by NewController when segment based
// editing is requested without a segment index.
var ErrMissingSegmentIndex = errors.New("editing: BySegment requires a SegmentIndex")

// Store is the feature store the controller edits. *feature.Layer
// implements it.
type Store interface {
	AddFeatures(fs ...*feature.Feature)
	RemoveFeatures(fs ...*feature.Feature)
	DestroyFeatures(fs ...*feature.Feature)
	SelectedFeatures() []*feature.Feature
	Select(f *feature.Feature)
	Deselect(f *feature.Feature)
	Redraw(f *feature.Feature, intent feature.Intent)
	FeatureAt(pt geometry.Pt, tol float64) *feature.Feature
	Notify(ev feature.Event) bool
}

// SegmentIndex finds the segment nearest to a map position.
type SegmentIndex interface {
	Load(g geometry.Geometry)
	Nearest(p geometry.Pt, tol float64) (geometry.Segment, geometry.Pt, bool)
}

// Default key codes that delete the hovered vertex.
var DefaultDeleteCodes = []int{input.KeyDelete, input.KeyBackspace, input.KeyD}

const DefaultHitTolerance = 6

// Options configures a Controller. The zero value edits vertices of any
// geometry kind with clickout and toggle enabled.
type Options struct {
	// Mode defaults to Reshape.
	Mode Mode
	// Projection converts pointer pixels to map units; defaults to
	// input.Identity.
	Projection input.Projection
	// HitTolerance in pixels; defaults to DefaultHitTolerance.
	HitTolerance float64
	// DeleteCodes defaults to DefaultDeleteCodes.
	DeleteCodes []int
	// DisableClickout keeps the selection when clicking outside it.
	DisableClickout bool
	// DisableToggle keeps the selection when clicking the selected feature.
	DisableToggle bool
	// Standalone disables selection by click; use SelectFeature and
	// UnselectFeature.
	Standalone bool
	// NoVirtualVertices skips edge midpoint markers.
	NoVirtualVertices bool
	// GeometryTypes restricts selectable geometry kinds when non-empty.
	GeometryTypes []geometry.Kind
	// BySegment creates a single virtual vertex on the segment nearest to
	// the pointer instead of one per edge. Requires SegmentIndex.
	BySegment    bool
	SegmentIndex SegmentIndex
	// Snap moves dragged vertices onto nearby vertices or edges. The
	// threshold is in pixels.
	Snap geometry.SnapOptions
	// SnapTargets supplies snapping geometries; defaults to the selected
	// feature's own geometry.
	SnapTargets func() []geometry.Geometry
	// Dispatcher, when set, receives the controller on Activate.
	Dispatcher *input.Dispatcher
	Priority   int
	Logger     *slog.Logger
}

// Controller edits the geometry of one selected feature. It is driven
// synchronously from a single goroutine.
type Controller struct {
	store Store
	opts  Options
	log   *slog.Logger

	active       bool
	mode         Mode
	originalMode Mode

	feature  *feature.Feature
	modified bool
	// original is the pre-edit geometry captured on selection.
	original geometry.Geometry

	vertices     []*Vertex
	virtual      []*Vertex
	dragHandle   *feature.Feature
	radiusHandle *feature.Feature
	radiusOrigin geometry.Pt

	// gesture state
	down     bool
	dragged  bool
	target   *feature.Feature
	unselect *feature.Feature
	last     input.Pixel

	hooks  []hook
	hookID int
}

type hook struct {
	id int
	fn func(Change)
}

// NewController validates opts and returns an inactive controller.
func NewController(store Store, opts Options) (*Controller, error) {
	if store == nil {
		return nil, errors.New("editing: nil store")
	}
	if opts.BySegment && opts.SegmentIndex == nil {
		return nil, ErrMissingSegmentIndex
	}
	if opts.Mode == 0 {
		opts.Mode = Reshape
	}
	if opts.Projection == nil {
		opts.Projection = input.Identity
	}
	if opts.HitTolerance <= 0 {
		opts.HitTolerance = DefaultHitTolerance
	}
	if opts.DeleteCodes == nil {
		opts.DeleteCodes = DefaultDeleteCodes
	}
	lg := opts.Logger
	if lg == nil {
		lg = applog.WithComponent("editing")
	}
	return &Controller{store: store, opts: opts, log: lg, mode: opts.Mode, originalMode: opts.Mode}, nil
}

// Activate starts listening for input. It reports whether the controller
// was inactive before.
func (c *Controller) Activate() bool {
	if c.active {
		return false
	}
	c.active = true
	if d := c.opts.Dispatcher; d != nil {
		d.Register(c, c.opts.Priority)
	}
	c.log.Debug("activated", slog.String("mode", c.mode.String()))
	return true
}

// Deactivate removes every marker, unselects the current feature and stops
// listening for input. It reports whether the controller was active.
func (c *Controller) Deactivate() bool {
	if !c.active {
		return false
	}
	c.clearMarkers()
	if c.feature != nil {
		c.UnselectFeature(c.feature)
	}
	c.resetGesture()
	if d := c.opts.Dispatcher; d != nil {
		d.Unregister(c)
	}
	c.active = false
	c.log.Debug("deactivated")
	return true
}

func (c *Controller) Active() bool { return c.active }

// Mode is the effective mode for the current selection.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode changes the configured mode and rebuilds markers.
func (c *Controller) SetMode(m Mode) {
	c.originalMode = m
	c.mode = c.modeFor(c.feature)
	c.ResetVertices()
}

// modeFor drops Reshape for predefined shapes.
func (c *Controller) modeFor(f *feature.Feature) Mode {
	if f != nil && f.Shape != nil {
		return c.originalMode &^ Reshape
	}
	return c.originalMode
}

func (c *Controller) Selected() *feature.Feature { return c.feature }

// Modified reports whether the selected feature changed during this
// selection.
func (c *Controller) Modified() bool { return c.modified }

func (c *Controller) Vertices() []*Vertex            { return slices.Clone(c.vertices) }
func (c *Controller) VirtualVertices() []*Vertex     { return slices.Clone(c.virtual) }
func (c *Controller) DragHandle() *feature.Feature   { return c.dragHandle }
func (c *Controller) RadiusHandle() *feature.Feature { return c.radiusHandle }

func (c *Controller) State() State {
	switch {
	case !c.active:
		return StateInactive
	case c.feature == nil:
		return StateIdle
	case c.down && c.target != nil:
		return StateDragging
	}
	return StateSelected
}

// OnGeometryChanged registers fn for every geometry mutation made by the
// controller and returns a function removing it.
func (c *Controller) OnGeometryChanged(fn func(Change)) (remove func()) {
	c.hookID++
	id := c.hookID
	c.hooks = append(c.hooks, hook{id: id, fn: fn})
	return func() {
		c.hooks = slices.DeleteFunc(c.hooks, func(h hook) bool { return h.id == id })
	}
}

func (c *Controller) changed(ch Change) {
	ch.Feature = c.feature
	for _, h := range slices.Clone(c.hooks) {
		h.fn(ch)
	}
}

func (c *Controller) allowed(f *feature.Feature) bool {
	if f == nil || f.Geometry == nil {
		return false
	}
	return len(c.opts.GeometryTypes) == 0 || slices.Contains(c.opts.GeometryTypes, f.Geometry.Kind())
}

// SelectFeature makes f the edited feature. It does nothing when f is
// already selected, its geometry kind is not allowed or a before-select
// listener vetoes. It reports whether f was selected.
func (c *Controller) SelectFeature(f *feature.Feature) bool {
	if f == c.feature || !c.allowed(f) {
		return false
	}
	if !c.store.Notify(feature.Event{Type: feature.EventBeforeSelect, Feature: f}) {
		c.log.Debug("selection vetoed", slog.String("feature", f.ID))
		return false
	}
	if c.feature != nil {
		c.UnselectFeature(c.feature)
	}
	c.feature = f
	c.store.Select(f)
	c.store.Redraw(f, feature.IntentSelect)
	c.modified = false
	c.mode = c.modeFor(f)
	c.ResetVertices()
	if f.Modified == nil || f.Modified.Geometry == nil {
		c.original = f.Geometry.Clone()
	}
	c.log.Debug("selected", slog.String("feature", f.ID), slog.String("kind", f.Geometry.Kind().String()))
	c.store.Notify(feature.Event{Type: feature.EventSelectionStarted, Feature: f})
	return true
}

// UnselectFeature ends the edit session of f. Calls with a feature other
// than the current selection do nothing and return false.
func (c *Controller) UnselectFeature(f *feature.Feature) bool {
	if f == nil || f != c.feature {
		return false
	}
	c.clearMarkers()
	c.feature = nil
	c.original = nil
	c.target = nil
	c.unselect = nil
	c.store.Deselect(f)
	c.store.Redraw(f, feature.IntentDefault)
	c.mode = c.originalMode
	modified := c.modified
	c.log.Debug("unselected", slog.String("feature", f.ID), slog.Bool("modified", modified))
	c.store.Notify(feature.Event{Type: feature.EventAfterModified, Feature: f, Modified: modified})
	c.modified = false
	return true
}

// setFeatureState marks the feature updated unless it is a pending insert
// or delete, and records the pre-edit geometry after the first dirty edit.
func (c *Controller) setFeatureState() {
	f := c.feature
	if f.State == feature.StateInsert || f.State == feature.StateDelete {
		return
	}
	f.State = feature.StateUpdate
	if c.modified && c.original != nil {
		f.RememberGeometry(c.original)
		c.original = nil
	}
}

func (c *Controller) resetGesture() {
	c.down = false
	c.dragged = false
	c.target = nil
	c.unselect = nil
}
