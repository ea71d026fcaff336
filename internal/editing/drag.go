/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editing

import (
	"log/slog"
	"math"
	"slices"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
)

func (c *Controller) tolerance(px input.Pixel) float64 {
	return input.Tolerance(c.opts.Projection, px, c.opts.HitTolerance)
}

// OnPointerDown arms the marker under the pointer, selects a clicked
// feature or schedules a clickout. It reports whether the controller takes
// part in this gesture.
func (c *Controller) OnPointerDown(px input.Pixel) bool {
	if !c.active {
		return false
	}
	c.resetGesture()
	c.down = true
	c.last = px
	pos, tol := c.opts.Projection(px), c.tolerance(px)
	c.trackSegment(pos, tol)
	f := c.store.FeatureAt(pos, tol)
	switch {
	case f != nil:
		c.dragStart(f)
	case !c.opts.DisableClickout && !c.opts.Standalone:
		c.unselect = c.feature
	}
	return c.target != nil || c.unselect != nil || (f != nil && f == c.feature)
}

func (c *Controller) dragStart(f *feature.Feature) {
	isPoint := f.Geometry != nil && f.Geometry.Kind() == geometry.KindPoint
	if !c.opts.Standalone && !f.Sketch {
		if !c.opts.DisableToggle && c.feature == f {
			c.unselect = f
		}
		c.SelectFeature(f)
	}
	switch {
	case f.Sketch && c.owns(f):
		c.target = f
	case isPoint && !f.Sketch && f == c.feature:
		c.target = f
	}
}

// OnPointerMove drags the armed marker. Without a pressed pointer it only
// tracks the hover position used by keyboard deletion.
func (c *Controller) OnPointerMove(px input.Pixel) bool {
	if !c.active {
		return false
	}
	c.last = px
	if !c.down {
		c.trackSegment(c.opts.Projection(px), c.tolerance(px))
		return false
	}
	c.unselect = nil
	if c.target == nil || c.feature == nil {
		return false
	}
	c.dragVertex(c.target, px)
	c.dragged = true
	return true
}

// OnPointerUp finishes a drag or applies a scheduled clickout.
func (c *Controller) OnPointerUp(px input.Pixel) bool {
	if !c.active {
		return false
	}
	c.last = px
	handled := false
	if u := c.unselect; u != nil {
		c.unselect = nil
		c.UnselectFeature(u)
		handled = true
	}
	if c.target != nil && c.dragged && c.feature != nil {
		c.dragComplete()
		handled = true
	}
	c.down = false
	c.dragged = false
	c.target = nil
	return handled
}

func (c *Controller) snap(pos geometry.Pt, px input.Pixel, skip *geometry.Point) geometry.Pt {
	opts := c.opts.Snap
	if !opts.Enabled() {
		return pos
	}
	opts.Threshold = input.Tolerance(c.opts.Projection, px, opts.Threshold)
	var targets []geometry.Geometry
	if c.opts.SnapTargets != nil {
		targets = c.opts.SnapTargets()
	} else {
		targets = []geometry.Geometry{c.feature.Geometry}
	}
	if q, ok := geometry.Snap(pos, targets, opts, skip); ok {
		return q
	}
	return pos
}

// dragVertex moves the armed marker to px and applies what that marker
// stands for. A virtual vertex is promoted into the geometry before it
// moves.
func (c *Controller) dragVertex(target *feature.Feature, px input.Pixel) {
	pos := c.opts.Projection(px)
	pt := target.Point()
	if pt == nil {
		return
	}
	c.modified = true
	if c.feature.Geometry.Kind() == geometry.KindPoint {
		dx, dy := pos.X-pt.X, pos.Y-pt.Y
		pt.Move(dx, dy)
		c.changed(Change{Kind: ChangeTranslate, DX: dx, DY: dy})
		c.store.Notify(feature.Event{Type: feature.EventVertexModified, Feature: c.feature, Vertex: pt, Pixel: geometry.Pt(px)})
		c.store.Redraw(target, "")
		return
	}
	switch {
	case c.virtualVertex(target) != nil:
		c.promote(c.virtualVertex(target))
		pos = c.snap(pos, px, pt)
		pt.SetPt(pos)
	case target == c.dragHandle:
		if len(c.vertices) > 0 {
			c.store.RemoveFeatures(features(c.vertices)...)
			c.vertices = nil
		}
		if c.radiusHandle != nil {
			c.store.DestroyFeatures(c.radiusHandle)
			c.radiusHandle = nil
		}
		dx, dy := pos.X-pt.X, pos.Y-pt.Y
		pt.Move(dx, dy)
		c.feature.Geometry.Move(dx, dy)
		c.changed(Change{Kind: ChangeTranslate, DX: dx, DY: dy})
	case target == c.radiusHandle:
		dx, dy := pos.X-pt.X, pos.Y-pt.Y
		pt.Move(dx, dy)
		c.transformByRadius(pt.Pt(), dx, dy)
	default:
		pos = c.snap(pos, px, pt)
		dx, dy := pos.X-pt.X, pos.Y-pt.Y
		pt.SetPt(pos)
		c.changed(Change{Kind: ChangeVertexMove, Vertex: pt, DX: dx, DY: dy})
		c.store.Notify(feature.Event{Type: feature.EventVertexModified, Feature: c.feature, Vertex: pt, Pixel: geometry.Pt(px)})
	}
	c.dropVirtual()
	c.store.Redraw(c.feature, c.selectIntent())
	c.store.Redraw(target, "")
}

func (c *Controller) selectIntent() feature.Intent {
	if c.opts.Standalone {
		return ""
	}
	return feature.IntentSelect
}

// promote inserts a virtual vertex into its parent at the pending index and
// moves it to the real vertex set.
func (c *Controller) promote(v *Vertex) {
	pt := v.Point()
	if err := v.Parent.AddComponent(pt, v.Index); err != nil {
		c.log.Warn("promote virtual vertex", slog.Any("err", err))
		return
	}
	c.virtual = slices.DeleteFunc(c.virtual, func(x *Vertex) bool { return x == v })
	v.Parent, v.Index, v.Next = nil, 0, nil
	v.Intent = feature.IntentVertex
	c.vertices = append(c.vertices, v)
	c.changed(Change{Kind: ChangeVertexInsert, Vertex: pt})
}

// transformByRadius rotates and scales the geometry about the radius
// origin after the handle moved by (dx, dy) to h.
func (c *Controller) transformByRadius(h geometry.Pt, dx, dy float64) {
	o := c.radiusOrigin
	dx1, dy1 := h.X-o.X, h.Y-o.Y
	dx0, dy0 := dx1-dx, dy1-dy
	g := c.feature.Geometry
	if c.mode.Has(Rotate) {
		angle := (math.Atan2(dy1, dx1) - math.Atan2(dy0, dx0)) * 180 / math.Pi
		g.Rotate(angle, o)
		c.changed(Change{Kind: ChangeRotate, Angle: angle, Origin: o})
	}
	if c.mode.Has(Resize) {
		var scale, ratio float64
		if c.mode.Has(Reshape) {
			if dx0 == 0 || dy0 == 0 {
				return
			}
			scale = dy1 / dy0
			ratio = (dx1 / dx0) / scale
		} else {
			l0 := math.Hypot(dx0, dy0)
			if l0 == 0 {
				return
			}
			scale = math.Hypot(dx1, dy1) / l0
		}
		if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return
		}
		g.Resize(scale, o, ratio)
		c.changed(Change{Kind: ChangeResize, Scale: scale, Ratio: ratio, Origin: o})
	}
}

// dragComplete rebuilds markers after a drag and reports the change.
func (c *Controller) dragComplete() {
	c.ResetVertices()
	c.setFeatureState()
	c.log.Debug("feature modified", slog.String("feature", c.feature.ID))
	c.store.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: c.feature})
}

// OnKeyDown removes the real vertex under the pointer when code is a
// delete code. Removal below the geometry's minimum vertex count is
// refused.
func (c *Controller) OnKeyDown(code int) bool {
	if !c.active || c.feature == nil || !slices.Contains(c.opts.DeleteCodes, code) {
		return false
	}
	if c.down && c.dragged {
		return false
	}
	f := c.store.FeatureAt(c.opts.Projection(c.last), c.tolerance(c.last))
	if f == nil || c.realVertex(f) == nil {
		return false
	}
	pt := f.Point()
	parent := pt.Parent()
	if parent == nil {
		return false
	}
	if err := parent.RemoveComponent(pt); err != nil {
		c.log.Debug("vertex not removed", slog.Any("err", err))
		return false
	}
	c.store.Notify(feature.Event{Type: feature.EventVertexRemoved, Feature: c.feature, Vertex: pt, Pixel: geometry.Pt(c.last)})
	c.changed(Change{Kind: ChangeVertexRemove, Vertex: pt})
	c.store.Redraw(c.feature, c.selectIntent())
	c.modified = true
	c.ResetVertices()
	c.setFeatureState()
	c.store.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: c.feature})
	return true
}
