/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editing

import (
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

// ResetVertices discards every marker and builds them again from the
// selected geometry and the current mode. Point features get no markers.
func (c *Controller) ResetVertices() {
	c.clearMarkers()
	f := c.feature
	if f == nil || f.Geometry == nil || f.Geometry.Kind() == geometry.KindPoint {
		return
	}
	if c.mode.Has(Drag) {
		c.collectDragHandle()
	}
	if c.mode.Has(Rotate | Resize) {
		c.collectRadiusHandle()
	}
	if c.reshaping() {
		c.collectVertices()
		if c.opts.BySegment {
			c.opts.SegmentIndex.Load(f.Geometry)
		}
	}
}

// reshaping reports whether per-vertex editing is offered. Resize wins
// over Reshape.
func (c *Controller) reshaping() bool { return c.mode.Has(Reshape) && !c.mode.Has(Resize) }

func (c *Controller) clearMarkers() {
	if len(c.vertices) > 0 {
		c.store.RemoveFeatures(features(c.vertices)...)
		c.vertices = nil
	}
	if len(c.virtual) > 0 {
		c.store.DestroyFeatures(features(c.virtual)...)
		c.virtual = nil
	}
	if c.dragHandle != nil {
		c.store.DestroyFeatures(c.dragHandle)
		c.dragHandle = nil
	}
	if c.radiusHandle != nil {
		c.store.DestroyFeatures(c.radiusHandle)
		c.radiusHandle = nil
	}
}

func features(vs []*Vertex) []*feature.Feature {
	out := make([]*feature.Feature, len(vs))
	for i, v := range vs {
		out[i] = v.Feature
	}
	return out
}

// collectVertices creates one marker per geometry point and, unless
// disabled, one virtual marker per edge. Virtual markers go below the
// real ones.
func (c *Controller) collectVertices() {
	var walk func(g geometry.Geometry)
	walk = func(g geometry.Geometry) {
		switch v := g.(type) {
		case *geometry.Point:
			c.vertices = append(c.vertices, &Vertex{Feature: feature.NewSketch(v, feature.IntentVertex)})
		case *geometry.Composite:
			for _, ch := range v.Components() {
				walk(ch)
			}
			if c.opts.NoVirtualVertices || c.opts.BySegment || !v.EdgeBearing() {
				return
			}
			for _, s := range geometry.Segments(v) {
				c.virtual = append(c.virtual, c.newVirtual(s, s.A.Pt().Mid(s.B.Pt())))
			}
		}
	}
	walk(c.feature.Geometry)
	c.store.AddFeatures(features(c.virtual)...)
	c.store.AddFeatures(features(c.vertices)...)
}

func (c *Controller) newVirtual(s geometry.Segment, at geometry.Pt) *Vertex {
	return &Vertex{
		Feature: feature.NewSketch(geometry.NewPoint(at.X, at.Y), feature.IntentVirtual),
		Parent:  s.Parent,
		Index:   s.Index,
		Next:    s.B,
	}
}

func (c *Controller) collectDragHandle() {
	ctr := c.feature.Geometry.Bounds().Center()
	c.dragHandle = feature.NewSketch(geometry.NewPoint(ctr.X, ctr.Y), feature.IntentHandle)
	c.store.AddFeatures(c.dragHandle)
}

// collectRadiusHandle places the handle at the bottom right bounds corner
// and remembers the centre it rotates and scales around.
func (c *Controller) collectRadiusHandle() {
	b := c.feature.Geometry.Bounds()
	c.radiusOrigin = b.Center()
	c.radiusHandle = feature.NewSketch(geometry.NewPoint(b.X+b.W, b.Y), feature.IntentHandle)
	c.store.AddFeatures(c.radiusHandle)
}

// trackSegment keeps the single segment vertex on the edge nearest to pos.
// A real vertex under the pointer takes precedence.
func (c *Controller) trackSegment(pos geometry.Pt, tol float64) {
	if !c.opts.BySegment || c.feature == nil || !c.reshaping() {
		return
	}
	if f := c.store.FeatureAt(pos, tol); f != nil && c.realVertex(f) != nil {
		c.dropVirtual()
		return
	}
	s, q, ok := c.opts.SegmentIndex.Nearest(pos, tol)
	if !ok {
		c.dropVirtual()
		return
	}
	if len(c.virtual) == 1 {
		v := c.virtual[0]
		v.Point().SetPt(q)
		v.Parent, v.Index, v.Next = s.Parent, s.Index, s.B
		c.store.Redraw(v.Feature, "")
		return
	}
	c.dropVirtual()
	c.virtual = []*Vertex{c.newVirtual(s, q)}
	c.store.AddFeatures(c.virtual[0].Feature)
}

func (c *Controller) dropVirtual() {
	if len(c.virtual) > 0 {
		c.store.DestroyFeatures(features(c.virtual)...)
		c.virtual = nil
	}
}

func (c *Controller) realVertex(f *feature.Feature) *Vertex {
	for _, v := range c.vertices {
		if v.Feature == f {
			return v
		}
	}
	return nil
}

func (c *Controller) virtualVertex(f *feature.Feature) *Vertex {
	for _, v := range c.virtual {
		if v.Feature == f {
			return v
		}
	}
	return nil
}

// owns reports whether f is one of this controller's markers.
func (c *Controller) owns(f *feature.Feature) bool {
	return f == c.dragHandle || f == c.radiusHandle || c.realVertex(f) != nil || c.virtualVertex(f) != nil
}
