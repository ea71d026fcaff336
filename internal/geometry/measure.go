/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Segment is one edge of an edge-bearing composite. Index is the position a
// new vertex would take when inserted on this edge.
type Segment struct {
	A, B   *Point
	Parent *Composite
	Index  int
}

// Bounds of the segment.
func (s Segment) Bounds() Rect { return RectFromPoints(s.A.Pt(), s.B.Pt()) }

// Segments lists every edge of g, including implicit ring closing edges.
func Segments(g Geometry) []Segment {
	var out []Segment
	var walk func(Geometry)
	walk = func(g Geometry) {
		c, ok := g.(*Composite)
		if !ok {
			return
		}
		if c.EdgeBearing() {
			n := len(c.comps)
			last := n - 1
			if c.Closed() && n > 2 {
				last = n
			}
			for i := 0; i < last; i++ {
				a, aok := c.comps[i].(*Point)
				b, bok := c.comps[(i+1)%n].(*Point)
				if aok && bok {
					out = append(out, Segment{A: a, B: b, Parent: c, Index: i + 1})
				}
			}
			return
		}
		for _, ch := range c.comps {
			walk(ch)
		}
	}
	if g != nil {
		walk(g)
	}
	return out
}

// ClosestOnSegment projects p onto segment ab and returns the foot point
// and its distance to p.
func ClosestOnSegment(a, b, p Pt) (Pt, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a, a.Dist(p)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	q := Pt{a.X + t*dx, a.Y + t*dy}
	return q, q.Dist(p)
}

// Contains reports whether p lies inside polygonal geometry (holes excluded).
func Contains(g Geometry, p Pt) bool {
	c, ok := g.(*Composite)
	if !ok {
		return false
	}
	switch c.kind {
	case KindLinearRing:
		return ringContains(c, p)
	case KindPolygon:
		if len(c.comps) == 0 || !ringContains(c.comps[0].(*Composite), p) {
			return false
		}
		for _, hole := range c.comps[1:] {
			if ringContains(hole.(*Composite), p) {
				return false
			}
		}
		return true
	case KindMultiPolygon, KindCollection:
		for _, ch := range c.comps {
			if Contains(ch, p) {
				return true
			}
		}
	}
	return false
}

func ringContains(r *Composite, p Pt) bool {
	n := len(r.comps)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a := r.comps[i].(*Point)
		b := r.comps[j].(*Point)
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Distance returns the shortest distance from p to g. Points inside a
// polygon are at distance zero.
func Distance(g Geometry, p Pt) float64 {
	if g == nil {
		return math.Inf(1)
	}
	if Contains(g, p) {
		return 0
	}
	best := math.Inf(1)
	segs := Segments(g)
	for _, s := range segs {
		if _, d := ClosestOnSegment(s.A.Pt(), s.B.Pt(), p); d < best {
			best = d
		}
	}
	if len(segs) == 0 || g.Kind() == KindCollection {
		for _, v := range Points(g) {
			if d := v.Pt().Dist(p); d < best {
				best = d
			}
		}
	}
	return best
}
