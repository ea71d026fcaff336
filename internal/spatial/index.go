/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package spatial holds the segment index used for segment-based editing.
package spatial

import (
	"sort"

	"github.com/tidwall/rtree"

	"mapedit/internal/geometry"
)

// Index is an R-tree over the segments of one geometry. Load must be called
// again after structural edits.
type Index struct {
	tr   rtree.RTreeG[int]
	segs []geometry.Segment
}

func NewIndex() *Index { return &Index{} }

func box(r geometry.Rect) (min, max [2]float64) {
	return [2]float64{r.X, r.Y}, [2]float64{r.X + r.W, r.Y + r.H}
}

// Load replaces the index contents with the segments of g.
func (x *Index) Load(g geometry.Geometry) {
	x.tr = rtree.RTreeG[int]{}
	x.segs = geometry.Segments(g)
	for i, s := range x.segs {
		lo, hi := box(s.Bounds())
		x.tr.Insert(lo, hi, i)
	}
}

// Len is the number of indexed segments.
func (x *Index) Len() int { return len(x.segs) }

// Search returns the segments whose bounds intersect r in edge order.
func (x *Index) Search(r geometry.Rect) []geometry.Segment {
	lo, hi := box(r)
	var hits []int
	x.tr.Search(lo, hi, func(_, _ [2]float64, i int) bool {
		hits = append(hits, i)
		return true
	})
	sort.Ints(hits)
	out := make([]geometry.Segment, 0, len(hits))
	for _, i := range hits {
		out = append(out, x.segs[i])
	}
	return out
}

// Nearest returns the segment closest to p within tol, and the closest
// point on it. On a tie the later edge wins.
func (x *Index) Nearest(p geometry.Pt, tol float64) (geometry.Segment, geometry.Pt, bool) {
	var (
		best  geometry.Segment
		bestQ geometry.Pt
		found bool
	)
	bestD := tol
	for _, s := range x.Search(geometry.R(p.X-tol, p.Y-tol, 2*tol, 2*tol)) {
		q, d := geometry.ClosestOnSegment(s.A.Pt(), s.B.Pt(), p)
		if d <= bestD {
			best, bestQ, bestD, found = s, q, d, true
		}
	}
	return best, bestQ, found
}
