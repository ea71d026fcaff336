/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// SnapOptions controls which targets are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance in map units at which snapping occurs.
	Threshold float64
	// ToVertices snaps onto existing vertices.
	ToVertices bool
	// ToEdges snaps onto the closest point of an edge.
	ToEdges bool
}

// Enabled reports whether any snapping would take place.
func (o SnapOptions) Enabled() bool { return o.Threshold > 0 && (o.ToVertices || o.ToEdges) }

// Snap moves p onto the nearest target within the threshold. Vertices win
// over edges at equal distance. skip excludes points (typically the vertex
// being dragged).
func Snap(p Pt, targets []Geometry, opts SnapOptions, skip ...*Point) (Pt, bool) {
	if !opts.Enabled() {
		return p, false
	}
	skipped := func(v *Point) bool {
		for _, s := range skip {
			if s == v {
				return true
			}
		}
		return false
	}
	best, bestD, found := p, opts.Threshold, false
	if opts.ToVertices {
		for _, g := range targets {
			for _, v := range Points(g) {
				if skipped(v) {
					continue
				}
				if d := v.Pt().Dist(p); d <= bestD {
					best, bestD, found = v.Pt(), d, true
				}
			}
		}
	}
	if opts.ToEdges && !found {
		for _, g := range targets {
			for _, s := range Segments(g) {
				if skipped(s.A) || skipped(s.B) {
					continue
				}
				if q, d := ClosestOnSegment(s.A.Pt(), s.B.Pt(), p); d <= bestD {
					best, bestD, found = q, d, true
				}
			}
		}
	}
	if !found {
		return p, false
	}
	return Pt{Round(best.X, 9), Round(best.Y, 9)}, true
}
