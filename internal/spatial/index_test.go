/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package spatial

import (
	"testing"

	"mapedit/internal/geometry"
)

func TestNearestFindsClosingEdge(t *testing.T) {
	ring := geometry.NewLinearRing(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}, geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 0, Y: 10})
	x := NewIndex()
	x.Load(ring)
	if x.Len() != 4 {
		t.Fatalf("expected 4 segments, got %d", x.Len())
	}
	s, q, ok := x.Nearest(geometry.Pt{X: -0.5, Y: 5}, 1)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if s.Index != 4 || q != (geometry.Pt{X: 0, Y: 5}) {
		t.Fatalf("unexpected segment idx=%d q=%+v", s.Index, q)
	}
	if _, _, ok := x.Nearest(geometry.Pt{X: 5, Y: 5}, 1); ok {
		t.Fatalf("centre is farther than tolerance from every edge")
	}
}

func TestSearchReturnsEdgeOrder(t *testing.T) {
	line := geometry.NewLineString(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 100, Y: 0}, geometry.Pt{X: 100, Y: 100}, geometry.Pt{X: 0, Y: 100})
	x := NewIndex()
	x.Load(line)
	got := x.Search(geometry.R(0, -1, 100, 2))
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Fatalf("expected the first two segments once each, got %d", len(got))
	}
	if got := x.Search(geometry.R(40, 40, 10, 10)); len(got) != 0 {
		t.Fatalf("empty window returned %d segments", len(got))
	}
}

func TestLoadReplacesContents(t *testing.T) {
	x := NewIndex()
	x.Load(geometry.NewLineString(geometry.Pt{X: 0, Y: 0}, geometry.Pt{X: 10, Y: 0}))
	x.Load(geometry.NewLineString(geometry.Pt{X: 50, Y: 50}, geometry.Pt{X: 60, Y: 50}))
	if x.Len() != 1 {
		t.Fatalf("len = %d", x.Len())
	}
	if _, _, ok := x.Nearest(geometry.Pt{X: 5, Y: 0}, 1); ok {
		t.Fatalf("segment of the previous geometry still indexed")
	}
	if s, _, ok := x.Nearest(geometry.Pt{X: 55, Y: 50.5}, 1); !ok || s.Index != 1 {
		t.Fatalf("expected the new segment")
	}
}

func TestEmptyIndex(t *testing.T) {
	x := NewIndex()
	x.Load(geometry.NewPoint(1, 1))
	if _, _, ok := x.Nearest(geometry.Pt{X: 1, Y: 1}, 10); ok {
		t.Fatalf("point geometry has no segments")
	}
}
