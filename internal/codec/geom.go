/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package codec converts the editable geometry tree to and from go-geom
// and its GeoJSON, WKT and WKB encodings.
package codec

import (
	"fmt"

	geom "github.com/twpayne/go-geom"

	"mapedit/internal/geometry"
)

// ToGeom converts an editable geometry. Rings are closed explicitly.
func ToGeom(g geometry.Geometry) (geom.T, error) {
	switch v := g.(type) {
	case *geometry.Point:
		return geom.NewPoint(geom.XY).MustSetCoords(coord(v)), nil
	case *geometry.Composite:
		switch v.Kind() {
		case geometry.KindMultiPoint:
			return geom.NewMultiPoint(geom.XY).MustSetCoords(coords(v, false)), nil
		case geometry.KindLineString:
			return geom.NewLineString(geom.XY).MustSetCoords(coords(v, false)), nil
		case geometry.KindLinearRing:
			// WKB, WKT and GeoJSON have no standalone ring; a closed line
			// string stands in for it.
			return geom.NewLineString(geom.XY).MustSetCoords(coords(v, true)), nil
		case geometry.KindPolygon:
			return geom.NewPolygon(geom.XY).MustSetCoords(rings(v)), nil
		case geometry.KindMultiLineString:
			var lines [][]geom.Coord
			for _, l := range v.Components() {
				lines = append(lines, coords(l.(*geometry.Composite), false))
			}
			return geom.NewMultiLineString(geom.XY).MustSetCoords(lines), nil
		case geometry.KindMultiPolygon:
			var polys [][][]geom.Coord
			for _, p := range v.Components() {
				polys = append(polys, rings(p.(*geometry.Composite)))
			}
			return geom.NewMultiPolygon(geom.XY).MustSetCoords(polys), nil
		case geometry.KindCollection:
			gc := geom.NewGeometryCollection()
			for _, ch := range v.Components() {
				t, err := ToGeom(ch)
				if err != nil {
					return nil, err
				}
				if err := gc.Push(t); err != nil {
					return nil, fmt.Errorf("codec: collection: %w", err)
				}
			}
			return gc, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", geometry.ErrUnsupportedKind, g)
}

func coord(p *geometry.Point) geom.Coord { return geom.Coord{p.X, p.Y} }

func coords(c *geometry.Composite, closeRing bool) []geom.Coord {
	var out []geom.Coord
	for _, ch := range c.Components() {
		out = append(out, coord(ch.(*geometry.Point)))
	}
	if closeRing && len(out) > 0 {
		out = append(out, out[0])
	}
	return out
}

func rings(poly *geometry.Composite) [][]geom.Coord {
	var out [][]geom.Coord
	for _, r := range poly.Components() {
		out = append(out, coords(r.(*geometry.Composite), true))
	}
	return out
}

// FromGeomAs converts t like FromGeom, with the kind of the top level
// geometry known from elsewhere (a stored kind column, an undo snapshot).
// A line string becomes a ring only when kind is LinearRing.
func FromGeomAs(t geom.T, kind geometry.Kind) (geometry.Geometry, error) {
	if ls, ok := t.(*geom.LineString); ok && kind == geometry.KindLinearRing {
		c := ls.Coords()
		if len(c) < 4 || !c[0].Equal(geom.XY, c[len(c)-1]) {
			return nil, fmt.Errorf("codec: ring is not closed")
		}
		return geometry.NewLinearRing(pts(c)...), nil
	}
	return FromGeom(t)
}

// FromGeom converts a go-geom geometry into an editable tree. Closing
// duplicates of polygon rings are dropped. Line strings stay line strings
// even when closed; see FromGeomAs for standalone rings.
func FromGeom(t geom.T) (geometry.Geometry, error) {
	switch v := t.(type) {
	case *geom.Point:
		c := v.Coords()
		if len(c) < 2 {
			return nil, fmt.Errorf("%w: empty point", geometry.ErrUnsupportedKind)
		}
		return geometry.NewPoint(c.X(), c.Y()), nil
	case *geom.MultiPoint:
		return geometry.NewMultiPoint(pts(v.Coords())...), nil
	case *geom.LineString:
		return geometry.NewLineString(pts(v.Coords())...), nil
	case *geom.LinearRing:
		return geometry.NewLinearRing(pts(v.Coords())...), nil
	case *geom.Polygon:
		return polygon(v.Coords()), nil
	case *geom.MultiLineString:
		var lines []*geometry.Composite
		for _, l := range v.Coords() {
			lines = append(lines, geometry.NewLineString(pts(l)...))
		}
		return geometry.NewMultiLineString(lines...), nil
	case *geom.MultiPolygon:
		var polys []*geometry.Composite
		for _, p := range v.Coords() {
			polys = append(polys, polygon(p))
		}
		return geometry.NewMultiPolygon(polys...), nil
	case *geom.GeometryCollection:
		var gs []geometry.Geometry
		for _, ch := range v.Geoms() {
			g, err := FromGeom(ch)
			if err != nil {
				return nil, err
			}
			gs = append(gs, g)
		}
		return geometry.NewCollection(gs...), nil
	}
	return nil, fmt.Errorf("%w: %T", geometry.ErrUnsupportedKind, t)
}

func pts(cs []geom.Coord) []geometry.Pt {
	out := make([]geometry.Pt, 0, len(cs))
	for _, c := range cs {
		out = append(out, geometry.Pt{X: c.X(), Y: c.Y()})
	}
	return out
}

func polygon(rs [][]geom.Coord) *geometry.Composite {
	var out []*geometry.Composite
	for _, r := range rs {
		out = append(out, geometry.NewLinearRing(pts(r)...))
	}
	return geometry.NewPolygon(out...)
}
