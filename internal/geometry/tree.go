/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBelowMinimum    = errors.New("geometry: removal would go below minimum component count")
	ErrNotComponent    = errors.New("geometry: not a component of this geometry")
	ErrIncompatible    = errors.New("geometry: component kind not accepted by parent")
	ErrUnsupportedKind = errors.New("geometry: unsupported kind")
)

type Kind uint8

const (
	KindPoint Kind = iota
	KindMultiPoint
	KindLineString
	KindLinearRing
	KindPolygon
	KindMultiLineString
	KindMultiPolygon
	KindCollection
)

var kindNames = [...]string{
	KindPoint:           "Point",
	KindMultiPoint:      "MultiPoint",
	KindLineString:      "LineString",
	KindLinearRing:      "LinearRing",
	KindPolygon:         "Polygon",
	KindMultiLineString: "MultiLineString",
	KindMultiPolygon:    "MultiPolygon",
	KindCollection:      "GeometryCollection",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), true
		}
	}
	if strings.EqualFold(s, "Collection") {
		return KindCollection, true
	}
	return 0, false
}

// MinComponents is the smallest legal child count for a composite kind.
// Vertex removal never goes below it.
func MinComponents(k Kind) int {
	switch k {
	case KindLineString:
		return 2
	case KindLinearRing:
		return 3
	default:
		return 1
	}
}

// Geometry is a node in the editable tree.
type Geometry interface {
	Kind() Kind
	Parent() *Composite
	Bounds() Rect
	Move(dx, dy float64)
	// Rotate turns the geometry counter-clockwise by degrees around origin.
	Rotate(degrees float64, origin Pt)
	// Resize scales around origin; x by scale*ratio, y by scale.
	Resize(scale float64, origin Pt, ratio float64)
	Transform(m Affine2D)
	Clone() Geometry

	setParent(*Composite)
}

// Point is a leaf vertex.
type Point struct {
	X, Y   float64
	parent *Composite
}

func NewPoint(x, y float64) *Point { return &Point{X: x, Y: y} }

func (p *Point) Kind() Kind             { return KindPoint }
func (p *Point) Parent() *Composite     { return p.parent }
func (p *Point) setParent(c *Composite) { p.parent = c }
func (p *Point) Pt() Pt                 { return Pt{p.X, p.Y} }
func (p *Point) SetPt(q Pt)             { p.X, p.Y = q.X, q.Y }
func (p *Point) Bounds() Rect           { return Rect{X: p.X, Y: p.Y} }

func (p *Point) Move(dx, dy float64) {
	p.X += dx
	p.Y += dy
}

func (p *Point) Rotate(degrees float64, origin Pt) { p.Transform(RotateAbout(degrees, origin)) }

func (p *Point) Resize(scale float64, origin Pt, ratio float64) {
	p.Transform(ResizeAbout(scale, origin, ratio))
}

func (p *Point) Transform(m Affine2D) { p.SetPt(m.Apply(p.Pt())) }

// Clone returns a detached copy.
func (p *Point) Clone() Geometry { return &Point{X: p.X, Y: p.Y} }

// Composite is any non-leaf geometry.
type Composite struct {
	kind   Kind
	comps  []Geometry
	parent *Composite
}

// NewComposite builds a composite of kind k and adopts comps.
// It panics on an incompatible child, which is a programming error.
func NewComposite(k Kind, comps ...Geometry) *Composite {
	c := &Composite{kind: k}
	for _, g := range comps {
		if !accepts(k, g.Kind()) {
			panic(fmt.Sprintf("geometry: %s cannot hold %s", k, g.Kind()))
		}
		g.setParent(c)
		c.comps = append(c.comps, g)
	}
	return c
}

func pointsOf(pts []Pt) []Geometry {
	out := make([]Geometry, 0, len(pts))
	for _, p := range pts {
		out = append(out, NewPoint(p.X, p.Y))
	}
	return out
}

func NewLineString(pts ...Pt) *Composite { return NewComposite(KindLineString, pointsOf(pts)...) }
func NewMultiPoint(pts ...Pt) *Composite { return NewComposite(KindMultiPoint, pointsOf(pts)...) }

// NewLinearRing builds a ring from distinct points. A trailing point equal
// to the first is dropped: the closing edge is implicit.
func NewLinearRing(pts ...Pt) *Composite {
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	return NewComposite(KindLinearRing, pointsOf(pts)...)
}

// NewPolygon takes the outer ring first, then holes.
func NewPolygon(rings ...*Composite) *Composite { return NewComposite(KindPolygon, asGeoms(rings)...) }

func NewMultiLineString(lines ...*Composite) *Composite {
	return NewComposite(KindMultiLineString, asGeoms(lines)...)
}

func NewMultiPolygon(polys ...*Composite) *Composite {
	return NewComposite(KindMultiPolygon, asGeoms(polys)...)
}

func NewCollection(gs ...Geometry) *Composite { return NewComposite(KindCollection, gs...) }

func asGeoms(cs []*Composite) []Geometry {
	out := make([]Geometry, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func accepts(parent, child Kind) bool {
	switch parent {
	case KindMultiPoint, KindLineString, KindLinearRing:
		return child == KindPoint
	case KindPolygon:
		return child == KindLinearRing
	case KindMultiLineString:
		return child == KindLineString
	case KindMultiPolygon:
		return child == KindPolygon
	case KindCollection:
		return true
	}
	return false
}

func (c *Composite) Kind() Kind             { return c.kind }
func (c *Composite) Parent() *Composite     { return c.parent }
func (c *Composite) setParent(p *Composite) { c.parent = p }
func (c *Composite) Len() int               { return len(c.comps) }

// Component returns the i-th child.
func (c *Composite) Component(i int) Geometry { return c.comps[i] }

// Components returns a copy of the child list.
func (c *Composite) Components() []Geometry { return append([]Geometry(nil), c.comps...) }

// Closed reports whether the last child implicitly connects to the first.
func (c *Composite) Closed() bool { return c.kind == KindLinearRing }

// EdgeBearing reports whether consecutive point children form edges.
func (c *Composite) EdgeBearing() bool {
	return c.kind == KindLineString || c.kind == KindLinearRing
}

// IndexOf returns the position of g among the children, or -1.
func (c *Composite) IndexOf(g Geometry) int {
	for i, x := range c.comps {
		if x == g {
			return i
		}
	}
	return -1
}

// AddComponent inserts g at index. An index outside [0, Len] appends.
func (c *Composite) AddComponent(g Geometry, index int) error {
	if !accepts(c.kind, g.Kind()) {
		return fmt.Errorf("%w: %s into %s", ErrIncompatible, g.Kind(), c.kind)
	}
	if index < 0 || index > len(c.comps) {
		index = len(c.comps)
	}
	c.comps = append(c.comps, nil)
	copy(c.comps[index+1:], c.comps[index:])
	c.comps[index] = g
	g.setParent(c)
	return nil
}

// CanRemove reports whether one child can go without breaking MinComponents.
func (c *Composite) CanRemove() bool { return len(c.comps)-1 >= MinComponents(c.kind) }

// RemoveComponent detaches g, refusing to go below MinComponents.
func (c *Composite) RemoveComponent(g Geometry) error {
	i := c.IndexOf(g)
	if i < 0 {
		return ErrNotComponent
	}
	if !c.CanRemove() {
		return fmt.Errorf("%w: %s has %d", ErrBelowMinimum, c.kind, len(c.comps))
	}
	c.comps = append(c.comps[:i], c.comps[i+1:]...)
	g.setParent(nil)
	return nil
}

func (c *Composite) Bounds() Rect {
	var b Rect
	first := true
	for _, g := range c.comps {
		gb := g.Bounds()
		if first {
			b = gb
			first = false
		} else {
			b = b.Union(gb)
		}
	}
	return b
}

func (c *Composite) Move(dx, dy float64) {
	for _, g := range c.comps {
		g.Move(dx, dy)
	}
}

func (c *Composite) Rotate(degrees float64, origin Pt) { c.Transform(RotateAbout(degrees, origin)) }

func (c *Composite) Resize(scale float64, origin Pt, ratio float64) {
	c.Transform(ResizeAbout(scale, origin, ratio))
}

func (c *Composite) Transform(m Affine2D) {
	for _, g := range c.comps {
		g.Transform(m)
	}
}

// Clone deep-copies the subtree; the copy has no parent.
func (c *Composite) Clone() Geometry {
	out := &Composite{kind: c.kind, comps: make([]Geometry, 0, len(c.comps))}
	for _, g := range c.comps {
		cg := g.Clone()
		cg.setParent(out)
		out.comps = append(out.comps, cg)
	}
	return out
}

// Points walks g depth-first and returns every leaf.
func Points(g Geometry) []*Point {
	var out []*Point
	var walk func(Geometry)
	walk = func(g Geometry) {
		switch v := g.(type) {
		case *Point:
			out = append(out, v)
		case *Composite:
			for _, c := range v.comps {
				walk(c)
			}
		}
	}
	if g != nil {
		walk(g)
	}
	return out
}

// Equal reports structural and coordinate equality.
func Equal(a, b Geometry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Point:
		bv := b.(*Point)
		return av.X == bv.X && av.Y == bv.Y
	case *Composite:
		bv, ok := b.(*Composite)
		if !ok || len(av.comps) != len(bv.comps) {
			return false
		}
		for i := range av.comps {
			if !Equal(av.comps[i], bv.comps[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Root returns the top-most ancestor of g.
func Root(g Geometry) Geometry {
	for {
		p := g.Parent()
		if p == nil {
			return g
		}
		g = p
	}
}
