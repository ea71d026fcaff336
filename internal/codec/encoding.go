/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

const (
	// StateProperty is the GeoJSON property carrying the edit state.
	StateProperty = "_state"
	// KindProperty marks standalone rings, which GeoJSON writes as closed
	// line strings.
	KindProperty = "_kind"
)

func MarshalWKT(g geometry.Geometry) (string, error) {
	t, err := ToGeom(g)
	if err != nil {
		return "", err
	}
	return wkt.Marshal(t)
}

func UnmarshalWKT(s string) (geometry.Geometry, error) {
	t, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("codec: wkt: %w", err)
	}
	return FromGeom(t)
}

// UnmarshalWKTAs decodes s whose top level kind is known.
func UnmarshalWKTAs(s string, kind geometry.Kind) (geometry.Geometry, error) {
	t, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("codec: wkt: %w", err)
	}
	return FromGeomAs(t, kind)
}

// MarshalWKB encodes little endian WKB.
func MarshalWKB(g geometry.Geometry) ([]byte, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(t, binary.LittleEndian)
}

func UnmarshalWKB(b []byte) (geometry.Geometry, error) {
	t, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("codec: wkb: %w", err)
	}
	return FromGeom(t)
}

// UnmarshalWKBAs decodes b whose top level kind is known.
func UnmarshalWKBAs(b []byte, kind geometry.Kind) (geometry.Geometry, error) {
	t, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("codec: wkb: %w", err)
	}
	return FromGeomAs(t, kind)
}

// EncodeFeature converts f into a GeoJSON feature. The edit state is kept
// in StateProperty unless it is unknown; standalone rings are tagged with
// KindProperty.
func EncodeFeature(f *feature.Feature) (*geojson.Feature, error) {
	t, err := ToGeom(f.Geometry)
	if err != nil {
		return nil, err
	}
	props := make(map[string]interface{}, len(f.Attributes)+1)
	for k, v := range f.Attributes {
		props[k] = v
	}
	if f.State != feature.StateUnknown {
		props[StateProperty] = f.State.String()
	}
	if f.Geometry.Kind() == geometry.KindLinearRing {
		props[KindProperty] = geometry.KindLinearRing.String()
	}
	return &geojson.Feature{ID: f.ID, Geometry: t, Properties: props}, nil
}

// DecodeFeature is the inverse of EncodeFeature. Features without an ID
// get a fresh one.
func DecodeFeature(gf *geojson.Feature) (*feature.Feature, error) {
	attrs := make(map[string]any, len(gf.Properties))
	state := feature.StateUnknown
	ring := false
	for k, v := range gf.Properties {
		switch k {
		case StateProperty:
			if s, ok := v.(string); ok {
				state = feature.ParseState(s)
			}
		case KindProperty:
			if s, ok := v.(string); ok {
				kind, _ := geometry.ParseKind(s)
				ring = kind == geometry.KindLinearRing
			}
		default:
			attrs[k] = v
		}
	}
	var g geometry.Geometry
	var err error
	if ring {
		g, err = FromGeomAs(gf.Geometry, geometry.KindLinearRing)
	} else {
		g, err = FromGeom(gf.Geometry)
	}
	if err != nil {
		return nil, err
	}
	f := feature.New(g, attrs)
	if gf.ID != "" {
		f.ID = gf.ID
	}
	f.State = state
	return f, nil
}

// WriteGeoJSON writes non-sketch features as a FeatureCollection.
func WriteGeoJSON(w io.Writer, fs []*feature.Feature) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(fs))}
	for _, f := range fs {
		if f.Sketch {
			continue
		}
		gf, err := EncodeFeature(f)
		if err != nil {
			return fmt.Errorf("codec: feature %s: %w", f.ID, err)
		}
		fc.Features = append(fc.Features, gf)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&fc)
}

// ReadGeoJSON reads a FeatureCollection.
func ReadGeoJSON(r io.Reader) ([]*feature.Feature, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("codec: geojson: %w", err)
	}
	out := make([]*feature.Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		f, err := DecodeFeature(gf)
		if err != nil {
			return nil, fmt.Errorf("codec: feature %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}
