/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"mapedit/internal/codec"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

// Query filters features on the server. The zero value matches the whole layer.
type Query struct {
	// Box keeps features whose bounds intersect it.
	Box *geometry.Rect
	// Kinds restricts geometry kinds, e.g. "Polygon".
	Kinds []string
	// Attributes keeps features whose attribute equals the given text.
	Attributes map[string]string
	Limit      int
}

// Features loads the features of the layer that match q, oldest first.
// Loaded features are in the unmodified state.
func (s *Store) Features(ctx context.Context, q Query) ([]*feature.Feature, error) {
	sqlText, args := buildQuery(s.layer, q)
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*feature.Feature
	for rows.Next() {
		var id, kind, wkt string
		var raw []byte
		if err := rows.Scan(&id, &kind, &wkt, &raw); err != nil {
			return nil, err
		}
		k, ok := geometry.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("decode %s: %w: %q", id, geometry.ErrUnsupportedKind, kind)
		}
		g, err := codec.UnmarshalWKTAs(wkt, k)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		attrs := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &attrs); err != nil {
				return nil, fmt.Errorf("decode attributes %s: %w", id, err)
			}
		}
		f := feature.New(g, attrs)
		f.ID = id
		f.State = feature.StateUnmodified
		out = append(out, f)
	}
	return out, rows.Err()
}

// buildQuery renders q as SQL with positional arguments.
func buildQuery(layer string, q Query) (string, []any) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	b.WriteString("SELECT id, kind, geom_wkt, attributes FROM features WHERE layer = " + place(layer))
	if r := q.Box; r != nil {
		b.WriteString(" AND max_x >= " + place(r.X) + " AND min_x <= " + place(r.X+r.W))
		b.WriteString(" AND max_y >= " + place(r.Y) + " AND min_y <= " + place(r.Y+r.H))
	}
	if len(q.Kinds) > 0 {
		b.WriteString(" AND kind = ANY (" + place(q.Kinds) + ")")
	}
	keys := make([]string, 0, len(q.Attributes))
	for k := range q.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" AND attributes ->> " + place(k) + " = " + place(q.Attributes[k]))
	}
	b.WriteString(" ORDER BY updated_at, id")
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + place(q.Limit))
	}
	return b.String(), args
}
