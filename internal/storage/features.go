/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mapedit/internal/codec"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
)

// language=SQL
// dialect=SQLite
const upsertFeatureSQL = `INSERT INTO features(id, state, geom, geom_kind, attrs, updated_at) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET state = excluded.state, geom = excluded.geom, geom_kind = excluded.geom_kind,
	attrs = excluded.attrs, updated_at = excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectFeaturesSQL = `SELECT id, state, geom, geom_kind, attrs FROM features ORDER BY rowid`

// language=SQL
// dialect=SQLite
const deleteFeatureSQL = `DELETE FROM features WHERE id = ?`

// SaveFeature stores the current geometry, attributes and state of f.
// Sketch features are never stored.
func (j *Journal) SaveFeature(ctx context.Context, f *feature.Feature) error {
	if f == nil || f.Sketch {
		return nil
	}
	blob, err := codec.MarshalWKB(f.Geometry)
	if err != nil {
		return fmt.Errorf("encode feature %s: %w", f.ID, err)
	}
	attrs, err := json.Marshal(f.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes %s: %w", f.ID, err)
	}
	_, err = j.db.ExecContext(ctx, upsertFeatureSQL, f.ID, f.State.String(), blob, f.Geometry.Kind().String(), string(attrs), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadFeatures returns the stored features in the order they were first saved.
func (j *Journal) LoadFeatures(ctx context.Context) ([]*feature.Feature, error) {
	rows, err := j.db.QueryContext(ctx, selectFeaturesSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*feature.Feature
	for rows.Next() {
		var id, state, kind, attrs string
		var blob []byte
		if err := rows.Scan(&id, &state, &blob, &kind, &attrs); err != nil {
			return nil, err
		}
		g, err := decodeGeometry(blob, kind)
		if err != nil {
			return nil, fmt.Errorf("decode feature %s: %w", id, err)
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(attrs), &m); err != nil {
			return nil, fmt.Errorf("decode attributes %s: %w", id, err)
		}
		f := feature.New(g, m)
		f.ID = id
		f.State = feature.ParseState(state)
		out = append(out, f)
	}
	return out, rows.Err()
}

// decodeGeometry honours the stored kind; rows written before the kind
// column existed decode by shape alone.
func decodeGeometry(blob []byte, kind string) (geometry.Geometry, error) {
	if k, ok := geometry.ParseKind(kind); ok {
		return codec.UnmarshalWKBAs(blob, k)
	}
	return codec.UnmarshalWKB(blob)
}

// DeleteFeature removes a stored feature. Its edit log is kept.
func (j *Journal) DeleteFeature(ctx context.Context, id string) error {
	_, err := j.db.ExecContext(ctx, deleteFeatureSQL, id)
	return err
}
