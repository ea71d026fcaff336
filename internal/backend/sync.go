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
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"mapedit/internal/codec"
	"mapedit/internal/feature"
)

// dialect=PostgreSQL
const upsertFeatureSQL = `INSERT INTO features(id, layer, kind, geom_wkt, min_x, min_y, max_x, max_y, attributes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
ON CONFLICT (id) DO UPDATE SET layer = excluded.layer, kind = excluded.kind, geom_wkt = excluded.geom_wkt,
	min_x = excluded.min_x, min_y = excluded.min_y, max_x = excluded.max_x, max_y = excluded.max_y,
	attributes = excluded.attributes, version = features.version + 1, updated_at = now()`

// dialect=PostgreSQL
const deleteFeatureSQL = `DELETE FROM features WHERE id = $1 AND layer = $2`

// SyncResult counts what a Sync wrote.
type SyncResult struct {
	Inserted int
	Updated  int
	Deleted  int
	// Removed lists the features deleted on the server; callers usually
	// drop them from their layer.
	Removed []*feature.Feature
}

// Sync writes features in Insert or Update state and deletes features in
// Delete state, all in one transaction. Other features are skipped. After a
// successful commit the written features are marked unmodified.
func (s *Store) Sync(ctx context.Context, fs []*feature.Feature) (SyncResult, error) {
	var res SyncResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin sync: %w", err)
	}
	var written []*feature.Feature
	for _, f := range fs {
		if f == nil || f.Sketch {
			continue
		}
		switch f.State {
		case feature.StateInsert, feature.StateUpdate:
			if err := s.upsert(ctx, tx, f); err != nil {
				_ = tx.Rollback()
				return SyncResult{}, err
			}
			if f.State == feature.StateInsert {
				res.Inserted++
			} else {
				res.Updated++
			}
			written = append(written, f)
		case feature.StateDelete:
			if _, err := tx.ExecContext(ctx, deleteFeatureSQL, f.ID, s.layer); err != nil {
				_ = tx.Rollback()
				return SyncResult{}, fmt.Errorf("delete %s: %w", f.ID, err)
			}
			res.Deleted++
			res.Removed = append(res.Removed, f)
		}
	}
	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("commit sync: %w", err)
	}
	for _, f := range written {
		f.State = feature.StateUnmodified
		f.Modified = nil
	}
	s.log.Info("sync done", slog.Int("inserted", res.Inserted), slog.Int("updated", res.Updated), slog.Int("deleted", res.Deleted))
	return res, nil
}

func (s *Store) upsert(ctx context.Context, tx *sql.Tx, f *feature.Feature) error {
	wkt, err := codec.MarshalWKT(f.Geometry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.ID, err)
	}
	attrs, err := json.Marshal(f.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes %s: %w", f.ID, err)
	}
	b := f.Geometry.Bounds()
	_, err = tx.ExecContext(ctx, upsertFeatureSQL, f.ID, s.layer, f.Geometry.Kind().String(), wkt,
		b.X, b.Y, b.X+b.W, b.Y+b.H, string(attrs))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", f.ID, err)
	}
	return nil
}
