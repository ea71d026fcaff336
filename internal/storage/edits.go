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
	"time"
)

// language=SQL
// dialect=SQLite
const insertEditSQL = `INSERT INTO edits(feature_id, kind, ts, geom) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listEditsSQL = `SELECT feature_id, kind, ts, geom FROM edits WHERE feature_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldEditsSQL = `DELETE FROM edits WHERE feature_id = ? AND id NOT IN (
	SELECT id FROM edits WHERE feature_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Edit is one journal entry. Geometry is the WKB encoded geometry after the
// edit and may be empty for entries that carry no geometry.
type Edit struct {
	FeatureID string
	Kind      string
	TS        time.Time
	Geometry  []byte
}

// AppendEdit adds an entry to the edit log.
func (j *Journal) AppendEdit(ctx context.Context, e Edit) error {
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	_, err := j.db.ExecContext(ctx, insertEditSQL, e.FeatureID, e.Kind, e.TS.UTC().Format(time.RFC3339Nano), e.Geometry)
	return err
}

// ListEdits returns up to limit most recent edits of a feature, newest first.
func (j *Journal) ListEdits(ctx context.Context, featureID string, limit int) ([]Edit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, listEditsSQL, featureID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Edit
	for rows.Next() {
		var e Edit
		var tsStr string
		if err := rows.Scan(&e.FeatureID, &e.Kind, &tsStr, &e.Geometry); err != nil {
			return nil, err
		}
		e.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneEdits keeps at most keepLast entries for the feature and deletes older ones.
func (j *Journal) PruneEdits(ctx context.Context, featureID string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx, pruneOldEditsSQL, featureID, featureID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
